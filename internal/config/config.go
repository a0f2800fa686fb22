package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is the forum this tool was originally written for.
// Point base_url at any other Discuz deployment in config.toml.
const DefaultBaseURL = "https://www.sehuatang.org"

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Site     SiteConfig     `toml:"site"`
	Account  AccountConfig  `toml:"account"`
	Login    LoginConfig    `toml:"login"`
	Browser  BrowserConfig  `toml:"browser"`
	CheckIn  CheckInConfig  `toml:"checkin"`
	Schedule ScheduleConfig `toml:"schedule"`
}

type SiteConfig struct {
	BaseURL     string `toml:"base_url"`
	LoginPath   string `toml:"login_path"`
	CheckInPath string `toml:"checkin_path"`
}

type AccountConfig struct {
	Username         string           `toml:"username"`
	Password         string           `toml:"password"`
	SecurityQuestion SecurityQuestion `toml:"security_question"`
}

// SecurityQuestion is the optional secondary challenge some accounts
// require at login. Question is matched by substring against the option
// texts of the login form's question dropdown.
type SecurityQuestion struct {
	Enabled  bool   `toml:"enabled"`
	Question string `toml:"question"`
	Answer   string `toml:"answer"`
}

type LoginConfig struct {
	// FallbackToPassword allows the credential form flow to run after a
	// cookie login supplied via SITE_COOKIES fails. Off by default:
	// stale cookies usually mean the session was revoked, and hammering
	// the form with a password is rarely what you want unattended.
	FallbackToPassword bool `toml:"fallback_to_password"`
}

type BrowserConfig struct {
	Headless       bool `toml:"headless"`
	RunTimeoutSecs int  `toml:"run_timeout_secs"`
}

type CheckInConfig struct {
	// Mood is the dsu_paulsign mood code selected before signing (kx,
	// ng, ym, wl, nu, ch, fd, zm, shuai).
	Mood string `toml:"mood"`
}

type ScheduleConfig struct {
	Time     string `toml:"time"`
	Timezone string `toml:"timezone"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Site: SiteConfig{
			BaseURL:     DefaultBaseURL,
			LoginPath:   "/member.php?mod=logging&action=login",
			CheckInPath: "/plugin.php?id=dsu_paulsign:sign",
		},
		Login: LoginConfig{
			FallbackToPassword: false,
		},
		Browser: BrowserConfig{
			Headless:       true,
			RunTimeoutSecs: 300,
		},
		CheckIn: CheckInConfig{
			Mood: "kx",
		},
		Schedule: ScheduleConfig{
			Time:     "08:30",
			Timezone: "Asia/Shanghai",
		},
	}
}

// HasCredentials reports whether a username/password pair is configured.
func (a AccountConfig) HasCredentials() bool {
	return a.Username != "" && a.Password != ""
}

// LoginURL returns the full login endpoint URL.
func (c *Config) LoginURL() string {
	return joinURL(c.Site.BaseURL, c.Site.LoginPath)
}

// CheckInURL returns the full daily check-in page URL.
func (c *Config) CheckInURL() string {
	return joinURL(c.Site.BaseURL, c.Site.CheckInPath)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// ApplyEnvOverrides pulls account settings from the environment so secrets
// can stay out of config.toml.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SIGNIN_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("SIGNIN_USERNAME"); v != "" {
		c.Account.Username = v
	}
	if v := os.Getenv("SIGNIN_PASSWORD"); v != "" {
		c.Account.Password = v
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "signin4me"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory for mutable state (attempt history db).
func DataDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "signin4me"), nil
}

// Load reads config from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path, layered over Default so missing keys
// keep their documented defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default location
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes config to path.
func (c *Config) SaveTo(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
