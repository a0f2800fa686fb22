package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBaseURL, cfg.Site.BaseURL)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Login.FallbackToPassword)
	assert.False(t, cfg.Account.SecurityQuestion.Enabled)
	assert.Equal(t, "kx", cfg.CheckIn.Mood)
	assert.Equal(t, "Asia/Shanghai", cfg.Schedule.Timezone)
}

func TestURLJoining(t *testing.T) {
	cfg := Default()
	cfg.Site.BaseURL = "https://forum.test/"

	assert.Equal(t, "https://forum.test/member.php?mod=logging&action=login", cfg.LoginURL())
	assert.Equal(t, "https://forum.test/plugin.php?id=dsu_paulsign:sign", cfg.CheckInURL())
}

func TestHasCredentials(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Account.HasCredentials())

	cfg.Account.Username = "alice"
	assert.False(t, cfg.Account.HasCredentials())

	cfg.Account.Password = "hunter2"
	assert.True(t, cfg.Account.HasCredentials())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SIGNIN_BASE_URL", "https://other.test")
	t.Setenv("SIGNIN_USERNAME", "bob")
	t.Setenv("SIGNIN_PASSWORD", "s3cret")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://other.test", cfg.Site.BaseURL)
	assert.Equal(t, "bob", cfg.Account.Username)
	assert.Equal(t, "s3cret", cfg.Account.Password)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Account.Username = "alice"
	cfg.Account.SecurityQuestion = SecurityQuestion{
		Enabled:  true,
		Question: "母亲的名字",
		Answer:   "王芳",
	}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[account]\nusername = \"alice\"\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Account.Username)
	// Keys absent from the file keep their documented defaults.
	assert.Equal(t, DefaultBaseURL, cfg.Site.BaseURL)
	assert.Equal(t, "08:30", cfg.Schedule.Time)
}
