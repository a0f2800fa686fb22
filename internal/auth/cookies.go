package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signin4me/internal/browser"
	"signin4me/internal/config"
)

// CookiePair is one name=value entry from a raw cookie header string.
type CookiePair struct {
	Name  string
	Value string
}

// ParseCookieString splits a semicolon-separated "name=value; name2=value2"
// string into pairs. Entries without '=' or with an empty name are dropped;
// the value keeps any embedded '=' characters.
func ParseCookieString(s string) []CookiePair {
	var pairs []CookiePair
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, "=") {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pairs = append(pairs, CookiePair{Name: name, Value: value})
	}
	return pairs
}

// CookieStore caches forum session cookies between runs so a successful
// credential login keeps working without resubmitting the form.
type CookieStore struct {
	path string
}

// StoredCookies is the persisted cookie snapshot.
type StoredCookies struct {
	Cookies    []browser.Cookie `json:"cookies"`
	CapturedAt time.Time        `json:"captured_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Save persists cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []browser.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Earliest expiry among persistent cookies; session-only cookies
	// carry no expiry and leave ExpiresAt zero.
	var earliestExpiry time.Time
	for _, c := range cookies {
		if c.Expires.IsZero() {
			continue
		}
		if earliestExpiry.IsZero() || c.Expires.Before(earliestExpiry) {
			earliestExpiry = c.Expires
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if stored cookies exist and have not expired
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if len(stored.Cookies) == 0 {
		return false
	}

	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	return true
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	err := os.Remove(cs.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
