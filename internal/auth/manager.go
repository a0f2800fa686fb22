// Package auth drives the forum login workflow: cookie-first session
// injection with an optional credential form flow behind it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"signin4me/internal/browser"
	"signin4me/internal/config"
	"signin4me/internal/locator"
)

// CookieEnv is the environment variable holding a raw "name=value; ..."
// session cookie string. When set it takes priority over everything else.
const CookieEnv = "SITE_COOKIES"

// Manager runs login workflows over a browser session it does not own.
// The session must not be shared with another workflow while a call is in
// flight.
type Manager struct {
	driver      browser.Driver
	cookieStore *CookieStore
	cfg         *config.Config
	log         *slog.Logger
	t           timeouts
}

// NewManager creates a login manager. cookieStore may be nil to disable
// the cookie cache.
func NewManager(driver browser.Driver, cookieStore *CookieStore, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		driver:      driver,
		cookieStore: cookieStore,
		cfg:         cfg,
		log:         logger,
		t:           defaultTimeouts(),
	}
}

// IsLoggedIn reports whether the current page shows an authenticated
// session. Any lookup failure counts as "not logged in"; absence of the
// markers never means success.
func (m *Manager) IsLoggedIn(ctx context.Context) bool {
	_, ok := locator.FindFirst(ctx, m.driver, loginMarkers, m.t.marker)
	return ok
}

// Login runs the cookie-first flow: SITE_COOKIES from the environment,
// then the cached cookie snapshot, then (only when credentials are
// configured) the credential form flow. Cookie login supplied via the
// environment falls back to the form only when login.fallback_to_password
// is set. Login never panics across this boundary; every internal error
// becomes a failed Result.
func (m *Manager) Login(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Errorf("login panicked: %v", r))
			m.log.Error("login aborted", "panic", r)
		}
	}()

	attempted := false

	if raw := strings.TrimSpace(os.Getenv(CookieEnv)); raw != "" {
		m.log.Info("using session cookies from " + CookieEnv)
		res = m.LoginWithCookies(ctx, raw)
		res.Method = "cookie"
		if res.OK() || !m.cfg.Login.FallbackToPassword {
			return res
		}
		m.log.Warn("cookie login did not take effect, falling back to password", "reason", res.Reason)
		attempted = true
	} else if m.cookieStore != nil && m.cookieStore.IsValid() {
		res = m.loginWithCachedCookies(ctx)
		res.Method = "cached-cookie"
		if res.OK() {
			return res
		}
		m.log.Warn("cached cookie login failed", "reason", res.Reason)
		attempted = true
	}

	if !m.cfg.Account.HasCredentials() {
		if !attempted {
			res = Failure(errors.New("no session cookies available and no credentials configured"))
		}
		return res
	}

	res = m.LoginWithCredentials(ctx)
	res.Method = "password"
	return res
}

// LoginWithCookies navigates to the site root, installs the given
// "name=value; ..." pairs, reloads, and checks for an authenticated
// session. It reports failure rather than falling back on its own.
func (m *Manager) LoginWithCookies(ctx context.Context, rawCookies string) Result {
	pairs := ParseCookieString(rawCookies)
	if len(pairs) == 0 {
		return Failure(errors.New("no usable name=value pairs in cookie string"))
	}
	return m.injectAndVerify(ctx, pairs)
}

func (m *Manager) loginWithCachedCookies(ctx context.Context) Result {
	stored, err := m.cookieStore.Load()
	if err != nil {
		return Failure(fmt.Errorf("load cookie cache: %w", err))
	}
	pairs := make([]CookiePair, 0, len(stored.Cookies))
	for _, c := range stored.Cookies {
		pairs = append(pairs, CookiePair{Name: c.Name, Value: c.Value})
	}
	m.log.Info("reusing cached session cookies", "captured_at", stored.CapturedAt)
	return m.injectAndVerify(ctx, pairs)
}

func (m *Manager) injectAndVerify(ctx context.Context, pairs []CookiePair) Result {
	base := m.cfg.Site.BaseURL

	// The domain must be loaded before cookies can be attached to it.
	if err := m.driver.Navigate(ctx, base); err != nil {
		return Failure(fmt.Errorf("navigate %s: %w", base, err))
	}
	m.settle(ctx)

	// Injection failures are per-cookie and never abort the run; the
	// marker check after the reload is the only judge of the outcome.
	injected := 0
	for _, p := range pairs {
		if err := m.driver.AddCookie(ctx, base, p.Name, p.Value); err != nil {
			m.log.Debug("cookie rejected by browser", "name", p.Name, "error", err)
			continue
		}
		injected++
	}
	if injected == 0 {
		m.log.Warn("browser rejected every cookie")
	}

	// Reload so the injected session takes effect.
	if err := m.driver.Navigate(ctx, base); err != nil {
		return Failure(fmt.Errorf("reload %s: %w", base, err))
	}
	m.settle(ctx)

	if m.IsLoggedIn(ctx) {
		m.log.Info("cookie login succeeded", "cookies", injected)
		return Success()
	}
	return Failure(errors.New("no authenticated-session marker after cookie reload"))
}

// LoginWithCredentials drives the full login form flow. Steps are strictly
// ordered; the first unmet requirement aborts the attempt before anything
// is submitted.
func (m *Manager) LoginWithCredentials(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Errorf("credential login panicked: %v", r))
		}
	}()

	loginURL := m.cfg.LoginURL()
	m.log.Info("navigating to login page", "url", loginURL)
	if err := m.driver.Navigate(ctx, loginURL); err != nil {
		return Failure(fmt.Errorf("navigate %s: %w", loginURL, err))
	}
	m.settle(ctx)

	m.passAgeGate(ctx)

	userSel, ok := locator.FindFirst(ctx, m.driver, usernameFields, m.t.field)
	if !ok {
		return NotFound("username field")
	}
	passSel, ok := locator.FindFirst(ctx, m.driver, passwordFields, m.t.field)
	if !ok {
		return NotFound("password field")
	}
	if err := m.driver.Fill(ctx, userSel, m.cfg.Account.Username); err != nil {
		return Failure(fmt.Errorf("fill username: %w", err))
	}
	if err := m.driver.Fill(ctx, passSel, m.cfg.Account.Password); err != nil {
		return Failure(fmt.Errorf("fill password: %w", err))
	}

	if qres := m.answerSecurityQuestion(ctx); !qres.OK() {
		return qres
	}

	submitSel, ok := locator.FindFirst(ctx, m.driver, submitButtons, m.t.field)
	if !ok {
		return NotFound("submit button")
	}
	if err := m.driver.Click(ctx, submitSel); err != nil {
		return Failure(fmt.Errorf("click submit: %w", err))
	}

	if _, ok := locator.FindFirst(ctx, m.driver, loginMarkers, m.t.verify); ok {
		m.log.Info("credential login succeeded", "username", m.cfg.Account.Username)
		m.cacheSessionCookies(ctx)
		return Success()
	}
	return m.classifyFailure(ctx)
}

// passAgeGate clicks through the 18+ interstitial when present. The gate
// is optional and idempotent, so nothing here can fail the login.
func (m *Manager) passAgeGate(ctx context.Context) {
	sel, ok := locator.FindFirst(ctx, m.driver, ageGateLinks, m.t.gate)
	if !ok {
		return
	}
	if err := m.driver.Click(ctx, sel); err != nil {
		m.log.Debug("age gate click failed", "selector", sel, "error", err)
		return
	}
	m.log.Info("age verification gate dismissed")
	locator.FindFirst(ctx, m.driver, gateLandmarks, m.t.settle)
}

// answerSecurityQuestion handles the optional secondary challenge.
// Disabled in config or not offered by the page both count as success.
func (m *Manager) answerSecurityQuestion(ctx context.Context) Result {
	q := m.cfg.Account.SecurityQuestion
	if !q.Enabled {
		return Success()
	}

	sel, ok := locator.FindFirst(ctx, m.driver, questionSelects, m.t.question)
	if !ok {
		m.log.Debug("security question not offered by this page")
		return Success()
	}

	options, err := m.driver.OptionTexts(ctx, sel)
	if err != nil {
		return Failure(fmt.Errorf("read security question options: %w", err))
	}
	idx := -1
	for i, text := range options {
		if strings.Contains(text, q.Question) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotFound(fmt.Sprintf("security question option containing %q", q.Question))
	}
	if err := m.driver.SelectOption(ctx, sel, idx); err != nil {
		return Failure(fmt.Errorf("select security question: %w", err))
	}

	ansSel, ok := locator.FindFirst(ctx, m.driver, answerFields, m.t.question)
	if !ok {
		return NotFound("security answer field")
	}
	if err := m.driver.Fill(ctx, ansSel, q.Answer); err != nil {
		return Failure(fmt.Errorf("fill security answer: %w", err))
	}
	return Success()
}

// classifyFailure scans the page for a known rejection phrase once the
// marker check has failed.
func (m *Manager) classifyFailure(ctx context.Context) Result {
	text, err := m.driver.PageText(ctx)
	if err != nil {
		return Failure(fmt.Errorf("read page text: %w", err))
	}
	for _, phrase := range failurePhrases {
		if strings.Contains(text, phrase) {
			m.log.Warn("login rejected", "phrase", phrase)
			return Rejected(phrase)
		}
	}
	return Failure(errors.New("login not confirmed and no known rejection phrase on page"))
}

// cacheSessionCookies snapshots the browser cookies after a successful
// credential login so later runs can skip the form.
func (m *Manager) cacheSessionCookies(ctx context.Context) {
	if m.cookieStore == nil {
		return
	}
	cookies, err := m.driver.Cookies(ctx)
	if err != nil || len(cookies) == 0 {
		m.log.Debug("could not capture session cookies", "error", err)
		return
	}
	if err := m.cookieStore.Save(cookies); err != nil {
		m.log.Warn("failed to cache session cookies", "error", err)
		return
	}
	m.log.Info("session cookies cached", "count", len(cookies))
}

// Logout drops the cached cookie snapshot.
func (m *Manager) Logout() error {
	if m.cookieStore == nil {
		return nil
	}
	return m.cookieStore.Clear()
}

// settle waits for any known page landmark to render, bounded by a
// timeout. Used instead of fixed sleeps after navigation.
func (m *Manager) settle(ctx context.Context) {
	locator.FindFirst(ctx, m.driver, settleLandmarks, m.t.settle)
}
