// Package app wires configuration, browser, login, check-in and history
// into the single run the CLI and the scheduler invoke.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signin4me/internal/auth"
	"signin4me/internal/browser"
	"signin4me/internal/checkin"
	"signin4me/internal/config"
	"signin4me/internal/store"
)

// App holds the long-lived pieces of the application. The browser session
// is deliberately not one of them: every run gets a fresh one.
type App struct {
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger
}

// New creates a new App instance. st may be nil to disable history.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, store: st, log: logger}
}

// RunOnce performs one full sign-in attempt: fresh browser session, login
// (cookie-first), daily check-in, and a history record. The browser is
// exclusively owned for the duration of the call.
func (a *App) RunOnce(ctx context.Context) error {
	started := time.Now()

	timeout := time.Duration(a.cfg.Browser.RunTimeoutSecs) * time.Second
	runCtx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	browserCtx, cancel := browser.NewContext(runCtx, a.cfg.Browser.Headless)
	defer cancel()

	drv := browser.NewChrome()

	var cookieStore *auth.CookieStore
	if path, err := auth.DefaultCookieStorePath(); err != nil {
		a.log.Warn("cookie cache disabled", "error", err)
	} else {
		cookieStore = auth.NewCookieStore(path)
	}

	manager := auth.NewManager(drv, cookieStore, a.cfg, a.log)
	res := manager.Login(browserCtx)

	attempt := &store.Attempt{
		StartedAt: started,
		Method:    res.Method,
		Success:   res.OK(),
		Reason:    res.Reason,
	}

	if res.OK() {
		cres := checkin.New(drv, a.cfg, a.log).Run(browserCtx)
		attempt.CheckedIn = cres.OK()
		if !cres.OK() {
			attempt.Reason = cres.Reason
		}
	}

	a.record(attempt)

	if !res.OK() {
		return fmt.Errorf("login failed (%s): %s", res.Method, res.Reason)
	}
	if !attempt.CheckedIn {
		return fmt.Errorf("check-in failed: %s", attempt.Reason)
	}

	a.log.Info("daily check-in complete", "method", res.Method, "took", time.Since(started).Round(time.Millisecond))
	return nil
}

// CheckedInToday reports whether a successful check-in was already
// recorded for the current day in the schedule timezone.
func (a *App) CheckedInToday() bool {
	if a.store == nil {
		return false
	}
	last, ok, err := a.store.LastSuccessfulCheckIn()
	if err != nil || !ok {
		return false
	}

	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	last = last.In(loc)
	return last.Year() == now.Year() && last.YearDay() == now.YearDay()
}

// History returns the most recent recorded attempts.
func (a *App) History(limit int) ([]store.Attempt, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.RecentAttempts(limit)
}

func (a *App) record(attempt *store.Attempt) {
	if a.store == nil {
		return
	}
	if err := a.store.RecordAttempt(attempt); err != nil {
		a.log.Warn("failed to record attempt", "error", err)
	}
}
