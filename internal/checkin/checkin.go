// Package checkin performs the forum's daily check-in once a session is
// authenticated.
package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"signin4me/internal/auth"
	"signin4me/internal/browser"
	"signin4me/internal/config"
	"signin4me/internal/locator"
)

// dsu_paulsign DOM selectors, same drift-tolerant lists as the login flow.
var (
	alreadySignedMarkers = []string{
		`//h1[contains(text(),'您今天已经签到过了')]`,
		`//div[contains(text(),'您今天已经签到过了')]`,
		`//font[contains(text(),'您今天已经签到')]`,
	}

	signButtons = []string{
		`//button[@name='signsubmit']`,
		`//button[contains(.,'点击签到')]`,
		`#JD_sign`,
		`a.btna`,
	}
)

// Success phrases shown on the result page; "already signed" also counts
// when the button click races a second device.
var successPhrases = []string{
	"签到成功",
	"恭喜你签到成功",
	"您今天已经签到过了",
}

var failurePhrases = []string{
	"请先登录",
	"登录后才能",
	"您所在的用户组",
	"签到失败",
}

// timeouts bounds every wait in the check-in flow. Tests shrink these.
type timeouts struct {
	marker time.Duration
	mood   time.Duration
	button time.Duration
	verify time.Duration
	poll   time.Duration
}

func defaultTimeouts() timeouts {
	return timeouts{
		marker: 3 * time.Second,
		mood:   3 * time.Second,
		button: 10 * time.Second,
		verify: 8 * time.Second,
		poll:   500 * time.Millisecond,
	}
}

// Runner executes the daily check-in action over an authenticated session.
type Runner struct {
	driver browser.Driver
	cfg    *config.Config
	log    *slog.Logger
	t      timeouts
}

// New creates a check-in runner.
func New(driver browser.Driver, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{driver: driver, cfg: cfg, log: logger, t: defaultTimeouts()}
}

// moodSelectors returns candidate selectors for the configured mood radio.
func moodSelectors(mood string) []string {
	return []string{
		fmt.Sprintf(`//li[@id='%s']`, mood),
		fmt.Sprintf(`#%s`, mood),
		fmt.Sprintf(`input[name='qdxq'][value='%s']`, mood),
	}
}

// Run navigates to the check-in page and performs the action. Having
// already checked in today counts as success. Internal errors never
// escape; they come back as a failed Result.
func (r *Runner) Run(ctx context.Context) (res auth.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = auth.Failure(fmt.Errorf("check-in panicked: %v", p))
		}
	}()

	url := r.cfg.CheckInURL()
	r.log.Info("navigating to check-in page", "url", url)
	if err := r.driver.Navigate(ctx, url); err != nil {
		return auth.Failure(fmt.Errorf("navigate %s: %w", url, err))
	}

	if _, ok := locator.FindFirst(ctx, r.driver, alreadySignedMarkers, r.t.marker); ok {
		r.log.Info("already checked in today")
		return auth.Success()
	}

	// The mood radio is optional; some deployments drop it entirely.
	if moodSel, ok := locator.FindFirst(ctx, r.driver, moodSelectors(r.cfg.CheckIn.Mood), r.t.mood); ok {
		if err := r.driver.Click(ctx, moodSel); err != nil {
			r.log.Debug("mood click failed", "selector", moodSel, "error", err)
		}
	}

	btn, ok := locator.FindFirst(ctx, r.driver, signButtons, r.t.button)
	if !ok {
		return auth.NotFound("check-in button")
	}
	if err := r.driver.Click(ctx, btn); err != nil {
		return auth.Failure(fmt.Errorf("click check-in button: %w", err))
	}

	return r.verify(ctx)
}

// verify polls the page text for a success phrase, then falls back to the
// known failure phrases.
func (r *Runner) verify(ctx context.Context) auth.Result {
	deadline := time.Now().Add(r.t.verify)
	var text string
	for {
		var err error
		text, err = r.driver.PageText(ctx)
		if err == nil {
			for _, phrase := range successPhrases {
				if strings.Contains(text, phrase) {
					r.log.Info("check-in confirmed", "phrase", phrase)
					return auth.Success()
				}
			}
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return auth.Failure(ctx.Err())
		case <-time.After(r.t.poll):
		}
	}

	for _, phrase := range failurePhrases {
		if strings.Contains(text, phrase) {
			r.log.Warn("check-in rejected", "phrase", phrase)
			return auth.Rejected(phrase)
		}
	}
	return auth.Failure(fmt.Errorf("check-in not confirmed within %s", r.t.verify))
}
