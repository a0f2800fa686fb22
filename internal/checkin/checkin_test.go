package checkin

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signin4me/internal/auth"
	"signin4me/internal/browser"
	"signin4me/internal/config"
)

// fakeDriver implements the browser.Driver subset the check-in flow uses.
type fakeDriver struct {
	visible  map[string]bool
	pageText string

	navigations []string
	clicks      []string

	onClick func(d *fakeDriver, selector string)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{visible: make(map[string]bool)}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *fakeDriver) AddCookie(ctx context.Context, pageURL, name, value string) error {
	return nil
}

func (d *fakeDriver) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return nil, nil
}

func (d *fakeDriver) Visible(ctx context.Context, selector string) (bool, error) {
	return d.visible[selector], nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.clicks = append(d.clicks, selector)
	if d.onClick != nil {
		d.onClick(d, selector)
	}
	return nil
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error { return nil }

func (d *fakeDriver) OptionTexts(ctx context.Context, selector string) ([]string, error) {
	return nil, nil
}

func (d *fakeDriver) SelectOption(ctx context.Context, selector string, index int) error {
	return nil
}

func (d *fakeDriver) PageText(ctx context.Context) (string, error) {
	return d.pageText, nil
}

func testTimeouts() timeouts {
	return timeouts{
		marker: time.Millisecond,
		mood:   time.Millisecond,
		button: time.Millisecond,
		verify: time.Millisecond,
		poll:   time.Millisecond,
	}
}

func newTestRunner(d *fakeDriver) *Runner {
	cfg := config.Default()
	cfg.Site.BaseURL = "https://forum.test"
	r := New(d, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.t = testTimeouts()
	return r
}

func TestRunAlreadyCheckedIn(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//h1[contains(text(),'您今天已经签到过了')]`] = true
	r := newTestRunner(d)

	res := r.Run(context.Background())
	require.True(t, res.OK(), "result: %s", res)
	assert.Empty(t, d.clicks, "no click needed when already signed")
}

func TestRunHappyPath(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//li[@id='kx']`] = true
	d.visible[`//button[@name='signsubmit']`] = true
	d.onClick = func(d *fakeDriver, selector string) {
		if selector == `//button[@name='signsubmit']` {
			d.pageText = "恭喜你签到成功!您今日获得了随机奖励"
		}
	}
	r := newTestRunner(d)

	res := r.Run(context.Background())
	require.True(t, res.OK(), "result: %s", res)
	assert.Equal(t, []string{`//li[@id='kx']`, `//button[@name='signsubmit']`}, d.clicks)
	assert.Equal(t, []string{"https://forum.test/plugin.php?id=dsu_paulsign:sign"}, d.navigations)
}

func TestRunMoodOptional(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//button[@name='signsubmit']`] = true
	d.onClick = func(d *fakeDriver, selector string) {
		d.pageText = "签到成功"
	}
	r := newTestRunner(d)

	res := r.Run(context.Background())
	require.True(t, res.OK(), "result: %s", res)
	assert.Equal(t, []string{`//button[@name='signsubmit']`}, d.clicks)
}

func TestRunButtonMissing(t *testing.T) {
	d := newFakeDriver()
	r := newTestRunner(d)

	res := r.Run(context.Background())
	assert.Equal(t, auth.StatusNotFound, res.Status)
	assert.Contains(t, res.Reason, "check-in button")
}

func TestRunNotLoggedInRejected(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//button[@name='signsubmit']`] = true
	d.pageText = "请先登录后再签到"
	r := newTestRunner(d)

	res := r.Run(context.Background())
	assert.Equal(t, auth.StatusRejected, res.Status)
	assert.Equal(t, "请先登录", res.Reason)
}

func TestRunDriverPanicBecomesFailedResult(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//button[@name='signsubmit']`] = true
	d.onClick = func(d *fakeDriver, selector string) {
		panic("tab crashed")
	}
	r := newTestRunner(d)

	var res auth.Result
	require.NotPanics(t, func() { res = r.Run(context.Background()) })
	assert.Equal(t, auth.StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "panicked")
}

func TestRunUnknownResultFails(t *testing.T) {
	d := newFakeDriver()
	d.visible[`//button[@name='signsubmit']`] = true
	d.pageText = "……"
	r := newTestRunner(d)

	res := r.Run(context.Background())
	assert.Equal(t, auth.StatusFailed, res.Status)
}
