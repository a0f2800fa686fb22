// Package browser wraps chromedp behind the small page-driver surface the
// sign-in workflow needs, so the workflow logic can be tested without Chrome.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Cookie is the subset of browser cookie state the workflow cares about.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires"`
}

// Driver is the set of page operations the sign-in workflow performs on a
// browser session it does not own. Chrome implements it with chromedp;
// tests substitute fakes.
//
// Selector strings starting with "/", "(" or "./" are treated as XPath
// expressions, everything else as CSS.
type Driver interface {
	// Navigate loads url and returns once the navigation commits.
	Navigate(ctx context.Context, url string) error
	// AddCookie installs a single name=value cookie for pageURL's origin.
	AddCookie(ctx context.Context, pageURL, name, value string) error
	// Cookies returns the browser's current cookie jar.
	Cookies(ctx context.Context) ([]Cookie, error)
	// Visible reports whether selector currently resolves to a visible
	// element. It probes once and never waits.
	Visible(ctx context.Context, selector string) (bool, error)
	// Click clicks the element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill clears the field matching selector and types value into it.
	Fill(ctx context.Context, selector, value string) error
	// OptionTexts returns the option texts of the <select> matching selector.
	OptionTexts(ctx context.Context, selector string) ([]string, error)
	// SelectOption picks the index-th option of the <select> matching selector.
	SelectOption(ctx context.Context, selector string, index int) error
	// PageText returns the visible text of the current page body.
	PageText(ctx context.Context) (string, error)
}

// NewContext builds a chromedp browser context with the shared stealth
// options. The returned cancel func tears down both the tab and the
// allocator.
func NewContext(parent context.Context, headless bool) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, Options(headless)...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	return ctx, func() {
		cancel()
		allocCancel()
	}
}

// Chrome drives a chromedp browser context. The context carries all session
// state, so Chrome itself is stateless and safe to share across calls on
// the same session.
type Chrome struct{}

// NewChrome returns a chromedp-backed Driver.
func NewChrome() *Chrome {
	return &Chrome{}
}

// IsXPath reports whether selector should be evaluated as an XPath
// expression rather than a CSS selector.
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") ||
		strings.HasPrefix(selector, "(") ||
		strings.HasPrefix(selector, "./")
}

func byOpt(selector string) chromedp.QueryOption {
	if IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// lookupJS returns a JS snippet assigning the first element matching
// selector to a local `el`.
func lookupJS(selector string) string {
	if IsXPath(selector) {
		return fmt.Sprintf(
			`const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;`,
			jsString(selector))
	}
	return fmt.Sprintf(`const el = document.querySelector(%s);`, jsString(selector))
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) AddCookie(ctx context.Context, pageURL, name, value string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(name, value).WithURL(pageURL).Do(ctx)
	}))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = make([]Cookie, 0, len(raw))
		for _, rc := range raw {
			ck := Cookie{
				Name:   rc.Name,
				Value:  rc.Value,
				Domain: rc.Domain,
				Path:   rc.Path,
			}
			if rc.Expires > 0 {
				ck.Expires = time.Unix(int64(rc.Expires), 0)
			}
			cookies = append(cookies, ck)
		}
		return nil
	}))
	return cookies, err
}

func (c *Chrome) Visible(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`(function() {
		%s
		if (!el) return false;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	})()`, lookupJS(selector))

	var visible bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.Click(selector, byOpt(selector), chromedp.NodeVisible))
}

func (c *Chrome) Fill(ctx context.Context, selector, value string) error {
	return chromedp.Run(ctx,
		chromedp.Clear(selector, byOpt(selector)),
		chromedp.SendKeys(selector, value, byOpt(selector)),
	)
}

func (c *Chrome) OptionTexts(ctx context.Context, selector string) ([]string, error) {
	expr := fmt.Sprintf(`(function() {
		%s
		if (!el || !el.options) return [];
		return Array.from(el.options).map(o => o.textContent);
	})()`, lookupJS(selector))

	var texts []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (c *Chrome) SelectOption(ctx context.Context, selector string, index int) error {
	expr := fmt.Sprintf(`(function() {
		%s
		if (!el || !el.options || !el.options[%d]) return false;
		el.selectedIndex = %d;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, lookupJS(selector), index, index)

	var picked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &picked)); err != nil {
		return err
	}
	if !picked {
		return fmt.Errorf("option %d not found in %s", index, selector)
	}
	return nil
}

func (c *Chrome) PageText(ctx context.Context) (string, error) {
	var text string
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text),
	)
	return text, err
}
