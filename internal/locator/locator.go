// Package locator resolves page elements from prioritized selector lists.
//
// Forum markup drifts between site versions, so every lookup carries a list
// of candidate selectors ordered most-specific first. The locator polls the
// whole list each pass, which keeps the priority ordering stable: an early
// selector always wins over a later one that happens to match too.
package locator

import (
	"context"
	"time"
)

// Prober is the single element probe the locator needs.
// browser.Driver satisfies it.
type Prober interface {
	Visible(ctx context.Context, selector string) (bool, error)
}

const pollInterval = 250 * time.Millisecond

// FindFirst polls selectors in priority order until one resolves to a
// visible element or timeout elapses. It returns the matching selector and
// true, or "" and false when nothing matched in time. Probe errors count as
// "no match" for that selector; callers must check ok, there is no error
// path for "not found".
func FindFirst(ctx context.Context, p Prober, selectors []string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			visible, err := p.Visible(ctx, sel)
			if err == nil && visible {
				return sel, true
			}
		}
		if !time.Now().Before(deadline) {
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(pollInterval):
		}
	}
}
