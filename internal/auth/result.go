package auth

import "fmt"

// Status classifies how a workflow attempt ended. The zero value is
// StatusFailed so an unpopulated Result never reads as success.
type Status int

const (
	// StatusFailed covers unexpected errors: driver failures, unknown
	// result pages, panics recovered at the workflow boundary.
	StatusFailed Status = iota
	// StatusNotFound means a required element could not be located.
	StatusNotFound
	// StatusRejected means the site answered with a known rejection phrase.
	StatusRejected
	// StatusOK means the post-action marker check passed.
	StatusOK
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not-found"
	case StatusRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Result is the outcome of a login or check-in attempt. Callers that only
// care about the original boolean contract use OK; Reason and Err keep the
// diagnostic detail for logging.
type Result struct {
	Status Status
	Reason string
	Err    error
	// Method records which login variant produced this result
	// ("cookie", "cached-cookie" or "password"); empty for check-ins.
	Method string
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

func (r Result) String() string {
	if r.OK() {
		return "ok"
	}
	if r.Reason != "" {
		return fmt.Sprintf("%s: %s", r.Status, r.Reason)
	}
	return r.Status.String()
}

// Success returns an OK result.
func Success() Result {
	return Result{Status: StatusOK}
}

// NotFound reports that a required element was missing.
func NotFound(what string) Result {
	return Result{Status: StatusNotFound, Reason: what + " not found"}
}

// Rejected reports a known rejection phrase scraped from the page.
func Rejected(phrase string) Result {
	return Result{Status: StatusRejected, Reason: phrase}
}

// Failure wraps an unexpected error.
func Failure(err error) Result {
	return Result{Status: StatusFailed, Reason: err.Error(), Err: err}
}
