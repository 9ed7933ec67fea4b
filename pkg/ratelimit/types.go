package ratelimit

import (
	"time"
)

// Window represents a rate limiting time window.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// Duration returns the duration for the time window.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	default:
		return time.Hour
	}
}

// Result is the outcome of a single window check against a Store.
type Result struct {
	// Allowed reports whether the request fit under the window's limit.
	Allowed bool

	// Count is the number of live requests in the window after the call,
	// including the one just recorded when the request was allowed.
	Count int64

	// ResetAt is the epoch second when the window next frees capacity:
	// the recorded timestamp plus the window length when allowed, the
	// oldest live timestamp plus the window length when denied.
	ResetAt int64
}

// Decision is the aggregate outcome of evaluating a request against every
// configured window.
type Decision struct {
	// Allowed is true only when every window admitted the request.
	Allowed bool

	// Window is the binding window the figures below refer to: the first
	// exhausted window when the request was denied (minute before hour),
	// the minute window otherwise. Empty when limiting was not applied.
	Window Window

	// Limit is the binding window's capacity.
	Limit int64

	// Remaining is the capacity left in the binding window, never negative.
	Remaining int64

	// ResetAt is the epoch second when the binding window frees capacity.
	ResetAt int64

	// RetryAfter is how long a rejected caller should wait before trying
	// again. Zero for allowed requests.
	RetryAfter time.Duration
}
