package models

import (
	"encoding/json"
	"time"
)

// WindowCounter tracks in-flight consumption of a rate limit policy for one
// rate-limit key. A counter whose WindowEnd has passed is logically expired
// and must be treated as count zero with a freshly computed window.
type WindowCounter struct {
	// Key is the rate-limit key the counter belongs to.
	Key string `json:"key" db:"key"`

	// Count is the number of admitted-or-checked requests in the window.
	// It is only incremented while now < WindowEnd.
	Count int64 `json:"count" db:"count"`

	// WindowEnd is the absolute time the window closes.
	WindowEnd time.Time `json:"window_end" db:"window_end"`
}

// Expired reports whether the counter's window has closed.
func (w *WindowCounter) Expired(now time.Time) bool {
	return !now.Before(w.WindowEnd)
}

// RateLimitResult is the outcome of an admission check.
type RateLimitResult struct {
	// Allowed is true when the request is admitted.
	Allowed bool `json:"success"`

	// Limit is the window request budget that applied.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window closes.
	ResetAt time.Time `json:"reset_time"`

	// RetryAfterSeconds is set on denial: the whole seconds, rounded up,
	// until a retry can succeed.
	RetryAfterSeconds int `json:"retry_after,omitempty"`
}

// MarshalJSON writes reset_time as epoch milliseconds, the wire format
// clients expect.
func (r RateLimitResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Allowed           bool  `json:"success"`
		Limit             int   `json:"limit"`
		Remaining         int   `json:"remaining"`
		ResetTime         int64 `json:"reset_time"`
		RetryAfterSeconds int   `json:"retry_after,omitempty"`
	}{
		Allowed:           r.Allowed,
		Limit:             r.Limit,
		Remaining:         r.Remaining,
		ResetTime:         r.ResetAt.UnixMilli(),
		RetryAfterSeconds: r.RetryAfterSeconds,
	})
}
