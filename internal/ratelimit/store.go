// Package ratelimit holds the keyed fixed-window counter behind the
// rate-limit stage. Counts must be exact under concurrency: the counter
// gates access, so double-counting or lost increments are not tolerated.
package ratelimit

import (
	"context"
	"time"
)

// Entry is the post-increment state of one (key, window) counter.
type Entry struct {
	Count int64
	Reset time.Time // end of the current window
}

// Store increments and returns the counter for key in the current
// fixed window. Absence of a key means zero usage.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (Entry, error)
}
