// Package timer pools time.Timer values used for acquire and response deadlines.
package timer

import (
	"context"
	"sync"
	"time"
)

var timers sync.Pool

// Get returns a timer for the given duration d from the pool.
//
// Return the timer to the pool with Put.
func Get(d time.Duration) *time.Timer {
	if v := timers.Get(); v != nil {
		t, _ := v.(*time.Timer)
		if t.Reset(d) {
			// the timer was still active, drain a stale tick
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}
	return time.NewTimer(d)
}

// Put returns t to the pool. t cannot be accessed afterwards.
func Put(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}

// Budget returns how long an operation bounded by ctx may wait.
// The context deadline wins when it exists, otherwise fallback is used.
func Budget(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
