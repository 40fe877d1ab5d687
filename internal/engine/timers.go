package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
)

// Timer keys
const (
	timerTick         = "tick"
	timerOpportunity  = "opportunities"
	progressKeyPrefix = "progress:"
	deployKeyPrefix   = "deploy:"
)

type timerEntry struct {
	timer clock.Timer
	gen   uint64
}

// timerSet owns every pending timer of the engine. Callbacks recover
// panics, are tracked so shutdown can wait for them, and never run once
// the set is stopped.
type timerSet struct {
	mu      sync.Mutex
	clock   clock.Clock
	logger  logger.Logger
	entries map[string]timerEntry
	gen     uint64
	stopped bool

	inflight sync.WaitGroup
}

func newTimerSet(c clock.Clock, log logger.Logger) *timerSet {
	return &timerSet{
		clock:   c,
		logger:  log,
		entries: make(map[string]timerEntry),
	}
}

// schedule arms fn to run after d under key, replacing any pending timer
// with the same key. It returns false when the set is stopped.
func (ts *timerSet) schedule(key string, d time.Duration, fn func()) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.stopped {
		return false
	}
	if prev, ok := ts.entries[key]; ok {
		prev.timer.Stop()
	}

	ts.gen++
	gen := ts.gen
	t := ts.clock.AfterFunc(d, func() { ts.fire(key, gen, fn) })
	ts.entries[key] = timerEntry{timer: t, gen: gen}
	return true
}

// cancel stops the timer under key, if any
func (ts *timerSet) cancel(key string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if e, ok := ts.entries[key]; ok {
		e.timer.Stop()
		delete(ts.entries, key)
	}
}

// pending reports whether a timer is armed under key
func (ts *timerSet) pending(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.entries[key]
	return ok
}

// count returns the number of armed timers
func (ts *timerSet) count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.entries)
}

// reopen allows scheduling again after stopAll
func (ts *timerSet) reopen() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopped = false
}

// stopAll stops every pending timer and refuses new ones
func (ts *timerSet) stopAll() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.stopped = true
	n := 0
	for key, e := range ts.entries {
		if e.timer.Stop() {
			n++
		}
		delete(ts.entries, key)
	}
	return n
}

// wait blocks until in-flight callbacks return or ctx is done. Call it
// after stopAll.
func (ts *timerSet) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ts.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for timer callbacks: %w", ctx.Err())
	}
}

func (ts *timerSet) fire(key string, gen uint64, fn func()) {
	ts.mu.Lock()
	if ts.stopped {
		ts.mu.Unlock()
		return
	}
	// A replaced or cancelled timer that fired anyway is ignored.
	if e, ok := ts.entries[key]; !ok || e.gen != gen {
		ts.mu.Unlock()
		return
	}
	delete(ts.entries, key)
	ts.inflight.Add(1)
	ts.mu.Unlock()

	defer ts.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			ts.logger.Error("Timer callback panic recovered",
				logger.WithField("timer", key),
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()
	fn()
}
