package clock

import (
	"sync"
	"time"
)

// Manual is a deterministic Clock. Time moves only when Advance is called.
// It is safe for concurrent use; callbacks run without the clock's lock held,
// so they may call Now and AfterFunc. Calling Advance from inside a callback
// is not supported.
type Manual struct {
	mu      sync.Mutex
	current time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	seq      uint64
	fn       func()
	done     bool
}

// NewManual returns a Manual clock set to start
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now returns the manual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AfterFunc registers f to run when the clock reaches now+d. Non-positive
// durations fire on the next Advance, including Advance(0).
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{
		clock:    m,
		deadline: m.current.Add(d),
		seq:      m.seq,
		fn:       f,
	}
	m.pending = append(m.pending, t)
	return t
}

// Stop cancels the timer if it has not fired
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.clock.removeLocked(t)
	return true
}

// Advance moves time forward by d, firing every timer whose deadline falls
// inside the window. Before each callback the clock is set to that timer's
// deadline; ties fire in registration order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.current.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.current = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.removeLocked(next)
		if next.deadline.After(m.current) {
			m.current = next.deadline
		}
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range m.pending {
		if t.deadline.After(target) {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) ||
			(t.deadline.Equal(next.deadline) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) removeLocked(target *manualTimer) {
	for i, t := range m.pending {
		if t == target {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
