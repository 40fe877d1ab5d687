package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualNow(t *testing.T) {
	m := NewManual(epoch)
	if got := m.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	m.Advance(5 * time.Second)
	if got := m.Now(); !got.Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("Now() after Advance = %v", got)
	}
}

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b2") })

	m.Advance(2 * time.Second)
	if got := len(order); got != 3 {
		t.Fatalf("expected 3 fired, got %d (%v)", got, order)
	}
	m.Advance(time.Second)

	want := []string{"a", "b", "b2", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManualCallbackSeesDeadline(t *testing.T) {
	m := NewManual(epoch)
	var seen time.Time
	m.AfterFunc(2*time.Second, func() { seen = m.Now() })

	m.Advance(10 * time.Second)
	if !seen.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("callback saw %v, want %v", seen, epoch.Add(2*time.Second))
	}
	if !m.Now().Equal(epoch.Add(10 * time.Second)) {
		t.Errorf("clock ended at %v", m.Now())
	}
}

func TestManualRearmWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 100 {
			m.AfterFunc(2*time.Second, tick)
		}
	}
	m.AfterFunc(2*time.Second, tick)

	m.Advance(20 * time.Second)
	if count != 10 {
		t.Errorf("expected 10 ticks in 20s, got %d", count)
	}
	if m.Pending() != 1 {
		t.Errorf("expected the next tick to be pending, got %d", m.Pending())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop on pending timer should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}
	m.Advance(time.Minute)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestManualStopAfterFire(t *testing.T) {
	m := NewManual(epoch)
	timer := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	if timer.Stop() {
		t.Fatal("Stop after fire should return false")
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real AfterFunc did not fire")
	}
}
