package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

var at = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMultiFansOutInOrder(t *testing.T) {
	var order []string
	a := PublisherFunc(func(types.Event) { order = append(order, "a") })
	b := PublisherFunc(func(types.Event) { order = append(order, "b") })

	Multi(a, nil, b).Publish(NewEvent("x", nil, at))

	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v", order)
	}
}

func TestNewEventAssignsIDs(t *testing.T) {
	e1 := NewEvent(types.EventBuildStarted, nil, at)
	e2 := NewEvent(types.EventBuildStarted, nil, at)
	if e1.ID == "" || e1.ID == e2.ID {
		t.Errorf("expected distinct ids, got %q and %q", e1.ID, e2.ID)
	}
	if !e1.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", e1.Timestamp)
	}
}

func TestBroadcasterDelivers(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Publish(NewEvent(types.EventBuildProgress, nil, at))

	select {
	case e := <-ch:
		if e.Type != types.EventBuildProgress {
			t.Errorf("unexpected type %s", e.Type)
		}
	default:
		t.Fatal("event not delivered")
	}
}

func TestBroadcasterDropsOnFullBuffer(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(1)
	defer cancel()

	for i := 0; i < 3; i++ {
		b.Publish(NewEvent("x", nil, at))
	}
	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}

func TestBroadcasterCancelAndClose(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	cancel()
	cancel()

	if _, open := <-ch; open {
		t.Error("expected channel closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d", b.Subscribers())
	}

	other, _ := b.Subscribe(1)
	b.Close()
	if _, open := <-other; open {
		t.Error("expected channel closed after Close")
	}

	late, _ := b.Subscribe(1)
	if _, open := <-late; open {
		t.Error("expected closed channel after Close")
	}
	b.Publish(NewEvent("x", nil, at))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(logger.CreateLoggerWithOutput("info", &buf))

	sink.Publish(NewEvent(types.EventBuildCompleted, &types.BuildRecord{ID: "b1", State: types.BuildStateReadyForApproval, Progress: 100}, at))
	sink.Publish(NewEvent(types.EventBuildProgress, &types.BuildRecord{ID: "b1"}, at))

	out := buf.String()
	if !strings.Contains(out, "[events/b1]") || !strings.Contains(out, "build-completed") || !strings.Contains(out, "progress=100") {
		t.Errorf("missing completion line: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("progress events should log at debug level: %q", out)
	}
}

type failingAppender struct{ calls int }

func (f *failingAppender) AppendEvent(ctx context.Context, event types.Event) error {
	f.calls++
	return errors.New("disk full")
}

func TestEventLogSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	store := &failingAppender{}
	log := NewEventLog(store, logger.CreateLoggerWithOutput("info", &buf))

	log.Publish(NewEvent(types.EventAppDeployed, nil, at))

	if store.calls != 1 {
		t.Errorf("expected one append, got %d", store.calls)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("expected warning logged, got %q", buf.String())
	}
}

func TestDesktopFiltersEvents(t *testing.T) {
	var titles []string
	d := NewDesktop(true, false, logger.Discard())
	d.notify = func(title, message, icon string) error {
		titles = append(titles, title)
		return nil
	}

	rec := &types.BuildRecord{Name: "Smart Task Manager", DeploymentURL: "https://smart-task-manager.vercel.app"}
	d.Publish(NewEvent(types.EventBuildProgress, rec, at))
	d.Publish(NewEvent(types.EventBuildCompleted, rec, at))
	d.Publish(NewEvent(types.EventAppDeployed, rec, at))
	d.Publish(NewEvent(types.EventAppDeployed, "not a build", at))

	if len(titles) != 2 {
		t.Fatalf("expected 2 notifications, got %v", titles)
	}
}

func TestDesktopDisabled(t *testing.T) {
	called := false
	d := NewDesktop(false, true, logger.Discard())
	d.notify = func(string, string, string) error { called = true; return nil }
	d.beep = func(float64, int) error { called = true; return nil }

	d.Publish(NewEvent(types.EventBuildCompleted, &types.BuildRecord{}, at))
	if called {
		t.Error("disabled sink should not notify")
	}
}
