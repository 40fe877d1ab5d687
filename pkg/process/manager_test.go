package process

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foreman-dev/foreman/pkg/logger"
)

func TestShutdownHandlersRunInReverseOnCancel(t *testing.T) {
	m := NewManager(logger.Discard())

	var order []int
	m.RegisterShutdownHandler(func() { order = append(order, 1) })
	m.RegisterShutdownHandler(func() { order = append(order, 2) })

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	if !m.IsRunning() {
		t.Fatal("expected manager to be running")
	}
	cancel()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("handler order = %v, want [2 1]", order)
	}
	if m.IsRunning() {
		t.Error("manager still running after shutdown")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := NewManager(nil)
	var calls int32
	m.RegisterShutdownHandler(func() { atomic.AddInt32(&calls, 1) })

	m.Start(context.Background())
	m.Shutdown()
	m.Shutdown()
	m.Stop()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("handler ran %d times", n)
	}
}

func TestStopSkipsHandlers(t *testing.T) {
	m := NewManager(nil)
	ran := false
	m.RegisterShutdownHandler(func() { ran = true })

	m.Start(context.Background())
	m.Stop()

	if ran {
		t.Error("Stop ran shutdown handlers")
	}
	select {
	case <-m.Done():
	default:
		t.Error("Done not closed after Stop")
	}
}

func TestHeartbeat(t *testing.T) {
	m := NewManager(nil)
	beats := make(chan struct{}, 10)
	m.SetHeartbeat(10*time.Millisecond, func() {
		select {
		case beats <- struct{}{}:
		default:
		}
	})

	m.Start(context.Background())
	defer m.Stop()

	select {
	case <-beats:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat never fired")
	}
}

func TestIsAlive(t *testing.T) {
	if !IsAlive(os.Getpid()) {
		t.Error("current process reported dead")
	}
	if IsAlive(0) || IsAlive(-5) {
		t.Error("invalid pid reported alive")
	}
}
