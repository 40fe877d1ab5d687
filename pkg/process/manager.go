// Package process provides process lifecycle utilities: signal driven
// shutdown, a periodic heartbeat and liveness checks on other processes
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/foreman-dev/foreman/pkg/logger"
)

// DefaultHeartbeatInterval is used when SetHeartbeat gets a non-positive interval
const DefaultHeartbeatInterval = 10 * time.Second

// Manager handles process lifecycle and signals
type Manager struct {
	logger            logger.Logger
	shutdownHandlers  []func()
	heartbeatFunc     func()
	heartbeatInterval time.Duration
	heartbeatStop     chan struct{}
	done              chan struct{}
	signals           []os.Signal
	wg                sync.WaitGroup
	mu                sync.Mutex
	running           bool
	shutdownOnce      sync.Once
}

// NewManager creates a new process manager listening for SIGINT, SIGTERM
// and SIGHUP
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		logger:  log.WithComponent("process"),
		done:    make(chan struct{}),
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP},
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run once, in
// reverse registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// SetHeartbeat sets a function called every interval while the manager runs
func (m *Manager) SetHeartbeat(interval time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	m.heartbeatInterval = interval
	m.heartbeatFunc = fn
}

// Start begins listening for signals. Cancelling ctx or receiving a signal
// runs the shutdown handlers and closes Done.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	heartbeat := m.heartbeatFunc != nil
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, m.signals...)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case <-ctx.Done():
			m.handleShutdown()
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
			m.handleShutdown()
		case <-m.done:
		}
	}()

	if heartbeat {
		m.startHeartbeat(ctx)
	}
}

// Done is closed once shutdown has run
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown runs the shutdown handlers now, as if a signal had arrived
func (m *Manager) Shutdown() {
	m.handleShutdown()
}

// Stop stops the process manager without running the shutdown handlers
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop := m.heartbeatStop
	m.heartbeatStop = nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	m.shutdownOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.shutdownOnce.Do(func() {
		m.logger.Info("Initiating graceful shutdown...")

		m.mu.Lock()
		handlers := make([]func(), len(m.shutdownHandlers))
		copy(handlers, m.shutdownHandlers)
		m.running = false
		stop := m.heartbeatStop
		m.heartbeatStop = nil
		m.mu.Unlock()

		if stop != nil {
			close(stop)
		}
		for i := len(handlers) - 1; i >= 0; i-- {
			handlers[i]()
		}
		close(m.done)
	})
}

func (m *Manager) startHeartbeat(ctx context.Context) {
	m.mu.Lock()
	stop := make(chan struct{})
	m.heartbeatStop = stop
	interval := m.heartbeatInterval
	fn := m.heartbeatFunc
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// ProcessInfo represents information about a running process
type ProcessInfo struct {
	PID       int
	IsRunning bool
}

// GetProcessInfo returns information about a process
func GetProcessInfo(pid int) (*ProcessInfo, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}
	return &ProcessInfo{
		PID:       pid,
		IsRunning: proc.Signal(syscall.Signal(0)) == nil,
	}, nil
}

// IsAlive reports whether a process with pid exists
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	info, err := GetProcessInfo(pid)
	return err == nil && info.IsRunning
}

// KillProcess asks a process to terminate and force kills it when it is
// still alive after grace
func KillProcess(pid int, grace time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return proc.Kill()
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if IsAlive(pid) {
		return proc.Kill()
	}
	return nil
}
