// Package daemon hosts the Foreman engine as a long running process: it
// owns the PID file, restores persisted state, applies configuration
// reloads and shuts everything down on a signal.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/foreman-dev/foreman/internal/engine"
	"github.com/foreman-dev/foreman/pkg/config"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/process"
	"github.com/foreman-dev/foreman/pkg/sessions"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/utils"
)

// PIDFileName is the file written under the state directory while the
// daemon runs
const PIDFileName = "daemon.pid"

// ShutdownTimeout bounds how long a signal driven shutdown waits for the
// engine to stop
const ShutdownTimeout = 30 * time.Second

// Config represents daemon configuration
type Config struct {
	// ConfigPath is watched for changes when set
	ConfigPath string
	// Foreman is the loaded configuration; defaults are used when nil
	Foreman *types.ForemanConfig
	// StateDir holds the PID file; defaults to the storage path
	StateDir string
	// HeartbeatInterval controls how often the PID file is refreshed
	HeartbeatInterval time.Duration
	Logger            logger.Logger
}

// Manager manages the Foreman daemon
type Manager struct {
	configPath     string
	cfg            *types.ForemanConfig
	stateDir       string
	pidFile        string
	heartbeatEvery time.Duration
	logger         logger.Logger
	processManager *process.Manager

	deps         interfaces.ForemanDependencies
	orchestrator *engine.Orchestrator
	sessions     *sessions.Service
	reloader     *config.ReloadManager
	owner        interfaces.HeartbeatStore

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewManager creates a new daemon manager
func NewManager(cfg Config) *Manager {
	fc := cfg.Foreman
	if fc == nil {
		fc = config.DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.CreateLogger(fc.Logging.File, string(fc.Logging.Level))
	}

	stateDir := StateDir(fc)
	if cfg.StateDir != "" {
		stateDir = cfg.StateDir
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = process.DefaultHeartbeatInterval
	}

	return &Manager{
		configPath:     cfg.ConfigPath,
		cfg:            fc,
		stateDir:       stateDir,
		pidFile:        filepath.Join(stateDir, PIDFileName),
		heartbeatEvery: interval,
		logger:         log.WithComponent("daemon"),
		processManager: process.NewManager(log),
	}
}

// StateDir returns the directory holding the PID file for cfg
func StateDir(cfg *types.ForemanConfig) string {
	if cfg != nil && cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return config.DefaultStoragePath
}

// Start creates the engine dependencies, restores persisted state and
// starts the orchestrator. Cancelling ctx or a signal stops the daemon.
// A Manager runs once; create a new one to start again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrDaemonAlreadyRunning
	}
	if status, err := ReadStatus(m.stateDir); err == nil && status.Running {
		return fmt.Errorf("%w (pid %d)", ErrDaemonAlreadyRunning, status.PID)
	}

	if err := os.MkdirAll(m.stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	factory := engine.NewDependencyFactory(m.logger, m.cfg)
	deps, err := factory.CreateDefaults()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDaemonStartFailed, err)
	}

	if owner, ok := deps.Store.(interfaces.HeartbeatStore); ok {
		if err := owner.Claim(); err != nil {
			deps.Store.Close()
			return fmt.Errorf("%w: %w", ErrDaemonStartFailed, err)
		}
		owner.StartHeartbeat(ctx)
		m.owner = owner
	}

	m.deps = deps
	m.sessions = factory.Sessions()
	m.orchestrator = engine.New(m.cfg, m.logger, deps)

	if m.sessions != nil {
		if err := m.sessions.Restore(ctx); err != nil {
			m.logger.Warn("Failed to restore sessions", logger.WithError(err))
		}
	}
	if err := m.orchestrator.Restore(ctx); err != nil {
		m.releaseLocked()
		return fmt.Errorf("%w: %w", ErrDaemonStartFailed, err)
	}
	if err := m.orchestrator.Start(ctx); err != nil {
		m.releaseLocked()
		return fmt.Errorf("%w: %w", ErrDaemonStartFailed, err)
	}

	m.startedAt = time.Now()
	if err := m.writePIDFile(m.startedAt); err != nil {
		m.orchestrator.Stop(context.Background())
		m.releaseLocked()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if m.configPath != "" {
		m.reloader = config.NewReloadManager(m.configPath, m.logger)
		m.reloader.AddCallback(m.applyConfig)
		if err := m.reloader.StartWatching(ctx); err != nil {
			m.logger.Warn("Configuration hot reload disabled", logger.WithError(err))
			m.reloader = nil
		}
	}

	m.processManager.RegisterShutdownHandler(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := m.Stop(shutdownCtx); err != nil && !errors.Is(err, ErrDaemonNotRunning) {
			m.logger.Error("Daemon shutdown failed", logger.WithError(err))
		}
	})
	m.processManager.SetHeartbeat(m.heartbeatEvery, m.touchPIDFile)
	m.processManager.Start(ctx)

	m.running = true
	m.logger.Success("Foreman daemon started",
		logger.WithField("pid", os.Getpid()),
		logger.WithField("storage", string(m.cfg.Storage.Driver)),
		logger.WithField("capacity", m.orchestrator.Capacity()))
	return nil
}

// Run starts the daemon and blocks until it has stopped
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-m.Done()
	return nil
}

// Done is closed once the daemon has shut down
func (m *Manager) Done() <-chan struct{} {
	return m.processManager.Done()
}

// Stop stops the engine, closes the store and removes the PID file
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrDaemonNotRunning
	}
	m.running = false

	m.logger.Info("Stopping daemon...")

	if m.reloader != nil {
		m.reloader.StopWatching()
		m.reloader = nil
	}

	var stopErr error
	if err := m.orchestrator.Stop(ctx); err != nil {
		stopErr = fmt.Errorf("%w: %w", ErrDaemonStopFailed, err)
	}
	m.releaseLocked()
	m.removePIDFile()
	m.mu.Unlock()

	// Outside the lock: a signal handler may be waiting on it
	m.processManager.Stop()

	m.logger.Info("Daemon stopped")
	return stopErr
}

// Reload re-reads the configuration file and applies it
func (m *Manager) Reload() error {
	m.mu.RLock()
	running := m.running
	path := m.configPath
	m.mu.RUnlock()

	if !running {
		return ErrDaemonNotRunning
	}
	if path == "" {
		return fmt.Errorf("no configuration file to reload")
	}

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		return err
	}
	m.applyConfig(cfg, nil)
	return nil
}

// IsRunning reports whether this manager has a running engine
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Status returns the daemon status. Stats are included when this manager
// hosts the engine.
func (m *Manager) Status() (*Status, error) {
	status, err := ReadStatus(m.stateDir)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.running {
		stats := m.orchestrator.Stats()
		status.Stats = &stats
	}
	return status, nil
}

// Orchestrator returns the hosted engine, or nil before Start
func (m *Manager) Orchestrator() *engine.Orchestrator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orchestrator
}

// Sessions returns the hosted session service, or nil before Start
func (m *Manager) Sessions() *sessions.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions
}

// Dependencies returns the dependencies created by Start
func (m *Manager) Dependencies() interfaces.ForemanDependencies {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deps
}

// PIDFile returns the path of the PID file
func (m *Manager) PIDFile() string {
	return m.pidFile
}

func (m *Manager) applyConfig(cfg *types.ForemanConfig, err error) {
	if err != nil {
		m.logger.Warn("Ignoring configuration change", logger.WithError(err))
		return
	}

	m.mu.Lock()
	orch := m.orchestrator
	m.cfg.Scheduling = cfg.Scheduling
	m.cfg.Logging.Level = cfg.Logging.Level
	m.mu.Unlock()

	// Storage and provider changes need a restart
	if orch != nil {
		orch.ApplyConfig(cfg)
	}
}

// releaseLocked stops the ownership heartbeat and closes the store and
// broadcaster. Callers hold m.mu.
func (m *Manager) releaseLocked() {
	if m.owner != nil {
		m.owner.StopHeartbeat()
		m.owner = nil
	}
	if m.deps.Broadcaster != nil {
		m.deps.Broadcaster.Close()
	}
	if m.deps.Store != nil {
		if err := m.deps.Store.Close(); err != nil {
			m.logger.Warn("Failed to close store", logger.WithError(err))
		}
	}
}

// Status represents daemon status
type Status struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid,omitempty"`
	StartedAt     time.Time           `json:"startedAt,omitempty"`
	LastHeartbeat time.Time           `json:"lastHeartbeat,omitempty"`
	ConfigPath    string              `json:"configPath,omitempty"`
	Storage       types.StorageDriver `json:"storage,omitempty"`
	Stats         *types.Stats        `json:"stats,omitempty"`
}

// Uptime returns how long the daemon has been running
func (s *Status) Uptime(now time.Time) time.Duration {
	if !s.Running || s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// pidInfo is the PID file content
type pidInfo struct {
	PID        int                 `json:"pid"`
	StartedAt  time.Time           `json:"startedAt"`
	Heartbeat  time.Time           `json:"heartbeat"`
	ConfigPath string              `json:"configPath,omitempty"`
	Storage    types.StorageDriver `json:"storage"`
}

// ReadStatus reads the PID file under stateDir. A missing file reports a
// stopped daemon; a file left by a dead process reports Running false
// with the stale PID.
func ReadStatus(stateDir string) (*Status, error) {
	info, err := readPIDFile(filepath.Join(stateDir, PIDFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Status{}, nil
		}
		return nil, err
	}

	return &Status{
		Running:       process.IsAlive(info.PID),
		PID:           info.PID,
		StartedAt:     info.StartedAt,
		LastHeartbeat: info.Heartbeat,
		ConfigPath:    info.ConfigPath,
		Storage:       info.Storage,
	}, nil
}

func (m *Manager) writePIDFile(startedAt time.Time) error {
	return writePIDInfo(m.pidFile, pidInfo{
		PID:        os.Getpid(),
		StartedAt:  startedAt,
		Heartbeat:  startedAt,
		ConfigPath: m.configPath,
		Storage:    m.cfg.Storage.Driver,
	})
}

func (m *Manager) touchPIDFile() {
	info, err := readPIDFile(m.pidFile)
	if err != nil || info.PID != os.Getpid() {
		return
	}
	info.Heartbeat = time.Now()
	if err := writePIDInfo(m.pidFile, info); err != nil {
		m.logger.Debug("Failed to refresh PID file", logger.WithError(err))
	}
}

func (m *Manager) removePIDFile() {
	if err := os.Remove(m.pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Failed to remove PID file", logger.WithError(err))
	}
}

func readPIDFile(path string) (pidInfo, error) {
	var info pidInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("corrupt PID file %s: %w", path, err)
	}
	return info, nil
}

func writePIDInfo(path string, info pidInfo) error {
	return utils.WriteJSONAtomic(path, info)
}
