package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foreman-dev/foreman/internal/engine"
	"github.com/foreman-dev/foreman/pkg/daemon"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/sessions"
	"github.com/foreman-dev/foreman/pkg/types"
)

// closeTimeout bounds the final flush after a one-shot command
const closeTimeout = 10 * time.Second

// ErrServeRunning is returned by commands that change state while
// 'foreman serve' owns the state directory
var ErrServeRunning = errors.New("foreman serve is running")

// Runtime is the engine a one-shot command works against. It is restored
// from the configured store and closed when the command returns.
type Runtime struct {
	Config       *types.ForemanConfig
	ConfigPath   string
	Deps         interfaces.ForemanDependencies
	Orchestrator *engine.Orchestrator
	Sessions     *sessions.Service
	Logger       logger.Logger

	owner interfaces.HeartbeatStore
}

// withEngine opens a Runtime, runs fn and closes it. Mutating commands
// refuse to run while a daemon owns the state and claim the store for
// their lifetime.
func (c *CLI) withEngine(ctx context.Context, operation string, mutating bool, fn func(context.Context, *Runtime) error) error {
	rc := NewRuntimeConfig(ctx, c.config, operation)
	ctx = rc.Context

	rt, err := c.openRuntime(ctx, mutating)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			rt.Logger.Warn("Failed to close engine", logger.WithError(err))
		}
	}()

	rt.Logger.Debug("Running command", logger.WithField("elapsed", time.Since(rc.StartTime).String()))
	return fn(ctx, rt)
}

func (c *CLI) openRuntime(ctx context.Context, mutating bool) (*Runtime, error) {
	cfg, path, err := c.loadForemanConfig()
	if err != nil {
		return nil, err
	}

	if mutating {
		status, err := daemon.ReadStatus(daemon.StateDir(cfg))
		if err != nil {
			return nil, err
		}
		if status.Running {
			return nil, fmt.Errorf("%w (pid %d); stop it first or run the command against another --state-dir",
				ErrServeRunning, status.PID)
		}
	}

	log := logger.FromContext(ctx, c.commandLogger())
	factory := engine.NewDependencyFactory(log, cfg)
	deps, err := factory.CreateDefaults()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Deps:       deps,
		Sessions:   factory.Sessions(),
		Logger:     log,
	}

	if owner, ok := deps.Store.(interfaces.HeartbeatStore); ok && mutating {
		if err := owner.Claim(); err != nil {
			deps.Store.Close()
			return nil, err
		}
		rt.owner = owner
	}

	rt.Orchestrator = engine.New(cfg, log, deps)
	if err := rt.Sessions.Restore(ctx); err != nil {
		log.Warn("Failed to restore sessions", logger.WithError(err))
	}
	if err := rt.Orchestrator.Restore(ctx); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// Close stops the engine and its timers and releases the store
func (rt *Runtime) Close(ctx context.Context) error {
	var err error
	if rt.Orchestrator != nil {
		err = rt.Orchestrator.Stop(ctx)
	}
	if rt.owner != nil {
		rt.owner.StopHeartbeat()
	}
	if rt.Deps.Broadcaster != nil {
		rt.Deps.Broadcaster.Close()
	}
	if rt.Deps.Store != nil {
		if cerr := rt.Deps.Store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// describeError turns typed engine errors into a one line message
func describeError(err error) string {
	var (
		verr *types.ValidationError
		nerr *types.NotFoundError
		serr *types.InvalidStateError
		perr *types.ProviderError
	)
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	case errors.As(err, &nerr):
		return nerr.Error()
	case errors.As(err, &serr):
		return serr.Error()
	case errors.As(err, &perr):
		return perr.Error()
	case errors.Is(err, ErrServeRunning):
		return err.Error()
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
