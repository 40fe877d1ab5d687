package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foreman-dev/foreman/internal/state"
	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/integrations"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/opportunity"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/sessions"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// SQLiteFileName is the database file created under the storage path
const SQLiteFileName = "foreman.db"

// restoreTimeout bounds loading persisted agents and connections
const restoreTimeout = 30 * time.Second

// DependencyFactory creates the default implementations of the
// orchestrator's dependencies from configuration
type DependencyFactory struct {
	logger logger.Logger
	config *types.ForemanConfig
	clock  clock.Clock
	lookup provider.KeyLookup

	sessions *sessions.Service
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(log logger.Logger, config *types.ForemanConfig) *DependencyFactory {
	if log == nil {
		log = logger.Discard()
	}
	if config == nil {
		config = &types.ForemanConfig{}
	}
	return &DependencyFactory{
		logger: log,
		config: config,
		clock:  clock.Real(),
		lookup: os.Getenv,
	}
}

// WithClock replaces the real clock for every created dependency
func (f *DependencyFactory) WithClock(c clock.Clock) *DependencyFactory {
	f.clock = c
	return f
}

// WithKeyLookup replaces os.Getenv for API key resolution
func (f *DependencyFactory) WithKeyLookup(lookup provider.KeyLookup) *DependencyFactory {
	f.lookup = lookup
	return f
}

// CreateDefaults creates every dependency the orchestrator needs. The agent
// registry and integration connections are restored from the store, the
// registry is bootstrapped, and the session service is created on the same
// store and publisher.
func (f *DependencyFactory) CreateDefaults() (interfaces.ForemanDependencies, error) {
	return f.CreateWithOverrides(interfaces.ForemanDependencies{})
}

// CreateWithOverrides creates dependencies, using every non-nil override in
// place of its default. This is useful for testing or custom configurations.
func (f *DependencyFactory) CreateWithOverrides(overrides interfaces.ForemanDependencies) (interfaces.ForemanDependencies, error) {
	deps := overrides
	if deps.Clock == nil {
		deps.Clock = f.clock
	}

	var ownedStore store.Store
	if deps.Store == nil {
		st, err := f.createStore()
		if err != nil {
			return interfaces.ForemanDependencies{}, err
		}
		deps.Store = st
		ownedStore = st
	}
	fail := func(err error) (interfaces.ForemanDependencies, error) {
		if ownedStore != nil {
			ownedStore.Close()
		}
		return interfaces.ForemanDependencies{}, err
	}
	if deps.Responder == nil {
		deps.Responder = f.createResponder()
	}
	if deps.Agents == nil {
		reg, err := f.createAgents(deps.Store, deps.Responder, deps.Clock)
		if err != nil {
			return fail(err)
		}
		deps.Agents = reg
	}
	if deps.Opportunities == nil {
		deps.Opportunities = f.createOpportunitySource(deps.Clock)
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = notifier.NewBroadcaster()
	}
	if deps.Publisher == nil {
		deps.Publisher = f.createPublisher(deps.Store, deps.Broadcaster)
	}
	if deps.Sessions == nil {
		f.sessions = sessions.New(deps.Agents, deps.Responder,
			sessions.WithClock(deps.Clock),
			sessions.WithLogger(f.logger),
			sessions.WithPublisher(deps.Publisher),
			sessions.WithStore(deps.Store))
		deps.Sessions = f.sessions
	}
	if deps.Integrations == nil {
		svc, err := f.createIntegrations(deps.Store, deps.Publisher, deps.Clock)
		if err != nil {
			return fail(err)
		}
		deps.Integrations = svc
	}
	return deps, nil
}

// Sessions returns the session service created by the last call to
// CreateDefaults, or nil when sessions were overridden
func (f *DependencyFactory) Sessions() *sessions.Service {
	return f.sessions
}

// Individual factory methods for each dependency

func (f *DependencyFactory) createStore() (store.Store, error) {
	cfg := f.config.Storage
	switch cfg.Driver {
	case "", types.StorageDriverMemory:
		return store.NewMemory(), nil
	case types.StorageDriverJSON:
		st, err := state.NewFileStore(cfg.Path, f.logger)
		if err != nil {
			return nil, fmt.Errorf("opening json store: %w", err)
		}
		return st, nil
	case types.StorageDriverSQLite:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
		st, err := store.NewSQLite(filepath.Join(cfg.Path, SQLiteFileName))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, types.NewValidation("storage.driver", fmt.Sprintf("unknown driver %q", cfg.Driver))
	}
}

func (f *DependencyFactory) createResponder() provider.Responder {
	return provider.NewRouter(f.config.Provider.Kind, f.config.Provider.Timeout.Std(), f.lookup)
}

// createAgents restores the registry from st before bootstrapping, so agent
// ids survive across processes sharing a storage path
func (f *DependencyFactory) createAgents(st store.Store, responder provider.Responder, c clock.Clock) (*agents.Registry, error) {
	reg := agents.New(responder,
		agents.WithClock(c),
		agents.WithLogger(f.logger),
		agents.WithStore(st))
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := reg.Restore(ctx, st); err != nil {
		return nil, fmt.Errorf("restoring agents: %w", err)
	}
	if err := agents.Bootstrap(reg); err != nil {
		return nil, fmt.Errorf("bootstrapping agents: %w", err)
	}
	return reg, nil
}

func (f *DependencyFactory) createIntegrations(st store.Store, publisher notifier.Publisher, c clock.Clock) (*integrations.Service, error) {
	svc := integrations.New(
		integrations.WithStore(st),
		integrations.WithPublisher(publisher),
		integrations.WithClock(c),
		integrations.WithLogger(f.logger))
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := svc.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restoring integrations: %w", err)
	}
	return svc, nil
}

func (f *DependencyFactory) createOpportunitySource(c clock.Clock) interfaces.OpportunitySource {
	return opportunity.New(f.config.Opportunities.Seed).
		WithJitter(f.config.Opportunities.Jitter).
		WithClock(c)
}

func (f *DependencyFactory) createPublisher(st store.Store, broadcaster *notifier.Broadcaster) notifier.Publisher {
	publishers := []notifier.Publisher{notifier.NewLogSink(f.logger), broadcaster}
	if f.config.Notifications.EventLog {
		publishers = append(publishers, notifier.NewEventLog(st, f.logger))
	}
	if f.config.Notifications.Desktop {
		publishers = append(publishers, notifier.NewDesktop(true, false, f.logger))
	}
	return notifier.Multi(publishers...)
}
