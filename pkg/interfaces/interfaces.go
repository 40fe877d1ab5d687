// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/integrations"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// OpportunitySource produces batches of candidate builds
type OpportunitySource interface {
	Generate() []types.Opportunity
}

// SessionCounter reports how many guided sessions exist
type SessionCounter interface {
	Count() int
}

// SessionRestorer reloads sessions from storage at startup
type SessionRestorer interface {
	Restore(ctx context.Context) error
}

// HeartbeatStore is implemented by stores that claim their storage
// location for the lifetime of a running daemon
type HeartbeatStore interface {
	Claim() error
	StartHeartbeat(ctx context.Context)
	StopHeartbeat()
}

// ForemanDependencies holds all dependencies for the orchestrator
type ForemanDependencies struct {
	Agents        *agents.Registry
	Opportunities OpportunitySource
	Responder     provider.Responder
	Store         store.Store
	Publisher     notifier.Publisher
	Broadcaster   *notifier.Broadcaster
	Clock         clock.Clock
	Sessions      SessionCounter
	Integrations  *integrations.Service
}
