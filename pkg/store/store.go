// Package store defines persistence for build records, the build queue,
// guided sessions, the agent registry, integration connections and the
// event log, with in-memory and SQLite backends.
//
// The engine keeps authoritative state in memory and writes every mutation
// through to a Store so a restarted process can restore it.
package store

import (
	"context"

	"github.com/foreman-dev/foreman/pkg/types"
)

//go:generate mockgen -destination=../mocks/mock_store.go -package=mocks github.com/foreman-dev/foreman/pkg/store Store

// Store persists engine state
type Store interface {
	// SaveBuild inserts or replaces a build record
	SaveBuild(ctx context.Context, rec *types.BuildRecord) error
	// LoadBuilds returns every stored build ordered by start time
	LoadBuilds(ctx context.Context) ([]*types.BuildRecord, error)

	// SaveQueue replaces the stored queue with ops, in order
	SaveQueue(ctx context.Context, ops []types.Opportunity) error
	// LoadQueue returns the stored queue in order
	LoadQueue(ctx context.Context) ([]types.Opportunity, error)

	// SaveSession inserts or replaces a session
	SaveSession(ctx context.Context, s *types.Session) error
	// LoadSessions returns every stored session ordered by start time
	LoadSessions(ctx context.Context) ([]*types.Session, error)

	// SaveAgent inserts or replaces an agent definition
	SaveAgent(ctx context.Context, a *types.AgentDefinition) error
	// DeleteAgent removes an agent; deleting a missing agent is not an error
	DeleteAgent(ctx context.Context, id string) error
	// LoadAgents returns every stored agent in first-saved order
	LoadAgents(ctx context.Context) ([]*types.AgentDefinition, error)

	// SaveConversation inserts or replaces a conversation
	SaveConversation(ctx context.Context, c *types.Conversation) error
	// LoadConversations returns every stored conversation in first-saved order
	LoadConversations(ctx context.Context) ([]*types.Conversation, error)

	// SaveTeam inserts or replaces an agent team
	SaveTeam(ctx context.Context, t *types.AgentTeam) error
	// LoadTeams returns every stored team in first-saved order
	LoadTeams(ctx context.Context) ([]*types.AgentTeam, error)

	// SaveConnection inserts or replaces an integration connection
	SaveConnection(ctx context.Context, c *types.IntegrationConnection) error
	// LoadConnections returns every stored connection in first-saved order
	LoadConnections(ctx context.Context) ([]*types.IntegrationConnection, error)

	// AppendEvent adds an event to the log
	AppendEvent(ctx context.Context, event types.Event) error
	// Events returns up to limit of the most recent events, oldest first.
	// Event data is returned as raw JSON.
	Events(ctx context.Context, limit int) ([]types.Event, error)

	Close() error
}
