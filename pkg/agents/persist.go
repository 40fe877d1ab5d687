package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

// persistTimeout bounds a single write-through
const persistTimeout = 5 * time.Second

// Persister receives every agent, conversation and team change
type Persister interface {
	SaveAgent(ctx context.Context, a *types.AgentDefinition) error
	DeleteAgent(ctx context.Context, id string) error
	SaveConversation(ctx context.Context, c *types.Conversation) error
	SaveTeam(ctx context.Context, t *types.AgentTeam) error
}

// Loader reads back what a Persister stored
type Loader interface {
	LoadAgents(ctx context.Context) ([]*types.AgentDefinition, error)
	LoadConversations(ctx context.Context) ([]*types.Conversation, error)
	LoadTeams(ctx context.Context) ([]*types.AgentTeam, error)
}

// WithStore writes every change through to p. Write failures are logged;
// the in-memory registry stays authoritative.
func WithStore(p Persister) Option {
	return func(r *Registry) { r.store = p }
}

// Restore replaces the registry contents with what l holds. Blueprint
// bindings are not stored; run Bootstrap afterwards to bind them again.
func (r *Registry) Restore(ctx context.Context, l Loader) error {
	agents, err := l.LoadAgents(ctx)
	if err != nil {
		return fmt.Errorf("loading agents: %w", err)
	}
	convs, err := l.LoadConversations(ctx)
	if err != nil {
		return fmt.Errorf("loading conversations: %w", err)
	}
	teams, err := l.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.agents = make(map[string]*types.AgentDefinition, len(agents))
	r.order = r.order[:0]
	for _, a := range agents {
		if _, dup := r.agents[a.ID]; dup {
			continue
		}
		r.agents[a.ID] = a
		r.order = append(r.order, a.ID)
	}

	r.conversations = make(map[string]*types.Conversation, len(convs))
	r.convOrder = r.convOrder[:0]
	for _, c := range convs {
		if _, dup := r.conversations[c.ID]; dup {
			continue
		}
		r.conversations[c.ID] = c
		r.convOrder = append(r.convOrder, c.ID)
	}

	r.teams = make(map[string]*types.AgentTeam, len(teams))
	r.teamOrder = r.teamOrder[:0]
	for _, t := range teams {
		if _, dup := r.teams[t.ID]; dup {
			continue
		}
		r.teams[t.ID] = t
		r.teamOrder = append(r.teamOrder, t.ID)
	}

	r.blueprints = make(map[string]blueprintAgent)
	r.blueprintOrder = nil

	r.log.Info("agents restored",
		logger.WithField("agents", len(r.agents)),
		logger.WithField("conversations", len(r.conversations)),
		logger.WithField("teams", len(r.teams)))
	return nil
}

// findAgentLocked returns the id of the first agent with the given role and name.
// Callers hold r.mu.
func (r *Registry) findAgentLocked(role, name string) (string, bool) {
	for _, id := range r.order {
		a := r.agents[id]
		if a.Role == role && a.Name == name {
			return id, true
		}
	}
	return "", false
}

func (r *Registry) saveAgentLocked(a *types.AgentDefinition) {
	c := copyAgent(a)
	r.persist("agent", c.ID, func(ctx context.Context) error { return r.store.SaveAgent(ctx, &c) })
}

func (r *Registry) saveConversationLocked(c *types.Conversation) {
	cp := copyConversation(c)
	r.persist("conversation", cp.ID, func(ctx context.Context) error { return r.store.SaveConversation(ctx, &cp) })
}

func (r *Registry) saveTeamLocked(t *types.AgentTeam) {
	cp := copyTeam(t)
	r.persist("team", cp.ID, func(ctx context.Context) error { return r.store.SaveTeam(ctx, &cp) })
}

func (r *Registry) persist(kind, id string, save func(context.Context) error) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := save(ctx); err != nil {
		r.log.Warn("failed to persist "+kind, logger.WithField("id", id), logger.WithError(err))
	}
}
