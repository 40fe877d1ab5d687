package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/foreman-dev/foreman/pkg/types"
)

// Memory is a Store that keeps everything in process memory
type Memory struct {
	mu       sync.RWMutex
	builds   map[string]*types.BuildRecord
	queue    []types.Opportunity
	sessions map[string]*types.Session
	events   []types.Event
	docs     map[string]*documents
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		builds:   make(map[string]*types.BuildRecord),
		sessions: make(map[string]*types.Session),
		docs: map[string]*documents{
			KindAgent:        newDocuments(),
			KindConversation: newDocuments(),
			KindTeam:         newDocuments(),
			KindConnection:   newDocuments(),
		},
	}
}

// SaveBuild implements Store
func (m *Memory) SaveBuild(ctx context.Context, rec *types.BuildRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds[rec.ID] = rec.Clone()
	return nil
}

// LoadBuilds implements Store
func (m *Memory) LoadBuilds(ctx context.Context) ([]*types.BuildRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.BuildRecord, 0, len(m.builds))
	for _, rec := range m.builds {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// SaveQueue implements Store
func (m *Memory) SaveQueue(ctx context.Context, ops []types.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]types.Opportunity(nil), ops...)
	return nil
}

// LoadQueue implements Store
func (m *Memory) LoadQueue(ctx context.Context) ([]types.Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Opportunity(nil), m.queue...), nil
}

// SaveSession implements Store
func (m *Memory) SaveSession(ctx context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

// LoadSessions implements Store
func (m *Memory) LoadSessions(ctx context.Context) ([]*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// SaveAgent implements Store
func (m *Memory) SaveAgent(ctx context.Context, a *types.AgentDefinition) error {
	return m.putDocument(KindAgent, a.ID, a)
}

// DeleteAgent implements Store
func (m *Memory) DeleteAgent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[KindAgent].remove(id)
	return nil
}

// LoadAgents implements Store
func (m *Memory) LoadAgents(ctx context.Context) ([]*types.AgentDefinition, error) {
	return DecodeAll[types.AgentDefinition](KindAgent, m.documents(KindAgent))
}

// SaveConversation implements Store
func (m *Memory) SaveConversation(ctx context.Context, c *types.Conversation) error {
	return m.putDocument(KindConversation, c.ID, c)
}

// LoadConversations implements Store
func (m *Memory) LoadConversations(ctx context.Context) ([]*types.Conversation, error) {
	return DecodeAll[types.Conversation](KindConversation, m.documents(KindConversation))
}

// SaveTeam implements Store
func (m *Memory) SaveTeam(ctx context.Context, t *types.AgentTeam) error {
	return m.putDocument(KindTeam, t.ID, t)
}

// LoadTeams implements Store
func (m *Memory) LoadTeams(ctx context.Context) ([]*types.AgentTeam, error) {
	return DecodeAll[types.AgentTeam](KindTeam, m.documents(KindTeam))
}

// SaveConnection implements Store
func (m *Memory) SaveConnection(ctx context.Context, c *types.IntegrationConnection) error {
	return m.putDocument(KindConnection, c.ID, c)
}

// LoadConnections implements Store
func (m *Memory) LoadConnections(ctx context.Context) ([]*types.IntegrationConnection, error) {
	return DecodeAll[types.IntegrationConnection](KindConnection, m.documents(KindConnection))
}

// putDocument stores v as JSON so later changes to v are not visible
func (m *Memory) putDocument(kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[kind].put(id, data)
	return nil
}

func (m *Memory) documents(kind string) [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[kind].all()
}

// AppendEvent implements Store. Data is stored as JSON so reads match the
// persistent backends.
func (m *Memory) AppendEvent(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	event.Data = json.RawMessage(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events implements Store
func (m *Memory) Events(ctx context.Context, limit int) ([]types.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if limit > 0 && len(m.events) > limit {
		start = len(m.events) - limit
	}
	return append([]types.Event(nil), m.events[start:]...), nil
}

// Close implements Store
func (m *Memory) Close() error { return nil }
