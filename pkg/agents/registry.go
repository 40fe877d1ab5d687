// Package agents keeps the registry of agent definitions, their
// conversations, teams and guidance blueprints.
package agents

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/validation"
)

// Defaults applied on registration
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	StatusActive       = "active"
)

// Registry stores agents, conversations, teams and blueprints. All state is
// guarded by a single RWMutex.
type Registry struct {
	mu sync.RWMutex

	agents map[string]*types.AgentDefinition
	order  []string

	conversations map[string]*types.Conversation
	convOrder     []string

	teams     map[string]*types.AgentTeam
	teamOrder []string

	blueprints     map[string]blueprintAgent
	blueprintOrder []string

	responder provider.Responder
	clock     clock.Clock
	log       logger.Logger
	store     Persister
}

// Option configures a Registry
type Option func(*Registry)

// WithClock sets the clock used for timestamps
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithLogger sets the registry logger
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l.WithComponent("agents") }
}

// New creates an empty registry answering chats through responder
func New(responder provider.Responder, opts ...Option) *Registry {
	r := &Registry{
		agents:        make(map[string]*types.AgentDefinition),
		conversations: make(map[string]*types.Conversation),
		teams:         make(map[string]*types.AgentTeam),
		blueprints:    make(map[string]blueprintAgent),
		responder:     responder,
		clock:         clock.Real(),
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.responder == nil {
		r.responder = provider.NewSimulated()
	}
	return r
}

// Register validates def, assigns an id and defaults, and stores it
func (r *Registry) Register(def types.AgentDefinition) (types.AgentDefinition, error) {
	if def.Temperature == 0 {
		def.Temperature = DefaultTemperature
	}
	if def.MaxTokens == 0 {
		def.MaxTokens = DefaultMaxTokens
	}
	if def.Status == "" {
		def.Status = StatusActive
	}

	result := validation.Agent(def)
	if err := result.Err(); err != nil {
		return types.AgentDefinition{}, err
	}
	for _, w := range result.Warnings() {
		r.log.Debug("agent registered with warning", logger.WithField("issue", w.String()))
	}

	def.ID = uuid.New().String()
	def.CreatedAt = r.clock.Now()
	def.ConversationCount = 0
	def.LastUsed = nil
	def.Capabilities = append([]string(nil), def.Capabilities...)

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := def
	r.agents[def.ID] = &stored
	r.order = append(r.order, def.ID)
	r.saveAgentLocked(&stored)

	r.log.Info("agent registered",
		logger.WithField("id", def.ID),
		logger.WithField("name", def.Name),
		logger.WithField("role", def.Role))
	return copyAgent(&stored), nil
}

// Get returns a copy of the agent or a NotFoundError
func (r *Registry) Get(id string) (types.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return types.AgentDefinition{}, types.NewNotFound("agent", id)
	}
	return copyAgent(a), nil
}

// List returns every agent in registration order
func (r *Registry) List() []types.AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AgentDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyAgent(r.agents[id]))
	}
	return out
}

// Count returns the number of registered agents
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Remove deletes the agent and reports whether it existed
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return false
	}
	delete(r.agents, id)
	r.order = removeID(r.order, id)
	r.persist("agent", id, func(ctx context.Context) error { return r.store.DeleteAgent(ctx, id) })
	r.log.Info("agent removed", logger.WithField("id", id))
	return true
}

// Patch lists the mutable fields of an agent; nil fields are left alone
type Patch struct {
	Name         *string
	Description  *string
	Model        *string
	SystemPrompt *string
	Temperature  *float64
	MaxTokens    *int
	Status       *string
	Capabilities []string
}

// Update applies patch to the agent. Identity, provider, role and counters
// cannot change. The patched definition is validated before it is stored.
func (r *Registry) Update(id string, patch Patch) (types.AgentDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.agents[id]
	if !ok {
		return types.AgentDefinition{}, types.NewNotFound("agent", id)
	}

	next := copyAgent(current)
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Model != nil {
		next.Model = *patch.Model
	}
	if patch.SystemPrompt != nil {
		next.SystemPrompt = *patch.SystemPrompt
	}
	if patch.Temperature != nil {
		next.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		next.MaxTokens = *patch.MaxTokens
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Capabilities != nil {
		next.Capabilities = append([]string(nil), patch.Capabilities...)
	}

	if err := validation.Agent(next).Err(); err != nil {
		return types.AgentDefinition{}, err
	}

	r.agents[id] = &next
	r.saveAgentLocked(&next)
	return copyAgent(&next), nil
}

func copyAgent(a *types.AgentDefinition) types.AgentDefinition {
	c := *a
	c.Capabilities = append([]string(nil), a.Capabilities...)
	if a.LastUsed != nil {
		t := *a.LastUsed
		c.LastUsed = &t
	}
	return c
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
