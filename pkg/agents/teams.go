package agents

import (
	"fmt"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Blueprint describes a specialist role used by guided sessions
type Blueprint struct {
	Role         string
	Title        string
	Expertise    string
	Capabilities []string
	SystemPrompt string
}

type blueprintAgent struct {
	blueprint Blueprint
	agentID   string
}

// CreateTeam groups existing agents under id
func (r *Registry) CreateTeam(id, purpose string, agentIDs []string) (types.AgentTeam, error) {
	if id == "" {
		return types.AgentTeam{}, types.NewValidation("id", "team id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[id]; exists {
		return types.AgentTeam{}, types.NewValidation("id", fmt.Sprintf("team %s already exists", id))
	}
	for _, agentID := range agentIDs {
		if _, ok := r.agents[agentID]; !ok {
			return types.AgentTeam{}, types.NewNotFound("agent", agentID)
		}
	}

	team := &types.AgentTeam{
		ID:        id,
		Purpose:   purpose,
		AgentIDs:  append([]string(nil), agentIDs...),
		Status:    StatusActive,
		CreatedAt: r.clock.Now(),
	}
	r.teams[id] = team
	r.teamOrder = append(r.teamOrder, id)
	r.saveTeamLocked(team)

	r.log.Info("team created", logger.WithField("team", id), logger.WithField("agents", len(agentIDs)))
	return copyTeam(team), nil
}

// Team returns a copy of the team
func (r *Registry) Team(id string) (types.AgentTeam, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return types.AgentTeam{}, false
	}
	return copyTeam(t), true
}

// Teams returns every team in creation order
func (r *Registry) Teams() []types.AgentTeam {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AgentTeam, 0, len(r.teamOrder))
	for _, id := range r.teamOrder {
		out = append(out, copyTeam(r.teams[id]))
	}
	return out
}

// TeamCounts returns the number of teams and the sum of their member counts
func (r *Registry) TeamCounts() (teams, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.teams {
		members += len(t.AgentIDs)
	}
	return len(r.teams), members
}

// RecordTeamResult bumps a team's counters when one of its builds completes
func (r *Registry) RecordTeamResult(id string, appGenerated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return
	}
	t.TasksCompleted++
	if appGenerated {
		t.AppsGenerated++
	}
	r.saveTeamLocked(t)
}

// AddBlueprint binds a blueprint role to a registered agent
func (r *Registry) AddBlueprint(bp Blueprint, agentID string) error {
	if bp.Role == "" {
		return types.NewValidation("role", "blueprint role is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		return types.NewNotFound("agent", agentID)
	}
	if _, exists := r.blueprints[bp.Role]; !exists {
		r.blueprintOrder = append(r.blueprintOrder, bp.Role)
	}
	bp.Capabilities = append([]string(nil), bp.Capabilities...)
	r.blueprints[bp.Role] = blueprintAgent{blueprint: bp, agentID: agentID}
	return nil
}

// Blueprint returns the blueprint for role and the agent bound to it
func (r *Registry) Blueprint(role string) (Blueprint, types.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ba, ok := r.blueprints[role]
	if !ok {
		return Blueprint{}, types.AgentDefinition{}, types.NewNotFound("agent role", role)
	}
	a, ok := r.agents[ba.agentID]
	if !ok {
		return Blueprint{}, types.AgentDefinition{}, types.NewNotFound("agent", ba.agentID)
	}
	return ba.blueprint, copyAgent(a), nil
}

// Blueprints returns the bound blueprints in registration order
func (r *Registry) Blueprints() []Blueprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Blueprint, 0, len(r.blueprintOrder))
	for _, role := range r.blueprintOrder {
		out = append(out, r.blueprints[role].blueprint)
	}
	return out
}

func copyTeam(t *types.AgentTeam) types.AgentTeam {
	c := *t
	c.AgentIDs = append([]string(nil), t.AgentIDs...)
	return c
}
