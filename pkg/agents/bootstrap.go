package agents

import (
	"fmt"
	"strings"

	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/types"
)

// PrimaryTeamID is the team seeded by Bootstrap
const PrimaryTeamID = "primary-build-team"

const bootstrapModel = "grok-beta"

// TeamRoles are the build roles of the primary team, in seeding order
var TeamRoles = []struct {
	Role        string
	Description string
}{
	{"architect", "System Architect - Designs overall application structure"},
	{"developer", "Developer Agent - Writes code and implements features"},
	{"designer", "UI/UX Designer - Creates beautiful interfaces"},
	{"tester", "Quality Assurance - Tests and validates"},
	{"deployer", "Deployment Specialist - Handles deployment and infrastructure"},
	{"analyst", "Business Analyst - Identifies profitable opportunities"},
	{"marketer", "Marketing Strategist - Plans monetization and marketing"},
	{"manager", "Project Manager - Coordinates the team"},
}

// DefaultBlueprints returns the specialist roles available to guided sessions
func DefaultBlueprints() []Blueprint {
	return []Blueprint{
		{
			Role:         "architect",
			Title:        "System Architect",
			Expertise:    "System design, architecture patterns, scalability",
			Capabilities: []string{"Design systems", "Choose tech stack", "Plan infrastructure", "Define APIs"},
			SystemPrompt: "You are a Master System Architect. You design production-ready, scalable systems, ask critical questions and verify understanding before proceeding.",
		},
		{
			Role:         "backend",
			Title:        "Backend Engineer",
			Expertise:    "APIs, databases, server architecture, authentication",
			Capabilities: []string{"Build REST APIs", "Design databases", "Implement auth", "Handle business logic"},
			SystemPrompt: "You are an Expert Backend Engineer. You build robust backends with sound API design, schema design, auth, error handling and tests.",
		},
		{
			Role:         "orchestration",
			Title:        "Orchestration Specialist",
			Expertise:    "Agent coordination, workflow automation, system integration",
			Capabilities: []string{"Coordinate agents", "Design workflows", "Manage communication", "Handle concurrency"},
			SystemPrompt: "You are an Orchestration Specialist. You coordinate multi-agent systems and make sure agents work together seamlessly.",
		},
		{
			Role:         "frontend",
			Title:        "Frontend Developer",
			Expertise:    "UI/UX, React, modern frontend frameworks",
			Capabilities: []string{"Build UIs", "Implement responsive design", "State management", "Optimize performance"},
			SystemPrompt: "You are an Expert Frontend Developer. You build accessible, responsive interfaces users love.",
		},
		{
			Role:         "database",
			Title:        "Database Architect",
			Expertise:    "SQL, NoSQL, data modeling, optimization",
			Capabilities: []string{"Design schemas", "Optimize queries", "Plan migrations", "Ensure data integrity"},
			SystemPrompt: "You are a Database Architecture Expert. You choose storage, design schemas and indexes, and plan migrations and backups.",
		},
		{
			Role:         "security",
			Title:        "Security Engineer",
			Expertise:    "Authentication, encryption, security best practices",
			Capabilities: []string{"Implement auth", "Secure APIs", "Encrypt data", "Audit security"},
			SystemPrompt: "You are a Security Engineering Expert. You make applications secure by default.",
		},
		{
			Role:         "devops",
			Title:        "DevOps Engineer",
			Expertise:    "CI/CD, Docker, Kubernetes, cloud platforms",
			Capabilities: []string{"Setup CI/CD", "Configure containers", "Deploy to cloud", "Monitor systems"},
			SystemPrompt: "You are a DevOps Engineering Expert. You automate pipelines, containers, deployment and monitoring.",
		},
		{
			Role:         "tester",
			Title:        "QA Engineer",
			Expertise:    "Testing strategies, test automation, quality assurance",
			Capabilities: []string{"Write tests", "Setup automation", "Find bugs", "Ensure quality"},
			SystemPrompt: "You are a Quality Assurance Expert. You make sure code works as intended.",
		},
		{
			Role:         "mentor",
			Title:        "Technical Mentor",
			Expertise:    "Teaching, best practices, code review",
			Capabilities: []string{"Teach concepts", "Review code", "Provide guidance", "Answer questions"},
			SystemPrompt: "You are a Senior Technical Mentor. You are patient, thorough, and focus on understanding.",
		},
	}
}

// Bootstrap seeds the master orchestrator and the primary build team when
// the team is missing, then binds every default blueprint that is not bound
// yet. A blueprint reuses an existing agent with its role and name, so
// running Bootstrap over a restored registry registers nothing new.
func Bootstrap(r *Registry) error {
	if _, ok := r.Team(PrimaryTeamID); !ok {
		if err := seedPrimaryTeam(r); err != nil {
			return err
		}
	}

	for _, bp := range DefaultBlueprints() {
		if _, _, err := r.Blueprint(bp.Role); err == nil {
			continue
		}
		name := bp.Title + " Agent"

		r.mu.RLock()
		agentID, found := r.findAgentLocked(bp.Role, name)
		r.mu.RUnlock()

		if !found {
			a, err := r.Register(types.AgentDefinition{
				Name:         name,
				Role:         bp.Role,
				Description:  bp.Expertise,
				Provider:     provider.XAI,
				Model:        bootstrapModel,
				SystemPrompt: bp.SystemPrompt,
				Capabilities: bp.Capabilities,
				MaxTokens:    2000,
			})
			if err != nil {
				return fmt.Errorf("registering blueprint %s: %w", bp.Role, err)
			}
			agentID = a.ID
		}
		if err := r.AddBlueprint(bp, agentID); err != nil {
			return fmt.Errorf("binding blueprint %s: %w", bp.Role, err)
		}
	}
	return nil
}

func seedPrimaryTeam(r *Registry) error {
	if _, err := r.Register(types.AgentDefinition{
		Name:         "Master Orchestrator",
		Role:         "orchestrator",
		Description:  "Coordinates all agent teams and oversees self-improvement",
		Provider:     provider.XAI,
		Model:        bootstrapModel,
		SystemPrompt: "You are the Master Orchestrator. You manage specialized agent teams, identify profitable app opportunities and coordinate autonomous development.",
		Temperature:  0.8,
		MaxTokens:    2000,
	}); err != nil {
		return fmt.Errorf("registering orchestrator: %w", err)
	}

	memberIDs := make([]string, 0, len(TeamRoles))
	for _, tr := range TeamRoles {
		a, err := r.Register(types.AgentDefinition{
			Name:         strings.ToUpper(tr.Role[:1]) + tr.Role[1:] + " Agent",
			Role:         tr.Role,
			Description:  tr.Description,
			Provider:     provider.XAI,
			Model:        bootstrapModel,
			SystemPrompt: "You are a specialized " + tr.Description + ". Work autonomously to complete your tasks with excellence. Collaborate with other agents in the team.",
			MaxTokens:    2000,
		})
		if err != nil {
			return fmt.Errorf("registering %s: %w", tr.Role, err)
		}
		memberIDs = append(memberIDs, a.ID)
	}

	if _, err := r.CreateTeam(PrimaryTeamID, "Build and ship profitable applications autonomously", memberIDs); err != nil {
		return fmt.Errorf("creating primary team: %w", err)
	}
	return nil
}
