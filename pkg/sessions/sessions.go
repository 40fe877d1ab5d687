// Package sessions drives guided build sessions through a chain of
// specialist agents. Each guidance call hands the session to the next
// role in the chain until it reaches "complete".
package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Session statuses
const (
	StatusActive   = "active"
	StatusComplete = "complete"
)

// Role names used by the hand-off chain
const (
	FirstAgent    = "architect"
	CompleteAgent = "complete"
	FallbackAgent = "mentor"
)

// AssignedRoles are the blueprint roles attached to every new session
var AssignedRoles = []string{"architect", "backend", "frontend", "orchestration", "security", "devops", "tester"}

var successors = map[string]string{
	"architect": "backend",
	"backend":   "database",
	"database":  "security",
	"security":  "frontend",
	"frontend":  "tester",
	"tester":    "devops",
	"devops":    CompleteAgent,
}

// NextAgent returns the role that follows role in the hand-off chain
func NextAgent(role string) string {
	if next, ok := successors[role]; ok {
		return next
	}
	return FallbackAgent
}

// persistTimeout bounds each session write
const persistTimeout = 5 * time.Second

// Service owns the guided sessions
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	order    []string

	agents    *agents.Registry
	responder provider.Responder
	publisher notifier.Publisher
	store     store.Store
	clock     clock.Clock
	log       logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock used for timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l.WithComponent("sessions") }
}

// WithPublisher sets where session events go
func WithPublisher(p notifier.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStore sets the store sessions are written through to
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// New creates a session service that asks reg's blueprint agents for
// guidance through responder
func New(reg *agents.Registry, responder provider.Responder, opts ...Option) *Service {
	s := &Service{
		sessions:  make(map[string]*types.Session),
		agents:    reg,
		responder: responder,
		publisher: notifier.Nop,
		store:     store.NewMemory(),
		clock:     clock.Real(),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.responder == nil {
		s.responder = provider.NewSimulated()
	}
	return s
}

// Start creates a session for goal and assigns the available specialist agents
func (s *Service) Start(ctx context.Context, userID, goal string) (*types.Session, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, types.NewValidation("goal", "project goal is required")
	}

	now := s.clock.Now()
	if userID == "" {
		userID = fmt.Sprintf("user-%d", now.UnixMilli())
	}

	session := &types.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Goal:         goal,
		Status:       StatusActive,
		StartedAt:    now,
		CurrentAgent: FirstAgent,
	}
	for _, role := range AssignedRoles {
		bp, agent, err := s.agents.Blueprint(role)
		if err != nil {
			continue
		}
		session.AssignedAgents = append(session.AssignedAgents, types.SessionAgent{
			Role:    role,
			Title:   bp.Title,
			AgentID: agent.ID,
			Status:  "ready",
		})
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.persistLocked(session)
	out := session.Clone()
	s.mu.Unlock()

	s.log.Info("Session started",
		logger.WithField("session", session.ID),
		logger.WithField("agents", len(session.AssignedAgents)))
	s.publisher.Publish(notifier.NewEvent(types.EventSessionStarted, out.Clone(), now))
	return out, nil
}

// Get returns a copy of the session or a NotFoundError
func (s *Service) Get(id string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, types.NewNotFound("session", id)
	}
	return session.Clone(), nil
}

// List returns every session in start order
func (s *Service) List() []*types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out
}

// Count returns the number of sessions
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Guidance asks the agent bound to role for guidance on message, records
// the step, runs verification when the guidance asks for it and hands the
// session to the next role
func (s *Service) Guidance(ctx context.Context, sessionID, role, message string) (types.Guidance, error) {
	if _, err := s.Get(sessionID); err != nil {
		return types.Guidance{}, err
	}
	bp, agent, err := s.agents.Blueprint(role)
	if err != nil {
		return types.Guidance{}, err
	}

	history := []types.Message{{Role: "user", Content: message, Timestamp: s.clock.Now()}}
	reply, err := s.responder.Respond(ctx, agent, history)
	if err != nil {
		s.log.Warn("Guidance responder failed",
			logger.WithField("session", sessionID),
			logger.WithField("role", role),
			logger.WithError(err))
		return types.Guidance{}, &types.ProviderError{Provider: agent.Provider, Err: err}
	}

	guidance := buildGuidance(bp.Title, reply, NextAgent(role))
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return types.Guidance{}, types.NewNotFound("session", sessionID)
	}

	session.Steps = append(session.Steps, types.Step{
		Agent:     role,
		Message:   message,
		Guidance:  guidance,
		Timestamp: now,
	})
	if guidance.RequiresVerification {
		session.Verifications = append(session.Verifications, verify(now))
	}
	session.CurrentAgent = guidance.NextAgent
	if guidance.NextAgent == CompleteAgent {
		session.Status = StatusComplete
	}
	s.persistLocked(session)

	s.log.Debug("Guidance recorded",
		logger.WithField("session", sessionID),
		logger.WithField("role", role),
		logger.WithField("next", guidance.NextAgent))
	return guidance, nil
}

// Connect enables direct implementation for the session. It is one-way:
// later calls return the connected session unchanged and publish nothing.
func (s *Service) Connect(ctx context.Context, sessionID, workspace string) (*types.Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, types.NewNotFound("session", sessionID)
	}
	if session.Connected {
		out := session.Clone()
		s.mu.Unlock()
		return out, nil
	}

	now := s.clock.Now()
	session.Connected = true
	session.AutonomousMode = true
	session.Connection = &types.WorkspaceConnection{Workspace: workspace, ConnectedAt: now}
	s.persistLocked(session)
	out := session.Clone()
	s.mu.Unlock()

	s.log.Info("Workspace connected",
		logger.WithField("session", sessionID),
		logger.WithField("workspace", workspace))
	s.publisher.Publish(notifier.NewEvent(types.EventWorkspaceConnected, map[string]string{
		"sessionId": sessionID,
		"status":    "connected",
		"workspace": workspace,
	}, now))
	return out, nil
}

// Restore replaces the in-memory sessions with the stored ones
func (s *Service) Restore(ctx context.Context) error {
	stored, err := s.store.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*types.Session, len(stored))
	s.order = s.order[:0]
	for _, session := range stored {
		s.sessions[session.ID] = session
		s.order = append(s.order, session.ID)
	}
	return nil
}

func (s *Service) persistLocked(session *types.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Warn("Failed to persist session",
			logger.WithField("session", session.ID), logger.WithError(err))
	}
}
