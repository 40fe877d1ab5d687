// Package integrations keeps the catalog of external services and the
// per-user connections to them. Credentials are masked before a
// connection is stored or returned.
package integrations

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// DefaultUserID owns connections made without a user
const DefaultUserID = "default-user"

// Connection test outcomes
const (
	TestSuccess = "success"
	TestFailed  = "failed"
)

// persistTimeout bounds each connection write
const persistTimeout = 5 * time.Second

// secretMarkers flag config keys whose values are masked
var secretMarkers = []string{"apikey", "token", "secret", "password"}

// Service owns the integration catalog and connections
type Service struct {
	mu          sync.RWMutex
	catalog     []types.Integration
	connections map[string]*types.IntegrationConnection
	order       []string
	rand        *rand.Rand

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
	return func(s *Service) { s.log = l.WithComponent("integrations") }
}

// WithPublisher sets where connection events go
func WithPublisher(p notifier.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStore sets the store connections are written through to
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithSeed makes simulated test latencies reproducible
func WithSeed(seed int64) Option {
	return func(s *Service) { s.rand = rand.New(rand.NewSource(seed)) }
}

// New creates a service over DefaultCatalog
func New(opts ...Option) *Service {
	s := &Service{
		catalog:     DefaultCatalog(),
		connections: make(map[string]*types.IntegrationConnection),
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		publisher:   notifier.Nop,
		store:       store.NewMemory(),
		clock:       clock.Real(),
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns every available integration
func (s *Service) Catalog() []types.Integration {
	out := make([]types.Integration, len(s.catalog))
	for i, in := range s.catalog {
		in.Features = append([]string(nil), in.Features...)
		out[i] = in
	}
	return out
}

// Integration returns one catalog entry or a NotFoundError
func (s *Service) Integration(id string) (types.Integration, error) {
	for _, in := range s.catalog {
		if in.ID == id {
			in.Features = append([]string(nil), in.Features...)
			return in, nil
		}
	}
	return types.Integration{}, types.NewNotFound("integration", id)
}

// Connect records a new connection from userID to the integration. An
// empty userID means DefaultUserID. Secret config values are masked.
func (s *Service) Connect(ctx context.Context, userID, integrationID string, config map[string]string) (*types.IntegrationConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := s.Integration(integrationID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = DefaultUserID
	}

	conn := &types.IntegrationConnection{
		ID:              uuid.New().String(),
		UserID:          userID,
		IntegrationID:   in.ID,
		IntegrationName: in.Name,
		Status:          types.ConnectionConnected,
		ConnectedAt:     s.clock.Now(),
		Config:          Sanitize(config),
	}

	s.mu.Lock()
	s.connections[conn.ID] = conn
	s.order = append(s.order, conn.ID)
	s.persistLocked(conn)
	out := conn.Clone()
	s.mu.Unlock()

	s.log.Info("Integration connected",
		logger.WithField("integration", in.ID),
		logger.WithField("connection", out.ID),
		logger.WithField("user", userID))
	s.publisher.Publish(notifier.NewEvent(types.EventIntegrationConnected, out.Clone(), out.ConnectedAt))
	return out, nil
}

// Connections returns the user's connections in the order they were made,
// disconnected ones included. An empty userID means DefaultUserID.
func (s *Service) Connections(userID string) []*types.IntegrationConnection {
	if userID == "" {
		userID = DefaultUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.IntegrationConnection
	for _, id := range s.order {
		if c := s.connections[id]; c.UserID == userID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Connection returns a copy of the connection or a NotFoundError
func (s *Service) Connection(id string) (*types.IntegrationConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	if !ok {
		return nil, types.NewNotFound("connection", id)
	}
	return c.Clone(), nil
}

// Disconnect marks the connection disconnected. Disconnecting twice keeps
// the first DisconnectedAt.
func (s *Service) Disconnect(ctx context.Context, id string) (*types.IntegrationConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	c, ok := s.connections[id]
	if !ok {
		s.mu.Unlock()
		return nil, types.NewNotFound("connection", id)
	}
	if c.Status == types.ConnectionDisconnected {
		out := c.Clone()
		s.mu.Unlock()
		return out, nil
	}
	now := s.clock.Now()
	c.Status = types.ConnectionDisconnected
	c.DisconnectedAt = &now
	s.persistLocked(c)
	out := c.Clone()
	s.mu.Unlock()

	s.log.Info("Integration disconnected",
		logger.WithField("integration", out.IntegrationID),
		logger.WithField("connection", id))
	s.publisher.Publish(notifier.NewEvent(types.EventIntegrationDisconnected, out.Clone(), now))
	return out, nil
}

// Test checks the connection. Live connections report a simulated latency
// of 50-149ms; disconnected ones fail.
func (s *Service) Test(ctx context.Context, id string) (types.ConnectionTest, error) {
	if err := ctx.Err(); err != nil {
		return types.ConnectionTest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return types.ConnectionTest{}, types.NewNotFound("connection", id)
	}

	result := types.ConnectionTest{ConnectionID: id, TestedAt: s.clock.Now()}
	if c.Status != types.ConnectionConnected {
		result.Status = TestFailed
		result.Message = "Connection is disconnected"
		return result, nil
	}
	result.Status = TestSuccess
	result.Message = "Connection is healthy"
	result.LatencyMs = 50 + s.rand.Intn(100)
	return result, nil
}

// Execute runs action through a live connection and records the usage
func (s *Service) Execute(ctx context.Context, id, action string) (types.ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ActionResult{}, err
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return types.ActionResult{}, types.NewValidation("action", "action is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return types.ActionResult{}, types.NewNotFound("connection", id)
	}
	if c.Status != types.ConnectionConnected {
		return types.ActionResult{}, types.NewValidation("connectionId",
			fmt.Sprintf("connection %s is %s", id, c.Status))
	}

	now := s.clock.Now()
	c.UsageCount++
	c.LastUsed = &now
	s.persistLocked(c)

	return types.ActionResult{
		Success:   true,
		Action:    action,
		Result:    fmt.Sprintf("Executed %s via %s", action, c.IntegrationName),
		Timestamp: now,
	}, nil
}

// Stats counts catalog entries and connections. ByIntegration counts live
// connections only and lists every catalog entry.
func (s *Service) Stats() types.IntegrationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.IntegrationStats{
		TotalIntegrations: len(s.catalog),
		TotalConnections:  len(s.connections),
		ByIntegration:     make(map[string]types.IntegrationUsage, len(s.catalog)),
	}
	for _, in := range s.catalog {
		stats.ByIntegration[in.ID] = types.IntegrationUsage{Name: in.Name}
	}
	for _, c := range s.connections {
		if c.Status != types.ConnectionConnected {
			continue
		}
		stats.ActiveConnections++
		usage := stats.ByIntegration[c.IntegrationID]
		usage.Connections++
		stats.ByIntegration[c.IntegrationID] = usage
	}
	return stats
}

// Restore replaces the in-memory connections with the stored ones
func (s *Service) Restore(ctx context.Context) error {
	stored, err := s.store.LoadConnections(ctx)
	if err != nil {
		return fmt.Errorf("loading connections: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = make(map[string]*types.IntegrationConnection, len(stored))
	s.order = s.order[:0]
	for _, c := range stored {
		if _, dup := s.connections[c.ID]; dup {
			continue
		}
		s.connections[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return nil
}

func (s *Service) persistLocked(c *types.IntegrationConnection) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveConnection(ctx, c); err != nil {
		s.log.Warn("Failed to persist connection",
			logger.WithField("connection", c.ID), logger.WithError(err))
	}
}

// Sanitize copies config, masking the values of credential keys to "***"
// plus their last four characters. Values of four characters or fewer are
// masked entirely.
func Sanitize(config map[string]string) map[string]string {
	if len(config) == 0 {
		return nil
	}
	out := make(map[string]string, len(config))
	for k, v := range config {
		if v != "" && isSecretKey(k) {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	for _, marker := range secretMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

func mask(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return "***" + v[len(v)-4:]
}
