package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/validation"
)

// DefaultCapacity is the number of builds allowed to run at once
const DefaultCapacity = 3

// Scheduler admits queued opportunities into the active partition while
// fewer than capacity builds are running
type Scheduler struct {
	registry *BuildRegistry
	clock    clock.Clock
	logger   logger.Logger
	phases   []PhaseTemplate
	newID    func() string

	mu       sync.RWMutex
	capacity int

	admitting atomic.Bool
}

// NewScheduler creates a scheduler over registry
func NewScheduler(registry *BuildRegistry, capacity int, c clock.Clock, log logger.Logger) *Scheduler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if c == nil {
		c = clock.Real()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		registry: registry,
		clock:    c,
		logger:   log.WithComponent("scheduler"),
		phases:   DefaultPhases(),
		newID:    func() string { return uuid.New().String() },
		capacity: capacity,
	}
}

// Enqueue appends op to the queue unless a queued or active build already
// references op.ID. It reports whether op was added.
func (s *Scheduler) Enqueue(op types.Opportunity) bool {
	added := s.registry.enqueue(op)
	if added {
		s.logger.Debug("Queued opportunity",
			logger.WithField("opportunity", op.ID),
			logger.WithField("score", op.ProfitScore))
	}
	return added
}

// Tick admits the queue head when there is room. It returns nil, nil when
// nothing was admitted, including when another Tick is already admitting.
func (s *Scheduler) Tick(ctx context.Context) (*types.BuildRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.admitting.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer s.admitting.Store(false)

	rec, err := s.registry.admit(s.Capacity(), s.create)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.logger.Info("Admitted build",
			logger.WithField("build", rec.ID),
			logger.WithField("name", rec.Name))
	}
	return rec, nil
}

// SetCapacity changes the concurrency cap. Builds already running are not
// affected; a lower cap only delays further admissions.
func (s *Scheduler) SetCapacity(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	old := s.capacity
	s.capacity = n
	s.mu.Unlock()
	if old != n {
		s.logger.Info("Capacity changed", logger.WithField("from", old), logger.WithField("to", n))
	}
}

// Capacity returns the current concurrency cap
func (s *Scheduler) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

func (s *Scheduler) create(op types.Opportunity) (*types.BuildRecord, error) {
	if err := validation.Opportunity(op).Err(); err != nil {
		return nil, err
	}
	return NewBuildRecord(op, s.newID(), s.clock.Now(), s.phases), nil
}
