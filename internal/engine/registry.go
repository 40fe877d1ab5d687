package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// persistTimeout bounds each write-through to the store
const persistTimeout = 5 * time.Second

// BuildRegistry holds the active, completed and cancelled builds plus the
// pending queue. Every mutation happens under one mutex and is written
// through to the store. The in-memory partitions stay authoritative when a
// write fails; the failure is logged.
type BuildRegistry struct {
	mu sync.RWMutex

	active      map[string]*types.BuildRecord
	activeOrder []string

	completed      map[string]*types.BuildRecord
	completedOrder []string

	cancelled      map[string]*types.BuildRecord
	cancelledOrder []string

	queue []types.Opportunity

	store  store.Store
	logger logger.Logger
}

// NewBuildRegistry creates an empty registry writing through to s
func NewBuildRegistry(s store.Store, log logger.Logger) *BuildRegistry {
	if s == nil {
		s = store.NewMemory()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &BuildRegistry{
		active:    make(map[string]*types.BuildRecord),
		completed: make(map[string]*types.BuildRecord),
		cancelled: make(map[string]*types.BuildRecord),
		store:     s,
		logger:    log.WithComponent("registry"),
	}
}

// ListActive returns copies of the building records in admission order
func (r *BuildRegistry) ListActive() []*types.BuildRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.active, r.activeOrder)
}

// ListCompleted returns copies of the completed records in completion order
func (r *BuildRegistry) ListCompleted() []*types.BuildRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.completed, r.completedOrder)
}

// ListCancelled returns copies of the cancelled records
func (r *BuildRegistry) ListCancelled() []*types.BuildRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.cancelled, r.cancelledOrder)
}

// ListQueue returns the pending opportunities in FIFO order
func (r *BuildRegistry) ListQueue() []types.Opportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneQueue(r.queue)
}

// Get returns a copy of the build with id from any partition
func (r *BuildRegistry) Get(id string) (*types.BuildRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec := r.lookupLocked(id); rec != nil {
		return rec.Clone(), nil
	}
	return nil, types.NewNotFound("build", id)
}

// Counts returns the size of each partition
func (r *BuildRegistry) Counts() (active, completed, queued, cancelled int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active), len(r.completed), len(r.queue), len(r.cancelled)
}

// enqueue appends op unless a queued or active build already references it
func (r *BuildRegistry) enqueue(op types.Opportunity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pendingLocked(op.ID) {
		return false
	}
	r.queue = append(r.queue, op)
	r.saveQueueLocked()
	return true
}

// admit pops the queue head into the active partition when fewer than
// capacity builds are active. The head is only removed when create succeeds.
func (r *BuildRegistry) admit(capacity int, create func(types.Opportunity) (*types.BuildRecord, error)) (*types.BuildRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 || len(r.active) >= capacity {
		return nil, nil
	}

	head := r.queue[0]
	rec, err := create(head)
	if err != nil {
		return nil, fmt.Errorf("admitting %s: %w", head.ID, err)
	}

	r.queue = r.queue[1:]
	r.active[rec.ID] = rec
	r.activeOrder = append(r.activeOrder, rec.ID)

	r.saveBuildLocked(rec)
	r.saveQueueLocked()
	return rec.Clone(), nil
}

// advance applies one progress step to an active build. ok is false when
// the build is no longer active. A completed build moves to the completed
// partition in the same critical section.
func (r *BuildRegistry) advance(id string, increment int, now time.Time) (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[id]
	if !ok {
		return Transition{PhaseCompleted: -1}, false
	}

	t := Advance(rec, increment, now)
	if !t.Changed {
		return t, false
	}

	if t.Completed {
		delete(r.active, id)
		r.activeOrder = removeID(r.activeOrder, id)
		r.completed[id] = t.Record
		r.completedOrder = append(r.completedOrder, id)
	} else {
		r.active[id] = t.Record
	}
	r.saveBuildLocked(t.Record)

	t.Record = t.Record.Clone()
	return t, true
}

// approve moves a ready-for-approval build to deploying
func (r *BuildRegistry) approve(id, target string, now time.Time) (*types.BuildRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.lookupLocked(id)
	if rec == nil {
		return nil, types.NewNotFound("build", id)
	}
	if rec.State != types.BuildStateReadyForApproval {
		return nil, &types.InvalidStateError{ID: id, State: rec.State, Op: "approve"}
	}

	at := now
	rec.State = types.BuildStateDeploying
	rec.ApprovedAt = &at
	rec.DeploymentTarget = target
	r.saveBuildLocked(rec)
	return rec.Clone(), nil
}

// finishDeploy moves a deploying build to deployed. ok is false when the
// build is not deploying.
func (r *BuildRegistry) finishDeploy(id string, now time.Time) (*types.BuildRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.completed[id]
	if !ok || rec.State != types.BuildStateDeploying {
		return nil, false
	}

	at := now
	rec.State = types.BuildStateDeployed
	rec.DeployedAt = &at
	rec.DeploymentURL = DeploymentURL(rec.Name, rec.DeploymentTarget)
	r.saveBuildLocked(rec)
	return rec.Clone(), true
}

// configurePayment records payment setup on a completed build
func (r *BuildRegistry) configurePayment(id string, cfg types.PaymentConfig) (*types.BuildRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.completed[id]
	if !ok {
		if other := r.lookupLocked(id); other != nil {
			return nil, &types.InvalidStateError{ID: id, State: other.State, Op: "configure payment"}
		}
		return nil, types.NewNotFound("build", id)
	}

	pricing := make(map[string]any, len(cfg.Pricing))
	for k, v := range cfg.Pricing {
		pricing[k] = v
	}
	cfg.Pricing = pricing
	rec.Payment = &cfg
	r.saveBuildLocked(rec)
	return rec.Clone(), nil
}

// cancel stops an active build or drops a queued opportunity. Queued
// entries are addressed by opportunity id and recorded as cancelled
// records with a fresh build id, so an opportunity cancelled, queued again
// and cancelled again keeps both records.
func (r *BuildRegistry) cancel(id string, now time.Time) (*types.BuildRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := now
	if rec, ok := r.active[id]; ok {
		delete(r.active, id)
		r.activeOrder = removeID(r.activeOrder, id)
		rec.State = types.BuildStateCancelled
		rec.CancelledAt = &at
		r.addCancelledLocked(rec)
		return rec.Clone(), nil
	}

	for i, op := range r.queue {
		if op.ID != id {
			continue
		}
		r.queue = append(r.queue[:i:i], r.queue[i+1:]...)
		rec := &types.BuildRecord{
			ID:               uuid.New().String(),
			OpportunityID:    op.ID,
			Name:             op.Name,
			Category:         op.Category,
			State:            types.BuildStateCancelled,
			StartedAt:        now,
			CancelledAt:      &at,
			TechStack:        append([]string(nil), op.TechStack...),
			Features:         append([]string(nil), op.Features...),
			Monetization:     op.Monetization,
			EstimatedRevenue: op.EstimatedRevenue,
		}
		r.addCancelledLocked(rec)
		r.saveQueueLocked()
		return rec.Clone(), nil
	}

	if rec := r.lookupLocked(id); rec != nil {
		return nil, &types.InvalidStateError{ID: id, State: rec.State, Op: "cancel"}
	}
	for i := len(r.cancelledOrder) - 1; i >= 0; i-- {
		if rec := r.cancelled[r.cancelledOrder[i]]; rec.OpportunityID == id {
			return nil, &types.InvalidStateError{ID: id, State: rec.State, Op: "cancel"}
		}
	}
	return nil, types.NewNotFound("build", id)
}

// restore replaces the partitions with what the store holds and returns
// the records that need timers: building and deploying ones.
func (r *BuildRegistry) restore(ctx context.Context) ([]*types.BuildRecord, error) {
	builds, err := r.store.LoadBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading builds: %w", err)
	}
	queue, err := r.store.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading queue: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = make(map[string]*types.BuildRecord)
	r.completed = make(map[string]*types.BuildRecord)
	r.cancelled = make(map[string]*types.BuildRecord)
	r.activeOrder, r.completedOrder, r.cancelledOrder = nil, nil, nil

	var rearm []*types.BuildRecord
	for _, rec := range builds {
		switch {
		case rec.State == types.BuildStateBuilding:
			r.active[rec.ID] = rec
			r.activeOrder = append(r.activeOrder, rec.ID)
			rearm = append(rearm, rec.Clone())
		case rec.State.IsCompleted():
			r.completed[rec.ID] = rec
			r.completedOrder = append(r.completedOrder, rec.ID)
			if rec.State == types.BuildStateDeploying {
				rearm = append(rearm, rec.Clone())
			}
		case rec.State == types.BuildStateCancelled:
			r.cancelled[rec.ID] = rec
			r.cancelledOrder = append(r.cancelledOrder, rec.ID)
		default:
			r.logger.Warn("Skipping stored build in unexpected state",
				logger.WithField("build", rec.ID),
				logger.WithField("status", string(rec.State)))
		}
	}

	sortByTime(r.completedOrder, r.completed, func(rec *types.BuildRecord) *time.Time { return rec.CompletedAt })
	sortByTime(r.cancelledOrder, r.cancelled, func(rec *types.BuildRecord) *time.Time { return rec.CancelledAt })

	r.queue = r.queue[:0]
	for _, op := range queue {
		if !r.pendingLocked(op.ID) {
			r.queue = append(r.queue, op)
		}
	}

	r.logger.Info("Restored builds",
		logger.WithField("active", len(r.active)),
		logger.WithField("completed", len(r.completed)),
		logger.WithField("queued", len(r.queue)))
	return rearm, nil
}

// flush writes every record and the queue to the store
func (r *BuildRegistry) flush(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, partition := range []map[string]*types.BuildRecord{r.active, r.completed, r.cancelled} {
		for _, rec := range partition {
			if err := r.store.SaveBuild(ctx, rec); err != nil {
				return fmt.Errorf("flushing build %s: %w", rec.ID, err)
			}
		}
	}
	if err := r.store.SaveQueue(ctx, r.queue); err != nil {
		return fmt.Errorf("flushing queue: %w", err)
	}
	return nil
}

func (r *BuildRegistry) lookupLocked(id string) *types.BuildRecord {
	if rec, ok := r.active[id]; ok {
		return rec
	}
	if rec, ok := r.completed[id]; ok {
		return rec
	}
	if rec, ok := r.cancelled[id]; ok {
		return rec
	}
	return nil
}

// pendingLocked reports whether opportunityID is queued or actively building
func (r *BuildRegistry) pendingLocked(opportunityID string) bool {
	for _, op := range r.queue {
		if op.ID == opportunityID {
			return true
		}
	}
	for _, rec := range r.active {
		if rec.OpportunityID == opportunityID {
			return true
		}
	}
	return false
}

func (r *BuildRegistry) addCancelledLocked(rec *types.BuildRecord) {
	if _, ok := r.cancelled[rec.ID]; !ok {
		r.cancelledOrder = append(r.cancelledOrder, rec.ID)
	}
	r.cancelled[rec.ID] = rec
	r.saveBuildLocked(rec)
}

func (r *BuildRegistry) saveBuildLocked(rec *types.BuildRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.SaveBuild(ctx, rec); err != nil {
		r.logger.Warn("Failed to persist build",
			logger.WithField("build", rec.ID), logger.WithError(err))
	}
}

func (r *BuildRegistry) saveQueueLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.SaveQueue(ctx, r.queue); err != nil {
		r.logger.Warn("Failed to persist queue",
			logger.WithField("queued", len(r.queue)), logger.WithError(err))
	}
}

func cloneAll(m map[string]*types.BuildRecord, order []string) []*types.BuildRecord {
	out := make([]*types.BuildRecord, 0, len(order))
	for _, id := range order {
		out = append(out, m[id].Clone())
	}
	return out
}

func cloneQueue(q []types.Opportunity) []types.Opportunity {
	out := make([]types.Opportunity, len(q))
	for i, op := range q {
		op.Features = append([]string(nil), op.Features...)
		op.TechStack = append([]string(nil), op.TechStack...)
		out[i] = op
	}
	return out
}

// sortByTime orders ids by the timestamp at picks from each record. Records
// without one keep their relative order after the stamped ones.
func sortByTime(ids []string, m map[string]*types.BuildRecord, at func(*types.BuildRecord) *time.Time) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := at(m[ids[i]]), at(m[ids[j]])
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
