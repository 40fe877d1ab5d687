package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/integrations"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/opportunity"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/validation"
)

// Default timing policy
const (
	DefaultTickInterval        = 30 * time.Second
	DefaultOpportunityInterval = 60 * time.Second
	DefaultProgressInterval    = 2 * time.Second
	DefaultProgressIncrement   = 10
	DefaultTopK                = 3
)

// OpportunityBatch is the payload of an app-opportunities event
type OpportunityBatch struct {
	Opportunities []types.Opportunity `json:"opportunities"`
	Queued        []string            `json:"queued"`
	QueueLength   int                 `json:"queueLength"`
}

// Orchestrator wires the scheduler, build registry, deployer and the
// background timers together
type Orchestrator struct {
	logger       logger.Logger
	agents       *agents.Registry
	source       interfaces.OpportunitySource
	store        store.Store
	publisher    notifier.Publisher
	clock        clock.Clock
	sessions     interfaces.SessionCounter
	integrations *integrations.Service

	registry  *BuildRegistry
	scheduler *Scheduler
	deployer  *Deployer
	chatter   *chatter
	timers    *timerSet

	mu       sync.RWMutex
	policy   types.SchedulingConfig
	running  bool
	cancelFn context.CancelFunc
	runCtx   context.Context
}

// New creates an orchestrator from config and its dependencies. Agents is
// required; the other dependencies fall back to in-memory defaults.
func New(cfg *types.ForemanConfig, log logger.Logger, deps interfaces.ForemanDependencies) *Orchestrator {
	if deps.Agents == nil {
		panic("Agents dependency is required")
	}
	if cfg == nil {
		cfg = &types.ForemanConfig{}
	}
	if log == nil {
		log = logger.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Publisher == nil {
		deps.Publisher = notifier.Nop
	}
	if deps.Opportunities == nil {
		deps.Opportunities = opportunity.New(cfg.Opportunities.Seed).WithClock(deps.Clock)
	}

	policy := withPolicyDefaults(cfg.Scheduling)
	engineLog := log.WithComponent("engine")
	timers := newTimerSet(deps.Clock, engineLog)
	registry := NewBuildRegistry(deps.Store, log)

	o := &Orchestrator{
		logger:       engineLog,
		agents:       deps.Agents,
		source:       deps.Opportunities,
		store:        deps.Store,
		publisher:    deps.Publisher,
		clock:        deps.Clock,
		sessions:     deps.Sessions,
		integrations: deps.Integrations,
		registry:     registry,
		scheduler:    NewScheduler(registry, policy.MaxConcurrentBuilds, deps.Clock, log),
		deployer:     newDeployer(registry, timers, deps.Clock, deps.Publisher, log, policy.DeployDelay.Std()),
		chatter:      newChatter(deps.Agents, deps.Publisher, log, chatterSeed(cfg.Opportunities.Seed, deps.Clock)),
		timers:       timers,
		policy:       policy,
	}
	return o
}

// Start arms the scheduler tick, the opportunity regeneration timer and
// the timers of any restored builds
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	o.running = true
	o.runCtx, o.cancelFn = context.WithCancel(ctx)
	policy := o.policy
	o.mu.Unlock()

	o.timers.reopen()
	o.timers.schedule(timerTick, policy.TickInterval.Std(), o.onTick)
	o.timers.schedule(timerOpportunity, policy.OpportunityInterval.Std(), o.onRegenerate)
	resumed := o.resumeTimers()

	o.logger.Info("Foreman engine started",
		logger.WithField("capacity", o.scheduler.Capacity()),
		logger.WithField("tick", policy.TickInterval.Std().String()),
		logger.WithField("resumed", resumed))
	return nil
}

// Stop stops every timer and waits, bounded by ctx, for in-flight callbacks
// while a final snapshot is written to the store. On an engine that was
// never started it only disarms timers armed by Tick or Approve.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		o.timers.stopAll()
		return o.timers.wait(ctx)
	}
	o.running = false
	if o.cancelFn != nil {
		o.cancelFn()
	}
	o.mu.Unlock()

	o.logger.Info("Stopping Foreman engine...")

	g, gctx := NewSafeGroup(ctx, o.logger)
	g.Go(func() error {
		stopped := o.timers.stopAll()
		o.logger.Debug("Timers stopped", logger.WithField("count", stopped))
		return o.timers.wait(gctx)
	})
	g.Go(func() error {
		return o.registry.flush(gctx)
	})

	if err := g.Wait(); err != nil {
		o.logger.Warn("Engine stopped with errors", logger.WithError(err))
		return err
	}
	o.logger.Info("Foreman engine stopped")
	return nil
}

// Running reports whether Start has been called without a matching Stop
func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// Restore reloads builds and the queue from the store. Timers for
// restored building and deploying records are armed by Start.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if _, err := o.registry.restore(ctx); err != nil {
		return fmt.Errorf("restoring builds: %w", err)
	}
	return nil
}

// Enqueue validates op and adds it to the queue. It reports whether op was
// added; a duplicate of a queued or active opportunity is not.
func (o *Orchestrator) Enqueue(op types.Opportunity) (bool, error) {
	if err := validation.Opportunity(op).Err(); err != nil {
		return false, err
	}
	return o.scheduler.Enqueue(op), nil
}

// Tick runs one admission step. An admitted build starts its progress timer.
func (o *Orchestrator) Tick(ctx context.Context) (*types.BuildRecord, error) {
	rec, err := o.scheduler.Tick(ctx)
	if err != nil || rec == nil {
		return rec, err
	}

	o.publisher.Publish(notifier.NewEvent(types.EventBuildStarted, rec, rec.StartedAt))
	o.armProgress(rec.ID)
	return rec, nil
}

// GenerateOpportunities produces a batch, enqueues the top-ranked entries
// and publishes the batch
func (o *Orchestrator) GenerateOpportunities() OpportunityBatch {
	batch := o.source.Generate()
	result := validation.Opportunities(batch)
	for _, w := range result.Warnings() {
		o.logger.Debug("Opportunity warning", logger.WithField("issue", w.String()))
	}

	ranked := opportunity.Rank(batch, o.policySnapshot().TopK)
	var queued []string
	for _, op := range ranked {
		added, err := o.Enqueue(op)
		if err != nil {
			o.logger.Warn("Skipping invalid opportunity",
				logger.WithField("opportunity", op.ID), logger.WithError(err))
			continue
		}
		if added {
			queued = append(queued, op.ID)
		}
	}

	_, _, queueLength, _ := o.registry.Counts()
	out := OpportunityBatch{
		Opportunities: opportunity.Rank(batch, len(batch)),
		Queued:        queued,
		QueueLength:   queueLength,
	}

	o.logger.Info("Identified app opportunities",
		logger.WithField("generated", len(batch)),
		logger.WithField("queued", len(queued)),
		logger.WithField("queue", queueLength))
	o.publisher.Publish(notifier.NewEvent(types.EventOpportunities, out, o.clock.Now()))
	return out
}

// Approve starts deployment of a ready-for-approval build
func (o *Orchestrator) Approve(ctx context.Context, buildID, target string) (*types.BuildRecord, error) {
	return o.deployer.Approve(ctx, buildID, target)
}

// ConfigurePayment records payment setup on a completed build
func (o *Orchestrator) ConfigurePayment(ctx context.Context, buildID string, cfg types.PaymentConfig) (*types.BuildRecord, error) {
	return o.deployer.ConfigurePayment(ctx, buildID, cfg)
}

// Cancel stops a building record or drops a queued opportunity
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*types.BuildRecord, error) {
	rec, err := o.registry.cancel(id, o.clock.Now())
	if err != nil {
		return nil, err
	}
	o.timers.cancel(progressKeyPrefix + id)

	o.logger.WithBuild(rec.ID).Info("Build cancelled")
	o.publisher.Publish(notifier.NewEvent(types.EventBuildCancelled, rec, *rec.CancelledAt))
	return rec, nil
}

// Get returns a copy of a build from any partition
func (o *Orchestrator) Get(id string) (*types.BuildRecord, error) {
	return o.registry.Get(id)
}

// ListQueue returns the pending opportunities
func (o *Orchestrator) ListQueue() []types.Opportunity { return o.registry.ListQueue() }

// ListActive returns the building records
func (o *Orchestrator) ListActive() []*types.BuildRecord { return o.registry.ListActive() }

// ListCompleted returns the completed records
func (o *Orchestrator) ListCompleted() []*types.BuildRecord { return o.registry.ListCompleted() }

// ListCancelled returns the cancelled records
func (o *Orchestrator) ListCancelled() []*types.BuildRecord { return o.registry.ListCancelled() }

// Communications returns the most recent agent communications
func (o *Orchestrator) Communications() []Communication {
	comms, _ := o.chatter.history()
	return comms
}

// Decisions returns the most recent autonomous decisions
func (o *Orchestrator) Decisions() []Decision {
	_, decisions := o.chatter.history()
	return decisions
}

// Stats aggregates the dashboard counters
func (o *Orchestrator) Stats() types.Stats {
	active, completed, queued, cancelled := o.registry.Counts()
	teams, members := o.agents.TeamCounts()
	comms, decisions := o.chatter.totals()

	stats := types.Stats{
		Agents:              o.agents.Count(),
		AgentTeams:          teams,
		TotalTeamAgents:     members,
		ActiveBuilds:        active,
		CompletedApps:       completed,
		QueuedTasks:         queued,
		CancelledBuilds:     cancelled,
		Conversations:       o.agents.ConversationCount(),
		AgentCommunications: comms,
		AutonomousDecisions: decisions,
	}
	if o.sessions != nil {
		stats.Sessions = o.sessions.Count()
	}
	if o.integrations != nil {
		is := o.integrations.Stats()
		stats.Integrations = &is
	}
	return stats
}

// Capacity returns the current concurrency cap
func (o *Orchestrator) Capacity() int { return o.scheduler.Capacity() }

// ApplyConfig applies a reloaded configuration: capacity, intervals,
// progress increment, deploy delay and log level
func (o *Orchestrator) ApplyConfig(cfg *types.ForemanConfig) {
	policy := withPolicyDefaults(cfg.Scheduling)

	o.mu.Lock()
	o.policy = policy
	o.mu.Unlock()

	o.scheduler.SetCapacity(policy.MaxConcurrentBuilds)
	o.deployer.SetDelay(policy.DeployDelay.Std())
	if cfg.Logging.Level != "" {
		o.logger.SetLevel(string(cfg.Logging.Level))
	}

	o.logger.Info("Configuration applied",
		logger.WithField("capacity", policy.MaxConcurrentBuilds),
		logger.WithField("tick", policy.TickInterval.Std().String()))
	o.publisher.Publish(notifier.NewEvent(types.EventConfigurationReload, policy, o.clock.Now()))
}

func (o *Orchestrator) policySnapshot() types.SchedulingConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.policy
}

func (o *Orchestrator) runContext() context.Context {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.runCtx != nil {
		return o.runCtx
	}
	return context.Background()
}

func (o *Orchestrator) onTick() {
	if _, err := o.Tick(o.runContext()); err != nil {
		o.logger.Error("Scheduler tick failed", logger.WithError(err))
	}
	o.chatter.communicate(o.clock.Now())
	o.timers.schedule(timerTick, o.policySnapshot().TickInterval.Std(), o.onTick)
}

func (o *Orchestrator) onRegenerate() {
	o.GenerateOpportunities()
	o.chatter.decide(o.clock.Now())
	o.timers.schedule(timerOpportunity, o.policySnapshot().OpportunityInterval.Std(), o.onRegenerate)
}

func (o *Orchestrator) armProgress(buildID string) {
	o.timers.schedule(progressKeyPrefix+buildID, o.policySnapshot().ProgressInterval.Std(), func() {
		o.onProgress(buildID)
	})
}

// onProgress advances one build. It stops re-arming once the build has
// left the active partition.
func (o *Orchestrator) onProgress(buildID string) {
	policy := o.policySnapshot()
	now := o.clock.Now()

	t, ok := o.registry.advance(buildID, policy.ProgressIncrement, now)
	if !ok {
		o.logger.WithBuild(buildID).Debug("Progress timer stopped")
		return
	}

	if t.Completed {
		o.agents.RecordTeamResult(agents.PrimaryTeamID, true)
		o.logger.WithBuild(buildID).Success("Build completed, ready for approval",
			logger.WithField("name", t.Record.Name))
		o.publisher.Publish(notifier.NewEvent(types.EventBuildCompleted, t.Record, now))
		return
	}

	o.publisher.Publish(notifier.NewEvent(types.EventBuildProgress, t.Record, now))
	o.armProgress(buildID)
}

// resumeTimers arms progress timers for active builds and deploy timers
// for deploying builds
func (o *Orchestrator) resumeTimers() int {
	n := 0
	for _, rec := range o.registry.ListActive() {
		o.armProgress(rec.ID)
		n++
	}
	for _, rec := range o.registry.ListCompleted() {
		if rec.State == types.BuildStateDeploying {
			o.deployer.resume(rec)
			n++
		}
	}
	return n
}

func withPolicyDefaults(p types.SchedulingConfig) types.SchedulingConfig {
	if p.MaxConcurrentBuilds <= 0 {
		p.MaxConcurrentBuilds = DefaultCapacity
	}
	if p.TickInterval <= 0 {
		p.TickInterval = types.Duration(DefaultTickInterval)
	}
	if p.OpportunityInterval <= 0 {
		p.OpportunityInterval = types.Duration(DefaultOpportunityInterval)
	}
	if p.ProgressInterval <= 0 {
		p.ProgressInterval = types.Duration(DefaultProgressInterval)
	}
	if p.ProgressIncrement <= 0 {
		p.ProgressIncrement = DefaultProgressIncrement
	}
	if p.DeployDelay <= 0 {
		p.DeployDelay = types.Duration(DefaultDeployDelay)
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	return p
}

func chatterSeed(seed int64, c clock.Clock) int64 {
	if seed != 0 {
		return seed + 1
	}
	return c.Now().UnixNano()
}
