package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/mocks"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

// staticSource returns the same batch on every call
type staticSource []types.Opportunity

func (s staticSource) Generate() []types.Opportunity {
	out := make([]types.Opportunity, len(s))
	copy(out, s)
	return out
}

type fixture struct {
	orch   *Orchestrator
	clock  *clock.Manual
	events *mocks.EventRecorder
	store  store.Store
}

func newFixture(t *testing.T, cfg *types.ForemanConfig, st store.Store, source interfaces.OpportunitySource) *fixture {
	t.Helper()
	return newFixtureAt(t, cfg, st, source, clock.NewManual(epoch))
}

func newFixtureAt(t *testing.T, cfg *types.ForemanConfig, st store.Store, source interfaces.OpportunitySource, clk *clock.Manual) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = &types.ForemanConfig{Opportunities: types.OpportunityConfig{Seed: 7}}
	}
	if st == nil {
		st = store.NewMemory()
	}
	if source == nil {
		source = staticSource(nil)
	}

	reg := agents.New(nil, agents.WithClock(clk))
	if err := agents.Bootstrap(reg); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	events := mocks.NewEventRecorder()
	orch := New(cfg, nil, interfaces.ForemanDependencies{
		Agents:        reg,
		Opportunities: source,
		Store:         st,
		Publisher:     events,
		Clock:         clk,
	})
	return &fixture{orch: orch, clock: clk, events: events, store: st}
}

func TestBuildLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	added, err := f.orch.Enqueue(testOpportunity("X"))
	if err != nil || !added {
		t.Fatalf("Enqueue = %v, %v", added, err)
	}
	rec, err := f.orch.Tick(ctx)
	if err != nil || rec == nil {
		t.Fatalf("Tick = %v, %v", rec, err)
	}
	if rec.State != types.BuildStateBuilding || len(f.orch.ListQueue()) != 0 {
		t.Fatalf("unexpected admission %+v", rec)
	}

	f.clock.Advance(20 * time.Second)
	got, _ := f.orch.Get(rec.ID)
	if got.Phases[0].Status != types.PhaseStatusCompleted || got.Phases[1].Status != types.PhaseStatusInProgress {
		t.Errorf("phases after 20s = %+v", got.Phases[:2])
	}
	if got.Progress != 12 {
		t.Errorf("Progress = %d, want 12", got.Progress)
	}

	f.clock.Advance(140 * time.Second)
	got, _ = f.orch.Get(rec.ID)
	if got.State != types.BuildStateReadyForApproval || got.Progress != 100 {
		t.Fatalf("after all phases: %s/%d", got.State, got.Progress)
	}
	if len(f.orch.ListActive()) != 0 || len(f.orch.ListCompleted()) != 1 {
		t.Error("completed build not moved to the completed partition")
	}
	if n := f.events.Count(types.EventBuildProgress); n != 79 {
		t.Errorf("build-progress events = %d, want 79", n)
	}
	if n := f.events.Count(types.EventBuildCompleted); n != 1 {
		t.Errorf("build-completed events = %d, want 1", n)
	}
	if f.orch.timers.count() != 0 {
		t.Errorf("%d timers left after completion", f.orch.timers.count())
	}

	approved, err := f.orch.Approve(ctx, rec.ID, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.State != types.BuildStateDeploying || approved.DeploymentTarget != DefaultDeploymentTarget {
		t.Errorf("approved = %s/%s", approved.State, approved.DeploymentTarget)
	}

	f.clock.Advance(DefaultDeployDelay)
	got, _ = f.orch.Get(rec.ID)
	if got.State != types.BuildStateDeployed || got.DeploymentURL != "https://invoice-tracker.vercel.app" {
		t.Errorf("deployed = %s/%s", got.State, got.DeploymentURL)
	}
	if f.events.Count(types.EventAppDeployed) != 1 {
		t.Error("missing app-deployed event")
	}

	paid, err := f.orch.ConfigurePayment(ctx, rec.ID, types.PaymentConfig{Pricing: map[string]any{"monthly": 19}})
	if err != nil {
		t.Fatalf("ConfigurePayment: %v", err)
	}
	if paid.Payment.Provider != DefaultPaymentProvider || paid.Payment.Status != PaymentStatusConfigured {
		t.Errorf("payment = %+v", paid.Payment)
	}
	if !paid.Payment.ConfiguredAt.Equal(f.clock.Now()) {
		t.Errorf("setupAt = %v", paid.Payment.ConfiguredAt)
	}

	stats := f.orch.Stats()
	if stats.CompletedApps != 1 || stats.ActiveBuilds != 0 {
		t.Errorf("stats = %+v", stats)
	}
	team, _ := f.orch.agents.Team(agents.PrimaryTeamID)
	if team.AppsGenerated != 1 {
		t.Errorf("team apps generated = %d", team.AppsGenerated)
	}
}

func TestApproveNotReady(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()
	f.orch.Enqueue(testOpportunity("X"))
	rec, _ := f.orch.Tick(ctx)

	_, err := f.orch.Approve(ctx, rec.ID, "vercel")
	if !errors.Is(err, types.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	got, _ := f.orch.Get(rec.ID)
	if got.State != types.BuildStateBuilding {
		t.Errorf("state changed to %s", got.State)
	}
	if f.orch.timers.pending(deployKeyPrefix + rec.ID) {
		t.Error("deploy timer armed for a rejected approval")
	}
}

func TestEnqueueValidates(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	if _, err := f.orch.Enqueue(types.Opportunity{Name: "no id"}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	f.orch.Enqueue(testOpportunity("X"))
	if added, _ := f.orch.Enqueue(testOpportunity("X")); added {
		t.Error("duplicate enqueue accepted")
	}
	f.orch.Tick(context.Background())
	if added, _ := f.orch.Enqueue(testOpportunity("X")); added {
		t.Error("opportunity of an active build accepted")
	}
}

func TestCapacityCap(t *testing.T) {
	cfg := &types.ForemanConfig{Scheduling: types.SchedulingConfig{MaxConcurrentBuilds: 2}}
	f := newFixture(t, cfg, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.orch.Enqueue(testOpportunity(fmt.Sprintf("op-%d", i)))
	}
	for i := 0; i < 3; i++ {
		f.orch.Tick(ctx)
	}

	if n := len(f.orch.ListActive()); n != 2 {
		t.Errorf("active = %d, want 2", n)
	}
	if n := len(f.orch.ListQueue()); n != 1 {
		t.Errorf("queued = %d, want 1", n)
	}
	if n := f.events.Count(types.EventBuildStarted); n != 2 {
		t.Errorf("build-started events = %d", n)
	}

	f.orch.ApplyConfig(&types.ForemanConfig{Scheduling: types.SchedulingConfig{MaxConcurrentBuilds: 3}})
	if rec, _ := f.orch.Tick(ctx); rec == nil {
		t.Error("raised capacity did not admit the queued build")
	}
	if f.events.Count(types.EventConfigurationReload) != 1 {
		t.Error("missing configuration-reloaded event")
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()
	f.orch.Enqueue(testOpportunity("X"))
	f.orch.Enqueue(testOpportunity("Y"))
	rec, _ := f.orch.Tick(ctx)

	f.clock.Advance(4 * time.Second)
	cancelled, err := f.orch.Cancel(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	progress := cancelled.Progress

	f.clock.Advance(time.Minute)
	got, _ := f.orch.Get(rec.ID)
	if got.State != types.BuildStateCancelled || got.Progress != progress {
		t.Errorf("cancelled build kept moving: %s/%d", got.State, got.Progress)
	}

	if _, err := f.orch.Cancel(ctx, "Y"); err != nil {
		t.Errorf("cancel queued: %v", err)
	}
	if len(f.orch.ListQueue()) != 0 || len(f.orch.ListCancelled()) != 2 {
		t.Error("queued opportunity not cancelled")
	}
	if f.events.Count(types.EventBuildCancelled) != 2 {
		t.Errorf("build-cancelled events = %d", f.events.Count(types.EventBuildCancelled))
	}
	if _, err := f.orch.Cancel(ctx, "nope"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown id: %v", err)
	}
}

func TestGenerateOpportunities(t *testing.T) {
	var batch staticSource
	for i, score := range []float64{5.1, 9.4, 7.7, 8.8, 6.0} {
		op := testOpportunity(fmt.Sprintf("op-%d", i))
		op.ProfitScore = score
		batch = append(batch, op)
	}
	f := newFixture(t, nil, nil, batch)

	out := f.orch.GenerateOpportunities()
	if len(out.Opportunities) != 5 || out.QueueLength != 3 {
		t.Fatalf("batch = %d ops, queue %d", len(out.Opportunities), out.QueueLength)
	}
	if strings.Join(out.Queued, ",") != "op-1,op-3,op-2" {
		t.Errorf("queued = %v, want top three by score", out.Queued)
	}
	if out.Opportunities[0].ProfitScore != 9.4 {
		t.Error("published batch is not ranked")
	}

	again := f.orch.GenerateOpportunities()
	if len(again.Queued) != 0 || again.QueueLength != 3 {
		t.Errorf("regeneration queued duplicates: %+v", again.Queued)
	}
	if f.events.Count(types.EventOpportunities) != 2 {
		t.Error("missing app-opportunities events")
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, nil, nil, staticSource{testOpportunity("X")})
	ctx := context.Background()

	if err := f.orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Start = %v", err)
	}

	// Regeneration at 60s queues X and a later tick admits it.
	f.clock.Advance(90 * time.Second)
	if len(f.orch.ListActive()) != 1 {
		t.Errorf("active = %d, want 1", len(f.orch.ListActive()))
	}
	if len(f.orch.Communications()) != 3 || len(f.orch.Decisions()) != 1 {
		t.Errorf("communications=%d decisions=%d", len(f.orch.Communications()), len(f.orch.Decisions()))
	}

	if err := f.orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if f.orch.Running() || f.clock.Pending() != 0 {
		t.Errorf("running=%v pending=%d after Stop", f.orch.Running(), f.clock.Pending())
	}
	if err := f.orch.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestStopDisarmsTimersOfUnstartedEngine(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	if _, err := f.orch.Enqueue(testOpportunity("X")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	rec, err := f.orch.Tick(ctx)
	if err != nil || rec == nil {
		t.Fatalf("Tick = %v, %v", rec, err)
	}
	if f.clock.Pending() == 0 {
		t.Fatal("expected Tick to arm a progress timer")
	}

	if err := f.orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if f.clock.Pending() != 0 {
		t.Errorf("pending = %d after Stop", f.clock.Pending())
	}

	f.clock.Advance(time.Minute)
	got, _ := f.orch.Get(rec.ID)
	if got.Progress != 0 {
		t.Errorf("progress advanced to %d after Stop", got.Progress)
	}
}

func TestRestoreResumesTimers(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	first := newFixture(t, nil, st, nil)
	first.orch.Enqueue(testOpportunity("Y"))
	deploying, _ := first.orch.Tick(ctx)
	first.clock.Advance(160 * time.Second)

	first.orch.Enqueue(testOpportunity("X"))
	building, _ := first.orch.Tick(ctx)
	first.clock.Advance(4 * time.Second)

	first.orch.Enqueue(testOpportunity("Z"))
	dropped, _ := first.orch.Tick(ctx)
	first.orch.Cancel(ctx, dropped.ID)

	if _, err := first.orch.Approve(ctx, deploying.ID, "netlify"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	first.clock.Advance(2 * time.Second)

	second := newFixtureAt(t, nil, st, nil, clock.NewManual(first.clock.Now()))
	if err := second.orch.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := second.orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer second.orch.Stop(ctx)

	second.clock.Advance(3 * time.Second)
	got, _ := second.orch.Get(deploying.ID)
	if got.State != types.BuildStateDeployed || !strings.HasSuffix(got.DeploymentURL, ".netlify.app") {
		t.Errorf("restored deployment = %s/%s", got.State, got.DeploymentURL)
	}

	active := second.orch.ListActive()
	if len(active) != 1 || active[0].ID != building.ID || active[0].Progress == 0 {
		t.Errorf("restored build did not resume: %+v", active)
	}
	if c := second.orch.ListCancelled(); len(c) != 1 || c[0].ID != dropped.ID {
		t.Errorf("cancelled = %+v", c)
	}
}

func TestNewRequiresAgents(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without an agent registry")
		}
	}()
	New(nil, nil, interfaces.ForemanDependencies{})
}
