//go:build integration

package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/foreman-dev/foreman/internal/engine"
	"github.com/foreman-dev/foreman/pkg/config"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

func integrationConfig(dir string) *types.ForemanConfig {
	cfg := config.DefaultConfig()
	cfg.Storage = types.StorageConfig{Driver: types.StorageDriverSQLite, Path: dir}
	cfg.Scheduling.TickInterval = types.Duration(10 * time.Millisecond)
	cfg.Scheduling.ProgressInterval = types.Duration(2 * time.Millisecond)
	cfg.Scheduling.ProgressIncrement = 100
	cfg.Scheduling.DeployDelay = types.Duration(10 * time.Millisecond)
	cfg.Scheduling.OpportunityInterval = types.Duration(time.Hour)
	cfg.Opportunities.Seed = 3
	return cfg
}

func openEngine(t *testing.T, cfg *types.ForemanConfig) (*engine.Orchestrator, interfaces.ForemanDependencies) {
	t.Helper()
	log := logger.CreateLogger("", "warn")
	deps, err := engine.NewDependencyFactory(log, cfg).CreateDefaults()
	if err != nil {
		t.Fatalf("CreateDefaults: %v", err)
	}
	orch := engine.New(cfg, log, deps)
	if err := orch.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	return orch, deps
}

// waitFor reads events until one of type eventType arrives for buildID,
// or for any build when buildID is empty
func waitFor(t *testing.T, events <-chan types.Event, eventType, buildID string) types.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != eventType {
				continue
			}
			if rec, ok := ev.Data.(*types.BuildRecord); buildID == "" || (ok && rec.ID == buildID) {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

// TestEndToEndBuild runs an opportunity through admission, every phase
// and deployment on real timers, then restores the result from SQLite
func TestEndToEndBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	cfg := integrationConfig(dir)
	ctx := context.Background()

	orch, deps := openEngine(t, cfg)
	events, unsubscribe := deps.Broadcaster.Subscribe(256)
	defer unsubscribe()

	if err := orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	batch := orch.GenerateOpportunities()
	if len(batch.Queued) == 0 {
		t.Fatal("expected generated opportunities to be queued")
	}

	started := waitFor(t, events, types.EventBuildStarted, "")
	rec := started.Data.(*types.BuildRecord)
	waitFor(t, events, types.EventBuildCompleted, rec.ID)

	ready, err := orch.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ready.State != types.BuildStateReadyForApproval {
		t.Fatalf("unexpected state after completion: %s", ready.State)
	}

	if _, err := orch.Approve(ctx, rec.ID, "vercel"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	waitFor(t, events, types.EventAppDeployed, rec.ID)

	if err := orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	deps.Broadcaster.Close()
	if err := deps.Store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	restored, rdeps := openEngine(t, cfg)
	defer rdeps.Store.Close()

	got, err := restored.Get(rec.ID)
	if err != nil {
		t.Fatalf("restored Get: %v", err)
	}
	if got.State != types.BuildStateDeployed || got.DeploymentURL == "" {
		t.Errorf("restored build = %s %q", got.State, got.DeploymentURL)
	}

	stored, err := rdeps.Store.Events(ctx, 0)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(stored) < 4 {
		t.Errorf("expected the event log to hold the run, got %d events", len(stored))
	}
}

// TestCapacityUnderLoad queues more work than the cap allows and checks
// the cap holds on every admission
func TestCapacityUnderLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := integrationConfig(t.TempDir())
	cfg.Scheduling.MaxConcurrentBuilds = 2
	cfg.Scheduling.ProgressInterval = types.Duration(time.Hour)
	ctx := context.Background()

	orch, deps := openEngine(t, cfg)
	defer deps.Store.Close()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		op := types.Opportunity{ID: "op-" + id, Name: "App " + id, BuildTime: "1-2", ProfitScore: 5}
		if _, err := orch.Enqueue(op); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	if err := orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if n := len(orch.ListActive()); n > 2 {
			t.Fatalf("active builds = %d, cap is 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if n := len(orch.ListActive()); n != 2 {
		t.Errorf("active builds = %d, want 2", n)
	}
	if n := len(orch.ListQueue()); n != 3 {
		t.Errorf("queued = %d, want 3", n)
	}
}
