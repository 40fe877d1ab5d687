package engine

import (
	"testing"
	"time"

	"github.com/foreman-dev/foreman/pkg/types"
)

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testOpportunity(id string) types.Opportunity {
	return types.Opportunity{
		ID:               id,
		Name:             "Invoice Tracker",
		Category:         "SaaS",
		Monetization:     "subscription",
		EstimatedRevenue: "$5k-10k/mo",
		BuildTime:        "2-3",
		Complexity:       "medium",
		Features:         []string{"Invoices", "Reminders"},
		TechStack:        []string{"Go", "React"},
		ProfitScore:      8.2,
	}
}

func TestNewBuildRecord(t *testing.T) {
	rec := NewBuildRecord(testOpportunity("op-1"), "b-1", epoch, DefaultPhases())

	if rec.State != types.BuildStateBuilding || rec.Progress != 0 {
		t.Errorf("unexpected initial state %s/%d", rec.State, rec.Progress)
	}
	if rec.OpportunityID != "op-1" || rec.ID != "b-1" {
		t.Errorf("ids = %s/%s", rec.OpportunityID, rec.ID)
	}
	if len(rec.Phases) != 8 {
		t.Fatalf("got %d phases, want 8", len(rec.Phases))
	}
	if rec.Phases[0].Status != types.PhaseStatusInProgress {
		t.Errorf("first phase status = %s", rec.Phases[0].Status)
	}
	for _, p := range rec.Phases[1:] {
		if p.Status != types.PhaseStatusPending {
			t.Errorf("phase %s status = %s", p.Name, p.Status)
		}
	}
	if want := epoch.Add(60 * time.Hour); !rec.EstimatedCompletion.Equal(want) {
		t.Errorf("EstimatedCompletion = %v, want %v", rec.EstimatedCompletion, want)
	}
	if err := CheckPhases(rec.Phases); err != nil {
		t.Errorf("CheckPhases: %v", err)
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name          string
		steps         int
		increment     int
		wantProgress  int
		wantCurrent   int
		wantCompleted bool
		wantPhaseDone int
	}{
		{"one step", 1, 10, 1, 0, false, -1},
		{"first phase done", 10, 10, 12, 1, false, 0},
		{"overshoot clamps", 1, 250, 12, 1, false, 0},
		{"two phases", 20, 10, 25, 2, false, 1},
		{"all phases", 80, 10, 100, -1, true, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewBuildRecord(testOpportunity("op"), "b", epoch, DefaultPhases())
			var last Transition
			for i := 0; i < tt.steps; i++ {
				last = Advance(rec, tt.increment, epoch.Add(time.Duration(i+1)*time.Second))
				if !last.Changed {
					t.Fatalf("step %d did not change the record", i)
				}
				if err := CheckPhases(last.Record.Phases); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
				if last.Record.Progress < rec.Progress {
					t.Fatalf("progress went backwards: %d -> %d", rec.Progress, last.Record.Progress)
				}
				rec = last.Record
			}

			if rec.Progress != tt.wantProgress {
				t.Errorf("Progress = %d, want %d", rec.Progress, tt.wantProgress)
			}
			if got := rec.CurrentPhase(); got != tt.wantCurrent {
				t.Errorf("CurrentPhase = %d, want %d", got, tt.wantCurrent)
			}
			if last.Completed != tt.wantCompleted {
				t.Errorf("Completed = %v", last.Completed)
			}
			if last.PhaseCompleted != tt.wantPhaseDone {
				t.Errorf("PhaseCompleted = %d, want %d", last.PhaseCompleted, tt.wantPhaseDone)
			}
			if tt.wantCompleted {
				if rec.State != types.BuildStateReadyForApproval || rec.CompletedAt == nil {
					t.Errorf("completed record = %s, %v", rec.State, rec.CompletedAt)
				}
			}
		})
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	rec := NewBuildRecord(testOpportunity("op"), "b", epoch, DefaultPhases())
	Advance(rec, 50, epoch)
	if rec.Phases[0].Progress != 0 || rec.Progress != 0 {
		t.Error("Advance modified its input")
	}
}

func TestAdvanceIgnoresNonBuilding(t *testing.T) {
	for _, state := range []types.BuildState{
		types.BuildStateReadyForApproval,
		types.BuildStateDeploying,
		types.BuildStateDeployed,
		types.BuildStateCancelled,
	} {
		rec := NewBuildRecord(testOpportunity("op"), "b", epoch, DefaultPhases())
		rec.State = state
		tr := Advance(rec, 10, epoch)
		if tr.Changed || tr.Record.Phases[0].Progress != 0 || tr.Record.State != state {
			t.Errorf("%s: record changed", state)
		}
	}
}

func TestCheckPhases(t *testing.T) {
	phase := func(s types.PhaseStatus, p int) types.Phase { return types.Phase{Name: "p", Status: s, Progress: p} }
	tests := []struct {
		name    string
		phases  []types.Phase
		wantErr bool
	}{
		{"empty", nil, false},
		{"prefix", []types.Phase{
			phase(types.PhaseStatusCompleted, 100),
			phase(types.PhaseStatusInProgress, 40),
			phase(types.PhaseStatusPending, 0),
		}, false},
		{"all completed", []types.Phase{
			phase(types.PhaseStatusCompleted, 100),
			phase(types.PhaseStatusCompleted, 100),
		}, false},
		{"two in progress", []types.Phase{
			phase(types.PhaseStatusInProgress, 10),
			phase(types.PhaseStatusInProgress, 10),
		}, true},
		{"completed after pending", []types.Phase{
			phase(types.PhaseStatusPending, 0),
			phase(types.PhaseStatusCompleted, 100),
		}, true},
		{"progress out of range", []types.Phase{
			phase(types.PhaseStatusInProgress, 120),
		}, true},
		{"unknown status", []types.Phase{
			phase("paused", 0),
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPhases(tt.phases)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPhases() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeploymentURL(t *testing.T) {
	tests := []struct {
		name, target, want string
	}{
		{"Invoice Tracker", "vercel", "https://invoice-tracker.vercel.app"},
		{"Invoice  Tracker\tPro", "", "https://invoice-tracker-pro.vercel.app"},
		{"Recipe Box", "Netlify", "https://recipe-box.netlify.app"},
		{"Recipe Box", "fly", "https://recipe-box.fly.app"},
	}
	for _, tt := range tests {
		if got := DeploymentURL(tt.name, tt.target); got != tt.want {
			t.Errorf("DeploymentURL(%q, %q) = %q, want %q", tt.name, tt.target, got, tt.want)
		}
	}
}
