package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/foreman-dev/foreman/pkg/opportunity"
	"github.com/foreman-dev/foreman/pkg/types"
)

// PhaseTemplate names a phase and the agent role that owns it
type PhaseTemplate struct {
	Name  string
	Agent string
}

// DefaultPhases is the phase sequence every build runs through
func DefaultPhases() []PhaseTemplate {
	return []PhaseTemplate{
		{Name: "Architecture Design", Agent: "architect"},
		{Name: "UI/UX Design", Agent: "designer"},
		{Name: "Backend Development", Agent: "developer"},
		{Name: "Frontend Development", Agent: "developer"},
		{Name: "Integration Setup", Agent: "developer"},
		{Name: "Testing & QA", Agent: "tester"},
		{Name: "Deployment Prep", Agent: "deployer"},
		{Name: "Monetization Setup", Agent: "marketer"},
	}
}

// DefaultDeploymentTarget is used when approve is called without a target
const DefaultDeploymentTarget = "vercel"

// NewBuildRecord creates a building record for op. The first phase starts
// in progress; the rest are pending.
func NewBuildRecord(op types.Opportunity, id string, now time.Time, phases []PhaseTemplate) *types.BuildRecord {
	rec := &types.BuildRecord{
		ID:                  id,
		OpportunityID:       op.ID,
		Name:                op.Name,
		Category:            op.Category,
		State:               types.BuildStateBuilding,
		StartedAt:           now,
		EstimatedCompletion: opportunity.EstimateCompletion(now, op.BuildTime),
		TechStack:           append([]string(nil), op.TechStack...),
		Features:            append([]string(nil), op.Features...),
		Monetization:        op.Monetization,
		EstimatedRevenue:    op.EstimatedRevenue,
		Phases:              make([]types.Phase, len(phases)),
	}
	for i, p := range phases {
		rec.Phases[i] = types.Phase{Name: p.Name, Agent: p.Agent, Status: types.PhaseStatusPending}
	}
	if len(rec.Phases) > 0 {
		rec.Phases[0].Status = types.PhaseStatusInProgress
	}
	return rec
}

// Transition describes the outcome of one Advance step
type Transition struct {
	Record *types.BuildRecord
	// Changed is false when the record was not building
	Changed bool
	// PhaseCompleted is the index of a phase that finished on this step, or -1
	PhaseCompleted int
	// Completed is true when the build reached ready-for-approval on this step
	Completed bool
}

// Advance moves the in-progress phase forward by increment and returns the
// resulting record. rec itself is never modified.
func Advance(rec *types.BuildRecord, increment int, now time.Time) Transition {
	next := rec.Clone()
	t := Transition{Record: next, PhaseCompleted: -1}
	if rec.State != types.BuildStateBuilding {
		return t
	}
	t.Changed = true

	if i := next.CurrentPhase(); i >= 0 {
		phase := &next.Phases[i]
		phase.Progress = clampProgress(phase.Progress + increment)
		if phase.Progress == 100 {
			phase.Status = types.PhaseStatusCompleted
			t.PhaseCompleted = i
			if i+1 < len(next.Phases) {
				next.Phases[i+1].Status = types.PhaseStatusInProgress
			}
		}
	}

	next.Progress = OverallProgress(next.Phases)
	if next.Progress >= 100 || len(next.Phases) == 0 {
		next.Progress = 100
		next.State = types.BuildStateReadyForApproval
		done := now
		next.CompletedAt = &done
		t.Completed = true
	}
	return t
}

// OverallProgress is the floored mean of the phase progress values
func OverallProgress(phases []types.Phase) int {
	if len(phases) == 0 {
		return 0
	}
	total := 0
	for _, p := range phases {
		total += p.Progress
	}
	return total / len(phases)
}

// CheckPhases verifies the phase ordering invariant: a prefix of completed
// phases, at most one in progress, then pending phases.
func CheckPhases(phases []types.Phase) error {
	seenInProgress := false
	seenPending := false
	for i, p := range phases {
		switch p.Status {
		case types.PhaseStatusCompleted:
			if seenInProgress || seenPending {
				return fmt.Errorf("phase %d (%s) completed after an unfinished phase", i, p.Name)
			}
		case types.PhaseStatusInProgress:
			if seenInProgress || seenPending {
				return fmt.Errorf("phase %d (%s) in progress out of order", i, p.Name)
			}
			seenInProgress = true
		case types.PhaseStatusPending:
			seenPending = true
		default:
			return fmt.Errorf("phase %d (%s) has unknown status %q", i, p.Name, p.Status)
		}
		if p.Progress < 0 || p.Progress > 100 {
			return fmt.Errorf("phase %d (%s) progress %d out of range", i, p.Name, p.Progress)
		}
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lower-cases name and replaces whitespace runs with "-"
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "-")
}

// DeploymentURL derives the public URL for a deployed build
func DeploymentURL(name, target string) string {
	return fmt.Sprintf("https://%s.%s", Slug(name), targetDomain(target))
}

func targetDomain(target string) string {
	switch strings.ToLower(target) {
	case "", "vercel":
		return "vercel.app"
	case "netlify":
		return "netlify.app"
	default:
		return strings.ToLower(target) + ".app"
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
