package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/foreman-dev/foreman/pkg/types"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent int
		filled  int
		suffix  string
	}{
		{-5, 0, "  0%"},
		{0, 0, "  0%"},
		{42, 8, " 42%"},
		{100, 20, "100%"},
		{150, 20, "100%"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.percent), func(t *testing.T) {
			bar := progressBar(tt.percent)
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("expected %d filled cells, got %d", tt.filled, got)
			}
			if !strings.HasSuffix(bar, tt.suffix) {
				t.Errorf("expected suffix %q in %q", tt.suffix, bar)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("Budget Buddy Pro", 7); got != "Budget…" {
		t.Errorf("got %q", got)
	}
}

func TestParsePricing(t *testing.T) {
	if parsePricing(nil) != nil {
		t.Error("expected nil pricing for no entries")
	}

	got := parsePricing(map[string]string{"monthly": "9.99", "tier": "pro"})
	if got["monthly"] != 9.99 {
		t.Errorf("expected a numeric monthly price, got %#v", got["monthly"])
	}
	if got["tier"] != "pro" {
		t.Errorf("expected tier pro, got %#v", got["tier"])
	}
}

func TestUnreachable(t *testing.T) {
	tests := []struct {
		from, to types.BuildState
		want     bool
	}{
		{types.BuildStateBuilding, types.BuildStateDeployed, false},
		{types.BuildStateReadyForApproval, types.BuildStateDeploying, false},
		{types.BuildStateDeployed, types.BuildStateBuilding, true},
		{types.BuildStateCancelled, types.BuildStateDeployed, true},
		{types.BuildStateBuilding, types.BuildStateCancelled, false},
		{types.BuildStateReadyForApproval, types.BuildStateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := unreachable(tt.from, tt.to); got != tt.want {
				t.Errorf("unreachable(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", types.NewValidation("goal", "project goal is required"), "Invalid goal: project goal is required"},
		{"not found", fmt.Errorf("wrapped: %w", types.NewNotFound("build", "b-1")), "build not found: b-1"},
		{"invalid state", &types.InvalidStateError{ID: "b-1", State: types.BuildStateBuilding, Op: "approve"}, "cannot approve build b-1 in state building"},
		{"serve running", fmt.Errorf("%w (pid 42)", ErrServeRunning), "foreman serve is running (pid 42)"},
		{"other", errors.New("disk full"), "Error: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeError(tt.err); got != tt.want {
				t.Errorf("describeError() = %q, want %q", got, tt.want)
			}
		})
	}
}
