package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

var waitableStates = []types.BuildState{
	types.BuildStateBuilding,
	types.BuildStateReadyForApproval,
	types.BuildStateDeploying,
	types.BuildStateDeployed,
	types.BuildStateCancelled,
}

func (c *CLI) newWaitCmd() *cobra.Command {
	var (
		state        string
		timeout      time.Duration
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait <build-id>",
		Short: "Wait for a build to reach a state",
		Long: `Poll the store until a build reaches the given state. This is meant for
scripts running next to 'foreman serve'. The command fails early when the
build can no longer reach the requested state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := types.BuildState(state)
			if !validWaitState(target) {
				return types.NewValidation("state", fmt.Sprintf("cannot wait for %q", state))
			}

			return c.withEngine(cmd.Context(), "builds.wait", false, func(ctx context.Context, rt *Runtime) error {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}

				c.printInfo(fmt.Sprintf("Waiting for %s to reach %s", args[0], target))
				started := time.Now()
				rec, err := waitForBuild(ctx, rt.Deps.Store, args[0], target, pollInterval)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(rec)
				}
				c.printSuccess(fmt.Sprintf("%s reached %s after %s", rec.Name, rec.State, time.Since(started).Round(time.Millisecond)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", string(types.BuildStateDeployed), "state to wait for")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Minute, "give up after this long (0 waits forever)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "how often to read the store")
	return cmd
}

func validWaitState(s types.BuildState) bool {
	for _, v := range waitableStates {
		if s == v {
			return true
		}
	}
	return false
}

// waitForBuild polls st until the build reaches target. It returns an
// InvalidStateError once the build passed target or was cancelled.
func waitForBuild(ctx context.Context, st store.Store, buildID string, target types.BuildState, pollInterval time.Duration) (*types.BuildRecord, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		rec, err := findBuild(ctx, st, buildID)
		if err != nil {
			return nil, err
		}
		if rec.State == target {
			return rec, nil
		}
		if unreachable(rec.State, target) {
			return nil, &types.InvalidStateError{ID: buildID, State: rec.State, Op: "wait for " + string(target) + " on"}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for %s to reach %s (currently %s)", buildID, target, rec.State)
		case <-ticker.C:
		}
	}
}

func findBuild(ctx context.Context, st store.Store, buildID string) (*types.BuildRecord, error) {
	builds, err := st.LoadBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read builds: %w", err)
	}
	for _, b := range builds {
		if b.ID == buildID {
			return b, nil
		}
	}
	return nil, types.NewNotFound("build", buildID)
}

// unreachable reports whether a build in state from can never reach to
func unreachable(from, to types.BuildState) bool {
	if from == types.BuildStateCancelled || to == types.BuildStateCancelled {
		return from == types.BuildStateCancelled || from.IsCompleted()
	}
	return stateRank(from) > stateRank(to)
}

func stateRank(s types.BuildState) int {
	for i, v := range waitableStates {
		if s == v {
			return i
		}
	}
	return -1
}
