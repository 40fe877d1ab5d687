package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newBuildsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "Inspect and steer builds",
	}

	cmd.AddCommand(
		c.newBuildListCmd(),
		&cobra.Command{
			Use:   "show <build-id>",
			Short: "Show a build with its phases",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "builds.show", false, func(ctx context.Context, rt *Runtime) error {
					rec, err := rt.Orchestrator.Get(args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(rec)
					}
					c.renderBuild(rec)
					return nil
				})
			},
		},
		c.newBuildApproveCmd(),
		c.newBuildPaymentCmd(),
		&cobra.Command{
			Use:   "cancel <build-or-opportunity-id>",
			Short: "Cancel a building record or drop a queued opportunity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "builds.cancel", true, func(ctx context.Context, rt *Runtime) error {
					rec, err := rt.Orchestrator.Cancel(ctx, args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(rec)
					}
					c.printSuccess(fmt.Sprintf("Cancelled %s (%s)", rec.ID, rec.Name))
					return nil
				})
			},
		},
		c.newWaitCmd(),
	)
	return cmd
}

func (c *CLI) newBuildListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "builds.list", false, func(ctx context.Context, rt *Runtime) error {
				var builds []*types.BuildRecord
				switch state {
				case "active":
					builds = rt.Orchestrator.ListActive()
				case "completed":
					builds = rt.Orchestrator.ListCompleted()
				case "cancelled":
					builds = rt.Orchestrator.ListCancelled()
				case "all":
					builds = append(builds, rt.Orchestrator.ListActive()...)
					builds = append(builds, rt.Orchestrator.ListCompleted()...)
					builds = append(builds, rt.Orchestrator.ListCancelled()...)
				default:
					return types.NewValidation("state", fmt.Sprintf("unknown partition %q (active, completed, cancelled, all)", state))
				}

				if c.config.JSON {
					return c.printJSON(builds)
				}
				if len(builds) == 0 {
					c.printInfo("No builds")
					return nil
				}
				c.renderBuilds(builds)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "all", "partition to list (active, completed, cancelled, all)")
	return cmd
}

func (c *CLI) newBuildApproveCmd() *cobra.Command {
	var (
		target  string
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "approve <build-id>",
		Short: "Approve a ready build for deployment",
		Long: `Approve a build that is ready for approval. Deployment finishes after the
configured deploy delay while the engine runs; --wait runs the engine
until the app is deployed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "builds.approve", true, func(ctx context.Context, rt *Runtime) error {
				if !wait {
					rec, err := rt.Orchestrator.Approve(ctx, args[0], target)
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(rec)
					}
					c.printSuccess(fmt.Sprintf("Deploying %s to %s", rec.Name, rec.DeploymentTarget))
					c.printInfo("Deployment completes once 'foreman serve' runs, or pass --wait")
					return nil
				}

				rec, err := c.approveAndWait(ctx, rt, args[0], target, timeout)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(rec)
				}
				c.printSuccess(fmt.Sprintf("%s deployed at %s", rec.Name, rec.DeploymentURL))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "deployment target (default vercel)")
	cmd.Flags().BoolVar(&wait, "wait", false, "run the engine until the deployment finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long --wait waits")
	return cmd
}

// approveAndWait starts the engine, approves the build and blocks until
// its app-deployed event arrives
func (c *CLI) approveAndWait(ctx context.Context, rt *Runtime, buildID, target string, timeout time.Duration) (*types.BuildRecord, error) {
	events, unsubscribe := rt.Deps.Broadcaster.Subscribe(64)
	defer unsubscribe()

	if err := rt.Orchestrator.Start(ctx); err != nil {
		return nil, err
	}
	if _, err := rt.Orchestrator.Approve(ctx, buildID, target); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("event stream closed before %s deployed", buildID)
			}
			if ev.Type != types.EventAppDeployed {
				continue
			}
			rec, err := rt.Orchestrator.Get(buildID)
			if err != nil {
				return nil, err
			}
			if rec.State == types.BuildStateDeployed {
				return rec, nil
			}
		case <-waitCtx.Done():
			return nil, fmt.Errorf("timed out after %s waiting for %s to deploy", timeout, buildID)
		}
	}
}

func (c *CLI) newBuildPaymentCmd() *cobra.Command {
	var (
		providerName string
		pricing      map[string]string
	)

	cmd := &cobra.Command{
		Use:   "payment <build-id>",
		Short: "Record payment setup on a completed build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "builds.payment", true, func(ctx context.Context, rt *Runtime) error {
				cfg := types.PaymentConfig{Provider: providerName, Pricing: parsePricing(pricing)}
				rec, err := rt.Orchestrator.ConfigurePayment(ctx, args[0], cfg)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(rec)
				}
				c.printSuccess(fmt.Sprintf("Payment %s via %s for %s", rec.Payment.Status, rec.Payment.Provider, rec.Name))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "payment provider (default stripe)")
	cmd.Flags().StringToStringVar(&pricing, "price", nil, "pricing entries, e.g. --price monthly=9.99,yearly=99")
	return cmd
}

// parsePricing keeps numeric prices as numbers
func parsePricing(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}
