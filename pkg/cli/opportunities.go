package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newOpportunitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"ops"},
		Short:   "Generate and queue app opportunities",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Generate a batch and queue the top ranked opportunities",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "opportunities.generate", true, func(ctx context.Context, rt *Runtime) error {
					batch := rt.Orchestrator.GenerateOpportunities()
					if c.config.JSON {
						return c.printJSON(batch)
					}
					c.renderOpportunities(batch.Opportunities)
					if len(batch.Queued) == 0 {
						c.printWarning("No new opportunities queued")
					} else {
						c.printSuccess(fmt.Sprintf("Queued %s (queue length %d)", strings.Join(batch.Queued, ", "), batch.QueueLength))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "queue",
			Short: "List queued opportunities in admission order",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "opportunities.queue", false, func(ctx context.Context, rt *Runtime) error {
					queue := rt.Orchestrator.ListQueue()
					if c.config.JSON {
						return c.printJSON(queue)
					}
					if len(queue) == 0 {
						c.printInfo("Queue is empty")
						return nil
					}
					c.renderOpportunities(queue)
					return nil
				})
			},
		},
		c.newOpportunityAddCmd(),
		&cobra.Command{
			Use:   "tick",
			Short: "Run one admission step now",
			Long:  `Admit the head of the queue if the concurrency cap allows it.`,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "opportunities.tick", true, func(ctx context.Context, rt *Runtime) error {
					rec, err := rt.Orchestrator.Tick(ctx)
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(rec)
					}
					if rec == nil {
						c.printWarning(fmt.Sprintf("Nothing admitted (capacity %d)", rt.Orchestrator.Capacity()))
						return nil
					}
					c.printSuccess(fmt.Sprintf("Started build %s for %s", rec.ID, rec.Name))
					return nil
				})
			},
		},
	)
	return cmd
}

func (c *CLI) newOpportunityAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue opportunities from a JSON file",
		Long: `Read one opportunity object or an array of them from --file (or stdin
with "-") and add each to the queue. Duplicates of queued or active
opportunities are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := readOpportunities(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			return c.withEngine(cmd.Context(), "opportunities.add", true, func(ctx context.Context, rt *Runtime) error {
				added := make([]string, 0, len(ops))
				for _, op := range ops {
					ok, err := rt.Orchestrator.Enqueue(op)
					if err != nil {
						return fmt.Errorf("opportunity %q: %w", op.ID, err)
					}
					if ok {
						added = append(added, op.ID)
					} else {
						c.printWarning(fmt.Sprintf("Skipped duplicate %s", op.ID))
					}
				}
				if c.config.JSON {
					return c.printJSON(map[string]any{"queued": added})
				}
				c.printSuccess(fmt.Sprintf("Queued %d opportunit(ies)", len(added)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with one opportunity or an array")
	return cmd
}

func readOpportunities(stdin io.Reader, file string) ([]types.Opportunity, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read opportunities: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var ops []types.Opportunity
		if err := json.Unmarshal(data, &ops); err != nil {
			return nil, fmt.Errorf("failed to parse opportunities: %w", err)
		}
		return ops, nil
	}

	var op types.Opportunity
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("failed to parse opportunity: %w", err)
	}
	return []types.Opportunity{op}, nil
}
