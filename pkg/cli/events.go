package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newEventsCmd() *cobra.Command {
	var (
		limit        int
		follow       bool
		eventType    string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the persisted event log",
		Long: `Print the most recent events from the store. With --follow new events
are printed as 'foreman serve' records them until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "events", false, func(ctx context.Context, rt *Runtime) error {
				if !rt.Config.Notifications.EventLog {
					c.printWarning("Event log is disabled (notifications.eventLog: false)")
				}

				events, err := rt.Deps.Store.Events(ctx, limit)
				if err != nil {
					return err
				}
				seen := make(map[string]bool, len(events))
				for _, e := range events {
					seen[e.ID] = true
					if err := c.printEvent(e, eventType); err != nil {
						return err
					}
				}
				if !follow {
					return nil
				}
				return c.followEvents(ctx, rt.Deps.Store, seen, eventType, pollInterval)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of recent events to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new events")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "only show events of this type")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "how often --follow reads the store")
	return cmd
}

// followEvents polls the store until ctx ends and prints events not yet in seen
func (c *CLI) followEvents(ctx context.Context, st store.Store, seen map[string]bool, eventType string, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		events, err := st.Events(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, e := range events {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if err := c.printEvent(e, eventType); err != nil {
				return err
			}
		}
	}
}

func (c *CLI) printEvent(e types.Event, eventType string) error {
	if eventType != "" && e.Type != eventType {
		return nil
	}
	if c.config.JSON {
		enc := json.NewEncoder(c.output)
		return enc.Encode(e)
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	fmt.Fprintf(c.output, "%s %s %s\n",
		color.HiBlackString(e.Timestamp.Format(time.RFC3339)),
		eventColor(e.Type),
		truncate(string(data), 160))
	return nil
}

func eventColor(t string) string {
	switch t {
	case types.EventAppDeployed, types.EventBuildCompleted, types.EventPaymentConfigured:
		return color.GreenString(t)
	case types.EventBuildCancelled:
		return color.RedString(t)
	case types.EventBuildStarted, types.EventBuildProgress:
		return color.YellowString(t)
	default:
		return color.CyanString(t)
	}
}
