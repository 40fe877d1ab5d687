package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/integrations"
	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newIntegrationsCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:     "integrations",
		Aliases: []string{"int"},
		Short:   "Connect external services such as Vercel, Resend or Supabase",
		Long: `Integrations are external services builds can use. Connecting one stores
its configuration with API keys and tokens masked to their last four
characters. Connections belong to a user; --user defaults to ` + integrations.DefaultUserID + `.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available integrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.list", false, func(ctx context.Context, rt *Runtime) error {
					catalog := rt.Deps.Integrations.Catalog()
					if c.config.JSON {
						return c.printJSON(catalog)
					}
					tw := c.newTable("ID", "Name", "Setup", "Auth", "Features")
					for _, in := range catalog {
						auth := "none"
						if in.RequiresAuth {
							auth = in.AuthType
						}
						tw.AppendRow(table.Row{in.ID, in.Icon + " " + in.Name, in.SetupComplexity, auth, truncate(strings.Join(in.Features, ", "), 48)})
					}
					tw.Render()
					return nil
				})
			},
		},
		c.newIntegrationConnectCmd(&user),
		&cobra.Command{
			Use:   "connections",
			Short: "List a user's connections",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.connections", false, func(ctx context.Context, rt *Runtime) error {
					conns := rt.Deps.Integrations.Connections(user)
					if c.config.JSON {
						if conns == nil {
							conns = []*types.IntegrationConnection{}
						}
						return c.printJSON(conns)
					}
					if len(conns) == 0 {
						c.printInfo("No connections")
						return nil
					}
					tw := c.newTable("ID", "Integration", "Status", "Connected", "Uses", "Last Used")
					for _, conn := range conns {
						tw.AppendRow(table.Row{conn.ID, conn.IntegrationName, connectionStatus(conn.Status),
							relTime(conn.ConnectedAt), conn.UsageCount, relTimePtr(conn.LastUsed)})
					}
					tw.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "disconnect <connection-id>",
			Short: "Disconnect a connection",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.disconnect", true, func(ctx context.Context, rt *Runtime) error {
					conn, err := rt.Deps.Integrations.Disconnect(ctx, args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(conn)
					}
					c.printSuccess(fmt.Sprintf("Disconnected %s (%s)", conn.IntegrationName, conn.ID))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "test <connection-id>",
			Short: "Check that a connection is healthy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.test", false, func(ctx context.Context, rt *Runtime) error {
					result, err := rt.Deps.Integrations.Test(ctx, args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(result)
					}
					if result.Status != integrations.TestSuccess {
						fmt.Fprintf(c.output, "%s %s\n", color.RedString("✗"), result.Message)
						return nil
					}
					c.printSuccess(fmt.Sprintf("%s (%dms)", result.Message, result.LatencyMs))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "exec <connection-id> <action>",
			Short: "Run an action through a connection",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.exec", true, func(ctx context.Context, rt *Runtime) error {
					result, err := rt.Deps.Integrations.Execute(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(result)
					}
					c.printSuccess(result.Result)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show connection counts per integration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "integrations.stats", false, func(ctx context.Context, rt *Runtime) error {
					stats := rt.Deps.Integrations.Stats()
					if c.config.JSON {
						return c.printJSON(stats)
					}
					fmt.Fprintf(c.output, "%d integrations, %d connections (%d active)\n",
						stats.TotalIntegrations, stats.TotalConnections, stats.ActiveConnections)

					ids := make([]string, 0, len(stats.ByIntegration))
					for id := range stats.ByIntegration {
						ids = append(ids, id)
					}
					sort.Strings(ids)
					tw := c.newTable("Integration", "Active Connections")
					for _, id := range ids {
						usage := stats.ByIntegration[id]
						tw.AppendRow(table.Row{usage.Name, usage.Connections})
					}
					tw.Render()
					return nil
				})
			},
		},
	)

	cmd.PersistentFlags().StringVar(&user, "user", "", "user id (default "+integrations.DefaultUserID+")")
	return cmd
}

func (c *CLI) newIntegrationConnectCmd(user *string) *cobra.Command {
	var config map[string]string

	cmd := &cobra.Command{
		Use:   "connect <integration>",
		Short: "Connect an integration",
		Example: `  foreman integrations connect vercel --config apiKey=vc_123456,team=acme
  foreman integrations connect vscode`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "integrations.connect", true, func(ctx context.Context, rt *Runtime) error {
				conn, err := rt.Deps.Integrations.Connect(ctx, *user, args[0], config)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(conn)
				}
				c.printSuccess(fmt.Sprintf("Connected %s (%s)", conn.IntegrationName, conn.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringToStringVar(&config, "config", nil, "configuration entries, e.g. --config apiKey=...,projectId=...")
	return cmd
}

func connectionStatus(status string) string {
	if status == types.ConnectionConnected {
		return color.GreenString(status)
	}
	return color.YellowString(status)
}
