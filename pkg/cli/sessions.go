package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Guided build-assistance sessions",
		Long: `A guided session walks a project goal through the specialist agents,
starting with the architect. Each guidance reply names the role that
should be asked next until the session is complete.`,
	}

	cmd.AddCommand(
		c.newSessionStartCmd(),
		&cobra.Command{
			Use:   "list",
			Short: "List sessions",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "sessions.list", false, func(ctx context.Context, rt *Runtime) error {
					list := rt.Sessions.List()
					if c.config.JSON {
						return c.printJSON(list)
					}
					if len(list) == 0 {
						c.printInfo("No sessions")
						return nil
					}
					tw := c.newTable("ID", "Goal", "Status", "Next Agent", "Steps", "Connected", "Started")
					for _, s := range list {
						tw.AppendRow(table.Row{
							s.ID, truncate(s.Goal, 40), s.Status, s.CurrentAgent,
							len(s.Steps), s.Connected, relTime(s.StartedAt),
						})
					}
					tw.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Show a session with its steps",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "sessions.show", false, func(ctx context.Context, rt *Runtime) error {
					s, err := rt.Sessions.Get(args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(s)
					}
					c.renderSession(s)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "guide <session-id> <role> <message...>",
			Short: "Ask a session specialist for guidance",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				message := strings.Join(args[2:], " ")
				return c.withEngine(cmd.Context(), "sessions.guide", true, func(ctx context.Context, rt *Runtime) error {
					g, err := rt.Sessions.Guidance(ctx, args[0], args[1], message)
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(g)
					}
					c.renderGuidance(g)
					return nil
				})
			},
		},
		c.newSessionConnectCmd(),
	)
	return cmd
}

func (c *CLI) newSessionStartCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "start <goal...>",
		Short: "Start a guided session for a project goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")
			return c.withEngine(cmd.Context(), "sessions.start", true, func(ctx context.Context, rt *Runtime) error {
				s, err := rt.Sessions.Start(ctx, user, goal)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(s)
				}
				c.printSuccess(fmt.Sprintf("Session %s started with %d agents; ask %q first", s.ID, len(s.AssignedAgents), s.CurrentAgent))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (generated when empty)")
	return cmd
}

func (c *CLI) newSessionConnectCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "connect <session-id>",
		Short: "Connect a workspace for direct implementation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "sessions.connect", true, func(ctx context.Context, rt *Runtime) error {
				s, err := rt.Sessions.Connect(ctx, args[0], workspace)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(s)
				}
				c.printSuccess(fmt.Sprintf("Session %s connected to %s", s.ID, s.Connection.Workspace))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace to connect")
	return cmd
}

func (c *CLI) renderSession(s *types.Session) {
	fmt.Fprintf(c.output, "%s  %s\n", color.New(color.Bold).Sprint(s.Goal), s.Status)
	fmt.Fprintf(c.output, "  ID:          %s (user %s)\n", s.ID, s.UserID)
	fmt.Fprintf(c.output, "  Started:     %s\n", relTime(s.StartedAt))
	fmt.Fprintf(c.output, "  Next agent:  %s\n", s.CurrentAgent)
	if s.Connection != nil {
		fmt.Fprintf(c.output, "  Workspace:   %s (connected %s)\n", s.Connection.Workspace, relTime(s.Connection.ConnectedAt))
	}
	fmt.Fprintf(c.output, "  Verified:    %d pass(es)\n", len(s.Verifications))

	tw := c.newTable("Role", "Title", "Agent")
	for _, a := range s.AssignedAgents {
		tw.AppendRow(table.Row{a.Role, a.Title, a.AgentID})
	}
	tw.Render()

	for i, step := range s.Steps {
		fmt.Fprintf(c.output, "%d. %s: %s\n", i+1, color.CyanString(step.Agent), step.Message)
		fmt.Fprintf(c.output, "   %s\n", truncate(step.Guidance.Message, 120))
	}
}

func (c *CLI) renderGuidance(g types.Guidance) {
	fmt.Fprintf(c.output, "%s %s\n", color.MagentaString(g.Agent+":"), g.Message)
	for _, step := range g.Steps {
		fmt.Fprintf(c.output, "  %d. %s\n", step.Number, step.Instruction)
		for _, q := range step.Questions {
			fmt.Fprintf(c.output, "     - %s\n", q)
		}
	}
	if g.RequiresVerification {
		fmt.Fprintln(c.output, color.YellowString("  Verification recorded"))
	}
	fmt.Fprintf(c.output, "Next: %s\n", g.NextAgent)
}
