package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect agents and chat with them",
		Long: `The master orchestrator, the primary build team and the guided session
specialists are seeded the first time a state directory is used and kept
with the rest of the engine state. Commands that take an agent accept its
id, role or name.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered agents",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "agents.list", false, func(ctx context.Context, rt *Runtime) error {
					list := rt.Deps.Agents.List()
					if c.config.JSON {
						return c.printJSON(list)
					}
					tw := c.newTable("ID", "Name", "Role", "Provider", "Model", "Status")
					for _, a := range list {
						tw.AppendRow(table.Row{a.ID, a.Name, a.Role, a.Provider, a.Model, a.Status})
					}
					tw.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <agent>",
			Short: "Show one agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "agents.show", false, func(ctx context.Context, rt *Runtime) error {
					a, err := resolveAgent(rt.Deps.Agents, args[0])
					if err != nil {
						return err
					}
					if c.config.JSON {
						return c.printJSON(a)
					}
					fmt.Fprintf(c.output, "%s (%s)\n", color.New(color.Bold).Sprint(a.Name), a.Role)
					fmt.Fprintf(c.output, "  ID:           %s\n", a.ID)
					fmt.Fprintf(c.output, "  Provider:     %s %s\n", a.Provider, a.Model)
					fmt.Fprintf(c.output, "  Temperature:  %.1f, max tokens %d\n", a.Temperature, a.MaxTokens)
					if a.Description != "" {
						fmt.Fprintf(c.output, "  Description:  %s\n", a.Description)
					}
					if len(a.Capabilities) > 0 {
						fmt.Fprintf(c.output, "  Capabilities: %s\n", strings.Join(a.Capabilities, ", "))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "teams",
			Short: "List agent teams",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "agents.teams", false, func(ctx context.Context, rt *Runtime) error {
					teams := rt.Deps.Agents.Teams()
					if c.config.JSON {
						return c.printJSON(teams)
					}
					tw := c.newTable("ID", "Purpose", "Members", "Status", "Apps Generated")
					for _, t := range teams {
						tw.AppendRow(table.Row{t.ID, truncate(t.Purpose, 48), len(t.AgentIDs), t.Status, t.AppsGenerated})
					}
					tw.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "blueprints",
			Short: "List the specialist roles used by guided sessions",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "agents.blueprints", false, func(ctx context.Context, rt *Runtime) error {
					bps := rt.Deps.Agents.Blueprints()
					if c.config.JSON {
						return c.printJSON(bps)
					}
					tw := c.newTable("Role", "Title", "Expertise")
					for _, bp := range bps {
						tw.AppendRow(table.Row{bp.Role, bp.Title, truncate(bp.Expertise, 56)})
					}
					tw.Render()
					return nil
				})
			},
		},
		c.newAgentCreateCmd(),
		&cobra.Command{
			Use:   "delete <agent>",
			Short: "Remove an agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withEngine(cmd.Context(), "agents.delete", true, func(ctx context.Context, rt *Runtime) error {
					a, err := resolveAgent(rt.Deps.Agents, args[0])
					if err != nil {
						return err
					}
					rt.Deps.Agents.Remove(a.ID)
					if c.config.JSON {
						return c.printJSON(map[string]string{"id": a.ID, "status": "deleted"})
					}
					c.printSuccess(fmt.Sprintf("Deleted %s (%s)", a.Name, a.ID))
					return nil
				})
			},
		},
		c.newAgentChatCmd(),
	)
	return cmd
}

func (c *CLI) newAgentCreateCmd() *cobra.Command {
	var def types.AgentDefinition

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new agent",
		Example: `  foreman agents create --name "Copy Writer" --role marketer --provider openai \
    --model gpt-4o --system-prompt "You write landing page copy."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "agents.create", true, func(ctx context.Context, rt *Runtime) error {
				a, err := rt.Deps.Agents.Register(def)
				if err != nil {
					return err
				}
				if c.config.JSON {
					return c.printJSON(a)
				}
				c.printSuccess(fmt.Sprintf("Registered %s (%s)", a.Name, a.ID))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&def.Name, "name", "", "agent name")
	flags.StringVar(&def.Role, "role", "", "agent role")
	flags.StringVar(&def.Provider, "provider", provider.XAI, "provider (openai, anthropic, xai)")
	flags.StringVar(&def.Model, "model", "", "model name")
	flags.StringVar(&def.Description, "description", "", "short description")
	flags.StringVar(&def.SystemPrompt, "system-prompt", "", "system prompt sent before every conversation")
	flags.Float64Var(&def.Temperature, "temperature", agents.DefaultTemperature, "sampling temperature (0-2)")
	flags.IntVar(&def.MaxTokens, "max-tokens", agents.DefaultMaxTokens, "reply token limit")
	flags.StringSliceVar(&def.Capabilities, "capability", nil, "capability, repeatable")
	return cmd
}

func (c *CLI) newAgentChatCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "chat <agent> [message...]",
		Short: "Send a message to an agent",
		Long: `Send a message to an agent and print the reply. With --interactive every
line read from stdin continues the same conversation until EOF.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args[1:], " ")
			if message == "" && !interactive {
				return types.NewValidation("message", "message is required")
			}

			return c.withEngine(cmd.Context(), "agents.chat", true, func(ctx context.Context, rt *Runtime) error {
				agent, err := resolveAgent(rt.Deps.Agents, args[0])
				if err != nil {
					return err
				}

				conversation := ""
				send := func(text string) error {
					res, err := rt.Deps.Agents.Chat(ctx, agent.ID, text, conversation)
					if err != nil {
						return err
					}
					conversation = res.ConversationID
					if c.config.JSON {
						return c.printJSON(res)
					}
					fmt.Fprintf(c.output, "%s %s\n", color.MagentaString(agent.Name+":"), res.Message)
					return nil
				}

				if message != "" {
					if err := send(message); err != nil {
						return err
					}
				}
				if !interactive {
					return nil
				}

				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					if err := send(line); err != nil {
						return err
					}
				}
				return scanner.Err()
			})
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "keep reading messages from stdin")
	return cmd
}

// resolveAgent finds an agent by id, then by role, then by name
func resolveAgent(reg *agents.Registry, ref string) (types.AgentDefinition, error) {
	if a, err := reg.Get(ref); err == nil {
		return a, nil
	}
	list := reg.List()
	for _, a := range list {
		if strings.EqualFold(a.Role, ref) {
			return a, nil
		}
	}
	for _, a := range list {
		if strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}
	return types.AgentDefinition{}, types.NewNotFound("agent", ref)
}
