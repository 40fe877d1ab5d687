package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/config"
)

func (c *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, show and validate the configuration",
	}

	cmd.AddCommand(
		c.newConfigInitCmd(),
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long:  `Print the configuration after defaults, the config file, environment and flags are applied.`,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, path, err := c.loadForemanConfig()
				if err != nil {
					return err
				}
				data, err := config.NewManager().Encode(cfg, c.config.JSON)
				if err != nil {
					return err
				}
				if !c.config.JSON {
					source := path
					if source == "" {
						source = "defaults"
					}
					fmt.Fprintf(c.output, "# source: %s\n", source)
				}
				_, err = c.output.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, path, err := c.loadForemanConfig()
				if err != nil {
					return err
				}
				if path == "" {
					c.printWarning("No configuration file found; the defaults are valid")
					return nil
				}
				c.printSuccess(fmt.Sprintf("%s is valid", path))
				return nil
			},
		},
	)
	return cmd
}

func (c *CLI) newConfigInitCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to foreman.yaml (or foreman.json with
--format json) in the project root, or to --config when given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfigInit(format, force)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "file format (yaml, json)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration")
	return cmd
}

func (c *CLI) runConfigInit(format string, force bool) error {
	path := c.config.ConfigFile
	if path == "" {
		switch format {
		case "yaml", "yml":
			path = filepath.Join(c.config.ProjectRoot, "foreman.yaml")
		case "json":
			path = filepath.Join(c.config.ProjectRoot, "foreman.json")
		default:
			return fmt.Errorf("unknown format %q (yaml, json)", format)
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.NewManager().SaveConfig(path, config.DefaultConfig()); err != nil {
		return err
	}

	c.printSuccess(fmt.Sprintf("Created configuration at %s", path))
	c.printInfo("Edit scheduling to tune admission and run 'foreman serve' to start")
	return nil
}

func (c *CLI) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), "stats", false, func(ctx context.Context, rt *Runtime) error {
				stats := rt.Orchestrator.Stats()
				if c.config.JSON {
					return c.printJSON(stats)
				}
				c.renderStats(stats)
				return nil
			})
		},
	}
}
