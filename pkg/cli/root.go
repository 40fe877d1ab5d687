// Package cli provides the command-line interface for Foreman
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foreman-dev/foreman/pkg/config"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

// EnvPrefix prefixes every environment variable the CLI reads
const EnvPrefix = "FOREMAN"

// CLI encapsulates the command-line interface without global state
type CLI struct {
	config   *Config
	viper    *viper.Viper
	rootCmd  *cobra.Command
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(config *Config) *CLI {
	if config == nil {
		config = NewConfig()
	}

	cli := &CLI{
		config:   config,
		viper:    viper.New(),
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(config *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(config)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// SetInput replaces stdin for commands that read from it
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

// ExecuteWithVersion runs the CLI on os.Args, printing a colored error line
// on failure
func ExecuteWithVersion(version string) error {
	cfg := NewConfig()
	cfg.Version = version
	cli := NewCLI(cfg)

	err := cli.Execute(os.Args[1:])
	if err != nil {
		cli.printError(describeError(err))
	}
	return err
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "foreman",
		Short: "Autonomous app factory: agents, opportunities and builds",
		Long: `Foreman runs a team of AI agents that identify app opportunities, build
them through a phased pipeline and deploy them once approved.

Run 'foreman serve' to start the engine, then use the other commands to
inspect and steer it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("Foreman v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newServeCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newStopCmd())
	c.rootCmd.AddCommand(c.newAgentsCmd())
	c.rootCmd.AddCommand(c.newOpportunitiesCmd())
	c.rootCmd.AddCommand(c.newBuildsCmd())
	c.rootCmd.AddCommand(c.newStatsCmd())
	c.rootCmd.AddCommand(c.newSessionsCmd())
	c.rootCmd.AddCommand(c.newIntegrationsCmd())
	c.rootCmd.AddCommand(c.newEventsCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: foreman.yaml in the project root)")
	flags.StringVar(&c.config.ProjectRoot, "root", ".", "project root directory")
	flags.StringVarP(&c.config.LogLevel, "log-level", "v", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.config.StorageDriver, "storage", "", "storage driver override (memory, json, sqlite)")
	flags.StringVar(&c.config.StoragePath, "state-dir", "", "storage path override")
	flags.BoolVar(&c.config.JSON, "json", false, "output JSON")

	for key, flag := range map[string]string{
		"config":       "config",
		"root":         "root",
		"log-level":    "log-level",
		"storage":      "storage",
		"storage-path": "state-dir",
		"json":         "json",
	} {
		_ = c.viper.BindPFlag(key, flags.Lookup(flag))
	}

	c.viper.SetEnvPrefix(EnvPrefix)
	c.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.viper.AutomaticEnv()
}

// initializeConfig loads .env from the project root and resolves flag
// values through viper so FOREMAN_* variables fill unset flags
func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	root := c.viper.GetString("root")
	if err := config.LoadEnv(filepath.Join(root, ".env")); err != nil {
		return err
	}

	c.config.ConfigFile = c.viper.GetString("config")
	c.config.ProjectRoot = c.viper.GetString("root")
	c.config.LogLevel = c.viper.GetString("log-level")
	c.config.StorageDriver = c.viper.GetString("storage")
	c.config.StoragePath = c.viper.GetString("storage-path")
	c.config.JSON = c.viper.GetBool("json")
	return nil
}

// loadForemanConfig reads the config file, or the defaults when none is
// found, and applies flag and environment overrides. It returns the path
// of the file used, or "".
func (c *CLI) loadForemanConfig() (*types.ForemanConfig, string, error) {
	manager := config.NewManager()

	path := c.getConfigPath()
	var cfg *types.ForemanConfig
	if path != "" {
		loaded, err := manager.LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if c.config.StorageDriver != "" {
		cfg.Storage.Driver = types.StorageDriver(c.config.StorageDriver)
	}
	if c.config.StoragePath != "" {
		cfg.Storage.Path = c.config.StoragePath
	}
	if cfg.Storage.Path != "" && !filepath.IsAbs(cfg.Storage.Path) {
		cfg.Storage.Path = filepath.Join(c.config.ProjectRoot, cfg.Storage.Path)
	}
	if kind := c.viper.GetString("provider.kind"); kind != "" {
		cfg.Provider.Kind = types.ProviderKind(kind)
	}
	if c.config.LogLevel != "" {
		cfg.Logging.Level = types.LogLevel(c.config.LogLevel)
	}

	if err := manager.ValidateConfig(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// getConfigPath returns the --config file, or the first config file found
// in the project root, or ""
func (c *CLI) getConfigPath() string {
	if c.config.ConfigFile != "" {
		return c.config.ConfigFile
	}
	if path, ok := config.FindConfig(c.config.ProjectRoot); ok {
		return path
	}
	return ""
}

// commandLogger returns the logger for a one-shot command. Engine logs go
// to stderr and stay quiet unless a level is requested.
func (c *CLI) commandLogger() logger.Logger {
	if c.logger != nil {
		return c.logger
	}
	level := c.config.LogLevel
	if level == "" {
		level = string(types.LogLevelWarn)
	}
	c.logger = logger.CreateLoggerWithOutput(level, c.errorOut)
	return c.logger
}

// messageOut is where status lines go. They move to stderr under --json
// so stdout stays parseable.
func (c *CLI) messageOut() io.Writer {
	if c.config.JSON {
		return c.errorOut
	}
	return c.output
}

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.messageOut(), "%s %s\n", color.GreenString("[Foreman]"), message)
}

func (c *CLI) printError(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.RedString("[Foreman]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.messageOut(), "%s %s\n", color.CyanString("[Foreman]"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.messageOut(), "%s %s\n", color.YellowString("[Foreman]"), message)
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Foreman",
		Run: func(cmd *cobra.Command, args []string) {
			if c.config.JSON {
				c.printJSON(map[string]string{"version": c.config.Version})
				return
			}
			fmt.Fprintf(c.output, "Foreman v%s\n", c.config.Version)
		},
	}
}
