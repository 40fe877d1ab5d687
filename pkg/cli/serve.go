package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foreman-dev/foreman/pkg/daemon"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/process"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/utils"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Foreman engine in the foreground",
		Long: `Start the autonomous build engine. It restores persisted builds, admits
queued opportunities on every tick, advances builds and regenerates
opportunities until interrupted. The configuration file is watched and
scheduling changes are applied without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), generate)
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "generate an opportunity batch immediately on start")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, generate bool) error {
	cfg, path, err := c.loadForemanConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.CreateLogger(cfg.Logging.File, string(cfg.Logging.Level))
	d := daemon.NewManager(daemon.Config{
		ConfigPath: path,
		Foreman:    cfg,
		Logger:     log,
	})

	if err := d.Start(ctx); err != nil {
		return err
	}
	if generate {
		d.Orchestrator().GenerateOpportunities()
	}

	c.printSuccess(fmt.Sprintf("Foreman is running (pid file %s). Press Ctrl+C to stop.", d.PIDFile()))
	<-d.Done()
	return nil
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the engine is running and its counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

// statusReport combines daemon status with stats read from the store
type statusReport struct {
	Daemon       *daemon.Status `json:"daemon"`
	Stats        types.Stats    `json:"stats"`
	StorageBytes int64          `json:"storageBytes"`
}

func (c *CLI) runStatus(ctx context.Context) error {
	cfg, _, err := c.loadForemanConfig()
	if err != nil {
		return err
	}
	status, err := daemon.ReadStatus(daemon.StateDir(cfg))
	if err != nil {
		return err
	}

	return c.withEngine(ctx, "status", false, func(ctx context.Context, rt *Runtime) error {
		report := statusReport{Daemon: status, Stats: rt.Orchestrator.Stats()}
		if rt.Config.Storage.Driver != types.StorageDriverMemory {
			size, err := utils.DirectorySize(rt.Config.Storage.Path)
			if err != nil {
				c.commandLogger().Warn("Failed to measure storage directory", logger.WithError(err))
			}
			report.StorageBytes = size
		}
		if c.config.JSON {
			return c.printJSON(report)
		}

		switch {
		case status.Running:
			c.printSuccess(fmt.Sprintf("Engine running (pid %d, up %s, last heartbeat %s)",
				status.PID,
				humanize.RelTime(status.StartedAt, time.Now(), "", ""),
				relTime(status.LastHeartbeat)))
		case status.PID != 0:
			c.printWarning(fmt.Sprintf("Engine not running (stale pid file for %d)", status.PID))
		default:
			c.printWarning("Engine not running")
		}
		fmt.Fprintf(c.output, "Storage: %s %s (%s)\n",
			color.CyanString(string(rt.Config.Storage.Driver)),
			rt.Config.Storage.Path,
			humanize.Bytes(uint64(report.StorageBytes)))
		c.renderStats(report.Stats)
		return nil
	})
}

func (c *CLI) newStopCmd() *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running 'foreman serve'",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStop(grace)
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 15*time.Second, "time to wait before force killing")
	return cmd
}

func (c *CLI) runStop(grace time.Duration) error {
	cfg, _, err := c.loadForemanConfig()
	if err != nil {
		return err
	}
	status, err := daemon.ReadStatus(daemon.StateDir(cfg))
	if err != nil {
		return err
	}
	if !status.Running {
		c.printWarning("Engine is not running")
		return nil
	}

	c.printInfo(fmt.Sprintf("Stopping engine (pid %d)...", status.PID))
	if err := process.KillProcess(status.PID, grace); err != nil {
		return errors.Join(daemon.ErrDaemonStopFailed, err)
	}
	c.printSuccess("Engine stopped")
	return nil
}
