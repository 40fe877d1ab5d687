package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Payment defaults
const (
	DefaultPaymentProvider  = "stripe"
	PaymentStatusConfigured = "configured"
)

// DefaultDeployDelay is how long a simulated deployment takes
const DefaultDeployDelay = 5 * time.Second

// Deployer handles the post-completion lifecycle: approval, the simulated
// deployment and payment configuration
type Deployer struct {
	registry  *BuildRegistry
	timers    *timerSet
	clock     clock.Clock
	publisher notifier.Publisher
	logger    logger.Logger

	mu    sync.RWMutex
	delay time.Duration
}

func newDeployer(registry *BuildRegistry, timers *timerSet, c clock.Clock, pub notifier.Publisher, log logger.Logger, delay time.Duration) *Deployer {
	if delay <= 0 {
		delay = DefaultDeployDelay
	}
	return &Deployer{
		registry:  registry,
		timers:    timers,
		clock:     c,
		publisher: pub,
		logger:    log.WithComponent("deploy"),
		delay:     delay,
	}
}

// Approve starts deployment of a ready-for-approval build. The build
// becomes deployed after the deploy delay.
func (d *Deployer) Approve(ctx context.Context, buildID, target string) (*types.BuildRecord, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		target = DefaultDeploymentTarget
	}

	rec, err := d.registry.approve(buildID, target, d.clock.Now())
	if err != nil {
		return nil, err
	}

	d.logger.WithBuild(buildID).Info("Deployment approved", logger.WithField("target", target))
	d.arm(buildID, d.Delay())
	return rec, nil
}

// ConfigurePayment records payment setup on a completed build
func (d *Deployer) ConfigurePayment(ctx context.Context, buildID string, cfg types.PaymentConfig) (*types.BuildRecord, error) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultPaymentProvider
	}
	cfg.Status = PaymentStatusConfigured
	cfg.ConfiguredAt = d.clock.Now()

	rec, err := d.registry.configurePayment(buildID, cfg)
	if err != nil {
		return nil, err
	}

	d.logger.WithBuild(buildID).Info("Payment configured", logger.WithField("provider", cfg.Provider))
	d.publisher.Publish(notifier.NewEvent(types.EventPaymentConfigured, rec, cfg.ConfiguredAt))
	return rec, nil
}

// SetDelay changes the deploy delay for future approvals
func (d *Deployer) SetDelay(delay time.Duration) {
	if delay <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Delay returns the deploy delay
func (d *Deployer) Delay() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.delay
}

// resume re-arms the deploy timer of a restored deploying build with
// whatever remains of its delay
func (d *Deployer) resume(rec *types.BuildRecord) {
	remaining := time.Duration(0)
	if rec.ApprovedAt != nil {
		remaining = rec.ApprovedAt.Add(d.Delay()).Sub(d.clock.Now())
	}
	if remaining < 0 {
		remaining = 0
	}
	d.arm(rec.ID, remaining)
}

func (d *Deployer) arm(buildID string, delay time.Duration) {
	d.timers.schedule(deployKeyPrefix+buildID, delay, func() { d.finish(buildID) })
}

func (d *Deployer) finish(buildID string) {
	rec, ok := d.registry.finishDeploy(buildID, d.clock.Now())
	if !ok {
		return
	}
	d.logger.WithBuild(buildID).Success("App deployed", logger.WithField("url", rec.DeploymentURL))
	d.publisher.Publish(notifier.NewEvent(types.EventAppDeployed, rec, *rec.DeployedAt))
}
