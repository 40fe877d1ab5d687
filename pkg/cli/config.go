package cli

import (
	"context"
	"time"

	fcontext "github.com/foreman-dev/foreman/pkg/context"
)

// Config holds the CLI flag values. Each CLI owns its own Config so tests
// can run commands side by side.
type Config struct {
	ConfigFile    string
	ProjectRoot   string
	LogLevel      string
	StorageDriver string
	StoragePath   string
	JSON          bool
	Version       string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectRoot: ".",
	}
}

// RuntimeConfig holds per-command runtime state
type RuntimeConfig struct {
	Config    *Config
	Context   context.Context
	StartTime time.Time
}

// NewRuntimeConfig creates a runtime configuration whose context carries a
// correlation id and the command name for log lines
func NewRuntimeConfig(ctx context.Context, cfg *Config, operation string) *RuntimeConfig {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RuntimeConfig{
		Config:    cfg,
		Context:   fcontext.Begin(ctx, operation),
		StartTime: time.Now(),
	}
}

// WithTimeout creates a new context with timeout
func (rc *RuntimeConfig) WithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(rc.Context, timeout)
}

// CorrelationID returns the id attached to this command's context
func (rc *RuntimeConfig) CorrelationID() string {
	return fcontext.CorrelationID(rc.Context)
}
