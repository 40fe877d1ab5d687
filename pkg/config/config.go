// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/utils"
)

// CurrentVersion is the only supported config version
const CurrentVersion = "1.0"

// DefaultStoragePath is where file-backed stores live unless configured
const DefaultStoragePath = ".foreman"

// FileNames are the config files searched for, in order
var FileNames = []string{"foreman.yaml", "foreman.yml", "foreman.json"}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *types.ForemanConfig {
	return &types.ForemanConfig{
		Version: CurrentVersion,
		Scheduling: types.SchedulingConfig{
			MaxConcurrentBuilds: 3,
			TickInterval:        types.Duration(30 * time.Second),
			OpportunityInterval: types.Duration(60 * time.Second),
			ProgressInterval:    types.Duration(2 * time.Second),
			ProgressIncrement:   10,
			DeployDelay:         types.Duration(5 * time.Second),
			TopK:                3,
		},
		Opportunities: types.OpportunityConfig{
			Jitter: 0.3,
		},
		Storage: types.StorageConfig{
			Driver: types.StorageDriverSQLite,
			Path:   DefaultStoragePath,
		},
		Provider: types.ProviderConfig{
			Kind:    types.ProviderKindSimulated,
			Timeout: types.Duration(30 * time.Second),
		},
		Notifications: types.NotificationConfig{
			EventLog: true,
		},
		Logging: types.LoggingConfig{
			Level: types.LogLevelInfo,
		},
	}
}

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig reads a JSON or YAML file over the defaults and validates it.
// Fields the file leaves out keep their default values.
func (m *Manager) LoadConfig(path string) (*types.ForemanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := m.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes JSON or YAML config data over the defaults without
// validating it
func (m *Manager) Parse(data []byte) (*types.ForemanConfig, error) {
	cfg := DefaultConfig()

	// Try JSON first
	if err := json.Unmarshal(data, cfg); err == nil {
		return cfg, nil
	}

	// YAML goes through JSON so durations accept the same "30s" and
	// millisecond forms in both formats
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse config as JSON or YAML: %w", err)
	}
	jsonData, err := json.Marshal(yamlData)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML config: %w", err)
	}
	cfg = DefaultConfig()
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.ForemanConfig) error {
	if cfg.Version != CurrentVersion {
		return types.NewValidation("version", fmt.Sprintf("unsupported config version: %s", cfg.Version))
	}

	s := cfg.Scheduling
	if s.MaxConcurrentBuilds < 1 {
		return types.NewValidation("scheduling.maxConcurrentBuilds", "must be at least 1")
	}
	for field, d := range map[string]types.Duration{
		"scheduling.tickInterval":        s.TickInterval,
		"scheduling.opportunityInterval": s.OpportunityInterval,
		"scheduling.progressInterval":    s.ProgressInterval,
		"scheduling.deployDelay":         s.DeployDelay,
	} {
		if d <= 0 {
			return types.NewValidation(field, "must be positive")
		}
	}
	if s.ProgressIncrement < 1 || s.ProgressIncrement > 100 {
		return types.NewValidation("scheduling.progressIncrement", "must be within [1, 100]")
	}
	if s.TopK < 1 {
		return types.NewValidation("scheduling.topK", "must be at least 1")
	}

	if j := cfg.Opportunities.Jitter; j < 0 || j > 1 {
		return types.NewValidation("opportunities.jitter", "must be within [0, 1]")
	}

	switch cfg.Storage.Driver {
	case types.StorageDriverMemory:
	case types.StorageDriverJSON, types.StorageDriverSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return types.NewValidation("storage.path", "required for the "+string(cfg.Storage.Driver)+" driver")
		}
	default:
		return types.NewValidation("storage.driver", fmt.Sprintf("unknown driver %q", cfg.Storage.Driver))
	}

	switch cfg.Provider.Kind {
	case types.ProviderKindSimulated, types.ProviderKindHTTP:
	default:
		return types.NewValidation("provider.kind", fmt.Sprintf("unknown provider kind %q", cfg.Provider.Kind))
	}

	switch cfg.Logging.Level {
	case types.LogLevelDebug, types.LogLevelInfo, types.LogLevelWarn, types.LogLevelError:
	default:
		return types.NewValidation("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}
	return nil
}

// SaveConfig writes cfg to path as YAML, or as JSON when path ends in .json
func (m *Manager) SaveConfig(path string, cfg *types.ForemanConfig) error {
	data, err := m.Encode(cfg, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders cfg as indented JSON or as YAML with the same keys
func (m *Manager) Encode(cfg *types.ForemanConfig, asJSON bool) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if asJSON {
		return append(data, '\n'), nil
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if data, err = yaml.Marshal(generic); err != nil {
		return nil, fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return data, nil
}

// FindConfig returns the first config file from FileNames present in dir
func FindConfig(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overridden.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}
