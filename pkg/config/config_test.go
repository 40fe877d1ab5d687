package config_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foreman-dev/foreman/pkg/config"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := config.NewManager().ValidateConfig(config.DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "foreman.json")

	testConfig := map[string]interface{}{
		"version": "1.0",
		"scheduling": map[string]interface{}{
			"maxConcurrentBuilds": 5,
			"tickInterval":        "10s",
			"deployDelay":         2500,
		},
		"storage": map[string]interface{}{"driver": "json", "path": "state"},
	}

	data, _ := json.Marshal(testConfig)
	os.WriteFile(configPath, data, 0644)

	cfg, err := config.NewManager().LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Scheduling.MaxConcurrentBuilds != 5 {
		t.Errorf("expected capacity 5, got %d", cfg.Scheduling.MaxConcurrentBuilds)
	}
	if cfg.Scheduling.TickInterval.Std() != 10*time.Second {
		t.Errorf("expected 10s tick, got %v", cfg.Scheduling.TickInterval.Std())
	}
	if cfg.Scheduling.DeployDelay.Std() != 2500*time.Millisecond {
		t.Errorf("millisecond duration not decoded: %v", cfg.Scheduling.DeployDelay.Std())
	}
	if cfg.Scheduling.OpportunityInterval.Std() != 60*time.Second {
		t.Errorf("missing field lost its default: %v", cfg.Scheduling.OpportunityInterval.Std())
	}
	if cfg.Storage.Driver != types.StorageDriverJSON {
		t.Errorf("expected json driver, got %s", cfg.Storage.Driver)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "foreman.yaml")

	testConfig := map[string]interface{}{
		"version": "1.0",
		"scheduling": map[string]interface{}{
			"progressInterval": "500ms",
			"topK":             2,
		},
		"opportunities": map[string]interface{}{"seed": 42, "jitter": 0.1},
		"provider":      map[string]interface{}{"kind": "http", "timeout": "15s"},
		"logging":       map[string]interface{}{"level": "debug"},
	}

	data, _ := yaml.Marshal(testConfig)
	os.WriteFile(configPath, data, 0644)

	cfg, err := config.NewManager().LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Scheduling.ProgressInterval.Std() != 500*time.Millisecond || cfg.Scheduling.TopK != 2 {
		t.Errorf("scheduling = %+v", cfg.Scheduling)
	}
	if cfg.Opportunities.Seed != 42 || cfg.Opportunities.Jitter != 0.1 {
		t.Errorf("opportunities = %+v", cfg.Opportunities)
	}
	if cfg.Provider.Kind != types.ProviderKindHTTP || cfg.Provider.Timeout.Std() != 15*time.Second {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Logging.Level != types.LogLevelDebug {
		t.Errorf("logging level = %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := config.NewManager().LoadConfig(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	garbage := filepath.Join(tmpDir, "garbage.yaml")
	os.WriteFile(garbage, []byte("version: [unterminated"), 0644)
	if _, err := config.NewManager().LoadConfig(garbage); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.ForemanConfig)
		field  string
	}{
		{"bad version", func(c *types.ForemanConfig) { c.Version = "2.0" }, "version"},
		{"zero capacity", func(c *types.ForemanConfig) { c.Scheduling.MaxConcurrentBuilds = 0 }, "scheduling.maxConcurrentBuilds"},
		{"zero tick", func(c *types.ForemanConfig) { c.Scheduling.TickInterval = 0 }, "scheduling.tickInterval"},
		{"increment too large", func(c *types.ForemanConfig) { c.Scheduling.ProgressIncrement = 101 }, "scheduling.progressIncrement"},
		{"zero topK", func(c *types.ForemanConfig) { c.Scheduling.TopK = 0 }, "scheduling.topK"},
		{"jitter out of range", func(c *types.ForemanConfig) { c.Opportunities.Jitter = 1.5 }, "opportunities.jitter"},
		{"unknown driver", func(c *types.ForemanConfig) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"missing path", func(c *types.ForemanConfig) { c.Storage.Path = " " }, "storage.path"},
		{"unknown provider", func(c *types.ForemanConfig) { c.Provider.Kind = "grpc" }, "provider.kind"},
		{"unknown level", func(c *types.ForemanConfig) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			err := config.NewManager().ValidateConfig(cfg)
			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %s, want %s", verr.Field, tt.field)
			}
		})
	}

	memory := config.DefaultConfig()
	memory.Storage = types.StorageConfig{Driver: types.StorageDriverMemory}
	if err := config.NewManager().ValidateConfig(memory); err != nil {
		t.Errorf("memory driver needs no path: %v", err)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"foreman.yaml", "foreman.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := config.DefaultConfig()
			want.Scheduling.MaxConcurrentBuilds = 7

			if err := config.NewManager().SaveConfig(path, want); err != nil {
				t.Fatalf("SaveConfig: %v", err)
			}
			got, err := config.NewManager().LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if got.Scheduling != want.Scheduling || got.Storage != want.Storage {
				t.Errorf("round trip changed config: %+v", got)
			}
		})
	}
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()
	if _, ok := config.FindConfig(dir); ok {
		t.Error("found config in empty dir")
	}

	os.WriteFile(filepath.Join(dir, "foreman.json"), []byte("{}"), 0644)
	os.WriteFile(filepath.Join(dir, "foreman.yml"), []byte(""), 0644)
	path, ok := config.FindConfig(dir)
	if !ok || filepath.Base(path) != "foreman.yml" {
		t.Errorf("FindConfig = %s, %v", path, ok)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	os.WriteFile(envPath, []byte("FOREMAN_TEST_KEY=from-file\n"), 0644)
	t.Setenv("FOREMAN_TEST_KEY", "")
	os.Unsetenv("FOREMAN_TEST_KEY")

	if err := config.LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("FOREMAN_TEST_KEY"); got != "from-file" {
		t.Errorf("FOREMAN_TEST_KEY = %q", got)
	}
}

func TestReloadManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foreman.yaml")
	m := config.NewManager()
	cfg := config.DefaultConfig()
	if err := m.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	rm := config.NewReloadManager(path, logger.Discard())
	rm.SetDebouncePeriod(10 * time.Millisecond)

	results := make(chan *types.ForemanConfig, 8)
	failures := make(chan error, 8)
	rm.AddCallback(func(c *types.ForemanConfig, err error) {
		if err != nil {
			failures <- err
			return
		}
		results <- c
	})

	if err := rm.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer rm.StopWatching()
	if !rm.IsWatching() {
		t.Fatal("expected watcher to be running")
	}

	cfg.Scheduling.MaxConcurrentBuilds = 9
	m.SaveConfig(path, cfg)
	future := time.Now().Add(time.Minute)
	os.Chtimes(path, future, future)

	select {
	case got := <-results:
		if got.Scheduling.MaxConcurrentBuilds != 9 {
			t.Errorf("reloaded capacity = %d", got.Scheduling.MaxConcurrentBuilds)
		}
	case err := <-failures:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestReloadManagerRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.yaml")
	os.WriteFile(path, []byte("version: \"1.0\"\nscheduling:\n  maxConcurrentBuilds: 0\n"), 0644)

	rm := config.NewReloadManager(path, logger.Discard())
	var gotErr error
	var gotCfg *types.ForemanConfig
	rm.AddCallback(func(c *types.ForemanConfig, err error) {
		gotCfg, gotErr = c, err
	})

	rm.TriggerReload()
	if gotErr == nil || gotCfg != nil {
		t.Errorf("expected error callback, got %v / %v", gotCfg, gotErr)
	}
	if !errors.Is(gotErr, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", gotErr)
	}
}
