package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "flowlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
simulation:
  mode: monte_carlo
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "monte_carlo", cfg.Simulation.Mode)
	assert.Equal(t, 1000, cfg.Simulation.NumTransactions)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, "flowlens", cfg.Tracing.ServiceName)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Parser.APIKeyEnv)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "server: [not: a: mapping")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Parallel()

	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, string(models.ModeDeterministic), cfg.Simulation.Mode)
	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := LoadOrDefault("does-not-exist.yaml")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad mode", func(c *Config) { c.Simulation.Mode = "quantum" }, "simulation.mode"},
		{"zero transactions", func(c *Config) { c.Simulation.NumTransactions = 0 }, "num_transactions"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tc.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefaultSimulation(t *testing.T) {
	t.Parallel()

	cfg := LoadOrDefault("does-not-exist.yaml")
	sim := cfg.DefaultSimulation()

	assert.Equal(t, models.ModeDeterministic, sim.Mode)
	assert.Equal(t, 1000, sim.NumTransactions)
	assert.Equal(t, int64(42), sim.Seed)
	assert.Equal(t, 100.0, sim.VolumePerHour)
	assert.Equal(t, 10000, sim.BatchSize)
}
