// Package config provides configuration loading for the API server and CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowlens/flowlens/pkg/models"
)

// Config is the structure of the flowlens.yaml file.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Simulation SimulationConfig `yaml:"simulation"`
	Parser     ParserConfig     `yaml:"parser"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// SimulationConfig holds the defaults applied when a request omits them.
type SimulationConfig struct {
	Mode            string  `yaml:"mode"`
	NumTransactions int     `yaml:"num_transactions"`
	Seed            int64   `yaml:"seed"`
	VolumePerHour   float64 `yaml:"volume_per_hour"`
	BatchSize       int     `yaml:"batch_size"`
}

// ParserConfig points at the LLM endpoint used for natural-language
// workflow extraction. The API key is read from the named environment
// variable, never from the file.
type ParserConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Load reads configuration from a YAML file.
func Load(filepath string) (Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&cfg)

	return cfg, nil
}

// LoadOrDefault attempts to load configuration from a file, falling back to
// the built-in defaults when the file doesn't exist.
func LoadOrDefault(filepath string) Config {
	cfg, err := Load(filepath)
	if err != nil {
		cfg = Config{}
		applyDefaults(&cfg)
	}

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "flowlens"
	}

	if cfg.Simulation.Mode == "" {
		cfg.Simulation.Mode = string(models.ModeDeterministic)
	}

	if cfg.Simulation.NumTransactions == 0 {
		cfg.Simulation.NumTransactions = 1000
	}

	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = 42
	}

	if cfg.Simulation.VolumePerHour == 0 {
		cfg.Simulation.VolumePerHour = 100
	}

	if cfg.Simulation.BatchSize == 0 {
		cfg.Simulation.BatchSize = 10000
	}

	if cfg.Parser.Endpoint == "" {
		cfg.Parser.Endpoint = "https://api.openai.com/v1/chat/completions"
	}

	if cfg.Parser.Model == "" {
		cfg.Parser.Model = "gpt-4o-mini"
	}

	if cfg.Parser.APIKeyEnv == "" {
		cfg.Parser.APIKeyEnv = "OPENAI_API_KEY"
	}
}

// Validate checks the configuration for values the server cannot start with.
func Validate(cfg Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", cfg.Server.Port)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	switch models.SimulationMode(cfg.Simulation.Mode) {
	case models.ModeDeterministic, models.ModeMonteCarlo:
	default:
		return fmt.Errorf("simulation.mode must be deterministic or monte_carlo, got %q", cfg.Simulation.Mode)
	}

	if cfg.Simulation.NumTransactions < 1 {
		return fmt.Errorf("simulation.num_transactions must be >= 1, got %d", cfg.Simulation.NumTransactions)
	}

	return nil
}

// DefaultSimulation converts the configured defaults into an engine config.
func (c Config) DefaultSimulation() models.SimulationConfig {
	return models.SimulationConfig{
		Mode:            models.SimulationMode(c.Simulation.Mode),
		NumTransactions: c.Simulation.NumTransactions,
		Seed:            c.Simulation.Seed,
		VolumePerHour:   c.Simulation.VolumePerHour,
		BatchSize:       c.Simulation.BatchSize,
	}
}
