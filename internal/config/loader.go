// Package config loads the typed runtime configuration from a YAML file and
// SCHEDULER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/smart-scheduler/internal/slotting"
)

// WeightsConfig tunes the slot scoring factors.
type WeightsConfig struct {
	Midday    float64 `mapstructure:"midday"`
	Slack     float64 `mapstructure:"slack"`
	Earliness float64 `mapstructure:"earliness"`
	Ideal     float64 `mapstructure:"ideal"`
}

// ScoringWeights converts the configuration into the scorer's weight set.
func (w WeightsConfig) ScoringWeights() slotting.Weights {
	return slotting.Weights{
		Midday:    w.Midday,
		Slack:     w.Slack,
		Earliness: w.Earliness,
		Ideal:     w.Ideal,
	}
}

// Config captures the runtime configuration of the scheduler service.
type Config struct {
	HTTPPort        int           `mapstructure:"http_port"`
	SQLiteDSN       string        `mapstructure:"sqlite_dsn"`
	SlotStepMinutes int           `mapstructure:"slot_step_minutes"`
	MaxCandidates   int           `mapstructure:"max_candidates"`
	ConfirmRetries  int           `mapstructure:"confirm_retries"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Weights         WeightsConfig `mapstructure:"weights"`
}

func defaults() map[string]any {
	weights := slotting.DefaultWeights()
	return map[string]any{
		"http_port":         8080,
		"sqlite_dsn":        "file:scheduler.db",
		"slot_step_minutes": 15,
		"max_candidates":    20,
		"confirm_retries":   3,
		"cache_ttl":         "30s",
		"shutdown_timeout":  "10s",
		"weights.midday":    weights.Midday,
		"weights.slack":     weights.Slack,
		"weights.earliness": weights.Earliness,
		"weights.ideal":     weights.Ideal,
	}
}

// Load reads scheduler.yaml from the working directory (or the explicit path
// when provided), overlays SCHEDULER_* environment variables, and validates
// the result. A missing config file is not an error; the defaults apply.
func Load(configFile string) (Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("scheduler")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("scheduler")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid configuration value.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		return fmt.Errorf("config: sqlite_dsn must not be empty")
	}
	if c.SlotStepMinutes <= 0 {
		return fmt.Errorf("config: slot_step_minutes must be positive, got %d", c.SlotStepMinutes)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("config: max_candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.ConfirmRetries <= 0 {
		return fmt.Errorf("config: confirm_retries must be positive, got %d", c.ConfirmRetries)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"weights.midday", c.Weights.Midday},
		{"weights.slack", c.Weights.Slack},
		{"weights.earliness", c.Weights.Earliness},
		{"weights.ideal", c.Weights.Ideal},
	}
	var total float64
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("config: %s must not be negative, got %f", w.name, w.value)
		}
		total += w.value
	}
	if total == 0 {
		return fmt.Errorf("config: at least one scoring weight must be positive")
	}

	return nil
}

// SlotStep returns the candidate generation step as a duration.
func (c Config) SlotStep() time.Duration {
	return time.Duration(c.SlotStepMinutes) * time.Minute
}
