package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader(t *testing.T) {

	t.Run("applies defaults when nothing is configured", func(t *testing.T) {
		for _, key := range []string{
			"SCHEDULER_HTTP_PORT",
			"SCHEDULER_SQLITE_DSN",
			"SCHEDULER_SLOT_STEP_MINUTES",
			"SCHEDULER_CACHE_TTL",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:scheduler.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SlotStepMinutes != 15 {
			t.Fatalf("expected default slot step 15, got %d", cfg.SlotStepMinutes)
		}
		if cfg.ConfirmRetries != 3 {
			t.Fatalf("expected default confirm retries 3, got %d", cfg.ConfirmRetries)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Fatalf("expected default cache TTL 30s, got %s", cfg.CacheTTL)
		}
		if cfg.Weights.Midday != 0.30 || cfg.Weights.Ideal != 0.20 {
			t.Fatalf("unexpected default weights: %+v", cfg.Weights)
		}
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_SQLITE_DSN", "file:/tmp/scheduler.db")
		t.Setenv("SCHEDULER_CACHE_TTL", "2m")
		t.Setenv("SCHEDULER_MAX_CANDIDATES", "7")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/scheduler.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.CacheTTL != 2*time.Minute {
			t.Fatalf("expected cache TTL 2m, got %s", cfg.CacheTTL)
		}
		if cfg.MaxCandidates != 7 {
			t.Fatalf("expected max candidates 7, got %d", cfg.MaxCandidates)
		}
	})

	t.Run("reads values from a config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "scheduler.yaml")
		content := "http_port: 9999\nslot_step_minutes: 30\nweights:\n  midday: 0.5\n  slack: 0.1\n  earliness: 0.2\n  ideal: 0.2\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9999 {
			t.Fatalf("expected HTTP port 9999, got %d", cfg.HTTPPort)
		}
		if cfg.SlotStepMinutes != 30 {
			t.Fatalf("expected slot step 30, got %d", cfg.SlotStepMinutes)
		}
		if cfg.Weights.Midday != 0.5 {
			t.Fatalf("expected midday weight 0.5, got %f", cfg.Weights.Midday)
		}
		if cfg.SlotStep() != 30*time.Minute {
			t.Fatalf("SlotStep() = %s, want 30m", cfg.SlotStep())
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Setenv("SCHEDULER_HTTP_PORT", "-1")
		if _, err := Load(""); err == nil {
			t.Fatalf("expected error for negative port")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:scheduler.db",
		SlotStepMinutes: 15,
		MaxCandidates:   20,
		ConfirmRetries:  3,
		CacheTTL:        30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Weights:         WeightsConfig{Midday: 0.3, Slack: 0.2, Earliness: 0.3, Ideal: 0.2},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero port", mutate: func(c *Config) { c.HTTPPort = 0 }},
		{name: "port too large", mutate: func(c *Config) { c.HTTPPort = 70000 }},
		{name: "empty dsn", mutate: func(c *Config) { c.SQLiteDSN = "  " }},
		{name: "zero slot step", mutate: func(c *Config) { c.SlotStepMinutes = 0 }},
		{name: "zero max candidates", mutate: func(c *Config) { c.MaxCandidates = 0 }},
		{name: "zero retries", mutate: func(c *Config) { c.ConfirmRetries = 0 }},
		{name: "zero cache ttl", mutate: func(c *Config) { c.CacheTTL = 0 }},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }},
		{name: "negative weight", mutate: func(c *Config) { c.Weights.Slack = -0.1 }},
		{name: "all weights zero", mutate: func(c *Config) { c.Weights = WeightsConfig{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
