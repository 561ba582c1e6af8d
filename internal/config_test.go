package internal

import (
	"os"
	"testing"
)

func TestLoadFromEnvOverlaysDefaults(t *testing.T) {
	os.Setenv("PARAFETCH_SEGMENTS", "8")
	os.Setenv("PARAFETCH_WORKERS", "6")
	os.Setenv("PARAFETCH_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("PARAFETCH_SEGMENTS")
		os.Unsetenv("PARAFETCH_WORKERS")
		os.Unsetenv("PARAFETCH_LOG_LEVEL")
	}()

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if cfg.DefaultSegments != 8 {
		t.Errorf("expected DefaultSegments=8, got %d", cfg.DefaultSegments)
	}
	if cfg.DefaultWorkers != 6 {
		t.Errorf("expected DefaultWorkers=6, got %d", cfg.DefaultWorkers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %s", cfg.LogLevel)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectErr   bool
		description string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, description: "DefaultConfig() must pass its own validation"},
		{name: "zero segments is invalid", mutate: func(c *Config) { c.DefaultSegments = 0 }, expectErr: true, description: "segment count must be positive"},
		{name: "zero workers is invalid", mutate: func(c *Config) { c.DefaultWorkers = 0 }, expectErr: true, description: "worker count must be positive"},
		{name: "negative retries is invalid", mutate: func(c *Config) { c.DefaultRetries = -1 }, expectErr: true, description: "retries cannot be negative"},
		{name: "empty user agent is invalid", mutate: func(c *Config) { c.UserAgent = "" }, expectErr: true, description: "an empty user agent is never valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.ValidateConfig()
			if tt.expectErr && err == nil {
				t.Fatalf("%s: expected error, got nil", tt.description)
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.description, err)
			}
		})
	}
}
