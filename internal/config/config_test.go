package config

import (
	"testing"
)

func newValidConfig() *Config {
	return &Config{
		Port:                      "8080",
		GinMode:                   "debug",
		MaxUploadSizeBytes:        1024,
		WorkerPoolSize:            3,
		MaxSegmentDurationSeconds: 14400,
		MaxSegmentSizeBytes:       1073741824,
		PollIntervalSeconds:       5,
		PollTimeoutSeconds:        1800,
		PollMaxTransientRetries:   3,
		CostPerSecond:             0.002542,
		QueueRedisURL:             "redis://127.0.0.1:6379/0",
	}
}

func TestValidateOK(t *testing.T) {
	cfg := newValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero segment duration", func(c *Config) { c.MaxSegmentDurationSeconds = 0 }},
		{"negative segment size", func(c *Config) { c.MaxSegmentSizeBytes = -1 }},
		{"zero poll interval", func(c *Config) { c.PollIntervalSeconds = 0 }},
		{"zero poll timeout", func(c *Config) { c.PollTimeoutSeconds = 0 }},
		{"negative retries", func(c *Config) { c.PollMaxTransientRetries = -1 }},
		{"zero workers", func(c *Config) { c.WorkerPoolSize = 0 }},
		{"zero upload size", func(c *Config) { c.MaxUploadSizeBytes = 0 }},
		{"negative tariff", func(c *Config) { c.CostPerSecond = -0.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newValidConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateReleaseModeRequiresBackendSettings(t *testing.T) {
	cfg := newValidConfig()
	cfg.GinMode = "release"
	cfg.AudioStoreBaseURL = "http://example.com/audio"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing YC_FOLDER_ID")
	}

	cfg.YCFolderID = "b1gexample"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing service account key file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WorkerPoolSize != 3 {
		t.Errorf("WorkerPoolSize = %d, want 3", cfg.WorkerPoolSize)
	}
	if cfg.MaxSegmentDurationSeconds != 14400 {
		t.Errorf("MaxSegmentDurationSeconds = %d, want 14400", cfg.MaxSegmentDurationSeconds)
	}
	if cfg.MaxSegmentSizeBytes != 1073741824 {
		t.Errorf("MaxSegmentSizeBytes = %d, want 1073741824", cfg.MaxSegmentSizeBytes)
	}
	if cfg.PollIntervalSeconds != 5 {
		t.Errorf("PollIntervalSeconds = %d, want 5", cfg.PollIntervalSeconds)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "5")
	t.Setenv("POLL_TIMEOUT_SECONDS", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WorkerPoolSize != 5 {
		t.Errorf("WorkerPoolSize = %d, want 5", cfg.WorkerPoolSize)
	}
	if cfg.PollTimeoutSeconds != 60 {
		t.Errorf("PollTimeoutSeconds = %d, want 60", cfg.PollTimeoutSeconds)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WorkerPoolSize != 3 {
		t.Errorf("WorkerPoolSize = %d, want fallback 3", cfg.WorkerPoolSize)
	}
}
