package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Database.Name != "castflow" {
		t.Errorf("database name = %s", cfg.Database.Name)
	}
	if cfg.Automation.InvocationTimeout != 30*time.Second {
		t.Errorf("invocation timeout = %v", cfg.Automation.InvocationTimeout)
	}
	if cfg.Automation.ActionTimeout != 10*time.Second {
		t.Errorf("action timeout = %v", cfg.Automation.ActionTimeout)
	}
	if cfg.Automation.MaxLogLimit != 100 {
		t.Errorf("max log limit = %d", cfg.Automation.MaxLogLimit)
	}
	if len(cfg.Automation.Managers) != 0 {
		t.Errorf("managers should default empty, got %v", cfg.Automation.Managers)
	}
	if !cfg.Security.RateLimiting.Enabled || cfg.Security.RateLimiting.RequestsPerMinute != 60 {
		t.Errorf("rate limiting defaults = %+v", cfg.Security.RateLimiting)
	}
	if cfg.Monitoring.MetricsPath != "/metrics" {
		t.Errorf("metrics path = %s", cfg.Monitoring.MetricsPath)
	}
	if cfg.Monitoring.Tracing.Enabled {
		t.Error("tracing should default off")
	}
	if cfg.Notify.Timeout != 10*time.Second {
		t.Errorf("notify timeout = %v", cfg.Notify.Timeout)
	}
}

func TestInitLogger(t *testing.T) {
	cases := []struct {
		name   string
		level  string
		format string
		output string
	}{
		{"json stdout", "info", "json", "stdout"},
		{"text stdout", "debug", "text", "stdout"},
		{"invalid level falls back", "verbose", "json", "stdout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Log.Level = tc.level
			cfg.Log.Format = tc.format
			cfg.Log.Output = tc.output
			if err := InitLogger(cfg); err != nil {
				t.Fatalf("InitLogger: %v", err)
			}
		})
	}
}

func TestInitLogger_FileOutput(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Log.Output = "file"
	cfg.Log.FilePath = filepath.Join(t.TempDir(), "logs", "castflow.log")

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
}
