package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadClientMissingFile(t *testing.T) {
	t.Setenv("CLOUDESK_SERVER_URL", "")
	t.Setenv("CLOUDESK_CACHE_PATH", "")
	t.Setenv("CLOUDESK_LOG_LEVEL", "")

	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	def := DefaultClient()
	if cfg != def {
		t.Errorf("LoadClient() = %+v, want defaults", cfg)
	}
	if cfg.Debounce != 500*time.Millisecond || cfg.StatusResetDelay != 3*time.Second {
		t.Errorf("timings = %v %v", cfg.Debounce, cfg.StatusResetDelay)
	}
}

func TestLoadClientFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server_url: https://desk.example.com
cache_path: /tmp/desk.db
log_level: debug
sync_interval: 1m
debounce: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLOUDESK_SERVER_URL", "")
	t.Setenv("CLOUDESK_CACHE_PATH", "")
	t.Setenv("CLOUDESK_LOG_LEVEL", "error")

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.ServerURL != "https://desk.example.com" || cfg.CachePath != "/tmp/desk.db" {
		t.Errorf("paths = %q %q", cfg.ServerURL, cfg.CachePath)
	}
	if cfg.SyncInterval != time.Minute || cfg.Debounce != 250*time.Millisecond {
		t.Errorf("durations = %v %v", cfg.SyncInterval, cfg.Debounce)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, env should win", cfg.LogLevel)
	}
	if cfg.TeardownGrace != 2*time.Second {
		t.Errorf("unset field lost its default: %v", cfg.TeardownGrace)
	}
}

func TestLoadClientInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("debounce: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClient(path); err == nil {
		t.Error("LoadClient() accepted broken yaml")
	}
}
