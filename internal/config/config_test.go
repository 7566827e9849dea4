package config

import (
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	t.Setenv("CLOUDESK_TEST_SET", "redis:6379")
	if got := requireEnv("CLOUDESK_TEST_SET"); got != "redis:6379" {
		t.Errorf("requireEnv() = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("requireEnv() on a missing variable should panic")
		}
	}()
	requireEnv("CLOUDESK_TEST_MISSING")
}

func TestEnvParsers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		dur   time.Duration
		flag  bool
		num   int
	}{
		{"unset keeps defaults", "", time.Minute, true, 7},
		{"garbage keeps defaults", "soon", time.Minute, true, 7},
		{"duration", "90s", 90 * time.Second, true, 7},
		{"bool", "false", time.Minute, false, 7},
		{"int", "42", time.Minute, true, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLOUDESK_TEST_VALUE", tt.value)
			if got := mustDuration("CLOUDESK_TEST_VALUE", time.Minute); got != tt.dur {
				t.Errorf("mustDuration() = %v, want %v", got, tt.dur)
			}
			if got := mustBool("CLOUDESK_TEST_VALUE", true); got != tt.flag {
				t.Errorf("mustBool() = %v, want %v", got, tt.flag)
			}
			if got := getenvInt("CLOUDESK_TEST_VALUE", 7); got != tt.num {
				t.Errorf("getenvInt() = %v, want %v", got, tt.num)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CLOUDESK_REDIS_ADDR", "localhost:6379")
	t.Setenv("CLOUDESK_ALLOWED_CIDRS", "10.0.0.0/8, '192.168.1.10'")
	t.Setenv("CLOUDESK_BACKUP_INTERVAL", "6h")

	cfg := Load()
	if cfg.ListenPort != ":8080" || cfg.RedisKeyPrefix != "cloudesk" {
		t.Errorf("defaults = %q %q", cfg.ListenPort, cfg.RedisKeyPrefix)
	}
	if cfg.MaxSnapshotBytes != 25<<20 {
		t.Errorf("MaxSnapshotBytes = %d", cfg.MaxSnapshotBytes)
	}
	if len(cfg.AllowedCIDRS) != 2 || cfg.AllowedCIDRS[1] != "192.168.1.10" {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
	if cfg.BackupEnabled() {
		t.Error("backups enabled without an endpoint")
	}
	if cfg.BackupInterval != 6*time.Hour || cfg.BackupRetention != 30*24*time.Hour {
		t.Errorf("backup schedule = %v / %v", cfg.BackupInterval, cfg.BackupRetention)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing redis addr", map[string]string{"CLOUDESK_REDIS_ADDR": ""}},
		{"password required", map[string]string{
			"CLOUDESK_REDIS_ADDR":              "localhost:6379",
			"CLOUDESK_REDIS_PASSWORD_REQUIRED": "true",
		}},
		{"backup without credentials", map[string]string{
			"CLOUDESK_REDIS_ADDR":      "localhost:6379",
			"CLOUDESK_BACKUP_ENDPOINT": "minio:9000",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Error("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}
