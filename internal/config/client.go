package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Client is the configuration of cloudesk-cli, read from a YAML file.
type Client struct {
	ServerURL string `yaml:"server_url"`
	CachePath string `yaml:"cache_path"`

	LogLevel  string `yaml:"log_level"`
	PrettyLog bool   `yaml:"pretty_log"`
	LogFile   string `yaml:"log_file"` // empty => stderr

	Debounce         time.Duration `yaml:"debounce"`
	StatusResetDelay time.Duration `yaml:"status_reset_delay"`
	SyncInterval     time.Duration `yaml:"sync_interval"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	BeaconTimeout    time.Duration `yaml:"beacon_timeout"`
	TeardownGrace    time.Duration `yaml:"teardown_grace"`
}

func DefaultClient() Client {
	return Client{
		ServerURL:        "http://localhost:8080",
		CachePath:        defaultCachePath(),
		LogLevel:         "warn",
		Debounce:         500 * time.Millisecond,
		StatusResetDelay: 3 * time.Second,
		SyncInterval:     30 * time.Second,
		RequestTimeout:   10 * time.Second,
		BeaconTimeout:    3 * time.Second,
		TeardownGrace:    2 * time.Second,
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cloudesk", "cache.db")
}

// DefaultClientPath is where LoadClient looks when no path is given.
func DefaultClientPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "cloudesk.yaml"
	}
	return filepath.Join(dir, "cloudesk", "config.yaml")
}

// LoadClient reads path over the defaults. A missing file is not an error.
// CLOUDESK_SERVER_URL, CLOUDESK_CACHE_PATH and CLOUDESK_LOG_LEVEL override
// the file.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerURL = getenv("CLOUDESK_SERVER_URL", cfg.ServerURL)
	cfg.CachePath = getenv("CLOUDESK_CACHE_PATH", cfg.CachePath)
	cfg.LogLevel = getenv("CLOUDESK_LOG_LEVEL", cfg.LogLevel)

	if cfg.ServerURL == "" {
		return cfg, errors.New("server_url is required")
	}
	if cfg.CachePath == "" {
		return cfg, errors.New("cache_path is required")
	}
	return cfg, nil
}
