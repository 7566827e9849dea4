package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per request handler timeout

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	MaxSnapshotBytes int64 // upper bound for a POSTed snapshot body

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisKeyPrefix        string        // namespace of the slot keys
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Write rate limiting, per client IP
	WriteRateBurst  int
	WriteRatePerMin int

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // allowed origins, "*" by default

	// Backups, disabled when BackupEndpoint is empty
	BackupEndpoint  string
	BackupAccessKey string
	BackupSecretKey string
	BackupBucket    string
	BackupUseSSL    bool
	BackupRegion    string
	BackupInterval  time.Duration
	BackupRetention time.Duration
}

// BackupEnabled reports whether an object store is configured.
func (c *Config) BackupEnabled() bool { return c.BackupEndpoint != "" }

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("CLOUDESK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("CLOUDESK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("CLOUDESK_REQUEST_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("CLOUDESK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("CLOUDESK_PRETTY_LOG", true),

		MaxSnapshotBytes: int64(getenvInt("CLOUDESK_MAX_SNAPSHOT_BYTES", 25<<20)),

		// Redis settings
		RedisAddr:             requireEnv("CLOUDESK_REDIS_ADDR"),
		RedisUser:             getenv("CLOUDESK_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("CLOUDESK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("CLOUDESK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("CLOUDESK_REDIS_DB", 0),
		RedisKeyPrefix:        getenv("CLOUDESK_REDIS_KEY_PREFIX", "cloudesk"),
		RedisDT:               mustDuration("CLOUDESK_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("CLOUDESK_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("CLOUDESK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("CLOUDESK_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("CLOUDESK_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("CLOUDESK_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("CLOUDESK_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("CLOUDESK_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("CLOUDESK_REDIS_WARN_THRESHOLD", 3),

		WriteRateBurst:  getenvInt("CLOUDESK_WRITE_RATE_BURST", 20),
		WriteRatePerMin: getenvInt("CLOUDESK_WRITE_RATE_PER_MIN", 120),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("CLOUDESK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("CLOUDESK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("CLOUDESK_TRUST_PROXY", true),
		CORSOrigins:  splitAndTrim(getenv("CLOUDESK_CORS_ORIGINS", "*")),

		// Backups
		BackupEndpoint:  getenv("CLOUDESK_BACKUP_ENDPOINT", ""),
		BackupAccessKey: getenv("CLOUDESK_BACKUP_ACCESS_KEY", ""),
		BackupSecretKey: getenv("CLOUDESK_BACKUP_SECRET_KEY", ""),
		BackupBucket:    getenv("CLOUDESK_BACKUP_BUCKET", "cloudesk-backups"),
		BackupUseSSL:    mustBool("CLOUDESK_BACKUP_USE_SSL", false),
		BackupRegion:    getenv("CLOUDESK_BACKUP_REGION", ""),
		BackupInterval:  mustDuration("CLOUDESK_BACKUP_INTERVAL", 24*time.Hour),
		BackupRetention: mustDuration("CLOUDESK_BACKUP_RETENTION", 30*24*time.Hour),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: CLOUDESK_REDIS_PASSWORD is required when CLOUDESK_REDIS_PASSWORD_REQUIRED=true")
	}
	if cfg.BackupEnabled() && (cfg.BackupAccessKey == "" || cfg.BackupSecretKey == "") {
		panic("❌ FATAL: CLOUDESK_BACKUP_ACCESS_KEY and CLOUDESK_BACKUP_SECRET_KEY are required when CLOUDESK_BACKUP_ENDPOINT is set")
	}
	if cfg.MaxSnapshotBytes <= 0 {
		panic(fmt.Sprintf("❌ FATAL: Invalid CLOUDESK_MAX_SNAPSHOT_BYTES: %d", cfg.MaxSnapshotBytes))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		cfgCopy.BackupSecretKey = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
