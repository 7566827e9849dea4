package deps

import (
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/backup"
	"github.com/MrSnakeDoc/cloudesk/internal/index"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	RequestTimeout   time.Duration      // per request handler timeout
	AllowedHosts     []string           // Host headers allowed on admin routes
	AllowedCIDRS     []string           // IPs allowed on admin routes (readyz, infra, backups)
	TrustProxy       bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins      []string           // allowed browser origins, "*" for any
	RedisClient      *redis.Client      // Redis client connection
	Store            *redisstore.Store  // snapshot slots
	MemoryIndex      *index.MemoryIndex // process-local activity
	MaxSnapshotBytes int64              // max accepted POST body
	WriteRateBurst   int                // per-IP burst on write routes
	WriteRatePerMin  int                // per-IP sustained writes per minute
	Backups          *backup.Service    // nil when backups are disabled
	BackupTrigger    func()             // queues a scheduler run; nil when backups are disabled
}
