package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/cloudesk/internal/backup"
	"github.com/MrSnakeDoc/cloudesk/internal/config"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/index"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/redis"
	"github.com/MrSnakeDoc/cloudesk/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
	"github.com/MrSnakeDoc/cloudesk/internal/utils"
	"github.com/MrSnakeDoc/cloudesk/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	backups     *scheduler.BackupScheduler // nil when backups are disabled
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.Connect(context.Background(), redis.Options{
		Addr:           cfg.RedisAddr,
		Username:       cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	loggerClient.Info("Redis initialized successfully")

	memIndex := index.NewMemoryIndex()
	store := redisstore.NewStore(redisClient, cfg.RedisKeyPrefix, loggerClient)

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		RequestTimeout:   cfg.RequestTimeout,
		AllowedHosts:     cfg.AllowedHosts,
		AllowedCIDRS:     cfg.AllowedCIDRS,
		TrustProxy:       cfg.TrustProxy,
		CORSOrigins:      cfg.CORSOrigins,
		RedisClient:      redisClient,
		Store:            store,
		MemoryIndex:      memIndex,
		MaxSnapshotBytes: cfg.MaxSnapshotBytes,
		WriteRateBurst:   cfg.WriteRateBurst,
		WriteRatePerMin:  cfg.WriteRatePerMin,
	}

	// Backups are optional
	var backups *scheduler.BackupScheduler
	if cfg.BackupEnabled() {
		objects, err := backup.NewMinioStore(context.Background(), backup.MinioConfig{
			Endpoint:        cfg.BackupEndpoint,
			AccessKeyID:     cfg.BackupAccessKey,
			SecretAccessKey: cfg.BackupSecretKey,
			UseSSL:          cfg.BackupUseSSL,
			Bucket:          cfg.BackupBucket,
			Region:          cfg.BackupRegion,
		}, loggerClient)
		if err != nil {
			utils.MustClose(redisClient, loggerClient, "redis")
			return nil, fmt.Errorf("failed to initialize backups: %w", err)
		}
		svc := backup.NewService(objects, store, loggerClient)
		backups = scheduler.NewBackupScheduler(svc, memIndex, loggerClient, cfg.BackupInterval, cfg.BackupRetention)
		d.Backups = svc
		d.BackupTrigger = backups.Trigger
	} else {
		loggerClient.Info("backup endpoint not configured, backups disabled")
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		memIndex:    memIndex,
		backups:     backups,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting cloudesk %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String("cloudesk"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.backups != nil {
		if err := a.backups.Start(ctx); err != nil {
			return fmt.Errorf("failed to start backup scheduler: %w", err)
		}
		a.logger.Info("backup scheduler started",
			logger.Duration("interval", a.cfg.BackupInterval),
			logger.Duration("retention", a.cfg.BackupRetention))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.backups != nil {
		a.backups.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ cloudesk stopped cleanly")
	return nil
}
