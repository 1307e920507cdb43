package setup

import (
	"log"
	"time"

	"github.com/redis/rueidis"
	"github.com/wardenbot/warden/internal/classifier"
	"github.com/wardenbot/warden/internal/redis"
	"github.com/wardenbot/warden/internal/setup/config"
	"github.com/wardenbot/warden/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles the core dependencies the bot needs: configuration, logging,
// the optional Redis score cache, and the classifier gateway.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	RedisManager *redis.Manager
	Classifier   *classifier.Client
}

// Initialize bootstraps all application dependencies in order, ensuring each
// component has its requirements available.
func Initialize() (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging comes up first to capture setup issues.
	logger, err := telemetry.NewLogger(&cfg.Common.Debug)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("config_dir", configDir))

	// The score cache is optional; the classifier works without it.
	var (
		redisManager *redis.Manager
		cacheClient  rueidis.Client
	)

	if cfg.Common.Redis.Enabled {
		redisManager = redis.NewManager(&cfg.Common.Redis, logger)

		cacheClient, err = redisManager.GetClient(redis.CacheDBIndex)
		if err != nil {
			logger.Warn("Score cache unavailable, continuing without it", zap.Error(err))

			cacheClient = nil
		}
	}

	classifierClient := classifier.NewClient(
		cfg.Common.Classifier.URL,
		time.Duration(cfg.Common.Classifier.RequestTimeout)*time.Millisecond,
		cfg.Common.Classifier.MaxRetries,
		cacheClient,
		time.Duration(cfg.Common.Classifier.CacheTTL)*time.Second,
		logger,
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		RedisManager: redisManager,
		Classifier:   classifierClient,
	}, nil
}

// Cleanup shuts down components in reverse initialization order. Errors are
// logged rather than returned so every component gets a cleanup attempt.
func (a *App) Cleanup() {
	if a.RedisManager != nil {
		a.RedisManager.Close()
	}

	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
