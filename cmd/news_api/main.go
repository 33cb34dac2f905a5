package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/news-scout/internal/api/router"
	apiserver "github.com/DjordjeVuckovic/news-scout/internal/api/server"
	"github.com/DjordjeVuckovic/news-scout/internal/cache"
	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/llm"
	"github.com/DjordjeVuckovic/news-scout/internal/pipeline"
	"github.com/DjordjeVuckovic/news-scout/internal/rank"
	"github.com/DjordjeVuckovic/news-scout/internal/scheduler"
	"github.com/DjordjeVuckovic/news-scout/internal/source"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/pg"
	pkgserver "github.com/DjordjeVuckovic/news-scout/pkg/server"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	sCfg, err := apiserver.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	bootCtx := context.Background()

	var (
		store         storage.Store
		healthChecker pkgserver.HealthChecker
	)
	if cfg.StorageConfig.Type == storage.PG {
		pool, err := pg.NewConnectionPool(bootCtx, *cfg.StorageConfig.Pg)
		if err != nil {
			slog.Error("Failed to create PostgreSQL connection pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store, err = pg.NewStore(pool)
		if err != nil {
			slog.Error("Failed to create PostgreSQL store", "error", err)
			os.Exit(1)
		}
		healthChecker = pg.NewHealthChecker(pool)
	} else {
		store, err = factory.NewStoreFromConfig(bootCtx, cfg.StorageConfig)
		if err != nil {
			slog.Error("Failed to create store", "error", err)
			os.Exit(1)
		}
		healthChecker = pkgserver.NewOkHealthChecker()
	}

	s := apiserver.New(sCfg, healthChecker).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health")

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "News Scout API is running")
	})

	gateway, err := llm.NewGateway(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	if err != nil {
		slog.Error("Failed to create completion gateway", "error", err)
		os.Exit(1)
	}

	var rankOpts []rank.ServiceOption
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rankOpts = append(rankOpts, rank.WithGuard(cache.NewRedisGuard(redisClient, "newsscout:")))
		slog.Info("Rank in-flight guard enabled", "redis", cfg.RedisAddr)
	}

	sources := source.NewFactory(cfg.NewsAPIKey)
	var ingestOpts []ingest.ServiceOption
	if cfg.DefaultLimitPerSource > 0 {
		ingestOpts = append(ingestOpts, ingest.WithDefaultLimitPerSource(cfg.DefaultLimitPerSource))
	}
	ingestSvc := ingest.NewService(store, sources, slog.Default(), ingestOpts...)
	rankCfg := rank.DefaultConfig()
	if cfg.LLM.Model != "" {
		rankCfg.Model = cfg.LLM.Model
	}
	if cfg.DefaultMinScore > 0 {
		rankCfg.MinScore = cfg.DefaultMinScore
	}
	rankSvc := rank.NewService(store, gateway, rankCfg, slog.Default(), rankOpts...)

	newsRouter := router.NewNewsRouter(s.Echo, ingestSvc, rankSvc,
		router.WithBackgroundContext(s.Context()))
	newsRouter.Bind()

	if cfg.SchedulerEnabled {
		p := pipeline.New(ingestSvc, rankSvc, slog.Default())
		params := cfg.IngestionParams

		sched, err := scheduler.New(cfg.SchedulerConfig, func(ctx context.Context) {
			if _, err := p.Run(ctx, params); err != nil {
				slog.Error("Scheduled pipeline run failed", "error", err)
			}
		}, slog.Default())
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start(s.Context())
		defer sched.Stop()
	}

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	if err := s.Start(); err != nil {
		s.Echo.Logger.Error("Failed to start server: ", err)
		os.Exit(1)
	}
}
