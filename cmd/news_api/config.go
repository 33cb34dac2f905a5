package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/pipeline"
	"github.com/DjordjeVuckovic/news-scout/internal/scheduler"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-scout/pkg/config/env"
)

const (
	defaultLLMBaseURL = "http://localhost:11434/v1"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type NewsScoutConfig struct {
	StorageConfig         factory.StorageConfig
	NewsAPIKey            string
	LLM                   LLMConfig
	RedisAddr             string
	SchedulerEnabled      bool
	SchedulerConfig       scheduler.Config
	IngestionParams       ingest.Params
	DefaultLimitPerSource int
	DefaultMinScore       float64
}

func (as *AppConfig) Load() (*NewsScoutConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/news_api/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	llmBaseURL := os.Getenv("LLM_BASE_URL")
	if llmBaseURL == "" {
		llmBaseURL = defaultLLMBaseURL
	}

	cfg := &NewsScoutConfig{
		StorageConfig: *storageCfg,
		NewsAPIKey:    os.Getenv("NEWS_API_KEY"),
		LLM: LLMConfig{
			BaseURL: llmBaseURL,
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   os.Getenv("LLM_MODEL"),
		},
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		SchedulerEnabled: os.Getenv("SCHEDULER_ENABLED") == "true",
	}

	if raw := os.Getenv("DEFAULT_LIMIT_PER_SOURCE"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("DEFAULT_LIMIT_PER_SOURCE must be a positive integer, got %q", raw)
		}
		cfg.DefaultLimitPerSource = v
	}
	if raw := os.Getenv("DEFAULT_MIN_SCORE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("DEFAULT_MIN_SCORE must be a number between 0 and 1, got %q", raw)
		}
		cfg.DefaultMinScore = v
	}

	if err := loadPipelineFile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPipelineFile merges the optional YAML schedule file referenced by
// PIPELINE_CONFIG into the app config.
func loadPipelineFile(cfg *NewsScoutConfig) error {
	path := os.Getenv("PIPELINE_CONFIG")
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open pipeline config file", "path", path, "error", err)
		return err
	}
	defer f.Close()

	fileCfg, err := pipeline.NewConfigLoader(f).Load()
	if err != nil {
		slog.Error("Failed to parse pipeline config file", "path", path, "error", err)
		return err
	}

	schedCfg, err := fileCfg.SchedulerConfig()
	if err != nil {
		return err
	}
	cfg.SchedulerConfig = schedCfg
	cfg.IngestionParams = fileCfg.Params()
	return nil
}
