package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/llm"
	"github.com/DjordjeVuckovic/news-scout/internal/pipeline"
	"github.com/DjordjeVuckovic/news-scout/internal/rank"
	"github.com/DjordjeVuckovic/news-scout/internal/source"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-scout/pkg/config/env"
)

// One-shot pipeline run: ingest from the requested sources, rank what was
// fetched, print a summary and exit. Intended for cron and manual runs.
func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	sourcesFlag := flag.String("sources", "", "comma-separated source names, defaults to all known sources")
	limitFlag := flag.Int("limit", 0, "max articles per source")
	categoryFlag := flag.String("category", "", "optional category filter")
	flag.Parse()

	if err := env.LoadDotEnv(os.Getenv("ENV"), "cmd/pipeline/.env"); err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	ctx := context.Background()

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration", "error", err)
		os.Exit(1)
	}
	store, err := factory.NewStoreFromConfig(ctx, *storageCfg)
	if err != nil {
		slog.Error("Failed to create store", "error", err)
		os.Exit(1)
	}

	llmBaseURL := os.Getenv("LLM_BASE_URL")
	if llmBaseURL == "" {
		llmBaseURL = "http://localhost:11434/v1"
	}
	gateway, err := llm.NewGateway(llmBaseURL, os.Getenv("LLM_API_KEY"))
	if err != nil {
		slog.Error("Failed to create completion gateway", "error", err)
		os.Exit(1)
	}

	rankCfg := rank.DefaultConfig()
	if model := os.Getenv("LLM_MODEL"); model != "" {
		rankCfg.Model = model
	}

	var ingestOpts []ingest.ServiceOption
	if raw := os.Getenv("DEFAULT_LIMIT_PER_SOURCE"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			ingestOpts = append(ingestOpts, ingest.WithDefaultLimitPerSource(v))
		}
	}
	ingestSvc := ingest.NewService(store, source.NewFactory(os.Getenv("NEWS_API_KEY")), slog.Default(), ingestOpts...)
	rankSvc := rank.NewService(store, gateway, rankCfg, slog.Default())
	p := pipeline.New(ingestSvc, rankSvc, slog.Default())

	params := ingest.Params{
		LimitPerSource: *limitFlag,
		Category:       *categoryFlag,
	}
	if *sourcesFlag != "" {
		params.Sources = strings.Split(*sourcesFlag, ",")
	}

	result, err := p.Run(ctx, params)
	if err != nil {
		slog.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Pipeline run summary",
		"jobId", result.Job.ID,
		"status", result.Job.Status,
		"articlesFetched", result.Job.ArticlesFetched,
		"ranked", result.Ranking.RankedCount,
		"skipped", result.Ranking.SkippedCount)

	if result.Job.Status == domain.JobFailed {
		os.Exit(1)
	}
}
