package pipeline

import (
	"context"
	"log/slog"

	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/rank"
)

// Pipeline chains ingestion and ranking into one run, the shape invoked
// by the scheduler and the one-shot command.
type Pipeline struct {
	ingestSvc *ingest.Service
	rankSvc   *rank.Service
	logger    *slog.Logger
}

func New(ingestSvc *ingest.Service, rankSvc *rank.Service, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ingestSvc: ingestSvc,
		rankSvc:   rankSvc,
		logger:    logger,
	}
}

type RunResult struct {
	Job     domain.IngestionJob
	Ranking rank.Result
}

// Run ingests from the requested sources, then ranks every article the
// job touched. Articles already ranked by an earlier run are skipped, so
// repeated runs converge instead of re-spending model calls.
func (p *Pipeline) Run(ctx context.Context, params ingest.Params) (RunResult, error) {
	job, err := p.ingestSvc.Ingest(ctx, params)
	if err != nil {
		return RunResult{}, err
	}

	ranking, err := p.rankSvc.RankArticles(ctx, job.ArticleIDs, false)
	if err != nil {
		return RunResult{Job: job}, err
	}

	p.logger.Info("pipeline run finished",
		"jobId", job.ID,
		"jobStatus", job.Status,
		"articlesFetched", job.ArticlesFetched,
		"ranked", ranking.RankedCount,
		"skipped", ranking.SkippedCount,
		"rankErrors", len(ranking.Errors))
	return RunResult{Job: job, Ranking: ranking}, nil
}
