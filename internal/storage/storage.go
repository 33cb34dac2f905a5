package storage

import (
	"context"
	"errors"

	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/google/uuid"
)

type Type string

const (
	PG     Type = "pg"
	Memory Type = "memory"
)

type StoreError string

const (
	ErrUnsupportedStore StoreError = "unsupported store type: %s"
)

func (e StoreError) Error() string {
	return string(e)
}

// ErrDuplicate is returned by InsertBatch when a uniqueness conflict on
// (source_name, external_id) aborts the batch. Callers fall back to the
// conflict-tolerant per-row path; the error never reaches API clients.
var ErrDuplicate = errors.New("duplicate article")

// ArticleStore owns the articles table. Rows are written by the
// ingestion service; status transitions come from the ranking service.
type ArticleStore interface {
	GetByID(ctx context.Context, id int64) (domain.Article, error)
	GetByExternalID(ctx context.Context, sourceName, externalID string) (domain.Article, error)
	// InsertBatch inserts all articles or none; a uniqueness conflict
	// surfaces as ErrDuplicate.
	InsertBatch(ctx context.Context, articles []domain.Article) ([]int64, error)
	// InsertOrGet inserts one article, resolving a uniqueness conflict
	// to the existing row's id. created is false when the row existed.
	InsertOrGet(ctx context.Context, article domain.Article) (id int64, created bool, err error)
	ListPending(ctx context.Context, limit int) ([]domain.Article, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ArticleStatus) error
}

// ScoreStore owns the append-only ranking score history.
type ScoreStore interface {
	InsertScore(ctx context.Context, score domain.RankingScore) (domain.RankingScore, error)
	LatestScore(ctx context.Context, articleID int64) (domain.RankingScore, error)
	// TopRanked returns each article's latest score, filtered to
	// score >= minScore, ordered by score desc then rankedAt desc.
	TopRanked(ctx context.Context, limit int, minScore float64) ([]domain.RankedArticle, error)
}

// JobStore owns ingestion job records.
type JobStore interface {
	CreateJob(ctx context.Context, job domain.IngestionJob) error
	// FinalizeJob persists the completed job state. It is called exactly
	// once per job, after all sources have been attempted.
	FinalizeJob(ctx context.Context, job domain.IngestionJob) error
	GetJob(ctx context.Context, id uuid.UUID) (domain.IngestionJob, error)
}

// Store is the full persistence surface wired into the services.
type Store interface {
	ArticleStore
	ScoreStore
	JobStore
}
