package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/retry"
	"github.com/DjordjeVuckovic/news-scout/internal/source"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimitPerSource = 10
	defaultMaxConcurrency = 4
	defaultPendingLimit   = 20
)

// Params narrows one ingestion run. Zero values fall back to all known
// sources with the default per-source limit.
type Params struct {
	Sources        []string
	LimitPerSource int
	Category       string
}

func (s *Service) withDefaults(p Params) Params {
	if len(p.Sources) == 0 {
		p.Sources = source.KnownNames()
	}
	if p.LimitPerSource <= 0 {
		p.LimitPerSource = s.limitPerSource
	}
	return p
}

// Service runs ingestion jobs: fetch from each requested source, dedupe
// against stored articles and record the outcome on a job row. Source
// failures are isolated; one provider going down never loses the others'
// articles.
type Service struct {
	store          storage.Store
	sources        *source.Factory
	retrier        *retry.Retrier
	logger         *slog.Logger
	maxConcurrency int
	limitPerSource int
	now            func() time.Time
}

type ServiceOption func(*Service)

func WithRetrier(retrier *retry.Retrier) ServiceOption {
	return func(s *Service) { s.retrier = retrier }
}

func WithMaxConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithDefaultLimitPerSource overrides the per-source article cap applied
// when a run does not ask for one.
func WithDefaultLimitPerSource(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.limitPerSource = n
		}
	}
}

func NewService(store storage.Store, sources *source.Factory, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:          store,
		sources:        sources,
		logger:         logger,
		maxConcurrency: defaultMaxConcurrency,
		limitPerSource: defaultLimitPerSource,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retrier == nil {
		s.retrier = retry.New(retry.DefaultConfig(), apperr.IsTransient, logger)
	}
	return s
}

// Begin creates and persists a running job row so its id can be handed to
// the caller before any fetching starts.
func (s *Service) Begin(ctx context.Context) (domain.IngestionJob, error) {
	job := domain.IngestionJob{
		ID:        uuid.New(),
		StartedAt: s.now(),
		Status:    domain.JobRunning,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return domain.IngestionJob{}, err
	}
	return job, nil
}

// Run executes the fetch-and-store phase for a job created by Begin and
// finalizes it. The returned job carries the terminal status; the error
// return is reserved for persistence failures, never for source failures.
func (s *Service) Run(ctx context.Context, job domain.IngestionJob, params Params) (domain.IngestionJob, error) {
	params = s.withDefaults(params)

	type sourceOutcome struct {
		ids     []int64
		created int
		err     error
	}
	outcomes := make([]sourceOutcome, len(params.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, name := range params.Sources {
		g.Go(func() error {
			ids, created, err := s.ingestSource(gctx, name, params.LimitPerSource, params.Category)
			outcomes[i] = sourceOutcome{ids: ids, created: created, err: err}
			return nil
		})
	}
	_ = g.Wait()

	errs := make(map[string]string)
	var touched []int64
	fetched := 0
	for i, name := range params.Sources {
		out := outcomes[i]
		if out.err != nil {
			errs[name] = out.err.Error()
			s.logger.Warn("source ingestion failed", "source", name, "error", out.err)
			continue
		}
		touched = append(touched, out.ids...)
		fetched += out.created
		s.logger.Info("source ingested",
			"source", name,
			"stored", out.created,
			"seen", len(out.ids))
	}

	completed := s.now()
	job.CompletedAt = &completed
	job.ArticlesFetched = fetched
	job.ArticleIDs = touched
	job.Errors = errs
	job.Status = domain.ResolveJobStatus(len(params.Sources), errs, len(touched))

	if err := s.store.FinalizeJob(ctx, job); err != nil {
		return domain.IngestionJob{}, err
	}

	s.logger.Info("ingestion job finished",
		"jobId", job.ID,
		"status", job.Status,
		"articlesFetched", job.ArticlesFetched,
		"sourceErrors", len(errs))
	return job, nil
}

// Ingest is the synchronous path used by the scheduler and the one-shot
// pipeline command.
func (s *Service) Ingest(ctx context.Context, params Params) (domain.IngestionJob, error) {
	job, err := s.Begin(ctx)
	if err != nil {
		return domain.IngestionJob{}, err
	}
	return s.Run(ctx, job, params)
}

func (s *Service) ingestSource(ctx context.Context, name string, limit int, category string) ([]int64, int, error) {
	client, err := s.sources.Resolve(name)
	if err != nil {
		return nil, 0, err
	}

	var raw []domain.RawArticle
	err = s.retrier.Do(ctx, func() error {
		var fetchErr error
		raw, fetchErr = client.FetchTopHeadlines(ctx, limit, category)
		return fetchErr
	})
	if err != nil {
		return nil, 0, err
	}

	fetchedAt := s.now()
	articles := make([]domain.Article, 0, len(raw))
	for _, r := range raw {
		articles = append(articles, domain.Article{
			SourceName:  r.SourceName,
			ExternalID:  r.ExternalID,
			Title:       r.Title,
			Description: r.Description,
			Content:     r.Content,
			URL:         r.URL,
			ImageURL:    r.ImageURL,
			PublishedAt: r.PublishedAt,
			FetchedAt:   fetchedAt,
			Status:      domain.StatusPending,
		})
	}

	return s.storeArticles(ctx, articles)
}

// storeArticles persists a source's fetch. Known duplicates resolve to the
// existing row id without counting as fetched. The fast path batches all
// new rows at once; if a concurrent job creates a conflict mid-batch, the
// whole batch falls back to conflict-tolerant per-row inserts.
func (s *Service) storeArticles(ctx context.Context, articles []domain.Article) ([]int64, int, error) {
	ids := make([]int64, 0, len(articles))
	fresh := make([]domain.Article, 0, len(articles))

	for _, a := range articles {
		existing, err := s.store.GetByExternalID(ctx, a.SourceName, a.ExternalID)
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !apperr.IsNotFound(err) {
			return nil, 0, err
		}
		fresh = append(fresh, a)
	}

	if len(fresh) == 0 {
		return ids, 0, nil
	}

	newIDs, err := s.store.InsertBatch(ctx, fresh)
	if err == nil {
		return append(ids, newIDs...), len(newIDs), nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, 0, err
	}

	created := 0
	for _, a := range fresh {
		id, wasCreated, err := s.store.InsertOrGet(ctx, a)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
		if wasCreated {
			created++
		}
	}
	return ids, created, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.IngestionJob, error) {
	return s.store.GetJob(ctx, id)
}

func (s *Service) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	return s.store.GetByID(ctx, id)
}

// ListPending returns the newest unranked articles, the feed the ranking
// step draws from.
func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return s.store.ListPending(ctx, limit)
}
