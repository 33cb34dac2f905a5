package rank

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/cache"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/llm"
	"github.com/DjordjeVuckovic/news-scout/internal/retry"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
)

// CompletionClient is the slice of the llm gateway the ranker needs.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Completion, error)
}

const (
	defaultModel       = "gemini-1.5-flash"
	defaultTemperature = 0.3
	defaultMaxTokens   = 500
	defaultTopLimit    = 10
	defaultMinScore    = 0.6
	guardTTL           = 2 * time.Minute
)

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopLimit    int
	MinScore    float64
}

func DefaultConfig() Config {
	return Config{
		Model:       defaultModel,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		TopLimit:    defaultTopLimit,
		MinScore:    defaultMinScore,
	}
}

// Service scores articles by viral potential. Scoring is append-only:
// re-ranking adds a new score row and the latest one wins everywhere.
type Service struct {
	store   storage.Store
	client  CompletionClient
	retrier *retry.Retrier
	guard   cache.Guard
	cfg     Config
	logger  *slog.Logger
}

type ServiceOption func(*Service)

// WithGuard enables the distributed in-flight lock. Without it, concurrent
// rank requests for the same article may both score it; the extra row is
// harmless but wastes a model call.
func WithGuard(guard cache.Guard) ServiceOption {
	return func(s *Service) { s.guard = guard }
}

func WithRetrier(retrier *retry.Retrier) ServiceOption {
	return func(s *Service) { s.retrier = retrier }
}

func NewService(store storage.Store, client CompletionClient, cfg Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = defaultTopLimit
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:  store,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retrier == nil {
		s.retrier = retry.New(retry.DefaultConfig(), apperr.IsTransient, logger)
	}
	return s
}

// Result reports one rank run. Errors are keyed by article id and never
// abort the run; every requested id lands in Scores or Errors.
type Result struct {
	RankedCount  int
	SkippedCount int
	Scores       map[int64]domain.RankingScore
	Errors       map[int64]string
}

func (s *Service) RankArticles(ctx context.Context, articleIDs []int64, forceRerank bool) (Result, error) {
	result := Result{
		Scores: make(map[int64]domain.RankingScore, len(articleIDs)),
		Errors: make(map[int64]string),
	}

	for _, id := range articleIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		article, err := s.store.GetByID(ctx, id)
		if err != nil {
			result.Errors[id] = err.Error()
			continue
		}

		if !forceRerank && article.Status == domain.StatusRanked {
			existing, err := s.store.LatestScore(ctx, id)
			if err == nil {
				result.Scores[id] = existing
				result.SkippedCount++
				continue
			}
			if !apperr.IsNotFound(err) {
				result.Errors[id] = err.Error()
				continue
			}
			// Status says ranked but no score row exists; fall through
			// and rank it for real.
		}

		release, acquired, err := s.acquire(ctx, id)
		if err != nil {
			s.logger.Warn("rank guard unavailable, proceeding unguarded", "articleId", id, "error", err)
		} else if !acquired {
			result.Errors[id] = "ranking already in flight"
			continue
		}

		score, rankErr := s.rankOne(ctx, article)
		release()
		if rankErr != nil {
			s.logger.Warn("failed to rank article", "articleId", id, "error", rankErr)
			result.Errors[id] = rankErr.Error()
			continue
		}

		result.Scores[id] = score
		result.RankedCount++
	}

	return result, nil
}

func (s *Service) acquire(ctx context.Context, articleID int64) (release func(), acquired bool, err error) {
	if s.guard == nil {
		return func() {}, true, nil
	}

	key := "rank:article:" + strconv.FormatInt(articleID, 10)
	ok, err := s.guard.Acquire(ctx, key, guardTTL)
	if err != nil {
		return func() {}, true, err
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		if err := s.guard.Release(ctx, key); err != nil {
			s.logger.Warn("failed to release rank guard", "key", key, "error", err)
		}
	}, true, nil
}

func (s *Service) rankOne(ctx context.Context, article domain.Article) (domain.RankingScore, error) {
	req := llm.Request{
		Model:       s.cfg.Model,
		User:        buildPrompt(article),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	var completion *llm.Completion
	err := s.retrier.Do(ctx, func() error {
		var opErr error
		completion, opErr = s.client.Complete(ctx, req)
		return opErr
	})
	if err != nil {
		return domain.RankingScore{}, fmt.Errorf("completion for article %d: %w", article.ID, err)
	}

	data, parseErr := parseResponse(completion.Content)
	if parseErr != nil {
		s.logger.Warn("model response unparseable, recording neutral score",
			"articleId", article.ID,
			"error", parseErr)
	}

	score, err := s.store.InsertScore(ctx, domain.RankingScore{
		ArticleID: article.ID,
		Score:     data.Score,
		Reasoning: data.Reasoning,
		Category:  data.Category,
		ModelUsed: completion.Model,
	})
	if err != nil {
		return domain.RankingScore{}, err
	}

	if err := s.store.UpdateStatus(ctx, article.ID, domain.StatusRanked); err != nil {
		return domain.RankingScore{}, err
	}

	s.logger.Info("ranked article",
		"articleId", article.ID,
		"score", score.Score,
		"category", score.Category,
		"model", score.ModelUsed)
	return score, nil
}

// TopRanked returns each article's latest score at or above minScore, best
// first. A non-positive limit and a negative minScore fall back to the
// configured hand-off defaults; an explicit zero minScore is honored and
// returns the unfiltered ranked list.
func (s *Service) TopRanked(ctx context.Context, limit int, minScore float64) ([]domain.RankedArticle, error) {
	if limit <= 0 {
		limit = s.cfg.TopLimit
	}
	if minScore < 0 {
		minScore = s.cfg.MinScore
	}
	return s.store.TopRanked(ctx, limit, minScore)
}

func (s *Service) LatestScore(ctx context.Context, articleID int64) (domain.RankingScore, error) {
	return s.store.LatestScore(ctx, articleID)
}
