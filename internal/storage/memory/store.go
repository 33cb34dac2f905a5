package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/google/uuid"
)

// Store is a mutex-guarded in-memory implementation used by unit tests
// and credential-less environments. It mirrors the pg store's contract,
// including duplicate resolution on (sourceName, externalId).
type Store struct {
	mu sync.RWMutex

	articles  map[int64]domain.Article
	byDedup   map[dedupKey]int64
	scores    map[int64][]domain.RankingScore
	jobs      map[uuid.UUID]domain.IngestionJob
	nextID    int64
	nextScore int64
}

type dedupKey struct {
	sourceName string
	externalID string
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		articles: make(map[int64]domain.Article),
		byDedup:  make(map[dedupKey]int64),
		scores:   make(map[int64][]domain.RankingScore),
		jobs:     make(map[uuid.UUID]domain.IngestionJob),
	}
}

func (s *Store) GetByID(_ context.Context, id int64) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, apperr.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	return a, nil
}

func (s *Store) GetByExternalID(_ context.Context, sourceName, externalID string) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDedup[dedupKey{sourceName, externalID}]
	if !ok {
		return domain.Article{}, apperr.NewNotFound("article", externalID)
	}
	return s.articles[id], nil
}

func (s *Store) InsertBatch(_ context.Context, articles []domain.Article) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// All-or-nothing, like a single transaction against pg.
	for _, a := range articles {
		if _, exists := s.byDedup[dedupKey{a.SourceName, a.ExternalID}]; exists {
			return nil, storage.ErrDuplicate
		}
	}

	ids := make([]int64, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, s.insertLocked(a))
	}
	return ids, nil
}

func (s *Store) InsertOrGet(_ context.Context, article domain.Article) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.byDedup[dedupKey{article.SourceName, article.ExternalID}]; exists {
		return id, false, nil
	}
	return s.insertLocked(article), true, nil
}

func (s *Store) insertLocked(a domain.Article) int64 {
	s.nextID++
	a.ID = s.nextID
	if a.FetchedAt.IsZero() {
		a.FetchedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	s.articles[a.ID] = a
	s.byDedup[dedupKey{a.SourceName, a.ExternalID}] = a.ID
	return a.ID
}

func (s *Store) ListPending(_ context.Context, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]domain.Article, 0)
	for _, a := range s.articles {
		if a.Status == domain.StatusPending {
			pending = append(pending, a)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].FetchedAt.Equal(pending[j].FetchedAt) {
			return pending[i].ID > pending[j].ID
		}
		return pending[i].FetchedAt.After(pending[j].FetchedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) UpdateStatus(_ context.Context, id int64, status domain.ArticleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[id]
	if !ok {
		return apperr.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	a.Status = status
	s.articles[id] = a
	return nil
}

func (s *Store) InsertScore(_ context.Context, score domain.RankingScore) (domain.RankingScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextScore++
	score.ID = s.nextScore
	if score.RankedAt.IsZero() {
		score.RankedAt = time.Now().UTC()
	}
	s.scores[score.ArticleID] = append(s.scores[score.ArticleID], score)
	return score, nil
}

func (s *Store) LatestScore(_ context.Context, articleID int64) (domain.RankingScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestLocked(articleID)
}

func (s *Store) TopRanked(_ context.Context, limit int, minScore float64) ([]domain.RankedArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := make([]domain.RankedArticle, 0)
	for articleID := range s.scores {
		latest, err := s.latestLocked(articleID)
		if err != nil {
			continue
		}
		if latest.Score < minScore {
			continue
		}
		article, ok := s.articles[articleID]
		if !ok {
			continue
		}
		ranked = append(ranked, domain.RankedArticle{Article: article, Score: latest})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Score != ranked[j].Score.Score {
			return ranked[i].Score.Score > ranked[j].Score.Score
		}
		return ranked[i].Score.RankedAt.After(ranked[j].Score.RankedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) latestLocked(articleID int64) (domain.RankingScore, error) {
	history := s.scores[articleID]
	if len(history) == 0 {
		return domain.RankingScore{}, apperr.NewNotFound("ranking score", strconv.FormatInt(articleID, 10))
	}
	latest := history[0]
	for _, sc := range history[1:] {
		if sc.RankedAt.After(latest.RankedAt) || (sc.RankedAt.Equal(latest.RankedAt) && sc.ID > latest.ID) {
			latest = sc
		}
	}
	return latest, nil
}

func (s *Store) CreateJob(_ context.Context, job domain.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Store) FinalizeJob(_ context.Context, job domain.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[job.ID]
	if !ok || existing.CompletedAt != nil {
		return apperr.NewNotFound("ingestion job", job.ID.String())
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.IngestionJob{}, apperr.NewNotFound("ingestion job", id.String())
	}
	return cloneJob(job), nil
}

func cloneJob(job domain.IngestionJob) domain.IngestionJob {
	out := job
	out.ArticleIDs = append([]int64(nil), job.ArticleIDs...)
	out.Errors = make(map[string]string, len(job.Errors))
	for k, v := range job.Errors {
		out.Errors[k] = v
	}
	return out
}
