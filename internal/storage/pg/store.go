package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code for a unique-constraint
// conflict; hitting one on the dedup key means "already exists".
const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(pool *ConnectionPool) (*Store, error) {
	return &Store{db: pool.conn}, nil
}

const articleColumns = `id, source_name, external_id, title, description, content, url, image_url, published_at, fetched_at, status`

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.ID,
		&a.SourceName,
		&a.ExternalID,
		&a.Title,
		&a.Description,
		&a.Content,
		&a.URL,
		&a.ImageURL,
		&a.PublishedAt,
		&a.FetchedAt,
		&a.Status,
	)
	return a, err
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Article, error) {
	row := s.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)

	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, apperr.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("query article by id: %w", err)
	}
	return a, nil
}

func (s *Store) GetByExternalID(ctx context.Context, sourceName, externalID string) (domain.Article, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE source_name = $1 AND external_id = $2`,
		sourceName, externalID)

	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, apperr.NewNotFound("article", externalID)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("query article by external id: %w", err)
	}
	return a, nil
}

const insertArticleCmd = `
	INSERT INTO articles (source_name, external_id, title, description, content, url, image_url, published_at, fetched_at, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`

func (s *Store) InsertBatch(ctx context.Context, articles []domain.Article) ([]int64, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(insertArticleCmd, insertArgs(a)...)
	}

	results := tx.SendBatch(ctx, batch)
	ids := make([]int64, 0, len(articles))
	for range articles {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			_ = results.Close()
			if isUniqueViolation(err) {
				return nil, storage.ErrDuplicate
			}
			return nil, fmt.Errorf("batch insert article: %w", err)
		}
		ids = append(ids, id)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}
	return ids, nil
}

func (s *Store) InsertOrGet(ctx context.Context, article domain.Article) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO articles (source_name, external_id, title, description, content, url, image_url, published_at, fetched_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_name, external_id) DO NOTHING
		RETURNING id`, insertArgs(article)...).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert article: %w", err)
	}

	// Conflict: someone else won the race, resolve to their row.
	existing, err := s.GetByExternalID(ctx, article.SourceName, article.ExternalID)
	if err != nil {
		return 0, false, fmt.Errorf("resolve conflicting article: %w", err)
	}
	return existing.ID, false, nil
}

func insertArgs(a domain.Article) []any {
	fetchedAt := a.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	status := a.Status
	if status == "" {
		status = domain.StatusPending
	}
	return []any{
		a.SourceName,
		a.ExternalID,
		a.Title,
		a.Description,
		a.Content,
		a.URL,
		a.ImageURL,
		a.PublishedAt,
		fetchedAt,
		status,
	}
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.Article, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE status = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT $2`, domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.ArticleStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE articles SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *Store) InsertScore(ctx context.Context, score domain.RankingScore) (domain.RankingScore, error) {
	rankedAt := score.RankedAt
	if rankedAt.IsZero() {
		rankedAt = time.Now().UTC()
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO ranking_scores (article_id, score, reasoning, category, model_used, ranked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ranked_at`,
		score.ArticleID, score.Score, score.Reasoning, score.Category, score.ModelUsed, rankedAt,
	).Scan(&score.ID, &score.RankedAt)
	if err != nil {
		return domain.RankingScore{}, fmt.Errorf("insert ranking score: %w", err)
	}
	return score, nil
}

const scoreColumns = `id, article_id, score, reasoning, category, model_used, ranked_at`

func scanScore(row pgx.Row) (domain.RankingScore, error) {
	var sc domain.RankingScore
	err := row.Scan(
		&sc.ID,
		&sc.ArticleID,
		&sc.Score,
		&sc.Reasoning,
		&sc.Category,
		&sc.ModelUsed,
		&sc.RankedAt,
	)
	return sc, err
}

func (s *Store) LatestScore(ctx context.Context, articleID int64) (domain.RankingScore, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+scoreColumns+`
		FROM ranking_scores
		WHERE article_id = $1
		ORDER BY ranked_at DESC, id DESC
		LIMIT 1`, articleID)

	sc, err := scanScore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RankingScore{}, apperr.NewNotFound("ranking score", strconv.FormatInt(articleID, 10))
	}
	if err != nil {
		return domain.RankingScore{}, fmt.Errorf("query latest score: %w", err)
	}
	return sc, nil
}

func (s *Store) TopRanked(ctx context.Context, limit int, minScore float64) ([]domain.RankedArticle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.source_name, a.external_id, a.title, a.description, a.content, a.url, a.image_url, a.published_at, a.fetched_at, a.status,
		       s.id, s.article_id, s.score, s.reasoning, s.category, s.model_used, s.ranked_at
		FROM (
			SELECT DISTINCT ON (article_id) `+scoreColumns+`
			FROM ranking_scores
			ORDER BY article_id, ranked_at DESC, id DESC
		) s
		JOIN articles a ON a.id = s.article_id
		WHERE s.score >= $1
		ORDER BY s.score DESC, s.ranked_at DESC
		LIMIT $2`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("query top ranked: %w", err)
	}
	defer rows.Close()

	var ranked []domain.RankedArticle
	for rows.Next() {
		var ra domain.RankedArticle
		err := rows.Scan(
			&ra.Article.ID,
			&ra.Article.SourceName,
			&ra.Article.ExternalID,
			&ra.Article.Title,
			&ra.Article.Description,
			&ra.Article.Content,
			&ra.Article.URL,
			&ra.Article.ImageURL,
			&ra.Article.PublishedAt,
			&ra.Article.FetchedAt,
			&ra.Article.Status,
			&ra.Score.ID,
			&ra.Score.ArticleID,
			&ra.Score.Score,
			&ra.Score.Reasoning,
			&ra.Score.Category,
			&ra.Score.ModelUsed,
			&ra.Score.RankedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan top ranked row: %w", err)
		}
		ranked = append(ranked, ra)
	}
	return ranked, rows.Err()
}

func (s *Store) CreateJob(ctx context.Context, job domain.IngestionJob) error {
	errsJSON, idsJSON, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO ingestion_jobs (id, started_at, completed_at, status, articles_fetched, article_ids, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.StartedAt, job.CompletedAt, job.Status, job.ArticlesFetched, idsJSON, errsJSON)
	if err != nil {
		return fmt.Errorf("insert ingestion job: %w", err)
	}
	return nil
}

func (s *Store) FinalizeJob(ctx context.Context, job domain.IngestionJob) error {
	errsJSON, idsJSON, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE ingestion_jobs
		SET completed_at = $1, status = $2, articles_fetched = $3, article_ids = $4, errors = $5
		WHERE id = $6 AND completed_at IS NULL`,
		job.CompletedAt, job.Status, job.ArticlesFetched, idsJSON, errsJSON, job.ID)
	if err != nil {
		return fmt.Errorf("finalize ingestion job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("ingestion job", job.ID.String())
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (domain.IngestionJob, error) {
	var (
		job      domain.IngestionJob
		idsJSON  []byte
		errsJSON []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, started_at, completed_at, status, articles_fetched, article_ids, errors
		FROM ingestion_jobs
		WHERE id = $1`, id).Scan(
		&job.ID,
		&job.StartedAt,
		&job.CompletedAt,
		&job.Status,
		&job.ArticlesFetched,
		&idsJSON,
		&errsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IngestionJob{}, apperr.NewNotFound("ingestion job", id.String())
	}
	if err != nil {
		return domain.IngestionJob{}, fmt.Errorf("query ingestion job: %w", err)
	}

	if err := json.Unmarshal(idsJSON, &job.ArticleIDs); err != nil {
		return domain.IngestionJob{}, fmt.Errorf("unmarshal job article ids: %w", err)
	}
	if err := json.Unmarshal(errsJSON, &job.Errors); err != nil {
		return domain.IngestionJob{}, fmt.Errorf("unmarshal job errors: %w", err)
	}
	return job, nil
}

func marshalJobFields(job domain.IngestionJob) (errsJSON, idsJSON []byte, err error) {
	errs := job.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	errsJSON, err = json.Marshal(errs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job errors: %w", err)
	}

	ids := job.ArticleIDs
	if ids == nil {
		ids = []int64{}
	}
	idsJSON, err = json.Marshal(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job article ids: %w", err)
	}
	return errsJSON, idsJSON, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
