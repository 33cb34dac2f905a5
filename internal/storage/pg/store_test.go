package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	pkgtesting "github.com/DjordjeVuckovic/news-scout/pkg/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var (
	testCtx   context.Context
	testPool  *ConnectionPool
	testStore *Store
)

func TestMain(m *testing.M) {
	testCtx = context.Background()

	pg, err := pkgtesting.NewPGContainer(testCtx, pkgtesting.PGConfig{
		Database: "news_test_db",
		Username: "test",
		Password: "test",
	})
	if err != nil {
		panic(err)
	}
	defer testcontainers.TerminateContainer(pg.Container)

	testPool, err = NewConnectionPool(testCtx, PoolConfig{ConnStr: pg.ConnString})
	if err != nil {
		panic(err)
	}
	defer testPool.Close()

	testStore, err = NewStore(testPool)
	if err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func truncateTables(t *testing.T) {
	t.Helper()
	_, err := testPool.GetConn().Exec(testCtx, "TRUNCATE TABLE ranking_scores, ingestion_jobs, articles CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func pgArticle(externalID string) domain.Article {
	return domain.Article{
		SourceName:  "mock",
		ExternalID:  externalID,
		Title:       "Story " + externalID,
		URL:         "https://example.com/" + externalID,
		PublishedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStore_ArticleRoundTrip(t *testing.T) {
	truncateTables(t)

	ids, err := testStore.InsertBatch(testCtx, []domain.Article{pgArticle("a1"), pgArticle("a2")})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	got, err := testStore.GetByID(testCtx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ExternalID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.False(t, got.FetchedAt.IsZero())

	byExt, err := testStore.GetByExternalID(testCtx, "mock", "a2")
	require.NoError(t, err)
	assert.Equal(t, ids[1], byExt.ID)

	_, err = testStore.GetByID(testCtx, 99999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_InsertBatchConflict(t *testing.T) {
	truncateTables(t)

	_, err := testStore.InsertBatch(testCtx, []domain.Article{pgArticle("a1")})
	require.NoError(t, err)

	_, err = testStore.InsertBatch(testCtx, []domain.Article{pgArticle("a2"), pgArticle("a1")})
	require.ErrorIs(t, err, storage.ErrDuplicate)

	// the aborted batch must not have persisted its first row
	_, err = testStore.GetByExternalID(testCtx, "mock", "a2")
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_InsertOrGetResolvesConflicts(t *testing.T) {
	truncateTables(t)

	id, created, err := testStore.InsertOrGet(testCtx, pgArticle("a1"))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := testStore.InsertOrGet(testCtx, pgArticle("a1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestStore_PendingAndStatus(t *testing.T) {
	truncateTables(t)

	ids, err := testStore.InsertBatch(testCtx, []domain.Article{pgArticle("a1"), pgArticle("a2")})
	require.NoError(t, err)

	pending, err := testStore.ListPending(testCtx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, testStore.UpdateStatus(testCtx, ids[0], domain.StatusRanked))

	pending, err = testStore.ListPending(testCtx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID)

	err = testStore.UpdateStatus(testCtx, 99999, domain.StatusRanked)
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_ScoresLatestWins(t *testing.T) {
	truncateTables(t)

	ids, err := testStore.InsertBatch(testCtx, []domain.Article{pgArticle("a1"), pgArticle("a2")})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	_, err = testStore.InsertScore(testCtx, domain.RankingScore{
		ArticleID: ids[0], Score: 0.9, ModelUsed: "m", RankedAt: base,
	})
	require.NoError(t, err)
	_, err = testStore.InsertScore(testCtx, domain.RankingScore{
		ArticleID: ids[0], Score: 0.4, Reasoning: "rerank", ModelUsed: "m", RankedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	_, err = testStore.InsertScore(testCtx, domain.RankingScore{
		ArticleID: ids[1], Score: 0.7, ModelUsed: "m", RankedAt: base,
	})
	require.NoError(t, err)

	latest, err := testStore.LatestScore(testCtx, ids[0])
	require.NoError(t, err)
	assert.InDelta(t, 0.4, latest.Score, 1e-9)

	top, err := testStore.TopRanked(testCtx, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, top, 2, "one entry per article despite the rerank")
	assert.Equal(t, ids[1], top[0].Article.ID)
	assert.InDelta(t, 0.7, top[0].Score.Score, 1e-9)

	top, err = testStore.TopRanked(testCtx, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = testStore.LatestScore(testCtx, 99999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestStore_TopRankedOrdersEqualScoresByRecency(t *testing.T) {
	truncateTables(t)

	ids, err := testStore.InsertBatch(testCtx, []domain.Article{
		pgArticle("a1"), pgArticle("a2"), pgArticle("a3"), pgArticle("a4"),
	})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, sc := range []float64{0.9, 0.5, 0.9, 0.3} {
		_, err = testStore.InsertScore(testCtx, domain.RankingScore{
			ArticleID: ids[i], Score: sc, ModelUsed: "m", RankedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	top, err := testStore.TopRanked(testCtx, 10, 0.6)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ids[2], top[0].Article.ID, "equal scores order most recently ranked first")
	assert.Equal(t, ids[0], top[1].Article.ID)
}

func TestStore_JobLifecycle(t *testing.T) {
	truncateTables(t)

	job := domain.IngestionJob{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Status:    domain.JobRunning,
	}
	require.NoError(t, testStore.CreateJob(testCtx, job))

	got, err := testStore.GetJob(testCtx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.ArticleIDs)

	done := time.Now().UTC().Truncate(time.Millisecond)
	job.CompletedAt = &done
	job.Status = domain.JobPartialFailure
	job.ArticlesFetched = 2
	job.ArticleIDs = []int64{11, 12}
	job.Errors = map[string]string{"newsapi": "rate limited"}
	require.NoError(t, testStore.FinalizeJob(testCtx, job))

	got, err = testStore.GetJob(testCtx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPartialFailure, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, []int64{11, 12}, got.ArticleIDs)
	assert.Equal(t, "rate limited", got.Errors["newsapi"])

	// a finalized job cannot be finalized again
	err = testStore.FinalizeJob(testCtx, job)
	assert.True(t, apperr.IsNotFound(err))

	_, err = testStore.GetJob(testCtx, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}
