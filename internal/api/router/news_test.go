package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/llm"
	"github.com/DjordjeVuckovic/news-scout/internal/rank"
	"github.com/DjordjeVuckovic/news-scout/internal/retry"
	"github.com/DjordjeVuckovic/news-scout/internal/source"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/memory"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct{}

func (stubClient) Complete(_ context.Context, _ llm.Request) (*llm.Completion, error) {
	return &llm.Completion{
		Content: `{"score": 0.8, "reasoning": "stub", "category": "tech"}`,
		Model:   "stub-model",
	}, nil
}

type fixture struct {
	e     *echo.Echo
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := retry.DefaultConfig()
	cfg.BaseDelay = time.Nanosecond
	cfg.JitterWindow = 0
	retrier := retry.New(cfg, apperr.IsTransient, nil)

	store := memory.NewStore()
	ingestSvc := ingest.NewService(store, source.NewFactory(""), nil, ingest.WithRetrier(retrier))
	rankSvc := rank.NewService(store, stubClient{}, rank.DefaultConfig(), nil, rank.WithRetrier(retrier))

	e := echo.New()
	e.HTTPErrorHandler = apperr.GlobalErrorHandler()
	NewNewsRouter(e, ingestSvc, rankSvc).Bind()

	return &fixture{e: e, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) awaitJob(t *testing.T, jobID string) domain.IngestionJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := f.do(t, http.MethodGet, "/jobs/"+jobID, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var job domain.IngestionJob
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		if job.Status != domain.JobRunning {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return domain.IngestionJob{}
}

func TestIngestEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest", `{"sources":["mock"],"limitPerSource":5}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted ingestAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "accepted", accepted.Status)

	job := f.awaitJob(t, accepted.JobID.String())
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 5, job.ArticlesFetched)
	assert.Len(t, job.ArticleIDs, 5)
}

func TestIngestEndpointValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest", `{"sources":["rss"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown source")

	rec = f.do(t, http.MethodPost, "/ingest", `{"sources":["mock"],"limitPerSource":101}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limitPerSource")
}

func TestIngestEndpointPartialFailureIsAccepted(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest", `{"sources":["mock","newsapi"],"limitPerSource":3}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted ingestAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	job := f.awaitJob(t, accepted.JobID.String())
	assert.Equal(t, domain.JobPartialFailure, job.Status)
	assert.Contains(t, job.Errors, "newsapi")
}

func TestJobEndpointErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/jobs/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedArticles(t *testing.T, f *fixture, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, _, err := f.store.InsertOrGet(context.Background(), domain.Article{
			SourceName:  "mock",
			ExternalID:  fmt.Sprintf("mock_seed%d", i),
			Title:       fmt.Sprintf("Seed %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			PublishedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRankEndpoint(t *testing.T) {
	f := newFixture(t)
	ids := seedArticles(t, f, 2)

	body := fmt.Sprintf(`{"articleIds":[%d,%d,999]}`, ids[0], ids[1])
	rec := f.do(t, http.MethodPost, "/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RankedCount)
	assert.Equal(t, 0, resp.SkippedCount)
	assert.Len(t, resp.Scores, 2)
	assert.Contains(t, resp.Errors[999], "not found")
}

func TestRankEndpointSkipsOnSecondCall(t *testing.T) {
	f := newFixture(t)
	ids := seedArticles(t, f, 1)
	body := fmt.Sprintf(`{"articleIds":[%d]}`, ids[0])

	rec := f.do(t, http.MethodPost, "/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.RankedCount)
	assert.Equal(t, 1, resp.SkippedCount)
}

func TestRankEndpointValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/rank", `{"articleIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ids := make([]string, 51)
	for i := range ids {
		ids[i] = fmt.Sprint(i + 1)
	}
	rec = f.do(t, http.MethodPost, "/rank", `{"articleIds":[`+strings.Join(ids, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 50")
}

func TestPendingEndpoint(t *testing.T) {
	f := newFixture(t)
	seedArticles(t, f, 3)

	rec := f.do(t, http.MethodGet, "/articles/pending?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Articles []domain.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Articles, 2)
}

func TestTopRankedEndpoint(t *testing.T) {
	f := newFixture(t)
	ids := seedArticles(t, f, 2)

	body := fmt.Sprintf(`{"articleIds":[%d,%d]}`, ids[0], ids[1])
	rec := f.do(t, http.MethodPost, "/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/articles/top-ranked?limit=10&minScore=0.5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Articles []domain.RankedArticle `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Articles, 2)

	rec = f.do(t, http.MethodGet, "/articles/top-ranked?minScore=0.9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Articles)
}

func TestTopRankedEndpointExplicitZeroMinScore(t *testing.T) {
	f := newFixture(t)
	ids := seedArticles(t, f, 1)

	ctx := context.Background()
	_, err := f.store.InsertScore(ctx, domain.RankingScore{
		ArticleID: ids[0], Score: 0.2, Reasoning: "low", ModelUsed: "stub-model", RankedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateStatus(ctx, ids[0], domain.StatusRanked))

	var resp struct {
		Articles []domain.RankedArticle `json:"articles"`
	}

	// without the parameter the default 0.6 threshold hides the article
	rec := f.do(t, http.MethodGet, "/articles/top-ranked", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Articles)

	// minScore=0 must return the unfiltered list, low scores included
	rec = f.do(t, http.MethodGet, "/articles/top-ranked?minScore=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, ids[0], resp.Articles[0].Article.ID)
	assert.InDelta(t, 0.2, resp.Articles[0].Score.Score, 1e-9)
}

func TestArticleEndpoint(t *testing.T) {
	f := newFixture(t)
	ids := seedArticles(t, f, 1)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/articles/%d", ids[0]), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp articleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ids[0], resp.Article.ID)
	assert.Nil(t, resp.LatestScore, "unranked article has no score")

	body := fmt.Sprintf(`{"articleIds":[%d]}`, ids[0])
	rec = f.do(t, http.MethodPost, "/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/articles/%d", ids[0]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.LatestScore)
	assert.InDelta(t, 0.8, resp.LatestScore.Score, 1e-9)

	rec = f.do(t, http.MethodGet, "/articles/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/articles/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
