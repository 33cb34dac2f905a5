package pipeline

import (
	"context"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls int
}

func (c *stubClient) Complete(_ context.Context, _ llm.Request) (*llm.Completion, error) {
	c.calls++
	return &llm.Completion{
		Content: `{"score": 0.75, "reasoning": "stub", "category": "tech"}`,
		Model:   "stub-model",
	}, nil
}

func newPipeline(t *testing.T, store *memory.Store, client *stubClient) *Pipeline {
	t.Helper()
	cfg := retry.DefaultConfig()
	cfg.BaseDelay = time.Nanosecond
	cfg.JitterWindow = 0
	retrier := retry.New(cfg, apperr.IsTransient, nil)

	ingestSvc := ingest.NewService(store, source.NewFactory(""), nil, ingest.WithRetrier(retrier))
	rankSvc := rank.NewService(store, client, rank.DefaultConfig(), nil, rank.WithRetrier(retrier))
	return New(ingestSvc, rankSvc, nil)
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := &stubClient{}
	p := newPipeline(t, store, client)

	result, err := p.Run(ctx, ingest.Params{Sources: []string{"mock"}, LimitPerSource: 5})
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, result.Job.Status)
	assert.Equal(t, 5, result.Job.ArticlesFetched)
	assert.Equal(t, 5, result.Ranking.RankedCount)
	assert.Empty(t, result.Ranking.Errors)

	// everything the job touched is now ranked
	pending, err := store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPipeline_RepeatedRunsConverge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := &stubClient{}
	p := newPipeline(t, store, client)

	_, err := p.Run(ctx, ingest.Params{Sources: []string{"mock"}, LimitPerSource: 5})
	require.NoError(t, err)
	firstCalls := client.calls

	second, err := p.Run(ctx, ingest.Params{Sources: []string{"mock"}, LimitPerSource: 5})
	require.NoError(t, err)

	assert.Equal(t, 0, second.Job.ArticlesFetched)
	assert.Equal(t, 0, second.Ranking.RankedCount)
	assert.Equal(t, 5, second.Ranking.SkippedCount)
	assert.Equal(t, firstCalls, client.calls, "no extra model calls on the second run")
}

func TestPipeline_RankErrorsDoNotFailTheRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := &stubClient{}
	p := newPipeline(t, store, client)

	result, err := p.Run(ctx, ingest.Params{Sources: []string{"mock", "newsapi"}, LimitPerSource: 2})
	require.NoError(t, err)

	// newsapi has no key; mock still flows through ingestion and ranking
	assert.Equal(t, domain.JobPartialFailure, result.Job.Status)
	assert.Equal(t, 2, result.Ranking.RankedCount)
}
