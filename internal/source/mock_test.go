package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_FetchTopHeadlines(t *testing.T) {
	client := NewMockClient()

	articles, err := client.FetchTopHeadlines(context.Background(), 5, "")
	require.NoError(t, err)
	require.Len(t, articles, 5)

	for _, a := range articles {
		assert.Equal(t, "mock", a.SourceName)
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.URL)
		assert.NotEmpty(t, a.ExternalID)
	}
}

func TestMockClient_LimitTruncates(t *testing.T) {
	client := NewMockClient()

	articles, err := client.FetchTopHeadlines(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestMockClient_NonPositiveLimits(t *testing.T) {
	client := NewMockClient()

	none, err := client.FetchTopHeadlines(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	negative, err := client.FetchTopHeadlines(context.Background(), -1, "")
	require.NoError(t, err)
	assert.Empty(t, negative)
}

func TestMockClient_CategoryFilter(t *testing.T) {
	client := NewMockClient()

	articles, err := client.FetchTopHeadlines(context.Background(), 10, "business")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.URL)
	}
}

func TestMockClient_ExternalIDsAreStable(t *testing.T) {
	client := NewMockClient()

	first, err := client.FetchTopHeadlines(context.Background(), 5, "")
	require.NoError(t, err)
	second, err := client.FetchTopHeadlines(context.Background(), 5, "")
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].ExternalID, second[i].ExternalID)
	}
}

func TestMockClient_RotatesPublishedAt(t *testing.T) {
	client := NewMockClient()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return base }

	articles, err := client.FetchTopHeadlines(context.Background(), 3, "")
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, base, articles[0].PublishedAt)
	assert.Equal(t, base.Add(-time.Hour), articles[1].PublishedAt)
	assert.Equal(t, base.Add(-2*time.Hour), articles[2].PublishedAt)
}
