package source

import (
	"context"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/domain"
)

type mockEntry struct {
	title       string
	description string
	url         string
	category    string
}

// MockClient serves a fixed in-memory catalog for tests and environments
// without external credentials. External ids are deterministic so repeat
// ingestions dedup against the same rows.
type MockClient struct {
	catalog []mockEntry
	now     func() time.Time
}

var _ Client = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{
		catalog: []mockEntry{
			{
				title:       "AI Breakthrough: New Model Achieves Human-Level Understanding",
				description: "Researchers announce a groundbreaking AI model that demonstrates unprecedented understanding of complex tasks.",
				url:         "https://example.com/ai-breakthrough",
				category:    "tech",
			},
			{
				title:       "Global Markets Rally on Strong Economic Data",
				description: "Stock markets worldwide see significant gains following positive economic indicators.",
				url:         "https://example.com/markets-rally",
				category:    "business",
			},
			{
				title:       "New Study Reveals Benefits of Remote Work",
				description: "Comprehensive research shows improved productivity and employee satisfaction with remote work arrangements.",
				url:         "https://example.com/remote-work-study",
				category:    "business",
			},
			{
				title:       "Tech Giant Announces Revolutionary Product Launch",
				description: "Major technology company unveils innovative product expected to transform the industry.",
				url:         "https://example.com/product-launch",
				category:    "tech",
			},
			{
				title:       "Climate Initiative Shows Promising Results",
				description: "New environmental program demonstrates significant impact in reducing carbon emissions.",
				url:         "https://example.com/climate-initiative",
				category:    "environment",
			},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (c *MockClient) FetchTopHeadlines(_ context.Context, limit int, category string) ([]domain.RawArticle, error) {
	entries := c.catalog
	if category != "" {
		filtered := make([]mockEntry, 0, len(entries))
		for _, e := range entries {
			if e.category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limit < 0 {
		limit = 0
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}

	now := c.now()
	articles := make([]domain.RawArticle, 0, len(entries))
	for idx, e := range entries {
		articles = append(articles, domain.RawArticle{
			SourceName:  string(Mock),
			ExternalID:  externalID(string(Mock), e.url),
			Title:       e.title,
			Description: e.description,
			Content:     e.description,
			URL:         e.url,
			ImageURL:    fmt.Sprintf("https://via.placeholder.com/400x300?text=Article+%d", idx+1),
			// Rotate publish times an hour apart so ordering is stable.
			PublishedAt: now.Add(-time.Duration(idx) * time.Hour),
		})
	}

	return articles, nil
}
