package source

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
)

const (
	newsAPIBaseURL   = "https://newsapi.org/v2"
	newsAPIPageMax   = 100
	newsAPIUserAgent = "NewsScout/1.0"
)

// NewsAPIClient fetches top headlines from newsapi.org.
type NewsAPIClient struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

var _ Client = (*NewsAPIClient)(nil)

func NewNewsAPIClient(apiKey string, timeout time.Duration, hc *http.Client) *NewsAPIClient {
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &NewsAPIClient{
		apiKey:  apiKey,
		baseURL: newsAPIBaseURL,
		hc:      hc,
	}
}

type newsAPIEnvelope struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Articles []newsAPIEntry `json:"articles"`
}

type newsAPIEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func (c *NewsAPIClient) FetchTopHeadlines(ctx context.Context, limit int, category string) ([]domain.RawArticle, error) {
	pageSize := limit
	if pageSize > newsAPIPageMax {
		pageSize = newsAPIPageMax
	}

	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("language", "en")
	q.Set("country", "us")
	if category != "" {
		q.Set("category", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", newsAPIUserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperr.NewTransient(fmt.Errorf("request top headlines: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperr.NewTransient(fmt.Errorf("newsapi returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var envelope newsAPIEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if envelope.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s", envelope.Message)
	}

	articles := make([]domain.RawArticle, 0, len(envelope.Articles))
	for _, item := range envelope.Articles {
		if len(articles) == limit {
			break
		}
		if item.Title == "" || item.URL == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
		if err != nil {
			publishedAt = time.Now().UTC()
		}

		articles = append(articles, domain.RawArticle{
			SourceName:  string(NewsAPI),
			ExternalID:  externalID(string(NewsAPI), item.URL),
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			URL:         item.URL,
			ImageURL:    item.URLToImage,
			PublishedAt: publishedAt,
		})
	}

	return articles, nil
}

// externalID derives a stable dedup key from the canonical article URL,
// so a re-fetch of the same story always yields the same id.
func externalID(sourceName, articleURL string) string {
	sum := sha256.Sum256([]byte(articleURL))
	return fmt.Sprintf("%s_%x", sourceName, sum[:8])
}
