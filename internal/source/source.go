package source

import (
	"context"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
)

// Name enumerates the supported providers. Unknown names are rejected
// by the factory, not at first fetch.
type Name string

const (
	NewsAPI Name = "newsapi"
	Mock    Name = "mock"
)

// Client pulls top headlines from one external news provider and
// normalizes them into RawArticles. Items without a title or URL are
// dropped before returning.
type Client interface {
	FetchTopHeadlines(ctx context.Context, limit int, category string) ([]domain.RawArticle, error)
}

// Known reports whether name maps to a supported provider.
func Known(name string) bool {
	switch Name(name) {
	case NewsAPI, Mock:
		return true
	default:
		return false
	}
}

// KnownNames lists the supported provider names for validation messages.
func KnownNames() []string {
	return []string{string(NewsAPI), string(Mock)}
}

// Factory resolves source names to concrete clients.
type Factory struct {
	newsAPIKey string
	timeout    time.Duration
	httpClient *http.Client
	baseURL    string
}

type FactoryOption func(*Factory)

// WithHTTPClient overrides the transport, used by tests to point clients
// at an httptest server.
func WithHTTPClient(hc *http.Client) FactoryOption {
	return func(f *Factory) {
		f.httpClient = hc
	}
}

func WithTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.timeout = d
	}
}

// WithBaseURL redirects provider requests, used by tests.
func WithBaseURL(u string) FactoryOption {
	return func(f *Factory) {
		f.baseURL = u
	}
}

func NewFactory(newsAPIKey string, opts ...FactoryOption) *Factory {
	f := &Factory{
		newsAPIKey: newsAPIKey,
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolve returns a client for the given source name. A missing
// credential is a ConfigurationError for that source; an unknown name is
// an UnsupportedSourceError.
func (f *Factory) Resolve(name string) (Client, error) {
	switch Name(name) {
	case NewsAPI:
		if f.newsAPIKey == "" {
			return nil, apperr.NewConfiguration(name, "NEWS_API_KEY is not set")
		}
		client := NewNewsAPIClient(f.newsAPIKey, f.timeout, f.httpClient)
		if f.baseURL != "" {
			client.baseURL = f.baseURL
		}
		return client, nil
	case Mock:
		return NewMockClient(), nil
	default:
		return nil, apperr.NewUnsupportedSource(name)
	}
}
