package domain

import (
	"time"
)

// ArticleStatus tracks an article through the content pipeline.
// Transitions past "ranked" belong to downstream collaborators.
type ArticleStatus string

const (
	StatusPending   ArticleStatus = "pending"
	StatusRanked    ArticleStatus = "ranked"
	StatusScripted  ArticleStatus = "scripted"
	StatusPublished ArticleStatus = "published"
	StatusRejected  ArticleStatus = "rejected"
)

// Article is a normalized news item persisted after ingestion.
// (SourceName, ExternalID) is unique; a re-fetch of the same story
// resolves to the existing row instead of creating a new one.
type Article struct {
	ID          int64         `json:"id"`
	SourceName  string        `json:"sourceName"`
	ExternalID  string        `json:"externalId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Content     string        `json:"content,omitempty"`
	URL         string        `json:"url"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	PublishedAt time.Time     `json:"publishedAt"`
	FetchedAt   time.Time     `json:"fetchedAt"`
	Status      ArticleStatus `json:"status"`
}

// RawArticle is the provider-agnostic shape returned by source clients
// before persistence.
type RawArticle struct {
	SourceName  string
	ExternalID  string
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt time.Time
}
