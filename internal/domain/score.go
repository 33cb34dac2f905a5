package domain

import "time"

// Category is the closed set of article categories a ranking may assign.
type Category string

const (
	CategoryTech          Category = "tech"
	CategoryBusiness      Category = "business"
	CategoryPolitics      Category = "politics"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryOther         Category = "other"
)

// NormalizeCategory maps arbitrary model output onto the closed set,
// falling back to "other".
func NormalizeCategory(s string) Category {
	switch Category(s) {
	case CategoryTech, CategoryBusiness, CategoryPolitics, CategoryEntertainment, CategorySports, CategoryOther:
		return Category(s)
	default:
		return CategoryOther
	}
}

// RankingScore is one scoring event for one article. Rows are append-only;
// the latest score is determined by RankedAt descending.
type RankingScore struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Score     float64   `json:"score"`
	Reasoning string    `json:"reasoning,omitempty"`
	Category  Category  `json:"category,omitempty"`
	ModelUsed string    `json:"modelUsed"`
	RankedAt  time.Time `json:"rankedAt"`
}

// ClampScore forces a score into [0, 1] regardless of what the model returned.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RankedArticle pairs an article with one of its scores, the hand-off
// shape consumed by downstream script generation.
type RankedArticle struct {
	Article Article      `json:"article"`
	Score   RankingScore `json:"score"`
}
