package rank

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
)

// scoreData is the decoded shape of a model ranking response after all
// fallbacks have been applied. Score is always clamped to [0, 1] and
// Category always comes from the closed set.
type scoreData struct {
	Score     float64
	Reasoning string
	Category  domain.Category
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*\}`)
	scoreRe      = regexp.MustCompile(`"score":\s*([0-9.]+)`)
	reasoningRe  = regexp.MustCompile(`"reasoning":\s*"([^"]+)"`)
	categoryRe   = regexp.MustCompile(`"category":\s*"([^"]+)"`)
)

// parseResponse extracts score, reasoning and category from raw model
// output. It tries a fenced JSON block first, then any bare JSON object,
// then per-field regex extraction. The returned data is always usable:
// a response with nothing extractable yields the neutral score 0.5
// alongside a ParseError so the caller can log what the model sent.
func parseResponse(text string) (scoreData, error) {
	if jsonStr, ok := extractJSON(text); ok {
		var payload struct {
			Score     *float64 `json:"score"`
			Reasoning string   `json:"reasoning"`
			Category  string   `json:"category"`
		}
		if err := json.Unmarshal([]byte(jsonStr), &payload); err == nil {
			score := 0.5
			if payload.Score != nil {
				score = domain.ClampScore(*payload.Score)
			}
			reasoning := payload.Reasoning
			if reasoning == "" {
				reasoning = "No reasoning provided"
			}
			return scoreData{
				Score:     score,
				Reasoning: reasoning,
				Category:  domain.NormalizeCategory(payload.Category),
			}, nil
		}
	}

	return parseFallback(text)
}

func extractJSON(text string) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := bareJSONRe.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

func parseFallback(text string) (scoreData, error) {
	data := scoreData{
		Score:     0.5,
		Reasoning: "Unable to parse reasoning",
		Category:  domain.CategoryOther,
	}

	matched := false
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			data.Score = domain.ClampScore(v)
			matched = true
		}
	}
	if m := reasoningRe.FindStringSubmatch(text); m != nil {
		data.Reasoning = m[1]
		matched = true
	}
	if m := categoryRe.FindStringSubmatch(text); m != nil {
		data.Category = domain.NormalizeCategory(m[1])
		matched = true
	}
	if !matched {
		return data, apperr.NewParse("no score payload in model response", nil)
	}
	return data, nil
}
