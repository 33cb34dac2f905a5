package rank

import (
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/domain"
)

// buildPrompt renders the scoring instructions for one article. The model
// is told to answer with bare JSON, but responses are parsed defensively
// regardless.
func buildPrompt(article domain.Article) string {
	description := article.Description
	if description == "" {
		description = "N/A"
	}

	return fmt.Sprintf(`You are an expert content strategist evaluating news articles for viral potential on social media.

Analyze this article and provide a viral potential score from 0.0 to 1.0, where:
- 0.0-0.3 = Low potential (boring, unclear, or not timely)
- 0.4-0.6 = Medium potential (interesting but limited appeal)
- 0.7-0.8 = High potential (strong viral characteristics)
- 0.9-1.0 = Exceptional potential (extremely likely to go viral)

Article Details:
Title: %s
Description: %s
Published: %s
Source: %s

Evaluation Criteria:
1. Timeliness: Is this breaking or trending news?
2. Visual Potential: Can this be made into compelling short-form video?
3. Emotional Impact: Does it evoke strong emotions (surprise, joy, anger, curiosity)?
4. Clarity: Is the story clear and easy to understand quickly?
5. Shareability: Would people want to share this?

Respond ONLY with valid JSON in this format:
{
  "score": 0.X,
  "reasoning": "Brief explanation of the score",
  "category": "tech" or "business" or "politics" or "entertainment" or "sports" or "other"
}

JSON Response:`,
		article.Title,
		description,
		article.PublishedAt.Format(time.RFC3339),
		article.SourceName,
	)
}
