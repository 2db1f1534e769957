package newsapi

import (
	"strings"

	"github.com/ternarybob/thesis/internal/models"
)

var positiveWords = []string{
	"surge", "soar", "jump", "gain", "rise", "rally", "boost", "growth",
	"profit", "beat", "exceed", "strong", "bullish", "upgrade", "buy",
	"outperform", "record", "high", "success", "positive", "optimistic",
}

var negativeWords = []string{
	"drop", "fall", "plunge", "decline", "loss", "miss", "weak", "bearish",
	"downgrade", "sell", "underperform", "low", "fail", "negative", "concern",
	"risk", "warning", "cut", "slash", "layoff", "recession", "crash",
}

// AnalyzeSentiment scores text by counting which keywords appear as
// substrings (case-insensitive). Each word counts at most once. The score is
// (positive-negative)/matched in [-1, 1]; above 0.2 is positive, below -0.2
// negative.
func AnalyzeSentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)

	positive := countMatches(lower, positiveWords)
	negative := countMatches(lower, negativeWords)

	total := positive + negative
	if total == 0 {
		return models.Sentiment{Score: 0, Label: models.SentimentNeutral}
	}

	score := float64(positive-negative) / float64(total)
	label := models.SentimentNeutral
	switch {
	case score > 0.2:
		label = models.SentimentPositive
	case score < -0.2:
		label = models.SentimentNegative
	}

	return models.Sentiment{Score: score, Label: label}
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
