package sentiment

import (
	"strings"

	"github.com/hrygo/feedlens/store"
)

var negativeKeywords = []string{
	"bad", "terrible", "awful", "hate", "disappointed", "frustrated",
	"broken", "bug", "error", "crash", "slow", "worst",
}

var positiveKeywords = []string{
	"love", "great", "excellent", "amazing", "perfect", "wonderful",
	"fantastic", "best", "happy", "satisfied", "good",
}

// Fallback classifies text by keyword votes. Each keyword counts once when it
// appears anywhere in the lower-cased text, including inside longer words.
func Fallback(text string) store.Sentiment {
	lower := strings.ToLower(text)
	negative := countPresent(lower, negativeKeywords)
	positive := countPresent(lower, positiveKeywords)

	switch {
	case negative > positive:
		return store.SentimentNegative
	case positive > negative:
		return store.SentimentPositive
	default:
		return store.SentimentNeutral
	}
}

func countPresent(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}
