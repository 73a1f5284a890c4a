// -----------------------------------------------------------------------
// Lexical sentiment - positive/negative marker counting, bounded to
// ±0.8 so word counts alone never read as certainty
// -----------------------------------------------------------------------

package qualitative

import (
	"strings"
)

// sentimentBound caps the magnitude a lexical score may reach.
const sentimentBound = 0.8

// ScoreSentiment counts positive and negative markers in text and
// returns (pos-neg)/(pos+neg) bounded to ±0.8. Text with no markers
// scores 0.
func ScoreSentiment(text string, words SentimentWords) float64 {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' || r == '-')
	})

	counts := make(map[string]int, len(fields))
	for _, f := range fields {
		counts[f]++
	}

	var pos, neg int
	for _, w := range words.Positive {
		pos += counts[strings.ToLower(w)]
	}
	for _, w := range words.Negative {
		neg += counts[strings.ToLower(w)]
	}

	total := pos + neg
	if total == 0 {
		return 0
	}

	score := float64(pos-neg) / float64(total)
	if score > sentimentBound {
		return sentimentBound
	}
	if score < -sentimentBound {
		return -sentimentBound
	}
	return score
}

// SentimentLabel names a score range in management-commentary terms.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.6:
		return "positive"
	case score > 0.1:
		return "cautiously optimistic"
	case score < -0.6:
		return "negative"
	case score < -0.1:
		return "cautious"
	default:
		return "neutral"
	}
}
