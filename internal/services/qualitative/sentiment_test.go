package qualitative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSentimentWords(t *testing.T) SentimentWords {
	t.Helper()
	lex, err := LoadLexicon()
	require.NoError(t, err)
	return lex.Sentiment
}

func TestScoreSentiment_BoundedPositive(t *testing.T) {
	words := testSentimentWords(t)
	score := ScoreSentiment("Strong growth and record momentum across segments.", words)
	assert.InDelta(t, 0.8, score, 0.0001, "all-positive text is capped at the bound")
}

func TestScoreSentiment_BoundedNegative(t *testing.T) {
	words := testSentimentWords(t)
	score := ScoreSentiment("Headwinds and pressure drove a decline.", words)
	assert.InDelta(t, -0.8, score, 0.0001)
}

func TestScoreSentiment_MixedText(t *testing.T) {
	words := testSentimentWords(t)
	// Two positive markers against one negative.
	score := ScoreSentiment("Strong growth but headwinds persist.", words)
	assert.InDelta(t, 1.0/3.0, score, 0.0001)
}

func TestScoreSentiment_NoMarkers(t *testing.T) {
	words := testSentimentWords(t)
	assert.Zero(t, ScoreSentiment("The quarter ended in September.", words))
	assert.Zero(t, ScoreSentiment("", words))
}

func TestScoreSentiment_CaseInsensitive(t *testing.T) {
	words := testSentimentWords(t)
	score := ScoreSentiment("STRONG Growth.", words)
	assert.InDelta(t, 0.8, score, 0.0001)
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, "positive", SentimentLabel(0.7))
	assert.Equal(t, "cautiously optimistic", SentimentLabel(0.3))
	assert.Equal(t, "neutral", SentimentLabel(0))
	assert.Equal(t, "cautious", SentimentLabel(-0.3))
	assert.Equal(t, "negative", SentimentLabel(-0.7))
}
