package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	vocab, err := LoadVocabulary()
	require.NoError(t, err)
	return vocab
}

func TestLoadVocabulary(t *testing.T) {
	vocab := loadTestVocabulary(t)
	assert.NotEmpty(t, vocab.Keys())
	assert.Contains(t, vocab.Keys(), "total_revenue")
	assert.Contains(t, vocab.Keys(), "net_profit")
}

func TestCanonicalKey_AliasMatching(t *testing.T) {
	vocab := loadTestVocabulary(t)

	tests := []struct {
		label string
		want  string
	}{
		{"Revenue from Operations", "total_revenue"},
		{"Total Income", "total_revenue"},
		{"Profit After Tax", "net_profit"},
		{"PAT", "net_profit"},
		{"EBITDA", "ebitda"},
		{"Return on Equity (%)", "roe"},
		{"Debt-to-Equity", "debt_to_equity"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := vocab.CanonicalKey(tt.label)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalKey_LongestAliasWins(t *testing.T) {
	vocab := loadTestVocabulary(t)

	// "net profit margin" must not collapse to net_profit.
	got, ok := vocab.CanonicalKey("Net Profit Margin (%)")
	assert.True(t, ok)
	assert.Equal(t, "net_profit_margin", got)
}

func TestCanonicalKey_ShortAliasesNeedWordBoundaries(t *testing.T) {
	vocab := loadTestVocabulary(t)

	// "dispatch" contains "pat", "steps" contains "eps". Neither is a
	// metric label.
	for _, label := range []string{"dispatch summary", "next steps"} {
		_, ok := vocab.CanonicalKey(label)
		assert.False(t, ok, "label %q should not resolve", label)
	}
}

func TestCanonicalKey_EmptyLabel(t *testing.T) {
	vocab := loadTestVocabulary(t)

	_, ok := vocab.CanonicalKey("")
	assert.False(t, ok)
	_, ok = vocab.CanonicalKey("   ")
	assert.False(t, ok)
}

func TestUnitFor(t *testing.T) {
	vocab := loadTestVocabulary(t)

	assert.Equal(t, UnitCrore, vocab.UnitFor("total_revenue"))
	assert.Equal(t, UnitPercent, vocab.UnitFor("roe"))
	assert.Equal(t, UnitRatio, vocab.UnitFor("debt_to_equity"))
}

func TestIsMetricLabel(t *testing.T) {
	vocab := loadTestVocabulary(t)

	assert.True(t, vocab.IsMetricLabel("Revenue"))
	assert.False(t, vocab.IsMetricLabel("Particulars"))
}
