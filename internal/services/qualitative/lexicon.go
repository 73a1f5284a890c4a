package qualitative

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// ThemeProbe is a named query whose embedding anchors a theme.
type ThemeProbe struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// SentimentWords are the positive and negative management-language
// markers counted by the lexical scorer.
type SentimentWords struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Lexicon holds the theme probes and sentiment vocabulary.
type Lexicon struct {
	Themes     []ThemeProbe   `yaml:"themes"`
	Sentiment  SentimentWords `yaml:"sentiment"`
	RiskThemes []string       `yaml:"risk_themes"`
}

// LoadLexicon parses the embedded lexicon.
func LoadLexicon() (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(lexiconYAML, &l); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(l.Themes) == 0 {
		return nil, fmt.Errorf("lexicon has no themes")
	}
	return &l, nil
}

// IsRiskTheme reports whether a theme name belongs to the risk set.
func (l *Lexicon) IsRiskTheme(name string) bool {
	for _, t := range l.RiskThemes {
		if t == name {
			return true
		}
	}
	return false
}
