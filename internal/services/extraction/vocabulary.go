package extraction

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// MetricDef describes one canonical metric and the report labels that
// map to it.
type MetricDef struct {
	Key     string   `yaml:"key"`
	Unit    string   `yaml:"unit"` // currency, percent or ratio
	Aliases []string `yaml:"aliases"`
}

// Vocabulary resolves free-text labels to canonical metric keys.
type Vocabulary struct {
	Metrics []MetricDef `yaml:"metrics"`

	aliases []aliasEntry
	units   map[string]string
}

type aliasEntry struct {
	alias string
	key   string
}

// LoadVocabulary parses the embedded metric vocabulary.
func LoadVocabulary() (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(vocabularyYAML, &v); err != nil {
		return nil, fmt.Errorf("failed to parse metric vocabulary: %w", err)
	}
	if len(v.Metrics) == 0 {
		return nil, fmt.Errorf("metric vocabulary is empty")
	}

	v.units = make(map[string]string, len(v.Metrics))
	for _, m := range v.Metrics {
		v.units[m.Key] = m.Unit
		for _, a := range m.Aliases {
			v.aliases = append(v.aliases, aliasEntry{alias: strings.ToLower(a), key: m.Key})
		}
	}
	// Longest alias first so "revenue from operations" wins over "revenue"
	sort.SliceStable(v.aliases, func(i, j int) bool {
		return len(v.aliases[i].alias) > len(v.aliases[j].alias)
	})
	return &v, nil
}

// CanonicalKey maps a report label to its canonical metric key.
// Matching is case-insensitive substring, longest alias first. Short
// aliases like "pat" and "roe" match whole words only so label text
// such as "corporate" does not hit.
func (v *Vocabulary) CanonicalKey(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "", false
	}
	for _, e := range v.aliases {
		if len(e.alias) <= 4 {
			if containsWord(label, e.alias) {
				return e.key, true
			}
			continue
		}
		if strings.Contains(label, e.alias) {
			return e.key, true
		}
	}
	return "", false
}

// UnitFor returns the wire unit for a canonical key.
func (v *Vocabulary) UnitFor(key string) string {
	switch v.units[key] {
	case "percent":
		return UnitPercent
	case "ratio":
		return UnitRatio
	default:
		return UnitCrore
	}
}

// Keys lists the canonical metric keys in vocabulary order.
func (v *Vocabulary) Keys() []string {
	keys := make([]string, 0, len(v.Metrics))
	for _, m := range v.Metrics {
		keys = append(keys, m.Key)
	}
	return keys
}

// IsMetricLabel reports whether text contains any known alias, used
// by the table strategy to decide if a cell is a label cell.
func (v *Vocabulary) IsMetricLabel(text string) bool {
	_, ok := v.CanonicalKey(text)
	return ok
}

// containsWord reports whether s contains w bounded by non-letters.
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isLetter(s[start-1])
		afterOK := end == len(s) || !isLetter(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
