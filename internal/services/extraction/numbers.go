// -----------------------------------------------------------------------
// Financial number parsing - Indian-format amounts with scale words
// Values normalize to INR crore so metrics compare across documents
// -----------------------------------------------------------------------

package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit labels attached to parsed values.
const (
	UnitCrore   = "INR_Cr"
	UnitPercent = "%"
	UnitRatio   = "ratio"
)

var (
	// ₹ 12,345.67 Cr style, currency symbol first
	rupeePattern = regexp.MustCompile(`(?:₹|Rs\.?|INR)\s*\(?([0-9,]+(?:\.[0-9]+)?)\)?\s*(?i:(crores?|cr\.?|lakhs?|millions?|mn|billions?|bn))?`)

	// Comma-grouped number, Indian (1,23,456) or western (1,234,567)
	// grouping. Commas are stripped before parsing so one pattern
	// covers both conventions.
	groupedPattern = regexp.MustCompile(`\(?\b([0-9]{1,3}(?:,[0-9]{2,3})+(?:\.[0-9]+)?)\b\)?`)

	// Plain number, optional decimals
	plainPattern = regexp.MustCompile(`\(?([0-9]+(?:\.[0-9]+)?)\)?`)

	// Scale word following a bare number
	scalePattern = regexp.MustCompile(`(?i)^\s*(crores?|cr\.?|lakhs?|millions?|mn|billions?|bn|%|percent)`)
)

// ParsedValue is a number pulled from text with its resolved unit.
type ParsedValue struct {
	Value float64
	Unit  string
}

// ParseFinancialNumber finds the first monetary or numeric value in
// text. Amounts carrying a scale word convert to crore: 100 lakh to
// the crore, 10 million to the crore, 100 crore to the billion.
// Parenthesized amounts read as negative. Returns false when text
// holds no usable number.
func ParseFinancialNumber(text string) (ParsedValue, bool) {
	if text == "" {
		return ParsedValue{}, false
	}

	if m := rupeePattern.FindStringSubmatch(text); m != nil {
		if v, ok := parseFloat(m[1]); ok {
			v = applyNegativeParens(text, m[0], v)
			return ParsedValue{Value: applyScale(v, m[2]), Unit: UnitCrore}, true
		}
	}

	// Earliest match wins so the first number in the window is taken.
	// On a tie the grouped pattern wins, it matched more of the text.
	loc := groupedPattern.FindStringSubmatchIndex(text)
	if plain := plainPattern.FindStringSubmatchIndex(text); plain != nil {
		if loc == nil || plain[0] < loc[0] {
			loc = plain
		}
	}
	if loc == nil {
		return ParsedValue{}, false
	}

	raw := text[loc[2]:loc[3]]
	v, ok := parseFloat(raw)
	if !ok {
		return ParsedValue{}, false
	}
	v = applyNegativeParens(text, text[loc[0]:loc[1]], v)

	unit := UnitCrore
	rest := text[loc[1]:]
	if sm := scalePattern.FindStringSubmatch(rest); sm != nil {
		word := strings.ToLower(strings.TrimRight(sm[1], "."))
		if word == "%" || word == "percent" {
			unit = UnitPercent
		} else {
			v = applyScale(v, word)
		}
	}
	return ParsedValue{Value: v, Unit: unit}, true
}

// applyScale converts a scaled amount to crore. Unrecognized or empty
// scale words leave the amount untouched.
func applyScale(v float64, scaleWord string) float64 {
	word := strings.TrimRight(strings.ToLower(scaleWord), ".")
	switch word {
	case "lakh", "lakhs":
		return v / 100
	case "million", "millions", "mn":
		return v / 10
	case "billion", "billions", "bn":
		return v * 100
	}
	return v
}

// applyNegativeParens flips sign when the matched span is wrapped in
// parentheses, the accounting convention for losses.
func applyNegativeParens(text, match string, v float64) float64 {
	if strings.Contains(match, "(") && strings.Contains(match, ")") {
		return -v
	}
	idx := strings.Index(text, match)
	if idx > 0 && text[idx-1] == '(' && strings.HasPrefix(text[idx+len(match):], ")") {
		return -v
	}
	return v
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
