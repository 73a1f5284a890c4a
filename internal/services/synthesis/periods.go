package synthesis

import (
	"regexp"
	"strconv"
)

var (
	fyPattern      = regexp.MustCompile(`(?i)fy\s*'?(\d{2,4})`)
	yearPattern    = regexp.MustCompile(`(20\d{2})(?:[-_](\d{2}))?`)
	quarterPattern = regexp.MustCompile(`(?i)q\s*([1-4])`)
)

// PeriodRank orders reporting periods for reconciliation. Higher rank
// is more recent. Unparseable periods rank 0 and lose to any parsed
// period. The rank is year*4+quarter so "Q3 FY25" beats "Q2 FY25"
// and any FY26 quarter beats every FY25 quarter.
func PeriodRank(period string) int {
	if period == "" {
		return 0
	}

	year := 0
	if m := fyPattern.FindStringSubmatch(period); m != nil {
		year, _ = strconv.Atoi(m[1])
		if year < 100 {
			year += 2000
		}
	} else if m := yearPattern.FindStringSubmatch(period); m != nil {
		year, _ = strconv.Atoi(m[1])
		// Fiscal spans like 2025-26 rank by the closing year
		if m[2] != "" {
			if closing, err := strconv.Atoi(m[2]); err == nil {
				year = (year/100)*100 + closing
			}
		}
	}

	quarter := 0
	if m := quarterPattern.FindStringSubmatch(period); m != nil {
		quarter, _ = strconv.Atoi(m[1])
	}

	if year == 0 && quarter == 0 {
		return 0
	}
	return year*4 + quarter
}
