package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// RunRequest is the immutable input that starts one forecast run.
// Once accepted by the coordinator it is never modified.
type RunRequest struct {
	Ticker        string   `json:"ticker" validate:"required,uppercase,min=1,max=12"`
	QuarterCount  int      `json:"quarters" validate:"required,gte=1,lte=12"`
	Sources       []string `json:"sources" validate:"required,min=1,dive,required"`
	IncludeMarket bool     `json:"include_market"`
}

// Normalize uppercases the ticker and deduplicates sources while
// preserving their order. Called before Validate.
func (r *RunRequest) Normalize() {
	r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))

	seen := make(map[string]bool, len(r.Sources))
	deduped := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		deduped = append(deduped, s)
	}
	r.Sources = deduped
}

// Validate checks the request against its schema. A failure here is an
// InputInvalid condition and must be rejected before any state transition.
func (r *RunRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return &InputInvalidError{Reason: err.Error()}
	}
	return nil
}
