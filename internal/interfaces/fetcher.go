package interfaces

import (
	"context"

	"github.com/ternarybob/augur/internal/models"
)

// FetchRequest identifies one source/kind pull for a run.
type FetchRequest struct {
	Source   string // source identifier from the RunRequest, e.g. "screener"
	Kind     string // models.DocumentKindReport or models.DocumentKindTranscript
	Ticker   string
	Quarters int
}

// DocumentFetcher gathers source documents. Implementations retry
// internally (max 3 attempts) and fall back to the on-disk cache; the
// pipeline only ever sees the final documents or a typed unavailable
// error. Fetched documents arrive normalized: text layer populated for
// anything that has one.
type DocumentFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]*models.SourceDocument, error)
}
