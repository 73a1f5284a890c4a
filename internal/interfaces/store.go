package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
)

// ErrNotFound is returned by store lookups for unknown run IDs.
var ErrNotFound = errors.New("not found")

// ForecastStore persists run requests, finished results and the full
// conversation trace for audit. The pipeline treats it as opaque and
// idempotent on retry.
type ForecastStore interface {
	// Save or replace a request record
	SaveRequest(ctx context.Context, rec *models.RequestRecord) error

	// Update status fields on every pipeline transition
	UpdateRequestStatus(ctx context.Context, runID, status string, state models.RunState, mode string, runErr error) error

	// Get one request record
	GetRequest(ctx context.Context, runID string) (*models.RequestRecord, error)

	// List recent requests, newest first, optionally filtered by ticker
	ListRequests(ctx context.Context, ticker string, limit int) ([]*models.RequestRecord, error)

	// Persist a finalized, schema-valid result
	SaveResult(ctx context.Context, runID string, result *schemas.ForecastResult) error

	// Get a stored result
	GetResult(ctx context.Context, runID string) (*schemas.ForecastResult, error)

	// Persist the conversation trace of a finished run
	SaveTrace(ctx context.Context, runID string, events []models.TraceEvent) error

	// Get the persisted trace in sequence order
	GetTrace(ctx context.Context, runID string) ([]*models.TraceRecord, error)

	// Close the underlying store
	Close() error
}
