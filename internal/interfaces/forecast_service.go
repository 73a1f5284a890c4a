package interfaces

import (
	"context"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
)

// Capability reports one operational capability for the health surface.
type Capability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// ForecastService is the surface the API, MCP and scheduler layers use
// to drive the pipeline. Submit validates and accepts a request then
// runs the pipeline in the background; Status and Result read the
// persisted records.
type ForecastService interface {
	// Submit accepts a validated request and starts its run. Returns
	// models.InputInvalidError before any state transition when the
	// request is malformed.
	Submit(ctx context.Context, req models.RunRequest) (string, error)

	// Status returns the persisted request record for a run
	Status(ctx context.Context, runID string) (*models.RequestRecord, error)

	// Result returns the stored forecast for a completed run
	Result(ctx context.Context, runID string) (*schemas.ForecastResult, error)

	// Capabilities reports backend and tooling availability
	Capabilities(ctx context.Context) []Capability
}
