package interfaces

import (
	"context"

	"github.com/ternarybob/augur/internal/models"
)

// MarketDataProvider supplies recent trading context for a ticker.
// Optional: runs that request market context degrade with a recorded gap
// when no provider is configured or the snapshot cannot be built.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, ticker string, quarters int) (*models.MarketSnapshot, error)
}
