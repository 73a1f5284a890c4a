// -----------------------------------------------------------------------
// Extraction strategy chain - table, then text, then OCR
// First strategy producing any metrics wins, an exhausted chain is a
// gap for the coordinator to record, never a failure
// -----------------------------------------------------------------------

package extraction

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// extractionStrategy is one rung of the chain.
type extractionStrategy interface {
	Name() string
	Ceiling() float64
	Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error)
}

// Chain runs extraction strategies in confidence order and returns
// the first non-empty result set.
type Chain struct {
	strategies []extractionStrategy
	logger     arbor.ILogger
	trace      interfaces.TraceSink
}

// NewChain builds the standard chain: table, structured text, OCR.
func NewChain(vocab *Vocabulary, logger arbor.ILogger) *Chain {
	return &Chain{
		strategies: []extractionStrategy{
			NewTableStrategy(vocab, logger),
			NewTextStrategy(vocab, logger),
			NewOCRStrategy(vocab, logger),
		},
		logger: logger,
	}
}

// NewChainWithStrategies builds a chain over explicit strategies.
func NewChainWithStrategies(logger arbor.ILogger, strategies ...extractionStrategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// WithTrace returns a chain whose strategy attempts record to sink.
// The clone shares strategies with the receiver.
func (c *Chain) WithTrace(sink interfaces.TraceSink) *Chain {
	clone := *c
	clone.trace = sink
	return &clone
}

// Extract runs the chain over one document. A strategy error moves to
// the next rung, it does not abort the chain. An empty result from
// every rung returns an empty slice and a nil error.
func (c *Chain) Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error) {
	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metrics, err := strategy.Extract(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.record(fmt.Sprintf("strategy %s on %s failed: %v", strategy.Name(), doc.ID, err))
			c.logger.Warn().Err(err).
				Str("strategy", strategy.Name()).
				Str("document_id", doc.ID).
				Msg("Extraction strategy failed, trying next")
			continue
		}
		if len(metrics) == 0 {
			c.record(fmt.Sprintf("strategy %s on %s found nothing", strategy.Name(), doc.ID))
			continue
		}

		ceiling := strategy.Ceiling()
		for i := range metrics {
			if metrics[i].Confidence > ceiling {
				metrics[i].Confidence = ceiling
			}
			metrics[i].Confidence = models.ClampConfidence(metrics[i].Confidence)
			if metrics[i].SourceDocumentID == "" {
				metrics[i].SourceDocumentID = doc.ID
			}
		}

		c.record(fmt.Sprintf("strategy %s on %s found %d metrics", strategy.Name(), doc.ID, len(metrics)))
		c.logger.Debug().
			Str("strategy", strategy.Name()).
			Str("document_id", doc.ID).
			Int("metrics", len(metrics)).
			Msg("Extraction strategy succeeded")
		return metrics, nil
	}

	return nil, nil
}

func (c *Chain) record(detail string) {
	if c.trace != nil {
		c.trace.AppendTrace(models.TraceTool, detail)
	}
}

var _ interfaces.MetricExtractor = (*Chain)(nil)
