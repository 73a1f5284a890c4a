package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
	"github.com/ternarybob/augur/internal/services/synthesis"
)

// execute drives one run through the pipeline under its wall-clock
// budget. It runs on a background goroutine; all outcomes, success or
// failure, end in the store.
func (c *Coordinator) execute(rc *models.RunContext) {
	ctx, cancel := context.WithTimeout(context.Background(), rc.Budget)
	defer cancel()
	defer c.forget(rc.RunID)

	result, err := c.run(ctx, rc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &models.TimeoutExceededError{State: rc.State(), Elapsed: rc.Elapsed()}
		}
		c.fail(rc, err)
		return
	}
	c.finish(rc, result)
}

// run walks the state machine: Gathering, Extracting, Analyzing,
// Synthesizing, Validating. A missing document kind and empty tool
// results degrade the run; an entirely empty gather, model-transport
// exhaustion, unrecoverable synthesis, repeated validation failure and
// the time budget fail it.
func (c *Coordinator) run(ctx context.Context, rc *models.RunContext) (*schemas.ForecastResult, error) {
	c.transition(rc, models.StateGathering, "run accepted")
	if err := c.gather(ctx, rc); err != nil {
		return nil, err
	}

	reports := rc.Documents(models.DocumentKindReport)
	transcripts := rc.Documents(models.DocumentKindTranscript)
	if len(reports) == 0 && len(transcripts) == 0 {
		// Nothing to extract, analyze or synthesize from. Missing one
		// document kind degrades the run; missing both ends it.
		return nil, &models.GatheringFailedError{Sources: rc.Request.Sources, Gaps: len(rc.Gaps())}
	}
	if len(reports) == 0 {
		rc.RecordGap(models.ExtractionGapError{Reason: "no report documents gathered"})
		c.degrade(rc, "no report documents gathered")
	}
	if len(transcripts) == 0 {
		rc.RecordGap(models.ExtractionGapError{Reason: "no transcript documents gathered"})
		c.degrade(rc, "no transcript documents gathered")
	}

	if rc.Request.IncludeMarket {
		c.gatherMarket(ctx, rc)
	}

	c.transition(rc, models.StateExtracting, fmt.Sprintf("%d reports, %d transcripts gathered", len(reports), len(transcripts)))
	if err := c.extract(ctx, rc, reports); err != nil {
		return nil, err
	}

	c.transition(rc, models.StateAnalyzing, fmt.Sprintf("%d metrics extracted", len(rc.Metrics())))
	if err := c.analyze(ctx, rc, transcripts); err != nil {
		return nil, err
	}

	winners := c.synth.Reconcile(rc.Metrics())
	c.transition(rc, models.StateSynthesizing, fmt.Sprintf("%d reconciled metrics, %d insights", len(winners), len(rc.Insights())))

	client := c.client.WithTrace(rc)
	basePrompt := synthesis.BuildPrompt(rc.Request.Ticker, rc.Request.QuarterCount, c.synth.Entries(winners), rc.Insights(), rc.Market(), gapSummaries(rc.Gaps()))

	forecast, err := c.generateForecast(ctx, rc, client, basePrompt, basePrompt)
	if err != nil {
		return nil, err
	}

	c.transition(rc, models.StateValidating, "syntactically valid forecast obtained")
	result := c.synth.Assemble(rc, forecast, winners)
	violations := result.Violations()
	if len(violations) == 0 {
		rc.AppendTrace(models.TraceValidation, "passed")
		c.transition(rc, models.StateDone, "forecast validated")
		return result, nil
	}

	// One corrective pass: feed the violations back to the model, then
	// validate the rebuilt forecast. A second failure ends the run.
	rc.AppendTrace(models.TraceValidation, "failed: "+strings.Join(violations, "; "))
	rc.BumpRetry(models.StepValidation)
	c.transition(rc, models.StateSynthesizing, "validation failed, corrective retry")

	retryPrompt := synthesis.BuildValidationRetryPrompt(basePrompt, violations)
	forecast, err = c.generateForecast(ctx, rc, client, retryPrompt, basePrompt)
	if err != nil {
		return nil, err
	}

	c.transition(rc, models.StateValidating, "corrected forecast obtained")
	result = c.synth.Assemble(rc, forecast, winners)
	if violations = result.Violations(); len(violations) > 0 {
		rc.AppendTrace(models.TraceValidation, "failed after corrective retry: "+strings.Join(violations, "; "))
		return nil, &models.ValidationFailedError{Failures: violations}
	}

	rc.AppendTrace(models.TraceValidation, "passed after corrective retry")
	c.transition(rc, models.StateDone, "forecast validated")
	return result, nil
}

// gather pulls documents from every requested source, both kinds in
// parallel. A source that errors becomes a recorded gap, never a run
// failure; only context expiry aborts.
func (c *Coordinator) gather(ctx context.Context, rc *models.RunContext) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, source := range rc.Request.Sources {
		fetcher, ok := c.fetchers[source]
		if !ok {
			ev := rc.RecordGap(models.ExtractionGapError{Reason: fmt.Sprintf("no fetcher registered for source %q", source)})
			c.publish(rc, ev)
			c.degrade(rc, fmt.Sprintf("unknown source %q", source))
			continue
		}

		for _, kind := range []string{models.DocumentKindReport, models.DocumentKindTranscript} {
			source, kind := source, kind
			g.Go(func() error {
				docs, err := fetcher.Fetch(gctx, interfaces.FetchRequest{
					Source:   source,
					Kind:     kind,
					Ticker:   rc.Request.Ticker,
					Quarters: rc.Request.QuarterCount,
				})
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					ev := rc.RecordGap(models.ExtractionGapError{Reason: fmt.Sprintf("source %s unavailable for %s documents: %v", source, kind, err)})
					c.publish(rc, ev)
					c.degrade(rc, fmt.Sprintf("source %s unavailable for %s documents", source, kind))
					c.logger.Warn().
						Err(err).
						Str("run_id", rc.RunID).
						Str("source", source).
						Str("kind", kind).
						Msg("Source fetch failed")
					return nil
				}
				for _, doc := range docs {
					rc.AddDocument(doc)
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// gatherMarket pulls the trading-context snapshot for runs that asked
// for it. Like any other source, an unavailable provider is a recorded
// gap and a degraded run, never a failure.
func (c *Coordinator) gatherMarket(ctx context.Context, rc *models.RunContext) {
	if c.market == nil {
		ev := rc.RecordGap(models.ExtractionGapError{Reason: "market context requested but no market data provider is configured"})
		c.publish(rc, ev)
		c.degrade(rc, "market data provider not configured")
		return
	}

	snap, err := c.market.Snapshot(ctx, rc.Request.Ticker, rc.Request.QuarterCount)
	if err != nil {
		ev := rc.RecordGap(models.ExtractionGapError{Reason: fmt.Sprintf("market context unavailable: %v", err)})
		c.publish(rc, ev)
		c.degrade(rc, "market context unavailable")
		c.logger.Warn().
			Err(err).
			Str("run_id", rc.RunID).
			Str("ticker", rc.Request.Ticker).
			Msg("Market snapshot fetch failed")
		return
	}

	rc.SetMarket(snap)
	ev := rc.AppendTrace(models.TraceTool, fmt.Sprintf("market snapshot for %s: close %.2f, window change %+.1f%%",
		snap.Symbol, snap.Close, snap.WindowChange*100))
	c.publish(rc, ev)
}

// extract runs the strategy chain over every report document with
// bounded parallelism. Empty extractions degrade the run.
func (c *Coordinator) extract(ctx context.Context, rc *models.RunContext, reports []*models.SourceDocument) error {
	if len(reports) == 0 {
		return ctx.Err()
	}

	chain := c.extractor.WithTrace(rc)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Pipeline.MaxParallelExtracts)

	for _, doc := range reports {
		doc := doc
		g.Go(func() error {
			metrics, err := chain.Extract(gctx, doc)
			if err != nil {
				return err
			}
			if len(metrics) == 0 {
				ev := rc.RecordGap(models.ExtractionGapError{
					DocumentID: doc.ID,
					Reason:     "all extraction strategies returned no metrics",
				})
				c.publish(rc, ev)
				c.degrade(rc, fmt.Sprintf("no metrics extracted from document %s", doc.ID))
				return nil
			}
			rc.AddMetrics(metrics)
			return nil
		})
	}

	return g.Wait()
}

// analyze runs qualitative analysis over every transcript. Failures and
// empty results degrade the run rather than failing it; the synthesis
// prompt carries the gaps instead.
func (c *Coordinator) analyze(ctx context.Context, rc *models.RunContext, transcripts []*models.SourceDocument) error {
	if len(transcripts) == 0 {
		return ctx.Err()
	}

	analyzer := c.analyzer.WithTrace(rc)

	for _, doc := range transcripts {
		insights, err := analyzer.Analyze(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ev := rc.RecordGap(models.ExtractionGapError{
				DocumentID: doc.ID,
				Reason:     fmt.Sprintf("qualitative analysis failed: %v", err),
			})
			c.publish(rc, ev)
			c.degrade(rc, fmt.Sprintf("qualitative analysis failed for document %s", doc.ID))
			continue
		}
		if len(insights) == 0 {
			ev := rc.RecordGap(models.ExtractionGapError{
				DocumentID: doc.ID,
				Reason:     "transcript produced no usable text",
			})
			c.publish(rc, ev)
			c.degrade(rc, fmt.Sprintf("no insights from document %s", doc.ID))
			continue
		}
		rc.AddInsights(insights)
	}

	return ctx.Err()
}

// generateForecast runs the bounded synthesis loop: one initial attempt
// plus up to Pipeline.SynthesisRecovery corrective re-prompts. Each
// corrective prompt echoes the malformed output and the parse error
// against the original request. Transport failures from the model
// client end the run immediately; only parse failures are recoverable
// here.
func (c *Coordinator) generateForecast(ctx context.Context, rc *models.RunContext, client interfaces.ModelClient, prompt, basePrompt string) (*synthesis.ModelForecast, error) {
	total := 1 + c.config.Pipeline.SynthesisRecovery
	if total < 1 {
		total = 1
	}

	var lastParseErr error
	for attempt := 1; attempt <= total; attempt++ {
		rc.BumpRetry(models.StepSynthesis)
		raw, err := client.Complete(ctx, prompt, nil)
		if err != nil {
			rc.AppendTrace(models.TraceModelAttempt, fmt.Sprintf("synthesis attempt %d/%d aborted: %v", attempt, total, err))
			return nil, err
		}

		forecast, perr := synthesis.ParseResponse(raw)
		if perr == nil {
			rc.AppendTrace(models.TraceModelAttempt, fmt.Sprintf("synthesis attempt %d/%d ok", attempt, total))
			return forecast, nil
		}

		lastParseErr = perr
		rc.AppendTrace(models.TraceModelAttempt, fmt.Sprintf("synthesis attempt %d/%d malformed: %v", attempt, total, perr))
		c.logger.Warn().
			Str("run_id", rc.RunID).
			Int("attempt", attempt).
			Int("total", total).
			Err(perr).
			Msg("Model returned malformed forecast, re-prompting")

		prompt = synthesis.BuildCorrectionPrompt(basePrompt, raw, perr)
	}

	return nil, &models.SynthesisFailedError{Attempts: rc.RetryCount(models.StepSynthesis), Reason: lastParseErr.Error()}
}

// finish persists the validated result and trace, then retires the run.
func (c *Coordinator) finish(rc *models.RunContext, result *schemas.ForecastResult) {
	ctx := context.Background()
	if err := c.store.SaveResult(ctx, rc.RunID, result); err != nil {
		c.logger.Error().
			Err(err).
			Str("run_id", rc.RunID).
			Msg("Failed to persist forecast result")
	}
	if err := c.store.SaveTrace(ctx, rc.RunID, rc.Trace()); err != nil {
		c.logger.Warn().
			Err(err).
			Str("run_id", rc.RunID).
			Msg("Failed to persist run trace")
	}
	c.mirrorStatus(rc)

	c.logger.Info().
		Str("run_id", rc.RunID).
		Str("ticker", rc.Request.Ticker).
		Str("mode", rc.Mode()).
		Str("elapsed", rc.Elapsed().String()).
		Msg("Forecast run completed")
}

// fail marks the run failed, persists what the run produced and logs
// the terminal error.
func (c *Coordinator) fail(rc *models.RunContext, err error) {
	ev := rc.MarkFailed(err)
	c.publish(rc, ev)
	c.mirrorStatus(rc)

	if serr := c.store.SaveTrace(context.Background(), rc.RunID, rc.Trace()); serr != nil {
		c.logger.Warn().
			Err(serr).
			Str("run_id", rc.RunID).
			Msg("Failed to persist run trace")
	}

	c.logger.Error().
		Err(err).
		Str("run_id", rc.RunID).
		Str("ticker", rc.Request.Ticker).
		Str("state", string(rc.State())).
		Str("error_kind", models.KindOf(err)).
		Str("elapsed", rc.Elapsed().String()).
		Msg("Forecast run failed")
}

// forget removes a run from the live map once its terminal state is
// persisted. Status reads hit the store from then on.
func (c *Coordinator) forget(runID string) {
	c.mu.Lock()
	delete(c.runs, runID)
	c.mu.Unlock()
}

// gapSummaries renders recorded gaps for the synthesis prompt.
func gapSummaries(gaps []models.ExtractionGapError) []string {
	out := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		if gap.DocumentID != "" {
			out = append(out, fmt.Sprintf("%s (document %s)", gap.Reason, gap.DocumentID))
			continue
		}
		out = append(out, gap.Reason)
	}
	return out
}
