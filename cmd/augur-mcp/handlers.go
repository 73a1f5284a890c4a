package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/services/fetch"
	"github.com/ternarybob/augur/internal/services/report"
)

// handleSubmitForecast implements the submit_forecast tool
func handleSubmitForecast(svc interfaces.ForecastService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return textResult("Error: ticker parameter is required"), nil
		}

		quarters := request.GetInt("quarters", 4)
		if quarters > 12 {
			quarters = 12
		}

		sources := request.GetStringSlice("sources", nil)
		if len(sources) == 0 {
			sources = []string{fetch.SourceScreener}
		}

		runID, err := svc.Submit(ctx, models.RunRequest{
			Ticker:        ticker,
			QuarterCount:  quarters,
			Sources:       sources,
			IncludeMarket: request.GetBool("include_market", false),
		})
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Submit failed")
			return textResult(fmt.Sprintf("Submit error: %v", err)), nil
		}

		return textResult(fmt.Sprintf(
			"Forecast run started for %s over %d quarter(s).\n\nRun ID: `%s`\n\nPoll get_forecast_status until state is Done, then call get_forecast_result.",
			ticker, quarters, runID)), nil
	}
}

// handleGetForecastStatus implements the get_forecast_status tool
func handleGetForecastStatus(svc interfaces.ForecastService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil || runID == "" {
			return textResult("Error: run_id parameter is required"), nil
		}

		record, err := svc.Status(ctx, runID)
		if err != nil {
			logger.Error().Err(err).Str("run_id", runID).Msg("Status lookup failed")
			return textResult(fmt.Sprintf("Status error: %v", err)), nil
		}

		return textResult(formatStatus(record)), nil
	}
}

// handleGetForecastResult implements the get_forecast_result tool
func handleGetForecastResult(svc interfaces.ForecastService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil || runID == "" {
			return textResult("Error: run_id parameter is required"), nil
		}

		result, err := svc.Result(ctx, runID)
		if err != nil {
			logger.Error().Err(err).Str("run_id", runID).Msg("Result lookup failed")
			return textResult(fmt.Sprintf("Result not available: %v", err)), nil
		}

		return textResult(report.BuildMarkdown(result)), nil
	}
}

// handleListForecastRuns implements the list_forecast_runs tool
func handleListForecastRuns(store interfaces.ForecastStore, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker := request.GetString("ticker", "")
		limit := request.GetInt("limit", 20)

		records, err := store.ListRequests(ctx, ticker, limit)
		if err != nil {
			logger.Error().Err(err).Msg("List runs failed")
			return textResult(fmt.Sprintf("List error: %v", err)), nil
		}

		return textResult(formatRunList(ticker, records)), nil
	}
}

// handleCheckCapabilities implements the check_capabilities tool
func handleCheckCapabilities(svc interfaces.ForecastService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caps := svc.Capabilities(ctx)
		return textResult(formatCapabilities(caps)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
