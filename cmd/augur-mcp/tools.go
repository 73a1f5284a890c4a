package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSubmitForecastTool returns the submit_forecast tool definition
func createSubmitForecastTool() mcp.Tool {
	return mcp.NewTool("submit_forecast",
		mcp.WithDescription("Start a forecast run for a company ticker. Returns the run id; the pipeline executes in the background."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Company ticker symbol (e.g. TCS, INFY)"),
		),
		mcp.WithNumber("quarters",
			mcp.Description("Number of quarters to analyze (default: 4, max: 12)"),
		),
		mcp.WithArray("sources",
			mcp.WithStringItems(),
			mcp.Description("Document sources to gather from: screener, company-ir, mailbox (default: screener)"),
		),
		mcp.WithBoolean("include_market",
			mcp.Description("Also gather recent share price and news context for the synthesis (needs market data configured)"),
		),
	)
}

// createGetForecastStatusTool returns the get_forecast_status tool definition
func createGetForecastStatusTool() mcp.Tool {
	return mcp.NewTool("get_forecast_status",
		mcp.WithDescription("Check the pipeline state of a forecast run"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID returned by submit_forecast"),
		),
	)
}

// createGetForecastResultTool returns the get_forecast_result tool definition
func createGetForecastResultTool() mcp.Tool {
	return mcp.NewTool("get_forecast_result",
		mcp.WithDescription("Retrieve the completed forecast for a run as a markdown report"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID returned by submit_forecast"),
		),
	)
}

// createListForecastRunsTool returns the list_forecast_runs tool definition
func createListForecastRunsTool() mcp.Tool {
	return mcp.NewTool("list_forecast_runs",
		mcp.WithDescription("List recent forecast runs, optionally filtered by ticker"),
		mcp.WithString("ticker",
			mcp.Description("Filter runs by ticker symbol"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// createCheckCapabilitiesTool returns the check_capabilities tool definition
func createCheckCapabilitiesTool() mcp.Tool {
	return mcp.NewTool("check_capabilities",
		mcp.WithDescription("Report availability of the model backend, embeddings, OCR and document sources"),
	)
}
