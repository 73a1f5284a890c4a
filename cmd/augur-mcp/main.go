package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/augur/internal/app"
	"github.com/ternarybob/augur/internal/common"
)

func main() {
	configPath := os.Getenv("AUGUR_CONFIG")
	if configPath == "" {
		configPath = "augur.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Console-only, warn-level logger so stdio stays clean for the
	// MCP protocol.
	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:             arbormodels.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"augur",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register forecast tools
	mcpServer.AddTool(createSubmitForecastTool(), handleSubmitForecast(application.Coordinator, logger))
	mcpServer.AddTool(createGetForecastStatusTool(), handleGetForecastStatus(application.Coordinator, logger))
	mcpServer.AddTool(createGetForecastResultTool(), handleGetForecastResult(application.Coordinator, logger))
	mcpServer.AddTool(createListForecastRunsTool(), handleListForecastRuns(application.Store, logger))
	mcpServer.AddTool(createCheckCapabilitiesTool(), handleCheckCapabilities(application.Coordinator))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
