package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// formatStatus formats a run record as markdown
func formatStatus(record *models.RequestRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Forecast Run %s\n\n", record.RunID))
	sb.WriteString(fmt.Sprintf("**Ticker:** %s (%d quarters)\n", record.Ticker, record.Quarters))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", record.Status))
	sb.WriteString(fmt.Sprintf("**State:** %s\n", record.State))
	sb.WriteString(fmt.Sprintf("**Mode:** %s\n", record.Mode))
	sb.WriteString(fmt.Sprintf("**Sources:** %s\n", strings.Join(record.Sources, ", ")))
	sb.WriteString(fmt.Sprintf("**Updated:** %s\n", record.UpdatedAt.Format(time.RFC3339)))

	if record.Error != "" {
		sb.WriteString(fmt.Sprintf("\n**Error (%s):** %s\n", record.ErrorKind, record.Error))
	}
	return sb.String()
}

// formatRunList formats a run listing as markdown
func formatRunList(ticker string, records []*models.RequestRecord) string {
	var sb strings.Builder
	if ticker != "" {
		sb.WriteString(fmt.Sprintf("## Forecast Runs for %s (%d)\n\n", ticker, len(records)))
	} else {
		sb.WriteString(fmt.Sprintf("## Forecast Runs (%d)\n\n", len(records)))
	}

	if len(records) == 0 {
		sb.WriteString("No runs found.\n")
		return sb.String()
	}

	for i, rec := range records {
		sb.WriteString(fmt.Sprintf("%d. **%s** %s - %s (%s, %s)\n",
			i+1, rec.Ticker, rec.RunID, rec.Status, rec.State, rec.Mode))
		sb.WriteString(fmt.Sprintf("   Created: %s\n\n", rec.CreatedAt.Format(time.RFC3339)))
	}
	return sb.String()
}

// formatCapabilities formats the capability report as markdown
func formatCapabilities(caps []interfaces.Capability) string {
	var sb strings.Builder
	sb.WriteString("## Capabilities\n\n")
	for _, c := range caps {
		mark := "no"
		if c.Available {
			mark = "yes"
		}
		sb.WriteString(fmt.Sprintf("- **%s:** %s", c.Name, mark))
		if c.Detail != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", c.Detail))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
