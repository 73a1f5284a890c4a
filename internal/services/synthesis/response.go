// -----------------------------------------------------------------------
// Model response parsing - strict JSON shape with markdown tolerance
// -----------------------------------------------------------------------

package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ModelForecast is the shape requested from the synthesis call. The
// deterministic fields of the final result (reconciled metrics,
// themes, confidence scores, evidence) are computed locally and never
// delegated to the model.
type ModelForecast struct {
	Outlook       string                  `json:"outlook"`
	Summary       string                  `json:"summary"`
	Forecast      map[string]ForecastCall `json:"forecast"`
	Risks         []string                `json:"risks"`
	Opportunities []string                `json:"opportunities"`
}

// ForecastCall is the model's directional call for one metric.
type ForecastCall struct {
	Direction  string  `json:"direction"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

var validOutlooks = map[string]bool{
	"improving":     true,
	"stable":        true,
	"deteriorating": true,
	"mixed":         true,
}

var validDirections = map[string]bool{
	"up":   true,
	"flat": true,
	"down": true,
}

// ParseResponse extracts a ModelForecast from raw model output. The
// model may wrap JSON in markdown fences or surround it with prose,
// both are tolerated. A response that does not contain a JSON object
// of the expected shape is a parse error, which triggers the bounded
// recovery re-prompt.
func ParseResponse(raw string) (*ModelForecast, error) {
	content := extractJSON(raw)
	if content == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var mf ModelForecast
	if err := json.Unmarshal([]byte(content), &mf); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	mf.Outlook = strings.ToLower(strings.TrimSpace(mf.Outlook))
	if !validOutlooks[mf.Outlook] {
		return nil, fmt.Errorf("outlook %q is not one of improving|stable|deteriorating|mixed", mf.Outlook)
	}
	if mf.Forecast == nil {
		return nil, fmt.Errorf("missing forecast object")
	}
	for name, call := range mf.Forecast {
		call.Direction = strings.ToLower(strings.TrimSpace(call.Direction))
		if !validDirections[call.Direction] {
			return nil, fmt.Errorf("forecast %s direction %q is not one of up|flat|down", name, call.Direction)
		}
		if call.Confidence < 0 {
			call.Confidence = 0
		}
		if call.Confidence > 1 {
			call.Confidence = 1
		}
		mf.Forecast[name] = call
	}

	return &mf, nil
}

// extractJSON pulls the JSON payload out of a possibly markdown-
// wrapped response.
func extractJSON(response string) string {
	content := response
	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json") + 7
		end := strings.LastIndex(response, "```")
		if end > start {
			content = response[start:end]
		}
	} else if strings.Contains(response, "```") {
		start := strings.Index(response, "```") + 3
		end := strings.LastIndex(response, "```")
		if end > start {
			content = response[start:end]
		}
	}

	first := strings.Index(content, "{")
	last := strings.LastIndex(content, "}")
	if first < 0 || last <= first {
		return ""
	}
	return content[first : last+1]
}
