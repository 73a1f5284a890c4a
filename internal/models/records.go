package models

import "time"

// Request record statuses persisted for the status API.
const (
	RequestStatusPending   = "pending"
	RequestStatusRunning   = "running"
	RequestStatusCompleted = "completed"
	RequestStatusFailed    = "failed"
)

// RequestRecord is the persisted row for one accepted forecast request.
// Status and State are updated on every pipeline transition so the
// status endpoint can answer without touching the live run.
type RequestRecord struct {
	RunID         string    `json:"run_id" badgerhold:"key"`
	Ticker        string    `json:"ticker" badgerhold:"index"`
	Quarters      int       `json:"quarters"`
	Sources       []string  `json:"sources"`
	IncludeMarket bool      `json:"include_market,omitempty"`
	Status        string    `json:"status" badgerhold:"index"`
	State         RunState  `json:"state"`
	Mode          string    `json:"mode"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TraceRecord is one persisted conversation-trace event, stored so the
// full audit trail of a run outlives its RunContext.
type TraceRecord struct {
	ID     string    `json:"id" badgerhold:"key"` // runID/seq
	RunID  string    `json:"run_id" badgerhold:"index"`
	Seq    int       `json:"seq"`
	Stage  RunState  `json:"stage"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// RunEvent is the published form of a trace event, carrying enough run
// identity for websocket subscribers filtering by run.
type RunEvent struct {
	RunID string     `json:"run_id"`
	State RunState   `json:"state"`
	Mode  string     `json:"mode"`
	Event TraceEvent `json:"event"`
}
