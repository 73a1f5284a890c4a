package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
)

// resultRecord wraps a finished forecast for persistence.
type resultRecord struct {
	RunID     string                  `json:"run_id" badgerhold:"key"`
	Result    *schemas.ForecastResult `json:"result"`
	CreatedAt time.Time               `json:"created_at"`
}

// ForecastStore implements interfaces.ForecastStore on Badger.
type ForecastStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewForecastStore wraps an open database connection.
func NewForecastStore(db *DB, logger arbor.ILogger) *ForecastStore {
	return &ForecastStore{db: db, logger: logger}
}

// SaveRequest inserts or replaces a request record.
func (s *ForecastStore) SaveRequest(ctx context.Context, rec *models.RequestRecord) error {
	if rec == nil || rec.RunID == "" {
		return fmt.Errorf("request record requires a run ID")
	}
	if err := s.db.Store().Upsert(rec.RunID, rec); err != nil {
		return fmt.Errorf("failed to save request record: %w", err)
	}
	return nil
}

// UpdateRequestStatus mirrors a pipeline transition onto the record.
func (s *ForecastStore) UpdateRequestStatus(ctx context.Context, runID, status string, state models.RunState, mode string, runErr error) error {
	var rec models.RequestRecord
	if err := s.db.Store().Get(runID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("run %s: %w", runID, interfaces.ErrNotFound)
		}
		return fmt.Errorf("failed to load request record: %w", err)
	}

	rec.Status = status
	rec.State = state
	rec.Mode = mode
	rec.UpdatedAt = time.Now().UTC()
	if runErr != nil {
		rec.ErrorKind = models.KindOf(runErr)
		rec.Error = runErr.Error()
	}

	if err := s.db.Store().Update(runID, &rec); err != nil {
		return fmt.Errorf("failed to update request record: %w", err)
	}
	return nil
}

// GetRequest returns one request record.
func (s *ForecastStore) GetRequest(ctx context.Context, runID string) (*models.RequestRecord, error) {
	var rec models.RequestRecord
	if err := s.db.Store().Get(runID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run %s: %w", runID, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request record: %w", err)
	}
	return &rec, nil
}

// ListRequests returns recent requests newest first, optionally
// filtered by ticker.
func (s *ForecastStore) ListRequests(ctx context.Context, ticker string, limit int) ([]*models.RequestRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := badgerhold.Where("RunID").Ne("")
	if ticker != "" {
		query = badgerhold.Where("Ticker").Eq(ticker).Index("Ticker")
	}
	query = query.SortBy("CreatedAt").Reverse().Limit(limit)

	var recs []models.RequestRecord
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list request records: %w", err)
	}

	out := make([]*models.RequestRecord, len(recs))
	for i := range recs {
		out[i] = &recs[i]
	}
	return out, nil
}

// SaveResult persists a finalized forecast.
func (s *ForecastStore) SaveResult(ctx context.Context, runID string, result *schemas.ForecastResult) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}
	rec := resultRecord{
		RunID:     runID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Store().Upsert(runID, &rec); err != nil {
		return fmt.Errorf("failed to save forecast result: %w", err)
	}
	return nil
}

// GetResult returns the stored forecast for a run.
func (s *ForecastStore) GetResult(ctx context.Context, runID string) (*schemas.ForecastResult, error) {
	var rec resultRecord
	if err := s.db.Store().Get(runID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("result for run %s: %w", runID, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get forecast result: %w", err)
	}
	return rec.Result, nil
}

// SaveTrace persists the full conversation trace of a finished run.
// Events are keyed runID/seq so replays land on the same rows.
func (s *ForecastStore) SaveTrace(ctx context.Context, runID string, events []models.TraceEvent) error {
	for _, ev := range events {
		rec := models.TraceRecord{
			ID:     fmt.Sprintf("%s/%04d", runID, ev.Seq),
			RunID:  runID,
			Seq:    ev.Seq,
			Stage:  ev.Stage,
			Kind:   ev.Kind,
			Detail: ev.Detail,
			At:     ev.At,
		}
		if err := s.db.Store().Upsert(rec.ID, &rec); err != nil {
			return fmt.Errorf("failed to save trace event %d: %w", ev.Seq, err)
		}
	}
	return nil
}

// GetTrace returns the persisted trace in sequence order.
func (s *ForecastStore) GetTrace(ctx context.Context, runID string) ([]*models.TraceRecord, error) {
	var recs []models.TraceRecord
	query := badgerhold.Where("RunID").Eq(runID).Index("RunID").SortBy("Seq")
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}

	out := make([]*models.TraceRecord, len(recs))
	for i := range recs {
		out[i] = &recs[i]
	}
	return out, nil
}

// Close closes the underlying database.
func (s *ForecastStore) Close() error {
	return s.db.Close()
}

var _ interfaces.ForecastStore = (*ForecastStore)(nil)
