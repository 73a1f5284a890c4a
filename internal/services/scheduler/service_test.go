package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
	"github.com/ternarybob/augur/internal/services/fetch"
)

// stubForecastService captures Submit calls from scheduled refreshes
type stubForecastService struct {
	submitted []models.RunRequest
	runID     string
	err       error
}

func (s *stubForecastService) Submit(ctx context.Context, req models.RunRequest) (string, error) {
	s.submitted = append(s.submitted, req)
	return s.runID, s.err
}

func (s *stubForecastService) Status(ctx context.Context, runID string) (*models.RequestRecord, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubForecastService) Result(ctx context.Context, runID string) (*schemas.ForecastResult, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubForecastService) Capabilities(ctx context.Context) []interfaces.Capability {
	return nil
}

func newSchedulerForTest(t *testing.T, config *common.SchedulerConfig, forecast *stubForecastService) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	cache, err := fetch.NewDiskCache(t.TempDir(), logger)
	require.NoError(t, err)
	svc := NewService(config, forecast, cache, logger)
	t.Cleanup(svc.Stop)
	return svc
}

func TestSchedulerStart_DisabledStaysIdle(t *testing.T) {
	svc := newSchedulerForTest(t, &common.SchedulerConfig{Enabled: false}, &stubForecastService{})

	require.NoError(t, svc.Start())
	assert.False(t, svc.running)
	assert.Empty(t, svc.cron.Entries())

	svc.Stop()
}

func TestSchedulerStart_RegistersSweepAndValidRefreshes(t *testing.T) {
	config := &common.SchedulerConfig{
		Enabled: true,
		Refreshes: []common.RefreshEntry{
			{Ticker: "TCS", Schedule: "0 0 6 * * 1"},
			{Ticker: "INFY", Schedule: "whenever"},
		},
	}
	svc := newSchedulerForTest(t, config, &stubForecastService{runID: "run-1"})

	require.NoError(t, svc.Start())
	assert.True(t, svc.running)

	// Default cache sweep plus the one refresh with a parsable schedule.
	assert.Len(t, svc.cron.Entries(), 2)

	assert.Error(t, svc.Start(), "second start should be rejected")
}

func TestSchedulerRefresh_FillsRequestDefaults(t *testing.T) {
	forecast := &stubForecastService{runID: "run-42"}
	svc := newSchedulerForTest(t, &common.SchedulerConfig{Enabled: true}, forecast)

	svc.runRefresh(common.RefreshEntry{Ticker: "TCS"})

	require.Len(t, forecast.submitted, 1)
	req := forecast.submitted[0]
	assert.Equal(t, "TCS", req.Ticker)
	assert.Equal(t, 4, req.QuarterCount)
	assert.Equal(t, []string{fetch.SourceScreener}, req.Sources)
}

func TestSchedulerRefresh_KeepsExplicitSettings(t *testing.T) {
	forecast := &stubForecastService{runID: "run-43"}
	svc := newSchedulerForTest(t, &common.SchedulerConfig{Enabled: true}, forecast)

	svc.runRefresh(common.RefreshEntry{
		Ticker:   "INFY",
		Quarters: 8,
		Sources:  []string{"company-ir", "mailbox"},
	})

	require.Len(t, forecast.submitted, 1)
	req := forecast.submitted[0]
	assert.Equal(t, 8, req.QuarterCount)
	assert.Equal(t, []string{"company-ir", "mailbox"}, req.Sources)
}

func TestSchedulerSweep_ToleratesMissingCache(t *testing.T) {
	svc := NewService(&common.SchedulerConfig{Enabled: true}, &stubForecastService{}, nil, arbor.NewLogger())
	defer svc.Stop()

	svc.runCacheSweep()

	require.NoError(t, svc.Start())
	assert.Empty(t, svc.cron.Entries(), "no cache and no refreshes means nothing to schedule")
}
