package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostGate_SpacesSameHostRequests(t *testing.T) {
	gate := newHostGate(60 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, gate.Wait(ctx, "https://www.screener.in/company/TCS/consolidated/"))
	require.NoError(t, gate.Wait(ctx, "https://www.screener.in/d/results.pdf"))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestHostGate_HostsDoNotBlockEachOther(t *testing.T) {
	gate := newHostGate(500 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, gate.Wait(ctx, "https://www.screener.in/company/TCS/consolidated/"))

	start := time.Now()
	require.NoError(t, gate.Wait(ctx, "https://ir.example.com/results/"))
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestHostGate_HonorsCancellationWhileWaiting(t *testing.T) {
	gate := newHostGate(10 * time.Second)
	require.NoError(t, gate.Wait(context.Background(), "https://www.screener.in/a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Wait(ctx, "https://www.screener.in/b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostGate_ZeroDelayIsANoOp(t *testing.T) {
	gate := newHostGate(0)
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(context.Background(), "https://www.screener.in/x"))
	}
}
