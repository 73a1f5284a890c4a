package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
)

func TestNewService_RegistersConfiguredSources(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Fetch.CacheDir = t.TempDir()

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	defer svc.Close()

	fetchers := svc.Fetchers()
	assert.Contains(t, fetchers, SourceScreener)
	assert.Contains(t, fetchers, SourceCompanyIR)
	assert.NotContains(t, fetchers, SourceMailbox, "mailbox registers only when IMAP is enabled")
	assert.NotNil(t, svc.Cache())
}

func TestNewService_RegistersMailboxWhenIMAPEnabled(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Fetch.CacheDir = t.TempDir()
	cfg.Fetch.IMAP.Enabled = true
	cfg.Fetch.IMAP.Server = "imap.example.com:993"
	cfg.Fetch.IMAP.Username = "forecasts@example.com"

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Contains(t, svc.Fetchers(), SourceMailbox)
}
