// Package badger persists forecast runs in an embedded BadgerDB
// through badgerhold. One store holds request records, finished
// forecasts and conversation traces.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/augur/internal/common"
)

// DB manages the Badger database connection shared by the stores.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the database at the configured path.
func Open(logger arbor.ILogger, config common.BadgerConfig) (*DB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badgerdb.DefaultOptions(config.Path).
		WithLogger(nil). // arbor handles logging
		WithNumVersionsToKeep(1)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database opened")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (db *DB) Store() *badgerhold.Store {
	return db.store
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.store != nil {
		return db.store.Close()
	}
	return nil
}
