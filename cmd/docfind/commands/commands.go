// Package commands implements the docfind CLI subcommands.
package commands

import (
	"database/sql"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/convert"
	"github.com/docfind/docfind/db"
	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
	"github.com/docfind/docfind/logger"
	"github.com/docfind/docfind/storage"
)

// ConfigFile is the path given via --config; empty means the default
// search locations (docfind.toml in . or ~/.config/docfind).
var ConfigFile string

// loadConfig resolves and validates the effective configuration
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if ConfigFile != "" {
		cfg, err = config.LoadFromFile(ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// openDatabase opens the configured SQLite database and brings the
// schema up to date
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// buildOrchestrator assembles the full ingestion pipeline over an open
// database: converter registry, document and cursor stores, sessions.
func buildOrchestrator(cfg *config.Config, database *sql.DB) (*ingest.Orchestrator, error) {
	captioner, err := convert.NewCaptioner(cfg.Caption)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure image captioning")
	}

	registry := ingest.NewRegistry(logger.Logger)
	if err := convert.RegisterDefaults(registry, cfg.Ingest, captioner, logger.Logger); err != nil {
		return nil, errors.Wrap(err, "failed to register converters")
	}

	documents := storage.NewDocumentStore(database, logger.Logger)
	cursors := storage.NewCursorStore(database, logger.Logger)
	sessions := ingest.NewSessionStore(cfg.Ingest.HistoryLimit, logger.Logger)

	return ingest.NewOrchestrator(cfg.Ingest, registry, documents, cursors, sessions, logger.Logger), nil
}
