package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/logger"
	"github.com/docfind/docfind/server"
	"github.com/docfind/docfind/storage"
)

// ServeCmd starts the docfind HTTP API server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the docfind API server",
	Long: `Start the HTTP API server for ingestion and search.

The server exposes ingestion runs (with WebSocket progress streaming),
cancellation, search, and document retrieval. Configure the port and
allowed origins via docfind.toml or DOCFIND_* environment variables.`,
	RunE: runServe,
}

var servePortFlag int

func init() {
	ServeCmd.Flags().IntVar(&servePortFlag, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePortFlag > 0 {
		cfg.Server.Port = servePortFlag
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	orch, err := buildOrchestrator(cfg, database)
	if err != nil {
		return err
	}

	documents := storage.NewDocumentStore(database, logger.Logger)
	cursors := storage.NewCursorStore(database, logger.Logger)
	srv := server.New(*cfg, database, orch, documents, cursors, logger.Logger)

	// Reload on config file edits. Settings are re-validated here; the
	// server itself picks them up on restart.
	if watchPath := configFileInUse(); watchPath != "" {
		watcher, werr := config.NewWatcher(watchPath)
		if werr != nil {
			logger.Logger.Warnw("Config watching disabled", "path", watchPath, "error", werr)
		} else {
			watcher.OnReload(func(next *config.Config) error {
				if err := next.Validate(); err != nil {
					return errors.Wrap(err, "rejected reloaded config")
				}
				logger.Logger.Infow("Config reloaded; server settings apply on restart")
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printf("docfind listening on http://localhost:%d\n", cfg.Server.Port)
	pterm.Info.Printf("Database: %s\n", cfg.Database.Path)

	if err := srv.Start(ctx); err != nil {
		return errors.Wrap(err, "server failed")
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}

// configFileInUse returns the config file path the process resolved,
// or "" when running on defaults alone.
func configFileInUse() string {
	if ConfigFile != "" {
		return ConfigFile
	}
	return config.GetViper().ConfigFileUsed()
}
