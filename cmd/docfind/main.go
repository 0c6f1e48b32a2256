package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfind/docfind/cmd/docfind/commands"
	"github.com/docfind/docfind/logger"
)

var rootCmd = &cobra.Command{
	Use:   "docfind",
	Short: "docfind - local document ingestion and search",
	Long: `docfind converts local files to markdown and makes them searchable.

Documents are scanned from configured folders, converted per file type
(markdown, text, code, HTML, Office, draw.io, XMind, images, video
metadata), and stored in SQLite with incremental re-scan cursors.

Available commands:
  serve   - Start the HTTP API and ingestion server
  ingest  - Run an ingestion pass from the command line
  search  - Search the document corpus
  db      - Database operations (migrate, stats)
  version - Show version information

Examples:
  docfind serve                          # Start the API server
  docfind ingest ~/Documents --recursive # Ingest a folder
  docfind search "deployment checklist"  # Find documents
  docfind db stats                       # Corpus statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logger.SetVerbosity(verbosity)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Path to config file (default: docfind.toml in . or ~/.config/docfind)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.SearchCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
