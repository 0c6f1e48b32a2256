package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/logger"
	"github.com/docfind/docfind/storage"
)

// DbCmd groups database operations
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the docfind database",
	Long: `Database operations: migrations and corpus statistics.

Examples:
  docfind db migrate   # Apply pending schema migrations
  docfind db stats     # Show document counts and scan cursors`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics and scan cursors",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// openDatabase migrates as part of opening
	database, err := openDatabase(cfg)
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}
	defer database.Close()

	fmt.Printf("Database %s is up to date\n", cfg.Database.Path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	documents := storage.NewDocumentStore(database, logger.Logger)
	cursors := storage.NewCursorStore(database, logger.Logger)

	stats, err := documents.Stats()
	if err != nil {
		return errors.Wrap(err, "failed to read corpus stats")
	}

	fmt.Printf("Database Statistics\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:   %s\n", cfg.Database.Path)
	fmt.Printf("Total Documents: %d\n", stats.TotalDocuments)
	fmt.Printf("Completed:       %d\n", stats.Completed)
	fmt.Printf("Failed:          %d\n", stats.Failed)
	fmt.Println()

	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for ft := range stats.ByType {
			types = append(types, ft)
		}
		sort.Strings(types)

		fmt.Printf("Documents by Type:\n")
		for _, ft := range types {
			fmt.Printf("  %-10s %d\n", ft, stats.ByType[ft])
		}
		fmt.Println()
	}

	list, err := cursors.List()
	if err != nil {
		return errors.Wrap(err, "failed to read scan cursors")
	}

	fmt.Printf("Scan Cursors:\n")
	if len(list) == 0 {
		fmt.Println("  No ingestion runs recorded yet")
		return nil
	}
	for _, c := range list {
		cursorAt := "never completed"
		if c.CursorUpdatedAt != nil {
			cursorAt = c.CursorUpdatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  [%s] %s\n", c.Source, c.ScopeKey)
		fmt.Printf("    cursor: %s, last run: %d files (%d processed, %d skipped, %d errors)\n",
			cursorAt, c.TotalFiles, c.Processed, c.Skipped, c.Errors)
		if c.LastErrorMessage != "" {
			fmt.Printf("    last error: %s\n", c.LastErrorMessage)
		}
	}
	return nil
}
