package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
	"github.com/docfind/docfind/logger"
	"github.com/docfind/docfind/storage"
)

// SearchCmd searches the ingested corpus
var SearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the document corpus",
	Long: `Substring search over converted document content and file names.
Matching works the same for English and CJK text.

Examples:
  docfind search "deployment checklist"
  docfind search 移転計画
  docfind search meeting --types md,docx --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchLimitFlag  int
	searchOffsetFlag int
	searchTypesFlag  []string
	searchSourceFlag string
	searchDateFrom   string
	searchDateTo     string
)

func init() {
	SearchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", 0, "Maximum results (default from config)")
	SearchCmd.Flags().IntVar(&searchOffsetFlag, "offset", 0, "Skip this many results")
	SearchCmd.Flags().StringSliceVar(&searchTypesFlag, "types", nil, "Restrict to these file types")
	SearchCmd.Flags().StringVar(&searchSourceFlag, "source", "", "Restrict to one source tag")
	SearchCmd.Flags().StringVar(&searchDateFrom, "date-from", "", "Only files modified on or after this date (YYYY-MM-DD)")
	SearchCmd.Flags().StringVar(&searchDateTo, "date-to", "", "Only files modified on or before this date (YYYY-MM-DD)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dateFrom, dateTo, err := ingest.ParseDateRange(searchDateFrom, searchDateTo)
	if err != nil {
		return err
	}

	limit := searchLimitFlag
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	if limit > cfg.Search.MaxLimit {
		limit = cfg.Search.MaxLimit
	}
	if searchOffsetFlag < 0 {
		return errors.Newf("--offset must be >= 0, got %d", searchOffsetFlag)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	documents := storage.NewDocumentStore(database, logger.Logger)
	result, err := documents.Search(storage.SearchParams{
		Query:    args[0],
		Types:    searchTypesFlag,
		Source:   searchSourceFlag,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Limit:    limit,
		Offset:   searchOffsetFlag,
	})
	if err != nil {
		return errors.Wrap(err, "search failed")
	}

	if result.Total == 0 {
		pterm.Info.Printf("No documents match %q\n", args[0])
		return nil
	}

	for _, hit := range result.Hits {
		modified := ""
		if hit.FileModifiedAt != nil {
			modified = hit.FileModifiedAt.Format("2006-01-02")
		}
		pterm.Printf("%s  %s\n", pterm.Bold.Sprint(hit.FileName), pterm.Gray(modified))
		pterm.Printf("  %s (%s, %s)\n", hit.FilePath, hit.FileType, hit.Source)
		if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
			pterm.Printf("  %s\n", strings.ReplaceAll(snippet, "\n", " "))
		}
		pterm.Println()
	}

	shown := searchOffsetFlag + len(result.Hits)
	pterm.Info.Printf("Showing %d-%d of %d matches\n", searchOffsetFlag+1, shown, result.Total)
	return nil
}
