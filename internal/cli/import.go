package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlawson/shepard/internal/store"
)

var (
	importOpinions       string
	importCitations      string
	importParentheticals string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import opinions, citations, and parentheticals from CSV files",
	Long: `Import loads citation graph data into the local SQLite store from CSV
exports. Expected columns:

  opinions:        id, case_name, plain_text
  citations:       citing_opinion_id, cited_opinion_id
  parentheticals:  described_opinion_id, describing_opinion_id, text

Rows with missing or malformed ids are skipped and counted.

Example:
  shepard import --opinions opinions.csv --citations citations.csv
  shepard import --parentheticals parentheticals.csv`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importOpinions, "opinions", "", "opinions CSV path")
	importCmd.Flags().StringVar(&importCitations, "citations", "", "citations CSV path")
	importCmd.Flags().StringVar(&importParentheticals, "parentheticals", "", "parentheticals CSV path")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importOpinions == "" && importCitations == "" && importParentheticals == "" {
		return fmt.Errorf("nothing to import: pass --opinions, --citations, or --parentheticals")
	}

	cfg := loadConfig()
	ctx := context.Background()

	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	if importOpinions != "" {
		stats, err := db.ImportOpinionsCSV(ctx, importOpinions)
		if err != nil {
			return fmt.Errorf("import opinions: %w", err)
		}
		fmt.Printf("Opinions:        %d imported, %d skipped\n", stats.Imported, stats.Skipped)
	}

	if importCitations != "" {
		stats, err := db.ImportCitationsCSV(ctx, importCitations)
		if err != nil {
			return fmt.Errorf("import citations: %w", err)
		}
		fmt.Printf("Citations:       %d imported, %d skipped\n", stats.Imported, stats.Skipped)
	}

	if importParentheticals != "" {
		stats, err := db.ImportParentheticalsCSV(ctx, importParentheticals)
		if err != nil {
			return fmt.Errorf("import parentheticals: %w", err)
		}
		fmt.Printf("Parentheticals:  %d imported, %d skipped\n", stats.Imported, stats.Skipped)
	}

	return nil
}
