package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mlawson/shepard/internal/classify"
	"github.com/mlawson/shepard/internal/store"
)

var treatmentJSON bool

// treatmentCmd represents the treatment command
var treatmentCmd = &cobra.Command{
	Use:   "treatment <opinion-id>",
	Short: "Classify how later courts have treated an opinion",
	Long: `Treatment reads the stored parentheticals describing an opinion and
classifies the treatment language in each: overruled, followed,
questioned, distinguished, and so on. The aggregate answers how the
case has fared in later courts, without traversing the citation graph.

Example:
  shepard treatment 118144
  shepard treatment 118144 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTreatment,
}

func init() {
	rootCmd.AddCommand(treatmentCmd)

	treatmentCmd.Flags().BoolVar(&treatmentJSON, "json", false, "print the summary as JSON")
}

func runTreatment(cmd *cobra.Command, args []string) error {
	opinionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || opinionID <= 0 {
		return fmt.Errorf("invalid opinion id: %q", args[0])
	}

	cfg := loadConfig()
	ctx := context.Background()

	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	exists, err := db.HasOpinion(ctx, opinionID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("opinion %d is not in the store", opinionID)
	}

	parens, err := db.Parentheticals(ctx, opinionID)
	if err != nil {
		return err
	}
	if len(parens) == 0 {
		fmt.Printf("No parentheticals describe opinion %d; nothing to classify.\n", opinionID)
		return nil
	}

	summary := classify.NewClassifier().AnalyzeTreatment(opinionID, parens)

	if treatmentJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	renderTreatment(os.Stdout, &summary)
	return nil
}
