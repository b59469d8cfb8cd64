package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlawson/shepard/internal/engine"
	"github.com/mlawson/shepard/internal/model"
)

var (
	analyzeDepth    int
	analyzeForce    bool
	analyzeRemote   bool
	analyzeJSON     string
	analyzeTimeout  time.Duration
	analyzeProvider string
	analyzeModel    string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <opinion-id>",
	Short: "Analyze the citation tree of an opinion and score its precedent risk",
	Long: `Analyze walks the citation graph from the given opinion, level by level,
assessing every opinion it rests on:
- Classifies treatment language from stored parentheticals
- Obtains a quality verdict per opinion through the configured oracle
- Aggregates per-opinion risk into an overall precedent risk score
- Flags shallow citations whose deep dependencies look unreliable

Completed trees are persisted: re-running at the same depth is free, and
a deeper request resumes where the last run stopped.

Example:
  shepard analyze 118144
  shepard analyze 118144 --depth 4 --json tree.json
  shepard analyze 118144 --remote --provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 2, "traversal depth (1-5)")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "re-analyze even if a completed tree exists")
	analyzeCmd.Flags().BoolVar(&analyzeRemote, "remote", false, "fetch missing opinions from the remote API")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "write the full tree as JSON to this path")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "oracle provider (rules, openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "oracle model name")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opinionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || opinionID <= 0 {
		return fmt.Errorf("invalid opinion id: %q", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	cfg := loadConfig()
	if analyzeProvider != "" {
		cfg.Oracle.Provider = analyzeProvider
	}
	if analyzeModel != "" {
		cfg.Oracle.Model = analyzeModel
	}

	a, err := newApp(cfg, analyzeRemote)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing opinion %d to depth %d (oracle: %s)\n", opinionID, analyzeDepth, cfg.Oracle.Provider)
	}

	tree, err := a.analyzer.AnalyzeTree(ctx, opinionID, analyzeDepth, analyzeForce)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrOpinionNotFound):
			return fmt.Errorf("opinion %d is not in the store (try --remote or 'shepard import')", opinionID)
		case errors.Is(err, engine.ErrOracleUnavailable):
			return fmt.Errorf("oracle %q is unavailable; check its configuration", cfg.Oracle.Provider)
		case errors.Is(err, engine.ErrTraversalFailed):
			fmt.Fprintf(os.Stderr, "Analysis failed part way: %v\n", err)
			fmt.Fprintf(os.Stderr, "Progress was saved; re-run to resume.\n")
			return err
		default:
			return err
		}
	}

	renderTree(os.Stdout, tree)

	if analyzeJSON != "" {
		if err := writeTreeJSON(analyzeJSON, tree); err != nil {
			return err
		}
		fmt.Printf("\nFull tree written to %s\n", analyzeJSON)
	}

	return nil
}

func writeTreeJSON(path string, tree *model.AnalysisTree) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
