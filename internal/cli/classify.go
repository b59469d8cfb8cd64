package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlawson/shepard/internal/classify"
)

var classifyJSON bool

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify the treatment language in a snippet of text",
	Long: `Classify runs the treatment classifier on a single snippet, the way a
parenthetical would be classified during analysis. Reads stdin when no
text argument is given.

Example:
  shepard classify "overruled by Brown v. Board"
  echo "declined to follow Smith" | shepard classify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text to classify")
	}

	result := classify.NewClassifier().ClassifySnippet(text)

	if classifyJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Treatment:  %s (%s)\n", result.Type, result.Severity)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	if len(result.Signals) > 0 {
		fmt.Println("Signals:")
		for _, sig := range result.Signals {
			fmt.Printf("  %-24s score %d  %s  at %d\n", sig.Keyword, sig.Score, sig.Severity, sig.Position)
		}
	}
	return nil
}
