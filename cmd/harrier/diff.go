package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/harrier/pkg/result"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <result-a.json> <result-b.json>",
	Short: "Unified diff of two saved run results (see run --out)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadResultPretty(args[0])
		if err != nil {
			return fmt.Errorf("diff: %w", err)
		}
		b, err := loadResultPretty(args[1])
		if err != nil {
			return fmt.Errorf("diff: %w", err)
		}
		if a == b {
			fmt.Println("no differences")
			return nil
		}
		unified := generateDiff(args[0], args[1], a, b)
		fmt.Print(unified)
		return nil
	},
}

// loadResultPretty re-marshals a saved CollectionExecutionResult with
// stable key ordering so structurally-identical runs diff as empty.
func loadResultPretty(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var r result.CollectionExecutionResult
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	pretty, err := json.MarshalIndent(&r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

// generateDiff creates a unified diff between two run results with 3
// lines of context.
func generateDiff(nameA, nameB, a, b string) string {
	edits := udiff.Strings(a, b)
	unified, err := udiff.ToUnified("a/"+nameA, "b/"+nameB, a, edits, 3)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n(diff generation failed)\n", nameA, nameB)
	}
	return unified
}
