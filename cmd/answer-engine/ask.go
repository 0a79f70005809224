// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/engine"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question through the full retrieval pipeline",
	Long: `Ask plans a staged search for the question, executes the stages until
the continuation evaluator decides the evidence is sufficient, reconciles the
results into a balanced evidence set, and synthesizes a cited answer.

Requires the anthropic-api-key and tavily-api-key secrets (or the matching
config entries).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg := engineConfig()
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.Reconcile.Limit = limit
	}

	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	e, err := engine.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.Answer(cmd.Context(), question)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	formatAnswer(os.Stdout, result)
	return nil
}

func formatAnswer(w io.Writer, result types.AnswerResult) {
	fmt.Fprintln(w, result.Answer)
	fmt.Fprintln(w)

	if len(result.Sources) > 0 {
		fmt.Fprintln(w, "Sources:")
		for _, src := range result.Sources {
			score := "-"
			category := "-"
			if src.Credibility != nil {
				score = fmt.Sprintf("%.2f", src.Credibility.Score)
				category = src.Credibility.Category
			}
			fmt.Fprintf(w, "  [%d] %-4s  %-10s  %s\n        %s\n",
				src.Citation, score, category, truncate(src.Title, 60), src.URL)
		}
		fmt.Fprintln(w)
	}

	m := result.Metadata
	fmt.Fprintf(w, "%d stage(s), %d queries, %d sources found, %d cited, %s",
		m.StageCount, m.QueriesIssued, m.TotalSources, len(result.CitationsUsed),
		m.Elapsed.Round(time.Millisecond))
	if m.PlanFallback {
		fmt.Fprint(w, " (fallback plan)")
	}
	fmt.Fprintln(w)
}

// truncate shortens s to at most max characters with an ellipsis. The cut
// counts runes so multibyte titles keep their final character intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func init() {
	askCmd.Flags().Int("limit", 0, "maximum sources in the final evidence set (0 = config default)")
	askCmd.Flags().Bool("json", false, "output the full result as JSON")
	askCmd.Flags().Bool("verbose", false, "log pipeline progress to stderr")

	rootCmd.AddCommand(askCmd)
}
