// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan [question]",
	Short: "Run the query planner and print the staged search plan",
	Long: `Plan decomposes the question into topics and staged search queries
without executing any search. The plan prints as YAML, or writes to a file
with --output for later inspection.

Requires the anthropic-api-key secret (or the matching config entry).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	cfg := engineConfig()

	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	completer, err := llm.New(cfg.Planner.AIConfig)
	if err != nil {
		return err
	}
	planner, err := plan.NewPlanner(completer, cfg.Planner, log)
	if err != nil {
		return err
	}

	p, err := planner.Plan(cmd.Context(), question)
	if err != nil {
		return err
	}
	if p.Fallback {
		fmt.Fprintln(os.Stderr, "Planning degraded: using the single-query fallback plan")
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := plan.WritePlanFile(output, question, p); err != nil {
			return err
		}
		fmt.Printf("Plan written to %s\n", output)
		return nil
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	os.Stdout.Write(data)
	return nil
}

func init() {
	planCmd.Flags().String("output", "", "write the plan to a YAML file instead of stdout")
	planCmd.Flags().Bool("verbose", false, "log planner progress to stderr")

	rootCmd.AddCommand(planCmd)
}
