// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stage executes one planned batch of searches concurrently against
// the retrieval backend. Implements: prd002-stage-execution (R1-R4);
//
//	docs/ARCHITECTURE § Stage Execution.
package stage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Searcher executes a single query against the retrieval backend and returns
// scored sources plus an optional narrative summary.
type Searcher interface {
	Search(ctx context.Context, q types.SearchQuery) ([]types.Source, string, error)
}

// Executor fans a stage's queries out to the backend and gathers the results.
type Executor struct {
	searcher Searcher
	log      *zap.Logger
}

// NewExecutor constructs an Executor. A nil searcher is a setup error — the
// only class of failure Execute itself ever returns.
func NewExecutor(searcher Searcher, log *zap.Logger) (*Executor, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{searcher: searcher, log: log}, nil
}

// queryOutcome is one sub-query's result slot.
type queryOutcome struct {
	sources []types.Source
	summary string
	failed  bool
}

// Execute issues every query in the stage concurrently and waits for all of
// them. A failing sub-query degrades to zero sources for that query — logged,
// never propagated — so a slow or broken query cannot sink the stage.
// Elapsed is wall-clock time for the whole fan-out, not the per-query sum.
func (e *Executor) Execute(ctx context.Context, s types.Stage) (types.StageResult, error) {
	start := time.Now()

	outcomes := make([]queryOutcome, len(s.Queries))
	var wg sync.WaitGroup
	for i, q := range s.Queries {
		wg.Add(1)
		go func(i int, q types.SearchQuery) {
			defer wg.Done()
			sources, summary, err := e.searcher.Search(ctx, q)
			if err != nil {
				e.log.Warn("sub-query failed",
					zap.String("stage", s.Name),
					zap.String("query", q.Text),
					zap.Error(err))
				outcomes[i] = queryOutcome{failed: true}
				return
			}
			// Tag each source with its originating query before results
			// from different queries are mixed.
			for j := range sources {
				sources[j].Topic = q.Topic
				sources[j].Query = q.Text
			}
			outcomes[i] = queryOutcome{sources: sources, summary: summary}
		}(i, q)
	}
	wg.Wait()

	result := types.StageResult{
		Stage:         s,
		QueriesIssued: len(s.Queries),
	}
	var summaries []string
	for _, out := range outcomes {
		if out.failed {
			result.FailedQueries++
			continue
		}
		result.Sources = append(result.Sources, out.sources...)
		result.TotalSources += len(out.sources)
		if strings.TrimSpace(out.summary) != "" {
			summaries = append(summaries, out.summary)
		}
	}
	result.Summary = strings.Join(summaries, "\n")
	result.Elapsed = time.Since(start)

	e.log.Info("stage executed",
		zap.String("stage", s.Name),
		zap.Int("queries", result.QueriesIssued),
		zap.Int("failed", result.FailedQueries),
		zap.Int("sources", result.TotalSources),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}
