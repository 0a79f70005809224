// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates the full pipeline: plan, execute stages behind
// the continuation gate, reconcile, synthesize.
// Implements: prd001-planning through prd005-synthesis (orchestration);
//
//	docs/ARCHITECTURE § Pipeline Interface.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/cache"
	"github.com/pdiddy/answer-engine/internal/evaluate"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/plan"
	"github.com/pdiddy/answer-engine/internal/reconcile"
	"github.com/pdiddy/answer-engine/internal/stage"
	"github.com/pdiddy/answer-engine/internal/synthesize"
	"github.com/pdiddy/answer-engine/internal/tavily"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Engine is the orchestrator entry point. One Engine serves many questions;
// all per-question state lives inside a single Answer call, so no locking is
// needed.
type Engine struct {
	planner     *plan.Planner
	executor    *stage.Executor
	evaluator   *evaluate.Evaluator
	synthesizer *synthesize.Synthesizer
	cfg         types.EngineConfig
	log         *zap.Logger

	store *cache.Store // owned when built by NewFromConfig; nil otherwise
}

// New wires an Engine from injected collaborators. Construction failures are
// the only fatal error class: once New succeeds, Answer always returns a
// result.
func New(cfg types.EngineConfig, completer llm.Completer, searcher stage.Searcher, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	planner, err := plan.NewPlanner(completer, cfg.Planner, log)
	if err != nil {
		return nil, fmt.Errorf("constructing planner: %w", err)
	}
	executor, err := stage.NewExecutor(searcher, log)
	if err != nil {
		return nil, fmt.Errorf("constructing stage executor: %w", err)
	}
	synthesizer, err := synthesize.NewSynthesizer(completer, cfg.Synthesis, log)
	if err != nil {
		return nil, fmt.Errorf("constructing synthesizer: %w", err)
	}

	return &Engine{
		planner:     planner,
		executor:    executor,
		evaluator:   evaluate.NewEvaluator(cfg.Continuation, log),
		synthesizer: synthesizer,
		cfg:         cfg,
		log:         log,
	}, nil
}

// NewFromConfig builds the real collaborators — Claude completion client,
// Tavily client, optional SQLite cache — from configuration. The caller must
// Close the engine when built this way.
func NewFromConfig(cfg types.EngineConfig, log *zap.Logger) (*Engine, error) {
	completer, err := llm.New(cfg.Planner.AIConfig)
	if err != nil {
		return nil, fmt.Errorf("constructing completion client: %w", err)
	}

	var store *cache.Store
	if cfg.Search.CacheDir != "" {
		store, err = cache.NewStore(cfg.Search.CacheDir, cfg.Search.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("constructing search cache: %w", err)
		}
	}

	searcher, err := tavily.NewClient(cfg.Search, store, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("constructing search client: %w", err)
	}

	e, err := New(cfg, completer, searcher, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	e.store = store
	return e, nil
}

// Close releases resources owned by the engine.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Answer runs the full pipeline for one question. Mandatory stages always
// execute; conditional stages pass through the continuation gate, and the
// loop ends at the first gate that says stop. Cancellation is observed at
// stage boundaries: no new stage begins after the context is done. Every
// failure below the constructors degrades — the caller sees either a
// complete result or an empty-question error.
func (e *Engine) Answer(ctx context.Context, question string) (types.AnswerResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.With(zap.String("run_id", runID))

	p, err := e.planner.Plan(ctx, question)
	if err != nil {
		return types.AnswerResult{}, err
	}
	log.Info("plan ready",
		zap.Int("topics", len(p.Topics)),
		zap.Int("stages", len(p.Stages)),
		zap.Bool("fallback", p.Fallback))

	var history []types.StageResult
	for i, st := range p.Stages {
		if ctx.Err() != nil {
			log.Warn("request cancelled, skipping remaining stages", zap.String("stage", st.Name))
			break
		}
		if i > 0 && !st.Mandatory() && !e.evaluator.ShouldContinue(history, p.Topics, st) {
			log.Info("continuation gate stopped the loop", zap.String("stage", st.Name))
			break
		}

		result, err := e.executor.Execute(ctx, st)
		if err != nil {
			return types.AnswerResult{}, fmt.Errorf("executing stage %s: %w", st.Name, err)
		}
		history = append(history, result)
	}

	selected := reconcile.Reconcile(history, p.Topics, e.cfg.Reconcile)

	var summaries []string
	for _, sr := range history {
		if strings.TrimSpace(sr.Summary) != "" {
			summaries = append(summaries, sr.Summary)
		}
	}

	answer, annotated, err := e.synthesizer.Synthesize(ctx, question, selected, summaries)
	if err != nil {
		// The synthesis call is recoverable like every other external
		// call: fall back to the backend summaries and heuristic
		// annotations rather than failing the request.
		log.Warn("synthesis failed, returning degraded answer", zap.Error(err))
		answer = strings.Join(summaries, "\n")
		annotated = synthesize.AnnotateHeuristic(selected)
	}

	queries := 0
	total := 0
	for _, sr := range history {
		queries += sr.QueriesIssued
		total += sr.TotalSources
	}

	result := types.AnswerResult{
		Question:      question,
		Answer:        answer,
		Sources:       annotated,
		CitationsUsed: synthesize.CitationsUsed(answer),
		Metadata: types.RunMetadata{
			RunID:         runID,
			StageCount:    len(history),
			QueriesIssued: queries,
			TotalSources:  total,
			PlanFallback:  p.Fallback,
			Elapsed:       time.Since(start),
		},
	}

	log.Info("answer ready",
		zap.Int("stages", result.Metadata.StageCount),
		zap.Int("queries", result.Metadata.QueriesIssued),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("elapsed", result.Metadata.Elapsed))

	return result, nil
}
