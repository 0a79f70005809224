// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan decomposes a question into weighted topics and staged search
// batches. Implements: prd001-planning (R1-R5);
//
//	docs/ARCHITECTURE § Query Planning.
package plan

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	defaultMaxStages          = 3
	defaultFallbackMaxResults = 10
)

// StageBroadCoverage, StageDeepening, and StageSpecialization are the stage
// names the planning prompt mandates; the continuation evaluator classifies
// stages by these names.
const (
	StageBroadCoverage  = "broad_coverage"
	StageDeepening      = "deepening"
	StageSpecialization = "specialization"
)

// Planner produces a SearchPlan from a raw question with one completion call.
type Planner struct {
	completer llm.Completer
	cfg       types.PlannerConfig
	log       *zap.Logger
}

// NewPlanner constructs a Planner. The completer must not be nil.
func NewPlanner(completer llm.Completer, cfg types.PlannerConfig, log *zap.Logger) (*Planner, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxStages <= 0 {
		cfg.MaxStages = defaultMaxStages
	}
	if cfg.FallbackMaxResults <= 0 {
		cfg.FallbackMaxResults = defaultFallbackMaxResults
	}
	return &Planner{completer: completer, cfg: cfg, log: log}, nil
}

// Plan issues one planning completion and returns a normalized SearchPlan.
// A failed or unparsable completion degrades to the single-stage fallback
// plan; the only error is an empty question. There are no retries — a
// transient planner failure costs one broad search, not the whole request.
func (p *Planner) Plan(ctx context.Context, question string) (types.SearchPlan, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return types.SearchPlan{}, fmt.Errorf("question is empty")
	}

	prompt, err := renderPlanningPrompt(question, p.cfg.MaxStages)
	if err != nil {
		p.log.Warn("rendering planning prompt failed", zap.Error(err))
		return p.fallbackPlan(question), nil
	}

	raw, err := p.completer.Complete(ctx, prompt, p.cfg.MaxTokens, p.cfg.Temperature)
	if err != nil {
		p.log.Warn("planning completion failed, using fallback plan", zap.Error(err))
		return p.fallbackPlan(question), nil
	}

	parsed, ok := ParseSearchPlan(raw)
	if !ok {
		p.log.Warn("planning response unparsable, using fallback plan")
		return p.fallbackPlan(question), nil
	}

	normalized, ok := p.normalize(parsed)
	if !ok {
		p.log.Warn("planning response invalid after normalization, using fallback plan")
		return p.fallbackPlan(question), nil
	}
	return normalized, nil
}

// fallbackPlan is the terminal error-recovery path: one topic of weight 1.0
// and one mandatory deep query equal to the raw question. It never fails.
func (p *Planner) fallbackPlan(question string) types.SearchPlan {
	topic := types.Topic{Name: "general", Weight: 1.0, RequiredInfo: []string{"facts"}}
	return types.SearchPlan{
		Topics: []types.Topic{topic},
		Stages: []types.Stage{{
			Name:      StageBroadCoverage,
			Condition: types.ConditionMandatory,
			Queries: []types.SearchQuery{{
				Text:       question,
				Topic:      topic.Name,
				Depth:      types.DepthDeep,
				MaxResults: p.cfg.FallbackMaxResults,
			}},
		}},
		Rationale: "fallback: planning unavailable, searching the raw question",
		Fallback:  true,
	}
}

// normalize enforces the plan invariants: clamped weights, a mandatory first
// stage, the stage cap, non-empty queries, and no topics invented after
// stage 1. Queries in later stages that reference an undeclared topic are
// flagged and left untargeted rather than silently dropped, so their sources
// still count toward volume even though no topic quota claims them.
func (p *Planner) normalize(in types.SearchPlan) (types.SearchPlan, bool) {
	out := types.SearchPlan{Rationale: in.Rationale}

	seen := make(map[string]bool)
	for _, t := range in.Topics {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		if t.Weight <= 0 || t.Weight > 1 {
			t.Weight = clampWeight(t.Weight)
		}
		out.Topics = append(out.Topics, t)
	}
	if len(out.Topics) == 0 {
		return types.SearchPlan{}, false
	}

	for i, s := range in.Stages {
		if i >= p.cfg.MaxStages {
			p.log.Warn("dropping excess stage", zap.String("stage", s.Name))
			break
		}

		var queries []types.SearchQuery
		for _, q := range s.Queries {
			q.Text = strings.TrimSpace(q.Text)
			if q.Text == "" {
				continue
			}
			if q.Topic != "" && !out.HasTopic(q.Topic) {
				// Stage 2+ may not invent topics; coverage accounting
				// depends on every tagged source matching a declared topic.
				p.log.Warn("query references undeclared topic",
					zap.String("stage", s.Name),
					zap.String("topic", q.Topic),
					zap.String("query", q.Text))
				q.Topic = ""
			}
			if q.Depth != types.DepthShallow && q.Depth != types.DepthDeep {
				q.Depth = types.DepthDeep
			}
			if q.MaxResults <= 0 {
				q.MaxResults = 5
			}
			queries = append(queries, q)
		}
		if len(queries) == 0 {
			continue
		}

		condition := s.Condition
		if len(out.Stages) == 0 {
			condition = types.ConditionMandatory
		} else if condition != types.ConditionMandatory {
			condition = types.ConditionConditional
		}

		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = fmt.Sprintf("stage_%d", len(out.Stages)+1)
		}

		out.Stages = append(out.Stages, types.Stage{
			Name:      name,
			Condition: condition,
			Queries:   queries,
		})
	}
	if len(out.Stages) == 0 {
		return types.SearchPlan{}, false
	}
	return out, true
}

// clampWeight forces a weight into (0, 1].
func clampWeight(w float64) float64 {
	if w > 1 {
		return 1
	}
	return 0.1
}
