// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate decides whether another search stage is worth running.
// Pure volume thresholds either stop too early on narrow-but-shallow results
// or run needlessly long on broad-but-shallow ones, so the decision combines
// volume, a quality score, and per-topic coverage in a fixed rule order.
// Implements: prd003-continuation (R1-R4);
//
//	docs/ARCHITECTURE § Continuation.
package evaluate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// stageKind classifies a stage by name for the rule table.
type stageKind int

const (
	kindOther stageKind = iota
	kindDeepening
	kindSpecialization
)

// Evaluator gates conditional stages. All thresholds come from the
// configuration; the zero value of each field falls back to the defaults.
type Evaluator struct {
	cfg types.ContinuationConfig
	log *zap.Logger
}

// NewEvaluator constructs an Evaluator, filling unset thresholds with the
// defaults (35 total sources, 5 per topic, 15/30 deepening volume bounds,
// 0.6/0.7/0.8 quality bounds, 5 target sources per query).
func NewEvaluator(cfg types.ContinuationConfig, log *zap.Logger) *Evaluator {
	if cfg.MaxTotalSources <= 0 {
		cfg.MaxTotalSources = 35
	}
	if cfg.MinPerTopic <= 0 {
		cfg.MinPerTopic = 5
	}
	if cfg.DeepeningMinSources <= 0 {
		cfg.DeepeningMinSources = 15
	}
	if cfg.DeepeningStopSources <= 0 {
		cfg.DeepeningStopSources = 30
	}
	if cfg.DeepeningMinQuality <= 0 {
		cfg.DeepeningMinQuality = 0.6
	}
	if cfg.DeepeningStopQuality <= 0 {
		cfg.DeepeningStopQuality = 0.7
	}
	if cfg.SpecializationMaxQuality <= 0 {
		cfg.SpecializationMaxQuality = 0.8
	}
	if cfg.TargetSourcesPerQuery <= 0 {
		cfg.TargetSourcesPerQuery = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{cfg: cfg, log: log}
}

// ShouldContinue reports whether nextStage should run, given the accumulated
// stage history and the plan's topic list. It is called only for conditional
// stages; mandatory stages never pass through this gate.
//
// Rules, in order: an empty history of sources always continues; hitting the
// total-source ceiling always stops; an underrepresented topic continues
// (coverage balance outranks the weaker signals once the extremes are
// excluded); then the per-kind volume/quality rules; unclassified stages
// stop by default.
func (e *Evaluator) ShouldContinue(history []types.StageResult, topics []types.Topic, nextStage types.Stage) bool {
	total := totalSources(history)

	if total == 0 {
		e.log.Debug("continuing: no sources yet", zap.String("next_stage", nextStage.Name))
		return true
	}
	if total >= e.cfg.MaxTotalSources {
		e.log.Debug("stopping: source ceiling reached",
			zap.Int("total", total), zap.Int("ceiling", e.cfg.MaxTotalSources))
		return false
	}
	if topic, count, under := underrepresented(history, topics, e.cfg.MinPerTopic); under {
		e.log.Debug("continuing: topic underrepresented",
			zap.String("topic", topic), zap.Int("count", count), zap.Int("floor", e.cfg.MinPerTopic))
		return true
	}

	quality := e.qualityScore(history)

	switch classifyStage(nextStage.Name) {
	case kindDeepening:
		if total < e.cfg.DeepeningMinSources || quality < e.cfg.DeepeningMinQuality {
			return true
		}
		return false
	case kindSpecialization:
		return quality < e.cfg.SpecializationMaxQuality
	default:
		return false
	}
}

// qualityScore combines three signals into a [0, 1] score: whether any stage
// produced a narrative summary (0.3), whether more than one query was
// productive (0.3, rewards diversity), and average sources per query scaled
// against the target (0.4).
func (e *Evaluator) qualityScore(history []types.StageResult) float64 {
	var score float64

	for _, sr := range history {
		if strings.TrimSpace(sr.Summary) != "" {
			score += 0.3
			break
		}
	}

	if productiveQueries(history) > 1 {
		score += 0.3
	}

	total := totalSources(history)
	queries := 0
	for _, sr := range history {
		queries += sr.QueriesIssued
	}
	if queries > 0 {
		avg := float64(total) / float64(queries)
		ratio := avg / float64(e.cfg.TargetSourcesPerQuery)
		if ratio > 1 {
			ratio = 1
		}
		score += 0.4 * ratio
	}

	return score
}

// totalSources sums the pre-deduplication source counts across the history.
func totalSources(history []types.StageResult) int {
	total := 0
	for _, sr := range history {
		total += sr.TotalSources
	}
	return total
}

// productiveQueries counts issued queries that produced at least one source.
// The same query text reissued in a later stage is a separate query, so the
// key carries the stage index.
func productiveQueries(history []types.StageResult) int {
	type issued struct {
		stage int
		query string
	}
	seen := make(map[issued]bool)
	for i, sr := range history {
		for _, src := range sr.Sources {
			seen[issued{i, src.Query}] = true
		}
	}
	return len(seen)
}

// underrepresented returns the first declared topic whose tagged source
// count across the history is below floor.
func underrepresented(history []types.StageResult, topics []types.Topic, floor int) (string, int, bool) {
	counts := make(map[string]int)
	for _, sr := range history {
		for _, src := range sr.Sources {
			if src.Topic != "" {
				counts[src.Topic]++
			}
		}
	}
	for _, t := range topics {
		if counts[t.Name] < floor {
			return t.Name, counts[t.Name], true
		}
	}
	return "", 0, false
}

// classifyStage maps a stage name onto the rule table. Names follow the
// planner's vocabulary: "deepening" stages deepen already-covered topics,
// "specialization" stages (third or later) chase narrow gaps.
func classifyStage(name string) stageKind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "deep"):
		return kindDeepening
	case strings.Contains(lower, "special"):
		return kindSpecialization
	default:
		return kindOther
	}
}
