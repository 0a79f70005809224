// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize turns the reconciled evidence into a cited answer and
// annotates every source with a credibility assessment.
// Implements: prd005-synthesis (R1-R5);
//
//	docs/ARCHITECTURE § Synthesis.
package synthesize

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// numericCiteRe matches inline citations like [1], [2], [12].
var numericCiteRe = regexp.MustCompile(`\[(\d+)\]`)

// fencedJSONArrayRe matches the first fenced JSON array in a response.
var fencedJSONArrayRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// Synthesizer issues the final completion call and parses its output.
type Synthesizer struct {
	completer llm.Completer
	cfg       types.SynthesisConfig
	log       *zap.Logger
}

// NewSynthesizer constructs a Synthesizer. The completer must not be nil.
func NewSynthesizer(completer llm.Completer, cfg types.SynthesisConfig, log *zap.Logger) (*Synthesizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{completer: completer, cfg: cfg, log: log}, nil
}

// evaluation is one element of the model's credibility JSON array.
type evaluation struct {
	Index     int     `json:"index"`
	Score     float64 `json:"score"`
	Primary   bool    `json:"primary"`
	Category  string  `json:"category"`
	Rationale string  `json:"rationale"`
}

// Synthesize builds the grounding prompt, issues exactly one completion
// call, and returns the answer text plus the sources annotated with citation
// numbers and credibility. Sources the model did not evaluate — or all of
// them, when the evaluation block is missing or unparsable — fall back to
// the URL-pattern heuristic, so every returned source carries an assessment.
// The completion call itself failing is returned as an error; everything
// downstream of a successful call degrades instead of failing.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, sources []types.Source, summaries []string) (string, []types.Source, error) {
	prompt, err := buildPrompt(question, sources, summaries)
	if err != nil {
		return "", nil, fmt.Errorf("building synthesis prompt: %w", err)
	}

	response, err := s.completer.Complete(ctx, prompt, s.cfg.MaxTokens, s.cfg.Temperature)
	if err != nil {
		return "", nil, fmt.Errorf("synthesis completion: %w", err)
	}

	answer := stripEvaluationBlock(response)
	evals, ok := parseEvaluations(response)
	if !ok {
		s.log.Warn("credibility evaluation missing or unparsable, using heuristic estimates")
	}

	annotated := make([]types.Source, len(sources))
	for i, src := range sources {
		src.Citation = i + 1
		if ev, found := evals[i+1]; found && ev.Score >= 0 && ev.Score <= 1 {
			src.Credibility = &types.Credibility{
				Score:     ev.Score,
				Primary:   ev.Primary,
				Category:  ev.Category,
				Rationale: ev.Rationale,
			}
		} else {
			src.Credibility = heuristicCredibility(src.URL)
		}
		annotated[i] = src
	}

	return strings.TrimSpace(answer), annotated, nil
}

// AnnotateHeuristic assigns citation numbers and heuristic credibility to
// every source without any model call. The engine uses it when the synthesis
// completion itself fails, so the degraded result still carries annotated
// evidence.
func AnnotateHeuristic(sources []types.Source) []types.Source {
	annotated := make([]types.Source, len(sources))
	for i, src := range sources {
		src.Citation = i + 1
		src.Credibility = heuristicCredibility(src.URL)
		annotated[i] = src
	}
	return annotated
}

// CitationsUsed scans answer text for literal [n] references and returns the
// distinct indexes in ascending order. Best-effort diagnostic: nothing in
// the pipeline depends on it.
func CitationsUsed(answer string) []int {
	seen := make(map[int]bool)
	for _, match := range numericCiteRe.FindAllStringSubmatch(answer, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			seen[n] = true
		}
	}
	var used []int
	for n := range seen {
		used = append(used, n)
	}
	sort.Ints(used)
	return used
}

// parseEvaluations extracts the first fenced JSON array from the response
// and indexes its elements by citation number. ok is false when no block is
// found or it does not parse; parse failure is never an error because the
// heuristic estimator covers for it.
func parseEvaluations(response string) (map[int]evaluation, bool) {
	match := fencedJSONArrayRe.FindStringSubmatch(response)
	if match == nil {
		return nil, false
	}

	var evals []evaluation
	if err := json.Unmarshal([]byte(match[1]), &evals); err != nil {
		return nil, false
	}

	byIndex := make(map[int]evaluation, len(evals))
	for _, ev := range evals {
		byIndex[ev.Index] = ev
	}
	return byIndex, len(byIndex) > 0
}

// stripEvaluationBlock removes the fenced evaluation array from the answer
// text so callers see prose only. Only the first fenced array goes — the
// same one parseEvaluations reads — so an answer that legitimately quotes a
// later JSON array keeps it.
func stripEvaluationBlock(response string) string {
	loc := fencedJSONArrayRe.FindStringIndex(response)
	if loc == nil {
		return response
	}
	return response[:loc[0]] + response[loc[1]:]
}
