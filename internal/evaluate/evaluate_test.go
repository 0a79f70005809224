package evaluate

import (
	"fmt"
	"testing"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// historyWith builds a one-stage history with n sources spread evenly over
// the given topics, issued by distinct queries, with an optional summary.
func historyWith(n int, topicNames []string, queries int, summary string) []types.StageResult {
	sr := types.StageResult{
		Stage:         types.Stage{Name: "broad_coverage"},
		TotalSources:  n,
		QueriesIssued: queries,
		Summary:       summary,
	}
	for i := 0; i < n; i++ {
		topic := ""
		if len(topicNames) > 0 {
			topic = topicNames[i%len(topicNames)]
		}
		sr.Sources = append(sr.Sources, types.Source{
			URL:   fmt.Sprintf("https://example.com/%d", i),
			Topic: topic,
			Query: fmt.Sprintf("query-%d", i%queries),
		})
	}
	return []types.StageResult{sr}
}

func topics(names ...string) []types.Topic {
	var ts []types.Topic
	for _, n := range names {
		ts = append(ts, types.Topic{Name: n, Weight: 1.0 / float64(len(names))})
	}
	return ts
}

func deepening() types.Stage {
	return types.Stage{Name: "deepening", Condition: types.ConditionConditional}
}

func specialization() types.Stage {
	return types.Stage{Name: "specialization", Condition: types.ConditionConditional}
}

func TestContinueWhenNoSources(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	history := []types.StageResult{{Stage: types.Stage{Name: "broad_coverage"}, QueriesIssued: 2}}
	if !e.ShouldContinue(history, topics("a"), deepening()) {
		t.Error("zero sources must continue")
	}
}

// Continuation monotonicity: at the ceiling the evaluator stops regardless
// of quality; one below the ceiling the other rules apply.
func TestStopAtSourceCeiling(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	ts := topics("a")

	// 35 sources on one topic, terrible quality (1 query, no summary):
	// ceiling wins anyway.
	at := historyWith(35, []string{"a"}, 1, "")
	if e.ShouldContinue(at, ts, deepening()) {
		t.Error("35 sources must stop regardless of quality")
	}

	// 34 sources: ceiling not reached; coverage is satisfied, so the
	// deepening rules decide — and low quality continues.
	below := historyWith(34, []string{"a"}, 34, "")
	if !e.ShouldContinue(below, ts, deepening()) {
		t.Error("34 low-quality sources should continue deepening")
	}
}

func TestCoverageOverridesQuality(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	// 20 sources, all tagged "a"; topic "b" has zero coverage. High
	// quality signals would otherwise stop, but coverage wins.
	history := historyWith(20, []string{"a"}, 4, "good summary")
	if !e.ShouldContinue(history, topics("a", "b"), deepening()) {
		t.Error("underrepresented topic must continue")
	}
}

func TestDeepeningRules(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	ts := topics("a")

	tests := []struct {
		name    string
		history []types.StageResult
		want    bool
	}{
		// 10 sources < 15 floor → continue even with decent quality.
		{"below volume floor", historyWith(10, []string{"a"}, 2, "summary"), true},
		// 20 sources, quality high (summary + diverse queries + 5/query).
		{"high quality mid volume", historyWith(20, []string{"a"}, 4, "summary"), false},
		// 20 sources, weak quality (one query, no summary) → continue.
		{"low quality mid volume", historyWith(20, []string{"a"}, 20, ""), true},
		// 32 sources, strong quality → stop.
		{"high quality high volume", historyWith(32, []string{"a"}, 6, "summary"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ShouldContinue(tt.history, ts, deepening()); got != tt.want {
				t.Errorf("ShouldContinue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpecializationRules(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	ts := topics("a")

	// Quality below 0.8 with room under the ceiling → continue.
	weak := historyWith(20, []string{"a"}, 20, "")
	if !e.ShouldContinue(weak, ts, specialization()) {
		t.Error("weak quality should continue specialization")
	}

	// Summary (0.3) + diversity (0.3) + full productivity (0.4) = 1.0 → stop.
	strong := historyWith(30, []string{"a"}, 6, "summary")
	if e.ShouldContinue(strong, ts, specialization()) {
		t.Error("strong quality should stop specialization")
	}
}

func TestUnclassifiedStageStops(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	history := historyWith(10, []string{"a"}, 10, "")
	next := types.Stage{Name: "mystery_stage", Condition: types.ConditionConditional}
	if e.ShouldContinue(history, topics("a"), next) {
		t.Error("unclassified stages are conservative and stop")
	}
}

func TestQualityScoreComponents(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{}, nil)

	tests := []struct {
		name    string
		history []types.StageResult
		want    float64
	}{
		// One query, no summary, 5 sources/query: only the 0.4 component.
		{"productivity only", historyWith(5, []string{"a"}, 1, ""), 0.4},
		// Two productive queries, no summary, 5/query: 0.3 + 0.4.
		{"diversity and productivity", historyWith(10, []string{"a"}, 2, ""), 0.7},
		// Everything: 0.3 + 0.3 + 0.4.
		{"all signals", historyWith(10, []string{"a"}, 2, "summary"), 1.0},
		// 1 source over 1 query: 0.4 * (1/5) = 0.08.
		{"scaled productivity", historyWith(1, []string{"a"}, 1, ""), 0.08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.qualityScore(tt.history)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("qualityScore() = %f, want %f", got, tt.want)
			}
		})
	}
}

// A query reissued in a later stage is its own productive query: two stages
// running the identical text with sources each contribute to the diversity
// signal.
func TestProductiveQueriesAcrossStages(t *testing.T) {
	stage := func(name string) types.StageResult {
		return types.StageResult{
			Stage:         types.Stage{Name: name},
			TotalSources:  5,
			QueriesIssued: 1,
			Sources: []types.Source{
				{URL: "https://example.com/" + name, Query: "repeated query"},
			},
		}
	}
	history := []types.StageResult{stage("broad_coverage"), stage("deepening")}

	if got := productiveQueries(history); got != 2 {
		t.Errorf("productiveQueries() = %d, want 2 (one per stage)", got)
	}

	// With two productive queries the diversity component applies:
	// 0.3 + 0.4*(10/2/5) = 0.7.
	e := NewEvaluator(types.ContinuationConfig{}, nil)
	if got := e.qualityScore(history); got < 0.7-1e-9 || got > 0.7+1e-9 {
		t.Errorf("qualityScore() = %f, want 0.7", got)
	}
}

func TestClassifyStage(t *testing.T) {
	tests := []struct {
		name string
		want stageKind
	}{
		{"deepening", kindDeepening},
		{"deep_dive", kindDeepening},
		{"specialization", kindSpecialization},
		{"broad_coverage", kindOther},
		{"stage_2", kindOther},
	}
	for _, tt := range tests {
		if got := classifyStage(tt.name); got != tt.want {
			t.Errorf("classifyStage(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestThresholdOverrides(t *testing.T) {
	e := NewEvaluator(types.ContinuationConfig{MaxTotalSources: 10}, nil)
	history := historyWith(10, []string{"a"}, 2, "")
	if e.ShouldContinue(history, topics("a"), deepening()) {
		t.Error("custom ceiling of 10 should stop at 10 sources")
	}
}
