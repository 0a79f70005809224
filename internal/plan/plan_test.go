package plan

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// stubCompleter returns a canned response or error.
type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, _ string, _ int, _ float64) (string, error) {
	s.calls++
	return s.response, s.err
}

const validPlanJSON = `{
  "rationale": "two revenue topics",
  "topics": [
    {"name": "A revenue", "weight": 0.5, "required_info": ["facts"]},
    {"name": "B revenue", "weight": 0.5, "required_info": ["facts"]}
  ],
  "stages": [
    {"name": "broad_coverage", "condition": "mandatory", "queries": [
      {"text": "A Q1 revenue", "topic": "A revenue", "depth": "deep", "max_results": 5},
      {"text": "B Q1 revenue", "topic": "B revenue", "depth": "deep", "max_results": 5}
    ]},
    {"name": "deepening", "condition": "conditional", "queries": [
      {"text": "A Q1 earnings report", "topic": "A revenue", "depth": "deep", "max_results": 5}
    ]}
  ]
}`

func newTestPlanner(t *testing.T, c *stubCompleter) *Planner {
	t.Helper()
	p, err := NewPlanner(c, types.PlannerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewPlanner() = %v", err)
	}
	return p
}

func TestPlanParsesValidResponse(t *testing.T) {
	p := newTestPlanner(t, &stubCompleter{response: validPlanJSON})

	got, err := p.Plan(context.Background(), "Compare A's Q1 revenue and B's Q1 revenue")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if got.Fallback {
		t.Error("valid response should not produce the fallback plan")
	}
	if len(got.Topics) != 2 {
		t.Fatalf("len(Topics) = %d, want 2", len(got.Topics))
	}
	if len(got.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(got.Stages))
	}
	if !got.Stages[0].Mandatory() {
		t.Error("stage 1 must be mandatory")
	}
	if len(got.Stages[0].Queries) < 2 {
		t.Errorf("stage 1 queries = %d, want >= 2 (one per topic)", len(got.Stages[0].Queries))
	}
}

func TestPlanEmptyQuestion(t *testing.T) {
	p := newTestPlanner(t, &stubCompleter{response: validPlanJSON})
	if _, err := p.Plan(context.Background(), "   "); err == nil {
		t.Fatal("Plan() with empty question should fail")
	}
}

// Plan totality: for any completion outcome the planner returns a usable
// plan with at least one topic and one mandatory first stage.
func TestPlanTotality(t *testing.T) {
	tests := []struct {
		name string
		stub *stubCompleter
	}{
		{"completion error", &stubCompleter{err: fmt.Errorf("boom")}},
		{"garbage text", &stubCompleter{response: "I could not plan this, sorry."}},
		{"truncated json", &stubCompleter{response: `{"topics": [{"name": "x"`}},
		{"empty topics", &stubCompleter{response: `{"topics": [], "stages": [{"name": "s", "queries": [{"text": "q"}]}]}`}},
		{"empty stages", &stubCompleter{response: `{"topics": [{"name": "x", "weight": 1}], "stages": []}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlanner(t, tt.stub)
			got, err := p.Plan(context.Background(), "any question")
			if err != nil {
				t.Fatalf("Plan() = %v, degraded path must not fail", err)
			}
			if !got.Fallback {
				t.Error("expected the fallback plan")
			}
			if len(got.Topics) != 1 || got.Topics[0].Weight != 1.0 {
				t.Errorf("fallback topics = %+v, want one topic of weight 1.0", got.Topics)
			}
			if len(got.Stages) != 1 || !got.Stages[0].Mandatory() {
				t.Errorf("fallback stages = %+v, want one mandatory stage", got.Stages)
			}
			q := got.Stages[0].Queries[0]
			if q.Text != "any question" || q.Depth != types.DepthDeep {
				t.Errorf("fallback query = %+v, want the raw question at deep depth", q)
			}
			if tt.stub.calls != 1 {
				t.Errorf("completion calls = %d, want 1 (no retries)", tt.stub.calls)
			}
		})
	}
}

func TestNormalizeClearsUndeclaredTopics(t *testing.T) {
	resp := `{
	  "topics": [{"name": "known", "weight": 1.0}],
	  "stages": [
	    {"name": "broad_coverage", "queries": [{"text": "q1", "topic": "known"}]},
	    {"name": "deepening", "condition": "conditional", "queries": [{"text": "q2", "topic": "invented later"}]}
	  ]
	}`
	p := newTestPlanner(t, &stubCompleter{response: resp})

	got, err := p.Plan(context.Background(), "question")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if got.Stages[1].Queries[0].Topic != "" {
		t.Errorf("undeclared topic should be cleared, got %q", got.Stages[1].Queries[0].Topic)
	}
}

func TestNormalizeForcesFirstStageMandatory(t *testing.T) {
	resp := `{
	  "topics": [{"name": "t", "weight": 0.8}],
	  "stages": [{"name": "broad_coverage", "condition": "conditional", "queries": [{"text": "q"}]}]
	}`
	p := newTestPlanner(t, &stubCompleter{response: resp})

	got, err := p.Plan(context.Background(), "question")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if !got.Stages[0].Mandatory() {
		t.Error("stage 1 must be forced mandatory")
	}
}

func TestNormalizeCapsStagesAndClampsWeights(t *testing.T) {
	resp := `{
	  "topics": [{"name": "t", "weight": 3.5}, {"name": "u", "weight": -1}],
	  "stages": [
	    {"name": "s1", "queries": [{"text": "q1"}]},
	    {"name": "s2", "condition": "conditional", "queries": [{"text": "q2"}]},
	    {"name": "s3", "condition": "conditional", "queries": [{"text": "q3"}]},
	    {"name": "s4", "condition": "conditional", "queries": [{"text": "q4"}]}
	  ]
	}`
	p := newTestPlanner(t, &stubCompleter{response: resp})

	got, err := p.Plan(context.Background(), "question")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if len(got.Stages) != 3 {
		t.Errorf("len(Stages) = %d, want 3 (capped)", len(got.Stages))
	}
	for _, topic := range got.Topics {
		if topic.Weight <= 0 || topic.Weight > 1 {
			t.Errorf("topic %q weight = %f, want (0, 1]", topic.Name, topic.Weight)
		}
	}
}

func TestParseSearchPlanFenced(t *testing.T) {
	raw := "Here is the plan:\n```json\n" + validPlanJSON + "\n```\nLet me know."
	got, ok := ParseSearchPlan(raw)
	if !ok {
		t.Fatal("ParseSearchPlan() failed on fenced JSON")
	}
	if len(got.Topics) != 2 {
		t.Errorf("len(Topics) = %d, want 2", len(got.Topics))
	}
}

func TestParseSearchPlanProseWrapped(t *testing.T) {
	raw := "Sure! " + validPlanJSON + " Hope that helps."
	if _, ok := ParseSearchPlan(raw); !ok {
		t.Fatal("ParseSearchPlan() failed on prose-wrapped JSON")
	}
}

func TestParseSearchPlanGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{unbalanced"} {
		if _, ok := ParseSearchPlan(raw); ok {
			t.Errorf("ParseSearchPlan(%q) = ok, want failure", raw)
		}
	}
}

func TestPlanFileRoundTrip(t *testing.T) {
	p := newTestPlanner(t, &stubCompleter{response: validPlanJSON})
	original, err := p.Plan(context.Background(), "compare revenues")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := WritePlanFile(path, "compare revenues", original); err != nil {
		t.Fatalf("WritePlanFile() = %v", err)
	}

	pf, err := ReadPlanFile(path)
	if err != nil {
		t.Fatalf("ReadPlanFile() = %v", err)
	}
	if pf.Question != "compare revenues" {
		t.Errorf("Question = %q", pf.Question)
	}
	if len(pf.Plan.Topics) != len(original.Topics) || len(pf.Plan.Stages) != len(original.Stages) {
		t.Error("round-tripped plan lost topics or stages")
	}
}
