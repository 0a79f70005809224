package reconcile

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func src(url, topic string, score float64) types.Source {
	return types.Source{URL: url, Topic: topic, RelevanceScore: score, Title: url}
}

func historyOf(sources ...types.Source) []types.StageResult {
	return []types.StageResult{{
		Stage:        types.Stage{Name: "broad_coverage"},
		Sources:      sources,
		TotalSources: len(sources),
	}}
}

func TestDeduplicateKeepsHigherScore(t *testing.T) {
	sources := []types.Source{
		src("https://x.example/1", "a", 0.6),
		src("https://x.example/2", "a", 0.5),
		src("https://x.example/1", "a", 0.9),
	}
	deduped := Deduplicate(sources)
	if len(deduped) != 2 {
		t.Fatalf("len = %d, want 2", len(deduped))
	}
	// First-seen position retained, higher-score copy kept.
	if deduped[0].URL != "https://x.example/1" || deduped[0].RelevanceScore != 0.9 {
		t.Errorf("deduped[0] = %+v, want url 1 at score 0.9", deduped[0])
	}
}

func TestDeduplicateKeepsFirstOnEqualScore(t *testing.T) {
	sources := []types.Source{
		{URL: "https://x.example/1", Topic: "a", RelevanceScore: 0.5, Title: "first"},
		{URL: "https://x.example/1", Topic: "b", RelevanceScore: 0.5, Title: "second"},
	}
	deduped := Deduplicate(sources)
	if len(deduped) != 1 || deduped[0].Title != "first" {
		t.Errorf("deduped = %+v, want the first copy", deduped)
	}
}

// Deduplication idempotence: reconciling an already-reconciled set changes
// nothing, including ordering.
func TestReconcileIdempotent(t *testing.T) {
	topics := []types.Topic{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.5}}
	var sources []types.Source
	for i := 0; i < 8; i++ {
		topic := "a"
		if i%2 == 1 {
			topic = "b"
		}
		sources = append(sources, src(fmt.Sprintf("https://e.example/%d", i), topic, 0.9-float64(i)*0.05))
	}

	cfg := types.ReconcileConfig{Limit: 6}
	first := Reconcile(historyOf(sources...), topics, cfg)
	second := Reconcile(historyOf(first...), topics, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass differs:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

// Topic quota conservation: guaranteed allocations sum to at most
// ceil(0.7 * limit) and no topic exceeds that bound alone.
func TestQuotaConservation(t *testing.T) {
	tests := []struct {
		name   string
		topics []types.Topic
		limit  int
	}{
		{"two equal", []types.Topic{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.5}}, 10},
		{"skewed", []types.Topic{{Name: "a", Weight: 0.9}, {Name: "b", Weight: 0.1}}, 20},
		{"many small", []types.Topic{{Name: "a", Weight: 0.2}, {Name: "b", Weight: 0.2}, {Name: "c", Weight: 0.2}, {Name: "d", Weight: 0.2}}, 7},
		{"single", []types.Topic{{Name: "a", Weight: 1.0}}, 20},
		{"weights not summing to 1", []types.Topic{{Name: "a", Weight: 0.8}, {Name: "b", Weight: 0.8}}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := quotas(tt.topics, tt.limit, 0.7)
			bound := int(math.Ceil(0.7 * float64(tt.limit)))
			sum := 0
			for i, q := range qs {
				sum += q
				if q > bound {
					t.Errorf("topic %d quota %d exceeds bound %d", i, q, bound)
				}
			}
			if sum > bound {
				t.Errorf("quota sum %d exceeds bound %d", sum, bound)
			}
		})
	}
}

// The compound-question scenario: limit 10, two topics at 0.5 each, both
// with enough raw sources. Each topic must get at least 3 guaranteed slots.
func TestReconcileBalancesCompoundQuestion(t *testing.T) {
	topics := []types.Topic{
		{Name: "A revenue", Weight: 0.5},
		{Name: "B revenue", Weight: 0.5},
	}

	// Topic A dominates on score; an unbalanced top-K would crowd B out.
	var sources []types.Source
	for i := 0; i < 8; i++ {
		sources = append(sources, src(fmt.Sprintf("https://a.example/%d", i), "A revenue", 0.95-float64(i)*0.01))
	}
	for i := 0; i < 5; i++ {
		sources = append(sources, src(fmt.Sprintf("https://b.example/%d", i), "B revenue", 0.40-float64(i)*0.01))
	}

	got := Reconcile(historyOf(sources...), topics, types.ReconcileConfig{Limit: 10})
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}

	counts := map[string]int{}
	for _, s := range got {
		counts[s.Topic]++
	}
	if counts["A revenue"] < 3 || counts["B revenue"] < 3 {
		t.Errorf("counts = %v, want at least 3 per topic", counts)
	}
}

func TestReconcileFillsRemainderByScore(t *testing.T) {
	topics := []types.Topic{{Name: "a", Weight: 1.0}}
	sources := []types.Source{
		src("https://a.example/1", "a", 0.9),
		src("https://a.example/2", "a", 0.8),
		// Untagged sources compete only for the fill phase.
		src("https://u.example/1", "", 0.99),
		src("https://u.example/2", "", 0.10),
	}

	got := Reconcile(historyOf(sources...), topics, types.ReconcileConfig{Limit: 3})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	urls := map[string]bool{}
	for _, s := range got {
		urls[s.URL] = true
	}
	if !urls["https://u.example/1"] {
		t.Error("highest-scored untagged source should fill the remainder")
	}
	if urls["https://u.example/2"] {
		t.Error("lowest-scored source should be left out")
	}
}

func TestReconcilePrefersCredibilityScore(t *testing.T) {
	topics := []types.Topic{{Name: "a", Weight: 1.0}}
	low := src("https://a.example/low", "a", 0.3)
	low.Credibility = &types.Credibility{Score: 0.95}
	high := src("https://a.example/high", "a", 0.9)
	high.Credibility = &types.Credibility{Score: 0.2}

	got := Reconcile(historyOf(high, low), topics, types.ReconcileConfig{Limit: 1})
	if len(got) != 1 || got[0].URL != "https://a.example/low" {
		t.Errorf("got = %+v, want the credibility-0.95 source first", got)
	}
}

func TestReconcileExhaustedPool(t *testing.T) {
	topics := []types.Topic{{Name: "a", Weight: 1.0}}
	got := Reconcile(historyOf(src("https://a.example/1", "a", 0.9)), topics, types.ReconcileConfig{Limit: 20})
	if len(got) != 1 {
		t.Errorf("len = %d, want 1 (pool exhausted below limit)", len(got))
	}
}

func TestReconcileDeduplicatesAcrossStages(t *testing.T) {
	topics := []types.Topic{{Name: "a", Weight: 1.0}}
	history := []types.StageResult{
		{Sources: []types.Source{src("https://a.example/1", "a", 0.5)}, TotalSources: 1},
		{Sources: []types.Source{src("https://a.example/1", "a", 0.8)}, TotalSources: 1},
	}
	got := Reconcile(history, topics, types.ReconcileConfig{Limit: 5})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].RelevanceScore != 0.8 {
		t.Errorf("score = %f, want the higher copy (0.8)", got[0].RelevanceScore)
	}
}
