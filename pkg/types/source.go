// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Credibility holds the model-assigned (or heuristic) trust assessment for
// one source. Attached to a Source after synthesis.
type Credibility struct {
	// Score is a value between 0.0 and 1.0.
	Score float64 `json:"score" yaml:"score"`

	// Primary is true for primary sources (official filings, first-party
	// statements), false for secondary coverage.
	Primary bool `json:"primary" yaml:"primary"`

	// Category labels the source kind (e.g. "government", "news", "blog").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Rationale is a one-line justification for the score.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	// Heuristic is true when the assessment came from the URL-pattern
	// estimator rather than the model.
	Heuristic bool `json:"heuristic,omitempty" yaml:"heuristic,omitempty"`
}

// Source is one retrieved evidence item. The stage executor fills the base
// fields; the synthesizer adds the citation number and credibility.
// The URL is the deduplication identity: when two sources share a URL the
// one with the higher relevance score is kept.
type Source struct {
	// URL is the stable identity of the source.
	URL string `json:"url" yaml:"url"`

	// Title is the source title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// Snippet is a content excerpt, truncated by the backend client.
	Snippet string `json:"snippet" yaml:"snippet"`

	// RelevanceScore is the backend-provided score, roughly in [0, 1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Topic is the originating query's target topic (may be empty).
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Query is the originating query text.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// Citation is the 1-based citation number assigned during synthesis;
	// 0 before synthesis.
	Citation int `json:"citation,omitempty" yaml:"citation,omitempty"`

	// Credibility is nil until synthesis annotates the source.
	Credibility *Credibility `json:"credibility,omitempty" yaml:"credibility,omitempty"`
}

// ScoreKey returns the value selection sorts by: the credibility score when
// an assessment exists, the relevance score otherwise.
func (s Source) ScoreKey() float64 {
	if s.Credibility != nil {
		return s.Credibility.Score
	}
	return s.RelevanceScore
}

// StageResult records one executed stage. Immutable once the stage
// completes; results are appended in execution order and never reordered.
type StageResult struct {
	// Stage is the plan stage that was executed.
	Stage Stage `json:"stage" yaml:"stage"`

	// Sources holds every source the stage produced, pre-deduplication.
	Sources []Source `json:"sources" yaml:"sources"`

	// TotalSources is the sum of per-query source counts, kept separate
	// from len(Sources) for diagnostics symmetry with the backend counts.
	TotalSources int `json:"total_sources" yaml:"total_sources"`

	// Summary is the backend's narrative summary, concatenated across the
	// stage's queries. Empty when the backend returned none.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// QueriesIssued is the number of queries the stage sent.
	QueriesIssued int `json:"queries_issued" yaml:"queries_issued"`

	// FailedQueries counts queries that degraded to zero results.
	FailedQueries int `json:"failed_queries,omitempty" yaml:"failed_queries,omitempty"`

	// Elapsed is the wall-clock duration of the whole stage (the queries
	// run in parallel, so this is not the sum of per-query times).
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// RunMetadata is lightweight telemetry about one Answer call.
type RunMetadata struct {
	// RunID uniquely identifies the run in logs.
	RunID string `json:"run_id" yaml:"run_id"`

	// StageCount is the number of stages actually executed.
	StageCount int `json:"stage_count" yaml:"stage_count"`

	// QueriesIssued is the total number of backend queries sent.
	QueriesIssued int `json:"queries_issued" yaml:"queries_issued"`

	// TotalSources is the pre-deduplication source count across stages.
	TotalSources int `json:"total_sources" yaml:"total_sources"`

	// PlanFallback is true when the degraded single-stage plan was used.
	PlanFallback bool `json:"plan_fallback,omitempty" yaml:"plan_fallback,omitempty"`

	// Elapsed is the wall-clock duration of the whole run.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// AnswerResult is the terminal output of the pipeline.
type AnswerResult struct {
	// Question is the original user question.
	Question string `json:"question" yaml:"question"`

	// Answer is the synthesized, cited answer text.
	Answer string `json:"answer" yaml:"answer"`

	// Sources is the reconciled evidence set with citation numbers and
	// credibility annotations.
	Sources []Source `json:"sources" yaml:"sources"`

	// CitationsUsed lists the distinct [n] citation numbers that actually
	// appear in the answer text, ascending. Best-effort diagnostic.
	CitationsUsed []int `json:"citations_used,omitempty" yaml:"citations_used,omitempty"`

	// Metadata carries run telemetry for logging.
	Metadata RunMetadata `json:"metadata" yaml:"metadata"`
}
