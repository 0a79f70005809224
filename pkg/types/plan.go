// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the answer-engine pipeline.
// Implements: prd001-planning (Topic, SearchQuery, Stage, SearchPlan);
//
//	prd002-stage-execution (StageResult);
//	prd004-reconciliation (Source);
//	prd005-synthesis (Credibility, AnswerResult).
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

// SearchDepth selects how thoroughly the retrieval backend explores a query.
type SearchDepth string

const (
	DepthShallow SearchDepth = "shallow"
	DepthDeep    SearchDepth = "deep"
)

// SearchCategory hints at the kind of content a query targets.
type SearchCategory string

const (
	CategoryNews    SearchCategory = "news"
	CategoryGeneral SearchCategory = "general"
)

// ExecutionCondition marks whether a stage always runs or is gated by the
// continuation evaluator.
type ExecutionCondition string

const (
	ConditionMandatory   ExecutionCondition = "mandatory"
	ConditionConditional ExecutionCondition = "conditional"
)

// Topic is a named facet of the user's question. Topics are created once by
// the planner and are immutable afterward; the reconciler uses the weight for
// quota allocation and the evaluator counts tagged sources against the name.
type Topic struct {
	// Name identifies the topic. Stage 2+ queries may only reference names
	// declared here (no new topics after stage 1).
	Name string `json:"name" yaml:"name"`

	// Weight is the relative importance in [0, 1]. Weights need not sum to 1.
	Weight float64 `json:"weight" yaml:"weight"`

	// RequiredInfo lists the kinds of evidence the topic needs
	// (e.g. "facts", "analysis", "examples").
	RequiredInfo []string `json:"required_info,omitempty" yaml:"required_info,omitempty"`
}

// SearchQuery is one unit of search work, consumed exactly once by the
// stage executor.
type SearchQuery struct {
	// Text is the query string sent to the retrieval backend.
	Text string `json:"text" yaml:"text"`

	// Topic names the target topic. Empty for fallback queries.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Language is an optional language hint (e.g. "en", "ja").
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// Depth selects shallow or deep search.
	Depth SearchDepth `json:"depth" yaml:"depth"`

	// MaxResults caps the number of sources returned for this query.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// FreshnessDays restricts results to the last N days when > 0.
	FreshnessDays int `json:"freshness_days,omitempty" yaml:"freshness_days,omitempty"`

	// Category is an optional content-category hint.
	Category SearchCategory `json:"category,omitempty" yaml:"category,omitempty"`
}

// Stage is one planned round of parallel searches.
type Stage struct {
	// Name identifies the stage; the evaluator classifies stages by name
	// (e.g. "broad_coverage", "deepening", "specialization").
	Name string `json:"name" yaml:"name"`

	// Condition marks the stage mandatory or conditional. Stage 1 is
	// always mandatory.
	Condition ExecutionCondition `json:"condition" yaml:"condition"`

	// Queries is the ordered list of searches the stage issues concurrently.
	Queries []SearchQuery `json:"queries" yaml:"queries"`
}

// Mandatory reports whether the stage bypasses the continuation gate.
func (s Stage) Mandatory() bool {
	return s.Condition != ConditionConditional
}

// SearchPlan is the planner's full output: topics, ordered stages, and
// free-text rationale kept for diagnostics only.
type SearchPlan struct {
	Topics []Topic `json:"topics" yaml:"topics"`
	Stages []Stage `json:"stages" yaml:"stages"`

	// Rationale explains the decomposition. Never used programmatically.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	// Fallback is true when the plan is the degraded single-stage plan
	// produced after a planning failure.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// TopicNames returns the declared topic names in plan order.
func (p SearchPlan) TopicNames() []string {
	names := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		names = append(names, t.Name)
	}
	return names
}

// HasTopic reports whether name is declared in the plan's topic list.
func (p SearchPlan) HasTopic(name string) bool {
	for _, t := range p.Topics {
		if t.Name == name {
			return true
		}
	}
	return false
}

// QueryCount returns the total number of queries across all stages.
func (p SearchPlan) QueryCount() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Queries)
	}
	return n
}
