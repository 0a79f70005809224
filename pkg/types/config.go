// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the completion length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature controls sampling randomness (default 0).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// SearchBackendConfig holds settings for the retrieval backend client.
type SearchBackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the search API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the search API endpoint. Tests point this at an
	// httptest server.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// IncludeAnswer asks the backend for a narrative summary alongside
	// the ranked results (default true).
	IncludeAnswer *bool `json:"include_answer,omitempty" yaml:"include_answer,omitempty"`

	// MaxRetries bounds 429 retries inside the client (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CacheDir, when set, enables the SQLite response cache under this
	// directory.
	CacheDir string `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`

	// CacheTTL is how long cached responses stay valid (default 5 m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// PlannerConfig holds settings for the query planner.
type PlannerConfig struct {
	AIConfig `yaml:",inline"`

	// MaxStages caps the number of stages the planner may emit (default 3).
	MaxStages int `json:"max_stages" yaml:"max_stages"`

	// FallbackMaxResults is the result cap of the degraded single-query
	// plan (default 10).
	FallbackMaxResults int `json:"fallback_max_results" yaml:"fallback_max_results"`
}

// ContinuationConfig holds the evaluator thresholds. The numbers are
// empirically chosen defaults, not fixed law; every one is tunable.
type ContinuationConfig struct {
	// MaxTotalSources stops any conditional stage once reached (default 35).
	MaxTotalSources int `json:"max_total_sources" yaml:"max_total_sources"`

	// MinPerTopic is the coverage floor below which a topic counts as
	// underrepresented (default 5).
	MinPerTopic int `json:"min_per_topic" yaml:"min_per_topic"`

	// DeepeningMinSources keeps a deepening stage running below this
	// volume (default 15).
	DeepeningMinSources int `json:"deepening_min_sources" yaml:"deepening_min_sources"`

	// DeepeningStopSources allows a deepening stage to stop at this volume
	// when quality is also high (default 30).
	DeepeningStopSources int `json:"deepening_stop_sources" yaml:"deepening_stop_sources"`

	// DeepeningMinQuality keeps a deepening stage running below this
	// quality score (default 0.6).
	DeepeningMinQuality float64 `json:"deepening_min_quality" yaml:"deepening_min_quality"`

	// DeepeningStopQuality is the quality bar for the early-stop rule
	// (default 0.7).
	DeepeningStopQuality float64 `json:"deepening_stop_quality" yaml:"deepening_stop_quality"`

	// SpecializationMaxQuality keeps a specialization stage running only
	// below this quality score (default 0.8).
	SpecializationMaxQuality float64 `json:"specialization_max_quality" yaml:"specialization_max_quality"`

	// TargetSourcesPerQuery scales the productivity component of the
	// quality score (default 5).
	TargetSourcesPerQuery int `json:"target_sources_per_query" yaml:"target_sources_per_query"`
}

// ReconcileConfig holds settings for evidence reconciliation.
type ReconcileConfig struct {
	// Limit bounds the final evidence set (default 20).
	Limit int `json:"limit" yaml:"limit"`

	// GuaranteedShare is the fraction of Limit reserved for topic quotas
	// (default 0.7).
	GuaranteedShare float64 `json:"guaranteed_share" yaml:"guaranteed_share"`
}

// SynthesisConfig holds settings for answer synthesis.
type SynthesisConfig struct {
	AIConfig `yaml:",inline"`
}

// EngineConfig groups all component configurations for the pipeline.
type EngineConfig struct {
	Planner      PlannerConfig       `json:"planner" yaml:"planner"`
	Search       SearchBackendConfig `json:"search" yaml:"search"`
	Continuation ContinuationConfig  `json:"continuation" yaml:"continuation"`
	Reconcile    ReconcileConfig     `json:"reconcile" yaml:"reconcile"`
	Synthesis    SynthesisConfig     `json:"synthesis" yaml:"synthesis"`
}
