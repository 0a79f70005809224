// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// engineConfig assembles the pipeline configuration from the config file,
// environment, and loaded secrets. API keys resolve config-file values first,
// then .secrets/ entries (anthropic-api-key, tavily-api-key).
func engineConfig() types.EngineConfig {
	ai := types.AIConfig{
		Model:       viper.GetString("ai.model"),
		APIKey:      secretDefault("anthropic-api-key", viper.GetString("ai.api_key")),
		MaxTokens:   viper.GetInt("ai.max_tokens"),
		Temperature: viper.GetFloat64("ai.temperature"),
	}

	cacheTTL, _ := time.ParseDuration(viper.GetString("search.cache_ttl"))

	return types.EngineConfig{
		Planner: types.PlannerConfig{
			AIConfig:           ai,
			MaxStages:          viper.GetInt("planner.max_stages"),
			FallbackMaxResults: viper.GetInt("planner.fallback_max_results"),
		},
		Search: types.SearchBackendConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: "answer-engine/" + version,
			},
			APIKey:     secretDefault("tavily-api-key", viper.GetString("search.api_key")),
			BaseURL:    viper.GetString("search.base_url"),
			MaxRetries: viper.GetInt("search.max_retries"),
			CacheDir:   viper.GetString("search.cache_dir"),
			CacheTTL:   cacheTTL,
		},
		Continuation: types.ContinuationConfig{
			MaxTotalSources:          viper.GetInt("continuation.max_total_sources"),
			MinPerTopic:              viper.GetInt("continuation.min_per_topic"),
			DeepeningMinSources:      viper.GetInt("continuation.deepening_min_sources"),
			DeepeningStopSources:     viper.GetInt("continuation.deepening_stop_sources"),
			DeepeningMinQuality:      viper.GetFloat64("continuation.deepening_min_quality"),
			DeepeningStopQuality:     viper.GetFloat64("continuation.deepening_stop_quality"),
			SpecializationMaxQuality: viper.GetFloat64("continuation.specialization_max_quality"),
			TargetSourcesPerQuery:    viper.GetInt("continuation.target_sources_per_query"),
		},
		Reconcile: types.ReconcileConfig{
			Limit:           viper.GetInt("reconcile.limit"),
			GuaranteedShare: viper.GetFloat64("reconcile.guaranteed_share"),
		},
		Synthesis: types.SynthesisConfig{AIConfig: ai},
	}
}
