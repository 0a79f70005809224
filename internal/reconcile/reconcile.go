// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile merges all stages' sources into the final evidence set:
// deduplication by URL, then topic-quota-bounded selection. A pure
// top-K-by-score cut would starve topics whose backend scores run
// systematically low (niche or non-English sources), so a share of the
// budget is reserved per topic in proportion to its weight.
// Implements: prd004-reconciliation (R1-R3);
//
//	docs/ARCHITECTURE § Reconciliation.
package reconcile

import (
	"math"
	"sort"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	defaultLimit           = 20
	defaultGuaranteedShare = 0.7
)

// Reconcile deduplicates the history's sources and selects a topic-balanced
// set of at most cfg.Limit sources. Guaranteed slots (70% of the limit by
// default) are split across topics by declared weight; the remainder is
// filled by score regardless of topic.
func Reconcile(history []types.StageResult, topics []types.Topic, cfg types.ReconcileConfig) []types.Source {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	share := cfg.GuaranteedShare
	if share <= 0 || share > 1 {
		share = defaultGuaranteedShare
	}

	var all []types.Source
	for _, sr := range history {
		all = append(all, sr.Sources...)
	}
	pool := Deduplicate(all)

	selected := make([]types.Source, 0, limit)
	taken := make(map[string]bool)

	// Phase 1: guaranteed topic quotas.
	for i, quota := range quotas(topics, limit, share) {
		if quota == 0 {
			continue
		}
		candidates := filterByTopic(pool, topics[i].Name, taken)
		sortByScore(candidates)
		for _, src := range candidates {
			if quota == 0 || len(selected) >= limit {
				break
			}
			selected = append(selected, src)
			taken[src.URL] = true
			quota--
		}
	}

	// Phase 2: fill the remaining budget by score, topic-blind.
	if len(selected) < limit {
		var rest []types.Source
		for _, src := range pool {
			if !taken[src.URL] {
				rest = append(rest, src)
			}
		}
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].RelevanceScore > rest[j].RelevanceScore
		})
		for _, src := range rest {
			if len(selected) >= limit {
				break
			}
			selected = append(selected, src)
			taken[src.URL] = true
		}
	}

	return selected
}

// Deduplicate keeps one source per URL, preserving first-seen order. When a
// URL repeats, the copy with the higher relevance score wins.
func Deduplicate(sources []types.Source) []types.Source {
	seen := make(map[string]int) // URL → index in deduped
	var deduped []types.Source

	for _, src := range sources {
		if idx, ok := seen[src.URL]; ok {
			if src.RelevanceScore > deduped[idx].RelevanceScore {
				deduped[idx] = src
			}
			continue
		}
		seen[src.URL] = len(deduped)
		deduped = append(deduped, src)
	}
	return deduped
}

// quotas splits the guaranteed slot pool (share of limit, rounded up) across
// topics in proportion to declared weight, rounding each topic's share up
// but never letting the total exceed the pool. Allocation follows plan
// order, so earlier topics win the rounding ties.
func quotas(topics []types.Topic, limit int, share float64) []int {
	result := make([]int, len(topics))
	if len(topics) == 0 {
		return result
	}

	guaranteed := int(math.Ceil(share * float64(limit)))

	var totalWeight float64
	for _, t := range topics {
		totalWeight += t.Weight
	}
	if totalWeight <= 0 {
		totalWeight = float64(len(topics))
	}

	remaining := guaranteed
	for i, t := range topics {
		w := t.Weight
		if w <= 0 {
			w = 1
		}
		q := int(math.Ceil(float64(guaranteed) * w / totalWeight))
		if q > remaining {
			q = remaining
		}
		result[i] = q
		remaining -= q
	}
	return result
}

// filterByTopic returns the not-yet-taken sources tagged with topic.
func filterByTopic(pool []types.Source, topic string, taken map[string]bool) []types.Source {
	var out []types.Source
	for _, src := range pool {
		if src.Topic == topic && !taken[src.URL] {
			out = append(out, src)
		}
	}
	return out
}

// sortByScore orders sources by credibility score when present, relevance
// otherwise, descending. Stable so equal scores keep pool order.
func sortByScore(sources []types.Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].ScoreKey() > sources[j].ScoreKey()
	})
}
