// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"net/url"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// domainRule maps a hostname pattern onto a credibility estimate.
type domainRule struct {
	pattern  string
	score    float64
	primary  bool
	category string
}

// domainRules are checked in order; the first match wins. The list runs from
// strongest signals (official registries) down to weak ones (social media).
var domainRules = []domainRule{
	{".gov", 0.9, true, "government"},
	{".go.jp", 0.9, true, "government"},
	{".edu", 0.85, true, "academic"},
	{".ac.jp", 0.85, true, "academic"},
	{".ac.uk", 0.85, true, "academic"},
	{"arxiv.org", 0.8, true, "academic"},
	{"reuters.com", 0.8, false, "news"},
	{"apnews.com", 0.8, false, "news"},
	{"bloomberg.com", 0.75, false, "news"},
	{"prnewswire.com", 0.7, true, "corporate"},
	{"businesswire.com", 0.7, true, "corporate"},
	{"wikipedia.org", 0.65, false, "reference"},
	{"medium.com", 0.35, false, "blog"},
	{"substack.com", 0.35, false, "blog"},
	{"blogspot.com", 0.3, false, "blog"},
	{"wordpress.com", 0.3, false, "blog"},
	{"reddit.com", 0.3, false, "social"},
	{"twitter.com", 0.25, false, "social"},
	{"x.com", 0.25, false, "social"},
	{"facebook.com", 0.25, false, "social"},
}

// heuristicCredibility estimates credibility from URL patterns alone. It is
// the total, side-effect-free fallback used whenever the model's evaluation
// is missing or unparsable: every source always ends up annotated.
func heuristicCredibility(rawURL string) *types.Credibility {
	host := hostOf(rawURL)

	for _, rule := range domainRules {
		if strings.HasSuffix(host, rule.pattern) || host == strings.TrimPrefix(rule.pattern, ".") {
			return &types.Credibility{
				Score:     rule.score,
				Primary:   rule.primary,
				Category:  rule.category,
				Rationale: "estimated from domain pattern",
				Heuristic: true,
			}
		}
	}

	return &types.Credibility{
		Score:     0.5,
		Primary:   false,
		Category:  "other",
		Rationale: "no domain signal, neutral estimate",
		Heuristic: true,
	}
}

// hostOf extracts the lowercased hostname, tolerating bare domains.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}
