// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// planningPromptTmpl asks the model to decompose a question into weighted
// topics and staged search batches. The output contract mirrors the
// SearchPlan wire shape so the response can be unmarshaled directly.
// Per prd001-planning R2.1-R2.4.
var planningPromptTmpl = template.Must(template.New("planning").Parse(`You are a search planning system. Decompose the user's question into distinct topics and a staged search plan.

Rules:
- Enumerate the question's distinct topics. Give each an importance weight between 0.0 and 1.0; together the topics must account for the full intent of the question.
- For each topic, list the kinds of information required (e.g. "facts", "analysis", "examples").
- Emit 1 to {{.MaxStages}} stages:
  - Stage 1 must be named "broad_coverage", marked "mandatory", and cover every topic broadly with at least one query per topic.
  - Stage 2, if present, must be named "deepening", marked "conditional", and deepen the topics that need more evidence.
  - Stage 3, if present, must be named "specialization", marked "conditional", and target narrow gaps.
- Every query in stage 2 and later must reference a topic name already defined for stage 1. Never invent new topics after stage 1.
- Each query has: text, topic, language (optional hint like "en"), depth ("shallow" or "deep"), max_results (1-10), freshness_days (optional, only for time-sensitive queries), category (optional, "news" or "general").

Respond with a single JSON object and no other text:
{
  "rationale": "one paragraph explaining the decomposition",
  "topics": [{"name": "...", "weight": 0.5, "required_info": ["facts"]}],
  "stages": [{"name": "broad_coverage", "condition": "mandatory", "queries": [{"text": "...", "topic": "...", "depth": "deep", "max_results": 5}]}]
}

Question: {{.Question}}`))

// renderPlanningPrompt executes the planning template.
func renderPlanningPrompt(question string, maxStages int) (string, error) {
	var buf bytes.Buffer
	err := planningPromptTmpl.Execute(&buf, struct {
		Question  string
		MaxStages int
	}{Question: question, MaxStages: maxStages})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseSearchPlan extracts the plan JSON from a model response. Models wrap
// JSON in code fences or prose more often than not, so this scans for the
// first JSON object rather than unmarshaling the raw text. The ok result is
// false whenever no usable plan could be recovered; parse failure is never
// an error because the planner degrades to the fallback plan.
func ParseSearchPlan(raw string) (types.SearchPlan, bool) {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return types.SearchPlan{}, false
	}

	var p types.SearchPlan
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return types.SearchPlan{}, false
	}
	if len(p.Topics) == 0 || len(p.Stages) == 0 {
		return types.SearchPlan{}, false
	}
	return p, true
}

// extractJSONObject returns the first balanced {...} block in text,
// preferring the contents of a fenced ```json block when one exists.
func extractJSONObject(text string) string {
	if fenced := insideFence(text); fenced != "" {
		text = fenced
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// insideFence returns the body of the first ```json (or bare ```) fence.
func insideFence(text string) string {
	for _, marker := range []string{"```json", "```"} {
		open := strings.Index(text, marker)
		if open < 0 {
			continue
		}
		rest := text[open+len(marker):]
		close := strings.Index(rest, "```")
		if close < 0 {
			continue
		}
		return rest[:close]
	}
	return ""
}
