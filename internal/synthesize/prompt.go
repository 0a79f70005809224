// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// synthesisPromptTmpl is the answer-synthesis prompt. It carries the stage
// summaries, the numbered evidence, the question, and the instruction block
// demanding [n] citations plus a fenced JSON credibility evaluation.
// Per prd005-synthesis R2.1-R2.4.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are a research answer synthesis system. Answer the user's question using only the evidence below.

{{if .Summaries}}Search summaries:
{{.Summaries}}

{{end}}Evidence:
{{.Sources}}
Question: {{.Question}}

Instructions:
- Answer the question directly and completely, covering every part of a compound question.
- Cite every factual claim with [n] where n is the evidence index above. Claims without a citation are not allowed.
- Do not use evidence indexes that do not exist.
- After the answer, evaluate every evidence item's credibility. Output the evaluation as a fenced JSON array, one element per evidence item:
` + "```json" + `
[{"index": 1, "score": 0.8, "primary": true, "category": "government", "rationale": "official statistics release"}]
` + "```" + `
- score is between 0.0 and 1.0; primary is true for first-party sources; category is one of "government", "academic", "news", "corporate", "reference", "blog", "social", "other".`))

// buildPrompt renders the synthesis prompt. Pure function of its inputs so
// it can be tested without any network call.
func buildPrompt(question string, sources []types.Source, summaries []string) (string, error) {
	var rendered bytes.Buffer
	for i, src := range sources {
		fmt.Fprintf(&rendered, "[%d] %s / %s / %s / %s / %.2f\n",
			i+1, src.Title, src.URL, src.Query, src.Snippet, src.RelevanceScore)
	}

	var cleaned []string
	for _, s := range summaries {
		if strings.TrimSpace(s) != "" {
			cleaned = append(cleaned, strings.TrimSpace(s))
		}
	}

	var buf bytes.Buffer
	err := synthesisPromptTmpl.Execute(&buf, struct {
		Question  string
		Sources   string
		Summaries string
	}{
		Question:  question,
		Sources:   rendered.String(),
		Summaries: strings.Join(cleaned, "\n"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
