package toolimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"mnemex/internal/tools"
)

// WeaverSystemPrompt is exported so the orchestrator's chat operation
// can precompute the same call the tool would make and pass the result
// through _llm_override, tracing the step without paying for a second
// invocation.
const WeaverSystemPrompt = `Answer the question using only the evidence provided. Respond with JSON only: {"answer":"...","citations":[{"memory_id":"...","quote":"..."}]}`

type weaverCitation struct {
	MemoryID string `json:"memory_id"`
	Quote    string `json:"quote"`
}

type weaverResult struct {
	Answer     string            `json:"answer"`
	Citations  []weaverCitation  `json:"citations"`
}

// WeaverTool composes an answer from a question and an evidence list,
// via the generative model when reachable, otherwise a deterministic
// stub that concatenates the top evidence snippets. If the envelope
// carries a non-empty _llm_override, it is used verbatim instead of
// making any call — the orchestrator precomputes the call itself so
// the result can be traced through this tool without paying for a
// second invocation.
func WeaverTool(gen *GenerativeClient) *tools.Tool {
	return &tools.Tool{
		Name:        "weaver",
		Version:     "1.0.0",
		Description: "Composes a cited answer from a question and an evidence list.",
		InputSchema: tools.ToolSchema{
			Required: []string{"question", "evidence"},
			Properties: map[string]tools.Property{
				"question":       {Type: "string"},
				"evidence":       {Type: "array"},
				"_llm_override":  {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"answer", "citations"},
			Properties: map[string]tools.Property{
				"answer":    {Type: "string"},
				"citations": {Type: "array"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			question, _ := env.Inputs["question"].(string)
			evidence, _ := env.Inputs["evidence"].([]any)

			if override, ok := env.Inputs["_llm_override"].(string); ok && override != "" {
				var parsed weaverResult
				if err := json.Unmarshal([]byte(override), &parsed); err == nil {
					return weaverOutputs(parsed, evidence), nil
				}
			}

			if gen != nil && gen.Reachable(ctx) {
				prompt := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", question, FormatEvidence(evidence))
				raw, err := gen.Generate(ctx, WeaverSystemPrompt, prompt, true)
				if err == nil {
					var parsed weaverResult
					if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
						return weaverOutputs(parsed, evidence), nil
					}
				}
			}

			return weaverOutputs(stubWeave(question, evidence), evidence), nil
		},
	}
}

// FormatEvidence renders the evidence list as a plain-text block for
// the generate prompt.
func FormatEvidence(evidence []any) string {
	var sb strings.Builder
	for _, raw := range evidence {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		memoryID, _ := item["memory_id"].(string)
		snippet, _ := item["snippet"].(string)
		fmt.Fprintf(&sb, "[%s] %s\n", memoryID, snippet)
	}
	return sb.String()
}

// stubWeave deterministically answers by stitching together the
// highest-scored evidence snippets, with one citation per snippet used.
func stubWeave(question string, evidence []any) weaverResult {
	type scored struct {
		memoryID string
		snippet  string
		score    float64
	}
	items := make([]scored, 0, len(evidence))
	for _, raw := range evidence {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		memoryID, _ := item["memory_id"].(string)
		snippet, _ := item["snippet"].(string)
		score, _ := item["score"].(float64)
		if memoryID == "" || snippet == "" {
			continue
		}
		items = append(items, scored{memoryID, snippet, score})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	if len(items) == 0 {
		return weaverResult{Answer: "I don't have enough evidence to answer that."}
	}

	limit := 3
	if len(items) < limit {
		limit = len(items)
	}
	var sb strings.Builder
	citations := make([]weaverCitation, 0, limit)
	for _, it := range items[:limit] {
		quote := it.snippet
		if len(quote) > 200 {
			quote = quote[:200]
		}
		fmt.Fprintf(&sb, "%s ", quote)
		citations = append(citations, weaverCitation{MemoryID: it.memoryID, Quote: quote})
	}
	return weaverResult{Answer: strings.TrimSpace(sb.String()), Citations: citations}
}

// weaverOutputs validates citations against the evidence list, discards
// any whose memory_id is absent from it, and caps the result at 8.
func weaverOutputs(r weaverResult, evidence []any) map[string]any {
	known := make(map[string]bool, len(evidence))
	for _, raw := range evidence {
		if item, ok := raw.(map[string]any); ok {
			if memoryID, _ := item["memory_id"].(string); memoryID != "" {
				known[memoryID] = true
			}
		}
	}

	citations := make([]any, 0, len(r.Citations))
	for _, c := range r.Citations {
		if !known[c.MemoryID] {
			continue
		}
		citations = append(citations, map[string]any{"memory_id": c.MemoryID, "quote": c.Quote})
		if len(citations) >= 8 {
			break
		}
	}
	return map[string]any{"answer": r.Answer, "citations": citations}
}
