package toolimpl

import (
	"context"
	"fmt"

	"mnemex/internal/store"
	"mnemex/internal/tools"
)

const summarizerSystemPrompt = "Summarize the given document in at most three sentences. Respond with the summary text only, no preamble."

// SummarizerTool produces a ≤400-char summary from content_text, via the
// generative model when reachable, otherwise a deterministic fallback
// that truncates at a sentence boundary. Failure here is
// non-fatal to the ingest pipeline.
func SummarizerTool(gen *GenerativeClient) *tools.Tool {
	return &tools.Tool{
		Name:        "summarizer",
		Version:     "1.0.0",
		Description: "Summarizes content_text, falling back to a sentence-truncated excerpt when no model is reachable.",
		InputSchema: tools.ToolSchema{
			Required: []string{"content_text"},
			Properties: map[string]tools.Property{
				"content_text": {Type: "string"},
				"title":        {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"summary", "llm_used"},
			Properties: map[string]tools.Property{
				"summary":  {Type: "string"},
				"llm_used": {Type: "boolean"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			contentText, _ := env.Inputs["content_text"].(string)
			title, _ := env.Inputs["title"].(string)

			if gen != nil && gen.Reachable(ctx) {
				prompt := contentText
				if title != "" {
					prompt = fmt.Sprintf("Title: %s\n\n%s", title, contentText)
				}
				summary, err := gen.Generate(ctx, summarizerSystemPrompt, prompt, false)
				if err == nil && summary != "" {
					return map[string]any{
						"summary":  store.TruncateAtSentence(summary, 400),
						"llm_used": true,
					}, nil
				}
			}

			return map[string]any{
				"summary":  store.TruncateAtSentence(contentText, 400),
				"llm_used": false,
			}, nil
		},
	}
}
