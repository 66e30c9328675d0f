package toolimpl

import (
	"context"

	"mnemex/internal/retrieval"
	"mnemex/internal/tools"
)

// RetrievalTool runs the hybrid retrieval engine as a traced dispatch
// step. The chat pipeline precomputes the search itself (it needs the
// candidates to build its evidence list regardless) and passes the
// result through _results_override, the same envelope-passthrough
// pattern weaver/verifier use for _llm_override. The search itself
// still runs here when no override is supplied, so the tool remains
// independently callable rather than a bare passthrough.
func RetrievalTool(engine *retrieval.Engine) *tools.Tool {
	return &tools.Tool{
		Name:        "retrieval",
		Version:     "1.0.0",
		Description: "Runs the hybrid retrieval engine and returns ranked candidates.",
		InputSchema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query":             {Type: "string"},
				"top_k":             {Type: "number"},
				"use_graph":         {Type: "boolean"},
				"hops":              {Type: "number"},
				"_results_override": {Type: "array"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"results"},
			Properties: map[string]tools.Property{
				"results": {Type: "array"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			if override, ok := env.Inputs["_results_override"].([]any); ok {
				return map[string]any{"results": override}, nil
			}

			if engine == nil {
				return map[string]any{"results": []any{}}, nil
			}

			query, _ := env.Inputs["query"].(string)
			topK, _ := env.Inputs["top_k"].(float64)
			useGraph, _ := env.Inputs["use_graph"].(bool)
			hops, _ := env.Inputs["hops"].(float64)

			candidates, err := engine.Search(ctx, retrieval.Query{
				Text:        query,
				TopK:        int(topK),
				UseSemantic: true,
				UseGraph:    useGraph,
				Hops:        int(hops),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"results": candidatesToResults(candidates)}, nil
		},
	}
}

func candidatesToResults(candidates []retrieval.Candidate) []any {
	out := make([]any, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, map[string]any{
			"memory_id":   c.MemoryID,
			"summary":     c.Summary,
			"snippet":     c.Snippet,
			"source_type": c.SourceType,
			"created_at":  c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"score":       c.Score,
			"reasons":     c.Reasons,
		})
	}
	return out
}
