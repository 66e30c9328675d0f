package toolimpl

import (
	"context"
	"fmt"

	"mnemex/internal/embedding"
	"mnemex/internal/tools"
)

// VectorStorer is the narrow slice of the object store text_embed and
// vision_embed need: store a vector under a modality collection keyed by
// memory_id and get back the "<store>:<collection>:<point_id>" ref.
// *store.Store satisfies this.
type VectorStorer interface {
	StoreVector(modality, memoryID string, vec []float32, payload map[string]any) (string, error)
}

// TextEmbedTool embeds text and stores the resulting vector in the
// object store's text collection. Inputs {text, memory_id}; output
// {vector_ref}. Failure is fatal to the pipeline's embedding step but
// non-fatal to card creation overall — the orchestrator,
// not this tool, decides how to proceed on error.
func TextEmbedTool(engine *modelSingleton, vectors VectorStorer) *tools.Tool {
	return &tools.Tool{
		Name:        "text_embed",
		Version:     "1.0.0",
		Description: "Embeds text and stores the vector in the text collection.",
		InputSchema: tools.ToolSchema{
			Required: []string{"text", "memory_id"},
			Properties: map[string]tools.Property{
				"text":      {Type: "string"},
				"memory_id": {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required:   []string{"vector_ref"},
			Properties: map[string]tools.Property{"vector_ref": {Type: "string"}},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			text, _ := env.Inputs["text"].(string)
			memoryID, _ := env.Inputs["memory_id"].(string)

			eng, err := engine.Get(ctx)
			if err != nil {
				return nil, fmt.Errorf("text_embed: no embedding engine available: %w", err)
			}

			var vec []float32
			if taskAware, ok := eng.(embedding.TaskTypeAwareEngine); ok {
				taskType := embedding.GetOptimalTaskType(text, nil, false)
				vec, err = taskAware.EmbedWithTask(ctx, text, taskType)
			} else {
				vec, err = eng.Embed(ctx, text)
			}
			if err != nil {
				return nil, fmt.Errorf("text_embed: %w", err)
			}

			ref, err := vectors.StoreVector("text", memoryID, vec, map[string]any{"modality": "text"})
			if err != nil {
				return nil, fmt.Errorf("text_embed: store vector: %w", err)
			}
			return map[string]any{"vector_ref": ref}, nil
		},
	}
}
