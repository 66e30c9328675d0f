package toolimpl

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	"mnemex/internal/tools"
)

// VisionEmbedder produces a fixed-length vector for raw image bytes.
// OPENCLIP_MODE=local would back this with a real local CLIP-family
// model; no such Go binding exists in the example corpus to ground a
// real implementation against, so only the stub path (hashStubVision)
// is implemented here — deterministic, offline, and honestly a stub,
// per the stub/real duality design note. A real backend can be added
// behind this interface without touching the tool or the orchestrator.
type VisionEmbedder interface {
	Embed(imageBytes []byte) ([]float32, error)
	Dimensions() int
}

const visionStubDimensions = 128

// hashStubVision derives a deterministic pseudo-embedding from the
// SHA-256 of the image bytes, expanding the 32-byte digest into a
// 128-float unit vector by repeated re-hashing. It carries no semantic
// meaning; its only property is determinism across calls with the same
// bytes.
type hashStubVision struct{}

func (hashStubVision) Dimensions() int { return visionStubDimensions }

func (hashStubVision) Embed(imageBytes []byte) ([]float32, error) {
	vec := make([]float32, visionStubDimensions)
	block := sha256.Sum256(imageBytes)
	for i := 0; i < visionStubDimensions; i++ {
		if i > 0 && i%32 == 0 {
			block = sha256.Sum256(block[:])
		}
		b := block[i%32]
		vec[i] = (float32(b) / 255.0) - 0.5
	}
	return vec, nil
}

// VisionEmbedTool embeds an image's pixel content and stores the vector
// in the object store's vision collection. Inputs {path}; output
// {vector_ref}. Failure is fatal to the image pipeline's vision branch,
// but the pipeline overall still succeeds if OCR produced usable text.
func VisionEmbedTool(embedder VisionEmbedder, vectors VectorStorer) *tools.Tool {
	if embedder == nil {
		embedder = hashStubVision{}
	}
	return &tools.Tool{
		Name:        "vision_embed",
		Version:     "1.0.0",
		Description: "Embeds an image's pixel content and stores the vector in the vision collection.",
		InputSchema: tools.ToolSchema{
			Required: []string{"path", "memory_id"},
			Properties: map[string]tools.Property{
				"path":      {Type: "string"},
				"memory_id": {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required:   []string{"vector_ref"},
			Properties: map[string]tools.Property{"vector_ref": {Type: "string"}},
		},
		Execute: func(_ context.Context, env *tools.Envelope) (map[string]any, error) {
			path, _ := env.Inputs["path"].(string)
			memoryID, _ := env.Inputs["memory_id"].(string)

			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("vision_embed: read %s: %w", path, err)
			}
			vec, err := embedder.Embed(raw)
			if err != nil {
				return nil, fmt.Errorf("vision_embed: %w", err)
			}
			ref, err := vectors.StoreVector("vision", memoryID, vec, map[string]any{"modality": "vision"})
			if err != nil {
				return nil, fmt.Errorf("vision_embed: store vector: %w", err)
			}
			return map[string]any{"vector_ref": ref}, nil
		},
	}
}
