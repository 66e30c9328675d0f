package toolimpl

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"mnemex/internal/tools"
)

const captionSystemPrompt = "Describe this image in one sentence, suitable as a caption. Respond with the caption only."

// ZeroShotLabel is a single subject/scene classification with a
// confidence in [0,1].
type ZeroShotLabel struct {
	Label      string
	Confidence float64
}

// ZeroShotClassifier guesses subject and scene/style labels for an
// image without a generative model. No zero-shot CLIP-style classifier
// exists in the example corpus, so the only implementation here
// (filenameClassifier) derives labels from the filename itself — an
// honest, weak, fully deterministic fallback, not a disguised model.
type ZeroShotClassifier interface {
	Classify(imageBytes []byte, filename string) (subjects, scenes []ZeroShotLabel)
}

var filenameWordSplit = regexp.MustCompile(`[^a-zA-Z]+`)

type filenameClassifier struct{}

func (filenameClassifier) Classify(_ []byte, filename string) (subjects, scenes []ZeroShotLabel) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	words := filenameWordSplit.Split(base, -1)
	for i, w := range words {
		if w == "" {
			continue
		}
		confidence := 0.35 - float64(i)*0.03
		if confidence < 0.20 {
			break
		}
		subjects = append(subjects, ZeroShotLabel{Label: strings.ToLower(w), Confidence: confidence})
		if len(subjects) >= 5 {
			break
		}
	}
	scenes = append(scenes, ZeroShotLabel{Label: "unclassified scene", Confidence: 0.20})
	return subjects, scenes
}

// CaptionTool produces a one-sentence caption for an image, preferring a
// vision-capable generative model when reachable and falling back to a
// filename-derived heuristic. The heuristic path also reports
// zero-shot subject/scene labels so the orchestrator can synthesize
// entities and tags when no LLM ran.
func CaptionTool(gen *GenerativeClient, classifier ZeroShotClassifier) *tools.Tool {
	if classifier == nil {
		classifier = filenameClassifier{}
	}
	return &tools.Tool{
		Name:        "image_caption",
		Version:     "1.0.0",
		Description: "Captions an image, falling back to filename-derived zero-shot labels when no model is reachable.",
		InputSchema: tools.ToolSchema{
			Required:   []string{"path"},
			Properties: map[string]tools.Property{"path": {Type: "string"}},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"caption", "llm_used"},
			Properties: map[string]tools.Property{
				"caption":        {Type: "string"},
				"llm_used":       {Type: "boolean"},
				"subject_labels": {Type: "array"},
				"scene_labels":   {Type: "array"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			path, _ := env.Inputs["path"].(string)
			base := filepath.Base(path)

			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("image_caption: read %s: %w", path, err)
			}

			if gen != nil && gen.Reachable(ctx) {
				caption, genErr := gen.GenerateWithImage(ctx, captionSystemPrompt, "Caption this image.", raw)
				if genErr == nil && caption != "" {
					return map[string]any{"caption": caption, "llm_used": true}, nil
				}
			}

			subjects, scenes := classifier.Classify(raw, base)
			caption := fmt.Sprintf("Image: %s", base)
			if len(subjects) > 0 {
				caption = fmt.Sprintf("Image: %s", subjects[0].Label)
			}
			return map[string]any{
				"caption":        caption,
				"llm_used":       false,
				"subject_labels": labelOutputs(subjects),
				"scene_labels":   labelOutputs(scenes),
			}, nil
		},
	}
}

func labelOutputs(labels []ZeroShotLabel) []any {
	out := make([]any, 0, len(labels))
	for _, l := range labels {
		out = append(out, map[string]any{"label": l.Label, "confidence": l.Confidence})
	}
	return out
}

// encodeImageBase64 is used by GenerateWithImage callers that need a
// data-URI-free base64 payload for the generate API's images field.
func encodeImageBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
