package toolimpl

import (
	"context"
	"fmt"
	"os"

	"mnemex/internal/tools"
)

// Transcriber converts audio bytes to text. WHISPER_MODE=local would
// back this with a local Whisper binding; no such Go binding exists in
// the example corpus to ground a real local implementation against, so
// the only implementation here is noTranscriber, consistent with the
// stub/real duality already applied to OCR and vision embedding.
type Transcriber interface {
	Transcribe(audioBytes []byte) (string, error)
}

type noTranscriber struct{}

func (noTranscriber) Transcribe([]byte) (string, error) {
	return "", fmt.Errorf("asr: no transcription engine configured")
}

// ASRTool transcribes an audio file, the audio-pipeline counterpart of
// doc_parse. Inputs {path, blob_id}; outputs {content_text, mime}.
// Failure here is fatal to the pipeline, matching doc_parse.
func ASRTool(transcriber Transcriber) *tools.Tool {
	if transcriber == nil {
		transcriber = noTranscriber{}
	}
	return &tools.Tool{
		Name:        "asr",
		Version:     "1.0.0",
		Description: "Transcribes an audio file to text.",
		InputSchema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path":    {Type: "string"},
				"blob_id": {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"content_text", "mime"},
			Properties: map[string]tools.Property{
				"content_text": {Type: "string"},
				"mime":         {Type: "string"},
			},
		},
		Execute: func(_ context.Context, env *tools.Envelope) (map[string]any, error) {
			path, _ := env.Inputs["path"].(string)

			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("asr: read %s: %w", path, err)
			}
			text, err := transcriber.Transcribe(raw)
			if err != nil {
				return nil, fmt.Errorf("asr: %w", err)
			}
			return map[string]any{
				"content_text": text,
				"mime":         DetectMime(path, raw),
			}, nil
		},
	}
}
