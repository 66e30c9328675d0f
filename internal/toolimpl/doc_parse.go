package toolimpl

import (
	"context"
	"fmt"
	"os"

	"mnemex/internal/tools"
)

// DocParseTool wraps the text-extraction collaborator. Inputs
// {text, path, blob_id}: when the orchestrator has already pre-read a
// text-like file it passes the content directly in "text" and this tool
// only derives the mime; for binary document formats it reads the raw
// bytes at "path" and delegates to the Tika-shaped collaborator. Failure
// here is fatal to the ingest pipeline.
func DocParseTool(tika *TikaClient) *tools.Tool {
	return &tools.Tool{
		Name:        "doc_parse",
		Version:     "1.0.0",
		Description: "Extracts plain text and mime from a document, pre-read text or a binary path.",
		InputSchema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"text":    {Type: "string", Description: "Pre-read text content, if any"},
				"path":    {Type: "string", Description: "Source file path"},
				"blob_id": {Type: "string", Description: "Blob id this content belongs to"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"content_text", "mime"},
			Properties: map[string]tools.Property{
				"content_text": {Type: "string"},
				"mime":         {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			path, _ := env.Inputs["path"].(string)
			text, _ := env.Inputs["text"].(string)

			if text != "" {
				return map[string]any{
					"content_text": text,
					"mime":         DetectMime(path, []byte(text)),
				}, nil
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("doc_parse: read %s: %w", path, err)
			}

			if tika != nil && tika.Reachable(ctx) {
				extracted, err := tika.ExtractText(ctx, raw)
				if err == nil {
					return map[string]any{
						"content_text": extracted,
						"mime":         DetectMime(path, raw),
					}, nil
				}
			}

			return nil, fmt.Errorf("doc_parse: no extraction path available for %s", path)
		},
	}
}
