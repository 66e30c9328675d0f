package toolimpl

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"mnemex/internal/tools"
)

// extByMime maps extensions the stdlib sniffer gets wrong or leaves
// generic (octet-stream or plain text) back to a useful mime prefix, so image/audio
// extensions still resolve to the right pipeline even when content
// sniffing is inconclusive on a truncated or oddly-encoded file.
var extByMime = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".opus": "audio/opus",
}

// DetectMime sniffs the magic bytes of content and falls back to an
// extension table when the sniffer only manages a generic octet-stream
// or plain-text result. It backs the mime_detect tool and is also
// called directly by the doc_parse and asr tools and by the watcher's
// scanner.
func DetectMime(path string, content []byte) string {
	sniffLen := len(content)
	if sniffLen > 512 {
		sniffLen = 512
	}
	sniffed := http.DetectContentType(content[:sniffLen])
	base := strings.SplitN(sniffed, ";", 2)[0]
	if base != "application/octet-stream" && base != "text/plain" {
		return base
	}
	if ext, ok := extByMime[strings.ToLower(filepath.Ext(path))]; ok {
		return ext
	}
	return base
}

// MimeDetectTool registers the mime_detect tool: given {path, content_b64
// omitted — the watcher already has the bytes in hand}, it re-derives the
// mime for a path whose bytes are passed directly as a string under
// "sample" (the first bytes read by the caller).
func MimeDetectTool() *tools.Tool {
	return &tools.Tool{
		Name:        "mime_detect",
		Version:     "1.0.0",
		Description: "Detects a file's mime type from magic bytes with an extension-based fallback.",
		InputSchema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path":   {Type: "string", Description: "File path"},
				"sample": {Type: "string", Description: "First bytes of the file, as raw string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required:   []string{"mime"},
			Properties: map[string]tools.Property{"mime": {Type: "string"}},
		},
		Execute: func(_ context.Context, env *tools.Envelope) (map[string]any, error) {
			path, _ := env.Inputs["path"].(string)
			sample, _ := env.Inputs["sample"].(string)
			mime := DetectMime(path, []byte(sample))
			return map[string]any{"mime": mime}, nil
		},
	}
}
