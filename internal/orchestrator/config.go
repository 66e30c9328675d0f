package orchestrator

import "strings"

// Config controls the ingest/chat operations of the Active Orchestrator.
type Config struct {
	// MaxBlobBytes is the oversize cap: files larger than this get a
	// placeholder card and no tool dispatch. Default 20 MiB.
	MaxBlobBytes int64
	// ToolTimeoutMs overrides the per-tool dispatch timeout; zero
	// leaves tools.DefaultConstraints in effect.
	ToolTimeoutMs int64
}

const defaultMaxBlobBytes = 20 * 1024 * 1024

// DefaultConfig returns the orchestrator's defaults.
func DefaultConfig() Config {
	return Config{MaxBlobBytes: defaultMaxBlobBytes}
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tiff": true, ".webp": true, ".svg": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true, ".ogg": true,
	".m4a": true, ".aac": true, ".wma": true, ".opus": true,
}

// textLikeExtensions are read directly rather than routed through
// doc_parse's Tika-shaped extraction path.
var textLikeExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".json": true,
	".csv": true, ".yaml": true, ".yml": true, ".log": true,
}

// pipeline names one of the three ingest pipelines selected by mime/ext.
type pipeline string

const (
	pipelineDoc   pipeline = "doc_parse"
	pipelineImage pipeline = "image"
	pipelineASR   pipeline = "asr"
)

func selectPipeline(mime, ext string) pipeline {
	if strings.HasPrefix(mime, "image/") || imageExtensions[ext] {
		return pipelineImage
	}
	if strings.HasPrefix(mime, "audio/") || audioExtensions[ext] {
		return pipelineASR
	}
	return pipelineDoc
}
