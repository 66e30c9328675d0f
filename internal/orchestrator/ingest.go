package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// IngestBlob runs the blob ingest pipeline: idempotency check, trace
// open, pipeline selection by mime/extension, oversize policy, and the
// doc-parse/image/asr pipeline itself.
func (o *Orchestrator) IngestBlob(ctx context.Context, payload map[string]any) error {
	blobID := stepString(payload, "blob_id")
	sourceID := stepString(payload, "source_id")
	path := stepString(payload, "path")
	mime := stepString(payload, "mime")
	size := payloadInt64(payload, "size")

	if existing, err := o.store.FindMemoryCardByBlobID(blobID); err == nil && existing != nil {
		logging.Orchestrator("ingest_blob: blob %s already has card %s, skipping", blobID, existing.MemoryID)
		return nil
	}

	traceID := stepString(payload, "trace_id")
	if traceID == "" {
		traceID = idgen.New()
	}
	if err := o.store.OpenTrace(traceID, map[string]any{
		"blob_id":   blobID,
		"source_id": sourceID,
		"path":      path,
		"mime":      mime,
	}); err != nil {
		return fmt.Errorf("ingest_blob: open trace: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	if o.cfg.MaxBlobBytes > 0 && size > o.cfg.MaxBlobBytes {
		if err := o.commitOversizeCard(traceID, blobID, sourceID, path, mime); err != nil {
			_ = o.store.FinishTrace(traceID, "error")
			return err
		}
		return o.store.FinishTrace(traceID, "done")
	}

	p := selectPipeline(mime, ext)

	var err error
	switch p {
	case pipelineImage:
		err = o.runImagePipeline(ctx, traceID, blobID, sourceID, path, mime)
	case pipelineASR:
		err = o.runSequentialPipeline(ctx, traceID, blobID, sourceID, path, mime, "asr")
	default:
		err = o.runSequentialPipeline(ctx, traceID, blobID, sourceID, path, mime, "doc_parse")
	}

	if err != nil {
		_ = o.store.FinishTrace(traceID, "error")
		return err
	}
	return nil
}

func payloadInt64(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// commitOversizeCard writes a placeholder card for a blob that exceeds
// MaxBlobBytes, without dispatching any tool.
func (o *Orchestrator) commitOversizeCard(traceID, blobID, sourceID, path, mime string) error {
	memoryID := idgen.New()
	base := filepath.Base(path)
	card := &store.MemoryCard{
		MemoryID: memoryID,
		CardType: "oversize_placeholder",
		Summary:  fmt.Sprintf("Skipped %s: file exceeds the ingest size limit.", base),
		Metadata: map[string]any{
			"blob_id":     blobID,
			"source_id":   sourceID,
			"source_type": "filesystem",
			"path":        path,
			"mime":        mime,
			"trace_id":    traceID,
		},
	}
	if err := o.store.InsertMemoryCard(card); err != nil {
		return fmt.Errorf("ingest_blob: insert oversize card: %w", err)
	}
	return nil
}

// textLikeContent pre-reads a text-like extension directly, rather than
// delegating to doc_parse's Tika-shaped binary extraction path.
func textLikeContent(path, ext string) (string, bool) {
	if !textLikeExtensions[ext] {
		return "", false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(raw), true
}
