package orchestrator

import (
	"context"
	"fmt"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
)

// IngestCapture runs a browser or audio-note capture through the same
// sequential tool chain as the doc-parse pipeline, after first reducing
// the capture payload (html_content or pre-supplied text) to plain
// prose doc_parse can treat like a direct file read.
func (o *Orchestrator) IngestCapture(ctx context.Context, payload map[string]any) error {
	sourceType := stepString(payload, "source_type")
	uri := stepString(payload, "uri")

	source, err := o.store.UpsertSource(sourceType, uri)
	if err != nil {
		return fmt.Errorf("ingest_capture: upsert source: %w", err)
	}

	text := stepString(payload, "text")
	if html := stepString(payload, "html_content"); html != "" {
		if extracted, extractErr := toolimpl.ExtractCaptureText(html); extractErr == nil {
			text = extracted
		} else {
			logging.Get(logging.CategoryOrchestrator).Warn("ingest_capture: extract html for %s: %v", uri, extractErr)
		}
	}

	traceID := stepString(payload, "trace_id")
	if traceID == "" {
		traceID = idgen.New()
	}
	if err := o.store.OpenTrace(traceID, map[string]any{
		"source_id":   source.SourceID,
		"source_type": sourceType,
		"uri":         uri,
	}); err != nil {
		return fmt.Errorf("ingest_capture: open trace: %w", err)
	}

	if err := o.runCapturePipeline(ctx, traceID, source.SourceID, sourceType, uri, text); err != nil {
		_ = o.store.FinishTrace(traceID, "error")
		return err
	}
	return nil
}

func (o *Orchestrator) runCapturePipeline(ctx context.Context, traceID, sourceID, sourceType, uri, text string) error {
	memoryID := idgen.New()

	parseResult, err := o.dispatch(ctx, traceID, "doc_parse", map[string]any{
		"path": uri,
		"text": text,
	}, "")
	if err != nil || parseResult == nil || !parseResult.IsSuccess() {
		return fatalStepError("doc_parse", err)
	}
	predecessor := parseResult.SpanID
	contentText := stepString(parseResult.Outputs, "content_text")
	mime := stepString(parseResult.Outputs, "mime")

	summary := ""
	llmUsed := false
	if summResult, err := o.dispatch(ctx, traceID, "summarizer", map[string]any{
		"content_text": contentText,
		"title":        uri,
	}, predecessor); err == nil && summResult != nil {
		predecessor = summResult.SpanID
		if summResult.IsSuccess() {
			summary = stepString(summResult.Outputs, "summary")
			llmUsed = stepBool(summResult.Outputs, "llm_used")
		}
	}
	if summary == "" {
		summary = store.TruncateAtSentence(contentText, 400)
	}

	var entities, tags, actions []any
	if extResult, err := o.dispatch(ctx, traceID, "extractor", map[string]any{
		"content_text": contentText,
		"title":        uri,
	}, predecessor); err == nil && extResult != nil {
		predecessor = extResult.SpanID
		if extResult.IsSuccess() {
			entities, _ = extResult.Outputs["entities"].([]any)
			tags, _ = extResult.Outputs["tags"].([]any)
			actions, _ = extResult.Outputs["actions"].([]any)
		}
	}

	vectorRef := ""
	if embedResult, err := o.dispatch(ctx, traceID, "text_embed", map[string]any{
		"text":      contentText,
		"memory_id": memoryID,
	}, predecessor); err == nil && embedResult != nil {
		predecessor = embedResult.SpanID
		if embedResult.IsSuccess() {
			vectorRef = stepString(embedResult.Outputs, "vector_ref")
		}
	}

	var graphNodes, graphEdges []any
	if graphResult, err := o.dispatch(ctx, traceID, "graph_builder", map[string]any{
		"entities":  entities,
		"memory_id": memoryID,
		"summary":   summary,
		"source":    sourceID,
	}, predecessor); err == nil && graphResult != nil && graphResult.IsSuccess() {
		graphNodes, _ = graphResult.Outputs["nodes"].([]any)
		graphEdges, _ = graphResult.Outputs["edges"].([]any)
	}

	card := &store.MemoryCard{
		MemoryID:    memoryID,
		CardType:    "capture",
		Summary:     summary,
		ContentText: contentText,
		Metadata: map[string]any{
			"source_id":   sourceID,
			"source_type": sourceType,
			"uri":         uri,
			"mime":        mime,
			"trace_id":    traceID,
			"llm_used":    llmUsed,
			"entities":    entities,
			"tags":        tags,
			"actions":     actions,
			"vector_text": vectorRef,
			"graph_nodes": graphNodes,
			"graph_edges": graphEdges,
		},
	}
	if err := o.store.InsertMemoryCard(card); err != nil {
		return fmt.Errorf("capture pipeline: insert memory card: %w", err)
	}
	if vectorRef != "" {
		if err := o.store.InsertEmbedding(idgen.New(), memoryID, "text", vectorRef); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("insert embedding row for %s: %v", memoryID, err)
		}
	}

	return o.store.FinishTrace(traceID, "done")
}
