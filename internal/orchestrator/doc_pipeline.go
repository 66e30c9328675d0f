package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// runSequentialPipeline implements the doc-parse and ASR pipelines,
// which share the same shape: one required extraction step followed by
// summarizer, extractor, text_embed, and graph_builder, each chained to
// the previous step's exec node. parseTool is "doc_parse" or "asr".
func (o *Orchestrator) runSequentialPipeline(ctx context.Context, traceID, blobID, sourceID, path, mime, parseTool string) error {
	memoryID := idgen.New()
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	parseInputs := map[string]any{"path": path, "blob_id": blobID}
	if parseTool == "doc_parse" {
		if text, ok := textLikeContent(path, ext); ok {
			parseInputs["text"] = text
		}
	}

	parseResult, err := o.dispatch(ctx, traceID, parseTool, parseInputs, "")
	if err != nil || parseResult == nil || !parseResult.IsSuccess() {
		return fatalStepError(parseTool, err)
	}
	predecessor := parseResult.SpanID
	contentText := stepString(parseResult.Outputs, "content_text")
	detectedMime := stepString(parseResult.Outputs, "mime")
	if detectedMime != "" {
		mime = detectedMime
	}

	summary := ""
	llmUsed := false
	if summResult, err := o.dispatch(ctx, traceID, "summarizer", map[string]any{
		"content_text": contentText,
		"title":        base,
	}, predecessor); err == nil && summResult != nil {
		predecessor = summResult.SpanID
		if summResult.IsSuccess() {
			summary = stepString(summResult.Outputs, "summary")
			llmUsed = stepBool(summResult.Outputs, "llm_used")
		}
	} else {
		logging.Get(logging.CategoryOrchestrator).Warn("summarizer failed for %s: %v", memoryID, err)
	}
	if summary == "" {
		summary = store.TruncateAtSentence(contentText, 400)
	}

	var entities, tags, actions []any
	if extResult, err := o.dispatch(ctx, traceID, "extractor", map[string]any{
		"content_text": contentText,
		"title":        base,
	}, predecessor); err == nil && extResult != nil {
		predecessor = extResult.SpanID
		if extResult.IsSuccess() {
			entities, _ = extResult.Outputs["entities"].([]any)
			tags, _ = extResult.Outputs["tags"].([]any)
			actions, _ = extResult.Outputs["actions"].([]any)
		}
	} else {
		logging.Get(logging.CategoryOrchestrator).Warn("extractor failed for %s: %v", memoryID, err)
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
	} else {
		logging.Get(logging.CategoryOrchestrator).Warn("text_embed failed for %s: %v", memoryID, err)
	}

	var graphNodes, graphEdges []any
	if graphResult, err := o.dispatch(ctx, traceID, "graph_builder", map[string]any{
		"entities":  entities,
		"memory_id": memoryID,
		"summary":   summary,
		"source":    blobID,
	}, predecessor); err == nil && graphResult != nil && graphResult.IsSuccess() {
		graphNodes, _ = graphResult.Outputs["nodes"].([]any)
		graphEdges, _ = graphResult.Outputs["edges"].([]any)
	} else {
		logging.Get(logging.CategoryOrchestrator).Warn("graph_builder failed for %s: %v", memoryID, err)
	}

	card := &store.MemoryCard{
		MemoryID:    memoryID,
		CardType:    parseTool,
		Summary:     summary,
		ContentText: contentText,
		Metadata: map[string]any{
			"blob_id":     blobID,
			"source_id":   sourceID,
			"source_type": "filesystem",
			"path":        path,
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
		return fmt.Errorf("%s pipeline: insert memory card: %w", parseTool, err)
	}
	if vectorRef != "" {
		if err := o.store.InsertEmbedding(idgen.New(), memoryID, "text", vectorRef); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("insert embedding row for %s: %v", memoryID, err)
		}
	}

	return o.store.FinishTrace(traceID, "done")
}
