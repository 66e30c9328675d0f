package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode"

	"golang.org/x/sync/errgroup"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
	"mnemex/internal/tools"
)

// runImagePipeline implements the image ingest pipeline: OCR and
// vision_embed run in parallel (independently rooted, no edge between
// them), and the choice of base_text — OCR transcript, generative
// caption, or heuristic filename caption — drives which downstream
// tools run.
func (o *Orchestrator) runImagePipeline(ctx context.Context, traceID, blobID, sourceID, path, mime string) error {
	memoryID := idgen.New()
	base := filepath.Base(path)

	var ocrResult, visionResult *tools.Result
	var ocrErr, visionErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ocrResult, ocrErr = o.dispatch(gctx, traceID, "ocr", map[string]any{"path": path}, "")
		return nil
	})
	g.Go(func() error {
		visionResult, visionErr = o.dispatch(gctx, traceID, "vision_embed", map[string]any{
			"path":      path,
			"memory_id": memoryID,
		}, "")
		return nil
	})
	_ = g.Wait()

	if ocrErr != nil {
		logging.Get(logging.CategoryOrchestrator).Warn("ocr failed for %s: %v", memoryID, ocrErr)
	}
	if visionErr != nil {
		logging.Get(logging.CategoryOrchestrator).Warn("vision_embed failed for %s: %v", memoryID, visionErr)
	}

	ocrText, ocrStatus, avgConf, hasConf := "", "", 0.0, false
	if ocrResult != nil && ocrResult.IsSuccess() {
		ocrText = stepString(ocrResult.Outputs, "text")
		ocrStatus = stepString(ocrResult.Outputs, "status")
		avgConf, hasConf = stepFloat(ocrResult.Outputs, "avg_confidence")
	}

	ocrUsable := ocrStatus == "success" && ocrText != "" &&
		(toolimpl.IsOCRMeaningful(ocrText, avgConf, hasConf) || countNonWhitespace(ocrText) >= 20)

	visionVectorRef := ""
	visionOK := visionResult != nil && visionResult.IsSuccess()
	if visionOK {
		visionVectorRef = stepString(visionResult.Outputs, "vector_ref")
	}

	var ocrPredecessor string
	if ocrResult != nil {
		ocrPredecessor = ocrResult.SpanID
	}

	baseText := ""
	baseTextSource := ""
	captionLLMUsed := false
	var subjectLabels, sceneLabels []any
	captionPredecessor := ocrPredecessor

	if ocrUsable {
		baseText = ocrText
		baseTextSource = "ocr"
	} else {
		capResult, capErr := o.dispatch(ctx, traceID, "image_caption", map[string]any{"path": path}, ocrPredecessor)
		if capErr == nil && capResult != nil {
			captionPredecessor = capResult.SpanID
			if capResult.IsSuccess() {
				caption := stepString(capResult.Outputs, "caption")
				captionLLMUsed = stepBool(capResult.Outputs, "llm_used")
				subjectLabels, _ = capResult.Outputs["subject_labels"].([]any)
				sceneLabels, _ = capResult.Outputs["scene_labels"].([]any)
				if caption != "" {
					baseText = caption
					baseTextSource = "caption"
				}
			}
		}
		if baseText == "" {
			baseText = fmt.Sprintf("Image: %s", base)
			baseTextSource = "filename"
		}
	}

	summary := ""
	llmUsed := false
	var entities, tags, actions []any
	predecessor := captionPredecessor

	switch {
	case baseTextSource == "ocr":
		if summResult, err := o.dispatch(ctx, traceID, "summarizer", map[string]any{
			"content_text": baseText, "title": base,
		}, predecessor); err == nil && summResult != nil {
			predecessor = summResult.SpanID
			if summResult.IsSuccess() {
				summary = stepString(summResult.Outputs, "summary")
				llmUsed = stepBool(summResult.Outputs, "llm_used")
			}
		}
		if extResult, err := o.dispatch(ctx, traceID, "extractor", map[string]any{
			"content_text": baseText, "title": base,
		}, predecessor); err == nil && extResult != nil {
			predecessor = extResult.SpanID
			if extResult.IsSuccess() {
				entities, _ = extResult.Outputs["entities"].([]any)
				tags, _ = extResult.Outputs["tags"].([]any)
				actions, _ = extResult.Outputs["actions"].([]any)
			}
		}
	case captionLLMUsed:
		summary = baseText
		llmUsed = true
		if extResult, err := o.dispatch(ctx, traceID, "extractor", map[string]any{
			"content_text": baseText, "title": base,
		}, predecessor); err == nil && extResult != nil {
			predecessor = extResult.SpanID
			if extResult.IsSuccess() {
				entities, _ = extResult.Outputs["entities"].([]any)
				tags, _ = extResult.Outputs["tags"].([]any)
				actions, _ = extResult.Outputs["actions"].([]any)
			}
		}
	default:
		summary = baseText
		entities = synthesizeEntitiesFromLabels(subjectLabels)
		tags = sceneLabels
	}

	if summary == "" {
		summary = store.TruncateAtSentence(baseText, 400)
	}

	textVectorRef := ""
	if embedResult, err := o.dispatch(ctx, traceID, "text_embed", map[string]any{
		"text":      baseText,
		"memory_id": memoryID,
	}, ocrPredecessor); err == nil && embedResult != nil {
		predecessor = embedResult.SpanID
		if embedResult.IsSuccess() {
			textVectorRef = stepString(embedResult.Outputs, "vector_ref")
		}
	} else {
		logging.Get(logging.CategoryOrchestrator).Warn("text_embed failed for %s: %v", memoryID, err)
	}

	var graphNodes, graphEdges []any
	if len(entities) > 0 {
		if graphResult, err := o.dispatch(ctx, traceID, "graph_builder", map[string]any{
			"entities":  entities,
			"memory_id": memoryID,
			"summary":   summary,
			"source":    blobID,
		}, predecessor); err == nil && graphResult != nil && graphResult.IsSuccess() {
			graphNodes, _ = graphResult.Outputs["nodes"].([]any)
			graphEdges, _ = graphResult.Outputs["edges"].([]any)
		}
	}

	card := &store.MemoryCard{
		MemoryID:    memoryID,
		CardType:    "image",
		Summary:     summary,
		ContentText: baseText,
		Metadata: map[string]any{
			"blob_id":          blobID,
			"source_id":        sourceID,
			"source_type":      "filesystem",
			"path":             path,
			"mime":             mime,
			"trace_id":         traceID,
			"llm_used":         llmUsed,
			"base_text_source": baseTextSource,
			"ocr_status":       ocrStatus,
			"ocr_confidence":   avgConf,
			"ocr_text_length":  len(ocrText),
			"vision_status":    visionOK,
			"entities":         entities,
			"tags":             tags,
			"actions":          actions,
			"vector_text":      textVectorRef,
			"vector_vision":    visionVectorRef,
			"graph_nodes":      graphNodes,
			"graph_edges":      graphEdges,
		},
	}
	if err := o.store.InsertMemoryCard(card); err != nil {
		return fmt.Errorf("image pipeline: insert memory card: %w", err)
	}
	if textVectorRef != "" {
		if err := o.store.InsertEmbedding(idgen.New(), memoryID, "text", textVectorRef); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("insert text embedding row for %s: %v", memoryID, err)
		}
	}
	if visionVectorRef != "" {
		if err := o.store.InsertEmbedding(idgen.New(), memoryID, "vision", visionVectorRef); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("insert vision embedding row for %s: %v", memoryID, err)
		}
	}

	if !ocrUsable && !visionOK && baseTextSource != "ocr" {
		// neither modality produced usable output; the card still
		// records a filename-derived placeholder, but the trace reflects
		// the failure.
		return o.store.FinishTrace(traceID, "error")
	}
	return o.store.FinishTrace(traceID, "done")
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// synthesizeEntitiesFromLabels turns image_caption's heuristic
// subject_labels into the same {type,name,confidence} shape the
// extractor tool produces, so graph_builder can treat them identically.
func synthesizeEntitiesFromLabels(subjectLabels []any) []any {
	entities := make([]any, 0, len(subjectLabels))
	for _, raw := range subjectLabels {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		confidence, _ := item["confidence"].(float64)
		if confidence < 0.20 {
			continue
		}
		name, _ := item["label"].(string)
		if name == "" {
			continue
		}
		entities = append(entities, map[string]any{
			"type":       "Topic",
			"name":       name,
			"confidence": confidence,
		})
		if len(entities) >= 5 {
			break
		}
	}
	return entities
}
