package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/retrieval"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
)

const maxChatMessageChars = 50000

// Chat answers message by retrieving evidence, weaving a cited answer,
// verifying it against the evidence, and persisting the turn.
func (o *Orchestrator) Chat(ctx context.Context, message string, topK int, useGraph bool, hops int) (*ChatResult, error) {
	traceID := idgen.New()

	if len(message) > maxChatMessageChars || strings.ContainsRune(message, 0) {
		if err := o.store.OpenTrace(traceID, map[string]any{"reason": "rejected_input"}); err == nil {
			_ = o.store.FinishTrace(traceID, "rejected")
		}
		return &ChatResult{
			TraceID: traceID,
			Answer:  "That message can't be processed.",
			Status:  statusRejected,
		}, nil
	}

	if err := o.store.OpenTrace(traceID, map[string]any{"message_length": len(message)}); err != nil {
		return nil, fmt.Errorf("chat: open trace: %w", err)
	}

	if topK <= 0 {
		topK = 10
	}

	candidates, err := o.retriever.Search(ctx, retrieval.Query{
		Text:           message,
		TopK:           topK,
		UseSemantic:    true,
		UseGraph:       useGraph,
		Hops:           hops,
		LexicalCandCap: topK * 3,
	})
	if err != nil {
		logging.Get(logging.CategoryChat).Warn("retrieval failed: %v", err)
	}

	evidence := make([]Evidence, 0, len(candidates))
	evidenceInputs := make([]any, 0, len(candidates))
	for _, c := range candidates {
		evidence = append(evidence, Evidence{
			MemoryID:   c.MemoryID,
			Summary:    c.Summary,
			Snippet:    c.Snippet,
			SourceType: c.SourceType,
			CreatedAt:  c.CreatedAt,
			Score:      c.Score,
			Reasons:    c.Reasons,
		})
		evidenceInputs = append(evidenceInputs, map[string]any{
			"memory_id":   c.MemoryID,
			"summary":     c.Summary,
			"snippet":     c.Snippet,
			"source_type": c.SourceType,
			"created_at":  c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"score":       c.Score,
			"reasons":     c.Reasons,
		})
	}

	// Evidence above is already built from this same search, so the
	// dispatch below never pays for a second call. It still records a
	// traced retrieval call/exec-node/exec-edge like every other step,
	// passing the already-computed candidates through _results_override
	// the same way weaver/verifier pass through _llm_override.
	retrievalInputs := map[string]any{
		"query":             message,
		"top_k":             float64(topK),
		"use_graph":         useGraph,
		"hops":              float64(hops),
		"_results_override": evidenceInputs,
	}
	retrievalResult, err := o.dispatch(ctx, traceID, "retrieval", retrievalInputs, "")
	retrievalSpanID := ""
	if err != nil {
		logging.Get(logging.CategoryChat).Warn("retrieval dispatch: %v", err)
	} else if retrievalResult != nil {
		retrievalSpanID = retrievalResult.SpanID
	}

	weaveInputs := map[string]any{"question": message, "evidence": evidenceInputs}
	if override := o.precomputeWeave(ctx, message, evidenceInputs); override != "" {
		weaveInputs["_llm_override"] = override
	}
	weaveResult, err := o.dispatch(ctx, traceID, "weaver", weaveInputs, retrievalSpanID)
	if err != nil || weaveResult == nil {
		_ = o.store.FinishTrace(traceID, "error")
		return nil, fmt.Errorf("chat: weaver: %w", err)
	}

	answer := stepString(weaveResult.Outputs, "answer")
	rawCitations, _ := weaveResult.Outputs["citations"].([]any)

	verifyInputs := map[string]any{
		"question":  message,
		"answer":    answer,
		"evidence":  evidenceInputs,
		"citations": rawCitations,
	}
	if override := o.precomputeVerify(ctx, message, answer, evidenceInputs); override != "" {
		verifyInputs["_llm_override"] = override
	}
	verifyResult, err := o.dispatch(ctx, traceID, "verifier", verifyInputs, weaveResult.SpanID)
	verdict := "pass"
	if err == nil && verifyResult != nil && verifyResult.IsSuccess() {
		verdict = stepString(verifyResult.Outputs, "verdict")
		switch verdict {
		case "revise":
			if revised := stepString(verifyResult.Outputs, "revised_answer"); revised != "" {
				answer = revised
			}
		case "abstain":
			issues, _ := verifyResult.Outputs["issues"].([]any)
			answer = toolimpl.AbstainMessage
			if len(issues) > 0 {
				answer = fmt.Sprintf("%s (%v)", toolimpl.AbstainMessage, issues)
			}
		}
	}

	citations := buildCitations(rawCitations, evidence)

	turn := &store.ConversationTurn{
		UserText:      message,
		AssistantText: answer,
		Verdict:       verdict,
		TraceID:       traceID,
	}
	if err := o.store.InsertConversationTurn(turn); err != nil {
		logging.Get(logging.CategoryChat).Warn("insert conversation turn: %v", err)
	} else {
		for _, c := range citations {
			if err := o.store.InsertChatCitation(&store.ChatCitation{
				TurnID:   turn.TurnID,
				MemoryID: c.MemoryID,
				Quote:    c.Quote,
			}); err != nil {
				logging.Get(logging.CategoryChat).Warn("insert chat citation: %v", err)
			}
		}
	}

	if err := o.store.FinishTrace(traceID, "done"); err != nil {
		logging.Get(logging.CategoryChat).Warn("finish trace: %v", err)
	}

	return &ChatResult{
		TraceID:   traceID,
		Answer:    answer,
		Verdict:   verdict,
		Citations: citations,
		Evidence:  evidence,
		Status:    statusOK,
	}, nil
}

// precomputeWeave runs the same call WeaverTool would make, so the
// dispatch below can pass it through _llm_override and still trace the
// step without a second invocation. Returns "" when no generative
// model is reachable, letting the tool fall back to its own stub path.
func (o *Orchestrator) precomputeWeave(ctx context.Context, question string, evidenceInputs []any) string {
	if o.gen == nil || !o.gen.Reachable(ctx) {
		return ""
	}
	prompt := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", question, toolimpl.FormatEvidence(evidenceInputs))
	raw, err := o.gen.Generate(ctx, toolimpl.WeaverSystemPrompt, prompt, true)
	if err != nil {
		return ""
	}
	return raw
}

func (o *Orchestrator) precomputeVerify(ctx context.Context, question, answer string, evidenceInputs []any) string {
	if o.gen == nil || !o.gen.Reachable(ctx) {
		return ""
	}
	prompt := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nEvidence:\n%s", question, answer, toolimpl.FormatEvidence(evidenceInputs))
	raw, err := o.gen.Generate(ctx, toolimpl.VerifierSystemPrompt, prompt, true)
	if err != nil {
		return ""
	}
	return raw
}

func buildCitations(raw []any, evidence []Evidence) []Citation {
	byID := make(map[string]Evidence, len(evidence))
	for _, e := range evidence {
		byID[e.MemoryID] = e
	}

	citations := make([]Citation, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		memoryID, _ := m["memory_id"].(string)
		e, known := byID[memoryID]
		if !known {
			continue
		}
		quote, _ := m["quote"].(string)
		citations = append(citations, Citation{
			MemoryID:   memoryID,
			Quote:      quote,
			SourceType: e.SourceType,
			CreatedAt:  e.CreatedAt,
		})
		if len(citations) >= 8 {
			break
		}
	}
	return citations
}
