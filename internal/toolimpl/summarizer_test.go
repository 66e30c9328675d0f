package toolimpl

import (
	"context"
	"strings"
	"testing"

	"mnemex/internal/tools"
)

func TestSummarizerToolFallsBackToTruncation(t *testing.T) {
	tool := SummarizerTool(nil)
	longText := strings.Repeat("This is a sentence about the project status. ", 50)

	out, err := tool.Execute(context.Background(), &tools.Envelope{
		Inputs: map[string]any{"content_text": longText, "title": "Status Update"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["llm_used"] != false {
		t.Errorf("expected llm_used false without a generative client, got %v", out["llm_used"])
	}
	summary, _ := out["summary"].(string)
	if summary == "" || len(summary) > 400 {
		t.Errorf("expected a non-empty, capped summary, got %d chars", len(summary))
	}
}
