package toolimpl

import (
	"context"
	"testing"

	"mnemex/internal/tools"
)

func TestDocParseToolUsesPreReadText(t *testing.T) {
	tool := DocParseTool(nil)
	out, err := tool.Execute(context.Background(), &tools.Envelope{
		Inputs: map[string]any{"path": "notes.txt", "text": "already extracted content"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content_text"] != "already extracted content" {
		t.Errorf("expected pre-read text passed through, got %v", out["content_text"])
	}
}

func TestDocParseToolFailsWithoutTextOrReachableTika(t *testing.T) {
	tool := DocParseTool(nil)
	_, err := tool.Execute(context.Background(), &tools.Envelope{
		Inputs: map[string]any{"path": "/nonexistent/path/does/not/exist.bin"},
	})
	if err == nil {
		t.Fatal("expected an error when the path can't be read and no text was pre-supplied")
	}
}
