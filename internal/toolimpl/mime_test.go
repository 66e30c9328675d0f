package toolimpl

import (
	"context"
	"testing"

	"mnemex/internal/tools"
)

func TestDetectMimeSniffsMagicBytes(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	if got := DetectMime("photo.dat", png); got != "image/png" {
		t.Errorf("expected image/png, got %q", got)
	}
}

func TestDetectMimeFallsBackToExtension(t *testing.T) {
	got := DetectMime("notes.md", []byte("plain ascii text"))
	if got != "text/markdown" {
		t.Errorf("expected extension fallback to text/markdown, got %q", got)
	}
}

func TestMimeDetectToolExecute(t *testing.T) {
	tool := MimeDetectTool()
	env := &tools.Envelope{Inputs: map[string]any{"path": "a.json", "sample": `{"a":1}`}}
	out, err := tool.Execute(context.Background(), env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["mime"] != "application/json" {
		t.Errorf("expected application/json, got %v", out["mime"])
	}
}
