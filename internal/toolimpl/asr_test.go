package toolimpl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mnemex/internal/tools"
)

func TestASRToolFailsWithoutTranscriber(t *testing.T) {
	tool := ASRTool(nil)
	path := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := tool.Execute(context.Background(), &tools.Envelope{Inputs: map[string]any{"path": path}})
	if err == nil {
		t.Fatal("expected an error with no transcriber configured")
	}
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe([]byte) (string, error) { return f.text, nil }

func TestASRToolReturnsTranscribedText(t *testing.T) {
	tool := ASRTool(fakeTranscriber{text: "hello from the recording"})
	path := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	out, err := tool.Execute(context.Background(), &tools.Envelope{Inputs: map[string]any{"path": path}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content_text"] != "hello from the recording" {
		t.Errorf("expected transcribed text, got %v", out["content_text"])
	}
}
