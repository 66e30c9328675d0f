package toolimpl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mnemex/internal/tools"
)

func TestIsOCRMeaningfulRejectsShortText(t *testing.T) {
	if IsOCRMeaningful("hi", 90, true) {
		t.Error("expected short text to be rejected")
	}
}

func TestIsOCRMeaningfulRejectsLowConfidence(t *testing.T) {
	text := "This is a perfectly reasonable sentence of real words."
	if IsOCRMeaningful(text, 10, true) {
		t.Error("expected low-confidence text to be rejected")
	}
}

func TestIsOCRMeaningfulRejectsRepeatedCharNoise(t *testing.T) {
	if IsOCRMeaningful("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 90, true) {
		t.Error("expected repeated-character noise to be rejected")
	}
}

func TestIsOCRMeaningfulAcceptsRealText(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog near the river bank."
	if !IsOCRMeaningful(text, 90, true) {
		t.Error("expected plausible OCR text to be accepted")
	}
}

func TestOCRToolFallsBackToFailedWithoutEngine(t *testing.T) {
	tool := OCRTool(nil)
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	out, err := tool.Execute(context.Background(), &tools.Envelope{Inputs: map[string]any{"path": path}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["status"] != "failed" {
		t.Errorf("expected failed status with no engine configured, got %v", out["status"])
	}
}

type fakeOCREngine struct {
	text string
	conf float64
	err  error
}

func (f fakeOCREngine) Recognize([]byte) (string, float64, error) {
	return f.text, f.conf, f.err
}

func TestOCRToolReturnsSuccessFromEngine(t *testing.T) {
	tool := OCRTool(fakeOCREngine{text: "hello world", conf: 85})
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	out, err := tool.Execute(context.Background(), &tools.Envelope{Inputs: map[string]any{"path": path}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["status"] != "success" {
		t.Errorf("expected success, got %v", out["status"])
	}
	if out["text"] != "hello world" {
		t.Errorf("expected recognized text, got %v", out["text"])
	}
}
