package toolimpl

import (
	"testing"

	"mnemex/internal/tools"
)

func TestRegisterAllRegistersEveryTool(t *testing.T) {
	reg := tools.NewRegistry(nil)
	RegisterAll(reg, Config{})

	expected := []string{
		"mime_detect", "doc_parse", "asr", "ocr", "image_caption",
		"summarizer", "extractor", "text_embed", "vision_embed",
		"graph_builder", "retrieval", "weaver", "verifier",
	}
	for _, name := range expected {
		if reg.Get(name) == nil {
			t.Errorf("expected tool %q to be registered", name)
		}
	}
	if reg.Count() != len(expected) {
		t.Errorf("expected %d tools registered, got %d", len(expected), reg.Count())
	}
}
