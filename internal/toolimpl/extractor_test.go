package toolimpl

import (
	"context"
	"testing"

	"mnemex/internal/tools"
)

func TestHeuristicExtractFindsOrgAndPersonEntities(t *testing.T) {
	text := "Alice Johnson met with the team at Acme Corp yesterday."
	result := heuristicExtract(text)

	foundOrg, foundPerson := false, false
	for _, e := range result.Entities {
		if e.Name == "Acme Corp" && e.Type == "Org" {
			foundOrg = true
		}
		if e.Name == "Alice Johnson" && e.Type == "Person" {
			foundPerson = true
		}
	}
	if !foundOrg {
		t.Errorf("expected Acme Corp to be classified as Org, got %+v", result.Entities)
	}
	if !foundPerson {
		t.Errorf("expected Alice Johnson to be classified as Person, got %+v", result.Entities)
	}
}

func TestExtractorToolFallsBackToHeuristicWithoutModel(t *testing.T) {
	tool := ExtractorTool(nil)
	out, err := tool.Execute(context.Background(), &tools.Envelope{
		Inputs: map[string]any{"content_text": "Bob Smith works at Globex Inc on the rollout."},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	entities, ok := out["entities"].([]any)
	if !ok || len(entities) == 0 {
		t.Fatalf("expected heuristic entities, got %v", out["entities"])
	}
}
