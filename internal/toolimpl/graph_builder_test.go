package toolimpl

import (
	"context"
	"path/filepath"
	"testing"

	"mnemex/internal/graph"
	"mnemex/internal/store"
	"mnemex/internal/tools"
)

func newTestGraphService(t *testing.T) *graph.Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	blobDir := filepath.Join(t.TempDir(), "blobs")
	s, err := store.Open(dbPath, blobDir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return graph.NewService(s)
}

func TestGraphBuilderToolUpsertsMemoryAndEntityNodes(t *testing.T) {
	svc := newTestGraphService(t)
	tool := GraphBuilderTool(svc)

	out, err := tool.Execute(context.Background(), &tools.Envelope{
		SpanID: "call-1",
		Inputs: map[string]any{
			"memory_id": "mem-1",
			"summary":   "a note about Acme Corp",
			"source":    "blob-1",
			"entities": []any{
				map[string]any{"type": "Org", "name": "Acme Corp", "confidence": 0.9},
			},
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	nodes, _ := out["nodes"].([]any)
	edges, _ := out["edges"].([]any)
	if len(nodes) != 2 {
		t.Errorf("expected 2 nodes (memory + entity), got %d", len(nodes))
	}
	if len(edges) != 1 {
		t.Errorf("expected 1 mentions edge, got %d", len(edges))
	}
}

func TestGraphBuilderToolSkipsEntitiesWithoutName(t *testing.T) {
	svc := newTestGraphService(t)
	tool := GraphBuilderTool(svc)

	out, err := tool.Execute(context.Background(), &tools.Envelope{
		SpanID: "call-2",
		Inputs: map[string]any{
			"memory_id": "mem-2",
			"entities": []any{
				map[string]any{"type": "Org", "confidence": 0.9},
			},
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	nodes, _ := out["nodes"].([]any)
	if len(nodes) != 1 {
		t.Errorf("expected only the memory node, got %d", len(nodes))
	}
}
