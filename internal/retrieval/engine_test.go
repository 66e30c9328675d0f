package retrieval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mnemex/internal/graph"
	"mnemex/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *graph.Service) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	blobDir := filepath.Join(t.TempDir(), "blobs")
	s, err := store.Open(dbPath, blobDir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	gsvc := graph.NewService(s)
	return NewEngine(s, gsvc, nil), s, gsvc
}

func insertCard(t *testing.T, s *store.Store, id, summary, content, sourceType string, createdAt time.Time) {
	t.Helper()
	card := &store.MemoryCard{
		MemoryID:    id,
		CardType:    "document",
		Summary:     summary,
		ContentText: content,
		Metadata:    map[string]any{"source_type": sourceType},
	}
	if err := s.InsertMemoryCard(card); err != nil {
		t.Fatalf("InsertMemoryCard: %v", err)
	}
	if !createdAt.IsZero() {
		if _, err := s.DB().Exec(`UPDATE memory_cards SET created_at = ? WHERE memory_id = ?`,
			createdAt.UTC().Format(time.RFC3339), id); err != nil {
			t.Fatalf("backdate created_at: %v", err)
		}
	}
}

func TestSearchLexicalOnlyFindsMatchingCard(t *testing.T) {
	e, s, _ := newTestEngine(t)
	insertCard(t, s, "mem:doc1", "Kubernetes ingress setup notes", "how to configure kubernetes ingress", "file_capture", time.Now())
	insertCard(t, s, "mem:doc2", "Grocery list for the week", "eggs milk bread", "file_capture", time.Now())

	results, err := e.Search(context.Background(), Query{Text: "kubernetes ingress", TopK: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].MemoryID != "mem:doc1" {
		t.Fatalf("expected only mem:doc1, got %+v", results)
	}
	if !containsReason(results[0].Reasons, "fts_match") {
		t.Errorf("expected fts_match reason, got %v", results[0].Reasons)
	}
}

func TestSearchDropsBelowScoreFloor(t *testing.T) {
	e, s, _ := newTestEngine(t)
	// A card with no matching terms at all should never surface.
	insertCard(t, s, "mem:doc1", "completely unrelated content", "nothing to do with the query", "file_capture", time.Now())

	results, err := e.Search(context.Background(), Query{Text: "kubernetes ingress", TopK: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results below score floor, got %+v", results)
	}
}

func TestSearchAppliesSourceTypeFilter(t *testing.T) {
	e, s, _ := newTestEngine(t)
	insertCard(t, s, "mem:doc1", "kubernetes ingress setup", "kubernetes ingress setup", "browser_visit", time.Now())

	results, err := e.Search(context.Background(), Query{
		Text:        "kubernetes ingress",
		TopK:        5,
		SourceTypes: []string{"file_capture"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected card filtered out by source_type allow-list, got %+v", results)
	}
}

func TestSearchGraphExpansionFindsEntityLinkedCard(t *testing.T) {
	e, s, gsvc := newTestEngine(t)
	insertCard(t, s, "seed", "Alice's project notes", "Alice leads the ingress migration kubernetes project", "file_capture", time.Now())
	insertCard(t, s, "other", "Unrelated standup notes", "standup notes about the weekly sync", "file_capture", time.Now())

	if _, err := gsvc.UpsertMemoryNode("seed", "Alice's project notes"); err != nil {
		t.Fatalf("UpsertMemoryNode seed: %v", err)
	}
	if _, err := gsvc.UpsertMemoryNode("other", "Unrelated standup notes"); err != nil {
		t.Fatalf("UpsertMemoryNode other: %v", err)
	}
	alice, err := gsvc.UpsertEntity(graph.NodeTypePerson, "Alice", 0.9, nil)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if _, err := gsvc.UpsertEdge(graph.MemoryNodeID("seed"), graph.EdgeTypeMentions, alice.NodeID, 1.0, "", "", nil); err != nil {
		t.Fatalf("UpsertEdge seed->alice: %v", err)
	}
	if _, err := gsvc.UpsertEdge(graph.MemoryNodeID("other"), graph.EdgeTypeMentions, alice.NodeID, 1.0, "", "", nil); err != nil {
		t.Fatalf("UpsertEdge other->alice: %v", err)
	}

	results, err := e.Search(context.Background(), Query{
		Text:     "Alice ingress kubernetes",
		TopK:     5,
		UseGraph: true,
		Hops:     1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	found := false
	for _, r := range results {
		if r.MemoryID == "other" {
			found = true
			if r.Graph != graphHop1Score {
				t.Errorf("expected graph score %v for hop-1 candidate, got %v", graphHop1Score, r.Graph)
			}
			if !containsReason(r.Reasons, "graph_expand") {
				t.Errorf("expected graph_expand reason, got %v", r.Reasons)
			}
		}
	}
	if !found {
		t.Fatalf("expected other to be reached via graph expansion, got %+v", results)
	}
}

func TestSanitizeFTSQueryStripsSyntaxAndJoinsWithOR(t *testing.T) {
	got := sanitizeFTSQuery(`"ingress" AND (kubernetes) setup?!`)
	want := `"ingress" OR "AND" OR "kubernetes" OR "setup"`
	if got != want {
		t.Errorf("sanitizeFTSQuery = %q, want %q", got, want)
	}
}

func TestSanitizeFTSQueryDropsPurePunctuation(t *testing.T) {
	got := sanitizeFTSQuery(`hello --- world`)
	want := `"hello" OR "world"`
	if got != want {
		t.Errorf("sanitizeFTSQuery = %q, want %q", got, want)
	}
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
