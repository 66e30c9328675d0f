package store

import (
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	blobDir := filepath.Join(t.TempDir(), "blobs")
	s, err := Open(dbPath, blobDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	tables := []string{
		"blobs", "sources", "file_states", "jobs", "memory_cards",
		"embeddings", "graph_nodes", "graph_edges", "tool_calls",
		"exec_nodes", "exec_edges", "exec_traces", "conversation_turns",
		"chat_citations",
	}
	for _, table := range tables {
		if !tableExists(s.db, table) {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestUpsertBlobDedupesOnShaAndPath(t *testing.T) {
	s := openTestStore(t)

	b1, err := s.UpsertBlob("deadbeef", "/tmp/a.txt", "text/plain", 10)
	if err != nil {
		t.Fatalf("UpsertBlob: %v", err)
	}
	b2, err := s.UpsertBlob("deadbeef", "/tmp/a.txt", "text/plain", 10)
	if err != nil {
		t.Fatalf("UpsertBlob (second): %v", err)
	}
	if b1.BlobID != b2.BlobID {
		t.Errorf("expected same blob id on dedupe, got %s and %s", b1.BlobID, b2.BlobID)
	}

	b3, err := s.UpsertBlob("deadbeef", "/tmp/b.txt", "text/plain", 10)
	if err != nil {
		t.Fatalf("UpsertBlob (different path): %v", err)
	}
	if b3.BlobID == b1.BlobID {
		t.Error("expected distinct blob id for a different path with the same sha256")
	}
}

func TestEnqueueJobIsIdempotentOnTypeAndPayload(t *testing.T) {
	s := openTestStore(t)

	payload := map[string]any{"blob_id": "abc123"}
	id1, created1, err := s.EnqueueJob(JobTypeIngestBlob, payload)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if !created1 {
		t.Error("expected first enqueue to create a new job")
	}

	id2, created2, err := s.EnqueueJob(JobTypeIngestBlob, payload)
	if err != nil {
		t.Fatalf("EnqueueJob (dup): %v", err)
	}
	if created2 {
		t.Error("expected duplicate enqueue of a queued job to be a no-op")
	}
	if id1 != id2 {
		t.Errorf("expected same job id for duplicate enqueue, got %s and %s", id1, id2)
	}
}

func TestClaimJobSelectsOldestQueued(t *testing.T) {
	s := openTestStore(t)

	idA, _, err := s.EnqueueJob(JobTypeIngestBlob, map[string]any{"blob_id": "a"})
	if err != nil {
		t.Fatalf("EnqueueJob A: %v", err)
	}
	if _, _, err := s.EnqueueJob(JobTypeIngestBlob, map[string]any{"blob_id": "b"}); err != nil {
		t.Fatalf("EnqueueJob B: %v", err)
	}

	job, err := s.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job.JobID != idA {
		t.Errorf("expected oldest job %s to be claimed first, got %s", idA, job.JobID)
	}
	if job.Status != JobStatusRunning {
		t.Errorf("expected claimed job status 'running', got %s", job.Status)
	}
	if job.Attempt != 1 {
		t.Errorf("expected attempt 1 after first claim, got %d", job.Attempt)
	}

	if err := s.CompleteJob(job.JobID, true, ""); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	job2, err := s.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob (second): %v", err)
	}
	if job2.JobID == idA {
		t.Error("expected a completed job to not be claimable again")
	}
}

func TestClaimJobNoneAvailable(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.ClaimJob(); err != ErrNoJobAvailable {
		t.Errorf("expected ErrNoJobAvailable, got %v", err)
	}
}

func TestInsertMemoryCardTruncatesAndAvoidsPrefixCollision(t *testing.T) {
	s := openTestStore(t)

	content := "Sentence one is here. Sentence two follows. Sentence three ends it."
	card := &MemoryCard{
		MemoryID:    "mem:test1",
		CardType:    "doc",
		Summary:     content,
		ContentText: content,
		Metadata:    map[string]any{"blob_id": "blob1"},
	}
	if err := s.InsertMemoryCard(card); err != nil {
		t.Fatalf("InsertMemoryCard: %v", err)
	}

	if strings.HasPrefix(card.ContentText, card.Summary) {
		t.Error("expected summary to never be a verbatim prefix of content_text")
	}

	loaded, err := s.GetMemoryCard("mem:test1")
	if err != nil {
		t.Fatalf("GetMemoryCard: %v", err)
	}
	if loaded.ContentText != content {
		t.Errorf("expected content_text to round-trip unchanged, got %q", loaded.ContentText)
	}
}

func TestFindMemoryCardByBlobID(t *testing.T) {
	s := openTestStore(t)

	card := &MemoryCard{
		MemoryID:    "mem:test2",
		CardType:    "doc",
		Summary:     "short summary",
		ContentText: "much longer content body describing the document",
		Metadata:    map[string]any{"blob_id": "blob-xyz"},
	}
	if err := s.InsertMemoryCard(card); err != nil {
		t.Fatalf("InsertMemoryCard: %v", err)
	}

	found, err := s.FindMemoryCardByBlobID("blob-xyz")
	if err != nil {
		t.Fatalf("FindMemoryCardByBlobID: %v", err)
	}
	if found == nil || found.MemoryID != card.MemoryID {
		t.Errorf("expected to find card %s by blob id, got %+v", card.MemoryID, found)
	}

	notFound, err := s.FindMemoryCardByBlobID("does-not-exist")
	if err != nil {
		t.Fatalf("FindMemoryCardByBlobID (absent): %v", err)
	}
	if notFound != nil {
		t.Errorf("expected nil for unknown blob id, got %+v", notFound)
	}
}

func TestTruncateAtSentence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
	}{
		{"under limit", "short text", 100},
		{"exact sentence boundary", "One. Two. Three. Four. Five.", 15},
		{"no boundary found", "nosentenceboundaryatallinthisstring", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateAtSentence(tt.in, tt.max)
			if len(got) > tt.max {
				t.Errorf("TruncateAtSentence(%q, %d) = %q, len %d exceeds max", tt.in, tt.max, got, len(got))
			}
		})
	}
}

func TestUpsertAndGetGraphNode(t *testing.T) {
	s := openTestStore(t)

	n := &GraphNode{
		NodeID:     "ent:abcd1234abcd1234",
		NodeType:   "Person",
		Properties: map[string]any{"display_name": "Ada Lovelace"},
	}
	if err := s.UpsertNode(n); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	got, err := s.GetNode(n.NodeID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got == nil || got.NodeType != "Person" {
		t.Fatalf("expected node type Person, got %+v", got)
	}
	if got.Properties["display_name"] != "Ada Lovelace" {
		t.Errorf("expected display_name to round-trip, got %+v", got.Properties)
	}

	missing, err := s.GetNode("ent:doesnotexist")
	if err != nil {
		t.Fatalf("GetNode (missing): %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a node that does not exist")
	}
}

func TestEdgesForDirectionAndFilter(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"ent:a", "ent:b", "ent:c"} {
		if err := s.UpsertNode(&GraphNode{NodeID: id, NodeType: "Thing"}); err != nil {
			t.Fatalf("UpsertNode %s: %v", id, err)
		}
	}
	if err := s.UpsertEdge(&GraphEdge{EdgeID: "e1", FromNodeID: "ent:a", ToNodeID: "ent:b", EdgeType: "related_to", Weight: 1}); err != nil {
		t.Fatalf("UpsertEdge e1: %v", err)
	}
	if err := s.UpsertEdge(&GraphEdge{EdgeID: "e2", FromNodeID: "ent:c", ToNodeID: "ent:a", EdgeType: "mentions", Weight: 1}); err != nil {
		t.Fatalf("UpsertEdge e2: %v", err)
	}

	out, err := s.EdgesFor("ent:a", DirectionOut, nil, "", "")
	if err != nil {
		t.Fatalf("EdgesFor out: %v", err)
	}
	if len(out) != 1 || out[0].EdgeID != "e1" {
		t.Errorf("expected only e1 outbound from ent:a, got %+v", out)
	}

	in, err := s.EdgesFor("ent:a", DirectionIn, nil, "", "")
	if err != nil {
		t.Fatalf("EdgesFor in: %v", err)
	}
	if len(in) != 1 || in[0].EdgeID != "e2" {
		t.Errorf("expected only e2 inbound to ent:a, got %+v", in)
	}

	both, err := s.EdgesFor("ent:a", DirectionBoth, nil, "", "")
	if err != nil {
		t.Fatalf("EdgesFor both: %v", err)
	}
	if len(both) != 2 {
		t.Errorf("expected 2 edges touching ent:a, got %d", len(both))
	}

	filtered, err := s.EdgesFor("ent:a", DirectionBoth, []string{"mentions"}, "", "")
	if err != nil {
		t.Fatalf("EdgesFor filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].EdgeID != "e2" {
		t.Errorf("expected only the mentions edge, got %+v", filtered)
	}
}

func TestConversationTurnAndCitations(t *testing.T) {
	s := openTestStore(t)

	turn := &ConversationTurn{
		UserText:      "what did I read about Ada Lovelace?",
		AssistantText: "She designed an early algorithm for the Analytical Engine.",
		Verdict:       "pass",
		TraceID:       "trace1",
	}
	if err := s.InsertConversationTurn(turn); err != nil {
		t.Fatalf("InsertConversationTurn: %v", err)
	}
	if turn.TurnID == "" {
		t.Fatal("expected InsertConversationTurn to assign a turn id")
	}

	citation := &ChatCitation{TurnID: turn.TurnID, MemoryID: "mem:test1", Quote: "an early algorithm", SpanStart: 10, SpanEnd: 29}
	if err := s.InsertChatCitation(citation); err != nil {
		t.Fatalf("InsertChatCitation: %v", err)
	}

	cites, err := s.CitationsForTurn(turn.TurnID)
	if err != nil {
		t.Fatalf("CitationsForTurn: %v", err)
	}
	if len(cites) != 1 || cites[0].MemoryID != "mem:test1" {
		t.Errorf("expected 1 citation for mem:test1, got %+v", cites)
	}
}

func TestOpenTraceFinishTraceIsTerminalOnce(t *testing.T) {
	s := openTestStore(t)

	if err := s.OpenTrace("trace-abc", map[string]any{"kind": "ingest_blob"}); err != nil {
		t.Fatalf("OpenTrace: %v", err)
	}

	tr, err := s.GetTrace("trace-abc")
	if err != nil {
		t.Fatalf("GetTrace: %v", err)
	}
	if tr == nil || tr.Status != "running" {
		t.Fatalf("expected running trace, got %+v", tr)
	}

	if err := s.FinishTrace("trace-abc", "done"); err != nil {
		t.Fatalf("FinishTrace: %v", err)
	}

	tr2, err := s.GetTrace("trace-abc")
	if err != nil {
		t.Fatalf("GetTrace (after finish): %v", err)
	}
	if tr2.Status != "done" {
		t.Errorf("expected status done, got %s", tr2.Status)
	}
}
