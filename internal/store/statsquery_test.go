package store

import (
	"context"
	"testing"

	"mnemex/internal/tools"
)

func TestJobCountsGroupsByStatus(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.EnqueueJob(JobTypeIngestBlob, map[string]any{"blob_id": "a"}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	jobID, _, err := s.EnqueueJob(JobTypeIngestBlob, map[string]any{"blob_id": "b"})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if err := s.CompleteJob(jobID, true, ""); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	counts, err := s.JobCounts()
	if err != nil {
		t.Fatalf("JobCounts: %v", err)
	}
	if counts["queued"] != 1 {
		t.Errorf("expected 1 queued job, got %d", counts["queued"])
	}
	if counts["done"] != 1 {
		t.Errorf("expected 1 done job, got %d", counts["done"])
	}
}

func TestTraceCountsGroupsByStatus(t *testing.T) {
	s := openTestStore(t)

	if err := s.OpenTrace("trace-1", nil); err != nil {
		t.Fatalf("OpenTrace: %v", err)
	}
	if err := s.OpenTrace("trace-2", nil); err != nil {
		t.Fatalf("OpenTrace: %v", err)
	}
	if err := s.FinishTrace("trace-2", "done"); err != nil {
		t.Fatalf("FinishTrace: %v", err)
	}

	counts, err := s.TraceCounts()
	if err != nil {
		t.Fatalf("TraceCounts: %v", err)
	}
	if counts["running"] != 1 {
		t.Errorf("expected 1 running trace, got %d", counts["running"])
	}
	if counts["done"] != 1 {
		t.Errorf("expected 1 done trace, got %d", counts["done"])
	}
}

func TestGraphCountsAndMemoryCardCountStartAtZero(t *testing.T) {
	s := openTestStore(t)

	nodes, edges, err := s.GraphCounts()
	if err != nil {
		t.Fatalf("GraphCounts: %v", err)
	}
	if nodes != 0 || edges != 0 {
		t.Errorf("expected zero nodes/edges on a fresh store, got nodes=%d edges=%d", nodes, edges)
	}

	cards, err := s.MemoryCardCount()
	if err != nil {
		t.Fatalf("MemoryCardCount: %v", err)
	}
	if cards != 0 {
		t.Errorf("expected zero memory cards, got %d", cards)
	}
}

func TestExecNodesForTraceOrdersByStartAndResolvesPredecessor(t *testing.T) {
	s := openTestStore(t)
	tracer := NewTraceStore(s)
	ctx := context.Background()

	first := &tools.Envelope{TraceID: "trace-why", SpanID: "call-1", Callee: "doc_parse"}
	if err := tracer.RecordStart(ctx, first); err != nil {
		t.Fatalf("RecordStart first: %v", err)
	}
	if err := tracer.RecordFinish(ctx, &tools.Result{TraceID: "trace-why", SpanID: "call-1", Status: tools.StatusOK}); err != nil {
		t.Fatalf("RecordFinish first: %v", err)
	}

	second := &tools.Envelope{TraceID: "trace-why", SpanID: "call-2", Callee: "summarizer"}
	if err := tracer.RecordStart(ctx, second); err != nil {
		t.Fatalf("RecordStart second: %v", err)
	}
	if err := tracer.RecordFinish(ctx, &tools.Result{TraceID: "trace-why", SpanID: "call-2", Status: tools.StatusOK}); err != nil {
		t.Fatalf("RecordFinish second: %v", err)
	}

	if err := s.LinkExecNodes(ctx, "trace-why", "call-1", "call-2", "sequential"); err != nil {
		t.Fatalf("LinkExecNodes: %v", err)
	}

	nodes, err := s.ExecNodesForTrace("trace-why")
	if err != nil {
		t.Fatalf("ExecNodesForTrace: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 exec nodes, got %d", len(nodes))
	}
	if nodes[0].ToolName != "doc_parse" || nodes[1].ToolName != "summarizer" {
		t.Errorf("expected doc_parse then summarizer, got %s then %s", nodes[0].ToolName, nodes[1].ToolName)
	}
	if nodes[0].Predecessor != "" {
		t.Errorf("expected the first node to have no predecessor, got %q", nodes[0].Predecessor)
	}
	if nodes[1].Predecessor != "doc_parse" {
		t.Errorf("expected the second node's predecessor to resolve to doc_parse, got %q", nodes[1].Predecessor)
	}
}
