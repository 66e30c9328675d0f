package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/tools"
)

// TraceStore wraps a Store to satisfy tools.Tracer, persisting the
// tool_calls/exec_nodes tables around a dispatch and exec_traces at the
// orchestrator level. A TraceStore is stateless beyond the Store it
// wraps; it can be shared freely across goroutines.
type TraceStore struct {
	s *Store
}

// NewTraceStore returns a tools.Tracer backed by s.
func NewTraceStore(s *Store) *TraceStore {
	return &TraceStore{s: s}
}

var _ tools.Tracer = (*TraceStore)(nil)

// RecordStart persists a running tool_calls row and a running
// exec_nodes row keyed by env.SpanID.
func (t *TraceStore) RecordStart(ctx context.Context, env *tools.Envelope) error {
	inputsJSON, err := json.Marshal(env.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	_, err = t.s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (call_id, tool_name, trace_id, started_at, inputs_json, status)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?, 'running')`,
		env.SpanID, env.Callee, env.TraceID, string(inputsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert tool_call: %w", err)
	}

	_, err = t.s.db.ExecContext(ctx,
		`INSERT INTO exec_nodes (exec_node_id, call_id, trace_id, tool_name, state, attempt, declared_timeout_ms, started_at)
		 VALUES (?, ?, ?, ?, 'running', 1, ?, CURRENT_TIMESTAMP)`,
		idgen.New(), env.SpanID, env.TraceID, env.Callee, env.Constraints.TimeoutMs,
	)
	if err != nil {
		return fmt.Errorf("insert exec_node: %w", err)
	}
	return nil
}

// RecordFinish updates the tool_calls and exec_nodes rows for
// result.SpanID to their terminal state.
func (t *TraceStore) RecordFinish(ctx context.Context, result *tools.Result) error {
	outputsJSON, err := json.Marshal(result.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	_, err = t.s.db.ExecContext(ctx,
		`UPDATE tool_calls SET status = ?, outputs_json = ? WHERE call_id = ?`,
		string(result.Status), string(outputsJSON), result.SpanID,
	)
	if err != nil {
		return fmt.Errorf("update tool_call: %w", err)
	}

	_, err = t.s.db.ExecContext(ctx,
		`UPDATE exec_nodes SET state = ?, finished_at = CURRENT_TIMESTAMP WHERE call_id = ?`,
		string(result.Status), result.SpanID,
	)
	if err != nil {
		return fmt.Errorf("update exec_node: %w", err)
	}
	return nil
}

// LinkExecNodes records a sequential or parallel edge between two tool
// calls within the same trace, used by the orchestrator to record
// pipeline shape (e.g. doc_parse -> summarizer). The image pipeline's
// OCR and vision_embed calls both start the trace, so no edge links
// them to a predecessor.
func (s *Store) LinkExecNodes(ctx context.Context, traceID, fromCallID, toCallID, condition string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exec_edges (from_exec_node_id, to_exec_node_id, condition, trace_id) VALUES (?, ?, ?, ?)
		 ON CONFLICT(from_exec_node_id, to_exec_node_id) DO UPDATE SET condition = excluded.condition`,
		fromCallID, toCallID, condition, traceID,
	)
	return err
}

// ExecTrace mirrors the orchestrator-level trace row: the overall
// status of one ingest_blob or chat invocation, distinct from the
// per-tool-call granularity of tool_calls/exec_nodes.
type ExecTrace struct {
	TraceID    string
	Status     string
	Metadata   map[string]any
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// OpenTrace creates a new exec_traces row in status "running".
func (s *Store) OpenTrace(traceID string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO exec_traces (trace_id, status, metadata_json) VALUES (?, 'running', ?)`,
		traceID, string(metaJSON),
	)
	return err
}

// FinishTrace writes the terminal state of a trace exactly once: the
// orchestrator calls this on done/error/rejected and never again.
func (s *Store) FinishTrace(traceID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE exec_traces SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE trace_id = ?`,
		status, traceID,
	)
	return err
}

// GetTrace loads an exec_traces row by id, returning nil, nil if absent.
func (s *Store) GetTrace(traceID string) (*ExecTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tr ExecTrace
	var metaJSON string
	err := s.db.QueryRow(
		`SELECT trace_id, status, metadata_json, started_at, finished_at FROM exec_traces WHERE trace_id = ?`,
		traceID,
	).Scan(&tr.TraceID, &tr.Status, &metaJSON, &tr.StartedAt, &tr.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(metaJSON), &tr.Metadata)

	logging.Get(logging.CategoryOrchestrator).Debug("loaded trace %s status=%s", tr.TraceID, tr.Status)
	return &tr, nil
}
