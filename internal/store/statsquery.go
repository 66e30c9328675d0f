package store

// JobCounts returns the number of queue rows in each status
// ("queued", "running", "done", "error"), used by the status subcommand to
// report queue depth.
func (s *Store) JobCounts() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// TraceCounts returns the number of exec_traces rows in each status
// ("running", "done", "error", "rejected").
func (s *Store) TraceCounts() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM exec_traces GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GraphCounts returns the total node and edge row counts.
func (s *Store) GraphCounts() (nodes, edges int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err = s.db.QueryRow(`SELECT COUNT(*) FROM graph_nodes`).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM graph_edges`).Scan(&edges); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

// MemoryCardCount returns the total number of ingested memory cards.
func (s *Store) MemoryCardCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memory_cards`).Scan(&n)
	return n, err
}

// ExecNode is one row of a trace's tool-call graph, joined with the
// exec_edges that feed into it, used by the why subcommand to render a
// trace's dispatch shape in order.
type ExecNode struct {
	ExecNodeID  string
	CallID      string
	ToolName    string
	State       string
	StartedAt   string
	FinishedAt  string
	Predecessor string // tool_name of the call feeding this node, if any
}

// ExecNodesForTrace lists every exec_nodes row for traceID in start
// order, with the preceding node's tool name (if any) resolved from
// exec_edges. exec_edges.from_exec_node_id/to_exec_node_id are keyed by
// call_id, not exec_node_id, matching how dispatch links nodes.
func (s *Store) ExecNodesForTrace(traceID string) ([]*ExecNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT exec_node_id, call_id, tool_name, state,
		        COALESCE(started_at, ''), COALESCE(finished_at, '')
		 FROM exec_nodes WHERE trace_id = ? ORDER BY started_at ASC`,
		traceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ExecNode
	toolByCallID := make(map[string]string)
	for rows.Next() {
		n := &ExecNode{}
		if err := rows.Scan(&n.ExecNodeID, &n.CallID, &n.ToolName, &n.State, &n.StartedAt, &n.FinishedAt); err != nil {
			return nil, err
		}
		toolByCallID[n.CallID] = n.ToolName
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	predecessors, err := s.execEdgePredecessors(traceID)
	if err != nil {
		return nil, err
	}
	for _, n := range out {
		if fromCallID := predecessors[n.CallID]; fromCallID != "" {
			n.Predecessor = toolByCallID[fromCallID]
		}
	}
	return out, nil
}

// execEdgePredecessors returns a map from a call's id to the id of the
// call that precedes it, keyed by call_id as stored by LinkExecNodes.
func (s *Store) execEdgePredecessors(traceID string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT to_exec_node_id, from_exec_node_id FROM exec_edges WHERE trace_id = ?`,
		traceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var to, from string
		if err := rows.Scan(&to, &from); err != nil {
			return nil, err
		}
		out[to] = from
	}
	return out, rows.Err()
}
