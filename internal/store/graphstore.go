package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"mnemex/internal/logging"
)

// GraphNode is a property-graph node (a memory card or a canonicalized entity).
type GraphNode struct {
	NodeID     string
	NodeType   string
	Properties map[string]any
	CreatedAt  time.Time
}

// GraphEdge is a directed, typed, weighted link between two nodes.
type GraphEdge struct {
	EdgeID      string
	FromNodeID  string
	ToNodeID    string
	EdgeType    string
	Weight      float64
	ValidFrom   string
	ValidTo     string
	Provenance  map[string]any
	CreatedAt   time.Time
}

// UpsertNode inserts or replaces a node by node_id.
func (s *Store) UpsertNode(n *GraphNode) error {
	propsJSON, err := json.Marshal(n.Properties)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO graph_nodes (node_id, node_type, properties_json) VALUES (?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET node_type = excluded.node_type, properties_json = excluded.properties_json`,
		n.NodeID, n.NodeType, string(propsJSON),
	)
	if err != nil {
		logging.Get(logging.CategoryGraph).Error("upsert node %s failed: %v", n.NodeID, err)
	}
	return err
}

// UpsertEdge inserts or replaces an edge by edge_id.
func (s *Store) UpsertEdge(e *GraphEdge) error {
	provJSON, err := json.Marshal(e.Provenance)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO graph_edges (edge_id, from_node_id, to_node_id, edge_type, weight, valid_from, valid_to, provenance_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(edge_id) DO UPDATE SET
		   weight = excluded.weight, valid_from = excluded.valid_from,
		   valid_to = excluded.valid_to, provenance_json = excluded.provenance_json`,
		e.EdgeID, e.FromNodeID, e.ToNodeID, e.EdgeType, e.Weight, e.ValidFrom, e.ValidTo, string(provJSON),
	)
	if err != nil {
		logging.Get(logging.CategoryGraph).Error("upsert edge %s failed: %v", e.EdgeID, err)
	}
	return err
}

// GetNode loads a node by id. Returns nil, nil if absent.
func (s *Store) GetNode(nodeID string) (*GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n GraphNode
	var propsJSON string
	err := s.db.QueryRow(
		`SELECT node_id, node_type, properties_json, created_at FROM graph_nodes WHERE node_id = ?`, nodeID,
	).Scan(&n.NodeID, &n.NodeType, &propsJSON, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(propsJSON), &n.Properties)
	return &n, nil
}

// Direction selects which side of an edge Neighbors/EdgesFor traverses.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// EdgesFor returns every edge touching nodeID in the given direction,
// optionally filtered by edge type and by a [from, to) RFC3339 time
// window matched against the edge's created_at.
func (s *Store) EdgesFor(nodeID string, dir Direction, edgeTypeFilter []string, timeFrom, timeTo string) ([]*GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	args := []any{}
	switch dir {
	case DirectionOut:
		query = `SELECT edge_id, from_node_id, to_node_id, edge_type, weight, valid_from, valid_to, provenance_json, created_at
		          FROM graph_edges WHERE from_node_id = ?`
		args = append(args, nodeID)
	case DirectionIn:
		query = `SELECT edge_id, from_node_id, to_node_id, edge_type, weight, valid_from, valid_to, provenance_json, created_at
		          FROM graph_edges WHERE to_node_id = ?`
		args = append(args, nodeID)
	default:
		query = `SELECT edge_id, from_node_id, to_node_id, edge_type, weight, valid_from, valid_to, provenance_json, created_at
		          FROM graph_edges WHERE from_node_id = ? OR to_node_id = ?`
		args = append(args, nodeID, nodeID)
	}

	if len(edgeTypeFilter) > 0 {
		placeholders := ""
		for i, t := range edgeTypeFilter {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, t)
		}
		query += " AND edge_type IN (" + placeholders + ")"
	}
	if timeFrom != "" {
		query += " AND created_at >= ?"
		args = append(args, timeFrom)
	}
	if timeTo != "" {
		query += " AND created_at < ?"
		args = append(args, timeTo)
	}
	query += " ORDER BY created_at ASC, edge_id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GraphEdge
	for rows.Next() {
		e := &GraphEdge{}
		var provJSON string
		var validFrom, validTo sql.NullString
		if err := rows.Scan(&e.EdgeID, &e.FromNodeID, &e.ToNodeID, &e.EdgeType, &e.Weight, &validFrom, &validTo, &provJSON, &e.CreatedAt); err != nil {
			continue
		}
		e.ValidFrom = validFrom.String
		e.ValidTo = validTo.String
		_ = json.Unmarshal([]byte(provJSON), &e.Provenance)
		out = append(out, e)
	}
	return out, nil
}

// DeleteNode removes a node. Used by graph compaction after repointing edges.
func (s *Store) DeleteNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM graph_nodes WHERE node_id = ?`, nodeID)
	return err
}

// RepointEdges rewrites every edge referencing oldNodeID to reference
// newNodeID instead, recomputing nothing — callers are responsible for
// any edge_id recomputation required by the caller's dedup semantics.
func (s *Store) RepointEdges(oldNodeID, newNodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE graph_edges SET from_node_id = ? WHERE from_node_id = ?`, newNodeID, oldNodeID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE graph_edges SET to_node_id = ? WHERE to_node_id = ?`, newNodeID, oldNodeID)
	return err
}

// NodesByType lists all node ids of a given type, used by the graph
// compaction maintenance operation to find duplicate-canonical groups.
func (s *Store) NodesByType(nodeType string) ([]*GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT node_id, node_type, properties_json, created_at FROM graph_nodes WHERE node_type = ?`, nodeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GraphNode
	for rows.Next() {
		n := &GraphNode{}
		var propsJSON string
		if err := rows.Scan(&n.NodeID, &n.NodeType, &propsJSON, &n.CreatedAt); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(propsJSON), &n.Properties)
		out = append(out, n)
	}
	return out, nil
}

// AllEntityNodes lists every non-MemoryCard node, used by compaction to
// scan for duplicate canonical strings across all entity types.
func (s *Store) AllEntityNodes() ([]*GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT node_id, node_type, properties_json, created_at FROM graph_nodes WHERE node_type != 'MemoryCard'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GraphNode
	for rows.Next() {
		n := &GraphNode{}
		var propsJSON string
		if err := rows.Scan(&n.NodeID, &n.NodeType, &propsJSON, &n.CreatedAt); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(propsJSON), &n.Properties)
		out = append(out, n)
	}
	return out, nil
}
