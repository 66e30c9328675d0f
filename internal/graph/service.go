package graph

import (
	"fmt"
	"sort"

	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// Service wraps the persistence layer's graph tables with the
// canonicalization and traversal operations of this package.
type Service struct {
	s *store.Store
}

// NewService returns a Service backed by s.
func NewService(s *store.Store) *Service {
	return &Service{s: s}
}

// UpsertEntity canonicalizes rawName under nodeType, derives its
// deterministic node_id, and upserts the node. extra is merged into
// the node's properties alongside name/canonical/raw_name/confidence.
func (svc *Service) UpsertEntity(nodeType NodeType, rawName string, confidence float64, extra map[string]any) (*store.GraphNode, error) {
	canonical := CanonicalizeName(rawName, nodeType)
	nodeID := EntityNodeID(nodeType, canonical)

	props := map[string]any{
		"name":       DisplayName(rawName, canonical, nodeType),
		"canonical":  canonical,
		"raw_name":   rawName,
		"confidence": confidence,
	}
	for k, v := range extra {
		props[k] = v
	}

	node := &store.GraphNode{NodeID: nodeID, NodeType: string(nodeType), Properties: props}
	if err := svc.s.UpsertNode(node); err != nil {
		return nil, fmt.Errorf("upsert entity %s: %w", nodeID, err)
	}
	return node, nil
}

// UpsertMemoryNode creates or refreshes the MemoryCard node for a
// memory card; every ingest produces exactly one of these.
func (svc *Service) UpsertMemoryNode(memoryID, summary string) (*store.GraphNode, error) {
	node := &store.GraphNode{
		NodeID:     MemoryNodeID(memoryID),
		NodeType:   string(NodeTypeMemoryCard),
		Properties: map[string]any{"summary": summary},
	}
	if err := svc.s.UpsertNode(node); err != nil {
		return nil, fmt.Errorf("upsert memory node %s: %w", node.NodeID, err)
	}
	return node, nil
}

// UpsertEdge derives the deterministic edge_id and upserts the edge;
// calling this twice with the same arguments is a no-op on edge count.
func (svc *Service) UpsertEdge(from string, edgeType EdgeType, to string, weight float64, validFrom, validTo string, provenance map[string]any) (*store.GraphEdge, error) {
	edgeID := EdgeID(from, edgeType, to, validFrom, validTo)
	edge := &store.GraphEdge{
		EdgeID:     edgeID,
		FromNodeID: from,
		ToNodeID:   to,
		EdgeType:   string(edgeType),
		Weight:     weight,
		ValidFrom:  validFrom,
		ValidTo:    validTo,
		Provenance: provenance,
	}
	if err := svc.s.UpsertEdge(edge); err != nil {
		return nil, fmt.Errorf("upsert edge %s: %w", edgeID, err)
	}
	return edge, nil
}

// NeighborsResult is the response to a Neighbors query: the queried
// node, the distinct nodes reachable by one matching edge, and the
// edges that join them.
type NeighborsResult struct {
	Node      *store.GraphNode
	Neighbors []*store.GraphNode
	Edges     []*store.GraphEdge
}

// Neighbors returns nodeID's direct connections matching dir,
// edgeTypeFilter, and the [timeFrom, timeTo) window, capped to limit
// edges (0 means unlimited).
func (svc *Service) Neighbors(nodeID string, dir store.Direction, edgeTypeFilter []string, timeFrom, timeTo string, limit int) (*NeighborsResult, error) {
	node, err := svc.s.GetNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", nodeID, err)
	}
	if node == nil {
		return nil, fmt.Errorf("neighbors: node %s not found", nodeID)
	}

	edges, err := svc.s.EdgesFor(nodeID, dir, edgeTypeFilter, timeFrom, timeTo)
	if err != nil {
		return nil, fmt.Errorf("edges for %s: %w", nodeID, err)
	}
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	seen := map[string]bool{nodeID: true}
	var neighbors []*store.GraphNode
	for _, e := range edges {
		other := e.ToNodeID
		if other == nodeID {
			other = e.FromNodeID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		n, err := svc.s.GetNode(other)
		if err != nil || n == nil {
			continue
		}
		neighbors = append(neighbors, n)
	}

	return &NeighborsResult{Node: node, Neighbors: neighbors, Edges: edges}, nil
}

// ExpandResult is the response to Expand: the discovered nodes and
// edges, and for each non-seed node the edge_id sequence of the first
// path by which it was reached.
type ExpandResult struct {
	Nodes []*store.GraphNode
	Edges []*store.GraphEdge
	Paths map[string][]string // node_id -> via_edge_ids
}

// Expand runs a bounded breadth-first traversal from seedNodeIDs up to
// hops hops, stopping as soon as either maxNodes or maxEdges is
// reached. Ties among edges discovered in the same BFS step are broken
// by encounter order (the order EdgesFor returns them in, which is
// sorted by creation time then edge_id).
func (svc *Service) Expand(seedNodeIDs []string, hops int, dir store.Direction, edgeTypeFilter []string, timeFrom, timeTo string, maxNodes, maxEdges int) (*ExpandResult, error) {
	result := &ExpandResult{Paths: make(map[string][]string)}
	visited := make(map[string]bool)
	nodeOrder := []string{}

	for _, seed := range seedNodeIDs {
		if !visited[seed] {
			visited[seed] = true
			nodeOrder = append(nodeOrder, seed)
		}
	}

	edgeSeen := make(map[string]bool)
	frontier := append([]string{}, seedNodeIDs...)

	for hop := 0; hop < hops && len(frontier) > 0; hop++ {
		var next []string
		for _, nodeID := range frontier {
			if maxNodes > 0 && len(nodeOrder) >= maxNodes {
				break
			}
			if maxEdges > 0 && len(edgeSeen) >= maxEdges {
				break
			}

			edges, err := svc.s.EdgesFor(nodeID, dir, edgeTypeFilter, timeFrom, timeTo)
			if err != nil {
				return nil, fmt.Errorf("edges for %s: %w", nodeID, err)
			}

			for _, e := range edges {
				if maxEdges > 0 && len(edgeSeen) >= maxEdges {
					break
				}
				if !edgeSeen[e.EdgeID] {
					edgeSeen[e.EdgeID] = true
					result.Edges = append(result.Edges, e)
				}

				other := e.ToNodeID
				if other == nodeID {
					other = e.FromNodeID
				}
				if visited[other] {
					continue
				}
				if maxNodes > 0 && len(nodeOrder) >= maxNodes {
					continue
				}
				visited[other] = true
				nodeOrder = append(nodeOrder, other)
				next = append(next, other)

				parentPath := result.Paths[nodeID]
				via := append(append([]string{}, parentPath...), e.EdgeID)
				result.Paths[other] = via
			}
		}
		frontier = next
	}

	for _, nodeID := range nodeOrder {
		n, err := svc.s.GetNode(nodeID)
		if err != nil || n == nil {
			continue
		}
		result.Nodes = append(result.Nodes, n)
	}

	return result, nil
}

// Compaction finds groups of entity nodes sharing the same canonical
// string across types, picks a primary by type priority (ties broken
// by highest confidence), repoints all edges from the duplicates to
// the primary, and deletes the duplicates. Returns the number of nodes
// removed.
func (svc *Service) Compaction() (int, error) {
	nodes, err := svc.s.AllEntityNodes()
	if err != nil {
		return 0, fmt.Errorf("list entity nodes: %w", err)
	}

	groups := make(map[string][]*store.GraphNode)
	for _, n := range nodes {
		canonical, _ := n.Properties["canonical"].(string)
		if canonical == "" {
			continue
		}
		groups[canonical] = append(groups[canonical], n)
	}

	removed := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			pi := TypePriority(NodeType(group[i].NodeType))
			pj := TypePriority(NodeType(group[j].NodeType))
			if pi != pj {
				return pi > pj
			}
			ci, _ := group[i].Properties["confidence"].(float64)
			cj, _ := group[j].Properties["confidence"].(float64)
			return ci > cj
		})

		primary := group[0]
		for _, dup := range group[1:] {
			if err := svc.s.RepointEdges(dup.NodeID, primary.NodeID); err != nil {
				return removed, fmt.Errorf("repoint edges from %s to %s: %w", dup.NodeID, primary.NodeID, err)
			}
			if err := svc.s.DeleteNode(dup.NodeID); err != nil {
				return removed, fmt.Errorf("delete duplicate node %s: %w", dup.NodeID, err)
			}
			removed++
		}
		logging.Graph("compaction merged %d duplicate(s) of canonical %q into %s", len(group)-1, group[0].Properties["canonical"], primary.NodeID)
	}

	return removed, nil
}
