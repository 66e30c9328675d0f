package toolimpl

import (
	"context"
	"fmt"
	"strings"

	"mnemex/internal/graph"
	"mnemex/internal/tools"
)

// entityTypeMap accepts the extractor's loose type vocabulary and maps
// it onto the graph package's canonical NodeType set, defaulting to
// Other for anything unrecognized.
var entityTypeMap = map[string]graph.NodeType{
	"person":     graph.NodeTypePerson,
	"org":        graph.NodeTypeOrg,
	"place":      graph.NodeTypePlace,
	"project":    graph.NodeTypeProject,
	"topic":      graph.NodeTypeTopic,
	"technology": graph.NodeTypeTechnology,
	"component":  graph.NodeTypeComponent,
}

func resolveNodeType(raw string) graph.NodeType {
	if t, ok := entityTypeMap[strings.ToLower(raw)]; ok {
		return t
	}
	return graph.NodeTypeOther
}

// GraphBuilderTool upserts a MemoryCard node plus one node and one
// MENTIONS edge per extracted entity, committing the property graph
// side effects of an ingest pipeline. Inputs
// {entities, memory_id, summary, source}; outputs {nodes, edges} as the
// node/edge IDs touched. Failure is non-fatal to the pipeline overall.
func GraphBuilderTool(svc *graph.Service) *tools.Tool {
	return &tools.Tool{
		Name:        "graph_builder",
		Version:     "1.0.0",
		Description: "Upserts graph nodes and edges for a memory card and its extracted entities.",
		InputSchema: tools.ToolSchema{
			Required: []string{"memory_id"},
			Properties: map[string]tools.Property{
				"entities":  {Type: "array"},
				"memory_id": {Type: "string"},
				"summary":   {Type: "string"},
				"source":    {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"nodes", "edges"},
			Properties: map[string]tools.Property{
				"nodes": {Type: "array"},
				"edges": {Type: "array"},
			},
		},
		Execute: func(_ context.Context, env *tools.Envelope) (map[string]any, error) {
			memoryID, _ := env.Inputs["memory_id"].(string)
			summary, _ := env.Inputs["summary"].(string)
			source, _ := env.Inputs["source"].(string)

			memNode, err := svc.UpsertMemoryNode(memoryID, summary)
			if err != nil {
				return nil, fmt.Errorf("graph_builder: %w", err)
			}
			nodeIDs := []any{memNode.NodeID}
			edgeIDs := []any{}

			entities, _ := env.Inputs["entities"].([]any)
			for _, raw := range entities {
				entry, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				name, _ := entry["name"].(string)
				if name == "" {
					continue
				}
				typeName, _ := entry["type"].(string)
				confidence, _ := entry["confidence"].(float64)

				extra := map[string]any{}
				if source != "" {
					extra["source"] = source
				}
				entNode, err := svc.UpsertEntity(resolveNodeType(typeName), name, confidence, extra)
				if err != nil {
					return nil, fmt.Errorf("graph_builder: upsert entity %q: %w", name, err)
				}
				nodeIDs = append(nodeIDs, entNode.NodeID)

				provenance := map[string]any{"call_id": env.SpanID}
				edge, err := svc.UpsertEdge(memNode.NodeID, graph.EdgeTypeMentions, entNode.NodeID, 1.0, "", "", provenance)
				if err != nil {
					return nil, fmt.Errorf("graph_builder: upsert edge to %q: %w", name, err)
				}
				edgeIDs = append(edgeIDs, edge.EdgeID)
			}

			return map[string]any{"nodes": nodeIDs, "edges": edgeIDs}, nil
		},
	}
}
