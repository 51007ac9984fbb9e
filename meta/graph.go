package meta

import (
	"context"

	"github.com/mnemosyneos/mnemo/memory"
)

// GraphNode is one record in the memory graph.
type GraphNode struct {
	ID      string       `json:"id"`
	Layer   memory.Layer `json:"layer"`
	Preview string       `json:"preview"`
	Tags    []string     `json:"tags,omitempty"`
}

// GraphEdge links a reflection to one of its source memories.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// Graph is the provenance graph over the requested layers.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

const graphPreviewLen = 100

// Graph builds a node per record (deduplicated by id) and an edge per
// reflective source_memories entry. Edges whose endpoints are not both
// present are skipped silently: deleted sources and excluded layers
// leave dangling provenance by design. An empty layer list means all
// layers.
func (s *Service) Graph(ctx context.Context, layers ...memory.Layer) (*Graph, error) {
	if len(layers) == 0 {
		layers = memory.Layers
	}
	include := make(map[memory.Layer]bool, len(layers))
	for _, l := range layers {
		include[l] = true
	}

	graph := &Graph{}
	present := make(map[string]bool)
	var reflections []*memory.Record

	for _, store := range s.stores.All() {
		if !include[store.Layer()] {
			continue
		}
		err := store.Scan(ctx, nil, func(rec *memory.Record) bool {
			if present[rec.ID] {
				return true
			}
			present[rec.ID] = true
			graph.Nodes = append(graph.Nodes, GraphNode{
				ID:      rec.ID,
				Layer:   store.Layer(),
				Preview: preview(rec.Content, graphPreviewLen),
				Tags:    rec.Tags,
			})
			if store.Layer() == memory.LayerReflective {
				reflections = append(reflections, rec)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	for _, rec := range reflections {
		for _, src := range memory.SourceMemories(rec) {
			if !present[src] {
				continue
			}
			graph.Edges = append(graph.Edges, GraphEdge{
				From: src,
				To:   rec.ID,
				Type: "source_of",
			})
		}
	}
	return graph, nil
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
