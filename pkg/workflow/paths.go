package workflow

import (
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
)

// TakenEdges returns the outgoing workflow edges a completed node continues along.
// Without a pathsToTake field in the node output every outgoing edge is taken;
// an empty list ends the branch.
func TakenEdges(g *graph.Graph, node *models.ExecutionNode) []*models.Edge {
	outgoing := g.OutgoingEdges(node.ID)

	paths, restricted := node.PathsToTake()
	if !restricted {
		return outgoing
	}

	allowed := make(map[string]struct{}, len(paths))
	for _, id := range paths {
		allowed[id] = struct{}{}
	}

	taken := make([]*models.Edge, 0, len(paths))

	for _, edge := range outgoing {
		if _, ok := allowed[edge.ID]; ok {
			taken = append(taken, edge)
		}
	}

	return taken
}

func isTaken(g *graph.Graph, source *models.ExecutionNode, edgeID string) bool {
	for _, edge := range TakenEdges(g, source) {
		if edge.ID == edgeID {
			return true
		}
	}

	return false
}
