package workflow

import (
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
)

type edgeState int

const (
	edgeUndecided edgeState = iota
	edgeTaken
	edgePruned
)

// frontier is the scheduling view of an execution at one instant.
type frontier struct {
	// ready holds PENDING nodes that can be dispatched now, in topological order.
	ready []string

	// dead holds nodes no taken edge can reach anymore. They stay PENDING
	// and never count against completion.
	dead map[string]bool
}

// computeFrontier walks the graph in topological order. An incoming edge is
// taken when its source succeeded and selected it, pruned when its source is
// dead or succeeded without selecting it, and undecided otherwise. A node is
// ready once it has a taken incoming edge and no undecided one; it is dead
// when every incoming edge is pruned.
func computeFrontier(g *graph.Graph, execution *models.Execution) frontier {
	nodes := make(map[string]*models.ExecutionNode, len(execution.Nodes))
	for _, node := range execution.Nodes {
		nodes[node.ID] = node
	}

	f := frontier{dead: make(map[string]bool)}

	for _, id := range g.TopologicalOrder() {
		node, _ := g.Node(id)

		if node.IsTrigger() {
			continue
		}

		incoming := g.IncomingEdges(id)

		if node.IsPlaceholder() || len(incoming) == 0 {
			f.dead[id] = true

			continue
		}

		taken, undecided := 0, 0

		for _, edge := range incoming {
			switch f.edgeState(g, nodes, edge) {
			case edgeTaken:
				taken++
			case edgeUndecided:
				undecided++
			case edgePruned:
			}
		}

		if taken == 0 && undecided == 0 {
			f.dead[id] = true

			continue
		}

		current, ok := nodes[id]
		if ok && current.ExecutionStatus == models.NodeStatusPending && taken > 0 && undecided == 0 {
			f.ready = append(f.ready, id)
		}
	}

	return f
}

func (f frontier) edgeState(g *graph.Graph, nodes map[string]*models.ExecutionNode, edge *models.Edge) edgeState {
	if f.dead[edge.Source] {
		return edgePruned
	}

	source, ok := nodes[edge.Source]
	if !ok || source.ExecutionStatus != models.NodeStatusSuccess {
		return edgeUndecided
	}

	if isTaken(g, source, edge.ID) {
		return edgeTaken
	}

	return edgePruned
}
