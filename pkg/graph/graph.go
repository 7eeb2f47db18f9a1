// Package graph provides a read-only index over a workflow's nodes and edges.
package graph

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
)

var (
	ErrDuplicateNode      = errors.New("duplicate node id")
	ErrDuplicateEdge      = errors.New("duplicate edge id")
	ErrUnknownNode        = errors.New("edge references unknown node")
	ErrTriggerNotFound    = errors.New("trigger node not found")
	ErrTriggerNotTrigger  = errors.New("trigger node must have type trigger")
	ErrCycle              = errors.New("workflow graph contains a cycle")
	ErrTriggerHasIncoming = errors.New("trigger node cannot have incoming edges")
	ErrMultipleTriggers   = errors.New("workflow has more than one trigger node")
)

// Graph is an immutable view of a workflow used by the runner.
// Only workflow-type edges are indexed.
type Graph struct {
	workflow *models.Workflow
	nodes    map[string]*models.WorkflowNode
	outgoing map[string][]*models.Edge
	incoming map[string][]*models.Edge
	order    []string
}

// New indexes and validates a workflow.
func New(workflow *models.Workflow) (*Graph, error) {
	if workflow == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	g := &Graph{
		workflow: workflow,
		nodes:    make(map[string]*models.WorkflowNode, len(workflow.Nodes)),
		outgoing: make(map[string][]*models.Edge),
		incoming: make(map[string][]*models.Edge),
	}

	for _, node := range workflow.Nodes {
		if _, exists := g.nodes[node.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}

		g.nodes[node.ID] = node
	}

	trigger, ok := g.nodes[workflow.TriggerNodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, workflow.TriggerNodeID)
	}

	if !trigger.IsTrigger() {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotTrigger, trigger.ID)
	}

	for _, node := range workflow.Nodes {
		if node.IsTrigger() && node.ID != trigger.ID {
			return nil, fmt.Errorf("%w: %s", ErrMultipleTriggers, node.ID)
		}
	}

	edgeIDs := make(map[string]struct{}, len(workflow.Edges))

	for _, edge := range workflow.Edges {
		if _, exists := edgeIDs[edge.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
		}

		edgeIDs[edge.ID] = struct{}{}

		if !edge.IsWorkflow() {
			continue
		}

		if _, ok := g.nodes[edge.Source]; !ok {
			return nil, fmt.Errorf("%w: edge %s source %s", ErrUnknownNode, edge.ID, edge.Source)
		}

		if _, ok := g.nodes[edge.Target]; !ok {
			return nil, fmt.Errorf("%w: edge %s target %s", ErrUnknownNode, edge.ID, edge.Target)
		}

		if edge.Target == trigger.ID {
			return nil, fmt.Errorf("%w: edge %s", ErrTriggerHasIncoming, edge.ID)
		}

		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge)
	}

	order, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}

	g.order = order

	return g, nil
}

// Workflow returns the underlying workflow definition.
func (g *Graph) Workflow() *models.Workflow {
	return g.workflow
}

// Node returns the graph node with the given id.
func (g *Graph) Node(id string) (*models.WorkflowNode, bool) {
	node, ok := g.nodes[id]

	return node, ok
}

// TriggerNode returns the workflow entry point.
func (g *Graph) TriggerNode() *models.WorkflowNode {
	return g.nodes[g.workflow.TriggerNodeID]
}

// Nodes returns the nodes in workflow order.
func (g *Graph) Nodes() []*models.WorkflowNode {
	return g.workflow.Nodes
}

// OutgoingEdges returns the workflow edges leaving a node.
func (g *Graph) OutgoingEdges(nodeID string) []*models.Edge {
	return g.outgoing[nodeID]
}

// IncomingEdges returns the workflow edges entering a node.
func (g *Graph) IncomingEdges(nodeID string) []*models.Edge {
	return g.incoming[nodeID]
}

// TopologicalOrder returns node ids ordered so every edge source precedes its target.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)

	return out
}

// topologicalOrder runs Kahn's algorithm, keeping workflow node order for ties.
func (g *Graph) topologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.incoming[id])
	}

	queue := make([]string, 0, len(g.nodes))

	for _, node := range g.workflow.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(g.nodes))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, edge := range g.outgoing[id] {
			inDegree[edge.Target]--
			if inDegree[edge.Target] == 0 {
				queue = append(queue, edge.Target)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}

	return order, nil
}
