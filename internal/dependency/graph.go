// internal/dependency/graph.go
package dependency

import (
	"kfctl-e2e/internal/api"
)

// NodeID is the unique identifier for a node inside a dependency graph.
// Within a workflow DAG it is the task name.
type NodeID string

// Node is a task together with the tasks it depends on.
type Node struct {
	ID        NodeID
	DependsOn []NodeID
}

// Graph is an append-only adjacency structure mapping a node to the set of
// its predecessors. A node can only depend on nodes added before it, so the
// graph is acyclic by construction and insertion order is a valid
// topological order.
//
// Graph is not thread-safe; callers must synchronise if they write
// concurrently.
type Graph struct {
	// name is used in error messages, typically the owning DAG.
	name  string
	nodes map[NodeID]*Node
	order []NodeID
}

// New returns an empty graph. name identifies the graph in errors.
func New(name string) *Graph {
	return &Graph{name: name, nodes: make(map[NodeID]*Node)}
}

// Name returns the name the graph was created with.
func (g *Graph) Name() string {
	return g.name
}

// CanAdd reports the error AddNode would return for n without modifying the
// graph.
func (g *Graph) CanAdd(n Node) error {
	if _, exists := g.nodes[n.ID]; exists {
		return api.NewDuplicateError("task", string(n.ID), g.name)
	}
	for _, dep := range n.DependsOn {
		if dep == n.ID {
			return &api.ReferenceError{
				Kind:    "dependency",
				Name:    string(dep),
				DAG:     g.name,
				Message: "task " + string(n.ID) + " cannot depend on itself",
			}
		}
		if _, ok := g.nodes[dep]; !ok {
			return api.NewReferenceError("dependency", string(dep), g.name)
		}
	}
	return nil
}

// AddNode appends n to the graph. It fails with a ReferenceError, leaving the
// graph unchanged, if n.ID is already present or if any dependency has not
// been added yet.
func (g *Graph) AddNode(n Node) error {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	if err := g.CanAdd(n); err != nil {
		return err
	}
	// Copy to avoid external mutations, dropping repeated dependencies.
	copied := Node{ID: n.ID}
	seen := make(map[NodeID]bool, len(n.DependsOn))
	for _, dep := range n.DependsOn {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		copied.DependsOn = append(copied.DependsOn, dep)
	}
	g.nodes[n.ID] = &copied
	g.order = append(g.order, n.ID)
	return nil
}

// Has reports whether id is in the graph.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Get returns a copy of the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return &Node{ID: n.ID, DependsOn: g.Dependencies(id)}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		// Return a copy to avoid callers modifying internal slice.
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, in insertion order.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, nid := range g.order {
		for _, dep := range g.nodes[nid].DependsOn {
			if dep == id {
				res = append(res, nid)
				break
			}
		}
	}
	return res
}

// Order returns the node IDs in insertion order.
func (g *Graph) Order() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// TopologicalSort returns an order in which every node follows all of its
// dependencies. Since nodes can only reference earlier nodes this is the
// insertion order.
func (g *Graph) TopologicalSort() []NodeID {
	return g.Order()
}

// Reachable reports whether to can be reached from from by following
// dependency edges backwards, i.e. whether from depends on to directly or
// transitively.
func (g *Graph) Reachable(from, to NodeID) bool {
	visited := make(map[NodeID]bool)
	stack := []NodeID{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, dep := range n.DependsOn {
			if dep == to {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// Independent reports whether neither node depends on the other, directly or
// transitively. Independent nodes may run concurrently.
func (g *Graph) Independent(a, b NodeID) bool {
	return a != b && !g.Reachable(a, b) && !g.Reachable(b, a)
}
