// Package dependency provides the adjacency structure behind each DAG of a
// workflow document.
//
// A Graph maps every task name to the set of task names it depends on. Nodes
// are appended one at a time and may only reference nodes that were added
// earlier:
//
//	g := dependency.New("e2e")
//	_ = g.AddNode(dependency.Node{ID: "checkout"})
//	_ = g.AddNode(dependency.Node{ID: "build", DependsOn: []dependency.NodeID{"checkout"}})
//	err := g.AddNode(dependency.Node{ID: "test", DependsOn: []dependency.NodeID{"deploy"}})
//	// err is an *api.ReferenceError: dependency "deploy" not found in dag "e2e"
//
// Because back-references are impossible, a Graph can never contain a cycle
// and its insertion order is always a valid topological order.
package dependency
