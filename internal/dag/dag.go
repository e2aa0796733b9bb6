// Package dag provides directed graph operations for version dependencies.
// It supports cycle detection, weakly-connected components, and topological
// sorting with a deterministic fallback when the input is not acyclic.
package dag

import (
	"fmt"
	"slices"
)

// Graph represents a directed graph. Iteration follows insertion order.
type Graph[K comparable] struct {
	nodes   map[K]bool
	order   []K
	edges   map[K][]K // parent -> children (dependents)
	parents map[K][]K // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph[K comparable]() *Graph[K] {
	return &Graph[K]{
		nodes:   make(map[K]bool),
		edges:   make(map[K][]K),
		parents: make(map[K][]K),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph[K]) AddNode(id K) {
	if g.nodes[id] {
		return
	}
	g.nodes[id] = true
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph[K]) AddEdge(parentID, childID K) error {
	if !g.nodes[parentID] {
		return fmt.Errorf("parent node %v does not exist", parentID)
	}
	if !g.nodes[childID] {
		return fmt.Errorf("child node %v does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %v", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph[K]) GetParents(id K) []K {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph[K]) GetChildren(id K) []K {
	return g.edges[id]
}

// Nodes returns all node IDs in insertion order.
func (g *Graph[K]) Nodes() []K {
	return slices.Clone(g.order)
}

// HasCycle reports whether the subgraph induced by ids contains a cycle,
// along with the cycle path (first node repeated at the end). With no ids
// the whole graph is searched. Search starts from ids in the order given.
func (g *Graph[K]) HasCycle(ids ...K) (bool, []K) {
	if len(ids) == 0 {
		ids = g.order
	}
	inSet := make(map[K]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	visited := make(map[K]bool)
	recStack := make(map[K]bool)
	path := make(map[K]K)

	var cyclePath []K

	var dfs func(id K) bool
	dfs = func(id K) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !inSet[childID] {
				continue
			}
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []K{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]K{curr}, cyclePath...)
				}
				cyclePath = append([]K{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range ids {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// neighbors returns parents then children of a node, ignoring direction.
func (g *Graph[K]) neighbors(id K) []K {
	out := make([]K, 0, len(g.parents[id])+len(g.edges[id]))
	out = append(out, g.parents[id]...)
	return append(out, g.edges[id]...)
}

// Components partitions the graph into weakly-connected components.
// Breadth-first search starts from each unvisited node in the order given
// by start; nodes missing from start are visited afterwards in insertion
// order. Members of each component are listed in discovery order.
func (g *Graph[K]) Components(start []K) [][]K {
	visited := make(map[K]bool, len(g.nodes))
	var components [][]K

	visit := func(root K) {
		if visited[root] {
			return
		}
		if !g.nodes[root] {
			return
		}
		visited[root] = true
		component := []K{root}
		queue := []K{root}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range g.neighbors(u) {
				if !visited[v] {
					visited[v] = true
					component = append(component, v)
					queue = append(queue, v)
				}
			}
		}
		components = append(components, component)
	}

	for _, id := range start {
		visit(id)
	}
	for _, id := range g.order {
		visit(id)
	}
	return components
}

// TopologicalSort orders ids (dependencies before dependents) using Kahn's
// algorithm over the subgraph they induce. Ties keep the order of ids.
// When a cycle leaves nodes unsorted, they are appended ordered by cmp and
// cyclic is reported true.
func (g *Graph[K]) TopologicalSort(ids []K, cmp func(a, b K) int) (sorted []K, cyclic bool) {
	inSet := make(map[K]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	inDegree := make(map[K]int, len(ids))
	for _, id := range ids {
		for _, child := range g.edges[id] {
			if inSet[child] {
				inDegree[child]++
			}
		}
	}

	var queue []K
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted = make([]K, 0, len(ids))
	done := make(map[K]bool, len(ids))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		sorted = append(sorted, u)
		done[u] = true
		for _, child := range g.edges[u] {
			if !inSet[child] {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) == len(ids) {
		return sorted, false
	}

	var remaining []K
	for _, id := range ids {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	slices.SortFunc(remaining, cmp)
	return append(sorted, remaining...), true
}
