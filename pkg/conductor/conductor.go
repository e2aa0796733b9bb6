// Package conductor partitions the version graph into clusters and orders
// them.
//
// A cluster is a weakly-connected component of the dependency graph. Within
// a cluster versions are sorted topologically with Kahn's algorithm, ties
// broken by discovery order. A cycle cannot be built through the engine, but
// if one is present the residual versions are appended in sorted order and a
// warning is logged instead of failing.
package conductor

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/statify/internal/dag"
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// Conductor builds and queries the dependency graph of an engine.
type Conductor struct {
	eng    *ssa.Engine
	graph  *dag.Graph[ssa.Ref]
	logger *slog.Logger
}

// Option configures a Conductor.
type Option func(*Conductor)

// WithLogger sets the logger used for cycle warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conductor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds the dependency graph of eng. Edges run from a dependency to
// the version that reads it.
func New(eng *ssa.Engine, opts ...Option) *Conductor {
	c := &Conductor{
		eng:    eng,
		graph:  dag.NewGraph[ssa.Ref](),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	versions := eng.Versions()
	for _, v := range versions {
		c.graph.AddNode(v.Ref)
	}
	for _, v := range versions {
		for _, d := range v.Dependencies {
			// Dependencies always point at earlier versions, so neither
			// endpoint can be missing and self-loops cannot occur.
			_ = c.graph.AddEdge(d, v.Ref)
		}
	}
	return c
}

// Compare orders versions by phase, then name, then version index.
func Compare(a, b ssa.Version) int {
	return cmp.Or(
		cmp.Compare(a.Phase, b.Phase),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Index, b.Index),
	)
}

func (c *Conductor) compareRefs(a, b ssa.Ref) int {
	return Compare(c.eng.Version(a), c.eng.Version(b))
}

// sortedRefs returns every version reference in Compare order.
func (c *Conductor) sortedRefs() []ssa.Ref {
	refs := c.graph.Nodes()
	slices.SortFunc(refs, c.compareRefs)
	return refs
}

// Components returns the weakly-connected components of the graph. Search
// starts from each unvisited version in Compare order; members are listed in
// discovery order.
func (c *Conductor) Components() [][]ssa.Ref {
	return c.graph.Components(c.sortedRefs())
}

// IdentifyClusters returns every component topologically sorted.
func (c *Conductor) IdentifyClusters() [][]ssa.Ref {
	components := c.Components()
	clusters := make([][]ssa.Ref, len(components))
	for i, comp := range components {
		clusters[i] = c.TopologicalSort(comp)
	}
	return clusters
}

// TopologicalSort orders cluster so every dependency precedes its readers,
// considering only edges inside cluster.
func (c *Conductor) TopologicalSort(cluster []ssa.Ref) []ssa.Ref {
	sorted, cyclic := c.graph.TopologicalSort(cluster, c.compareRefs)
	if cyclic {
		_, path := c.graph.HasCycle(cluster...)
		c.logger.Warn("dependency cycle in cluster, using fallback order",
			"cluster_size", len(cluster), "cycle", c.IDs(path))
	}
	return sorted
}

// IDs converts references to display identifiers.
func (c *Conductor) IDs(refs []ssa.Ref) []string {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = c.eng.Version(ref).ID()
	}
	return ids
}
