package conductor

import (
	"cmp"
	"slices"

	"github.com/leapstack-labs/statify/internal/dag"
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// Cluster is an ordered component together with the file I/O of the phase
// that owns it.
type Cluster struct {
	Index   int
	Phase   int
	Members []ssa.Ref
	Inputs  []string
	Outputs []string
}

// Clusters returns IdentifyClusters annotated with phase metadata.
// Dependencies never cross a scope reset, so each cluster lies in one phase.
func (c *Conductor) Clusters() []Cluster {
	phases := c.eng.Phases()
	var out []Cluster
	for i, members := range c.IdentifyClusters() {
		phase := c.eng.Version(members[0]).Phase
		cl := Cluster{Index: i, Phase: phase, Members: members}
		if phase < len(phases) {
			cl.Inputs = phases[phase].Inputs
			cl.Outputs = phases[phase].Outputs
		}
		out = append(out, cl)
	}
	return out
}

// Link connects a phase that writes File to a later phase that reads it.
type Link struct {
	From int
	To   int
	File string
}

// PhaseLinks returns the lineage between phases through intermediate files,
// ordered by producer, consumer and file name.
func (c *Conductor) PhaseLinks() []Link {
	phases := c.eng.Phases()
	var links []Link
	for _, from := range phases {
		for _, file := range from.Outputs {
			for _, to := range phases[from.Index+1:] {
				if slices.Contains(to.Inputs, file) {
					links = append(links, Link{From: from.Index, To: to.Index, File: file})
				}
			}
		}
	}
	slices.SortFunc(links, func(a, b Link) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To), cmp.Compare(a.File, b.File))
	})
	return links
}

// ExecutionOrder returns the versions of phase in an order that can be
// emitted as straight-line code. Besides dependency edges it orders the
// versions of one name by index and runs every reader of a version before
// the next write to the same name. Ties keep creation order.
func (c *Conductor) ExecutionOrder(phase int) []ssa.Ref {
	versions := c.eng.PhaseVersions(phase)
	g := dag.NewGraph[ssa.Ref]()
	refs := make([]ssa.Ref, len(versions))
	for i, v := range versions {
		g.AddNode(v.Ref)
		refs[i] = v.Ref
	}

	last := make(map[string]ssa.Ref)
	for _, v := range versions {
		for _, d := range v.Dependencies {
			_ = g.AddEdge(d, v.Ref)
		}
		if prev, ok := last[v.Name]; ok {
			_ = g.AddEdge(prev, v.Ref)
			for _, reader := range c.graph.GetChildren(prev) {
				if reader != v.Ref {
					_ = g.AddEdge(reader, v.Ref)
				}
			}
		}
		last[v.Name] = v.Ref
	}

	sorted, cyclic := g.TopologicalSort(refs, cmp.Compare[ssa.Ref])
	if cyclic {
		_, path := g.HasCycle(refs...)
		c.logger.Warn("ordering conflict in phase, using creation order",
			"phase", phase, "cycle", c.IDs(path))
	}
	return sorted
}
