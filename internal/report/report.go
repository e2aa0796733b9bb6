// Package report builds the human- and machine-readable views of a
// compilation: dead versions, clusters, variable histories, a markdown
// specification and DOT lineage text.
package report

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/pkg/classify"
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// Version is the serializable form of an ssa.Version.
type Version struct {
	ID           string   `json:"id" yaml:"id"`
	Phase        int      `json:"phase" yaml:"phase"`
	Kind         string   `json:"kind" yaml:"kind"`
	Source       string   `json:"source" yaml:"source"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Dead         bool     `json:"dead" yaml:"dead"`
}

// Cluster is the serializable form of one cluster.
type Cluster struct {
	Index    int      `json:"index" yaml:"index"`
	Phase    int      `json:"phase" yaml:"phase"`
	Inputs   []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs  []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Versions []string `json:"versions" yaml:"versions"`
}

// Link is a file passed from one phase to a later one.
type Link struct {
	From int    `json:"from" yaml:"from"`
	To   int    `json:"to" yaml:"to"`
	File string `json:"file" yaml:"file"`
}

// Summary counts what a compilation found.
type Summary struct {
	Statements int            `json:"statements" yaml:"statements"`
	Categories map[string]int `json:"categories" yaml:"categories"`
	Versions   int            `json:"versions" yaml:"versions"`
	Phases     int            `json:"phases" yaml:"phases"`
	Clusters   int            `json:"clusters" yaml:"clusters"`
	Dead       int            `json:"dead" yaml:"dead"`
}

// Summarize counts statements, versions and findings of res.
func Summarize(res *compiler.Result) Summary {
	s := Summary{
		Statements: res.Statements,
		Categories: make(map[string]int, len(res.Categories)),
		Versions:   res.Engine.Len(),
		Phases:     len(res.Engine.Phases()),
		Clusters:   len(res.Clusters),
		Dead:       len(res.Dead),
	}
	for cat, n := range res.Categories {
		s.Categories[cat.String()] = n
	}
	return s
}

// CategoryLabel returns the display label of a category name, e.g.
// "file_join" becomes "File Join". A Caser keeps state, so each call gets
// its own.
func CategoryLabel(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// CategoryNames returns the category names of s in classification order.
func (s Summary) CategoryNames() []string {
	var names []string
	for c := classify.Unknown; c <= classify.ControlFlow; c++ {
		if s.Categories[c.String()] > 0 {
			names = append(names, c.String())
		}
	}
	return names
}

// Dead returns the identifiers of the dead versions.
func Dead(res *compiler.Result) []string {
	return res.DeadIDs()
}

// Clusters returns every cluster with the file I/O of its phase.
func Clusters(res *compiler.Result) []Cluster {
	clusters := res.Conductor.Clusters()
	out := make([]Cluster, len(clusters))
	for i, c := range clusters {
		out[i] = Cluster{
			Index:    c.Index,
			Phase:    c.Phase,
			Inputs:   c.Inputs,
			Outputs:  c.Outputs,
			Versions: res.Conductor.IDs(c.Members),
		}
	}
	return out
}

// Links returns the files passed between phases.
func Links(res *compiler.Result) []Link {
	var out []Link
	for _, l := range res.Conductor.PhaseLinks() {
		out = append(out, Link{From: l.From, To: l.To, File: l.File})
	}
	return out
}

// History returns every version of name across phases.
func History(res *compiler.Result, name string) []Version {
	var out []Version
	for _, v := range res.Engine.History(name) {
		out = append(out, toVersion(res, v))
	}
	return out
}

// Versions returns every version in creation order.
func Versions(res *compiler.Result) []Version {
	versions := res.Engine.Versions()
	out := make([]Version, len(versions))
	for i, v := range versions {
		out[i] = toVersion(res, v)
	}
	return out
}

func toVersion(res *compiler.Result, v ssa.Version) Version {
	deps := make([]string, len(v.Dependencies))
	for i, d := range v.Dependencies {
		deps[i] = res.Engine.Version(d).ID()
	}
	return Version{
		ID:           v.ID(),
		Phase:        v.Phase,
		Kind:         v.Kind.String(),
		Source:       strings.TrimSpace(v.Source),
		Dependencies: deps,
		Dead:         res.IsDead(v.Ref),
	}
}

// Variables returns the user variable names written by res, sorted.
func Variables(res *compiler.Result) []string {
	var names []string
	for _, v := range res.Engine.Versions() {
		if !v.Synthetic() {
			names = append(names, v.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
