// Package ssa implements the static single assignment state engine.
//
// Every write to a variable creates a new immutable Version appended to an
// arena. Dependencies are resolved against the engine state at the moment of
// the write and stored as arena references, so a version can never point at
// a later one. Scope resets start a new phase and hide earlier versions from
// resolution while keeping them in the arena for reporting.
package ssa

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUndefinedVariable is returned when a variable is used before definition.
var ErrUndefinedVariable = errors.New("variable used before definition")

// Ref addresses a Version in the engine arena.
type Ref int

// Kind distinguishes user variables from nodes the engine synthesizes.
type Kind int

const (
	// KindVariable is a write to a user variable.
	KindVariable Kind = iota
	// KindJoin marks a join of external files into the working dataset.
	KindJoin
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindJoin {
		return "join"
	}
	return "variable"
}

// Version is one immutable write to a variable.
type Version struct {
	Ref          Ref
	Name         string
	Index        int
	Phase        int
	Kind         Kind
	Source       string
	Dependencies []Ref
}

// ID returns the display identifier NAME_<index>.
// IDs are unique within a phase; use Ref for global identity.
func (v Version) ID() string {
	return fmt.Sprintf("%s_%d", v.Name, v.Index)
}

// Synthetic reports whether the version was created by the engine rather
// than written by the source.
func (v Version) Synthetic() bool {
	return v.Kind != KindVariable
}

// Phase is a scope between destructive reloads of the working dataset.
type Phase struct {
	Index     int
	Inputs    []string
	Outputs   []string
	Externals []string // identifiers read before any write in this phase
	writes    int
}

// Pristine reports whether the phase has seen neither writes nor file I/O.
func (p *Phase) Pristine() bool {
	return p.writes == 0 && len(p.Inputs) == 0 && len(p.Outputs) == 0
}

// Engine holds the version arena and the active scope.
// An Engine is not safe for concurrent use; each compilation owns one.
type Engine struct {
	versions []Version
	history  map[string][]Ref
	current  map[string]Ref
	counters map[string]int
	phases   []*Phase
	inputs   []InputSchema
	joins    int
}

// NewEngine creates an engine with one empty phase.
func NewEngine() *Engine {
	return &Engine{
		history:  make(map[string][]Ref),
		current:  make(map[string]Ref),
		counters: make(map[string]int),
		phases:   []*Phase{{Index: 0}},
	}
}

// Normalize returns the canonical form of a variable name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (e *Engine) phase() *Phase {
	return e.phases[len(e.phases)-1]
}

// RegisterAssignment records a write to name and returns the new version.
// Each dependency is resolved to its current version at call time;
// identifiers with no current version are dropped and remembered as
// external inputs of the phase. The target itself is never a dependency.
func (e *Engine) RegisterAssignment(name, source string, deps []string) Version {
	name = Normalize(name)
	p := e.phase()

	var refs []Ref
	for _, d := range deps {
		d = Normalize(d)
		if d == "" || d == name {
			continue
		}
		ref, ok := e.current[d]
		if !ok {
			if !slices.Contains(p.Externals, d) {
				p.Externals = append(p.Externals, d)
			}
			continue
		}
		if !slices.Contains(refs, ref) {
			refs = append(refs, ref)
		}
	}

	return e.add(name, source, refs, KindVariable)
}

// RegisterJoin records a join of files into the working dataset as a
// synthetic version and registers the files as phase inputs.
func (e *Engine) RegisterJoin(source string, files []string) Version {
	for _, f := range files {
		e.RegisterInputFile(f)
	}
	e.joins++
	return e.add(fmt.Sprintf("SYS_JOIN_%d", e.joins), source, nil, KindJoin)
}

func (e *Engine) add(name, source string, deps []Ref, kind Kind) Version {
	p := e.phase()
	v := Version{
		Ref:          Ref(len(e.versions)),
		Name:         name,
		Index:        e.counters[name],
		Phase:        p.Index,
		Kind:         kind,
		Source:       source,
		Dependencies: deps,
	}
	e.versions = append(e.versions, v)
	e.counters[name]++
	e.current[name] = v.Ref
	e.history[name] = append(e.history[name], v.Ref)
	p.writes++
	return v
}

// CurrentVersion returns the version of name visible in the active scope.
func (e *Engine) CurrentVersion(name string) (Version, error) {
	ref, ok := e.current[Normalize(name)]
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrUndefinedVariable, Normalize(name))
	}
	return e.versions[ref], nil
}

// History returns every version of name in creation order, across phases.
func (e *Engine) History(name string) []Version {
	refs := e.history[Normalize(name)]
	out := make([]Version, len(refs))
	for i, ref := range refs {
		out[i] = e.versions[ref]
	}
	return out
}

// ResetScope starts a new phase. A pristine active phase is reused instead.
// Versions created before the reset can no longer be resolved.
func (e *Engine) ResetScope() {
	clear(e.current)
	if e.phase().Pristine() {
		return
	}
	clear(e.counters)
	e.phases = append(e.phases, &Phase{Index: len(e.phases)})
}

// RegisterInputFile records a file read by the active phase.
func (e *Engine) RegisterInputFile(name string) {
	p := e.phase()
	if !slices.Contains(p.Inputs, name) {
		p.Inputs = append(p.Inputs, name)
	}
}

// RegisterOutputFile records a file written by the active phase.
func (e *Engine) RegisterOutputFile(name string) {
	p := e.phase()
	if !slices.Contains(p.Outputs, name) {
		p.Outputs = append(p.Outputs, name)
	}
}

// RegisterInput records the declared schema of an input file.
func (e *Engine) RegisterInput(s InputSchema) {
	e.inputs = append(e.inputs, s)
}

// Inputs returns the declared input schemas in load order.
func (e *Engine) Inputs() []InputSchema {
	return slices.Clone(e.inputs)
}

// Version returns the version at ref.
func (e *Engine) Version(ref Ref) Version {
	return e.versions[ref]
}

// Versions returns all versions in creation order.
func (e *Engine) Versions() []Version {
	return slices.Clone(e.versions)
}

// Len returns the number of versions.
func (e *Engine) Len() int {
	return len(e.versions)
}

// Phases returns a snapshot of every phase, including the active one.
func (e *Engine) Phases() []Phase {
	out := make([]Phase, len(e.phases))
	for i, p := range e.phases {
		out[i] = Phase{
			Index:     p.Index,
			Inputs:    slices.Clone(p.Inputs),
			Outputs:   slices.Clone(p.Outputs),
			Externals: slices.Clone(p.Externals),
			writes:    p.writes,
		}
	}
	return out
}

// PhaseVersions returns the versions of phase in creation order.
func (e *Engine) PhaseVersions(phase int) []Version {
	var out []Version
	for _, v := range e.versions {
		if v.Phase == phase {
			out = append(out, v)
		}
	}
	return out
}

// Externals returns every identifier read before definition, in order of
// first appearance across phases.
func (e *Engine) Externals() []string {
	var out []string
	for _, p := range e.phases {
		for _, x := range p.Externals {
			if !slices.Contains(out, x) {
				out = append(out, x)
			}
		}
	}
	return out
}

// IsExternal reports whether name was read before definition in phase.
func (e *Engine) IsExternal(phase int, name string) bool {
	if phase < 0 || phase >= len(e.phases) {
		return false
	}
	return slices.Contains(e.phases[phase].Externals, Normalize(name))
}

// Final reports whether v is the last version of its name in its phase.
func (e *Engine) Final(v Version) bool {
	for _, ref := range slices.Backward(e.history[v.Name]) {
		if e.versions[ref].Phase == v.Phase {
			return ref == v.Ref
		}
	}
	return false
}
