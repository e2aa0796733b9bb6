// Package compiler drives one source text through the full pipeline:
// lexing, classification, event transformation and the SSA engine, followed
// by liveness, clustering and code generation.
package compiler

import (
	"log/slog"
	"slices"

	"github.com/leapstack-labs/statify/pkg/classify"
	"github.com/leapstack-labs/statify/pkg/codegen"
	"github.com/leapstack-labs/statify/pkg/conductor"
	"github.com/leapstack-labs/statify/pkg/event"
	"github.com/leapstack-labs/statify/pkg/lexer"
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// Config holds pipeline configuration.
type Config struct {
	// Codegen configures the generated R function.
	Codegen codegen.Options
	// Lookups are external table filenames known to be joined.
	Lookups []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Pipeline compiles source texts. Every Compile call owns a private engine,
// so one pipeline may be shared by concurrent callers.
type Pipeline struct {
	logger    *slog.Logger
	generator *codegen.Generator
	lookups   []string
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		logger:    logger,
		generator: codegen.New(cfg.Codegen),
		lookups:   slices.Clone(cfg.Lookups),
	}
}

// Result is the outcome of compiling one source text.
type Result struct {
	Engine     *ssa.Engine
	Conductor  *conductor.Conductor
	Statements int
	Categories map[classify.Category]int
	Dead       []ssa.Version
	Clusters   [][]ssa.Ref
}

// DeadIDs returns the identifiers of the dead versions.
func (r *Result) DeadIDs() []string {
	ids := make([]string, len(r.Dead))
	for i, v := range r.Dead {
		ids[i] = v.ID()
	}
	return ids
}

// ClusterIDs returns each cluster as an ordered list of identifiers.
func (r *Result) ClusterIDs() [][]string {
	out := make([][]string, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = r.Conductor.IDs(c)
	}
	return out
}

// IsDead reports whether the version at ref is dead.
func (r *Result) IsDead(ref ssa.Ref) bool {
	return slices.ContainsFunc(r.Dead, func(v ssa.Version) bool { return v.Ref == ref })
}

// Compile runs text through the front end and the analyses.
// Malformed statements never fail the run.
func (p *Pipeline) Compile(text string) *Result {
	eng := ssa.NewEngine()
	res := &Result{Engine: eng, Categories: make(map[classify.Category]int)}

	for stmt := range lexer.Statements(text) {
		cmd := classify.Parse(stmt)
		res.Statements++
		res.Categories[cmd.Category]++
		p.logger.Debug("classified statement", "category", cmd.Category.String(), "statement", lexer.Normalize(stmt))

		for _, ev := range event.Transform(cmd) {
			if reset, ok := ev.(event.ResetScope); ok {
				p.logger.Debug("scope reset", "reason", reset.Reason, "phase", len(eng.Phases()))
			}
			event.Apply(eng, ev)
		}
	}

	res.Conductor = conductor.New(eng, conductor.WithLogger(p.logger))
	res.Dead = eng.FindDeadVersions()
	res.Clusters = res.Conductor.IdentifyClusters()
	return res
}

// Generate renders a compiled result as R source.
func (p *Pipeline) Generate(r *Result) string {
	return p.generator.Generate(r.Engine, p.lookups)
}

// Inspect returns the sorted, deduplicated filenames text reads and writes.
// Joined tables count as inputs.
func Inspect(text string) (inputs, outputs []string) {
	for stmt := range lexer.Statements(text) {
		for _, ev := range event.Transform(classify.Parse(stmt)) {
			switch e := ev.(type) {
			case event.LoadFile:
				inputs = append(inputs, e.Filename)
			case event.JoinFiles:
				inputs = append(inputs, e.Filenames...)
			case event.SaveFile:
				outputs = append(outputs, e.Filename)
			}
		}
	}
	slices.Sort(inputs)
	slices.Sort(outputs)
	return slices.Compact(inputs), slices.Compact(outputs)
}
