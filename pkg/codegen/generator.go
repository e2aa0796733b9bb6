// Package codegen renders the versions held by an SSA engine as an R/dplyr
// function.
//
// Joins are pre-scanned and emitted once, before any mutation, and each
// joined table becomes an optional function parameter with an auto-loader.
// Mutations follow the execution order of each phase. A statement that
// cannot be rendered becomes a "# TODO: unhandled" comment, never an error.
package codegen

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/statify/pkg/conductor"
	"github.com/leapstack-labs/statify/pkg/extract"
	"github.com/leapstack-labs/statify/pkg/lexer"
	"github.com/leapstack-labs/statify/pkg/ssa"
	"github.com/leapstack-labs/statify/pkg/translate"
)

var (
	reAssign    = regexp.MustCompile(`(?is)^(?:COMPUTE\s+)?([A-Za-z0-9_#@$]+)\s*=\s*(.+)$`)
	reCompute   = regexp.MustCompile(`(?i)^COMPUTE\s+`)
	reString    = regexp.MustCompile(`(?i)^STRING\s+`)
	reNumeric   = regexp.MustCompile(`(?i)^NUMERIC\s+`)
	reRecode    = regexp.MustCompile(`(?i)^RECODE\s+`)
	reAggregate = regexp.MustCompile(`(?i)^AGGREGATE\b`)
)

// aggregateFunctions maps AGGREGATE functions to R summaries.
var aggregateFunctions = map[string]string{
	"SUM":    "sum",
	"MEAN":   "mean",
	"MAX":    "max",
	"MIN":    "min",
	"SD":     "sd",
	"MEDIAN": "median",
	"FIRST":  "first",
	"LAST":   "last",
	"N":      "n",
	"NU":     "n",
}

// Options configures the generated function.
type Options struct {
	FunctionName    string
	DatasetParam    string
	LookupExtension string // extension tried by lookup auto-loaders
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		FunctionName:    "logic_pipeline",
		DatasetParam:    "df",
		LookupExtension: ".csv",
	}
}

// Generator renders engines as R source.
type Generator struct {
	opts Options
}

// New creates a generator. Empty options fall back to their defaults.
func New(opts Options) *Generator {
	def := DefaultOptions()
	opts.FunctionName = cmp.Or(opts.FunctionName, def.FunctionName)
	opts.DatasetParam = cmp.Or(opts.DatasetParam, def.DatasetParam)
	opts.LookupExtension = cmp.Or(opts.LookupExtension, def.LookupExtension)
	if !strings.HasPrefix(opts.LookupExtension, ".") {
		opts.LookupExtension = "." + opts.LookupExtension
	}
	return &Generator{opts: opts}
}

// generation holds the state of one Generate call.
type generation struct {
	*Generator
	eng     *ssa.Engine
	out     *printer
	joins   []join
	todo    []string // join statements that could not be rendered
	lookups []string
}

// Generate renders eng as a single R function. lookups are external table
// filenames known to be joined; join statements contribute their own tables
// when the list is empty.
func (g *Generator) Generate(eng *ssa.Engine, lookups []string) string {
	gen := &generation{Generator: g, eng: eng, out: newPrinter()}

	gen.header()
	if eng.Len() == 0 {
		gen.out.line("# No logic detected.")
		return gen.out.String()
	}

	gen.scanJoins()
	gen.collectLookups(lookups)
	gen.docs()
	gen.out.block(g.opts.FunctionName+" <- function("+gen.signature()+")", func() {
		gen.loaders()
		gen.out.line(fmt.Sprintf("names(%[1]s) <- tolower(names(%[1]s))", g.opts.DatasetParam))
		gen.coercions()
		gen.out.blank()
		gen.chain()
		gen.out.blank()
		gen.out.line("return(" + g.opts.DatasetParam + ")")
	})
	return gen.out.String()
}

func (gen *generation) header() {
	gen.out.line("# Auto-generated R script")
	gen.out.line("library(dplyr)")
	gen.out.line("library(readr)")
	gen.out.line("library(lubridate)")
	gen.out.blank()
}

// scanJoins collects the deduplicated joins in source order.
func (gen *generation) scanJoins() {
	seen := make(map[string]bool)
	for _, v := range gen.eng.Versions() {
		if v.Kind != ssa.KindJoin {
			continue
		}
		joins, ok := parseJoins(v.Source)
		if !ok {
			gen.todo = append(gen.todo, lexer.Normalize(v.Source))
			continue
		}
		for _, j := range joins {
			if seen[j.key()] {
				continue
			}
			seen[j.key()] = true
			gen.joins = append(gen.joins, j)
		}
	}
}

// collectLookups builds the sorted set of lookup parameters.
func (gen *generation) collectLookups(hints []string) {
	var params []string
	for _, h := range hints {
		params = append(params, ParamName(h))
	}
	for _, j := range gen.joins {
		params = append(params, j.Param)
	}
	slices.Sort(params)
	gen.lookups = slices.DeleteFunc(slices.Compact(params), func(p string) bool {
		return p == gen.opts.DatasetParam
	})
}

func (gen *generation) docs() {
	var cols []string
	for _, x := range gen.eng.Externals() {
		cols = append(cols, translate.Name(x))
	}
	required := "(none)"
	if len(cols) > 0 {
		required = strings.Join(cols, ", ")
	}

	gen.out.line("#' Logic Pipeline")
	gen.out.line("#'")
	gen.out.line("#' Required input columns: " + required)
	gen.out.line("#'")
	gen.out.line("#' @param " + gen.opts.DatasetParam + " Main dataframe")
	for _, p := range gen.lookups {
		gen.out.line("#' @param " + p + " Lookup table (Optional)")
	}
	gen.out.line("#' @return The transformed dataframe")
	gen.out.line("#' @export")
}

func (gen *generation) signature() string {
	params := []string{gen.opts.DatasetParam}
	for _, p := range gen.lookups {
		params = append(params, p+" = NULL")
	}
	return strings.Join(params, ", ")
}

// loaders writes one auto-loader per lookup parameter.
func (gen *generation) loaders() {
	for _, p := range gen.lookups {
		file := p + gen.opts.LookupExtension
		gen.out.block(fmt.Sprintf("if (is.null(%s) && file.exists(%q))", p, file), func() {
			gen.out.line(fmt.Sprintf("%s <- %s", p, reader(file)))
		})
		gen.out.line(fmt.Sprintf("if (!is.null(%[1]s)) names(%[1]s) <- tolower(names(%[1]s))", p))
	}
}

// reader returns the R call that loads file.
func reader(file string) string {
	lower := strings.ToLower(file)
	switch {
	case strings.HasSuffix(lower, ".sav"):
		return fmt.Sprintf("haven::read_sav(%q)", file)
	case strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".txt"):
		return fmt.Sprintf("read.delim(%q, stringsAsFactors = FALSE)", file)
	}
	return fmt.Sprintf("read.csv(%q, stringsAsFactors = FALSE)", file)
}

// coercions casts declared input columns to their schema types.
func (gen *generation) coercions() {
	for _, s := range gen.eng.Inputs() {
		if len(s.Columns) == 0 {
			continue
		}
		target := gen.opts.DatasetParam
		if p := ParamName(s.Filename); slices.Contains(gen.lookups, p) {
			target = p
		}

		body := func() {
			for _, c := range s.Columns {
				col := target + "$" + translate.Name(c.Name)
				gen.out.line(col + " <- " + coerce(c, col))
			}
		}

		gen.out.line("# Schema: " + s.Describe())
		if target == gen.opts.DatasetParam {
			body()
			continue
		}
		gen.out.block("if (!is.null("+target+"))", body)
	}
}

// coerce returns the cast of col to the type of c.
func coerce(c ssa.ColumnSchema, col string) string {
	switch c.Type {
	case ssa.String:
		return "as.character(" + col + ")"
	case ssa.Date:
		return fmt.Sprintf("as.Date(%s, format = %q)", col, dateFormat(ssa.DateFamily(c.SpecificType)))
	}
	return "as.numeric(" + col + ")"
}

func dateFormat(family string) string {
	switch family {
	case "ADATE":
		return "%m/%d/%Y"
	case "EDATE":
		return "%d.%m.%Y"
	case "SDATE":
		return "%Y/%m/%d"
	}
	return "%d-%b-%Y"
}

// step is one element of the pipe chain: a call, or a comment when call is
// empty.
type step struct {
	call    string
	comment string
}

// chain writes the joins and the mutations as one pipe chain.
func (gen *generation) chain() {
	var steps []step
	for _, stmt := range gen.todo {
		steps = append(steps, step{comment: "# TODO: unhandled join: " + stmt})
	}
	for _, j := range gen.joins {
		steps = append(steps, step{call: j.call()})
	}

	c := conductor.New(gen.eng)
	phases := gen.eng.Phases()
	for _, p := range phases {
		order := c.ExecutionOrder(p.Index)
		if len(phases) > 1 && len(order) > 0 {
			steps = append(steps, step{comment: fmt.Sprintf("# Phase %d", p.Index)})
		}
		for _, ref := range order {
			v := gen.eng.Version(ref)
			if v.Synthetic() {
				continue
			}
			steps = append(steps, gen.render(v))
		}
	}

	last := -1
	for i, s := range steps {
		if s.call != "" {
			last = i
		}
	}
	if last < 0 {
		for _, s := range steps {
			gen.out.line(s.comment)
		}
		return
	}

	ds := gen.opts.DatasetParam
	gen.out.line(ds + " <- " + ds + " %>%")
	gen.out.indent()
	for i, s := range steps {
		switch {
		case s.call == "":
			gen.out.line(s.comment)
		case i < last:
			gen.out.line(s.call + " %>%")
		default:
			gen.out.line(s.call)
		}
	}
	gen.out.dedent()
}

// render dispatches on the statement shape of v.
func (gen *generation) render(v ssa.Version) step {
	src := strings.TrimSuffix(strings.TrimSpace(lexer.Normalize(v.Source)), ".")
	target := translate.Name(v.Name)

	// An unclosed parenthesis or quote would swallow the rest of the chain.
	if !extract.Balanced(src) {
		return unhandled(src)
	}

	if cond, rest, ok := extract.SplitGuard(src); ok {
		m := reAssign.FindStringSubmatch(rest)
		if m == nil {
			return unhandled(src)
		}
		return step{call: fmt.Sprintf("mutate(%s = if_else(%s, %s, %s))",
			target, expr(cond), expr(m[2]), gen.fallback(v))}
	}

	switch {
	case reCompute.MatchString(src):
		m := reAssign.FindStringSubmatch(src)
		if m == nil {
			return unhandled(src)
		}
		return step{call: fmt.Sprintf("mutate(%s = %s)", target, expr(m[2]))}

	case reString.MatchString(src):
		return step{call: "mutate(" + target + " = NA_character_)"}

	case reNumeric.MatchString(src):
		return step{call: "mutate(" + target + " = NA_real_)"}

	case reRecode.MatchString(src):
		r, err := parseRecode(src)
		if err != nil {
			return unhandled(src)
		}
		fallback := translate.Name(r.Source)
		if r.Into != "" {
			fallback = gen.fallback(v)
		}
		cw, err := r.caseWhen(fallback)
		if err != nil {
			return unhandled(src)
		}
		return step{call: fmt.Sprintf("mutate(%s = %s)", target, cw)}

	case reAggregate.MatchString(src):
		return gen.aggregate(v, src)
	}
	return unhandled(src)
}

func (gen *generation) aggregate(v ssa.Version, src string) step {
	var breaks []string
	for _, b := range extract.BreakVars(src) {
		breaks = append(breaks, translate.Name(b))
	}
	for _, t := range extract.AggregateTargets(src) {
		if t.Name != v.Name {
			continue
		}
		fn, ok := aggregateFunctions[t.Function]
		if !ok {
			return unhandled(src)
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = expr(a)
		}
		if fn == "n" {
			args = nil
		}
		call := fmt.Sprintf("mutate(%s = %s(%s))", translate.Name(t.Name), fn, strings.Join(args, ", "))
		if len(breaks) == 0 {
			return step{call: call}
		}
		return step{call: "group_by(" + strings.Join(breaks, ", ") + ") %>% " + call + " %>% ungroup()"}
	}
	return unhandled(src)
}

// fallback is the value kept when a conditional write does not fire: the
// current value of the target when it has one, NA otherwise.
func (gen *generation) fallback(v ssa.Version) string {
	if v.Index > 0 || gen.eng.IsExternal(v.Phase, v.Name) {
		return translate.Name(v.Name)
	}
	return "NA"
}

func expr(s string) string {
	return translate.Translate(translate.Identifiers(s))
}

func unhandled(src string) step {
	return step{comment: "# TODO: unhandled statement: " + src}
}
