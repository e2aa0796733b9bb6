package codegen

import (
	"path"
	"regexp"
	"strings"

	"github.com/leapstack-labs/statify/pkg/extract"
	"github.com/leapstack-labs/statify/pkg/lexer"
)

var (
	reMatchFiles = regexp.MustCompile(`(?i)^MATCH\s+FILES\b`)
	reAddFiles   = regexp.MustCompile(`(?i)^ADD\s+FILES\b`)
	reParamChars = regexp.MustCompile(`[^a-z0-9_]+`)
)

// join is one external table merged into the dataset.
type join struct {
	Verb  string // left_join or bind_rows
	Param string
	File  string
	Keys  []string
}

func (j join) key() string {
	return j.Verb + "|" + j.Param + "|" + strings.Join(j.Keys, ",")
}

// call renders the dplyr step for the join.
func (j join) call() string {
	if j.Verb == "bind_rows" {
		return "bind_rows(" + j.Param + ")"
	}
	keys := make([]string, len(j.Keys))
	for i, k := range j.Keys {
		keys[i] = `"` + strings.ToLower(k) + `"`
	}
	by := keys[0]
	if len(keys) > 1 {
		by = "c(" + strings.Join(keys, ", ") + ")"
	}
	return "left_join(" + j.Param + ", by = " + by + ")"
}

// parseJoins extracts the tables merged by a MATCH FILES or ADD FILES
// statement. It reports false when the statement cannot be rendered.
func parseJoins(stmt string) ([]join, bool) {
	s := lexer.Normalize(stmt)

	switch {
	case reAddFiles.MatchString(s):
		files := extract.FileArgs(s)
		if len(files) == 0 {
			return nil, false
		}
		joins := make([]join, len(files))
		for i, f := range files {
			joins[i] = join{Verb: "bind_rows", Param: ParamName(f), File: f}
		}
		return joins, true

	case reMatchFiles.MatchString(s):
		files := extract.TableArgs(s)
		if len(files) == 0 {
			files = extract.FileArgs(s)
		}
		keys := extract.ByKeys(s)
		if len(files) == 0 || len(keys) == 0 {
			return nil, false
		}
		joins := make([]join, len(files))
		for i, f := range files {
			joins[i] = join{Verb: "left_join", Param: ParamName(f), File: f, Keys: keys}
		}
		return joins, true
	}
	return nil, false
}

// ParamName derives the function parameter for an external file: the base
// name up to its first dot, lower-cased, with unsafe characters replaced.
func ParamName(file string) string {
	base := path.Base(strings.ReplaceAll(file, `\`, "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	name := strings.Trim(reParamChars.ReplaceAllString(strings.ToLower(base), "_"), "_")
	switch {
	case name == "":
		return "lookup"
	case name[0] >= '0' && name[0] <= '9':
		return "t_" + name
	}
	return name
}
