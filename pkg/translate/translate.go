// Package translate rewrites source expressions into R/dplyr expressions.
//
// Rewrites run in a fixed order so later steps can rely on earlier ones:
// constants, date constructors, modulo, format casts, the flat function
// table and finally operators. Quoted literals are never rewritten.
package translate

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/statify/pkg/extract"
)

// Functions maps source function names to their R equivalents.
var Functions = map[string]string{
	"TRUNC":   "trunc",
	"MAX":     "pmax",
	"MIN":     "pmin",
	"MEAN":    "mean",
	"SUM":     "sum",
	"RTRIM":   "trimws",
	"LTRIM":   "trimws",
	"CONCAT":  "paste0",
	"ABS":     "abs",
	"SQRT":    "sqrt",
	"RND":     "round",
	"NUMBER":  "as.numeric",
	"LN":      "log",
	"EXP":     "exp",
	"LG10":    "log10",
	"UPCASE":  "toupper",
	"LOWER":   "tolower",
	"LENGTH":  "nchar",
	"SYSMIS":  "is.na",
	"MISSING": "is.na",
}

// functionPatterns holds one compiled call pattern per Functions entry,
// applied in name order.
var functionPatterns = func() []functionPattern {
	names := slices.Sorted(maps.Keys(Functions))
	out := make([]functionPattern, len(names))
	for i, name := range names {
		out[i] = functionPattern{
			re:   regexp.MustCompile(`(?i)\b` + name + `\s*\(`),
			repl: Functions[name] + "(",
		}
	}
	return out
}()

type functionPattern struct {
	re   *regexp.Regexp
	repl string
}

var (
	reSysmis   = regexp.MustCompile(`(?i)\$SYSMIS\b`)
	rePower    = regexp.MustCompile(`\*\*`)
	reNotEqual = regexp.MustCompile(`~=|<>`)
	reTilde    = regexp.MustCompile(`~`)
	reSigil    = regexp.MustCompile(`[#@][A-Za-z0-9_]+`)

	wordOperators = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`(?i)\bAND\b`), "&"},
		{regexp.MustCompile(`(?i)\bOR\b`), "|"},
		{regexp.MustCompile(`(?i)\bNOT\b`), "!"},
		{regexp.MustCompile(`(?i)\bEQ\b`), "=="},
		{regexp.MustCompile(`(?i)\bNE\b`), "!="},
		{regexp.MustCompile(`(?i)\bLE\b`), "<="},
		{regexp.MustCompile(`(?i)\bGE\b`), ">="},
		{regexp.MustCompile(`(?i)\bLT\b`), "<"},
		{regexp.MustCompile(`(?i)\bGT\b`), ">"},
	}
)

// Translate rewrites expr into R. An empty expression becomes NA.
// Malformed calls are left with a minimal rename rather than failing.
func Translate(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "NA"
	}

	expr = mapUnquoted(expr, func(s string) string {
		return reSysmis.ReplaceAllString(s, "NA")
	})
	expr = rewriteDates(expr)
	expr = rewriteModulo(expr)
	expr = rewriteCall(expr, "NUMBER", castWith("as.numeric"))
	expr = rewriteCall(expr, "STRING", castWith("as.character"))
	expr = mapUnquoted(expr, replaceFunctions)
	return Operators(expr)
}

var reMod = regexp.MustCompile(`(?i)\bMOD\s*\(`)

// rewriteModulo turns MOD(a, b) into (a %% b). A malformed call is renamed
// to the prefix form of the R operator.
func rewriteModulo(expr string) string {
	malformed := false
	expr = rewriteCall(expr, "MOD", func(args []string) (string, bool) {
		if len(args) != 2 {
			malformed = true
			return "", false
		}
		return "(" + Translate(args[0]) + " %% " + Translate(args[1]) + ")", true
	})
	if malformed || hasUnbalancedCall(expr, "MOD") {
		expr = mapUnquoted(expr, func(s string) string {
			return reMod.ReplaceAllString(s, "`%%`(")
		})
	}
	return expr
}

// castWith converts NAME(x, fmt) into fn(x), dropping the format.
func castWith(fn string) func(args []string) (string, bool) {
	return func(args []string) (string, bool) {
		if len(args) != 2 {
			return "", false
		}
		return fn + "(" + Translate(args[0]) + ")", true
	}
}

// dateConstructors lists the date calls rewritten into make_date(y, m, d).
var dateConstructors = []struct {
	name   string
	order  [3]int // argument positions of year, month, day
	rename *regexp.Regexp
}{
	{"DATE.MDY", [3]int{2, 0, 1}, regexp.MustCompile(`(?i)DATE\.MDY`)},
	{"DATE.DMY", [3]int{2, 1, 0}, regexp.MustCompile(`(?i)DATE\.DMY`)},
}

// rewriteDates reorders date-constructor arguments into make_date(y, m, d).
// A malformed constructor is only renamed.
func rewriteDates(expr string) string {
	for _, dc := range dateConstructors {
		malformed := false
		expr = rewriteCall(expr, dc.name, func(args []string) (string, bool) {
			if len(args) != 3 {
				malformed = true
				return "", false
			}
			return "make_date(" +
				Translate(args[dc.order[0]]) + ", " +
				Translate(args[dc.order[1]]) + ", " +
				Translate(args[dc.order[2]]) + ")", true
		})
		if malformed || hasUnbalancedCall(expr, dc.name) {
			expr = mapUnquoted(expr, func(s string) string {
				return dc.rename.ReplaceAllString(s, "make_date")
			})
		}
	}
	return expr
}

// hasUnbalancedCall reports whether a call to name is left unrewritten
// because its parentheses never close.
func hasUnbalancedCall(expr, name string) bool {
	for _, at := range findCalls(expr, name) {
		if extract.MatchParen(expr, at.open) < 0 {
			return true
		}
	}
	return false
}

type callSite struct {
	start int // index of the function name
	open  int // index of the opening parenthesis
}

// findCalls returns the unquoted call sites of name in expr.
func findCalls(expr, name string) []callSite {
	var sites []callSite
	upper := strings.ToUpper(expr)
	var quote byte
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			continue
		}
		if !strings.HasPrefix(upper[i:], name) || (i > 0 && isIdentByte(expr[i-1])) {
			continue
		}
		j := i + len(name)
		for j < len(expr) && (expr[j] == ' ' || expr[j] == '\t') {
			j++
		}
		if j < len(expr) && expr[j] == '(' {
			sites = append(sites, callSite{start: i, open: j})
		}
	}
	return sites
}

// rewriteCall replaces each balanced call to name with fn(args). Calls for
// which fn reports false, or whose parentheses do not balance, are kept.
func rewriteCall(expr, name string, fn func(args []string) (string, bool)) string {
	var b strings.Builder
	pos := 0
	for _, site := range findCalls(expr, name) {
		if site.start < pos {
			continue
		}
		end := extract.MatchParen(expr, site.open)
		if end < 0 {
			continue
		}
		repl, ok := fn(SplitArgs(expr[site.open+1 : end]))
		if !ok {
			continue
		}
		b.WriteString(expr[pos:site.start])
		b.WriteString(repl)
		pos = end + 1
	}
	b.WriteString(expr[pos:])
	return b.String()
}

func replaceFunctions(s string) string {
	for _, fp := range functionPatterns {
		s = fp.re.ReplaceAllString(s, fp.repl)
	}
	return s
}

// Operators rewrites source operators into R operators outside quotes.
// A bare '=' becomes '==' unless it is already part of '<=', '>=', '!=' or
// '=='.
func Operators(expr string) string {
	return mapUnquoted(expr, func(s string) string {
		for _, op := range wordOperators {
			s = op.re.ReplaceAllString(s, op.repl)
		}
		s = reNotEqual.ReplaceAllString(s, "!=")
		s = reTilde.ReplaceAllString(s, "!")
		s = rePower.ReplaceAllString(s, "^")
		return equality(s)
	})
}

// equality converts each bare '=' into '=='. Go regular expressions have no
// lookaround, so the neighbours are checked by hand.
func equality(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '=' {
			b.WriteByte(ch)
			continue
		}
		prevOp := i > 0 && strings.IndexByte("<>!=", s[i-1]) >= 0
		nextEq := i+1 < len(s) && s[i+1] == '='
		if prevOp || nextEq {
			b.WriteByte(ch)
			continue
		}
		b.WriteString("==")
	}
	return b.String()
}

// mapUnquoted applies fn to every maximal run of s outside quoted literals.
func mapUnquoted(s string, fn func(string) string) string {
	var b strings.Builder
	start := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				b.WriteString(s[start : i+1])
				start = i + 1
				quote = 0
			}
		case ch == '\'' || ch == '"':
			b.WriteString(fn(s[start:i]))
			start = i
			quote = ch
		}
	}
	if quote != 0 {
		b.WriteString(s[start:])
	} else {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}

// SplitArgs splits an argument list on commas at parenthesis depth zero,
// ignoring commas inside quotes. Arguments are trimmed.
func SplitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		depth   int
		quote   byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

// Identifiers lower-cases s outside quoted literals and gives scratch (#x)
// and system (@x) variables R-safe names.
func Identifiers(s string) string {
	return mapUnquoted(s, func(seg string) string {
		return reSigil.ReplaceAllStringFunc(strings.ToLower(seg), Name)
	})
}

// Name returns the R column name for a source variable.
func Name(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.HasPrefix(v, "#"):
		return "scratch_" + v[1:]
	case strings.HasPrefix(v, "@"):
		return "at_" + v[1:]
	}
	return v
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b == '$' || b == '#' || b == '@' ||
		('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
