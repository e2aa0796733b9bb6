// Package extract resolves the variables a statement writes and reads.
//
// Dependency extraction is a syntactic over-approximation: it removes quoted
// literals, tokenizes what is left and drops a fixed stoplist of keywords and
// function names. It does not parse the expression grammar.
package extract

import (
	"regexp"
	"slices"
	"strings"
)

// identChars are the characters allowed in a variable name.
const identChars = `A-Za-z0-9_#@$`

var (
	reCompute  = regexp.MustCompile(`(?i)^\s*COMPUTE\s+([` + identChars + `]+)\s*=`)
	reBareSet  = regexp.MustCompile(`^\s*([A-Za-z_#@$][` + identChars + `]*)\s*=[^=]`)
	reInto     = regexp.MustCompile(`(?i)\bINTO\s+([` + identChars + `]+)`)
	reRecode   = regexp.MustCompile(`(?i)^\s*RECODE\s+([` + identChars + `]+)`)
	reDeclare  = regexp.MustCompile(`(?i)^\s*(STRING|NUMERIC)\s+([` + identChars + `]+)`)
	reIfPrefix = regexp.MustCompile(`(?i)^\s*IF\s*\(`)
	reWord     = regexp.MustCompile(`[` + identChars + `.]+`)
	reQuoted   = regexp.MustCompile(`'[^']*'|"[^"]*"`)

	reFileArg  = regexp.MustCompile(`(?i)/?\b(TABLE|FILE|OUTFILE)\s*=\s*(?:'([^']+)'|"([^"]+)"|([^\s/'"]+))`)
	reBreak    = regexp.MustCompile(`(?i)/BREAK\s*=\s*([` + identChars + `\s]+)`)
	reBy       = regexp.MustCompile(`(?i)/BY\s+([` + identChars + `\s,]+)`)
	reAggSlash = regexp.MustCompile(`/\s*([` + identChars + `]+)\s*=\s*([^/]*)`)
	reCall     = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_.]*)\s*\((.*)\)\s*\.?\s*$`)
	reBareCall = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_.]*?)\s*\.?\s*$`)
)

// Stoplist holds keywords and function names that are never variables.
var Stoplist = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		COMPUTE IF RECODE INTO ELSE THRU LO LOWEST HI HIGHEST COPY SYSMIS
		$SYSMIS MISSING AND OR NOT EQ NE LT LE GT GE TO BY ALL STRING NUMERIC
		EXECUTE CONVERT
		ABS SQRT TRUNC RND MOD EXP LN LG10 MAX MIN MEAN SUM SD VARIANCE CFVAR
		RTRIM LTRIM CONCAT UPCASE LOWER LENGTH SUBSTR CHAR.SUBSTR INDEX
		CHAR.INDEX REPLACE NUMBER VALUE LAG NVALID NMISS RANGE ANY
		DATE.MDY DATE.DMY DATE.YRDAY XDATE.YEAR XDATE.MONTH XDATE.MDAY
		TIME.HMS CTIME.DAYS YRMODA`) {
		Stoplist[w] = true
	}
}

// AggregateKeywords are AGGREGATE subcommands that are not targets.
var AggregateKeywords = map[string]bool{
	"OUTFILE":   true,
	"BREAK":     true,
	"PRESORTED": true,
	"DOCUMENT":  true,
	"MISSING":   true,
	"MODE":      true,
	"OVERWRITE": true,
}

// Normalize returns the canonical (upper-case) form of a variable name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Target returns the variable written by stmt.
// A leading IF guard is stripped and the remainder examined recursively.
func Target(stmt string) (string, bool) {
	if _, rest, ok := SplitGuard(stmt); ok {
		return Target(rest)
	}

	if m := reCompute.FindStringSubmatch(stmt); m != nil {
		return Normalize(m[1]), true
	}
	if m := reDeclare.FindStringSubmatch(stmt); m != nil {
		return Normalize(m[2]), true
	}
	if reRecode.MatchString(stmt) {
		if m := reInto.FindStringSubmatch(stmt); m != nil {
			return Normalize(m[1]), true
		}
		m := reRecode.FindStringSubmatch(stmt)
		return Normalize(m[1]), true
	}
	// IF (cond) x = expr carries no COMPUTE keyword.
	if m := reBareSet.FindStringSubmatch(stmt); m != nil && !Stoplist[Normalize(m[1])] {
		return Normalize(m[1]), true
	}
	return "", false
}

// SplitGuard splits "IF (cond) rest" into its condition and remainder.
// Parentheses are balanced so conditions may contain nested calls.
func SplitGuard(stmt string) (cond, rest string, ok bool) {
	loc := reIfPrefix.FindStringIndex(stmt)
	if loc == nil {
		return "", "", false
	}
	open := loc[1] - 1
	end := MatchParen(stmt, open)
	if end < 0 {
		return "", "", false
	}
	rest = strings.TrimSpace(stmt[end+1:])
	if rest == "" {
		return "", "", false
	}
	return strings.TrimSpace(stmt[open+1 : end]), rest, true
}

// Balanced reports whether every parenthesis in s outside quotes is closed
// and every quote is terminated.
func Balanced(s string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && quote == 0
}

// MatchParen returns the index of the parenthesis closing the one at open,
// ignoring parentheses inside quotes. It returns -1 when unbalanced.
func MatchParen(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return -1
	}
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// StripQuoted removes quoted string literals from s.
func StripQuoted(s string) string {
	return reQuoted.ReplaceAllString(s, " ")
}

// Dependencies returns the variables referenced by expr in order of first
// appearance, upper-cased and deduplicated. Numbers, quoted literals and
// stoplisted words are dropped.
func Dependencies(expr string) []string {
	var deps []string
	seen := make(map[string]bool)
	for _, w := range reWord.FindAllString(StripQuoted(expr), -1) {
		w = strings.Trim(w, ".")
		if w == "" || isDigit(w[0]) {
			continue
		}
		name := Normalize(w)
		if Stoplist[name] || seen[name] {
			continue
		}
		seen[name] = true
		deps = append(deps, name)
	}
	return deps
}

// FileArgs returns every TABLE=, FILE= or OUTFILE= argument of stmt.
// Quoted names are returned verbatim; unquoted names lose a trailing
// terminator. The active-dataset marker "*" is skipped.
func FileArgs(stmt string) []string {
	var files []string
	for _, m := range reFileArg.FindAllStringSubmatch(stmt, -1) {
		name := fileArg(m)
		if name != "" && name != "*" {
			files = append(files, name)
		}
	}
	return files
}

// FileArg returns the first file argument of stmt, "*" included.
func FileArg(stmt string) (string, bool) {
	m := reFileArg.FindStringSubmatch(stmt)
	if m == nil {
		return "", false
	}
	name := fileArg(m)
	return name, name != ""
}

func fileArg(m []string) string {
	switch {
	case m[2] != "":
		return m[2]
	case m[3] != "":
		return m[3]
	default:
		return strings.TrimRight(m[4], ".")
	}
}

// TableArgs returns the /TABLE= arguments of stmt.
func TableArgs(stmt string) []string {
	var files []string
	for _, m := range reFileArg.FindAllStringSubmatch(stmt, -1) {
		if !strings.EqualFold(m[1], "TABLE") {
			continue
		}
		if name := fileArg(m); name != "" && name != "*" {
			files = append(files, name)
		}
	}
	return files
}

// BreakVars returns the /BREAK variables of an AGGREGATE statement.
func BreakVars(stmt string) []string {
	m := reBreak.FindStringSubmatch(stmt)
	if m == nil {
		return nil
	}
	return words(m[1])
}

// ByKeys returns the /BY variables of a join statement.
func ByKeys(stmt string) []string {
	m := reBy.FindStringSubmatch(stmt)
	if m == nil {
		return nil
	}
	return words(strings.ReplaceAll(m[1], ",", " "))
}

// AggregateTarget is one "/name = FUNC(args)" clause of an AGGREGATE.
type AggregateTarget struct {
	Name     string
	Function string
	Args     []string
}

// AggregateTargets returns the target clauses of an AGGREGATE statement.
// A bare name such as N is a function without arguments. Function and Args
// are empty when the right-hand side is neither.
func AggregateTargets(stmt string) []AggregateTarget {
	var targets []AggregateTarget
	for _, m := range reAggSlash.FindAllStringSubmatch(stmt, -1) {
		name := Normalize(m[1])
		if AggregateKeywords[name] {
			continue
		}
		t := AggregateTarget{Name: name}
		if c := reCall.FindStringSubmatch(strings.TrimSpace(m[2])); c != nil {
			t.Function = Normalize(c[1])
			for _, a := range strings.Split(c[2], ",") {
				if a = strings.TrimSpace(a); a != "" {
					t.Args = append(t.Args, a)
				}
			}
		} else if c := reBareCall.FindStringSubmatch(strings.TrimSpace(m[2])); c != nil {
			t.Function = Normalize(c[1])
		}
		targets = append(targets, t)
	}
	return targets
}

// IsDeclaration reports whether stmt is a STRING or NUMERIC declaration.
func IsDeclaration(stmt string) bool {
	return reDeclare.MatchString(stmt)
}

// Without returns names with every occurrence of name removed.
func Without(names []string, name string) []string {
	name = Normalize(name)
	return slices.DeleteFunc(slices.Clone(names), func(n string) bool {
		return Normalize(n) == name
	})
}

// words splits s into upper-cased fields, dropping a trailing terminator.
func words(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if f = strings.TrimRight(f, "."); f != "" {
			out = append(out, Normalize(f))
		}
	}
	return out
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
