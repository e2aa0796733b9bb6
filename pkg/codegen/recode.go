package codegen

import (
	"errors"
	"regexp"
	"strings"

	"github.com/leapstack-labs/statify/pkg/extract"
	"github.com/leapstack-labs/statify/pkg/lexer"
	"github.com/leapstack-labs/statify/pkg/translate"
)

var (
	reRecodeHead = regexp.MustCompile(`(?i)^RECODE\s+`)
	reInto       = regexp.MustCompile(`(?i)\bINTO\s+([A-Za-z0-9_#@$]+)\s*$`)
	reNumber     = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)
)

var errBadRecode = errors.New("unsupported recode")

// recode is a parsed RECODE statement.
type recode struct {
	Source string // first recoded variable
	Into   string // empty for in-place recodes
	Specs  []recodeSpec
}

// recodeSpec is one "(values = result)" clause.
type recodeSpec struct {
	Values []string
	Result string
}

// parseRecode splits a RECODE statement into its clauses.
func parseRecode(stmt string) (recode, error) {
	s := strings.TrimSuffix(strings.TrimSpace(lexer.Normalize(stmt)), ".")
	loc := reRecodeHead.FindStringIndex(s)
	if loc == nil {
		return recode{}, errBadRecode
	}
	s = s[loc[1]:]

	var r recode
	if m := reInto.FindStringSubmatchIndex(s); m != nil {
		r.Into = s[m[2]:m[3]]
		s = strings.TrimSpace(s[:m[0]])
	}

	open := strings.IndexByte(s, '(')
	if open <= 0 {
		return recode{}, errBadRecode
	}
	vars := strings.Fields(s[:open])
	if len(vars) == 0 {
		return recode{}, errBadRecode
	}
	r.Source = vars[0]

	rest := s[open:]
	for rest != "" {
		if rest[0] != '(' {
			return recode{}, errBadRecode
		}
		end := extract.MatchParen(rest, 0)
		if end < 0 {
			return recode{}, errBadRecode
		}
		spec, err := parseSpec(rest[1:end])
		if err != nil {
			return recode{}, err
		}
		r.Specs = append(r.Specs, spec)
		rest = strings.TrimSpace(rest[end+1:])
	}
	if len(r.Specs) == 0 {
		return recode{}, errBadRecode
	}
	return r, nil
}

func parseSpec(body string) (recodeSpec, error) {
	eq := indexUnquoted(body, '=')
	if eq < 0 {
		return recodeSpec{}, errBadRecode
	}
	values := tokens(body[:eq])
	result := strings.TrimSpace(body[eq+1:])
	if len(values) == 0 || result == "" {
		return recodeSpec{}, errBadRecode
	}
	return recodeSpec{Values: values, Result: result}, nil
}

// tokens splits a value list on blanks and commas outside quotes.
func tokens(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
			cur.WriteByte(ch)
		case ch == ' ' || ch == ',' || ch == '\t':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return out
}

func indexUnquoted(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == target:
			return i
		}
	}
	return -1
}

// caseWhen renders the recode as a dplyr case_when. fallback is used when
// no ELSE clause is given.
func (r recode) caseWhen(fallback string) (string, error) {
	src := translate.Name(r.Source)
	var (
		branches []string
		elseRes  string
	)

	for _, spec := range r.Specs {
		result := recodeValue(spec.Result, src)
		var conds []string
		var singles []string
		vals := spec.Values
		for i := 0; i < len(vals); i++ {
			v := strings.ToUpper(vals[i])
			switch {
			case v == "ELSE":
				elseRes = result
			case v == "SYSMIS" || v == "MISSING":
				conds = append(conds, "is.na("+src+")")
			case i+2 < len(vals) && strings.EqualFold(vals[i+1], "THRU"):
				lo, hi := strings.ToUpper(vals[i]), strings.ToUpper(vals[i+2])
				switch {
				case lo == "LO" || lo == "LOWEST":
					conds = append(conds, src+" <= "+literal(vals[i+2]))
				case hi == "HI" || hi == "HIGHEST":
					conds = append(conds, src+" >= "+literal(vals[i]))
				default:
					conds = append(conds, src+" >= "+literal(vals[i])+" & "+src+" <= "+literal(vals[i+2]))
				}
				i += 2
			case strings.EqualFold(vals[i], "THRU"):
				return "", errBadRecode
			default:
				singles = append(singles, literal(vals[i]))
			}
		}
		switch len(singles) {
		case 0:
		case 1:
			conds = append(conds, src+" == "+singles[0])
		default:
			conds = append(conds, src+" %in% c("+strings.Join(singles, ", ")+")")
		}
		if len(conds) > 0 {
			cond := strings.Join(conds, " | ")
			if len(conds) > 1 {
				cond = "(" + cond + ")"
			}
			branches = append(branches, cond+" ~ "+result)
		}
	}

	if elseRes == "" {
		elseRes = fallback
	}
	branches = append(branches, "TRUE ~ "+elseRes)
	return "case_when(" + strings.Join(branches, ", ") + ")", nil
}

// recodeValue renders a recode result.
func recodeValue(v, src string) string {
	switch strings.ToUpper(v) {
	case "COPY":
		return src
	case "SYSMIS":
		return "NA"
	}
	return literal(v)
}

// literal renders a numeric or quoted value as an R literal.
func literal(v string) string {
	switch {
	case reNumber.MatchString(v):
		return v
	case len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0]:
		return `"` + strings.ReplaceAll(v[1:len(v)-1], `"`, `\"`) + `"`
	}
	return translate.Name(v)
}
