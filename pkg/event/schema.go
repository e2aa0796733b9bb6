package event

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/statify/pkg/ssa"
)

var (
	reSchemaFile  = regexp.MustCompile(`(?i)(?:/|\s)FILE\s*=?\s*(?:'([^']*)'|"([^"]*)"|([^\s/'"]+))`)
	reDelimiters  = regexp.MustCompile(`(?i)/DELIMITERS\s*=\s*(?:'([^']*)'|"([^"]*)")`)
	reFirstCase   = regexp.MustCompile(`(?i)/FIRSTCASE\s*=\s*(\d+)`)
	reVariables   = regexp.MustCompile(`(?i)/VARIABLES\s*=`)
	reColumnEntry = regexp.MustCompile(`([A-Za-z_#@$][A-Za-z0-9_#@$]*)\s+([A-Za-z]+\d+(?:\.\d+)?)`)
)

// ParseSchema reads the declared layout of a load statement.
// It reports false when the statement lists no /VARIABLES.
func ParseSchema(stmt string) (ssa.InputSchema, bool) {
	loc := reVariables.FindStringIndex(stmt)
	if loc == nil {
		return ssa.InputSchema{}, false
	}

	s := ssa.InputSchema{Filename: "unknown_data", Format: "TXT"}
	if m := reSchemaFile.FindStringSubmatch(stmt); m != nil {
		s.Filename = firstNonEmpty(m[1], m[2], strings.TrimRight(m[3], "."))
	}

	isSav := strings.HasSuffix(strings.ToLower(s.Filename), ".sav")
	if isSav {
		s.Format = "SAV"
	} else {
		s.Delimiter = ","
	}
	if m := reDelimiters.FindStringSubmatch(stmt); m != nil {
		s.Delimiter = firstNonEmpty(m[1], m[2])
	}
	if s.Delimiter == `\t` {
		s.Delimiter = "\t"
	}

	if m := reFirstCase.FindStringSubmatch(stmt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 1 {
			s.HeaderRow = true
		}
	}

	block := strings.TrimRight(strings.TrimSpace(stmt[loc[1]:]), ".")
	for _, m := range reColumnEntry.FindAllStringSubmatch(block, -1) {
		s.Columns = append(s.Columns, ssa.ColumnSchema{
			Name:         m[1],
			Type:         ssa.TypeFromCode(m[2]),
			SpecificType: strings.ToUpper(m[2]),
		})
	}
	return s, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
