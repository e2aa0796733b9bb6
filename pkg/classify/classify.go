// Package classify assigns a semantic category to each statement.
//
// Classification is an ordered list of anchored, case-insensitive rules
// evaluated top to bottom; the first match wins. The order is part of the
// contract: a join or save statement must never be taken for an assignment.
package classify

import (
	"regexp"
	"strings"
)

// Category is the semantic kind of a statement.
type Category int

const (
	Unknown Category = iota
	Assignment
	Conditional
	FileRead
	FileJoin
	FileSave
	Aggregate
	Recode
	ControlFlow
)

var categoryNames = map[Category]string{
	Unknown:     "unknown",
	Assignment:  "assignment",
	Conditional: "conditional",
	FileRead:    "file_read",
	FileJoin:    "file_join",
	FileSave:    "file_save",
	Aggregate:   "aggregate",
	Recode:      "recode",
	ControlFlow: "control_flow",
}

// String returns the category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Command is a statement with its category.
type Command struct {
	Category Category
	Text     string
}

// Rule maps a statement prefix to a category.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Category Category
}

// Rules is the classification table in precedence order.
var Rules = []Rule{
	{Name: "save", Pattern: regexp.MustCompile(`(?i)^X?SAVE\b`), Category: FileSave},
	{Name: "join", Pattern: regexp.MustCompile(`(?i)^(MATCH|ADD)\s+FILES\b`), Category: FileJoin},
	{Name: "read", Pattern: regexp.MustCompile(`(?i)^GET\s+(DATA|FILE|TRANSLATE)\b`), Category: FileRead},
	{Name: "aggregate", Pattern: regexp.MustCompile(`(?i)^AGGREGATE\b`), Category: Aggregate},
	{Name: "recode", Pattern: regexp.MustCompile(`(?i)^RECODE\b`), Category: Recode},
	{Name: "compute", Pattern: regexp.MustCompile(`(?i)^(COMPUTE|STRING|NUMERIC)\b`), Category: Assignment},
	{Name: "if", Pattern: regexp.MustCompile(`(?i)^IF(\s|\()`), Category: Conditional},
	{Name: "control", Pattern: regexp.MustCompile(`(?i)^(SORT\s+CASES|EXECUTE|DATASET|DO\s+IF|ELSE\s+IF|ELSE|END\s+IF|DO\s+REPEAT|END\s+REPEAT|LOOP|END\s+LOOP|BREAK|SELECT\s+IF|FILTER|TEMPORARY)\b`), Category: ControlFlow},
}

// Classify returns the category of stmt. Statements no rule matches are
// Unknown.
func Classify(stmt string) Category {
	s := strings.TrimSpace(stmt)
	for _, r := range Rules {
		if r.Pattern.MatchString(s) {
			return r.Category
		}
	}
	return Unknown
}

// Parse classifies stmt and wraps it in a Command.
func Parse(stmt string) Command {
	return Command{Category: Classify(stmt), Text: stmt}
}
