package ssa

import (
	"fmt"
	"strings"
)

// GenericType is the target-independent type of a column.
type GenericType string

const (
	Numeric GenericType = "Numeric"
	String  GenericType = "String"
	Date    GenericType = "Date"
)

// dateFormats are the format-code families that hold dates or times.
var dateFormats = []string{
	"DATETIME", "ADATE", "EDATE", "SDATE", "JDATE", "DATE", "DTIME", "TIME",
	"QYR", "MOYR", "WKYR", "WKDAY", "MONTH",
}

// ColumnSchema is one declared column of an input file.
type ColumnSchema struct {
	Name         string
	Type         GenericType
	SpecificType string // source format code, e.g. F8.2, A10, ADATE10
}

// InputSchema describes an input file declared by a load statement.
type InputSchema struct {
	Filename  string
	Format    string // SAV or TXT
	Delimiter string
	HeaderRow bool
	Columns   []ColumnSchema
}

// Describe returns a one-line summary of the dataset.
func (s InputSchema) Describe() string {
	return fmt.Sprintf("Dataset '%s' (%s): %d columns", s.Filename, s.Format, len(s.Columns))
}

// Column returns the column with the given name, ignoring case.
func (s InputSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// TypeFromCode maps a source format code to its generic type.
func TypeFromCode(code string) GenericType {
	c := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(c, "A") && !startsWithAny(c, "ADATE") {
		return String
	}
	if startsWithAny(c, dateFormats...) {
		return Date
	}
	return Numeric
}

// DateFamily returns the date format family of code, or "" when code is not
// a date format.
func DateFamily(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	for _, f := range dateFormats {
		if strings.HasPrefix(c, f) {
			return f
		}
	}
	return ""
}

func startsWithAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
