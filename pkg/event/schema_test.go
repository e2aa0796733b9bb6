package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/statify/pkg/ssa"
)

func TestParseSchema(t *testing.T) {
	stmt := `GET DATA /TYPE=TXT
  /FILE='data/people.txt'
  /DELIMITERS="\t"
  /FIRSTCASE=2
  /VARIABLES=
    id F8.0
    name A20
    dob ADATE10
    income F10.2.`

	s, ok := ParseSchema(stmt)
	require.True(t, ok)

	assert.Equal(t, "data/people.txt", s.Filename)
	assert.Equal(t, "TXT", s.Format)
	assert.Equal(t, "\t", s.Delimiter)
	assert.True(t, s.HeaderRow)
	assert.Equal(t, []ssa.ColumnSchema{
		{Name: "id", Type: ssa.Numeric, SpecificType: "F8.0"},
		{Name: "name", Type: ssa.String, SpecificType: "A20"},
		{Name: "dob", Type: ssa.Date, SpecificType: "ADATE10"},
		{Name: "income", Type: ssa.Numeric, SpecificType: "F10.2"},
	}, s.Columns)
}

func TestParseSchema_Sav(t *testing.T) {
	s, ok := ParseSchema("GET DATA /TYPE=SAV /FILE='base.SAV' /VARIABLES= a F1.")
	require.True(t, ok)
	assert.Equal(t, "SAV", s.Format)
	assert.Empty(t, s.Delimiter)
	assert.False(t, s.HeaderRow)
}

func TestParseSchema_Defaults(t *testing.T) {
	s, ok := ParseSchema("GET DATA /TYPE=TXT /FIRSTCASE=1 /VARIABLES= a F1.")
	require.True(t, ok)
	assert.Equal(t, "unknown_data", s.Filename)
	assert.Equal(t, ",", s.Delimiter)
	assert.False(t, s.HeaderRow)
}

func TestParseSchema_NoVariables(t *testing.T) {
	_, ok := ParseSchema("GET FILE='base.sav'.")
	assert.False(t, ok)
}
