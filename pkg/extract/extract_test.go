package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		name   string
		stmt   string
		want   string
		wantOK bool
	}{
		{"compute", "COMPUTE Net = Gross - Tax.", "NET", true},
		{"compute lower", "compute age_1 = 3.", "AGE_1", true},
		{"scratch variable", "COMPUTE #tmp = 1.", "#TMP", true},
		{"if guard with compute", "IF (age > 18) COMPUTE adult = 1.", "ADULT", true},
		{"if guard bare assignment", "IF (age > 18) adult = 1.", "ADULT", true},
		{"nested guard parens", "IF (MOD(id, 2) = 0) even = 1.", "EVEN", true},
		{"recode into", "RECODE age (0 thru 17 = 1) (ELSE = 2) INTO agegrp.", "AGEGRP", true},
		{"recode in place", "RECODE status (1 = 2).", "STATUS", true},
		{"guarded recode", "IF (x = 1) RECODE y (1 = 2).", "Y", true},
		{"string declaration", "STRING name (A20).", "NAME", true},
		{"numeric declaration", "NUMERIC score (F8.2).", "SCORE", true},
		{"no target", "EXECUTE.", "", false},
		{"guard without body", "IF (x > 1).", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Target(tt.stmt)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitGuard(t *testing.T) {
	cond, rest, ok := SplitGuard("IF (DATE.MDY(m, d, y) > cutoff) late = 1.")
	require.True(t, ok)
	assert.Equal(t, "DATE.MDY(m, d, y) > cutoff", cond)
	assert.Equal(t, "late = 1.", rest)

	_, _, ok = SplitGuard("IF (unbalanced late = 1.")
	assert.False(t, ok)

	_, _, ok = SplitGuard("COMPUTE x = 1.")
	assert.False(t, ok)
}

func TestMatchParen(t *testing.T) {
	assert.Equal(t, 7, MatchParen("f(a,(b))", 1))
	assert.Equal(t, 8, MatchParen("(')' + 1)", 0))
	assert.Equal(t, -1, MatchParen("(a", 0))
	assert.Equal(t, -1, MatchParen("abc", 0))
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"arithmetic", "Gross - Tax * 0.2.", []string{"GROSS", "TAX"}},
		{"dedup and case", "a + A + b", []string{"A", "B"}},
		{"quoted literals removed", `CONCAT(first, " and ", 'x y')`, []string{"FIRST"}},
		{"functions and keywords dropped", "MAX(a, b) AND NOT $SYSMIS", []string{"A", "B"}},
		{"dotted function dropped", "DATE.MDY(m, d, y)", []string{"M", "D", "Y"}},
		{"numbers dropped", "1.5e3 + 2", nil},
		{"scratch variables kept", "#tmp + @x", []string{"#TMP", "@X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dependencies(tt.expr))
		})
	}
}

func TestFileArgs(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want []string
	}{
		{"single quoted", "GET FILE='base.sav'.", []string{"base.sav"}},
		{"double quoted", `SAVE OUTFILE="out dir/out.sav".`, []string{"out dir/out.sav"}},
		{"unquoted strips terminator", "SAVE OUTFILE=out.sav.", []string{"out.sav"}},
		{"active dataset skipped", "MATCH FILES /FILE=* /TABLE='lookup.sav' /BY id.", []string{"lookup.sav"}},
		{"multiple files", "ADD FILES /FILE='a.sav' /FILE='b.sav'.", []string{"a.sav", "b.sav"}},
		{"none", "COMPUTE x = 1.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileArgs(tt.stmt))
		})
	}
}

func TestFileArg(t *testing.T) {
	name, ok := FileArg("AGGREGATE /OUTFILE=* /BREAK=g /n = N.")
	assert.True(t, ok)
	assert.Equal(t, "*", name)

	_, ok = FileArg("EXECUTE.")
	assert.False(t, ok)
}

func TestTableArgs(t *testing.T) {
	assert.Equal(t, []string{"lookup.sav"}, TableArgs("MATCH FILES /FILE=* /TABLE='lookup.sav' /BY id."))
	assert.Nil(t, TableArgs("MATCH FILES /FILE=* /FILE='other.sav' /BY id."))
}

func TestBreakVarsAndByKeys(t *testing.T) {
	assert.Equal(t, []string{"REGION", "YEAR"}, BreakVars("AGGREGATE /OUTFILE=* /BREAK=region year /total = SUM(sales)."))
	assert.Nil(t, BreakVars("AGGREGATE /OUTFILE=*."))

	assert.Equal(t, []string{"ID"}, ByKeys("MATCH FILES /FILE=* /TABLE='l.sav' /BY id."))
	assert.Equal(t, []string{"ID", "YEAR"}, ByKeys("MATCH FILES /FILE=* /TABLE='l.sav' /BY id, year."))
	assert.Nil(t, ByKeys("ADD FILES /FILE=* /FILE='b.sav'."))
}

func TestAggregateTargets(t *testing.T) {
	got := AggregateTargets("AGGREGATE /OUTFILE='agg.sav' /BREAK=region /total = SUM(sales) /avg = MEAN(price, 2) /cnt = N.")
	require.Len(t, got, 3)

	assert.Equal(t, AggregateTarget{Name: "TOTAL", Function: "SUM", Args: []string{"sales"}}, got[0])
	assert.Equal(t, AggregateTarget{Name: "AVG", Function: "MEAN", Args: []string{"price", "2"}}, got[1])
	assert.Equal(t, AggregateTarget{Name: "CNT", Function: "N"}, got[2])

	got = AggregateTargets("AGGREGATE /OUTFILE=* /BREAK=dept /v = salary + 1.")
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Function)
}

func TestBalanced(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"COMPUTE y = f(a, (b)).", true},
		{"COMPUTE x = 1.", true},
		{"COMPUTE label = ')' + name.", true},
		{"COMPUTE y = DATE.MDY(m, d, yr.", false},
		{"COMPUTE y = a).", false},
		{"COMPUTE y = )a(.", false},
		{"COMPUTE y = 'open.", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Balanced(tt.in))
		})
	}
}

func TestWithout(t *testing.T) {
	names := []string{"X", "Y", "x"}
	assert.Equal(t, []string{"Y"}, Without(names, "x"))
	assert.Len(t, names, 3)
}

func TestIsDeclaration(t *testing.T) {
	assert.True(t, IsDeclaration("STRING s (A8)."))
	assert.True(t, IsDeclaration("numeric n (F8.0)."))
	assert.False(t, IsDeclaration("COMPUTE s = 1."))
}
