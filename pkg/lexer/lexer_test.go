package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single statement",
			text: "COMPUTE x = 1.",
			want: []string{"COMPUTE x = 1."},
		},
		{
			name: "quoted terminator does not end statement",
			text: "COMPUTE msg = \"end of sentence.\".\nEXECUTE.",
			want: []string{"COMPUTE msg = \"end of sentence.\".", "EXECUTE."},
		},
		{
			name: "decimal literal stays inside statement",
			text: "COMPUTE rate = 0.5\n  * base.",
			want: []string{"COMPUTE rate = 0.5\n  * base."},
		},
		{
			name: "multi-line quoted string",
			text: "COMPUTE s = 'first line.\nsecond line'.\nEXECUTE.",
			want: []string{"COMPUTE s = 'first line.\nsecond line'.", "EXECUTE."},
		},
		{
			name: "mixed quotes toggle independently",
			text: "COMPUTE s = \"it's fine.\".\nEXECUTE.",
			want: []string{"COMPUTE s = \"it's fine.\".", "EXECUTE."},
		},
		{
			name: "blank lines skipped",
			text: "\n\nCOMPUTE a = 1.\n\n   \nCOMPUTE b = 2.\n",
			want: []string{"COMPUTE a = 1.", "COMPUTE b = 2."},
		},
		{
			name: "trailing text without terminator flushed",
			text: "COMPUTE a = 1.\nCOMPUTE b = 2",
			want: []string{"COMPUTE a = 1.", "COMPUTE b = 2"},
		},
		{
			name: "unbalanced quote flushes rest of input",
			text: "COMPUTE s = 'open.\nEXECUTE.",
			want: []string{"COMPUTE s = 'open.\nEXECUTE."},
		},
		{
			name: "apostrophe in comment",
			text: "* don't track quotes here.\nCOMPUTE a = 1.",
			want: []string{"* don't track quotes here.", "COMPUTE a = 1."},
		},
		{
			name: "windows line endings",
			text: "COMPUTE a = 1.\r\nCOMPUTE b = 2.\r\n",
			want: []string{"COMPUTE a = 1.", "COMPUTE b = 2."},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

func TestStatements_Restartable(t *testing.T) {
	seq := Statements("COMPUTE a = 1.\nCOMPUTE b = 2.")

	var first, second []string
	for s := range seq {
		first = append(first, s)
	}
	for s := range seq {
		second = append(second, s)
	}

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestStatements_EarlyBreak(t *testing.T) {
	var got []string
	for s := range Statements("COMPUTE a = 1.\nCOMPUTE b = 2.\nCOMPUTE c = 3.") {
		got = append(got, s)
		if len(got) == 1 {
			break
		}
	}
	assert.Equal(t, []string{"COMPUTE a = 1."}, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "COMPUTE x = a + b.", Normalize("  COMPUTE   x =\n\ta +  b.  "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestIsComment(t *testing.T) {
	assert.True(t, isComment("* note"))
	assert.True(t, isComment("COMMENT this is text"))
	assert.True(t, isComment("comment."))
	assert.False(t, isComment("COMMENTS = 1"))
	assert.False(t, isComment("COMPUTE x = 1."))
}
