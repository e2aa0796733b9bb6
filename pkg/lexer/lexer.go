// Package lexer splits legacy syntax files into statements.
//
// A statement ends at a '.' that is the last non-blank character of a line
// and is not inside an open quoted string. Because the terminator only fires
// at end of line, decimal literals such as 0.5 never end a statement.
// Doubled-quote escapes ('it''s') are not recognised.
package lexer

import (
	"iter"
	"slices"
	"strings"
)

// Terminator ends a statement when it closes a line outside of quotes.
const Terminator = '.'

// Statements returns a lazy sequence of the statements in text.
// Blank lines are skipped and the lines of a multi-line statement are joined
// with "\n". Text left without a terminator at end of input is yielded as a
// final statement. The sequence can be ranged over any number of times.
func Statements(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var (
			current []string
			quote   byte
			comment bool
		)

		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\r\n")
			stripped := strings.TrimSpace(line)
			if stripped == "" {
				continue
			}

			if len(current) == 0 {
				comment = isComment(stripped)
			}
			current = append(current, line)

			if !comment {
				quote = scanQuotes(line, quote)
			}

			if stripped[len(stripped)-1] == Terminator && quote == 0 {
				if !yield(strings.Join(current, "\n")) {
					return
				}
				current = current[:0]
			}
		}

		if len(current) > 0 {
			yield(strings.Join(current, "\n"))
		}
	}
}

// Split collects all statements of text.
func Split(text string) []string {
	return slices.Collect(Statements(text))
}

// Normalize collapses every run of whitespace into a single space and trims
// the result.
func Normalize(stmt string) string {
	return strings.Join(strings.Fields(stmt), " ")
}

// scanQuotes updates the open quote character across one line.
// Single and double quotes toggle independently: a quote only closes the
// string opened by the same character.
func scanQuotes(line string, quote byte) byte {
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch != '\'' && ch != '"' {
			continue
		}
		switch quote {
		case 0:
			quote = ch
		case ch:
			quote = 0
		}
	}
	return quote
}

// isComment reports whether a statement starting with line is a comment.
// Comment bodies are free text, so apostrophes in them must not open quotes.
func isComment(line string) bool {
	if strings.HasPrefix(line, "*") {
		return true
	}
	const kw = "COMMENT"
	if len(line) < len(kw) || !strings.EqualFold(line[:len(kw)], kw) {
		return false
	}
	if len(line) == len(kw) {
		return true
	}
	next := line[len(kw)]
	return next == ' ' || next == '\t' || next == Terminator
}
