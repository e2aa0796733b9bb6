package codegen

import (
	"bytes"
	"strings"
)

const indentSize = 2

// printer writes indented R source.
type printer struct {
	output *bytes.Buffer
	depth  int
}

func newPrinter() *printer {
	return &printer{output: &bytes.Buffer{}}
}

// String returns the generated source with a single trailing newline.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

// line writes s on its own line at the current depth.
func (p *printer) line(s string) {
	if s != "" {
		p.output.WriteString(strings.Repeat(" ", p.depth*indentSize))
		p.output.WriteString(s)
	}
	p.output.WriteByte('\n')
}

func (p *printer) blank() {
	p.output.WriteByte('\n')
}

func (p *printer) indent() {
	p.depth++
}

func (p *printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// block writes "head {", runs body one level deeper, then "}".
func (p *printer) block(head string, body func()) {
	p.line(head + " {")
	p.indent()
	body()
	p.dedent()
	p.line("}")
}
