package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/statify/internal/compiler"
)

// Section is one cluster of the specification handed to a Describer.
type Section struct {
	Title    string
	Cluster  Cluster
	Versions []Version // live versions in cluster order
}

// Describer writes the prose of a specification section.
// Implementations may call slow external services.
type Describer interface {
	Describe(ctx context.Context, s Section) (string, error)
}

// NopDescriber writes no prose.
type NopDescriber struct{}

// Describe implements Describer.
func (NopDescriber) Describe(context.Context, Section) (string, error) {
	return "", nil
}

// Markdown renders the functional specification of res: the data contracts
// of every declared input, then one section per cluster listing its live
// versions. A nil describer writes no prose.
func Markdown(ctx context.Context, res *compiler.Result, d Describer) (string, error) {
	if d == nil {
		d = NopDescriber{}
	}

	var b strings.Builder
	b.WriteString("# Functional Specification\n\n")

	s := Summarize(res)
	fmt.Fprintf(&b, "%d statements, %d versions in %d phases, %d clusters, %d dead versions.\n\n",
		s.Statements, s.Versions, s.Phases, s.Clusters, s.Dead)

	if inputs := res.Engine.Inputs(); len(inputs) > 0 {
		b.WriteString("## Data Contracts\n\n")
		for _, in := range inputs {
			fmt.Fprintf(&b, "### %s\n\n", in.Describe())
			if in.HeaderRow {
				b.WriteString("First row holds column names.\n\n")
			}
			b.WriteString("| Column | Type | Format |\n|---|---|---|\n")
			for _, c := range in.Columns {
				fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, c.Type, c.SpecificType)
			}
			b.WriteString("\n")
		}
	}

	versions := Versions(res)
	for _, c := range Clusters(res) {
		sec := Section{
			Title:   fmt.Sprintf("Cluster %d (phase %d)", c.Index+1, c.Phase),
			Cluster: c,
		}
		for _, ref := range res.Clusters[c.Index] {
			if v := versions[ref]; !v.Dead {
				sec.Versions = append(sec.Versions, v)
			}
		}
		if len(sec.Versions) == 0 {
			continue
		}

		prose, err := d.Describe(ctx, sec)
		if err != nil {
			return "", fmt.Errorf("failed to describe %s: %w", strings.ToLower(sec.Title), err)
		}

		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if len(c.Inputs) > 0 {
			fmt.Fprintf(&b, "Reads: %s\n\n", strings.Join(c.Inputs, ", "))
		}
		if len(c.Outputs) > 0 {
			fmt.Fprintf(&b, "Writes: %s\n\n", strings.Join(c.Outputs, ", "))
		}
		if prose = strings.TrimSpace(prose); prose != "" {
			b.WriteString(prose + "\n\n")
		}
		for _, v := range sec.Versions {
			fmt.Fprintf(&b, "- `%s`: `%s`\n", v.ID, oneLine(v.Source))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
