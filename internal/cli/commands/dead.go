package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/internal/report"
)

// DeadOutput is the structured output of the dead command.
type DeadOutput struct {
	File     string           `json:"file" yaml:"file"`
	Dead     []string         `json:"dead" yaml:"dead"`
	Versions []report.Version `json:"versions" yaml:"versions"`
	Total    int              `json:"total_versions" yaml:"total_versions"`
}

// NewDeadCommand creates the dead command.
func NewDeadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dead <file>",
		Short: "List dead versions",
		Long: `List the versions whose value is overwritten or discarded before anything
reads it. Dead versions are skipped by code generation; they usually point at
leftover or duplicated logic in the original script.

Join nodes and other internal versions are never reported.`,
		Example: `  statify dead payroll.sps
  statify dead payroll.sps --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDead(cmd, args[0])
		},
	}
}

func runDead(cmd *cobra.Command, path string) error {
	c := NewCommandContext(cmd)
	res, _, err := c.Compile(path)
	if err != nil {
		return err
	}

	out := DeadOutput{
		File:     path,
		Dead:     report.Dead(res),
		Versions: deadVersions(res),
		Total:    res.Engine.Len(),
	}

	r := c.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		deadMarkdown(r, out)
		return nil
	}
	deadText(r, out)
	return nil
}

func deadVersions(res *compiler.Result) []report.Version {
	out := []report.Version{}
	for _, v := range report.Versions(res) {
		if v.Dead {
			out = append(out, v)
		}
	}
	return out
}

func deadMarkdown(r *output.Renderer, out DeadOutput) {
	r.Println(output.FormatHeader(1, "Dead Versions"))
	r.Println("")
	if len(out.Versions) == 0 {
		r.Println("No dead versions.")
		return
	}
	for _, v := range out.Versions {
		r.Printf("- `%s` (phase %d): `%s`\n", v.ID, v.Phase, oneLine(v.Source))
	}
	r.Println("")
	r.Printf("%d of %d versions are dead.\n", len(out.Versions), out.Total)
}

func deadText(r *output.Renderer, out DeadOutput) {
	styles := r.Styles()
	r.Header(1, "Dead Versions")
	if len(out.Versions) == 0 {
		r.Println(styles.Success.Render("No dead versions."))
		return
	}
	for _, v := range out.Versions {
		r.Printf("  %s  %s\n", styles.Dead.Render(v.ID), styles.Muted.Render(oneLine(v.Source)))
	}
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d of %d versions dead", len(out.Versions), out.Total)))
}
