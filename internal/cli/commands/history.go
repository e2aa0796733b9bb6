package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/report"
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// HistoryOutput is the structured output of the history command.
type HistoryOutput struct {
	File     string           `json:"file" yaml:"file"`
	Variable string           `json:"variable" yaml:"variable"`
	Versions []report.Version `json:"versions" yaml:"versions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <file> [variable]",
		Short: "Show every version of a variable",
		Long: `Show each assignment of a variable in source order, with the versions it
read and whether it is dead. Without a variable, list the variables the
script writes.`,
		Example: `  # List variables
  statify history payroll.sps

  # Show how NET evolves
  statify history payroll.sps net`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runVariables(cmd, args[0])
			}
			return runHistory(cmd, args[0], args[1])
		},
	}
}

func runVariables(cmd *cobra.Command, path string) error {
	c := NewCommandContext(cmd)
	res, _, err := c.Compile(path)
	if err != nil {
		return err
	}

	vars := report.Variables(res)
	r := c.Renderer
	if ok, err := r.Structured(map[string]any{"file": path, "variables": vars}); ok {
		return err
	}

	r.Header(1, "Variables")
	rows := make([][]string, len(vars))
	for i, name := range vars {
		rows[i] = []string{name, fmt.Sprint(len(res.Engine.History(name)))}
	}
	r.Table([]string{"Variable", "Versions"}, rows)
	return nil
}

func runHistory(cmd *cobra.Command, path, name string) error {
	c := NewCommandContext(cmd)
	res, _, err := c.Compile(path)
	if err != nil {
		return err
	}

	out := HistoryOutput{
		File:     path,
		Variable: ssa.Normalize(name),
		Versions: report.History(res, name),
	}
	if len(out.Versions) == 0 {
		return fmt.Errorf("variable %s is never assigned in %s", out.Variable, path)
	}

	r := c.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		historyMarkdown(r, out)
		return nil
	}
	historyText(r, out)
	return nil
}

func historyMarkdown(r *output.Renderer, out HistoryOutput) {
	r.Println(output.FormatHeader(1, "History of "+out.Variable))
	r.Println("")
	rows := make([][]string, len(out.Versions))
	for i, v := range out.Versions {
		status := "live"
		if v.Dead {
			status = "dead"
		}
		rows[i] = []string{v.ID, fmt.Sprint(v.Phase), status, output.FormatList(v.Dependencies), "`" + oneLine(v.Source) + "`"}
	}
	r.Table([]string{"Version", "Phase", "Status", "Reads", "Source"}, rows)
}

func historyText(r *output.Renderer, out HistoryOutput) {
	styles := r.Styles()
	r.Header(1, "History of "+out.Variable)
	for _, v := range out.Versions {
		id := styles.ID.Render(v.ID)
		if v.Dead {
			id = styles.Dead.Render(v.ID) + " " + styles.Error.Render("(dead)")
		}
		r.Printf("  %s  %s %d\n", id, styles.Muted.Render("phase"), v.Phase)
		r.Printf("    %s\n", truncate(v.Source, 100))
		if len(v.Dependencies) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("reads:"), strings.Join(v.Dependencies, ", "))
		}
	}
}
