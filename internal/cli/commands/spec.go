package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/report"
)

// NewSpecCommand creates the spec command.
func NewSpecCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "spec <file>",
		Short: "Write a functional specification of a script",
		Long: `Write a markdown functional specification of a script: the data contract
of every file it loads, then one section per logic cluster listing the files
it reads and writes and each live computation with its source.

The specification is always markdown, whatever the output mode.`,
		Example: `  statify spec payroll.sps
  statify spec payroll.sps --out payroll.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			res, _, err := c.Compile(args[0])
			if err != nil {
				return err
			}
			md, err := report.Markdown(cmd.Context(), res, report.NopDescriber{})
			if err != nil {
				return err
			}
			return writeDocument(c, out, md)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the specification to this file instead of stdout")
	return cmd
}

// writeDocument prints doc or writes it to path.
func writeDocument(c *CommandContext, path, doc string) error {
	if path == "" {
		c.Renderer.Printf("%s", doc)
		return nil
	}
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	c.Renderer.Success("wrote " + path)
	return nil
}
