package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/report"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Export the version lineage as Graphviz DOT",
		Long: `Export the version lineage of a script as Graphviz DOT text.

Each cluster becomes a subgraph, every version a node and every dependency a
dashed edge. Dead versions are filled red. Render the result with any DOT
tool, for example 'dot -Tsvg'.`,
		Example: `  statify graph payroll.sps | dot -Tsvg > payroll.svg
  statify graph payroll.sps --out payroll.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			res, _, err := c.Compile(args[0])
			if err != nil {
				return err
			}
			return writeDocument(c, out, report.DOT(res))
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the graph to this file instead of stdout")
	return cmd
}
