package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/report"
)

// ClustersOutput is the structured output of the clusters command.
type ClustersOutput struct {
	File     string           `json:"file" yaml:"file"`
	Summary  report.Summary   `json:"summary" yaml:"summary"`
	Clusters []report.Cluster `json:"clusters" yaml:"clusters"`
	Links    []report.Link    `json:"links,omitempty" yaml:"links,omitempty"`
}

// NewClustersCommand creates the clusters command.
func NewClustersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clusters <file>",
		Short: "Show independent logic clusters",
		Long: `Partition the versions of a script into clusters of connected logic.

Versions in different clusters never feed each other, so each cluster can be
reviewed and migrated on its own. Within a cluster versions are listed in
dependency order. Each cluster also shows the files its phase reads and
writes, and files passed from one phase to a later one are listed as links.`,
		Example: `  statify clusters payroll.sps
  statify clusters payroll.sps --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusters(cmd, args[0])
		},
	}
}

func runClusters(cmd *cobra.Command, path string) error {
	c := NewCommandContext(cmd)
	res, _, err := c.Compile(path)
	if err != nil {
		return err
	}

	out := ClustersOutput{
		File:     path,
		Summary:  report.Summarize(res),
		Clusters: report.Clusters(res),
		Links:    report.Links(res),
	}

	r := c.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		clustersMarkdown(r, out)
		return nil
	}
	clustersText(r, out)
	return nil
}

func clustersMarkdown(r *output.Renderer, out ClustersOutput) {
	r.Println(output.FormatHeader(1, "Clusters"))
	r.Println("")
	r.Println(output.FormatKeyValue("Statements", fmt.Sprint(out.Summary.Statements)))
	r.Println(output.FormatKeyValue("Versions", fmt.Sprint(out.Summary.Versions)))
	r.Println(output.FormatKeyValue("Phases", fmt.Sprint(out.Summary.Phases)))
	r.Println(output.FormatKeyValue("Dead", fmt.Sprint(out.Summary.Dead)))
	r.Println("")

	for _, cl := range out.Clusters {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Cluster %d (phase %d)", cl.Index+1, cl.Phase)))
		r.Println("")
		if len(cl.Inputs) > 0 {
			r.Println(output.FormatKeyValue("Reads", output.FormatList(cl.Inputs)))
		}
		if len(cl.Outputs) > 0 {
			r.Println(output.FormatKeyValue("Writes", output.FormatList(cl.Outputs)))
		}
		r.Println(output.FormatKeyValue("Order", strings.Join(cl.Versions, " -> ")))
		r.Println("")
	}

	if len(out.Links) > 0 {
		r.Println(output.FormatHeader(2, "Phase Links"))
		r.Println("")
		r.Table([]string{"From", "To", "File"}, linkRows(out.Links))
	}
}

func clustersText(r *output.Renderer, out ClustersOutput) {
	styles := r.Styles()
	r.Header(1, "Clusters")

	rows := make([][]string, len(out.Clusters))
	for i, cl := range out.Clusters {
		rows[i] = []string{
			fmt.Sprint(cl.Index + 1),
			fmt.Sprint(cl.Phase),
			strings.Join(cl.Versions, " "),
			output.FormatList(cl.Inputs),
			output.FormatList(cl.Outputs),
		}
	}
	r.Table([]string{"#", "Phase", "Versions", "Reads", "Writes"}, rows)

	if len(out.Links) > 0 {
		r.Println("")
		r.Println(styles.Header2.Render("Phase Links"))
		for _, l := range out.Links {
			r.Printf("  phase %d %s phase %d  %s\n", l.From, styles.Muted.Render("->"), l.To, styles.ID.Render(l.File))
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d clusters, %d versions, %d phases",
		out.Summary.Clusters, out.Summary.Versions, out.Summary.Phases)))
}

func linkRows(links []report.Link) [][]string {
	rows := make([][]string, len(links))
	for i, l := range links {
		rows[i] = []string{fmt.Sprint(l.From), fmt.Sprint(l.To), l.File}
	}
	return rows
}
