package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/state"
)

// RunOutput is the structured form of a recorded run.
type RunOutput struct {
	ID         string    `json:"id" yaml:"id"`
	SourcePath string    `json:"source_path" yaml:"source_path"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Statements int       `json:"statements" yaml:"statements"`
	Phases     int       `json:"phases" yaml:"phases"`
}

// RunVersionOutput is the structured form of a recorded version.
type RunVersionOutput struct {
	ID           string `json:"id" yaml:"id"`
	Phase        int    `json:"phase" yaml:"phase"`
	Kind         string `json:"kind" yaml:"kind"`
	Cluster      int    `json:"cluster" yaml:"cluster"`
	Dead         bool   `json:"dead" yaml:"dead"`
	Dependencies []int  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Source       string `json:"source" yaml:"source"`
}

// RunDetailOutput is the structured output of 'runs <id>'.
type RunDetailOutput struct {
	Run      RunOutput          `json:"run" yaml:"run"`
	Versions []RunVersionOutput `json:"versions" yaml:"versions"`
	Files    []state.PhaseFile  `json:"files" yaml:"files"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recorded compilations",
		Long: `List the compilations recorded in the run ledger, newest first, or show
the versions and phase files of one run.

Runs are recorded by 'statify compile' when state_path is configured.`,
		Example: `  statify runs --state .statify/state.db
  statify runs --limit 5
  statify runs 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowRun(cmd, args[0])
			}
			return runListRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	return cmd
}

func toRunOutput(r state.Run) RunOutput {
	return RunOutput{
		ID:         r.ID,
		SourcePath: r.SourcePath,
		CreatedAt:  r.CreatedAt,
		Statements: r.Statements,
		Phases:     r.Phases,
	}
}

func runListRuns(cmd *cobra.Command, limit int) error {
	c := NewCommandContext(cmd)
	store, cleanup, err := c.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := make([]RunOutput, len(runs))
	for i, run := range runs {
		out[i] = toRunOutput(run)
	}

	r := c.Renderer
	if ok, err := r.Structured(map[string]any{"runs": out}); ok {
		return err
	}

	r.Header(1, "Runs")
	rows := make([][]string, len(out))
	for i, run := range out {
		rows[i] = []string{
			run.ID,
			run.SourcePath,
			run.CreatedAt.Local().Format(time.DateTime),
			fmt.Sprint(run.Statements),
			fmt.Sprint(run.Phases),
		}
	}
	r.Table([]string{"ID", "Source", "Created", "Statements", "Phases"}, rows)
	return nil
}

func runShowRun(cmd *cobra.Command, id string) error {
	c := NewCommandContext(cmd)
	store, cleanup, err := c.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	versions, err := store.GetRunVersions(ctx, id)
	if err != nil {
		return err
	}
	files, err := store.GetRunFiles(ctx, id)
	if err != nil {
		return err
	}

	out := RunDetailOutput{
		Run:      toRunOutput(*run),
		Versions: make([]RunVersionOutput, len(versions)),
		Files:    files,
	}
	for i, v := range versions {
		out.Versions[i] = RunVersionOutput{
			ID:           fmt.Sprintf("%s_%d", v.Name, v.Index),
			Phase:        v.Phase,
			Kind:         v.Kind,
			Cluster:      v.Cluster,
			Dead:         v.Dead,
			Dependencies: v.Dependencies,
			Source:       v.Source,
		}
	}

	r := c.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	showRun(r, out)
	return nil
}

func showRun(r *output.Renderer, out RunDetailOutput) {
	r.Header(1, "Run "+out.Run.ID)
	r.Println(output.FormatKeyValue("Source", out.Run.SourcePath))
	r.Println(output.FormatKeyValue("Created", out.Run.CreatedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Statements", fmt.Sprint(out.Run.Statements)))
	r.Println(output.FormatKeyValue("Phases", fmt.Sprint(out.Run.Phases)))
	r.Println("")

	r.Header(2, "Versions")
	rows := make([][]string, len(out.Versions))
	for i, v := range out.Versions {
		status := "live"
		if v.Dead {
			status = "dead"
		}
		rows[i] = []string{v.ID, fmt.Sprint(v.Phase), fmt.Sprint(v.Cluster + 1), v.Kind, status, truncate(v.Source, 60)}
	}
	r.Table([]string{"Version", "Phase", "Cluster", "Kind", "Status", "Source"}, rows)

	if len(out.Files) == 0 {
		return
	}
	r.Println("")
	r.Header(2, "Files")
	files := make([][]string, len(out.Files))
	for i, f := range out.Files {
		direction := "reads"
		if f.Output {
			direction = "writes"
		}
		files[i] = []string{fmt.Sprint(f.Phase), direction, f.Filename}
	}
	r.Table([]string{"Phase", "Direction", "File"}, files)
}
