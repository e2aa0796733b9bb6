package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/internal/repository"
)

// InspectFile is the file I/O of one script.
type InspectFile struct {
	Path     string   `json:"path" yaml:"path"`
	Encoding string   `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Inputs   []string `json:"inputs" yaml:"inputs"`
	Outputs  []string `json:"outputs" yaml:"outputs"`
	Versions int      `json:"versions,omitempty" yaml:"versions,omitempty"`
	Dead     int      `json:"dead,omitempty" yaml:"dead,omitempty"`
}

// InspectEdge is a file written by one script and read by another.
type InspectEdge struct {
	Producer string `json:"producer" yaml:"producer"`
	Consumer string `json:"consumer" yaml:"consumer"`
	File     string `json:"file" yaml:"file"`
}

// InspectOutput is the structured output of the inspect command.
type InspectOutput struct {
	Root  string        `json:"root" yaml:"root"`
	Files []InspectFile `json:"files" yaml:"files"`
	Edges []InspectEdge `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var compile bool

	cmd := &cobra.Command{
		Use:   "inspect <file|dir>",
		Short: "List the data files scripts read and write",
		Long: `List the data files a script loads, joins and saves.

Given a directory, every script with a configured extension is scanned and
the files passed from one script to another are reported as dependencies.
With --compile each script is also compiled (in parallel, see 'workers')
and its version and dead counts are shown.`,
		Example: `  statify inspect payroll.sps
  statify inspect jobs/ --compile
  statify inspect jobs/ --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], compile)
		},
	}

	cmd.Flags().BoolVar(&compile, "compile", false, "Compile every script and report version counts")
	cmd.Flags().StringSlice("extension", nil, "Source file extension to scan (repeatable)")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, compile bool) error {
	c := NewCommandContext(cmd)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, path)
	}
	if err != nil {
		return err
	}

	var out InspectOutput
	if info.IsDir() {
		out, err = inspectDir(cmd, c, path, compile)
	} else {
		out, err = inspectFile(c, path, compile)
	}
	if err != nil {
		return err
	}

	r := c.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	inspectTables(r, out, compile)
	return nil
}

func inspectFile(c *CommandContext, path string, compile bool) (InspectOutput, error) {
	f, err := repository.ReadFile(path)
	if err != nil {
		return InspectOutput{}, err
	}
	in, outs := compiler.Inspect(f.Text)
	file := InspectFile{Path: f.Path, Encoding: f.Encoding, Inputs: nonNil(in), Outputs: nonNil(outs)}
	if compile {
		res := c.Pipeline.Compile(f.Text)
		file.Versions, file.Dead = res.Engine.Len(), len(res.Dead)
	}
	return InspectOutput{Root: path, Files: []InspectFile{file}}, nil
}

func inspectDir(cmd *cobra.Command, c *CommandContext, root string, compile bool) (InspectOutput, error) {
	repo, err := repository.Scan(root, c.Cfg.Extensions, repository.WithLogger(c.Logger))
	if err != nil {
		return InspectOutput{}, err
	}

	out := InspectOutput{Root: root, Files: make([]InspectFile, len(repo.Files))}
	for i, f := range repo.Files {
		out.Files[i] = InspectFile{Path: f.Path, Encoding: f.Encoding, Inputs: nonNil(f.Inputs), Outputs: nonNil(f.Outputs)}
	}
	for _, e := range repo.Dependencies() {
		out.Edges = append(out.Edges, InspectEdge(e))
	}

	if compile {
		compiled, err := repo.CompileAll(cmd.Context(), c.Pipeline, c.Cfg.Workers)
		if err != nil {
			return InspectOutput{}, err
		}
		for i, cf := range compiled {
			out.Files[i].Versions = cf.Result.Engine.Len()
			out.Files[i].Dead = len(cf.Result.Dead)
		}
	}
	return out, nil
}

func inspectTables(r *output.Renderer, out InspectOutput, compile bool) {
	r.Header(1, "Data Files")

	headers := []string{"Script", "Reads", "Writes"}
	if compile {
		headers = append(headers, "Versions", "Dead")
	}
	rows := make([][]string, len(out.Files))
	for i, f := range out.Files {
		rows[i] = []string{f.Path, output.FormatList(f.Inputs), output.FormatList(f.Outputs)}
		if compile {
			rows[i] = append(rows[i], fmt.Sprint(f.Versions), fmt.Sprint(f.Dead))
		}
	}
	r.Table(headers, rows)

	if len(out.Edges) == 0 {
		return
	}
	r.Println("")
	r.Header(2, "Dependencies")
	edges := make([][]string, len(out.Edges))
	for i, e := range out.Edges {
		edges[i] = []string{e.Producer, e.Consumer, e.File}
	}
	r.Table([]string{"Producer", "Consumer", "File"}, edges)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
