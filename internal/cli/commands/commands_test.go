package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/statify/internal/cli/config"
	"github.com/leapstack-labs/statify/internal/cli/testutil"
	"github.com/leapstack-labs/statify/internal/repository"
	rootutil "github.com/leapstack-labs/statify/internal/testutil"
)

// execute runs cmd with cfg and a test logger in its context.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, rootutil.NewTestLogger(t))

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func jsonConfig() *config.Config {
	cfg := config.Default()
	cfg.OutputFormat = "json"
	return cfg
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewCompileCommand(), "compile <file>", []string{"out", "watch", "function-name", "dataset-param", "lookup-extension", "lookup"}},
		{NewDeadCommand(), "dead <file>", nil},
		{NewClustersCommand(), "clusters <file>", nil},
		{NewHistoryCommand(), "history <file> [variable]", nil},
		{NewInspectCommand(), "inspect <file|dir>", []string{"compile", "extension"}},
		{NewSpecCommand(), "spec <file>", []string{"out"}},
		{NewGraphCommand(), "graph <file>", []string{"out"}},
		{NewRunsCommand(), "runs [run-id]", []string{"limit"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestCompile_Stdout(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	stdout, stderr, err := execute(t, NewCompileCommand(), nil, path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "# Auto-generated R script\n"))
	assert.Contains(t, stdout, "logic_pipeline <- function(df) {")
	assert.Contains(t, stdout, "# Phase 1")
	assert.Contains(t, stdout, "mutate(z = y)")
	assert.Empty(t, stderr, "nothing recorded without a state path")
}

func TestCompile_OutFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "staged.sps", testutil.Staged)
	dest := filepath.Join(dir, "staged.R")

	stdout, stderr, err := execute(t, NewCompileCommand(), nil, path, "--out", dest)
	require.NoError(t, err)

	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "wrote "+dest+" (4 versions, 1 dead)")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mutate(y = x + 1)")
}

func TestCompile_MissingFile(t *testing.T) {
	_, _, err := execute(t, NewCompileCommand(), nil, filepath.Join(t.TempDir(), "nope.sps"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompile_RecordsRuns(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "staged.sps", testutil.Staged)
	cfg := config.Default()
	cfg.StatePath = filepath.Join(dir, "ledger", "state.db")

	_, stderr, err := execute(t, NewCompileCommand(), cfg, path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "recorded run ")

	cfg.OutputFormat = "json"
	stdout, _, err := execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)

	var list struct {
		Runs []RunOutput `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, path, list.Runs[0].SourcePath)
	assert.Equal(t, 2, list.Runs[0].Phases)

	stdout, _, err = execute(t, NewRunsCommand(), cfg, list.Runs[0].ID)
	require.NoError(t, err)

	var detail RunDetailOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &detail))
	require.Len(t, detail.Versions, 4)
	assert.Equal(t, "X_0", detail.Versions[0].ID)
	assert.True(t, detail.Versions[0].Dead)
	assert.Len(t, detail.Files, 3)
}

func TestRuns_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "staged.sps", testutil.Staged)
	cfg := config.Default()
	cfg.StatePath = filepath.Join(dir, "state.db")

	_, _, err := execute(t, NewCompileCommand(), cfg, path)
	require.NoError(t, err)

	stdout, _, err := execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Runs")
	assert.Contains(t, stdout, "| ID | Source | Created | Statements | Phases |")
	assert.Contains(t, stdout, path)
	testutil.AssertNoANSI(t, stdout)
}

func TestRuns_NoState(t *testing.T) {
	_, _, err := execute(t, NewRunsCommand(), nil)
	assert.ErrorIs(t, err, errNoState)
}

func TestDead(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	t.Run("markdown", func(t *testing.T) {
		stdout, _, err := execute(t, NewDeadCommand(), nil, path)
		require.NoError(t, err)
		assert.Equal(t, "# Dead Versions\n\n- `X_0` (phase 0): `COMPUTE x = 1.`\n\n1 of 4 versions are dead.\n", stdout)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, NewDeadCommand(), jsonConfig(), path)
		require.NoError(t, err)

		var out DeadOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, []string{"X_0"}, out.Dead)
		assert.Equal(t, 4, out.Total)
	})

	t.Run("none", func(t *testing.T) {
		clean := testutil.WriteScript(t, t.TempDir(), "clean.sps", "COMPUTE a = 1.\nCOMPUTE b = a.")
		stdout, _, err := execute(t, NewDeadCommand(), nil, clean)
		require.NoError(t, err)
		assert.Contains(t, stdout, "No dead versions.")
	})
}

func TestDeadText(t *testing.T) {
	tr := testutil.NewTestRenderer("text", false)
	deadText(tr.Renderer, DeadOutput{Dead: []string{}, Total: 2})
	assert.Contains(t, tr.Output(), "No dead versions.")
	testutil.AssertNoANSI(t, tr.Output())
}

func TestClusters(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	stdout, _, err := execute(t, NewClustersCommand(), jsonConfig(), path)
	require.NoError(t, err)

	var out ClustersOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 2, out.Summary.Phases)
	assert.Equal(t, len(out.Clusters), out.Summary.Clusters)

	var found bool
	for _, cl := range out.Clusters {
		if assert.NotEmpty(t, cl.Versions) && cl.Versions[0] == "X_1" {
			found = true
			assert.Equal(t, []string{"X_1", "Y_0"}, cl.Versions)
			assert.Equal(t, 0, cl.Phase)
			assert.Equal(t, []string{"stage.sav"}, cl.Outputs)
		}
	}
	assert.True(t, found, "X_1 and Y_0 form one cluster")
	require.Len(t, out.Links, 1)
	assert.Equal(t, "stage.sav", out.Links[0].File)

	stdout, _, err = execute(t, NewClustersCommand(), nil, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Clusters")
	assert.Contains(t, stdout, "- **Order:** X_1 -> Y_0")
	assert.Contains(t, stdout, "## Phase Links")
	testutil.AssertValidMarkdown(t, stdout)
}

func TestHistory(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	stdout, _, err := execute(t, NewHistoryCommand(), jsonConfig(), path, "x")
	require.NoError(t, err)

	var out HistoryOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "X", out.Variable)
	require.Len(t, out.Versions, 2)
	assert.True(t, out.Versions[0].Dead)
	assert.Equal(t, "COMPUTE x = base * 2.", out.Versions[1].Source)

	stdout, _, err = execute(t, NewHistoryCommand(), nil, path, "y")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# History of Y")
	assert.Contains(t, stdout, "| Y_0 | 0 | live | X_1 |")

	_, _, err = execute(t, NewHistoryCommand(), nil, path, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable Q is never assigned")
}

func TestHistory_Variables(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	stdout, _, err := execute(t, NewHistoryCommand(), nil, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "| X | 2 |")
	assert.Contains(t, stdout, "| Z | 1 |")
}

func TestInspect_File(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "staged.sps", testutil.Staged)

	stdout, _, err := execute(t, NewInspectCommand(), jsonConfig(), path, "--compile")
	require.NoError(t, err)

	var out InspectOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Files, 1)
	assert.Equal(t, []string{"raw.sav", "stage.sav"}, out.Files[0].Inputs)
	assert.Equal(t, []string{"stage.sav"}, out.Files[0].Outputs)
	assert.Equal(t, 4, out.Files[0].Versions)
	assert.Equal(t, 1, out.Files[0].Dead)
}

func TestInspect_Directory(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScript(t, dir, "prep.sps", "GET FILE='raw.sav'.\nCOMPUTE a = b.\nSAVE OUTFILE='clean.sav'.")
	testutil.WriteScript(t, dir, "jobs/report.sps", "GET FILE='clean.sav'.\nCOMPUTE c = a * 2.\nSAVE OUTFILE='report.sav'.")
	testutil.WriteScript(t, dir, "notes.txt", "GET FILE='ignored.sav'.")

	stdout, _, err := execute(t, NewInspectCommand(), jsonConfig(), dir, "--compile")
	require.NoError(t, err)

	var out InspectOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Files, 2)
	assert.Equal(t, "jobs/report.sps", out.Files[0].Path)
	assert.Equal(t, "prep.sps", out.Files[1].Path)
	assert.Equal(t, 1, out.Files[1].Versions)
	assert.Equal(t, []InspectEdge{{Producer: "prep.sps", Consumer: "jobs/report.sps", File: "clean.sav"}}, out.Edges)

	stdout, _, err = execute(t, NewInspectCommand(), nil, dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Data Files")
	assert.Contains(t, stdout, "## Dependencies")
	assert.Contains(t, stdout, "| prep.sps | jobs/report.sps | clean.sav |")
}

func TestInspect_Missing(t *testing.T) {
	_, _, err := execute(t, NewInspectCommand(), nil, filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSpecAndGraph(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "staged.sps", testutil.Staged)

	stdout, _, err := execute(t, NewSpecCommand(), nil, path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# Functional Specification\n"))
	testutil.AssertValidMarkdown(t, stdout)

	stdout, _, err = execute(t, NewGraphCommand(), jsonConfig(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "digraph lineage {"), "DOT ignores the output mode")

	dest := filepath.Join(dir, "staged.dot")
	_, stderr, err := execute(t, NewGraphCommand(), nil, path, "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+dest)
	assert.FileExists(t, dest)
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut string
	}{
		{"default version", "0.1.0", "statify v0.1.0"},
		{"dev version", "dev", "statify vdev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, NewVersionCommand(tt.version), nil)
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.wantOut)
		})
	}
}
