package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/internal/testutil"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "prep/clean.sps", []byte("GET FILE='raw.sav'.\nCOMPUTE x = 1.\nSAVE OUTFILE='clean.sav'.\n"))
	writeFile(t, root, "report.SPS", []byte("GET FILE='clean.sav'.\nCOMPUTE y = x * 2.\nSAVE OUTFILE='final.sav'.\n"))
	writeFile(t, root, "notes.txt", []byte("COMPUTE ignored = 1.\n"))
	return root
}

func TestScan(t *testing.T) {
	repo, err := Scan(fixture(t), nil, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	require.Len(t, repo.Files, 2)
	assert.Equal(t, "prep/clean.sps", repo.Files[0].Path)
	assert.Equal(t, "report.SPS", repo.Files[1].Path)
	assert.Equal(t, []string{"raw.sav"}, repo.Files[0].Inputs)
	assert.Equal(t, []string{"clean.sav"}, repo.Files[0].Outputs)
	assert.Equal(t, "utf-8", repo.Files[0].Encoding)
}

func TestScan_Extensions(t *testing.T) {
	repo, err := Scan(fixture(t), []string{".TXT"})
	require.NoError(t, err)
	require.Len(t, repo.Files, 1)
	assert.Equal(t, "notes.txt", repo.Files[0].Path)
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, ErrNotFound)

	root := t.TempDir()
	writeFile(t, root, "a.sps", []byte("COMPUTE a = 1."))
	_, err = Scan(filepath.Join(root, "a.sps"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		text string
		enc  string
	}{
		{"ascii", []byte("COMPUTE a = 1."), "COMPUTE a = 1.", "utf-8"},
		{"utf-8", []byte("COMPUTE s = 'é'."), "COMPUTE s = 'é'.", "utf-8"},
		{"bom", []byte("\xEF\xBB\xBFCOMPUTE a = 1."), "COMPUTE a = 1.", "utf-8"},
		{"latin-1", []byte("COMPUTE s = '\xE9t\xE9'."), "COMPUTE s = 'été'.", "latin-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.enc, enc)
		})
	}
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.sps"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompileAll(t *testing.T) {
	repo, err := Scan(fixture(t), nil)
	require.NoError(t, err)

	p := compiler.New(compiler.Config{Logger: testutil.NewTestLogger(t)})
	compiled, err := repo.CompileAll(context.Background(), p, 4)
	require.NoError(t, err)

	require.Len(t, compiled, 2)
	assert.Equal(t, "prep/clean.sps", compiled[0].File.Path)
	assert.Empty(t, compiled[0].Result.DeadIDs())
	assert.Equal(t, 1, compiled[0].Result.Engine.Len())
	assert.Equal(t, 1, compiled[1].Result.Engine.Len())

	// y reads x, which only exists in the other script.
	assert.Equal(t, []string{"X"}, compiled[1].Result.Engine.Externals())
}

func TestCompileAll_Cancelled(t *testing.T) {
	repo, err := Scan(fixture(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.CompileAll(ctx, compiler.New(compiler.Config{}), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDependencies(t *testing.T) {
	repo, err := Scan(fixture(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []Edge{
		{Producer: "prep/clean.sps", Consumer: "report.SPS", File: "clean.sav"},
	}, repo.Dependencies())
}
