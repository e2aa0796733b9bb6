package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "statify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.StringP("output", "o", "", "output format")
	flags.String("log-level", "", "log level")
	flags.String("state", "", "state database")
	flags.Int("workers", 0, "workers")
	flags.StringSlice("lookup", nil, "lookup tables")
	flags.String("function-name", "", "function name")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, "logic_pipeline", cfg.Codegen.FunctionName)
	assert.Equal(t, []string{".sps", ".spss"}, cfg.Extensions)
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, `output: json
log_level: debug
state_path: .statify/state.db
workers: 2
lookups: [rates.csv, codes.csv]
codegen:
  function_name: migrate
  lookup_extension: tsv
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, ".statify", "state.db"), cfg.StatePath, "relative to the config file")
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"rates.csv", "codes.csv"}, cfg.Lookups)
	assert.Equal(t, "migrate", cfg.Codegen.FunctionName)
	assert.Equal(t, "df", cfg.Codegen.DatasetParam, "unset nested keys keep defaults")
	assert.Equal(t, "tsv", cfg.Codegen.LookupExtension)
}

func TestLoadConfig_FindsFileUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, "workers: 7\n")
	nested := filepath.Join(root, "jobs", "monthly")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "statify.yaml", filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, t.TempDir(), "log_level: info\ncodegen:\n  dataset_param: data\n")
	t.Setenv("STATIFY_LOG_LEVEL", "error")
	t.Setenv("STATIFY_CODEGEN__DATASET_PARAM", "frame")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "frame", cfg.Codegen.DatasetParam)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, t.TempDir(), "workers: 2\ncodegen:\n  function_name: from_file\n")
	t.Setenv("STATIFY_WORKERS", "3")

	flags := testFlags()
	require.NoError(t, flags.Set("workers", "5"))
	require.NoError(t, flags.Set("function-name", "from_flag"))
	require.NoError(t, flags.Set("lookup", "a.csv,b.csv"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "from_flag", cfg.Codegen.FunctionName)
	assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.Lookups)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("STATIFY_OUTPUT", "yaml")

	cfg, err := LoadConfig("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.OutputFormat)
}

func TestLoadConfig_StatePath(t *testing.T) {
	t.Run("flag is relative to the working directory", func(t *testing.T) {
		ResetConfig()
		cwd := t.TempDir()
		t.Chdir(cwd)
		flags := testFlags()
		require.NoError(t, flags.Set("state", "ledger.db"))

		cfg, err := LoadConfig("", flags)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "ledger.db"), cfg.StatePath)
	})

	t.Run("env vars are expanded", func(t *testing.T) {
		ResetConfig()
		dir := t.TempDir()
		t.Setenv("LEDGER_DIR", dir)
		path := writeConfig(t, t.TempDir(), "state_path: ${LEDGER_DIR}/state.db\n")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "state.db"), cfg.StatePath)
	})

	t.Run("memory is kept", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, t.TempDir(), "state_path: ':memory:'\n")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.StatePath)
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"bad output", "output: html\n", "invalid output"},
		{"bad log level", "log_level: loud\n", "invalid log_level"},
		{"zero workers", "workers: 0\n", "workers must be at least 1"},
		{"bad function name", "codegen:\n  function_name: my fn\n", "plain identifiers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"multiple variables", "${TEST_VAR_ONE}/${TEST_VAR_TWO}", "value_one/value_two"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"error", slog.LevelError, false},
		{"chatty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerContext(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info")
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), logger)
	GetLogger(ctx).Info("compiled file", "path", "payroll.sps")
	GetLogger(ctx).Debug("hidden")

	assert.Contains(t, buf.String(), "msg=\"compiled file\" path=payroll.sps")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestCompilerConfig(t *testing.T) {
	cfg := Default()
	cfg.Lookups = []string{"rates.csv"}
	cc := cfg.CompilerConfig()
	assert.Equal(t, []string{"rates.csv"}, cc.Lookups)
	assert.Equal(t, "logic_pipeline", cc.Codegen.FunctionName)
}

func TestConfigContext(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	cfg := Default()
	cfg.Workers = 9
	assert.Same(t, cfg, FromContext(WithConfig(context.Background(), cfg)))
}
