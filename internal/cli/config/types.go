// Package config provides configuration management for the statify CLI.
//
// Values are layered with koanf: built-in defaults, then statify.yaml,
// then STATIFY_ environment variables, then explicitly set flags.
package config

import (
	"slices"

	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/internal/repository"
	"github.com/leapstack-labs/statify/pkg/codegen"
)

// CodegenConfig configures the generated R function.
type CodegenConfig struct {
	FunctionName    string `koanf:"function_name"`
	DatasetParam    string `koanf:"dataset_param"`
	LookupExtension string `koanf:"lookup_extension"`
}

// Options converts c to generator options.
func (c CodegenConfig) Options() codegen.Options {
	return codegen.Options{
		FunctionName:    c.FunctionName,
		DatasetParam:    c.DatasetParam,
		LookupExtension: c.LookupExtension,
	}
}

// Config holds all CLI configuration options.
type Config struct {
	OutputFormat string        `koanf:"output"`
	Verbose      bool          `koanf:"verbose"`
	LogLevel     string        `koanf:"log_level"`
	StatePath    string        `koanf:"state_path"` // empty disables the run ledger
	Extensions   []string      `koanf:"extensions"`
	Workers      int           `koanf:"workers"`
	Lookups      []string      `koanf:"lookups"`
	Codegen      CodegenConfig `koanf:"codegen"`
}

// CompilerConfig returns the pipeline configuration described by c.
func (c *Config) CompilerConfig() compiler.Config {
	return compiler.Config{
		Codegen: c.Codegen.Options(),
		Lookups: c.Lookups,
	}
}

// Default configuration values.
const (
	DefaultOutput   = "auto" // TTY=text, non-TTY=markdown
	DefaultLogLevel = "warn"
	DefaultWorkers  = 4
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := codegen.DefaultOptions()
	return &Config{
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Extensions:   slices.Clone(repository.DefaultExtensions),
		Workers:      DefaultWorkers,
		Codegen: CodegenConfig{
			FunctionName:    opts.FunctionName,
			DatasetParam:    opts.DatasetParam,
			LookupExtension: opts.LookupExtension,
		},
	}
}
