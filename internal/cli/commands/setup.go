// Package commands implements the statify subcommands.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/cli/config"
	"github.com/leapstack-labs/statify/internal/cli/output"
	"github.com/leapstack-labs/statify/internal/compiler"
	"github.com/leapstack-labs/statify/internal/repository"
	"github.com/leapstack-labs/statify/internal/state"
)

// errNoState is returned by ledger commands when no state path is configured.
var errNoState = errors.New("no state database configured\nHint: set state_path in statify.yaml or pass --state")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Pipeline *compiler.Pipeline
}

// NewCommandContext builds a CommandContext from the config and logger in
// the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	cc := cfg.CompilerConfig()
	cc.Logger = logger

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Pipeline: compiler.New(cc),
	}
}

// Compile reads and compiles one source file.
func (c *CommandContext) Compile(path string) (*compiler.Result, repository.File, error) {
	f, err := repository.ReadFile(path)
	if err != nil {
		return nil, f, err
	}
	res := c.Pipeline.Compile(f.Text)
	c.Logger.Info("compiled file", "path", path, "encoding", f.Encoding,
		"statements", res.Statements, "versions", res.Engine.Len())
	return res, f, nil
}

// OpenStore opens the run ledger, creating its directory if needed. The
// returned cleanup closes the store.
func (c *CommandContext) OpenStore() (*state.Store, func(), error) {
	if c.Cfg.StatePath == "" {
		return nil, nil, errNoState
	}
	if c.Cfg.StatePath != ":memory:" {
		if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
