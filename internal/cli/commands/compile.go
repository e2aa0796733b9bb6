package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/statify/internal/state"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	Out   string
	Watch bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a script to an R/dplyr function",
		Long: `Compile a legacy statistics script into a single R function built on dplyr.

Each statement is tracked as a versioned variable. Joins are emitted first,
then one mutate per live computation in dependency order. Statements that
cannot be translated are kept as TODO comments so nothing is dropped silently.

When state_path is configured the compilation is also recorded in the run
ledger (see 'statify runs').`,
		Example: `  # Print the generated script
  statify compile payroll.sps

  # Write it to a file and recompile on every save
  statify compile payroll.sps --out payroll.R --watch

  # Name the function and dataset parameter
  statify compile payroll.sps --function-name payroll --dataset-param data

  # Declare lookup tables joined by the script
  statify compile payroll.sps --lookup rates.csv --lookup codes.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Watch {
				return runCompile(cmd, args[0], opts)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchCompile(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Write the script to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Recompile when the source file changes")
	cmd.Flags().String("function-name", "", "Name of the generated function")
	cmd.Flags().String("dataset-param", "", "Name of the primary dataset parameter")
	cmd.Flags().String("lookup-extension", "", "Extension tried when auto-loading lookup tables")
	cmd.Flags().StringSlice("lookup", nil, "Lookup table filename joined by the script (repeatable)")

	return cmd
}

func runCompile(cmd *cobra.Command, path string, opts *CompileOptions) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	res, _, err := c.Compile(path)
	if err != nil {
		return err
	}
	script := c.Pipeline.Generate(res)

	if opts.Out == "" {
		r.Printf("%s", script)
	} else {
		if err := os.WriteFile(opts.Out, []byte(script), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.Out, err)
		}
		r.Success(fmt.Sprintf("wrote %s (%d versions, %d dead)", opts.Out, res.Engine.Len(), len(res.Dead)))
	}

	if c.Cfg.StatePath == "" {
		return nil
	}
	store, cleanup, err := c.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := store.SaveCompilation(cmd.Context(), state.NewCompilation(path, res))
	if err != nil {
		return fmt.Errorf("failed to record compilation: %w", err)
	}
	r.Muted("recorded run " + run.ID)
	return nil
}

func watchCompile(ctx context.Context, cmd *cobra.Command, path string, opts *CompileOptions) error {
	if err := runCompile(cmd, path, opts); err != nil {
		return err
	}
	c := NewCommandContext(cmd)
	c.Renderer.Muted("watching " + path + " (Ctrl+C to stop)")

	return watchFile(ctx, path, watchDebounce, c.Logger, func() {
		if err := runCompile(cmd, path, opts); err != nil {
			c.Renderer.Warning(err.Error())
		}
	})
}
