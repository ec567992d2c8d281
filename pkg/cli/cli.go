// Package cli implements the diffsmith command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/funvibe/diffsmith/internal/config"
)

func init() {
	// Look variables up on every read: tests and embedders change them
	// after start.
	env.Unload()
}

// globals are the flags shared by every command.
type globals struct {
	verbose    bool
	quiet      bool
	configPath string
	logger     *slog.Logger
}

// options loads the generation profile named by --config, or the
// defaults.
func (g *globals) options() (config.Options, error) {
	if g.configPath == "" {
		return config.Defaults(), nil
	}
	return config.Load(g.configPath)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           config.ToolName,
		Short:         "Differential fuzzer for the debug and release builds of a compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.verbose && g.quiet {
				return errors.New("options conflict: cannot use --verbose and --quiet together")
			}
			g.logger = newLogger(cmd.ErrOrStderr(), logLevel(g.verbose, g.quiet))
			slog.SetDefault(g.logger)
			return nil
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log every program and stage")
	cmd.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "log only warnings and errors")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", env.Str(config.EnvConfig), "YAML generation profile")

	cmd.AddCommand(
		newGenCmd(g),
		newRunCmd(g),
		newReduceCmd(g),
		newServeCmd(g),
		newFindingsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Run executes the command line and exits with a non-zero status on
// failure.
func Run() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// Execute runs the command line with the given arguments and streams
// and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if _, ok := stderr.(*syncWriter); !ok {
		stderr = &syncWriter{w: stderr}
	}
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		if errors.Is(err, errFailuresFound) {
			return 2
		}
		return 1
	}
	return 0
}
