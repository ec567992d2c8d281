package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/funvibe/diffsmith/internal/backend"
	"github.com/funvibe/diffsmith/internal/generator"
	"github.com/funvibe/diffsmith/internal/pipeline"
	"github.com/funvibe/diffsmith/internal/reducer"
)

func newReduceCmd(g *globals) *cobra.Command {
	var (
		ef         execFlags
		seed       string
		output     string
		standalone bool
		execCmd    string
		skipCoarse bool
	)
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Generate a failing program from its seed and minimize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			evals, release, err := ef.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer release()

			ev := evals.get()
			red := &reducer.Processor{Evaluator: ev, Options: reducer.Options{Seed: 1, SkipCoarse: skipCoarse}}
			if standalone {
				run := splitCommand(execCmd)
				if len(run) == 0 {
					return errors.New("--standalone needs --exec to run the compiled programs")
				}
				red.Options.Standalone = true
				red.Check = &backend.ProcessCheck{Compiler: evals.compiler, Run: run, Timeout: ef.timeout()}
			}

			pc := pipeline.New(generator.Processor{}, backend.NewExecutionProcessor(ev), red).
				WithLogger(g.logger).
				Run(cmd.Context(), pipeline.NewContext(seed, opts))
			if err := pc.Err(); err != nil {
				return err
			}
			if pc.Reduced == nil {
				return fmt.Errorf("seed %s: nothing to reduce (%s)", pc.Seed, pc.Failure)
			}
			r := pc.Reduction
			g.logger.Info("done",
				slog.Int("from", r.OriginalSize), slog.Int("to", r.ReducedSize),
				slog.Int("predicate_calls", r.PredicateCalls), slog.Int("cache_hits", r.CacheHits))
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), pc.ReducedSource)
				return err
			}
			return os.WriteFile(output, []byte(pc.ReducedSource), 0o644)
		},
	}
	ef.bind(cmd)
	cmd.Flags().StringVarP(&seed, "seed", "s", "", "seed of the failing program")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the reduced program to a file")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "rewrite the result to print its values instead of using the runtime hook")
	cmd.Flags().StringVar(&execCmd, "exec", "", "command running one compiled program; {artifact} is substituted")
	cmd.Flags().BoolVar(&skipCoarse, "skip-coarse", false, "skip the coarse statement removal phase")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}
