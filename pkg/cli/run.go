package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/funvibe/diffsmith/internal/backend"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/generator"
	"github.com/funvibe/diffsmith/internal/oracle"
	"github.com/funvibe/diffsmith/internal/pipeline"
	"github.com/funvibe/diffsmith/internal/reducer"
	"github.com/funvibe/diffsmith/internal/store"
)

// errFailuresFound makes the process exit with status 2.
var errFailuresFound = errors.New("failures found")

// session configures one fuzzing loop.
type session struct {
	opts    config.Options
	evals   evaluators
	store   *store.Store
	runID   string
	reduce  bool
	workers int
	outDir  string
	logger  *slog.Logger
}

// summary collects the outcomes of a loop.
type summary struct {
	mu       sync.Mutex
	programs int
	errors   int
	kinds    map[oracle.FailureKind]int
	counters map[string]int
}

func (s *summary) add(pc *pipeline.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs++
	if pc.Err() != nil {
		s.errors++
	}
	if pc.Failure.Kind != oracle.NoFailure {
		s.kinds[pc.Failure.Kind]++
	}
	for k, v := range pc.Counters {
		s.counters[k] += v
	}
}

func (s *summary) failures() int {
	n := 0
	for k, c := range s.kinds {
		if k != oracle.Timeout {
			n += c
		}
	}
	return n
}

func (s *summary) String() string {
	parts := []string{fmt.Sprintf("%d programs", s.programs), fmt.Sprintf("%d failures", s.failures())}
	var kinds []oracle.FailureKind
	for k := range s.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s %d", k, s.kinds[k]))
	}
	if s.errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.errors))
	}
	return strings.Join(parts, ", ")
}

func (s *session) pipeline() *pipeline.Pipeline {
	ev := s.evals.get()
	procs := []pipeline.Processor{generator.Processor{}, backend.NewExecutionProcessor(ev)}
	if s.reduce {
		procs = append(procs, &reducer.Processor{Evaluator: ev, Options: reducer.Options{Seed: 1}})
	}
	if s.store != nil {
		procs = append(procs, &store.Processor{Store: s.store})
	}
	return pipeline.New(procs...).WithLogger(s.logger)
}

// loop evaluates the seeds from next until it returns false or ctx is
// canceled, reporting every failure to out.
func (s *session) loop(ctx context.Context, next func() (string, bool), out io.Writer) *summary {
	sum := &summary{kinds: map[oracle.FailureKind]int{}, counters: map[string]int{}}
	seeds := make(chan string)
	paint := newPainter(out)
	var outMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < max(s.workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := s.pipeline()
			for seed := range seeds {
				pc := pipeline.NewContext(seed, s.opts)
				pc.RunID = s.runID
				pc = p.Run(ctx, pc)
				sum.add(pc)
				if err := pc.Err(); err != nil && ctx.Err() == nil {
					s.logger.Error("session failed", slog.String("seed", seed), slog.Any("error", err))
				}
				if !pc.Failure.Interesting() {
					continue
				}
				if err := s.save(pc); err != nil {
					s.logger.Error("saving program", slog.String("seed", pc.Seed), slog.Any("error", err))
				}
				outMu.Lock()
				fmt.Fprintf(out, "%s %s %s\n", paint.status(false), pc.Seed, pc.Failure)
				outMu.Unlock()
			}
		}()
	}

	for ctx.Err() == nil {
		seed, ok := next()
		if !ok {
			break
		}
		select {
		case seeds <- seed:
		case <-ctx.Done():
		}
	}
	close(seeds)
	wg.Wait()
	return sum
}

// save writes the failing program, reduced when available, to outDir.
func (s *session) save(pc *pipeline.Context) error {
	if s.outDir == "" {
		return nil
	}
	src := pc.Source
	if pc.ReducedSource != "" {
		src = pc.ReducedSource
	}
	name := strings.ReplaceAll(pc.Seed, ",", "_") + config.SourceFileExt
	return os.WriteFile(filepath.Join(s.outDir, name), []byte(src), 0o644)
}

func newRunCmd(g *globals) *cobra.Command {
	var (
		ef          execFlags
		count       int
		start       uint64
		vectorsProb float64
		unsafeProb  float64
		reduce      bool
		dbPath      string
		outDir      string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and evaluate programs, reporting diverging ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := g.options()
			if err != nil {
				return err
			}
			evals, release, err := ef.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer release()

			s := &session{opts: opts, evals: evals, reduce: reduce, workers: ef.workers, outDir: outDir, logger: g.logger}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}
			if start == 0 {
				start = generator.NewSeedSource(0, 0, 0).Next().Value
			}
			if dbPath != "" {
				st, err := store.Open(dbPath, config.Version)
				if err != nil {
					return err
				}
				defer st.Close()
				s.store = st
				if s.runID, err = st.BeginRun(ctx, strconv.FormatUint(start, 10)); err != nil {
					return err
				}
			}

			source := generator.NewSeedSource(start, vectorsProb, unsafeProb)
			n := 0
			next := func() (string, bool) {
				if count > 0 && n >= count {
					return "", false
				}
				n++
				return source.Next().String(), true
			}
			g.logger.Info("fuzzing", slog.Uint64("start", start), slog.Int("count", count), slog.Int("workers", ef.workers))
			sum := s.loop(ctx, next, cmd.OutOrStdout())

			paint := newPainter(cmd.ErrOrStderr())
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", paint.status(sum.failures() == 0), sum)
			g.logger.Debug("counters", slog.Any("counters", sum.counters))
			if sum.failures() > 0 {
				return errFailuresFound
			}
			return ctx.Err()
		},
	}
	ef.bind(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of programs; 0 runs until interrupted")
	cmd.Flags().Uint64Var(&start, "seed", 0, "seed of the seed sequence; random when 0")
	cmd.Flags().Float64Var(&vectorsProb, "vectors-prob", 0.25, "probability that a program uses vector types")
	cmd.Flags().Float64Var(&unsafeProb, "unsafe-prob", 0.25, "probability that a program uses unsafe reads")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "reduce every failing program")
	cmd.Flags().StringVar(&dbPath, "db", env.Str(config.EnvDatabase), "record findings in this SQLite database")
	cmd.Flags().StringVar(&outDir, "out", "", "write failing programs to this directory")
	return cmd
}
