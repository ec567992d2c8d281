package reducer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/funvibe/diffsmith/internal/backend"
	"github.com/funvibe/diffsmith/internal/generator"
	"github.com/funvibe/diffsmith/internal/pipeline"
)

// Processor is the pipeline stage that reduces failing programs.
type Processor struct {
	Evaluator *backend.Evaluator
	// Check is required when Options.Standalone is set.
	Check   BehaviorCheck
	Options Options
}

func (p *Processor) Process(ctx context.Context, pc *pipeline.Context) *pipeline.Context {
	if pc.Program == nil || len(pc.Errors) > 0 || !pc.Failure.Interesting() {
		return pc
	}
	pred, err := backend.NewInterestingness(p.Evaluator, pc.Failure)
	if err != nil {
		pc.Fail(err)
		return pc
	}
	opts := p.Options
	opts.Header = append([]string{generator.ProvenanceLine(pc.Seed)}, opts.Header...)
	opts.Failure = pc.Failure.String()

	res, err := New(pred, p.Check, opts).Reduce(ctx, pc.Program)
	if errors.Is(err, ErrNotInteresting) {
		pc.Log().Warn("failure did not reproduce", slog.String("seed", pc.Seed), slog.String("outcome", pc.Failure.String()))
		return pc
	}
	if err != nil {
		pc.Fail(fmt.Errorf("reducing %s: %w", pc.Seed, err))
		return pc
	}

	pc.Reduced = res.Program
	pc.ReducedSource = res.Source
	pc.Reduction = &pipeline.Reduction{
		OriginalSize:   res.Stats.OriginalSize,
		ReducedSize:    res.Stats.ReducedSize,
		Elapsed:        res.Stats.Elapsed,
		PredicateCalls: res.Stats.PredicateCalls,
		CacheHits:      res.Stats.CacheHits,
	}
	pc.Count("predicate_calls", res.Stats.PredicateCalls)
	pc.Log().Info("reduced",
		slog.String("seed", pc.Seed),
		slog.Int("from", res.Stats.OriginalSize),
		slog.Int("to", res.Stats.ReducedSize),
		slog.Int("predicate_calls", res.Stats.PredicateCalls),
		slog.Duration("elapsed", res.Stats.Elapsed))
	return pc
}
