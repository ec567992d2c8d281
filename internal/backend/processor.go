package backend

import (
	"context"
	"log/slog"

	"github.com/funvibe/diffsmith/internal/oracle"
	"github.com/funvibe/diffsmith/internal/pipeline"
)

// ExecutionProcessor is the pipeline stage that evaluates pc.Source.
type ExecutionProcessor struct {
	Evaluator *Evaluator
}

// NewExecutionProcessor creates a new pipeline step for the given evaluator.
func NewExecutionProcessor(e *Evaluator) *ExecutionProcessor {
	return &ExecutionProcessor{Evaluator: e}
}

func (p *ExecutionProcessor) Process(ctx context.Context, pc *pipeline.Context) *pipeline.Context {
	// If previous steps failed, don't run execution
	if pc.Source == "" || len(pc.Errors) > 0 {
		return pc
	}

	before := p.Evaluator.Stats()
	ev, err := p.Evaluator.Evaluate(ctx, pc.Source)
	after := p.Evaluator.Stats()
	pc.Count("compilations", after.Compilations-before.Compilations)
	pc.Count("oracle_calls", after.OracleCalls-before.OracleCalls)
	if err != nil {
		pc.Fail(err)
		return pc
	}

	pc.Evaluation = &ev
	pc.Failure = oracle.Classify(ev)
	switch {
	case pc.Failure.Interesting():
		pc.Log().Info("failure", slog.String("seed", pc.Seed), slog.String("outcome", pc.Failure.String()))
	case pc.Failure.Kind == oracle.Timeout:
		pc.Log().Warn("inconclusive", slog.String("seed", pc.Seed), slog.String("outcome", pc.Failure.String()))
	case ev.Result != nil:
		pc.Log().Debug("agreed", slog.String("seed", pc.Seed), slog.String("checksum", ev.Result.Debug.Checksum))
	}
	return pc
}
