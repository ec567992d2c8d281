package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/funvibe/diffsmith/internal/oracle"
)

// Evaluator compiles a program under both variants and runs the pair.
type Evaluator struct {
	Compiler Compiler
	Runner   oracle.Runner
	// TrackOutput asks for site traces on every run. When unset, a
	// checksum mismatch is rerun with tracing to locate the divergence.
	TrackOutput bool

	stats EvalStats
}

// EvalStats counts the external work done by an Evaluator.
type EvalStats struct {
	Compilations int
	OracleCalls  int
}

// NewEvaluator pairs a compiler with a runner, usually an oracle.Pool.
func NewEvaluator(c Compiler, r oracle.Runner) *Evaluator {
	return &Evaluator{Compiler: c, Runner: r}
}

// Stats returns the counters so far.
func (e *Evaluator) Stats() EvalStats { return e.stats }

// CompileAll compiles source under every variant, stopping at the first
// one that produces diagnostics.
func (e *Evaluator) CompileAll(ctx context.Context, source string) (map[Variant]CompileResult, []oracle.Diagnostic, error) {
	results := make(map[Variant]CompileResult, len(Variants))
	for _, v := range Variants {
		res, err := e.compile(ctx, source, v)
		if err != nil {
			return nil, nil, err
		}
		if !res.OK() {
			return nil, res.Diagnostics, nil
		}
		results[v] = res
	}
	return results, nil, nil
}

func (e *Evaluator) compile(ctx context.Context, source string, v Variant) (CompileResult, error) {
	e.stats.Compilations++
	res, err := e.Compiler.Compile(ctx, source, v)
	if err != nil {
		return CompileResult{}, fmt.Errorf("compiling %s: %w", v, err)
	}
	return res, nil
}

// Run sends compiled artifacts to the oracle. Timeouts and crashes are
// outcomes and land in the evaluation; other errors are returned.
func (e *Evaluator) Run(ctx context.Context, artifacts map[Variant]CompileResult, track bool) (oracle.Evaluation, error) {
	e.stats.OracleCalls++
	res, err := e.Runner.RunPair(ctx, oracle.PairRequest{
		TrackOutput:     track,
		DebugArtifact:   artifacts[Debug].Artifact,
		ReleaseArtifact: artifacts[Release].Artifact,
	})
	switch {
	case err == nil:
		return oracle.Evaluation{Result: &res}, nil
	case errors.Is(err, oracle.ErrTimeout), errors.Is(err, oracle.ErrWorkerCrashed):
		return oracle.Evaluation{Err: err}, nil
	}
	return oracle.Evaluation{}, fmt.Errorf("running pair: %w", err)
}

// Evaluate compiles and runs source.
func (e *Evaluator) Evaluate(ctx context.Context, source string) (oracle.Evaluation, error) {
	artifacts, diags, err := e.CompileAll(ctx, source)
	if err != nil {
		return oracle.Evaluation{}, err
	}
	if len(diags) > 0 {
		return oracle.Evaluation{Diagnostics: diags}, nil
	}
	ev, err := e.Run(ctx, artifacts, e.TrackOutput)
	if err != nil || e.TrackOutput {
		return ev, err
	}
	if oracle.Classify(ev).Kind != oracle.ChecksumMismatch {
		return ev, nil
	}
	traced, err := e.Run(ctx, artifacts, true)
	if err != nil {
		return ev, err
	}
	// Keep the untraced result if tracing changed the outcome.
	if oracle.Classify(traced).Kind == oracle.ChecksumMismatch {
		return traced, nil
	}
	return ev, nil
}
