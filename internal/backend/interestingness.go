package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/diffsmith/internal/oracle"
)

// Interestingness decides whether a reduction candidate still shows the
// failure of the original program. Candidates are compiled first and a
// candidate that does not compile never reaches the oracle.
type Interestingness struct {
	eval   *Evaluator
	target oracle.Failure
	// variant is the configuration the original failed to compile in,
	// for diagnostic targets.
	variant Variant
}

// NewInterestingness builds the predicate for target, the classified
// failure of the original program.
func NewInterestingness(e *Evaluator, target oracle.Failure) (*Interestingness, error) {
	if !target.Interesting() {
		return nil, fmt.Errorf("cannot reduce a program with outcome %s", target)
	}
	in := &Interestingness{eval: e, target: target, variant: Debug}
	if target.Kind == oracle.CompileDiagnostic && target.Variant != "" {
		v, err := ParseVariant(target.Variant)
		if err != nil {
			return nil, err
		}
		in.variant = v
	}
	return in, nil
}

// Target returns the failure being reproduced.
func (in *Interestingness) Target() oracle.Failure { return in.target }

// IsInteresting compiles and, when needed, runs source.
func (in *Interestingness) IsInteresting(ctx context.Context, source string) (bool, error) {
	if in.target.Kind == oracle.CompileDiagnostic {
		res, err := in.eval.compile(ctx, source, in.variant)
		if err != nil {
			return false, err
		}
		for _, d := range res.Diagnostics {
			if d.ID == in.target.Detail {
				return true, nil
			}
		}
		return false, nil
	}

	artifacts, diags, err := in.eval.CompileAll(ctx, source)
	if err != nil || len(diags) > 0 {
		return false, err
	}
	ev, err := in.eval.Run(ctx, artifacts, false)
	if err != nil {
		return false, err
	}
	return in.target.Reproduces(oracle.Classify(ev)), nil
}
