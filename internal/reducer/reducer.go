// Package reducer shrinks a failing program while a predicate keeps
// reporting the original failure.
package reducer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
	"github.com/funvibe/diffsmith/internal/rng"
)

// ErrNotInteresting is returned when the input does not satisfy the
// predicate.
var ErrNotInteresting = errors.New("reducer: input program is not interesting")

// Predicate decides whether a candidate still shows the failure. It is
// called with the emitted candidate text.
type Predicate interface {
	IsInteresting(ctx context.Context, source string) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ctx context.Context, source string) (bool, error)

func (f PredicateFunc) IsInteresting(ctx context.Context, source string) (bool, error) {
	return f(ctx, source)
}

// BehaviorCheck observes a standalone program as a black box and reports
// whether the build variants still behave differently.
type BehaviorCheck interface {
	Diverges(ctx context.Context, source string) (bool, error)
}

// Options tune a reduction.
type Options struct {
	// Seed drives the order in which nodes are visited.
	Seed uint64
	// Header lines are placed above the reduction summary.
	Header []string
	// Failure restates the reproduced failure in the summary.
	Failure string
	// Standalone collapses the checksum scaffolding after reduction.
	// It needs a BehaviorCheck.
	Standalone bool
	SkipCoarse bool
}

// Stats describes a finished reduction.
type Stats struct {
	OriginalSize   int
	ReducedSize    int
	PredicateCalls int
	CacheHits      int
	Candidates     int
	// Oversized counts candidates dropped for not being smaller.
	Oversized int
	Rounds    int
	// Rules counts the kept candidates per rule.
	Rules           map[string]int
	StandaloneSteps int
	RolledBack      int
	Elapsed         time.Duration
}

// Result is the reduced program.
type Result struct {
	Program *ast.Program
	// Source is the emitted program with its provenance header.
	Source string
	Stats  Stats
}

// Reducer holds the state of one reduction. It is not safe for
// concurrent use.
type Reducer struct {
	pred  Predicate
	check BehaviorCheck
	opts  Options
	now   func() time.Time

	r       *rng.Rand
	memo    map[string]bool
	cur     *ast.Program
	curSize int
	curText string
	stats   Stats
}

// New creates a reducer. check may be nil when standalone collapse is
// not requested.
func New(pred Predicate, check BehaviorCheck, opts Options) *Reducer {
	return &Reducer{pred: pred, check: check, opts: opts, now: time.Now}
}

// Reduce shrinks p, which is left untouched.
func (r *Reducer) Reduce(ctx context.Context, p *ast.Program) (*Result, error) {
	start := r.now()
	r.reset(p)

	ok, err := r.test(ctx, r.curText)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInteresting
	}

	if !r.opts.SkipCoarse {
		if err := r.coarse(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.fixpoint(ctx); err != nil {
		return nil, err
	}
	if r.opts.Standalone {
		if r.check == nil {
			return nil, errors.New("reducer: standalone collapse needs a behavior check")
		}
		if err := r.collapse(ctx); err != nil {
			return nil, err
		}
	}

	r.stats.ReducedSize = ast.Size(r.cur)
	r.stats.Elapsed = r.now().Sub(start)
	out := r.cur
	out.Header = r.header()
	return &Result{Program: out, Source: prettyprinter.Print(out), Stats: r.stats}, nil
}

func (r *Reducer) reset(p *ast.Program) {
	r.r = rng.New(r.opts.Seed)
	r.memo = map[string]bool{}
	r.stats = Stats{Rules: map[string]int{}}

	r.cur = p.Clone()
	r.cur.Header = nil
	ast.AssignIDs(r.cur)
	r.curSize = ast.Size(r.cur)
	r.curText = prettyprinter.Print(r.cur)
	r.stats.OriginalSize = r.curSize
}

func (r *Reducer) header() []string {
	lines := append([]string(nil), r.opts.Header...)
	lines = append(lines, fmt.Sprintf("Reduced from %d to %d nodes in %s", r.stats.OriginalSize, r.stats.ReducedSize, r.stats.Elapsed.Round(time.Millisecond)))
	if r.opts.Failure != "" {
		lines = append(lines, "Reproduces: "+r.opts.Failure)
	}
	if r.cur.Standalone {
		lines = append(lines, "Standalone: compare the output of the debug and release builds")
	}
	return lines
}

// test asks the predicate, memoized by text.
func (r *Reducer) test(ctx context.Context, text string) (bool, error) {
	if ok, seen := r.memo[text]; seen {
		r.stats.CacheHits++
		return ok, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.stats.PredicateCalls++
	ok, err := r.pred.IsInteresting(ctx, text)
	if err != nil {
		return false, fmt.Errorf("predicate: %w", err)
	}
	r.memo[text] = ok
	return ok, nil
}

// smaller orders programs by node count, then text length, then text.
// Every kept candidate is strictly smaller, so reduction terminates.
func smaller(size int, text string, thanSize int, thanText string) bool {
	if size != thanSize {
		return size < thanSize
	}
	if len(text) != len(thanText) {
		return len(text) < len(thanText)
	}
	return text < thanText
}

// try keeps cand as the current program if it is smaller and still
// interesting.
func (r *Reducer) try(ctx context.Context, cand *ast.Program, rule string) (bool, error) {
	r.stats.Candidates++
	ast.FillIDs(cand)
	size := ast.Size(cand)
	text := prettyprinter.Print(cand)
	if !smaller(size, text, r.curSize, r.curText) {
		r.stats.Oversized++
		return false, nil
	}
	ok, err := r.test(ctx, text)
	if err != nil || !ok {
		return false, err
	}
	r.cur, r.curSize, r.curText = cand, size, text
	r.stats.Rules[rule]++
	return true, nil
}
