package pipeline

import (
	"errors"
	"log/slog"
	"time"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/oracle"
)

// Reduction summarizes a finished reduction.
type Reduction struct {
	OriginalSize   int
	ReducedSize    int
	Elapsed        time.Duration
	PredicateCalls int
	CacheHits      int
}

// Context carries one program through generation, evaluation, reduction
// and recording.
type Context struct {
	RunID   string
	Seed    string
	Options config.Options
	Logger  *slog.Logger

	Program *ast.Program
	Source  string

	Evaluation *oracle.Evaluation
	Failure    oracle.Failure

	Reduced       *ast.Program
	ReducedSource string
	Reduction     *Reduction

	// Counters collects per-stage statistics for reporting.
	Counters map[string]int
	Errors   []error
}

// NewContext starts a session for the given seed specification.
func NewContext(seed string, opts config.Options) *Context {
	return &Context{
		Seed:     seed,
		Options:  opts,
		Failure:  oracle.Failure{Divergence: -1},
		Counters: map[string]int{},
	}
}

// Fail records a stage error.
func (pc *Context) Fail(err error) {
	pc.Errors = append(pc.Errors, err)
}

// Err joins the recorded errors.
func (pc *Context) Err() error {
	return errors.Join(pc.Errors...)
}

// Count adds n to a counter.
func (pc *Context) Count(name string, n int) {
	if pc.Counters == nil {
		pc.Counters = map[string]int{}
	}
	pc.Counters[name] += n
}

// Log returns the session logger, falling back to the default.
func (pc *Context) Log() *slog.Logger {
	if pc.Logger == nil {
		return slog.Default()
	}
	return pc.Logger
}
