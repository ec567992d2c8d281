package oracle

import (
	"errors"
	"fmt"
)

// Diagnostic is a compiler message that stopped one build variant.
type Diagnostic struct {
	ID      string
	Message string
	Variant string
}

// Evaluation is everything observed about one program: compile
// diagnostics, or the pair result, or the error that prevented one.
type Evaluation struct {
	Diagnostics []Diagnostic
	Result      *PairResult
	Err         error
}

// FailureKind classifies an evaluation.
type FailureKind int

const (
	NoFailure FailureKind = iota
	InternalFailureKind
	CompileDiagnostic
	Crash
	Timeout
	ExceptionMismatch
	ChecksumMismatch
)

var failureNames = [...]string{"None", "InternalFailure", "CompileDiagnostic", "Crash", "Timeout", "ExceptionMismatch", "ChecksumMismatch"}

func (k FailureKind) String() string {
	if int(k) < len(failureNames) {
		return failureNames[k]
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is the classified outcome of an evaluation.
type Failure struct {
	Kind FailureKind
	// Detail is the diagnostic id for CompileDiagnostic, the failure
	// text for InternalFailureKind and the exception types otherwise.
	Detail string
	// Variant names the build variant that failed, when only one did.
	Variant string
	// Divergence is the first index at which the site traces differ,
	// or -1 when no trace was recorded.
	Divergence int
}

// Interesting reports whether the failure is worth keeping. Timeouts are
// inconclusive.
func (f Failure) Interesting() bool {
	return f.Kind != NoFailure && f.Kind != Timeout
}

// Reproduces reports whether other shows the same problem as f, which is
// the failure of the original program.
func (f Failure) Reproduces(other Failure) bool {
	if !f.Interesting() || other.Kind != f.Kind {
		return false
	}
	switch f.Kind {
	case CompileDiagnostic, ExceptionMismatch, InternalFailureKind:
		// The diagnostic code, the pair of exception types or the
		// compiler message identify the problem.
		return other.Detail == f.Detail
	}
	return true
}

func (f Failure) String() string {
	var s string
	switch f.Kind {
	case NoFailure:
		return "no failure"
	case CompileDiagnostic:
		s = fmt.Sprintf("%s %s", f.Kind, f.Detail)
	case InternalFailureKind, ExceptionMismatch:
		s = fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	default:
		s = f.Kind.String()
	}
	if f.Variant != "" {
		s += " in " + f.Variant
	}
	if f.Divergence >= 0 {
		s += fmt.Sprintf(" (first divergence at site %d)", f.Divergence)
	}
	return s
}

// FirstDivergence returns the first index at which a and b differ, or at
// which one of them ends early. It returns -1 when they are equal.
func FirstDivergence(a, b []ChecksumSite) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

// Classify picks the most severe failure in ev.
func Classify(ev Evaluation) Failure {
	f := Failure{Divergence: -1}
	if r := ev.Result; r != nil {
		for _, v := range []struct {
			name string
			run  RunResult
		}{{"debug", r.Debug}, {"release", r.Release}} {
			if v.run.Kind == InternalFailure {
				f.Kind = InternalFailureKind
				f.Detail = v.run.InternalFailureText
				f.Variant = v.name
				return f
			}
		}
	}
	if len(ev.Diagnostics) > 0 {
		d := ev.Diagnostics[0]
		f.Kind = CompileDiagnostic
		f.Detail = d.ID
		f.Variant = d.Variant
		return f
	}
	switch {
	case errors.Is(ev.Err, ErrWorkerCrashed):
		f.Kind = Crash
		return f
	case errors.Is(ev.Err, ErrTimeout):
		f.Kind = Timeout
		return f
	case ev.Result == nil:
		return f
	}

	d, r := ev.Result.Debug, ev.Result.Release
	if d.Kind != r.Kind || d.ExceptionType != r.ExceptionType {
		f.Kind = ExceptionMismatch
		f.Detail = fmt.Sprintf("debug %s, release %s", describe(d), describe(r))
	} else if d.Checksum != r.Checksum {
		f.Kind = ChecksumMismatch
	} else {
		return f
	}
	if len(d.ChecksumSites) > 0 || len(r.ChecksumSites) > 0 {
		f.Divergence = FirstDivergence(d.ChecksumSites, r.ChecksumSites)
	}
	return f
}

func describe(r RunResult) string {
	if r.Kind == ThrewException {
		return r.ExceptionType
	}
	return r.Kind.String()
}
