// Package backend compiles generated programs under the two build
// variants and runs the artifacts through an oracle.
package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/diffsmith/internal/oracle"
)

// Variant is a build configuration.
type Variant int

const (
	Debug Variant = iota
	Release
)

// Variants lists every build variant in evaluation order.
var Variants = []Variant{Debug, Release}

func (v Variant) String() string {
	switch v {
	case Debug:
		return "debug"
	case Release:
		return "release"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant is the inverse of String.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown build variant %q", s)
}

// CompileResult is the outcome of one compilation. A result with
// diagnostics carries no artifact.
type CompileResult struct {
	Artifact    []byte
	Diagnostics []oracle.Diagnostic
}

// OK reports whether the program compiled.
func (r CompileResult) OK() bool { return len(r.Diagnostics) == 0 }

// Compiler turns source text into an artifact the oracle can execute.
// An error means the compiler could not be run at all; a program that
// does not compile is reported through Diagnostics.
type Compiler interface {
	Compile(ctx context.Context, source string, v Variant) (CompileResult, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, source string, v Variant) (CompileResult, error)

func (f CompilerFunc) Compile(ctx context.Context, source string, v Variant) (CompileResult, error) {
	return f(ctx, source, v)
}
