package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/oracle"
)

// Placeholders substituted in ExecCompiler arguments.
const (
	SourcePlaceholder   = "{src}"
	OutputPlaceholder   = "{out}"
	VariantPlaceholder  = "{variant}"
	defaultCompileLimit = 2 * time.Minute
)

// diagnosticLine matches compiler messages such as
// "Program.cs(12,5): error CS0165: Use of unassigned local variable".
var diagnosticLine = regexp.MustCompile(`\berror ([A-Z]+[0-9]+)\s*:\s*(.*)$`)

// ExecCompiler runs an external compiler command once per variant. The
// source is written to a temporary file; the command must leave the
// artifact at the output path and exit zero, or print diagnostics and
// exit non-zero.
type ExecCompiler struct {
	// Command is the argument vector. SourcePlaceholder, OutputPlaceholder
	// and VariantPlaceholder are replaced in every argument.
	Command []string
	Env     []string
	// Dir holds the temporary build directories. Empty means os.TempDir.
	Dir     string
	Timeout time.Duration
}

// Compile builds source for v.
func (c *ExecCompiler) Compile(ctx context.Context, source string, v Variant) (CompileResult, error) {
	if len(c.Command) == 0 {
		return CompileResult{}, errors.New("backend: empty compiler command")
	}
	dir, err := os.MkdirTemp(c.Dir, config.ToolName+"-build-")
	if err != nil {
		return CompileResult{}, fmt.Errorf("creating build directory: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, config.ProgramClassName+config.SourceFileExt)
	out := filepath.Join(dir, config.ProgramClassName+"."+v.String())
	if err := os.WriteFile(src, []byte(source), 0o644); err != nil {
		return CompileResult{}, fmt.Errorf("writing source: %w", err)
	}

	limit := c.Timeout
	if limit <= 0 {
		limit = defaultCompileLimit
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	r := strings.NewReplacer(SourcePlaceholder, src, OutputPlaceholder, out, VariantPlaceholder, v.String())
	args := make([]string, len(c.Command))
	for i, a := range c.Command {
		args[i] = r.Replace(a)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return CompileResult{}, fmt.Errorf("compiling %s: %w", v, ctx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return CompileResult{}, fmt.Errorf("running compiler: %w", runErr)
		}
		diags := ParseDiagnostics(output.String(), v)
		if len(diags) == 0 {
			return CompileResult{}, fmt.Errorf("compiler exited with %d and no diagnostics: %s", exitErr.ExitCode(), firstLine(output.String()))
		}
		return CompileResult{Diagnostics: diags}, nil
	}

	artifact, err := os.ReadFile(out)
	if err != nil {
		return CompileResult{}, fmt.Errorf("reading artifact: %w", err)
	}
	return CompileResult{Artifact: artifact}, nil
}

// ParseDiagnostics extracts error diagnostics from compiler output.
// Duplicate ids are kept in order of appearance.
func ParseDiagnostics(output string, v Variant) []oracle.Diagnostic {
	var diags []oracle.Diagnostic
	for _, line := range strings.Split(output, "\n") {
		m := diagnosticLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		diags = append(diags, oracle.Diagnostic{ID: m[1], Message: strings.TrimSpace(m[2]), Variant: v.String()})
	}
	return diags
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
