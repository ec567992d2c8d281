package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/funvibe/diffsmith/internal/config"
)

// ArtifactPlaceholder is replaced by the artifact path in ProcessCheck.Run.
const ArtifactPlaceholder = "{artifact}"

// Behavior is what a program visibly did under each variant.
type Behavior struct {
	Debug   string
	Release string
}

// Diverges reports whether the variants behaved differently.
func (b Behavior) Diverges() bool { return b.Debug != b.Release }

// ProcessCheck observes standalone programs as black boxes: it compiles
// both variants and runs each artifact as a separate process, recording
// its output streams and exit status.
type ProcessCheck struct {
	Compiler Compiler
	// Run is the command that executes one artifact.
	Run     []string
	Env     []string
	Timeout time.Duration
}

// Observe compiles and runs source under both variants.
func (c *ProcessCheck) Observe(ctx context.Context, source string) (Behavior, bool, error) {
	var b Behavior
	for _, v := range Variants {
		res, err := c.Compiler.Compile(ctx, source, v)
		if err != nil {
			return Behavior{}, false, fmt.Errorf("compiling %s: %w", v, err)
		}
		if !res.OK() {
			return Behavior{}, false, nil
		}
		out, err := c.run(ctx, res.Artifact)
		if err != nil {
			return Behavior{}, false, err
		}
		if v == Debug {
			b.Debug = out
		} else {
			b.Release = out
		}
	}
	return b, true, nil
}

// Diverges reports whether source compiles and behaves differently under
// the two variants. Programs that do not compile do not diverge.
func (c *ProcessCheck) Diverges(ctx context.Context, source string) (bool, error) {
	b, ok, err := c.Observe(ctx, source)
	if err != nil || !ok {
		return false, err
	}
	return b.Diverges(), nil
}

func (c *ProcessCheck) run(ctx context.Context, artifact []byte) (string, error) {
	if len(c.Run) == 0 {
		return "", errors.New("backend: empty run command")
	}
	f, err := os.CreateTemp("", config.ToolName+"-artifact-*")
	if err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(artifact); err != nil {
		f.Close()
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}

	limit := c.Timeout
	if limit <= 0 {
		limit = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	args := make([]string, len(c.Run))
	for i, a := range c.Run {
		args[i] = strings.ReplaceAll(a, ArtifactPlaceholder, path)
	}
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = filepath.Dir(path)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if runCtx.Err() != nil {
		return "timeout", nil
	}
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("running artifact: %w", err)
		}
		code = exitErr.ExitCode()
	}
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s\nexit %d", stdout.String(), stderr.String(), code), nil
}
