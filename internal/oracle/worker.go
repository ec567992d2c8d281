package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Runner runs artifact pairs. Workers, pools and remote executors all
// satisfy it.
type Runner interface {
	RunPair(ctx context.Context, req PairRequest) (PairResult, error)
}

// Worker is a Runner that owns a resource.
type Worker interface {
	Runner
	Close() error
}

// ProcessConfig describes how to start an executor process.
type ProcessConfig struct {
	Command []string
	Env     []string // appended to the parent environment when set
	// Timeout bounds one RunPair call. Zero means only the context
	// deadline applies.
	Timeout time.Duration
	Stderr  io.Writer
}

// ProcessWorker drives one executor process over its standard streams,
// one JSON request per line and one JSON response per line.
type ProcessWorker struct {
	cfg   ProcessConfig
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader

	mu   sync.Mutex
	dead bool
}

// StartProcess launches the executor.
func StartProcess(cfg ProcessConfig) (*ProcessWorker, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("oracle: empty worker command")
	}
	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}
	cmd.Stderr = cfg.Stderr
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", cfg.Command[0], err)
	}
	return &ProcessWorker{cfg: cfg, cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}, nil
}

type reply struct {
	line []byte
	err  error
}

// RunPair sends one request and waits for the answer. A worker that
// timed out or crashed is dead and fails every later call.
func (w *ProcessWorker) RunPair(ctx context.Context, req PairRequest) (PairResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dead {
		return PairResult{}, fmt.Errorf("%w: worker already stopped", ErrWorkerCrashed)
	}
	parent := ctx
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	line, err := json.Marshal(Request{Kind: RequestRunPair, Pair: &req})
	if err != nil {
		return PairResult{}, fmt.Errorf("encoding request: %w", err)
	}
	line = append(line, '\n')

	// Capacity 1 so the goroutine can finish after we stop waiting.
	replies := make(chan reply, 1)
	go func() {
		if _, err := w.stdin.Write(line); err != nil {
			replies <- reply{err: err}
			return
		}
		b, err := w.out.ReadBytes('\n')
		replies <- reply{line: b, err: err}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			w.kill()
			return PairResult{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, r.err)
		}
		var res PairResult
		if err := json.Unmarshal(r.line, &res); err != nil {
			w.kill()
			return PairResult{}, fmt.Errorf("%w: malformed response: %v", ErrWorkerCrashed, err)
		}
		return res, nil
	case <-ctx.Done():
		w.kill()
		// Only our own deadline is a program timeout.
		if err := parent.Err(); err != nil {
			return PairResult{}, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return PairResult{}, ErrTimeout
		}
		return PairResult{}, ctx.Err()
	}
}

// kill stops the whole process group. Callers hold mu.
func (w *ProcessWorker) kill() {
	if w.dead {
		return
	}
	w.dead = true
	killProcess(w.cmd)
	_ = w.stdin.Close()
	go func() { _ = w.cmd.Wait() }()
}

// Close asks the worker to exit and kills it if it does not.
func (w *ProcessWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dead {
		return nil
	}
	w.dead = true
	line, _ := json.Marshal(Request{Kind: RequestShutdown})
	_, _ = w.stdin.Write(append(line, '\n'))
	_ = w.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return fmt.Errorf("waiting for worker: %w", err)
		}
		return nil
	case <-time.After(2 * time.Second):
		killProcess(w.cmd)
		return nil
	}
}
