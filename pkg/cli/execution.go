package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/funvibe/diffsmith/internal/backend"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/oracle"
)

// execFlags configure the compiler and the oracle.
type execFlags struct {
	compiler  string
	oracle    string
	remote    string
	workers   int
	timeoutMS int
	track     bool
}

func (f *execFlags) bind(cmd *cobra.Command) {
	f.bindOracle(cmd)
	cmd.Flags().StringVar(&f.compiler, "compiler", env.Str(config.EnvCompiler),
		"compiler command; {src}, {out} and {variant} are substituted")
	cmd.Flags().StringVar(&f.remote, "remote", env.Str(config.EnvRemote), "address of a 'diffsmith serve' executor")
	cmd.Flags().BoolVar(&f.track, "track-output", false, "always record checksum site traces")
}

// bindOracle adds the flags of the local worker pool only.
func (f *execFlags) bindOracle(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.oracle, "oracle", env.Str(config.EnvOracle), "executor worker command")
	cmd.Flags().IntVar(&f.workers, "workers", env.Int(config.EnvWorkers, config.DefaultWorkers), "number of executor workers")
	cmd.Flags().IntVar(&f.timeoutMS, "timeout-ms", env.Int(config.EnvTimeout, 10000), "timeout of one pair run in milliseconds")
}

func (f *execFlags) timeout() time.Duration {
	return time.Duration(f.timeoutMS) * time.Millisecond
}

// pool starts a pool of local process workers.
func (f *execFlags) pool(stderr io.Writer) (*oracle.Pool, error) {
	cmd := splitCommand(f.oracle)
	if len(cmd) == 0 {
		return nil, errors.New("no executor: set --oracle or " + config.EnvOracle)
	}
	factory := oracle.ProcessFactory(oracle.ProcessConfig{Command: cmd, Timeout: f.timeout(), Stderr: stderr})
	return oracle.NewPool(factory, oracle.PoolConfig{Size: f.workers, IdleTimeout: time.Minute}), nil
}

// runner returns the executor to use and a function releasing it.
func (f *execFlags) runner(stderr io.Writer) (oracle.Runner, func() error, error) {
	if f.remote != "" {
		if f.oracle != "" {
			return nil, nil, errors.New("options conflict: cannot use --oracle and --remote together")
		}
		w, err := oracle.Dial(f.remote)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
	p, err := f.pool(stderr)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

func (f *execFlags) compilerCmd() (*backend.ExecCompiler, error) {
	cmd := splitCommand(f.compiler)
	if len(cmd) == 0 {
		return nil, fmt.Errorf("no compiler: set --compiler or %s", config.EnvCompiler)
	}
	return &backend.ExecCompiler{Command: cmd}, nil
}

// evaluators hands out one Evaluator per session goroutine, all sharing
// the compiler and runner.
type evaluators struct {
	compiler backend.Compiler
	runner   oracle.Runner
	track    bool
}

func (e evaluators) get() *backend.Evaluator {
	ev := backend.NewEvaluator(e.compiler, e.runner)
	ev.TrackOutput = e.track
	return ev
}

// setup resolves the compiler and runner. The returned function releases
// the runner.
func (f *execFlags) setup(stderr io.Writer) (evaluators, func() error, error) {
	c, err := f.compilerCmd()
	if err != nil {
		return evaluators{}, nil, err
	}
	r, closeFn, err := f.runner(stderr)
	if err != nil {
		return evaluators{}, nil, err
	}
	return evaluators{compiler: c, runner: r, track: f.track}, closeFn, nil
}
