package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

const helperEnv = "DIFFSMITH_HELPER_WORKER"

// TestHelperWorker is not a real test: it is the executor process
// started by the tests below.
func TestHelperWorker(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 1<<20), 1<<20)
	for in.Scan() {
		var req Request
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			os.Exit(3)
		}
		if req.Kind == RequestShutdown {
			os.Exit(0)
		}
		switch mode {
		case "hang":
			time.Sleep(time.Hour)
		case "garbage":
			fmt.Println("not json")
			continue
		case "exit":
			os.Exit(1)
		}
		res := PairResult{
			Debug:   RunResult{Checksum: string(req.Pair.DebugArtifact)},
			Release: RunResult{Checksum: string(req.Pair.ReleaseArtifact)},
		}
		if req.Pair.TrackOutput {
			res.Debug.ChecksumSites = []ChecksumSite{{ID: "c_0", Value: "1"}}
		}
		b, _ := json.Marshal(res)
		fmt.Println(string(b))
	}
	os.Exit(0)
}

func startHelper(t *testing.T, mode string, timeout time.Duration) *ProcessWorker {
	t.Helper()
	w, err := StartProcess(ProcessConfig{
		Command: []string{os.Args[0], "-test.run=^TestHelperWorker$"},
		Env:     []string{helperEnv + "=" + mode},
		Timeout: timeout,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestProcessWorkerRoundTrip(t *testing.T) {
	w := startHelper(t, "echo", 10*time.Second)
	for i := 0; i < 3; i++ {
		res, err := w.RunPair(context.Background(), PairRequest{
			TrackOutput:     true,
			DebugArtifact:   []byte(fmt.Sprint("d", i)),
			ReleaseArtifact: []byte(fmt.Sprint("r", i)),
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.Debug.Checksum != fmt.Sprint("d", i) || res.Release.Checksum != fmt.Sprint("r", i) {
			t.Errorf("request %d answered with %+v", i, res)
		}
		if len(res.Debug.ChecksumSites) != 1 {
			t.Errorf("trace not recorded: %+v", res.Debug)
		}
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestProcessWorkerTimeout(t *testing.T) {
	w := startHelper(t, "hang", 200*time.Millisecond)
	start := time.Now()
	_, err := w.RunPair(context.Background(), PairRequest{})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout took too long")
	}
	if _, err := w.RunPair(context.Background(), PairRequest{}); !errors.Is(err, ErrWorkerCrashed) {
		t.Errorf("timed out worker still usable: %v", err)
	}
}

func TestProcessWorkerCallerDeadline(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want error
	}{
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 100*time.Millisecond)
		}, context.DeadlineExceeded},
		{"canceled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(100*time.Millisecond, cancel)
			return ctx, cancel
		}, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := startHelper(t, "hang", 10*time.Second)
			ctx, cancel := tt.ctx()
			defer cancel()
			_, err := w.RunPair(ctx, PairRequest{})
			if !errors.Is(err, tt.want) || errors.Is(err, ErrTimeout) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessWorkerCrash(t *testing.T) {
	for _, mode := range []string{"garbage", "exit"} {
		t.Run(mode, func(t *testing.T) {
			w := startHelper(t, mode, 10*time.Second)
			if _, err := w.RunPair(context.Background(), PairRequest{}); !errors.Is(err, ErrWorkerCrashed) {
				t.Fatalf("error = %v, want ErrWorkerCrashed", err)
			}
		})
	}
}

func TestStartProcessEmptyCommand(t *testing.T) {
	if _, err := StartProcess(ProcessConfig{}); err == nil {
		t.Fatal("expected an error")
	}
}
