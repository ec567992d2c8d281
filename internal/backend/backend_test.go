package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/diffsmith/internal/oracle"
)

// fakeCompiler rejects sources containing "error XX0000" markers and
// otherwise produces "<variant>|<source>" as the artifact.
func fakeCompiler(calls *[]string) Compiler {
	return CompilerFunc(func(_ context.Context, src string, v Variant) (CompileResult, error) {
		if calls != nil {
			*calls = append(*calls, v.String())
		}
		if diags := ParseDiagnostics(src, v); len(diags) > 0 {
			return CompileResult{Diagnostics: diags}, nil
		}
		return CompileResult{Artifact: []byte(v.String() + "|" + src)}, nil
	})
}

type runnerFunc func(ctx context.Context, req oracle.PairRequest) (oracle.PairResult, error)

func (f runnerFunc) RunPair(ctx context.Context, req oracle.PairRequest) (oracle.PairResult, error) {
	return f(ctx, req)
}

// fakeOracle evaluates "checksum=<debug>/<release>" markers in the
// artifacts and records the requests it saw.
func fakeOracle(seen *[]oracle.PairRequest) oracle.Runner {
	value := func(artifact []byte, release bool) string {
		_, src, _ := strings.Cut(string(artifact), "|")
		_, want, ok := strings.Cut(src, "checksum=")
		if !ok {
			return "0"
		}
		want, _, _ = strings.Cut(want, " ")
		d, r, _ := strings.Cut(want, "/")
		if release {
			return r
		}
		return d
	}
	result := func(checksum string, track bool) oracle.RunResult {
		res := oracle.RunResult{Checksum: checksum}
		if track {
			res.ChecksumSites = []oracle.ChecksumSite{{ID: "c_0", Value: "1"}, {ID: "c_1", Value: checksum}}
		}
		return res
	}
	return runnerFunc(func(_ context.Context, req oracle.PairRequest) (oracle.PairResult, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		if strings.Contains(string(req.DebugArtifact), "hang") {
			return oracle.PairResult{}, oracle.ErrTimeout
		}
		return oracle.PairResult{
			Debug:   result(value(req.DebugArtifact, false), req.TrackOutput),
			Release: result(value(req.ReleaseArtifact, true), req.TrackOutput),
		}, nil
	})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		want        oracle.FailureKind
		divergence  int
		oracleCalls int
	}{
		{"agree", "checksum=5/5", oracle.NoFailure, -1, 1},
		{"mismatch is traced", "checksum=5/6", oracle.ChecksumMismatch, 1, 2},
		{"diagnostic", "error CS0165: unassigned", oracle.CompileDiagnostic, -1, 0},
		{"timeout", "hang", oracle.Timeout, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []oracle.PairRequest
			e := NewEvaluator(fakeCompiler(nil), fakeOracle(&seen))
			ev, err := e.Evaluate(context.Background(), tt.src)
			if err != nil {
				t.Fatal(err)
			}
			f := oracle.Classify(ev)
			if f.Kind != tt.want || f.Divergence != tt.divergence {
				t.Errorf("got %v at %d, want %v at %d", f.Kind, f.Divergence, tt.want, tt.divergence)
			}
			if len(seen) != tt.oracleCalls || e.Stats().OracleCalls != tt.oracleCalls {
				t.Errorf("oracle calls = %d (stats %d), want %d", len(seen), e.Stats().OracleCalls, tt.oracleCalls)
			}
			if len(seen) > 0 && seen[0].TrackOutput {
				t.Error("first run asked for a trace")
			}
		})
	}
}

func TestEvaluateReleaseOnlyDiagnostic(t *testing.T) {
	c := CompilerFunc(func(_ context.Context, src string, v Variant) (CompileResult, error) {
		if v == Release {
			return CompileResult{Diagnostics: []oracle.Diagnostic{{ID: "CS8120", Variant: v.String()}}}, nil
		}
		return CompileResult{Artifact: []byte(src)}, nil
	})
	ev, err := NewEvaluator(c, fakeOracle(nil)).Evaluate(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	f := oracle.Classify(ev)
	if f.Kind != oracle.CompileDiagnostic || f.Variant != "release" || f.Detail != "CS8120" {
		t.Errorf("failure = %+v", f)
	}
}

func TestEvaluateCompilerError(t *testing.T) {
	boom := errors.New("no compiler")
	c := CompilerFunc(func(context.Context, string, Variant) (CompileResult, error) {
		return CompileResult{}, boom
	})
	if _, err := NewEvaluator(c, fakeOracle(nil)).Evaluate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("error = %v", err)
	}
}

func TestInterestingness(t *testing.T) {
	mismatch := oracle.Failure{Kind: oracle.ChecksumMismatch, Divergence: 3}
	tests := []struct {
		name   string
		target oracle.Failure
		src    string
		want   bool
		runs   int
	}{
		{"still diverges", mismatch, "checksum=1/2", true, 1},
		{"agrees now", mismatch, "checksum=1/1", false, 1},
		{"does not compile", mismatch, "checksum=1/2 error CS0103: name", false, 0},
		{"timeout is not interesting", mismatch, "hang", false, 1},
		{"same diagnostic", oracle.Failure{Kind: oracle.CompileDiagnostic, Detail: "CS0165", Variant: "release"}, "error CS0165: x", true, 0},
		{"other diagnostic", oracle.Failure{Kind: oracle.CompileDiagnostic, Detail: "CS0165", Variant: "release"}, "error CS0103: x", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []oracle.PairRequest
			var compiled []string
			in, err := NewInterestingness(NewEvaluator(fakeCompiler(&compiled), fakeOracle(&seen)), tt.target)
			if err != nil {
				t.Fatal(err)
			}
			got, err := in.IsInteresting(context.Background(), tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsInteresting = %v, want %v", got, tt.want)
			}
			if len(seen) != tt.runs {
				t.Errorf("oracle ran %d times, want %d", len(seen), tt.runs)
			}
			if tt.target.Kind == oracle.CompileDiagnostic {
				if diff := cmp.Diff([]string{"release"}, compiled); diff != "" {
					t.Errorf("compiled variants (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestInterestingnessRejectsBoringTarget(t *testing.T) {
	for _, f := range []oracle.Failure{{Kind: oracle.NoFailure}, {Kind: oracle.Timeout}} {
		if _, err := NewInterestingness(NewEvaluator(fakeCompiler(nil), fakeOracle(nil)), f); err == nil {
			t.Errorf("accepted target %v", f)
		}
	}
}

func TestParseDiagnostics(t *testing.T) {
	out := "Build started\r\n" +
		"Program.cs(12,5): error CS0165: Use of unassigned local variable 'var3'\r\n" +
		"Program.cs(3,1): warning CS0219: assigned but never used\n" +
		"Program.cs(20,9): error CS8168: Cannot return local 'var1' by reference\n"
	want := []oracle.Diagnostic{
		{ID: "CS0165", Message: "Use of unassigned local variable 'var3'", Variant: "release"},
		{ID: "CS8168", Message: "Cannot return local 'var1' by reference", Variant: "release"},
	}
	if diff := cmp.Diff(want, ParseDiagnostics(out, Release)); diff != "" {
		t.Errorf("ParseDiagnostics (-want +got):\n%s", diff)
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants {
		got, err := ParseVariant(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVariant(%q) = %v, %v", v, got, err)
		}
	}
	if _, err := ParseVariant("checked"); err == nil {
		t.Error("expected an error")
	}
}

const helperEnv = "DIFFSMITH_HELPER_PROCESS"

// helperArgs returns the arguments after "--".
func helperArgs() []string {
	for i, a := range os.Args {
		if a == "--" {
			return os.Args[i+1:]
		}
	}
	return nil
}

// TestHelperProcess acts as the external compiler and as the artifact
// runner for the tests below.
func TestHelperProcess(t *testing.T) {
	switch os.Getenv(helperEnv) {
	case "compile":
		args := helperArgs()
		src, err := os.ReadFile(args[0])
		if err != nil {
			os.Exit(2)
		}
		if strings.Contains(string(src), "bad") {
			fmt.Println("Program.cs(1,1): error CS1002: ; expected")
			os.Exit(1)
		}
		if strings.Contains(string(src), "crash") {
			fmt.Println("Unhandled exception in compiler")
			os.Exit(3)
		}
		if err := os.WriteFile(args[1], []byte(args[2]+"|"+string(src)), 0o644); err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	case "run":
		b, err := os.ReadFile(helperArgs()[0])
		if err != nil {
			os.Exit(2)
		}
		variant, src, _ := strings.Cut(string(b), "|")
		if strings.Contains(src, "diverge") && variant == "release" {
			fmt.Println(0)
			os.Exit(0)
		}
		fmt.Println(1)
		os.Exit(0)
	}
}

func helperCommand(mode string, args ...string) ([]string, []string) {
	return append([]string{os.Args[0], "-test.run=^TestHelperProcess$", "--"}, args...), []string{helperEnv + "=" + mode}
}

func TestExecCompiler(t *testing.T) {
	cmd, env := helperCommand("compile", SourcePlaceholder, OutputPlaceholder, VariantPlaceholder)
	c := &ExecCompiler{Command: cmd, Env: env, Dir: t.TempDir()}
	ctx := context.Background()

	res, err := c.Compile(ctx, "class Program {}", Release)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(res.Artifact); got != "release|class Program {}" {
		t.Errorf("artifact = %q", got)
	}

	res, err = c.Compile(ctx, "bad", Debug)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].ID != "CS1002" || res.Diagnostics[0].Variant != "debug" {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}

	if _, err := c.Compile(ctx, "crash", Debug); err == nil {
		t.Error("a compiler exit without diagnostics should be an error")
	}
}

func TestProcessCheck(t *testing.T) {
	ccmd, cenv := helperCommand("compile", SourcePlaceholder, OutputPlaceholder, VariantPlaceholder)
	rcmd, renv := helperCommand("run", ArtifactPlaceholder)
	check := &ProcessCheck{
		Compiler: &ExecCompiler{Command: ccmd, Env: cenv, Dir: t.TempDir()},
		Run:      rcmd,
		Env:      renv,
	}

	tests := []struct {
		src  string
		want bool
	}{
		{"same", false},
		{"diverge", true},
		{"bad", false},
	}
	for _, tt := range tests {
		got, err := check.Diverges(context.Background(), tt.src)
		if err != nil {
			t.Fatalf("%s: %v", tt.src, err)
		}
		if got != tt.want {
			t.Errorf("Diverges(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
