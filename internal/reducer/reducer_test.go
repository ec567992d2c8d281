package reducer

import (
	"context"
	"errors"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/generator"
	"github.com/funvibe/diffsmith/internal/oracle"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

func reduce(t *testing.T, p *ast.Program, pred Predicate, opts Options) *Result {
	t.Helper()
	r := New(pred, nil, opts)
	r.now = func() time.Time { return time.Unix(0, 0) }
	res, err := r.Reduce(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// body prints a program without its header.
func body(p *ast.Program) string {
	return prettyprinter.PrintWithHeader(p, nil)
}

func TestReduceKeepsDivisionGuard(t *testing.T) {
	// Only the executed division matters. Nothing in the predicate asks
	// for the guard.
	pred := &countingPredicate{fn: reportsAt(" / ")}
	p := guardedDivision()
	before := body(p)
	res := reduce(t, p, pred, Options{Seed: 1, Failure: "ChecksumMismatch"})

	src := res.Source
	if !pred.fn(src) {
		t.Fatalf("reduced program lost the failure:\n%s", src)
	}
	if !guardPattern.MatchString(src) {
		t.Errorf("divisor guard was reduced away:\n%s", src)
	}
	if n := strings.Count(src, "Checksum("); n != 1 {
		t.Errorf("%d checksum calls left:\n%s", n, src)
	}
	for _, gone := range []string{"M1", " * ", "s_1", "if ("} {
		if strings.Contains(src, gone) {
			t.Errorf("reduced program still contains %q:\n%s", gone, src)
		}
	}
	if res.Stats.ReducedSize >= res.Stats.OriginalSize {
		t.Errorf("size %d -> %d", res.Stats.OriginalSize, res.Stats.ReducedSize)
	}
	if !strings.HasPrefix(src, "// Reduced from ") || !strings.Contains(src, "// Reproduces: ChecksumMismatch\n") {
		t.Errorf("missing provenance header:\n%s", src)
	}
	if body(p) != before {
		t.Error("input program was modified")
	}

	again := reduce(t, res.Program, pred, Options{Seed: 2})
	if body(again.Program) != body(res.Program) {
		t.Errorf("second reduction shrank further:\n%s\n---\n%s", body(res.Program), body(again.Program))
	}
}

func TestReduceDeletesUnreachableFunction(t *testing.T) {
	m2 := &ast.FuncDecl{
		Name:   "M2",
		Params: []ast.Param{{Name: "arg0", Type: intT}},
		Ret:    intT,
		Body:   block(&ast.Return{Value: bin(ts.Mul, ident("arg0"), lit(7))}),
	}
	nested := block(&ast.If{
		Cond: bin(ts.Lt, ident("var0"), lit(10)),
		Then: block(&ast.For{Var: "i0", Count: 3, Body: block(
			block(&ast.TryFinally{
				Try:     block(checksum(0, &ast.Call{Func: "M2", Args: []ast.Expression{ident("var0")}, Type: intT})),
				Finally: block(&ast.Assign{Target: ident("var0"), Op: ts.AddAssign, Value: lit(1)}),
			}),
		)}),
	})
	p := program(
		[]*ast.StaticField{{Name: "s_0", Type: intT, Init: lit(4)}},
		fn("M0", local("var0", ident("s_0")), nested, call("M1"), &ast.Return{}),
		fn("M1", &ast.Assign{Target: ident("s_0"), Op: ts.AddAssign, Value: lit(2)}, checksum(1, ident("s_0")), &ast.Return{}),
		m2,
	)
	pred := &countingPredicate{fn: reportsAt("* 7")}
	if pred.fn(strings.Replace(body(p), "M0();", "", 1)) {
		t.Fatal("the failure does not depend on Main reaching it")
	}
	res := reduce(t, p, pred, Options{Seed: 3})

	src := res.Source
	if !pred.fn(src) {
		t.Fatalf("reduced program lost the failure:\n%s", src)
	}
	if res.Program.Func("M1") != nil || strings.Contains(src, "M1") {
		t.Errorf("unreachable function survived:\n%s", src)
	}
	for _, gone := range []string{"try", "for (", "if ("} {
		if strings.Contains(src, gone) {
			t.Errorf("reduced program still contains %q:\n%s", gone, src)
		}
	}
}

// throwsFirst models running M0 in a debug build where release completes:
// the first statement that throws decides the exception.
func throwsFirst(src string) oracle.Failure {
	divByZero := regexp.MustCompile(`/ (s_0|0)\b`)
	index := regexp.MustCompile(`s_1\[(-?\d+)\]`)
	for _, l := range reachable(src)["M0"] {
		exc := ""
		if divByZero.MatchString(l) {
			exc = "System.DivideByZeroException"
		} else if m := index.FindStringSubmatch(l); m != nil {
			if n, _ := strconv.Atoi(m[1]); n < 0 || n >= 2 {
				exc = "System.IndexOutOfRangeException"
			}
		}
		if exc != "" {
			return oracle.Failure{Kind: oracle.ExceptionMismatch, Detail: "debug " + exc + ", release Completed", Divergence: -1}
		}
	}
	return oracle.Failure{Divergence: -1}
}

func TestReduceKeepsExceptionType(t *testing.T) {
	arr := &ts.ArrayType{Elem: intT, Rank: 1}
	p := program(
		[]*ast.StaticField{
			{Name: "s_0", Type: intT, Init: lit(0)},
			{Name: "s_1", Type: arr, Init: &ast.NewArray{Type: arr, Dims: []int{2}, Elems: []ast.Expression{lit(1), lit(2)}}},
		},
		fn("M0",
			checksum(0, bin(ts.Div, lit(1), ident("s_0"))),
			checksum(1, &ast.Index{Target: &ast.Ident{Name: "s_1", Type: arr}, Indices: []ast.Expression{lit(5)}, Type: intT}),
			&ast.Return{},
		),
	)
	target := throwsFirst(body(p))
	if !strings.Contains(target.Detail, "DivideByZero") {
		t.Fatalf("original failure = %v", target)
	}
	pred := &countingPredicate{fn: func(src string) bool { return target.Reproduces(throwsFirst(src)) }}
	res := reduce(t, p, pred, Options{Seed: 4, Failure: target.String()})

	if got := throwsFirst(res.Source); got != target {
		t.Errorf("reduced program fails with %v, want %v:\n%s", got, target, res.Source)
	}
	if strings.Contains(res.Source, "s_1") {
		t.Errorf("statement behind the first exception survived:\n%s", res.Source)
	}
}

func TestCoarseRemovalIsLogarithmic(t *testing.T) {
	var stmts []ast.Statement
	for i := 0; i < 100; i++ {
		stmts = append(stmts, checksum(i, ident("s_0")))
	}
	stmts = append(stmts, &ast.Return{})
	p := program([]*ast.StaticField{{Name: "s_0", Type: intT, Init: lit(1)}}, fn("M0", stmts...))

	pred := &countingPredicate{fn: containsAll(`"c_37"`)}
	r := New(pred, nil, Options{})
	r.reset(p)
	if err := r.coarse(context.Background()); err != nil {
		t.Fatal(err)
	}

	perDirection := bits.Len(100)
	if limit := 2 + 2*perDirection; pred.calls > limit {
		t.Errorf("coarse removal made %d predicate calls, want at most %d", pred.calls, limit)
	}
	left := r.cur.Func("M0").Body.Stmts
	if len(left) != 2 {
		t.Fatalf("%d statements left, want the checksum and the return:\n%s", len(left), r.curText)
	}
	if c, ok := left[0].(*ast.Checksum); !ok || c.Site != 37 {
		t.Errorf("kept %T, want checksum 37", left[0])
	}
}

func TestReduceRejectsUninterestingInput(t *testing.T) {
	pred := &countingPredicate{fn: func(string) bool { return false }}
	_, err := New(pred, nil, Options{}).Reduce(context.Background(), guardedDivision())
	if !errors.Is(err, ErrNotInteresting) {
		t.Fatalf("error = %v", err)
	}
	if pred.calls != 1 {
		t.Errorf("predicate called %d times", pred.calls)
	}
}

func TestReducePropagatesPredicateErrors(t *testing.T) {
	boom := errors.New("compiler missing")
	calls := 0
	pred := PredicateFunc(func(context.Context, string) (bool, error) {
		calls++
		if calls > 1 {
			return false, boom
		}
		return true, nil
	})
	if _, err := New(pred, nil, Options{}).Reduce(context.Background(), guardedDivision()); !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
}

func TestPredicateSeesEachTextOnce(t *testing.T) {
	seen := map[string]int{}
	pred := PredicateFunc(func(_ context.Context, src string) (bool, error) {
		seen[src]++
		return strings.Contains(src, "var2"), nil
	})
	r := New(pred, nil, Options{Seed: 9})
	res, err := r.Reduce(context.Background(), guardedDivision())
	if err != nil {
		t.Fatal(err)
	}
	for src, n := range seen {
		if n > 1 {
			t.Errorf("predicate saw the same text %d times:\n%s", n, src)
		}
	}
	if res.Stats.PredicateCalls != len(seen) {
		t.Errorf("PredicateCalls = %d, distinct texts = %d", res.Stats.PredicateCalls, len(seen))
	}
}

func TestReduceDeterministic(t *testing.T) {
	pred := &countingPredicate{fn: containsAll("/ (", "Checksum(")}
	a := reduce(t, guardedDivision(), pred, Options{Seed: 5})
	b := reduce(t, guardedDivision(), pred, Options{Seed: 5})
	if a.Source != b.Source {
		t.Errorf("same seed gave different reductions:\n%s\n---\n%s", a.Source, b.Source)
	}
}

func TestReduceGeneratedPrograms(t *testing.T) {
	for _, text := range []string{"11", "12-unsafe", "13-vectors"} {
		t.Run(text, func(t *testing.T) {
			seed, err := generator.ParseSeed(text)
			if err != nil {
				t.Fatal(err)
			}
			p, err := generator.Generate(seed, config.Defaults())
			if err != nil {
				t.Fatal(err)
			}
			pred := &countingPredicate{fn: containsAll("s_rt.Checksum(")}
			res := reduce(t, p, pred, Options{Seed: seed.Value})
			if !pred.fn(res.Source) {
				t.Fatal("predicate does not hold on the output")
			}
			if res.Stats.ReducedSize > res.Stats.OriginalSize || res.Stats.ReducedSize != ast.Size(res.Program) {
				t.Errorf("sizes: original %d, reported %d, actual %d", res.Stats.OriginalSize, res.Stats.ReducedSize, ast.Size(res.Program))
			}
			if n := len(res.Program.AllFuncs()); n > 1 {
				t.Errorf("%d functions left:\n%s", n, res.Source)
			}
			again := reduce(t, res.Program, pred, Options{Seed: seed.Value + 1})
			if body(again.Program) != body(res.Program) {
				t.Errorf("second reduction shrank further:\n%s\n---\n%s", body(res.Program), body(again.Program))
			}
		})
	}
}
