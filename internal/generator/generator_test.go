package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
	"github.com/funvibe/diffsmith/internal/symbols"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

const stressSeeds = 150

func generate(t *testing.T, seed Seed) *ast.Program {
	t.Helper()
	p, err := Generate(seed, config.Defaults())
	if err != nil {
		t.Fatalf("seed %s: %v", seed, err)
	}
	return p
}

func eachProgram(t *testing.T, fn func(t *testing.T, seed Seed, p *ast.Program)) {
	for i := uint64(1); i <= stressSeeds; i++ {
		seed := Seed{Value: i * 7919, Vectors: i%3 == 0, Unsafe: i%2 == 0}
		fn(t, seed, generate(t, seed))
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		in   string
		want Seed
	}{
		{"42", Seed{Value: 42}},
		{"42-vectors", Seed{Value: 42, Vectors: true}},
		{"18446744073709551615-unsafe,vectors", Seed{Value: 18446744073709551615, Vectors: true, Unsafe: true}},
	}
	for _, tt := range tests {
		got, err := ParseSeed(tt.in)
		if err != nil {
			t.Fatalf("ParseSeed(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSeed(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := (Seed{Value: 7, Unsafe: true, Vectors: true}).String(); s != "7-vectors,unsafe" {
		t.Errorf("String() = %q", s)
	}
	for _, bad := range []string{"", "x1", "5-turbo", "-3"} {
		if _, err := ParseSeed(bad); !errors.Is(err, ErrBadSeed) {
			t.Errorf("ParseSeed(%q) error = %v, want ErrBadSeed", bad, err)
		}
	}
}

func TestDeterministic(t *testing.T) {
	for _, seed := range []Seed{{Value: 1}, {Value: 99, Vectors: true}, {Value: 12345, Unsafe: true}} {
		a := prettyprinter.Print(generate(t, seed))
		b := prettyprinter.Print(generate(t, seed))
		if a != b {
			t.Fatalf("seed %s produced different programs", seed)
		}
	}
	if prettyprinter.Print(generate(t, Seed{Value: 1})) == prettyprinter.Print(generate(t, Seed{Value: 2})) {
		t.Error("different seeds produced identical programs")
	}
}

func TestRejectsInvalidOptions(t *testing.T) {
	opts := config.Defaults()
	opts.MaxFunctions = 0
	if _, err := New(Seed{Value: 1}, opts); !errors.Is(err, config.ErrInvalidOptions) {
		t.Fatalf("New() error = %v, want ErrInvalidOptions", err)
	}
}

func TestFeatureTagsReachOutput(t *testing.T) {
	p := generate(t, Seed{Value: 3, Vectors: true, Unsafe: true})
	if !p.Vectors || !p.Unsafe {
		t.Fatalf("program flags = vectors:%v unsafe:%v", p.Vectors, p.Unsafe)
	}
	out := prettyprinter.Print(p)
	if !strings.Contains(out, "using System.Runtime.Intrinsics;") {
		t.Error("vector program lacks the intrinsics using")
	}
}

// signatures indexes parameter lists by function name.
func signatures(p *ast.Program) map[string]*ast.FuncDecl {
	out := map[string]*ast.FuncDecl{}
	for _, f := range p.AllFuncs() {
		out[f.Name] = f
	}
	return out
}

func TestWellTyped(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		sigs := signatures(p)
		ast.Inspect(p, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.Binary:
				if got := ts.BinaryResult(x.Op, x.Left.ResultType(), x.Right.ResultType()); !ts.Equal(got, x.Type) {
					t.Errorf("seed %s: %s has type %v, operands give %v", seed, prettyprinter.PrintExpr(x), x.Type, got)
				}
			case *ast.Unary:
				if got := ts.UnaryResult(x.Op, x.Operand.ResultType()); !ts.Equal(got, x.Type) {
					t.Errorf("seed %s: %s has type %v, operand gives %v", seed, prettyprinter.PrintExpr(x), x.Type, got)
				}
			case *ast.Assign:
				want := x.Target.ResultType()
				if x.Op.IsShift() {
					want = ts.Primitive(ts.Int)
				}
				if !ts.Equal(x.Value.ResultType(), want) {
					t.Errorf("seed %s: assignment %s %s of %v", seed, prettyprinter.PrintExpr(x.Target), x.Op, x.Value.ResultType())
				}
			case *ast.VarDecl:
				if !ts.Equal(x.Value.ResultType(), x.Type) {
					t.Errorf("seed %s: %s declared %v, initialized with %v", seed, x.Name, x.Type, x.Value.ResultType())
				}
			case *ast.Cast:
				if !ts.IsCastableTo(x.Value.ResultType(), x.Type) {
					t.Errorf("seed %s: cast of %v to %v", seed, x.Value.ResultType(), x.Type)
				}
			case *ast.Call:
				f, ok := sigs[x.Func]
				if !ok {
					t.Errorf("seed %s: call to undeclared %s", seed, x.Func)
					return true
				}
				if len(f.Params) != len(x.Args) {
					t.Errorf("seed %s: %s called with %d args, has %d params", seed, x.Func, len(x.Args), len(f.Params))
					return true
				}
				for i, a := range x.Args {
					if !ts.Equal(a.ResultType(), f.Params[i].Type) {
						t.Errorf("seed %s: %s arg %d is %v, want %v", seed, x.Func, i, a.ResultType(), f.Params[i].Type)
					}
				}
			}
			return true
		})
	})
}

func TestOperandsNeverBothConstant(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		ast.Inspect(p, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.Unary:
				if isLiteral(x.Operand) {
					t.Errorf("seed %s: unary operator on a constant: %s", seed, prettyprinter.PrintExpr(x))
				}
			case *ast.Binary:
				if isLiteral(x.Left) && isLiteral(x.Right) && !isOrOne(x) {
					t.Errorf("seed %s: binary operator on two constants: %s", seed, prettyprinter.PrintExpr(x))
				}
			}
			return true
		})
	})
}

func isOrOne(b *ast.Binary) bool {
	lit, ok := b.Right.(*ast.Literal)
	return ok && b.Op == ts.Or && (lit.Value.Int == 1 || lit.Value.Uint == 1)
}

func isGuarded(e ast.Expression) bool {
	if c, ok := e.(*ast.Cast); ok {
		e = c.Value
	}
	b, ok := e.(*ast.Binary)
	return ok && isOrOne(b)
}

func TestIntegralDivisorsGuarded(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		ast.Inspect(p, func(n ast.Node) bool {
			var divisor ast.Expression
			switch x := n.(type) {
			case *ast.Binary:
				if x.Op.IsDivision() {
					divisor = x.Right
				}
			case *ast.Assign:
				if op, ok := x.Op.Binary(); ok && op.IsDivision() {
					divisor = x.Value
				}
			}
			if divisor == nil {
				return true
			}
			if k, ok := ts.IsPrimitive(divisor.ResultType()); ok && k.IsIntegral() && !isGuarded(divisor) {
				t.Errorf("seed %s: unguarded divisor %s", seed, prettyprinter.PrintExpr(divisor))
			}
			return true
		})
	})
}

// checkReturns reports returns that are not the last statement of their
// block or that sit inside a loop or a try/finally.
func checkReturns(t *testing.T, seed Seed, b *ast.Block, restricted bool) {
	for i, s := range b.Stmts {
		switch x := s.(type) {
		case *ast.Return:
			if i != len(b.Stmts)-1 {
				t.Errorf("seed %s: return followed by %d statements", seed, len(b.Stmts)-1-i)
			}
			if restricted {
				t.Errorf("seed %s: return inside a loop or try/finally", seed)
			}
		case *ast.Block:
			checkReturns(t, seed, x, restricted)
		case *ast.If:
			checkReturns(t, seed, x.Then, restricted)
			if x.Else != nil {
				checkReturns(t, seed, x.Else, restricted)
			}
		case *ast.For:
			checkReturns(t, seed, x.Body, true)
		case *ast.TryFinally:
			checkReturns(t, seed, x.Try, true)
			checkReturns(t, seed, x.Finally, true)
		}
	}
}

func TestReturnPlacement(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		for _, f := range p.AllFuncs() {
			checkReturns(t, seed, f.Body, false)
			last := f.Body.Stmts[len(f.Body.Stmts)-1]
			if _, ok := last.(*ast.Return); !ok {
				t.Errorf("seed %s: %s does not end in a return", seed, f.Name)
			}
		}
	})
}

func TestChecksumSitesUnique(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		seen := map[int]bool{}
		ast.Inspect(p, func(n ast.Node) bool {
			if c, ok := n.(*ast.Checksum); ok {
				if seen[c.Site] {
					t.Errorf("seed %s: duplicate checksum site %d", seed, c.Site)
				}
				seen[c.Site] = true
			}
			return true
		})
	})
}

// directCalls counts calls per callee in one block, scaled by the
// iteration counts of enclosing loops.
func directCalls(b *ast.Block, mult int64, into map[string]int64) {
	for _, s := range b.Stmts {
		switch x := s.(type) {
		case *ast.Block:
			directCalls(x, mult, into)
		case *ast.For:
			directCalls(x.Body, mult*int64(x.Count), into)
		case *ast.If:
			countCalls(x.Cond, mult, into)
			directCalls(x.Then, mult, into)
			if x.Else != nil {
				directCalls(x.Else, mult, into)
			}
		case *ast.TryFinally:
			directCalls(x.Try, mult, into)
			directCalls(x.Finally, mult, into)
		default:
			countCalls(s, mult, into)
		}
	}
}

func countCalls(n ast.Node, mult int64, into map[string]int64) {
	ast.Inspect(n, func(n ast.Node) bool {
		if c, ok := n.(*ast.Call); ok {
			into[c.Func] += mult
		}
		return true
	})
}

// TestTransitiveCallBudget recomputes transitive call counts from the
// tree. An interface method counts as its most expensive body.
func TestTransitiveCallBudget(t *testing.T) {
	budget := config.Defaults().MaxTransitiveCalls
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		bodies := map[string][]map[string]int64{}
		for _, f := range p.AllFuncs() {
			direct := map[string]int64{}
			directCalls(f.Body, 1, direct)
			bodies[f.Name] = append(bodies[f.Name], direct)
		}
		memo := map[string]map[string]int64{}
		var total func(name string) map[string]int64
		total = func(name string) map[string]int64 {
			if m, ok := memo[name]; ok {
				return m
			}
			m := map[string]int64{}
			for _, direct := range bodies[name] {
				body := map[string]int64{}
				for callee, n := range direct {
					body[callee] += n
					for c, k := range total(callee) {
						body[c] += n * k
					}
				}
				for c, n := range body {
					m[c] = max(m[c], n)
				}
			}
			memo[name] = m
			return m
		}
		for name := range bodies {
			for callee, n := range total(name) {
				if n > budget {
					t.Errorf("seed %s: %s transitively calls %s %d times", seed, name, callee, n)
				}
			}
		}
	})
}

func TestCallsOnlyToLaterFunctions(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		index := func(name string) int {
			var i int
			for _, c := range strings.TrimPrefix(name, config.FuncPrefix) {
				i = i*10 + int(c-'0')
			}
			return i
		}
		for _, f := range p.AllFuncs() {
			for _, c := range ast.Calls(f.Body, "") {
				if index(c.Func) <= index(f.Name) {
					t.Errorf("seed %s: %s calls %s", seed, f.Name, c.Func)
				}
			}
		}
	})
}

func TestUnsafeReadsAvoidPadding(t *testing.T) {
	found := 0
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		ast.Inspect(p, func(n ast.Node) bool {
			u, ok := n.(*ast.UnsafeRead)
			if !ok {
				return true
			}
			found++
			tl := ts.LayoutOf(u.Type)
			sl := ts.LayoutOf(u.Source.ResultType())
			if tl == nil || sl == nil || !tl.FitsAt(sl, u.Offset) {
				t.Errorf("seed %s: unsafe read of %v from %v at %d", seed, u.Type, u.Source.ResultType(), u.Offset)
			}
			return true
		})
		if !p.Unsafe {
			ast.Inspect(p, func(n ast.Node) bool {
				if _, ok := n.(*ast.UnsafeRead); ok {
					t.Errorf("seed %s: unsafe read without the unsafe tag", seed)
				}
				return true
			})
		}
	})
	if found == 0 {
		t.Error("no unsafe reads generated across all seeds")
	}
}

func TestRefReturnsDoNotEscapeLocals(t *testing.T) {
	eachProgram(t, func(t *testing.T, seed Seed, p *ast.Program) {
		for _, f := range p.AllFuncs() {
			if !f.RetByRef {
				continue
			}
			frameOnly := map[string]bool{"this": f.Receiver != nil && !f.Receiver.IsClass}
			for _, prm := range f.Params {
				if !prm.IsRef() {
					frameOnly[prm.Name] = true
				}
			}
			ast.Inspect(f.Body, func(n ast.Node) bool {
				if d, ok := n.(*ast.VarDecl); ok && !d.IsRef() {
					frameOnly[d.Name] = true
				}
				return true
			})
			ast.Inspect(f.Body, func(n ast.Node) bool {
				r, ok := n.(*ast.Return)
				if !ok {
					return true
				}
				ref, ok := r.Value.(*ast.RefExpr)
				if !ok {
					t.Errorf("seed %s: %s returns by ref without a ref expression", seed, f.Name)
					return true
				}
				if root := structRoot(ref.Target); root != "" && frameOnly[root] {
					t.Errorf("seed %s: %s returns a reference into %s", seed, f.Name, root)
				}
				return true
			})
		}
	})
}

// structRoot follows struct field accesses down to a variable and returns
// its name, or "" when the path crosses the heap.
func structRoot(e ast.Expression) string {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x.Name
		case *ast.Member:
			if agg, ok := x.Target.ResultType().(*ts.AggregateType); ok && agg.IsClass {
				return ""
			}
			e = x.Target
		default:
			return ""
		}
	}
}

func TestStatsCounted(t *testing.T) {
	g, err := New(Seed{Value: 77}, config.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	p := g.Program()
	st := g.Stats()
	if st.Functions != len(signatures(p)) {
		t.Errorf("Stats().Functions = %d, program declares %d", st.Functions, len(signatures(p)))
	}
	sites := 0
	ast.Inspect(p, func(n ast.Node) bool {
		if _, ok := n.(*ast.Checksum); ok {
			sites++
		}
		return true
	})
	if st.ChecksumSites != sites {
		t.Errorf("Stats().ChecksumSites = %d, program has %d", st.ChecksumSites, sites)
	}
}

func TestSeedSource(t *testing.T) {
	a := NewSeedSource(5, 0.5, 0.5)
	b := NewSeedSource(5, 0.5, 0.5)
	for i := 0; i < 20; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("step %d: %v != %v", i, x, y)
		}
	}
	never := NewSeedSource(9, 0, 0)
	for i := 0; i < 20; i++ {
		if s := never.Next(); s.Vectors || s.Unsafe {
			t.Fatalf("tags enabled with zero probability: %v", s)
		}
	}
}

func TestUnsafeReadAvoidsRefTarget(t *testing.T) {
	opts := config.Defaults()
	opts.UnsafeReadProb = 1
	g, err := New(Seed{Value: 1, Unsafe: true}, opts)
	if err != nil {
		t.Fatal(err)
	}
	b := &bodyGen{g: g, scope: symbols.NewScope()}
	b.scope.Push()
	b.scope.Push()
	long := ts.Primitive(ts.Long)
	v0 := b.scope.DeclareLocal("var0", long)
	b.scope.DeclareLocal("var1", long)
	r := b.scope.DeclareRefLocal("var2", long, v0.EscapeRank, true, v0)
	// A ref to a ref points into the same variable.
	rr := b.scope.DeclareRefLocal("var3", long, v0.EscapeRank, true, storageRoot(r))

	for _, target := range []*symbols.Symbol{r, rr} {
		for i := 0; i < 20; i++ {
			e, ok := b.genUnsafeRead(ts.Primitive(ts.Int), target, storageRoot(target))
			if !ok {
				t.Fatalf("no unsafe read for a write through %s", target.Name)
			}
			if src := e.(*ast.UnsafeRead).Source.(*ast.Ident).Name; src != "var1" {
				t.Fatalf("write through %s reads %s", target.Name, src)
			}
		}
	}
}
