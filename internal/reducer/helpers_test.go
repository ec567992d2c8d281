package reducer

import (
	"context"
	"regexp"
	"strings"

	"github.com/funvibe/diffsmith/internal/ast"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

var intT = ts.Primitive(ts.Int)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name, Type: intT} }

func lit(v int64) *ast.Literal { return ast.IntLiteral(ts.Int, v) }

func bin(op ts.BinaryOp, l, r ast.Expression) *ast.Binary {
	return &ast.Binary{Op: op, Left: l, Right: r, Type: ts.BinaryResult(op, l.ResultType(), r.ResultType())}
}

func local(name string, v ast.Expression) *ast.VarDecl {
	return &ast.VarDecl{Name: name, Type: v.ResultType(), Value: v}
}

func checksum(site int, v ast.Expression) *ast.Checksum { return &ast.Checksum{Site: site, Value: v} }

func call(name string, args ...ast.Expression) *ast.ExprStmt {
	return &ast.ExprStmt{Expr: &ast.Call{Func: name, Args: args}}
}

func block(stmts ...ast.Statement) *ast.Block { return &ast.Block{Stmts: stmts} }

func fn(name string, stmts ...ast.Statement) *ast.FuncDecl {
	return &ast.FuncDecl{Name: name, Body: block(stmts...)}
}

// program assembles funcs with a Main that calls the first one.
func program(statics []*ast.StaticField, funcs ...*ast.FuncDecl) *ast.Program {
	p := &ast.Program{Statics: statics, Funcs: funcs, Main: block(call(funcs[0].Name))}
	ast.AssignIDs(p)
	return p
}

// guardedDivision is a small program around 1 / (var0 | 1) with
// unrelated statements and a second, unused function.
func guardedDivision() *ast.Program {
	return program(
		[]*ast.StaticField{{Name: "s_0", Type: intT, Init: lit(7)}, {Name: "s_1", Type: intT, Init: lit(-3)}},
		fn("M0",
			local("var0", ident("s_0")),
			local("var1", bin(ts.Mul, lit(3), ident("var0"))),
			checksum(0, ident("var1")),
			&ast.If{Cond: bin(ts.Lt, ident("var1"), ident("s_1")), Then: block(
				&ast.Assign{Target: ident("s_1"), Op: ts.AddAssign, Value: lit(5)},
			)},
			local("var2", bin(ts.Div, lit(1), bin(ts.Or, ident("var0"), lit(1)))),
			checksum(1, ident("var2")),
			call("M1"),
			checksum(2, ident("s_1")),
			&ast.Return{},
		),
		fn("M1", checksum(3, bin(ts.Add, ident("s_1"), lit(11))), &ast.Return{}),
	)
}

var guardPattern = regexp.MustCompile(`/ \(\w+ \| 1\)`)

// countingPredicate wraps a text test and counts the calls.
type countingPredicate struct {
	fn    func(string) bool
	calls int
}

func (c *countingPredicate) IsInteresting(_ context.Context, src string) (bool, error) {
	c.calls++
	return c.fn(src), nil
}

var (
	methodPattern = regexp.MustCompile(`(?m)^    public static \S+ (\w+)\(.*\)\n    \{\n((?:.*\n)*?)    \}$`)
	callPattern   = regexp.MustCompile(`\b(M\d+)\(`)
	localPattern  = regexp.MustCompile(`^\s*\S+ (\w+) = (.*);$`)
)

// reachable maps every method reachable from Main to its body lines.
func reachable(src string) map[string][]string {
	bodies := map[string][]string{}
	for _, m := range methodPattern.FindAllStringSubmatch(src, -1) {
		bodies[m[1]] = strings.Split(strings.TrimSuffix(m[2], "\n"), "\n")
	}
	seen := map[string][]string{}
	queue := []string{"Main"}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		lines, ok := bodies[name]
		if _, done := seen[name]; done || !ok {
			continue
		}
		seen[name] = lines
		for _, l := range lines {
			for _, c := range callPattern.FindAllStringSubmatch(l, -1) {
				queue = append(queue, c[1])
			}
		}
	}
	return seen
}

// reportsAt models executing src: it holds when a checksum on a path from
// Main reports a value whose computation, through locals of the same
// method and calls to reachable methods, contains needle.
func reportsAt(needle string) func(string) bool {
	return func(src string) bool {
		methods := reachable(src)
		computes := func(expr string, lines []string) bool {
			if strings.Contains(expr, needle) {
				return true
			}
			for _, l := range lines {
				if m := localPattern.FindStringSubmatch(l); m != nil &&
					regexp.MustCompile(`\b`+m[1]+`\b`).MatchString(expr) && strings.Contains(m[2], needle) {
					return true
				}
			}
			for _, c := range callPattern.FindAllStringSubmatch(expr, -1) {
				for _, l := range methods[c[1]] {
					if strings.Contains(l, "return ") && strings.Contains(l, needle) {
						return true
					}
				}
			}
			return false
		}
		for _, lines := range methods {
			for _, l := range lines {
				if i := strings.Index(l, "Checksum("); i >= 0 && computes(l[i:], lines) {
					return true
				}
			}
		}
		return false
	}
}

func containsAll(parts ...string) func(string) bool {
	return func(src string) bool {
		for _, p := range parts {
			if !strings.Contains(src, p) {
				return false
			}
		}
		return true
	}
}
