package prettyprinter

import (
	"strings"
	"testing"

	"github.com/funvibe/diffsmith/internal/ast"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

var (
	intT  = ts.Primitive(ts.Int)
	boolT = ts.Primitive(ts.Bool)
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name, Type: intT} }

func TestFormatConstant(t *testing.T) {
	tests := []struct {
		c    ts.Constant
		want string
	}{
		{ts.IntConstant(ts.Int, -7), "-7"},
		{ts.Constant{Kind: ts.Int, Int: -2147483648}, "int.MinValue"},
		{ts.Constant{Kind: ts.Long, Int: -9223372036854775808}, "long.MinValue"},
		{ts.IntConstant(ts.Long, 3), "3L"},
		{ts.IntConstant(ts.UInt, 3), "3U"},
		{ts.Constant{Kind: ts.ULong, Uint: 18446744073709551615}, "18446744073709551615UL"},
		{ts.IntConstant(ts.SByte, -5), "(sbyte)(-5)"},
		{ts.IntConstant(ts.Byte, 200), "(byte)200"},
		{ts.IntConstant(ts.Char, 65), "'\\u0041'"},
		{ts.Constant{Kind: ts.Float, Float: 1.5}, "1.5f"},
		{ts.Constant{Kind: ts.Double, Float: 1e21}, "1e+21d"},
		{ts.Constant{Kind: ts.Bool, Bool: true}, "true"},
	}
	for _, tt := range tests {
		if got := FormatConstant(tt.c); got != tt.want {
			t.Errorf("FormatConstant(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestExpressionParentheses(t *testing.T) {
	a, b, c := ident("a"), ident("b"), ident("c")
	bin := func(op ts.BinaryOp, l, r ast.Expression) *ast.Binary {
		return &ast.Binary{Op: op, Left: l, Right: r, Type: intT}
	}
	tests := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{"left assoc", bin(ts.Sub, bin(ts.Sub, a, b), c), "a - b - c"},
		{"right grouping", bin(ts.Sub, a, bin(ts.Sub, b, c)), "a - (b - c)"},
		{"tighter right", bin(ts.Add, a, bin(ts.Mul, b, c)), "a + b * c"},
		{"looser left", bin(ts.Mul, bin(ts.Add, a, b), c), "(a + b) * c"},
		{"division guard", bin(ts.Div, ast.IntLiteral(ts.Int, 1), bin(ts.Or, a, ast.IntLiteral(ts.Int, 1))), "1 / (a | 1)"},
		{"negative literal operand", &ast.Unary{Op: ts.Neg, Operand: ast.IntLiteral(ts.Int, -5), Type: intT}, "-(-5)"},
		{"cast of binary", &ast.Cast{Type: ts.Primitive(ts.Byte), Value: bin(ts.Or, a, ast.IntLiteral(ts.Int, 1))}, "(byte)(a | 1)"},
		{"member of call", &ast.Member{Target: &ast.Call{Func: "M1", Type: intT}, Field: "F0", Type: intT}, "M1().F0"},
		{"ref argument", &ast.Call{Func: "M2", Args: []ast.Expression{&ast.RefExpr{Target: a}, b}}, "M2(ref a, b)"},
		{"postfix", &ast.IncDec{Target: a, Decrement: true}, "a--"},
		{"compare", &ast.Binary{Op: ts.Lt, Left: a, Right: b, Type: boolT}, "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrintExpr(tt.expr); got != tt.want {
				t.Errorf("PrintExpr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArrayInitializer(t *testing.T) {
	arr := &ts.ArrayType{Elem: intT, Rank: 2}
	var elems []ast.Expression
	for i := 0; i < 6; i++ {
		elems = append(elems, ast.IntLiteral(ts.Int, int64(i)))
	}
	got := PrintExpr(&ast.NewArray{Type: arr, Dims: []int{2, 3}, Elems: elems})
	if want := "new int[,]{{0, 1, 2}, {3, 4, 5}}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUnsafeRead(t *testing.T) {
	s := ts.NewAggregate("S0", false, []ts.Field{{Name: "F0", Type: ts.Primitive(ts.Long)}})
	src := &ast.Ident{Name: "var1", Type: s}
	got := PrintExpr(&ast.UnsafeRead{Type: ts.Primitive(ts.Short), Source: src, Offset: 2})
	want := "Unsafe.ReadUnaligned<short>(ref Unsafe.Add(ref Unsafe.As<S0, byte>(ref var1), 2))"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestPrintProgram(t *testing.T) {
	iface := &ts.InterfaceType{Name: "I0"}
	s := ts.NewAggregate("S0", false, []ts.Field{{Name: "F0", Type: intT}})
	s.Interfaces = []*ts.InterfaceType{iface}
	p := &ast.Program{
		Header: []string{"Generated by test"},
		Types: []*ast.TypeDecl{
			{Interface: iface, Sigs: []*ast.MethodSig{{Name: "M1", Ret: intT}}},
			{Aggregate: s, Methods: []*ast.FuncDecl{{Name: "M1", Ret: intT, Receiver: s,
				Body: &ast.Block{Stmts: []ast.Statement{&ast.Return{Value: &ast.Member{Target: &ast.Ident{Name: "this", Type: s}, Field: "F0", Type: intT}}}}}}},
		},
		Statics: []*ast.StaticField{{Name: "s_0", Type: intT, Init: ast.IntLiteral(ts.Int, 3)}},
		Funcs: []*ast.FuncDecl{{Name: "M0", Params: []ast.Param{{Name: "arg0", Type: ts.NewRef(intT)}},
			Body: &ast.Block{Stmts: []ast.Statement{
				&ast.For{Var: "i0", Count: 2, Body: &ast.Block{Stmts: []ast.Statement{&ast.Checksum{Site: 4, Value: ident("arg0")}}}},
				&ast.Return{},
			}}}},
		Main: &ast.Block{Stmts: []ast.Statement{&ast.ExprStmt{Expr: &ast.Call{Func: "M0", Args: []ast.Expression{&ast.RefExpr{Target: ident("s_0")}}}}}},
	}
	out := Print(p)
	for _, want := range []string{
		"// Generated by test\n",
		"using static Program;\n",
		"public interface IRuntime",
		"public interface I0\n{\n    int M1();\n}",
		"public struct S0 : I0",
		"    public S0(int f0)\n    {\n        F0 = f0;\n    }",
		"        return this.F0;",
		"    public static IRuntime s_rt = new Runtime();",
		"    public static int s_0 = 3;",
		"    public static void M0(ref int arg0)",
		"        for (int i0 = 0; i0 < 2; i0++)",
		`            s_rt.Checksum("c_4", arg0);`,
		"        M0(ref s_0);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n---\n%s", want, out)
		}
	}

	if h := PrintWithHeader(p, []string{"Reduced from 10 to 4 nodes"}); !strings.HasPrefix(h, "// Reduced from 10 to 4 nodes\n") {
		t.Errorf("PrintWithHeader output starts with %q", h[:40])
	}
	if len(p.Header) != 1 || p.Header[0] != "Generated by test" {
		t.Errorf("PrintWithHeader changed the program header to %v", p.Header)
	}

	p.Standalone = true
	out = Print(p)
	if strings.Contains(out, "IRuntime") || strings.Contains(out, "s_rt") {
		t.Error("standalone program still uses the runtime hook")
	}
	if !strings.Contains(out, "System.Console.WriteLine(arg0);") {
		t.Errorf("standalone checksum not written to the console\n%s", out)
	}
}
