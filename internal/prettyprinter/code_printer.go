package prettyprinter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

// Precedence levels above the binary operators.
const (
	precUnary   = 14
	precPrimary = 16
)

// Print renders a program as source text.
func Print(p *ast.Program) string {
	cp := NewCodePrinter()
	p.Accept(cp)
	return cp.String()
}

// PrintWithHeader renders p preceded by the given comment lines, which
// replace any header the program already carries.
func PrintWithHeader(p *ast.Program, lines []string) string {
	saved := p.Header
	p.Header = lines
	defer func() { p.Header = saved }()
	return Print(p)
}

// PrintExpr renders a single expression.
func PrintExpr(e ast.Expression) string {
	cp := NewCodePrinter()
	cp.printExpr(e, 0, false)
	return cp.String()
}

// --- Code Printer (output is compilable source) ---

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
	// standalone programs write checksummed values to the console.
	standalone bool
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

// line writes one indented line.
func (p *CodePrinter) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.buf, format, args...)
	p.writeln()
}

func exprPrecedence(e ast.Expression) int {
	switch x := e.(type) {
	case *ast.Binary:
		return x.Op.Precedence()
	case *ast.Unary, *ast.Cast:
		return precUnary
	case *ast.IncDec:
		if x.Prefix {
			return precUnary
		}
	case *ast.Literal:
		if x.Value.IsNegative() || x.Value.Kind.IsSmall() && x.Value.Kind != ts.Char {
			return precUnary
		}
	}
	return precPrimary
}

// printExpr prints an expression, adding parentheses only if needed.
// Binary operators are left-associative, so an equal-precedence right
// operand is parenthesized.
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	prec := exprPrecedence(expr)
	needParens := prec < parentPrec || (prec == parentPrec && isRight)
	if needParens {
		p.write("(")
	}
	expr.Accept(p)
	if needParens {
		p.write(")")
	}
}

func (p *CodePrinter) printArgs(args []ast.Expression) {
	p.write("(")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(a, 0, false)
	}
	p.write(")")
}

func typeName(t ts.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}

func retName(t ts.Type, byRef bool) string {
	if byRef {
		return "ref " + typeName(t)
	}
	return typeName(t)
}

func params(ps []ast.Param) string {
	parts := make([]string, len(ps))
	for i, prm := range ps {
		parts[i] = prm.Type.String() + " " + prm.Name
	}
	return strings.Join(parts, ", ")
}

func (p *CodePrinter) VisitProgram(n *ast.Program) {
	for _, h := range n.Header {
		p.line("// %s", h)
	}
	p.line("using System;")
	if n.Vectors {
		p.line("using System.Runtime.Intrinsics;")
	}
	if n.Unsafe {
		p.line("using System.Runtime.CompilerServices;")
	}
	p.line("using static %s;", config.ProgramClassName)
	p.writeln()

	p.standalone = n.Standalone

	if !n.Standalone {
		p.printRuntime()
	}
	for _, t := range n.Types {
		t.Accept(p)
		p.writeln()
	}

	p.line("public class %s", config.ProgramClassName)
	p.line("{")
	p.indent++
	if !n.Standalone {
		p.line("public static %s %s = new %s();", config.RuntimeIfaceName, config.RuntimeFieldName, config.RuntimeClassName)
	}
	for _, s := range n.Statics {
		s.Accept(p)
	}
	if len(n.Statics) > 0 || !n.Standalone {
		p.writeln()
	}
	p.line("public static void %s()", config.MainFuncName)
	if n.Main != nil {
		p.printBlock(n.Main)
	} else {
		p.line("{")
		p.line("}")
	}
	for _, f := range n.Funcs {
		p.writeln()
		f.Accept(p)
	}
	p.indent--
	p.line("}")
}

func (p *CodePrinter) printRuntime() {
	p.line("public interface %s", config.RuntimeIfaceName)
	p.line("{")
	p.indent++
	p.line("void %s<T>(string id, T value);", config.ChecksumMethodName)
	p.indent--
	p.line("}")
	p.writeln()
	p.line("public class %s : %s", config.RuntimeClassName, config.RuntimeIfaceName)
	p.line("{")
	p.indent++
	p.line("public void %s<T>(string id, T value) => %s(id + \": \" + value);", config.ChecksumMethodName, config.ConsoleWriteLine)
	p.indent--
	p.line("}")
	p.writeln()
}

func (p *CodePrinter) VisitTypeDecl(n *ast.TypeDecl) {
	if n.Interface != nil {
		p.line("public interface %s", n.Interface.Name)
		p.line("{")
		p.indent++
		for _, s := range n.Sigs {
			p.line("%s %s(%s);", retName(s.Ret, s.RetByRef), s.Name, params(s.Params))
		}
		p.indent--
		p.line("}")
		return
	}

	a := n.Aggregate
	kind := "struct"
	if a.IsClass {
		kind = "class"
	}
	header := fmt.Sprintf("public %s %s", kind, a.Name)
	if len(a.Interfaces) > 0 {
		names := make([]string, len(a.Interfaces))
		for i, iface := range a.Interfaces {
			names[i] = iface.Name
		}
		header += " : " + strings.Join(names, ", ")
	}
	p.line("%s", header)
	p.line("{")
	p.indent++
	ctorParams := make([]string, len(a.Fields))
	for i, f := range a.Fields {
		p.line("public %s %s;", f.Type, f.Name)
		ctorParams[i] = f.Type.String() + " " + strings.ToLower(f.Name)
	}
	p.line("public %s(%s)", a.Name, strings.Join(ctorParams, ", "))
	p.line("{")
	p.indent++
	for _, f := range a.Fields {
		p.line("%s = %s;", f.Name, strings.ToLower(f.Name))
	}
	p.indent--
	p.line("}")
	for _, m := range n.Methods {
		p.writeln()
		m.Accept(p)
	}
	p.indent--
	p.line("}")
}

func (p *CodePrinter) VisitStaticField(n *ast.StaticField) {
	p.writeIndent()
	p.write("public static " + n.Type.String() + " " + n.Name + " = ")
	p.printExpr(n.Init, 0, false)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitFuncDecl(n *ast.FuncDecl) {
	mods := "public static "
	if n.IsMethod() {
		mods = "public "
	}
	p.line("%s%s %s(%s)", mods, retName(n.Ret, n.RetByRef), n.Name, params(n.Params))
	p.printBlock(n.Body)
}

func (p *CodePrinter) printBlock(b *ast.Block) {
	p.line("{")
	p.indent++
	for _, s := range b.Stmts {
		s.Accept(p)
	}
	p.indent--
	p.line("}")
}

func (p *CodePrinter) VisitBlock(n *ast.Block) {
	p.printBlock(n)
}

func (p *CodePrinter) VisitVarDecl(n *ast.VarDecl) {
	p.writeIndent()
	p.write(n.Type.String() + " " + n.Name + " = ")
	p.printExpr(n.Value, 0, false)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitAssign(n *ast.Assign) {
	p.writeIndent()
	p.printExpr(n.Target, 0, false)
	p.write(" " + n.Op.String() + " ")
	p.printExpr(n.Value, 0, false)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitExprStmt(n *ast.ExprStmt) {
	p.writeIndent()
	p.printExpr(n.Expr, 0, false)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitIf(n *ast.If) {
	p.writeIndent()
	p.write("if (")
	p.printExpr(n.Cond, 0, false)
	p.write(")")
	p.writeln()
	p.printBlock(n.Then)
	if n.Else != nil {
		p.line("else")
		p.printBlock(n.Else)
	}
}

func (p *CodePrinter) VisitReturn(n *ast.Return) {
	p.writeIndent()
	if n.Value == nil {
		p.write("return;")
	} else {
		p.write("return ")
		p.printExpr(n.Value, 0, false)
		p.write(";")
	}
	p.writeln()
}

func (p *CodePrinter) VisitTryFinally(n *ast.TryFinally) {
	p.line("try")
	p.printBlock(n.Try)
	p.line("finally")
	p.printBlock(n.Finally)
}

func (p *CodePrinter) VisitFor(n *ast.For) {
	p.line("for (int %s = 0; %s < %d; %s++)", n.Var, n.Var, n.Count, n.Var)
	p.printBlock(n.Body)
}

func (p *CodePrinter) VisitChecksum(n *ast.Checksum) {
	p.writeIndent()
	if p.standalone {
		p.write(config.ConsoleWriteLine + "(")
		p.printExpr(n.Value, 0, false)
		p.write(");")
		p.writeln()
		return
	}
	p.write(fmt.Sprintf("%s.%s(\"%s\", ", config.RuntimeFieldName, config.ChecksumMethodName, SiteName(n.Site)))
	p.printExpr(n.Value, 0, false)
	p.write(");")
	p.writeln()
}

// SiteName is the identifier reported for a checksum site.
func SiteName(site int) string {
	return config.ChecksumSitePrefix + strconv.Itoa(site)
}

func (p *CodePrinter) VisitLiteral(n *ast.Literal) {
	p.write(FormatConstant(n.Value))
}

// FormatConstant renders a constant so that its static type is exactly
// its kind.
func FormatConstant(c ts.Constant) string {
	switch c.Kind {
	case ts.Bool:
		return strconv.FormatBool(c.Bool)
	case ts.Char:
		return fmt.Sprintf("'\\u%04X'", c.Uint)
	case ts.SByte, ts.Short:
		if c.Int < 0 {
			return fmt.Sprintf("(%s)(%d)", c.Kind, c.Int)
		}
		return fmt.Sprintf("(%s)%d", c.Kind, c.Int)
	case ts.Byte, ts.UShort:
		return fmt.Sprintf("(%s)%d", c.Kind, c.Uint)
	case ts.Int:
		if c.IsMin() {
			return "int.MinValue"
		}
		return strconv.FormatInt(c.Int, 10)
	case ts.UInt:
		return strconv.FormatUint(c.Uint, 10) + "U"
	case ts.Long:
		if c.IsMin() {
			return "long.MinValue"
		}
		return strconv.FormatInt(c.Int, 10) + "L"
	case ts.ULong:
		return strconv.FormatUint(c.Uint, 10) + "UL"
	case ts.Float:
		return strconv.FormatFloat(c.Float, 'g', -1, 32) + "f"
	case ts.Double:
		return strconv.FormatFloat(c.Float, 'g', -1, 64) + "d"
	}
	return "<???>"
}

func (p *CodePrinter) VisitIdent(n *ast.Ident) {
	p.write(n.Name)
}

func (p *CodePrinter) VisitMember(n *ast.Member) {
	p.printExpr(n.Target, precPrimary, false)
	p.write("." + n.Field)
}

func (p *CodePrinter) VisitIndex(n *ast.Index) {
	p.printExpr(n.Target, precPrimary, false)
	p.write("[")
	for i, idx := range n.Indices {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(idx, 0, false)
	}
	p.write("]")
}

func (p *CodePrinter) VisitUnary(n *ast.Unary) {
	p.write(n.Op.String())
	p.printExpr(n.Operand, precUnary+1, false)
}

func (p *CodePrinter) VisitBinary(n *ast.Binary) {
	prec := n.Op.Precedence()
	p.printExpr(n.Left, prec, false)
	p.write(" " + n.Op.String() + " ")
	p.printExpr(n.Right, prec, true)
}

func (p *CodePrinter) VisitCall(n *ast.Call) {
	if n.Receiver != nil {
		p.printExpr(n.Receiver, precPrimary, false)
		p.write(".")
	}
	p.write(n.Func)
	p.printArgs(n.Args)
}

func (p *CodePrinter) VisitCast(n *ast.Cast) {
	p.write("(" + n.Type.String() + ")")
	p.printExpr(n.Value, precUnary+1, false)
}

func (p *CodePrinter) VisitNew(n *ast.New) {
	p.write("new " + n.Type.Name)
	p.printArgs(n.Args)
}

func (p *CodePrinter) VisitNewArray(n *ast.NewArray) {
	p.write("new " + n.Type.String())
	p.printInitializer(n.Elems, n.Dims)
}

// printInitializer nests braces once per dimension, row-major.
func (p *CodePrinter) printInitializer(elems []ast.Expression, dims []int) {
	p.write("{")
	if len(dims) == 1 {
		for i, e := range elems {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(e, 0, false)
		}
	} else {
		stride := len(elems) / dims[0]
		for i := 0; i < dims[0]; i++ {
			if i > 0 {
				p.write(", ")
			}
			p.printInitializer(elems[i*stride:(i+1)*stride], dims[1:])
		}
	}
	p.write("}")
}

func (p *CodePrinter) VisitVectorCreate(n *ast.VectorCreate) {
	p.write(n.Type.StaticName() + ".Create(")
	p.printExpr(n.Value, 0, false)
	p.write(")")
}

func (p *CodePrinter) VisitRef(n *ast.RefExpr) {
	p.write("ref ")
	p.printExpr(n.Target, precPrimary, false)
}

func (p *CodePrinter) VisitIncDec(n *ast.IncDec) {
	op := "++"
	if n.Decrement {
		op = "--"
	}
	if n.Prefix {
		p.write(op)
		p.printExpr(n.Target, precPrimary, false)
		return
	}
	p.printExpr(n.Target, precPrimary, false)
	p.write(op)
}

func (p *CodePrinter) VisitUnsafeRead(n *ast.UnsafeRead) {
	src := n.Source.ResultType()
	p.write(fmt.Sprintf("Unsafe.ReadUnaligned<%s>(ref ", n.Type))
	if n.Offset != 0 {
		p.write("Unsafe.Add(ref ")
	}
	p.write(fmt.Sprintf("Unsafe.As<%s, byte>(ref ", src))
	p.printExpr(n.Source, precPrimary, false)
	p.write(")")
	if n.Offset != 0 {
		p.write(fmt.Sprintf(", %d)", n.Offset))
	}
	p.write(")")
}
