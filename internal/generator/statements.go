package generator

import (
	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/symbols"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// bodyGen holds the state of one function body under construction.
type bodyGen struct {
	g      *Generator
	fn     *funcGen
	scope  *symbols.Scope
	params *symbols.Frame

	// loopMult is the product of the iteration counts of the enclosing
	// loops, i.e. how often a call placed here runs per invocation.
	loopMult  int64
	noReturn  int // enclosing loops and try blocks
	stmtDepth int
	exprDepth int
}

// visible returns the statics followed by the symbols in scope.
func (b *bodyGen) visible() []*symbols.Symbol {
	statics := b.g.statics.Symbols()
	out := make([]*symbols.Symbol, 0, len(statics)+8)
	out = append(out, statics...)
	return append(out, b.scope.Symbols()...)
}

func (b *bodyGen) genBlock(kind blockKind) *ast.Block {
	g := b.g
	frame := b.scope.Push()
	b.stmtDepth++
	defer func() {
		b.stmtDepth--
		b.scope.Pop()
	}()

	block := &ast.Block{}
	var ret *ast.Return
	n := g.opts.BlockStatementCount.Sample(g.r)
	for i := 0; i < n; i++ {
		s := b.genStatement(kind)
		if r, ok := s.(*ast.Return); ok {
			ret = r
			break
		}
		block.Stmts = append(block.Stmts, s)
	}
	if ret == nil && kind == blockRoot {
		ret = b.genReturn()
	}

	var syms []*symbols.Symbol
	if kind == blockRoot {
		syms = append(syms, b.params.Symbols...)
	}
	syms = append(syms, frame.Symbols...)
	block.Stmts = append(block.Stmts, b.checksums(syms)...)
	if ret != nil {
		block.Stmts = append(block.Stmts, ret)
	}
	return block
}

// checksums reports every primitive and vector leaf of syms.
func (b *bodyGen) checksums(syms []*symbols.Symbol) []ast.Statement {
	var out []ast.Statement
	for _, sym := range syms {
		for _, p := range symbols.Leaves(sym) {
			out = append(out, &ast.Checksum{Site: b.g.site(), Value: p.Expr()})
		}
	}
	return out
}

func (b *bodyGen) canReturn(kind blockKind) bool {
	return kind != blockPlain && b.noReturn == 0
}

// nestStmt decides whether a compound statement may open another level.
func (b *bodyGen) nestStmt() bool {
	return b.g.r.Flip(rng.Decay(b.g.opts.StatementNestingDecay, b.stmtDepth-1))
}

func (b *bodyGen) genStatement(kind blockKind) ast.Statement {
	g := b.g
	g.stats.Statements++
	for attempt := 0; attempt < maxKindAttempts; attempt++ {
		switch g.stmtKinds.Sample(g.r) {
		case stmtAssign:
			return b.genAssignment()
		case stmtCall:
			if e, _, ok := b.genCall(nil, false, symbols.MinRank); ok {
				return &ast.ExprStmt{Expr: e}
			}
		case stmtReturn:
			if b.canReturn(kind) {
				return b.genReturn()
			}
		case stmtBlock:
			if b.nestStmt() {
				return b.genBlock(blockPlain)
			}
		case stmtIf:
			if b.nestStmt() {
				return b.genIf()
			}
		case stmtTryFinally:
			if b.nestStmt() {
				return b.genTryFinally()
			}
		case stmtLoop:
			if b.nestStmt() {
				return b.genLoop()
			}
		}
	}
	g.stats.Fallbacks++
	return b.genAssignment()
}

func (b *bodyGen) genIf() ast.Statement {
	cond := b.genExpr(typesystem.Primitive(typesystem.Bool), true)
	s := &ast.If{Cond: cond, Then: b.genBlock(blockThen)}
	if b.g.r.Flip(b.g.opts.ElseProb) {
		s.Else = b.genBlock(blockPlain)
	}
	return s
}

func (b *bodyGen) genTryFinally() ast.Statement {
	b.noReturn++
	defer func() { b.noReturn-- }()
	return &ast.TryFinally{Try: b.genBlock(blockPlain), Finally: b.genBlock(blockPlain)}
}

func (b *bodyGen) genLoop() ast.Statement {
	g := b.g
	count := g.opts.LoopIterations.Sample(g.r)
	name := g.loopName()

	b.scope.Push()
	b.scope.DeclareLoopVar(name)
	saved := b.loopMult
	b.loopMult *= int64(count)
	b.noReturn++
	body := b.genBlock(blockPlain)
	b.noReturn--
	b.loopMult = saved
	b.scope.Pop()

	return &ast.For{Var: name, Count: count, Body: body}
}

func (b *bodyGen) genReturn() *ast.Return {
	fn := b.fn
	switch {
	case fn.ret == nil:
		return &ast.Return{}
	case fn.retByRef:
		target, _, _, _ := b.refLValue(fn.ret, symbols.ReturnRank)
		return &ast.Return{Value: &ast.RefExpr{Target: target}}
	}
	return &ast.Return{Value: b.genExpr(fn.ret, false)}
}

// genAssignment declares a local or assigns to an existing location.
func (b *bodyGen) genAssignment() ast.Statement {
	g := b.g
	t := g.types.PickValueType()

	if g.r.Flip(g.opts.NewLocalProb) {
		return b.genLocal(t)
	}

	var target symbols.Path
	if g.r.Flip(g.opts.NewStaticProb) {
		target = symbols.Expand(g.newStatic(t))[0]
	} else {
		paths := symbols.Collect(b.visible(), symbols.Filter{Type: t, MinRank: symbols.MinRank, Assignable: true})
		if len(paths) == 0 {
			return b.genLocal(t)
		}
		target = rng.Pick(g.r, paths)
	}

	op := typesystem.Assign
	if g.r.Flip(g.opts.CompoundAssignmentProb) {
		op = rng.Pick(g.r, typesystem.CompoundOps(t))
	}
	if op == typesystem.Assign && target.OnStack {
		// A write through a ref local must not read the storage it points to.
		if v, ok := b.genUnsafeRead(t, target.Root, storageRoot(target.Root)); ok {
			return &ast.Assign{Target: target.Expr(), Op: op, Value: v}
		}
	}
	return &ast.Assign{Target: target.Expr(), Op: op, Value: b.assignValue(op, t)}
}

func (b *bodyGen) genLocal(t typesystem.Type) ast.Statement {
	g := b.g
	name := g.localName()
	if g.r.Flip(g.opts.RefLocalProb) {
		target, rank, onStack, root := b.refLValue(t, symbols.MinRank)
		b.scope.DeclareRefLocal(name, t, rank, onStack, root)
		return &ast.VarDecl{Name: name, Type: typesystem.NewRef(t), Value: &ast.RefExpr{Target: target}}
	}
	value, ok := b.genUnsafeRead(t)
	if !ok {
		value = b.genExpr(t, false)
	}
	// Declared after the initializer so it cannot refer to itself.
	b.scope.DeclareLocal(name, t)
	return &ast.VarDecl{Name: name, Type: t, Value: value}
}

// assignValue builds the right-hand side for op applied to a target of
// type t.
func (b *bodyGen) assignValue(op typesystem.AssignOp, t typesystem.Type) ast.Expression {
	if op.IsShift() {
		return b.genExpr(typesystem.Primitive(typesystem.Int), false)
	}
	v := b.genExpr(t, false)
	if bin, ok := op.Binary(); ok && bin.IsDivision() {
		v = guardDivisor(v)
	}
	return v
}
