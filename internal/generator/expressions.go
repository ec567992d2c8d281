package generator

import (
	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/symbols"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// genExpr builds an expression of type t. With nonLiteral set the result
// is never a bare constant, which keeps operator applications from being
// folded (and range-checked) by the compiler.
func (b *bodyGen) genExpr(t typesystem.Type, nonLiteral bool) ast.Expression {
	g := b.g
	b.exprDepth++
	defer func() { b.exprDepth-- }()

	for attempt := 0; attempt < maxKindAttempts; attempt++ {
		kind := g.exprKinds.Sample(g.r)
		switch kind {
		case exprLiteral:
			if !nonLiteral {
				return g.genLiteral(t)
			}
		case exprMember:
			if e, ok := b.genMember(t); ok {
				return e
			}
		case exprUnary:
			if b.nestExpr() {
				if e, ok := b.genUnary(t); ok {
					return e
				}
			}
		case exprBinary:
			if b.nestExpr() {
				if e, ok := b.genBinary(t); ok {
					return e
				}
			}
		case exprCall:
			if b.nestExpr() {
				if e, _, ok := b.genCall(t, false, symbols.MinRank); ok {
					return e
				}
			}
		case exprIncrement, exprDecrement:
			if e, ok := b.genIncDec(t, kind == exprDecrement); ok {
				return e
			}
		}
	}

	g.stats.Fallbacks++
	if !nonLiteral {
		return g.genLiteral(t)
	}
	if e, ok := b.genMember(t); ok {
		return e
	}
	return symbols.Expand(g.newStatic(t))[0].Expr()
}

func (b *bodyGen) nestExpr() bool {
	return b.g.r.Flip(rng.Decay(b.g.opts.ExpressionNestingDecay, b.exprDepth-1))
}

func (b *bodyGen) genMember(t typesystem.Type) (ast.Expression, bool) {
	paths := symbols.Collect(b.visible(), symbols.Filter{Type: t, MinRank: symbols.MinRank})
	if len(paths) == 0 {
		return nil, false
	}
	return rng.Pick(b.g.r, paths).Expr(), true
}

func (b *bodyGen) genUnary(t typesystem.Type) (ast.Expression, bool) {
	sigs := b.g.types.Ops.Unary(t)
	if len(sigs) == 0 {
		return nil, false
	}
	sig := rng.Pick(b.g.r, sigs)
	return &ast.Unary{Op: sig.Op, Operand: b.genExpr(sig.Operand, true), Type: t}, true
}

func (b *bodyGen) genBinary(t typesystem.Type) (ast.Expression, bool) {
	g := b.g
	sigs := g.types.Ops.Binary(t)
	if len(sigs) == 0 {
		return nil, false
	}
	op, ok := g.binaryOps.SampleFiltered(g.r, func(op typesystem.BinaryOp) bool {
		for _, s := range sigs {
			if s.Op == op {
				return true
			}
		}
		return false
	})
	if !ok {
		return nil, false
	}
	var cands []typesystem.BinarySig
	for _, s := range sigs {
		if s.Op == op {
			cands = append(cands, s)
		}
	}
	sig := rng.Pick(g.r, cands)
	left := b.genExpr(sig.Left, false)
	right := b.genExpr(sig.Right, isLiteral(left))
	if op.IsDivision() {
		right = guardDivisor(right)
	}
	return &ast.Binary{Op: op, Left: left, Right: right, Type: t}, true
}

func (b *bodyGen) genIncDec(t typesystem.Type, decrement bool) (ast.Expression, bool) {
	k, ok := typesystem.IsPrimitive(t)
	if !ok || k == typesystem.Bool {
		return nil, false
	}
	paths := symbols.Collect(b.visible(), symbols.Filter{Type: t, MinRank: symbols.MinRank, Assignable: true})
	if len(paths) == 0 {
		return nil, false
	}
	return &ast.IncDec{
		Target:    rng.Pick(b.g.r, paths).Expr(),
		Decrement: decrement,
		Prefix:    b.g.r.Flip(0.5),
	}, true
}

func isLiteral(e ast.Expression) bool {
	_, ok := e.(*ast.Literal)
	return ok
}

// guardDivisor rewrites an integral divisor e as (e | 1), which is never
// zero. Operands narrower than int are promoted by the or and cast back.
func guardDivisor(e ast.Expression) ast.Expression {
	k, ok := typesystem.IsPrimitive(e.ResultType())
	if !ok || !k.IsIntegral() {
		return e
	}
	if k.IsSmall() {
		or := &ast.Binary{Op: typesystem.Or, Left: e, Right: ast.IntLiteral(typesystem.Int, 1), Type: typesystem.Primitive(typesystem.Int)}
		return &ast.Cast{Type: typesystem.Primitive(k), Value: or}
	}
	return &ast.Binary{Op: typesystem.Or, Left: e, Right: ast.IntLiteral(k, 1), Type: typesystem.Primitive(k)}
}

// genCall builds a call producing want, or any type when want is nil.
// With byRef set the callee must return by reference and every ref
// argument must have rank at least minRank. The returned rank is the
// escape rank of the returned reference.
func (b *bodyGen) genCall(want typesystem.Type, byRef bool, minRank int) (ast.Expression, int, bool) {
	g := b.g
	cands := b.callees(want, byRef)

	var callee *funcGen
	if g.canCreateFunction() && (len(cands) == 0 || g.r.Flip(g.opts.NewFunctionProb)) {
		ret := want
		if want == nil && g.r.Flip(0.5) {
			ret = g.types.PickValueType()
		}
		f := g.newFunction(ret, byRef)
		if g.addCall(b.fn, f, b.loopMult) {
			callee = f
		}
	}
	if callee == nil {
		if len(cands) == 0 {
			return nil, 0, false
		}
		callee = rng.Pick(g.r, cands)
		if !g.addCall(b.fn, callee, b.loopMult) {
			return nil, 0, false
		}
	}

	rank := symbols.Infinity
	args := make([]ast.Expression, len(callee.params))
	for i, p := range callee.params {
		if r, ok := p.Type.(*typesystem.RefType); ok {
			target, tr, _, _ := b.refLValue(r.Inner, minRank)
			args[i] = &ast.RefExpr{Target: target}
			rank = min(rank, tr)
			continue
		}
		args[i] = b.genExpr(p.Type, false)
	}
	call := &ast.Call{Func: callee.name, Args: args, Type: callee.ret}
	if callee.iface != nil {
		call.Receiver = b.genExpr(callee.iface, false)
	}
	if want == nil || byRef || typesystem.Equal(callee.ret, want) {
		return call, rank, true
	}
	return &ast.Cast{Type: want, Value: call}, rank, true
}
