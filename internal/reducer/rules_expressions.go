package reducer

import (
	"math"

	"github.com/funvibe/diffsmith/internal/ast"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

// exprAt finds an expression together with the slot holding it and the
// node owning the slot.
func exprAt(p *ast.Program, id int) (*ast.Expression, ast.Node) {
	return ast.FindSlot(p, id)
}

// isGuard matches the "e | 1" wrapper put around divisors, optionally
// under a cast.
func isGuard(e ast.Expression) bool {
	switch x := e.(type) {
	case *ast.Cast:
		return isGuard(x.Value)
	case *ast.Binary:
		lit, ok := x.Right.(*ast.Literal)
		return ok && x.Op == ts.Or && lit.Value.Equal(ts.IntConstant(lit.Value.Kind, 1))
	}
	return false
}

// inDivisor reports whether e is the right operand of a division, or
// the value of a cast that is.
func inDivisor(p *ast.Program, e ast.Expression) bool {
	slot, parent := ast.FindSlot(p, e.NodeID())
	switch x := parent.(type) {
	case *ast.Binary:
		return x.Op.IsDivision() && slot == &x.Right
	case *ast.Cast:
		return inDivisor(p, x)
	}
	return false
}

// protected reports whether the expression in slot is part of a divisor
// guard. Guards keep divisions from trapping and are never reduced.
func protected(p *ast.Program, slot *ast.Expression, parent ast.Node) bool {
	if isGuard(*slot) && inDivisor(p, *slot) {
		return true
	}
	if b, ok := parent.(*ast.Binary); ok && slot == &b.Right && isGuard(b) && inDivisor(p, b) {
		return true
	}
	return false
}

// fixedSlot reports slots whose expression cannot be swapped for an
// arbitrary value: assignment targets, ref operands and expression
// statements.
func fixedSlot(slot *ast.Expression, parent ast.Node) bool {
	switch x := parent.(type) {
	case *ast.Assign:
		return slot == &x.Target
	case *ast.IncDec, *ast.RefExpr, *ast.UnsafeRead, *ast.ExprStmt:
		return true
	}
	return false
}

// literalSibling reports whether the other operand of a binary parent is
// a constant, in which case a constant here would fold at compile time.
func literalSibling(slot *ast.Expression, parent ast.Node) bool {
	b, ok := parent.(*ast.Binary)
	if !ok {
		return false
	}
	other := b.Left
	if slot == &b.Left {
		other = b.Right
	}
	_, lit := other.(*ast.Literal)
	return lit
}

func replaceWithLiteral(p *ast.Program, id int) []*ast.Program {
	slot, parent := exprAt(p, id)
	if slot == nil || fixedSlot(slot, parent) || protected(p, slot, parent) || literalSibling(slot, parent) {
		return nil
	}
	if _, ok := (*slot).(*ast.Literal); ok {
		return nil
	}
	k, ok := ts.IsPrimitive((*slot).ResultType())
	if !ok {
		return nil
	}
	values := []int64{0, 1}
	if b, ok := parent.(*ast.Binary); ok && b.Op.IsDivision() && slot == &b.Right {
		values = []int64{1}
	}
	var out []*ast.Program
	for _, v := range values {
		out = append(out, edit(p, func(c *ast.Program) bool {
			return ast.ReplaceExpr(c, id, ast.IntLiteral(k, v))
		}))
	}
	return collect(out...)
}

// shrinkTargets lists the constants simpler than c: zero, one, minus
// one and half of c, each smaller in magnitude.
func shrinkTargets(c ts.Constant) []ts.Constant {
	k := c.Kind
	var out []ts.Constant
	switch {
	case k == ts.Bool:
		if c.Bool {
			out = append(out, ts.Constant{Kind: ts.Bool})
		}
	case k.IsFloating():
		mag := math.Abs(c.Float)
		for _, v := range []float64{0, 1, -1, math.Trunc(c.Float), math.Trunc(c.Float / 2)} {
			if math.Abs(v) < mag {
				out = append(out, ts.Constant{Kind: k, Float: v})
			}
		}
	case k.IsUnsigned():
		for _, v := range []uint64{0, 1, c.Uint / 2} {
			if v < c.Uint {
				out = append(out, ts.Constant{Kind: k, Uint: v})
			}
		}
	default:
		mag := func(v int64) uint64 {
			if v < 0 {
				return uint64(-(v + 1)) + 1
			}
			return uint64(v)
		}
		for _, v := range []int64{0, 1, -1, c.Int / 2} {
			if mag(v) < mag(c.Int) {
				out = append(out, ts.Constant{Kind: k, Int: v})
			}
		}
	}
	// Drop duplicates, keeping the first.
	uniq := out[:0]
	for _, v := range out {
		dup := false
		for _, u := range uniq {
			dup = dup || u.Equal(v)
		}
		if !dup {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

func shrinkLiteral(p *ast.Program, id int) []*ast.Program {
	slot, parent := exprAt(p, id)
	if slot == nil || protected(p, slot, parent) {
		return nil
	}
	lit, ok := (*slot).(*ast.Literal)
	if !ok {
		return nil
	}
	var out []*ast.Program
	for _, v := range shrinkTargets(lit.Value) {
		if b, ok := parent.(*ast.Binary); ok && b.Op.IsDivision() && slot == &b.Right && v.Equal(ts.IntConstant(v.Kind, 0)) {
			continue
		}
		out = append(out, edit(p, func(c *ast.Program) bool {
			return ast.ReplaceExpr(c, id, ast.NewLiteral(v))
		}))
	}
	return collect(out...)
}

// extractOperand replaces an operation by one of its operands of the
// same type.
func extractOperand(p *ast.Program, id int) []*ast.Program {
	slot, parent := exprAt(p, id)
	if slot == nil || fixedSlot(slot, parent) || protected(p, slot, parent) {
		return nil
	}
	want := (*slot).ResultType()
	var operands []ast.Expression
	switch x := (*slot).(type) {
	case *ast.Binary:
		operands = []ast.Expression{x.Left, x.Right}
	case *ast.Unary:
		operands = []ast.Expression{x.Operand}
	case *ast.Cast:
		operands = []ast.Expression{x.Value}
	}
	var out []*ast.Program
	for _, op := range operands {
		if !ts.Equal(op.ResultType(), want) {
			continue
		}
		opID := op.NodeID()
		out = append(out, edit(p, func(c *ast.Program) bool {
			inner := ast.Find(c, opID)
			e, ok := inner.(ast.Expression)
			return ok && ast.ReplaceExpr(c, id, e)
		}))
	}
	return collect(out...)
}

// inlineCall replaces the only call to a function whose body is a single
// return by the returned expression, with the arguments substituted for
// by-value parameters used at most once.
// substituteParams replaces the parameters in a callee expression with
// the caller's arguments. Only slots of the callee expression are visited:
// arguments may use names that are also parameters of the callee.
func substituteParams(value ast.Expression, args map[string]ast.Expression) ast.Expression {
	param := func(e ast.Expression) (ast.Expression, bool) {
		x, ok := e.(*ast.Ident)
		if !ok {
			return nil, false
		}
		arg, ok := args[x.Name]
		return arg, ok
	}
	if arg, ok := param(value); ok {
		return arg
	}
	var uses []*ast.Expression
	ast.RewriteExprs(value, func(s *ast.Expression) {
		if _, ok := param(*s); ok {
			uses = append(uses, s)
		}
	})
	for _, s := range uses {
		*s, _ = param(*s)
	}
	return value
}

func inlineCall(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		slot, parent := exprAt(c, id)
		if slot == nil || fixedSlot(slot, parent) {
			return false
		}
		call, ok := (*slot).(*ast.Call)
		if !ok || call.Receiver != nil || call.Type == nil {
			return false
		}
		callee := c.Func(call.Func)
		if callee == nil || callee.RetByRef || len(callee.Body.Stmts) != 1 || len(ast.Calls(c, call.Func)) != 1 {
			return false
		}
		ret, ok := callee.Body.Stmts[0].(*ast.Return)
		if !ok || ret.Value == nil || len(call.Args) != len(callee.Params) {
			return false
		}
		args := map[string]ast.Expression{}
		for i, prm := range callee.Params {
			if prm.IsRef() || ast.CountIdents(ret.Value, prm.Name) > 1 || written(ret.Value, prm.Name) {
				return false
			}
			args[prm.Name] = call.Args[i]
		}
		value := substituteParams(ret.Value, args)
		if !ts.Equal(value.ResultType(), call.Type) {
			value = &ast.Cast{Type: call.Type, Value: value}
		}
		removeFunc(c, callee.Name)
		*slot = value
		return true
	}))
}
