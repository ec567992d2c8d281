package generator

import (
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

type stmtKind int

const (
	stmtBlock stmtKind = iota
	stmtAssign
	stmtCall
	stmtIf
	stmtReturn
	stmtTryFinally
	stmtLoop
)

type exprKind int

const (
	exprMember exprKind = iota
	exprLiteral
	exprUnary
	exprBinary
	exprCall
	exprIncrement
	exprDecrement
)

type blockKind int

const (
	blockRoot blockKind = iota // function body
	blockThen                  // then-branch of an if
	blockPlain
)

func statementTable(w config.StatementWeights) *rng.Table[stmtKind] {
	return rng.NewTable(
		rng.Entry[stmtKind]{Value: stmtBlock, Weight: w.Block},
		rng.Entry[stmtKind]{Value: stmtAssign, Weight: w.Assignment},
		rng.Entry[stmtKind]{Value: stmtCall, Weight: w.Call},
		rng.Entry[stmtKind]{Value: stmtIf, Weight: w.If},
		rng.Entry[stmtKind]{Value: stmtReturn, Weight: w.Return},
		rng.Entry[stmtKind]{Value: stmtTryFinally, Weight: w.TryFinally},
		rng.Entry[stmtKind]{Value: stmtLoop, Weight: w.Loop},
	)
}

func expressionTable(w config.ExpressionWeights) *rng.Table[exprKind] {
	return rng.NewTable(
		rng.Entry[exprKind]{Value: exprMember, Weight: w.MemberAccess},
		rng.Entry[exprKind]{Value: exprLiteral, Weight: w.Literal},
		rng.Entry[exprKind]{Value: exprUnary, Weight: w.Unary},
		rng.Entry[exprKind]{Value: exprBinary, Weight: w.Binary},
		rng.Entry[exprKind]{Value: exprCall, Weight: w.Call},
		rng.Entry[exprKind]{Value: exprIncrement, Weight: w.Increment},
		rng.Entry[exprKind]{Value: exprDecrement, Weight: w.Decrement},
	)
}

// binaryOpTable walks BinaryOps in declaration order so the table does not
// depend on map iteration order.
func binaryOpTable(weights map[string]float64) *rng.Table[typesystem.BinaryOp] {
	var entries []rng.Entry[typesystem.BinaryOp]
	for _, op := range typesystem.BinaryOps {
		entries = append(entries, rng.Entry[typesystem.BinaryOp]{Value: op, Weight: weights[op.Name()]})
	}
	return rng.NewTable(entries...)
}
