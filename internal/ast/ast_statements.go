package ast

import (
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// Block is a braced statement list with its own scope.
type Block struct {
	Base
	Stmts []Statement
}

func (b *Block) Accept(v Visitor) { v.VisitBlock(b) }
func (b *Block) statementNode()   {}

// VarDecl declares and initializes a local. For a ref local Type is a
// *typesystem.RefType and Value is a *RefExpr.
type VarDecl struct {
	Base
	Name  string
	Type  typesystem.Type
	Value Expression
}

func (d *VarDecl) Accept(v Visitor) { v.VisitVarDecl(d) }
func (d *VarDecl) statementNode()   {}

// IsRef reports whether the local is a ref local.
func (d *VarDecl) IsRef() bool { return typesystem.IsRef(d.Type) }

// Assign is a simple or compound assignment.
type Assign struct {
	Base
	Target Expression
	Op     typesystem.AssignOp
	Value  Expression
}

func (a *Assign) Accept(v Visitor) { v.VisitAssign(a) }
func (a *Assign) statementNode()   {}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Base
	Expr Expression
}

func (e *ExprStmt) Accept(v Visitor) { v.VisitExprStmt(e) }
func (e *ExprStmt) statementNode()   {}

// If is a conditional with an optional else block.
type If struct {
	Base
	Cond Expression
	Then *Block
	Else *Block
}

func (i *If) Accept(v Visitor) { v.VisitIf(i) }
func (i *If) statementNode()   {}

// Return leaves the function. Value is nil in void functions and a
// *RefExpr in ref-returning ones.
type Return struct {
	Base
	Value Expression
}

func (r *Return) Accept(v Visitor) { v.VisitReturn(r) }
func (r *Return) statementNode()   {}

// TryFinally runs Finally after Try.
type TryFinally struct {
	Base
	Try     *Block
	Finally *Block
}

func (t *TryFinally) Accept(v Visitor) { v.VisitTryFinally(t) }
func (t *TryFinally) statementNode()   {}

// For is a counted loop: for (int Var = 0; Var < Count; Var++) Body.
type For struct {
	Base
	Var   string
	Count int
	Body  *Block
}

func (f *For) Accept(v Visitor) { v.VisitFor(f) }
func (f *For) statementNode()   {}

// Checksum reports a value to the runtime hook under a unique site id.
type Checksum struct {
	Base
	Site  int
	Value Expression
}

func (c *Checksum) Accept(v Visitor) { v.VisitChecksum(c) }
func (c *Checksum) statementNode()   {}
