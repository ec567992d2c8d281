package ast

// Visitor dispatches on concrete node types.
type Visitor interface {
	VisitProgram(n *Program)
	VisitTypeDecl(n *TypeDecl)
	VisitStaticField(n *StaticField)
	VisitFuncDecl(n *FuncDecl)

	VisitBlock(n *Block)
	VisitVarDecl(n *VarDecl)
	VisitAssign(n *Assign)
	VisitExprStmt(n *ExprStmt)
	VisitIf(n *If)
	VisitReturn(n *Return)
	VisitTryFinally(n *TryFinally)
	VisitFor(n *For)
	VisitChecksum(n *Checksum)

	VisitLiteral(n *Literal)
	VisitIdent(n *Ident)
	VisitMember(n *Member)
	VisitIndex(n *Index)
	VisitUnary(n *Unary)
	VisitBinary(n *Binary)
	VisitCall(n *Call)
	VisitCast(n *Cast)
	VisitNew(n *New)
	VisitNewArray(n *NewArray)
	VisitVectorCreate(n *VectorCreate)
	VisitRef(n *RefExpr)
	VisitIncDec(n *IncDec)
	VisitUnsafeRead(n *UnsafeRead)
}
