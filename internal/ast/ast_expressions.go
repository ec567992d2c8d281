package ast

import (
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// Literal is a primitive constant.
type Literal struct {
	Base
	Value typesystem.Constant
}

func (l *Literal) Accept(v Visitor)            { v.VisitLiteral(l) }
func (l *Literal) expressionNode()             {}
func (l *Literal) ResultType() typesystem.Type { return typesystem.Primitive(l.Value.Kind) }

func NewLiteral(c typesystem.Constant) *Literal { return &Literal{Value: c} }

// IntLiteral builds a constant of kind k clamped to its range.
func IntLiteral(k typesystem.PrimitiveKind, v int64) *Literal {
	return &Literal{Value: typesystem.IntConstant(k, v)}
}

// Ident names a local, parameter, static or "this". For ref locals and
// ref parameters Type is the referenced type.
type Ident struct {
	Base
	Name string
	Type typesystem.Type
}

func (i *Ident) Accept(v Visitor)            { v.VisitIdent(i) }
func (i *Ident) expressionNode()             {}
func (i *Ident) ResultType() typesystem.Type { return i.Type }

// Member is a field access.
type Member struct {
	Base
	Target Expression
	Field  string
	Type   typesystem.Type
}

func (m *Member) Accept(v Visitor)            { v.VisitMember(m) }
func (m *Member) expressionNode()             {}
func (m *Member) ResultType() typesystem.Type { return m.Type }

// Index is an array element access with one index per dimension.
type Index struct {
	Base
	Target  Expression
	Indices []Expression
	Type    typesystem.Type
}

func (i *Index) Accept(v Visitor)            { v.VisitIndex(i) }
func (i *Index) expressionNode()             {}
func (i *Index) ResultType() typesystem.Type { return i.Type }

// Unary is a prefix operator application.
type Unary struct {
	Base
	Op      typesystem.UnaryOp
	Operand Expression
	Type    typesystem.Type
}

func (u *Unary) Accept(v Visitor)            { v.VisitUnary(u) }
func (u *Unary) expressionNode()             {}
func (u *Unary) ResultType() typesystem.Type { return u.Type }

// Binary is an infix operator application.
type Binary struct {
	Base
	Op    typesystem.BinaryOp
	Left  Expression
	Right Expression
	Type  typesystem.Type
}

func (b *Binary) Accept(v Visitor)            { v.VisitBinary(b) }
func (b *Binary) expressionNode()             {}
func (b *Binary) ResultType() typesystem.Type { return b.Type }

// Call invokes a static function, or an interface method when Receiver
// is set. Type is nil for void calls and the referenced type for
// ref-returning calls.
type Call struct {
	Base
	Func     string
	Receiver Expression
	Args     []Expression
	Type     typesystem.Type
}

func (c *Call) Accept(v Visitor)            { v.VisitCall(c) }
func (c *Call) expressionNode()             {}
func (c *Call) ResultType() typesystem.Type { return c.Type }

// Cast is an explicit conversion.
type Cast struct {
	Base
	Type  typesystem.Type
	Value Expression
}

func (c *Cast) Accept(v Visitor)            { v.VisitCast(c) }
func (c *Cast) expressionNode()             {}
func (c *Cast) ResultType() typesystem.Type { return c.Type }

// New constructs an aggregate with one argument per field.
type New struct {
	Base
	Type *typesystem.AggregateType
	Args []Expression
}

func (n *New) Accept(v Visitor)            { v.VisitNew(n) }
func (n *New) expressionNode()             {}
func (n *New) ResultType() typesystem.Type { return n.Type }

// NewArray is an array initializer. Elems holds the elements in row-major
// order for the given dimension lengths.
type NewArray struct {
	Base
	Type  *typesystem.ArrayType
	Dims  []int
	Elems []Expression
}

func (n *NewArray) Accept(v Visitor)            { v.VisitNewArray(n) }
func (n *NewArray) expressionNode()             {}
func (n *NewArray) ResultType() typesystem.Type { return n.Type }

// VectorCreate broadcasts a scalar to every lane.
type VectorCreate struct {
	Base
	Type  *typesystem.VectorType
	Value Expression
}

func (n *VectorCreate) Accept(v Visitor)            { v.VisitVectorCreate(n) }
func (n *VectorCreate) expressionNode()             {}
func (n *VectorCreate) ResultType() typesystem.Type { return n.Type }

// RefExpr takes a reference to an assignable location.
type RefExpr struct {
	Base
	Target Expression
}

func (r *RefExpr) Accept(v Visitor) { v.VisitRef(r) }
func (r *RefExpr) expressionNode()  {}
func (r *RefExpr) ResultType() typesystem.Type {
	return typesystem.NewRef(r.Target.ResultType())
}

// IncDec is ++ or -- in prefix or postfix position.
type IncDec struct {
	Base
	Target    Expression
	Decrement bool
	Prefix    bool
}

func (i *IncDec) Accept(v Visitor)            { v.VisitIncDec(i) }
func (i *IncDec) expressionNode()             {}
func (i *IncDec) ResultType() typesystem.Type { return i.Target.ResultType() }

// UnsafeRead reinterprets the bytes of Source starting at Offset as a
// value of Type.
type UnsafeRead struct {
	Base
	Type   typesystem.Type
	Source Expression
	Offset int
}

func (u *UnsafeRead) Accept(v Visitor)            { v.VisitUnsafeRead(u) }
func (u *UnsafeRead) expressionNode()             {}
func (u *UnsafeRead) ResultType() typesystem.Type { return u.Type }
