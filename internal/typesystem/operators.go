package typesystem

// BinaryOp is an infix operator.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	LogAnd
	LogOr
)

// BinaryOps lists every operator in table order.
var BinaryOps = []BinaryOp{Add, Sub, Mul, Div, Mod, And, Or, Xor, Shl, Shr, Eq, Ne, Lt, Le, Gt, Ge, LogAnd, LogOr}

var binaryInfo = map[BinaryOp]struct {
	token string
	name  string
	prec  int
}{
	Mul: {"*", "mul", 13}, Div: {"/", "div", 13}, Mod: {"%", "mod", 13},
	Add: {"+", "add", 12}, Sub: {"-", "sub", 12},
	Shl: {"<<", "shl", 11}, Shr: {">>", "shr", 11},
	Lt: {"<", "lt", 10}, Le: {"<=", "le", 10}, Gt: {">", "gt", 10}, Ge: {">=", "ge", 10},
	Eq: {"==", "eq", 9}, Ne: {"!=", "ne", 9},
	And:    {"&", "and", 8},
	Xor:    {"^", "xor", 7},
	Or:     {"|", "or", 6},
	LogAnd: {"&&", "land", 5},
	LogOr:  {"||", "lor", 4},
}

func (op BinaryOp) String() string { return binaryInfo[op].token }

// Name is the word used for op in option files.
func (op BinaryOp) Name() string { return binaryInfo[op].name }

// Precedence follows the C-family ordering; higher binds tighter.
func (op BinaryOp) Precedence() int { return binaryInfo[op].prec }

func (op BinaryOp) IsComparison() bool { return op >= Eq && op <= Ge }

// IsDivision covers the operators that trap on a zero divisor.
func (op BinaryOp) IsDivision() bool { return op == Div || op == Mod }

// UnaryOp is a prefix operator.
type UnaryOp int

const (
	Neg UnaryOp = iota
	BitNot
	Not
)

var UnaryOps = []UnaryOp{Neg, BitNot, Not}

func (op UnaryOp) String() string {
	switch op {
	case Neg:
		return "-"
	case BitNot:
		return "~"
	}
	return "!"
}

// Promote applies binary numeric promotion. The second result is false
// when the operand pair has no common arithmetic type.
func Promote(a, b PrimitiveKind) (PrimitiveKind, bool) {
	if a == Bool || b == Bool {
		return 0, false
	}
	switch {
	case a == Double || b == Double:
		return Double, true
	case a == Float || b == Float:
		return Float, true
	case a == ULong || b == ULong:
		other := a
		if a == ULong {
			other = b
		}
		if other.IsSigned() {
			return 0, false
		}
		return ULong, true
	case a == Long || b == Long:
		return Long, true
	case a == UInt || b == UInt:
		other := a
		if a == UInt {
			other = b
		}
		if other.IsSigned() {
			return Long, true
		}
		return UInt, true
	}
	return Int, true
}

// promoteUnary widens small integral kinds to int.
func promoteUnary(k PrimitiveKind) PrimitiveKind {
	if k.IsSmall() {
		return Int
	}
	return k
}

// isShiftCount reports kinds implicitly convertible to int.
func isShiftCount(k PrimitiveKind) bool {
	return k.IsSmall() || k == Int
}

// BinaryResult returns the result type of l op r, or nil when undefined.
func BinaryResult(op BinaryOp, l, r Type) Type {
	if lv, ok := l.(*VectorType); ok {
		rv, ok := r.(*VectorType)
		if !ok || !Equal(lv, rv) {
			return nil
		}
		switch op {
		case Add, Sub, Mul, And, Or, Xor:
			return lv
		case Eq, Ne:
			return Primitive(Bool)
		}
		return nil
	}
	lk, ok1 := IsPrimitive(l)
	rk, ok2 := IsPrimitive(r)
	if !ok1 || !ok2 {
		return nil
	}
	switch op {
	case Add, Sub, Mul, Div, Mod:
		if k, ok := Promote(lk, rk); ok {
			return Primitive(k)
		}
	case And, Or, Xor:
		if lk == Bool && rk == Bool {
			return Primitive(Bool)
		}
		if lk.IsIntegral() && rk.IsIntegral() {
			if k, ok := Promote(lk, rk); ok {
				return Primitive(k)
			}
		}
	case Shl, Shr:
		if lk.IsIntegral() && isShiftCount(rk) {
			return Primitive(promoteUnary(lk))
		}
	case Eq, Ne:
		if lk == Bool && rk == Bool {
			return Primitive(Bool)
		}
		if _, ok := Promote(lk, rk); ok {
			return Primitive(Bool)
		}
	case Lt, Le, Gt, Ge:
		if _, ok := Promote(lk, rk); ok {
			return Primitive(Bool)
		}
	case LogAnd, LogOr:
		if lk == Bool && rk == Bool {
			return Primitive(Bool)
		}
	}
	return nil
}

// UnaryResult returns the result type of op t, or nil when undefined.
func UnaryResult(op UnaryOp, t Type) Type {
	if v, ok := t.(*VectorType); ok {
		if op == Neg || op == BitNot {
			return v
		}
		return nil
	}
	k, ok := IsPrimitive(t)
	if !ok {
		return nil
	}
	switch op {
	case Neg:
		switch {
		case k == Bool || k == ULong:
			return nil
		case k == UInt:
			return Primitive(Long)
		}
		return Primitive(promoteUnary(k))
	case BitNot:
		if k.IsIntegral() {
			return Primitive(promoteUnary(k))
		}
	case Not:
		if k == Bool {
			return Primitive(Bool)
		}
	}
	return nil
}

// BinarySig is an operator applied to a specific operand pair.
type BinarySig struct {
	Op          BinaryOp
	Left, Right Type
}

// UnarySig is an operator applied to a specific operand type.
type UnarySig struct {
	Op      UnaryOp
	Operand Type
}

// OperatorTable indexes every defined operator signature by result type.
// Signature order is fixed, so sampling from it is deterministic.
type OperatorTable struct {
	binary map[string][]BinarySig
	unary  map[string][]UnarySig
}

// NewOperatorTable enumerates primitive operand pairs plus the given
// vector types.
func NewOperatorTable(vectors []*VectorType) *OperatorTable {
	t := &OperatorTable{binary: map[string][]BinarySig{}, unary: map[string][]UnarySig{}}
	var operands []Type
	for _, p := range primitives {
		operands = append(operands, p)
	}
	for _, op := range BinaryOps {
		for _, l := range operands {
			for _, r := range operands {
				if res := BinaryResult(op, l, r); res != nil {
					t.binary[res.String()] = append(t.binary[res.String()], BinarySig{Op: op, Left: l, Right: r})
				}
			}
		}
		for _, v := range vectors {
			if res := BinaryResult(op, v, v); res != nil {
				t.binary[res.String()] = append(t.binary[res.String()], BinarySig{Op: op, Left: v, Right: v})
			}
		}
	}
	for _, op := range UnaryOps {
		for _, o := range operands {
			if res := UnaryResult(op, o); res != nil {
				t.unary[res.String()] = append(t.unary[res.String()], UnarySig{Op: op, Operand: o})
			}
		}
		for _, v := range vectors {
			if res := UnaryResult(op, v); res != nil {
				t.unary[res.String()] = append(t.unary[res.String()], UnarySig{Op: op, Operand: v})
			}
		}
	}
	return t
}

// Binary returns the signatures producing result.
func (t *OperatorTable) Binary(result Type) []BinarySig { return t.binary[result.String()] }

// Unary returns the signatures producing result.
func (t *OperatorTable) Unary(result Type) []UnarySig { return t.unary[result.String()] }

// AssignOp is a simple or compound assignment operator.
type AssignOp int

const (
	Assign AssignOp = iota
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	AndAssign
	OrAssign
	XorAssign
	ShlAssign
	ShrAssign
)

var assignBinary = map[AssignOp]BinaryOp{
	AddAssign: Add, SubAssign: Sub, MulAssign: Mul, DivAssign: Div, ModAssign: Mod,
	AndAssign: And, OrAssign: Or, XorAssign: Xor, ShlAssign: Shl, ShrAssign: Shr,
}

func (op AssignOp) String() string {
	if op == Assign {
		return "="
	}
	return assignBinary[op].String() + "="
}

// Binary returns the operator a compound assignment applies.
func (op AssignOp) Binary() (BinaryOp, bool) {
	b, ok := assignBinary[op]
	return b, ok
}

// IsShift reports whether the right operand is an int count.
func (op AssignOp) IsShift() bool { return op == ShlAssign || op == ShrAssign }

// CompoundOps lists the assignment operators valid for a target of type t.
func CompoundOps(t Type) []AssignOp {
	switch x := t.(type) {
	case *VectorType:
		return []AssignOp{Assign, AddAssign, SubAssign, MulAssign, AndAssign, OrAssign, XorAssign}
	case *PrimitiveType:
		switch {
		case x.Kind == Bool:
			return []AssignOp{Assign, AndAssign, OrAssign, XorAssign}
		case x.Kind == Char:
			return []AssignOp{Assign}
		case x.Kind.IsFloating():
			return []AssignOp{Assign, AddAssign, SubAssign, MulAssign, DivAssign, ModAssign}
		}
		return []AssignOp{Assign, AddAssign, SubAssign, MulAssign, DivAssign, ModAssign,
			AndAssign, OrAssign, XorAssign, ShlAssign, ShrAssign}
	}
	return []AssignOp{Assign}
}
