package typesystem

import (
	"fmt"
	"strings"
)

// Type is a type of the generated language. Types are immutable once
// program synthesis has registered them.
type Type interface {
	String() string
	isType()
}

// PrimitiveType is one of the built-in scalar types. Instances are
// canonical, so pointer comparison is equality.
type PrimitiveType struct {
	Kind PrimitiveKind
}

func (p *PrimitiveType) String() string { return p.Kind.Keyword() }
func (*PrimitiveType) isType()          {}

var primitives = func() []*PrimitiveType {
	out := make([]*PrimitiveType, numPrimitiveKinds)
	for k := range out {
		out[k] = &PrimitiveType{Kind: PrimitiveKind(k)}
	}
	return out
}()

// Primitive returns the canonical type for k.
func Primitive(k PrimitiveKind) *PrimitiveType { return primitives[k] }

// Primitives returns every primitive type in kind order.
func Primitives() []*PrimitiveType {
	out := make([]*PrimitiveType, len(primitives))
	copy(out, primitives)
	return out
}

// Field is a named member of an aggregate.
type Field struct {
	Name string
	Type Type
}

// AggregateType is a struct (value semantics) or class (reference
// semantics). Identity is by pointer.
type AggregateType struct {
	Name       string
	IsClass    bool
	Fields     []Field
	Interfaces []*InterfaceType
	// Layout is nil for classes and for structs with a managed field.
	Layout *Layout
}

// NewAggregate creates an aggregate and computes its layout.
func NewAggregate(name string, isClass bool, fields []Field) *AggregateType {
	a := &AggregateType{Name: name, IsClass: isClass, Fields: fields}
	if !isClass {
		a.Layout = structLayout(fields)
	}
	return a
}

func (a *AggregateType) String() string { return a.Name }
func (*AggregateType) isType()          {}

// Field returns the named field.
func (a *AggregateType) Field(name string) (Field, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Implements reports whether a declares i.
func (a *AggregateType) Implements(i *InterfaceType) bool {
	for _, x := range a.Interfaces {
		if x == i {
			return true
		}
	}
	return false
}

// InterfaceType is a nominal interface. Method signatures live with the
// program declarations, so reductions never mutate shared types.
type InterfaceType struct {
	Name string
}

func (i *InterfaceType) String() string { return i.Name }
func (*InterfaceType) isType()          {}

// ArrayType is a rectangular array of Rank dimensions. A jagged array is
// an ArrayType whose Elem is itself an ArrayType.
type ArrayType struct {
	Elem Type
	Rank int
}

func (a *ArrayType) String() string {
	var ranks []int
	var base Type = a
	for {
		arr, ok := base.(*ArrayType)
		if !ok {
			break
		}
		ranks = append(ranks, arr.Rank)
		base = arr.Elem
	}
	var sb strings.Builder
	sb.WriteString(base.String())
	for _, r := range ranks {
		sb.WriteByte('[')
		sb.WriteString(strings.Repeat(",", r-1))
		sb.WriteByte(']')
	}
	return sb.String()
}
func (*ArrayType) isType() {}

// VectorType is a fixed-width SIMD vector of a numeric element kind.
type VectorType struct {
	Width int
	Elem  PrimitiveKind
}

// VectorWidths are the supported vector sizes in bits.
var VectorWidths = []int{64, 128, 256, 512}

func (v *VectorType) String() string {
	return fmt.Sprintf("Vector%d<%s>", v.Width, v.Elem.Keyword())
}
func (*VectorType) isType() {}

// Count returns the number of lanes.
func (v *VectorType) Count() int { return v.Width / (v.Elem.Size() * 8) }

// StaticName is the helper class holding Create for this width.
func (v *VectorType) StaticName() string { return fmt.Sprintf("Vector%d", v.Width) }

// RefType marks a by-reference parameter, local or return.
type RefType struct {
	Inner Type
}

// NewRef wraps t. A reference to a reference is not a valid type.
func NewRef(t Type) *RefType {
	if _, ok := t.(*RefType); ok {
		panic("typesystem: reference to reference")
	}
	return &RefType{Inner: t}
}

func (r *RefType) String() string { return "ref " + r.Inner.String() }
func (*RefType) isType()          {}

// Deref strips one reference level.
func Deref(t Type) Type {
	if r, ok := t.(*RefType); ok {
		return r.Inner
	}
	return t
}

// IsRef reports whether t is a reference type.
func IsRef(t Type) bool {
	_, ok := t.(*RefType)
	return ok
}

// Equal is structural for primitives, arrays, vectors and references,
// and by identity for aggregates and interfaces.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *PrimitiveType:
		y, ok := b.(*PrimitiveType)
		return ok && x.Kind == y.Kind
	case *AggregateType:
		y, ok := b.(*AggregateType)
		return ok && x == y
	case *InterfaceType:
		y, ok := b.(*InterfaceType)
		return ok && x == y
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && x.Rank == y.Rank && Equal(x.Elem, y.Elem)
	case *VectorType:
		y, ok := b.(*VectorType)
		return ok && x.Width == y.Width && x.Elem == y.Elem
	case *RefType:
		y, ok := b.(*RefType)
		return ok && Equal(x.Inner, y.Inner)
	}
	return false
}

// IsCastableTo reports whether an explicit cast from one type to the other
// is always well-formed and never throws.
func IsCastableTo(from, to Type) bool {
	if Equal(from, to) {
		return true
	}
	fp, ok1 := from.(*PrimitiveType)
	tp, ok2 := to.(*PrimitiveType)
	if ok1 && ok2 {
		return fp.Kind.IsIntegral() && tp.Kind.IsIntegral()
	}
	if agg, ok := from.(*AggregateType); ok {
		if it, ok := to.(*InterfaceType); ok {
			return agg.Implements(it)
		}
	}
	return false
}

// IsUnmanaged reports whether t contains no object references.
func IsUnmanaged(t Type) bool {
	switch x := t.(type) {
	case *PrimitiveType, *VectorType:
		return true
	case *AggregateType:
		return x.Layout != nil
	}
	return false
}

// IsPrimitive returns the primitive kind of t, if any.
func IsPrimitive(t Type) (PrimitiveKind, bool) {
	if p, ok := t.(*PrimitiveType); ok {
		return p.Kind, true
	}
	return 0, false
}

// Names collects the aggregate and interface names t mentions.
func Names(t Type, into map[string]bool) {
	switch x := t.(type) {
	case *AggregateType:
		into[x.Name] = true
	case *InterfaceType:
		into[x.Name] = true
	case *ArrayType:
		Names(x.Elem, into)
	case *RefType:
		Names(x.Inner, into)
	}
}
