package ast

import (
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// Node is the base interface for all AST nodes. Every node carries an id
// that stays stable across Clone, which lets edits computed on one program
// be replayed on a copy.
type Node interface {
	Accept(v Visitor)
	NodeID() int
	setID(id int)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
	// ResultType is the static type of the value the expression produces.
	ResultType() typesystem.Type
}

// Base holds the node id.
type Base struct {
	ID int
}

func (b *Base) NodeID() int   { return b.ID }
func (b *Base) setID(id int) { b.ID = id }

// Param is a function parameter. By-reference parameters have a
// *typesystem.RefType.
type Param struct {
	Name string
	Type typesystem.Type
}

// IsRef reports whether the parameter is passed by reference.
func (p Param) IsRef() bool { return typesystem.IsRef(p.Type) }

// FuncDecl is a static function or an interface method implementation.
type FuncDecl struct {
	Base
	Name     string
	Params   []Param
	Ret      typesystem.Type // nil for void
	RetByRef bool
	Body     *Block
	// Receiver is set for method implementations.
	Receiver *typesystem.AggregateType
}

func (f *FuncDecl) Accept(v Visitor) { v.VisitFuncDecl(f) }

// IsMethod reports whether f implements an interface method.
func (f *FuncDecl) IsMethod() bool { return f.Receiver != nil }

// MethodSig is an interface method declaration.
type MethodSig struct {
	Base
	Name     string
	Params   []Param
	Ret      typesystem.Type
	RetByRef bool
}

// StaticField is a static variable of the program class.
type StaticField struct {
	Base
	Name string
	Type typesystem.Type
	Init Expression
}

func (s *StaticField) Accept(v Visitor) { v.VisitStaticField(s) }

// TypeDecl declares an aggregate with its method implementations, or an
// interface with its method signatures.
type TypeDecl struct {
	Base
	Aggregate *typesystem.AggregateType
	Interface *typesystem.InterfaceType
	Methods   []*FuncDecl
	Sigs      []*MethodSig
}

func (t *TypeDecl) Accept(v Visitor) { v.VisitTypeDecl(t) }

// Name returns the declared type name.
func (t *TypeDecl) Name() string {
	if t.Interface != nil {
		return t.Interface.Name
	}
	return t.Aggregate.Name
}

// Program is a complete generated test case.
type Program struct {
	Base
	// Header lines are emitted as leading comments.
	Header  []string
	Types   []*TypeDecl
	Statics []*StaticField
	Funcs   []*FuncDecl
	// Main is the body of the entry point. Unless Standalone is set the
	// printer prepends the runtime hook setup.
	Main *Block
	// Standalone programs print checksums directly and carry no hook.
	Standalone bool
	// Unsafe and Vectors request the corresponding using directives.
	Unsafe  bool
	Vectors bool
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }

// AllFuncs returns static functions followed by method implementations
// in declaration order.
func (p *Program) AllFuncs() []*FuncDecl {
	out := append([]*FuncDecl(nil), p.Funcs...)
	for _, t := range p.Types {
		out = append(out, t.Methods...)
	}
	return out
}

// TypeDecl returns the declaration named name.
func (p *Program) TypeDecl(name string) *TypeDecl {
	for _, t := range p.Types {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Func returns the static function named name.
func (p *Program) Func(name string) *FuncDecl {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
