package symbols

import (
	"strings"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// Step is one field access or element access along a path.
type Step struct {
	Field   string
	Indices int // number of zero indices for element access
	Type    typesystem.Type
}

// Path is an access path from a symbol through fields and elements.
type Path struct {
	Root       *Symbol
	Steps      []Step
	Type       typesystem.Type
	EscapeRank int
	OnStack    bool
	Assignable bool
	// writable is whether struct fields below this path may be written.
	writable bool
}

// Expr builds a fresh expression for the path.
func (p Path) Expr() ast.Expression {
	var e ast.Expression = &ast.Ident{Name: p.Root.Name, Type: p.Root.Type}
	for _, s := range p.Steps {
		if s.Field != "" {
			e = &ast.Member{Target: e, Field: s.Field, Type: s.Type}
			continue
		}
		idx := make([]ast.Expression, s.Indices)
		for i := range idx {
			idx[i] = ast.IntLiteral(typesystem.Int, 0)
		}
		e = &ast.Index{Target: e, Indices: idx, Type: s.Type}
	}
	return e
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Root.Name)
	for _, s := range p.Steps {
		if s.Field != "" {
			sb.WriteString("." + s.Field)
		} else {
			sb.WriteString("[" + strings.Repeat("0,", s.Indices-1) + "0]")
		}
	}
	return sb.String()
}

// IsRoot reports whether the path is the bare symbol.
func (p Path) IsRoot() bool { return len(p.Steps) == 0 }

func (p Path) child(s Step) Path {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return Path{
		Root:       p.Root,
		Steps:      append(steps, s),
		Type:       s.Type,
		EscapeRank: p.EscapeRank,
		OnStack:    p.OnStack,
	}
}

// Expand returns every path reachable from sym, the root first. Stepping
// through a class or an array lands on the heap, which has infinite rank
// and is always writable. Arrays expand only their first element.
func Expand(sym *Symbol) []Path {
	root := Path{
		Root:       sym,
		Type:       sym.Type,
		EscapeRank: sym.EscapeRank,
		OnStack:    sym.OnStack,
		Assignable: !sym.ReadOnly && !sym.FixedRoot,
		writable:   !sym.ReadOnly,
	}
	var out []Path
	expand(root, &out)
	return out
}

func expand(p Path, out *[]Path) {
	*out = append(*out, p)
	switch t := p.Type.(type) {
	case *typesystem.AggregateType:
		for _, f := range t.Fields {
			c := p.child(Step{Field: f.Name, Type: f.Type})
			if t.IsClass {
				c.EscapeRank = Infinity
				c.OnStack = false
				c.Assignable = true
				c.writable = true
			} else {
				c.Assignable = p.writable
				c.writable = p.writable
			}
			expand(c, out)
		}
	case *typesystem.ArrayType:
		c := p.child(Step{Indices: t.Rank, Type: t.Elem})
		c.EscapeRank = Infinity
		c.OnStack = false
		c.Assignable = true
		c.writable = true
		expand(c, out)
	}
}

// Filter selects paths.
type Filter struct {
	Type       typesystem.Type // nil accepts any type
	MinRank    int
	Assignable bool
}

// Collect expands syms and keeps the paths accepted by f, in order.
func Collect(syms []*Symbol, f Filter) []Path {
	var out []Path
	for _, sym := range syms {
		for _, p := range Expand(sym) {
			if f.Type != nil && !typesystem.Equal(p.Type, f.Type) {
				continue
			}
			if p.EscapeRank < f.MinRank {
				continue
			}
			if f.Assignable && !p.Assignable {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// Leaves returns the paths of sym whose values can be checksummed:
// primitives and vectors. Interface values are skipped.
func Leaves(sym *Symbol) []Path {
	var out []Path
	for _, p := range Expand(sym) {
		switch p.Type.(type) {
		case *typesystem.PrimitiveType, *typesystem.VectorType:
			out = append(out, p)
		}
	}
	return out
}
