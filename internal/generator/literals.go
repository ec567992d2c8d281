package generator

import (
	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// genLiteral builds a side-effect free value of type t.
func (g *Generator) genLiteral(t typesystem.Type) ast.Expression {
	return g.literal(t, g.opts.MaxArrayElements)
}

// literal allocates at most budget array elements in total.
func (g *Generator) literal(t typesystem.Type, budget int) ast.Expression {
	switch x := t.(type) {
	case *typesystem.PrimitiveType:
		return ast.NewLiteral(typesystem.GenConstant(g.r, x.Kind, g.literalStyles))
	case *typesystem.AggregateType:
		n := &ast.New{Type: x}
		for _, f := range x.Fields {
			n.Args = append(n.Args, g.literal(f.Type, budget))
		}
		return n
	case *typesystem.InterfaceType:
		impl := rng.Pick(g.r, g.types.Implementers(x))
		return &ast.Cast{Type: x, Value: g.literal(impl, budget)}
	case *typesystem.ArrayType:
		dims := g.types.ArrayShape(x.Rank, budget)
		total := 1
		for _, d := range dims {
			total *= d
		}
		inner := max(budget/total, 1)
		arr := &ast.NewArray{Type: x, Dims: dims}
		for i := 0; i < total; i++ {
			arr.Elems = append(arr.Elems, g.literal(x.Elem, inner))
		}
		return arr
	case *typesystem.VectorType:
		return &ast.VectorCreate{Type: x, Value: ast.NewLiteral(typesystem.GenConstant(g.r, x.Elem, g.literalStyles))}
	}
	panic("generator: no literal for " + t.String())
}
