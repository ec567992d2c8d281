package generator

import (
	"slices"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/symbols"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// refLValue picks a location of type t that a reference of escape rank
// minRank may point to. It returns the location, its rank, whether it
// is known to live in the current frame and the variable holding it, nil
// for call results.
func (b *bodyGen) refLValue(t typesystem.Type, minRank int) (ast.Expression, int, bool, *symbols.Symbol) {
	g := b.g
	if g.r.Flip(g.opts.RefReturnCallProb) && b.nestExpr() {
		if e, rank, ok := b.genCall(t, true, minRank); ok {
			return e, rank, false, nil
		}
	}
	paths := symbols.Collect(b.visible(), symbols.Filter{Type: t, MinRank: minRank, Assignable: true})
	if len(paths) > 0 {
		p := rng.Pick(g.r, paths)
		return p.Expr(), p.EscapeRank, p.OnStack, storageRoot(p.Root)
	}
	static := g.newStatic(t)
	return symbols.Expand(static)[0].Expr(), symbols.Infinity, false, static
}

// storageRoot resolves ref locals to the variable they point into.
func storageRoot(sym *symbols.Symbol) *symbols.Symbol {
	if sym.IsRef && sym.Aliases != nil {
		return sym.Aliases
	}
	return sym
}

// genUnsafeRead tries to build a reinterpreting read of a value of type t
// from the bytes of a stack local not in exclude. Only windows that avoid
// padding are used, and bool targets are never produced.
func (b *bodyGen) genUnsafeRead(t typesystem.Type, exclude ...*symbols.Symbol) (ast.Expression, bool) {
	g := b.g
	if !g.opts.Unsafe || !g.r.Flip(g.opts.UnsafeReadProb) {
		return nil, false
	}
	tl := typesystem.LayoutOf(t)
	if tl == nil || tl.HasBool() {
		return nil, false
	}
	var sources []symbols.Path
	for _, p := range symbols.Collect(b.scope.Symbols(), symbols.Filter{Assignable: true, MinRank: symbols.MinRank}) {
		if slices.Contains(exclude, p.Root) || p.Root.IsRef || !p.OnStack {
			continue
		}
		if typesystem.LayoutOf(p.Type) == nil {
			continue
		}
		sources = append(sources, p)
	}
	g.r.Shuffle(len(sources), func(i, j int) { sources[i], sources[j] = sources[j], sources[i] })
	for _, src := range sources {
		offsets := tl.Offsets(typesystem.LayoutOf(src.Type))
		if len(offsets) == 0 {
			continue
		}
		return &ast.UnsafeRead{Type: t, Source: src.Expr(), Offset: rng.Pick(g.r, offsets)}, true
	}
	return nil, false
}
