package generator

import (
	"fmt"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/symbols"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// funcGen is one entry of the function table. Functions may only call
// functions with a higher index, so the call graph is acyclic.
type funcGen struct {
	index    int
	name     string
	params   []ast.Param
	ret      typesystem.Type
	retByRef bool
	iface    *typesystem.InterfaceType
	decls    []*ast.FuncDecl
	// calls is the number of times each function is transitively invoked
	// by one execution of this one. While a body is being generated it
	// holds that body's counts; once all bodies exist it holds the
	// per-target maximum over them, since one call runs one body.
	calls map[int]int64
}

// applyCall checks, and when commit is set records, that caller invokes
// callee mult times per execution. It fails when any transitive count of
// caller or of a function that reaches caller would exceed the budget.
func (g *Generator) applyCall(caller, callee *funcGen, mult int64, commit bool) bool {
	delta := map[int]int64{callee.index: mult}
	for t, c := range callee.calls {
		delta[t] += c * mult
	}
	type reach struct {
		f     *funcGen
		times int64
	}
	affected := []reach{{caller, 1}}
	for _, f := range g.funcs {
		if n := f.calls[caller.index]; n > 0 {
			affected = append(affected, reach{f, n})
		}
	}
	for _, a := range affected {
		for t, d := range delta {
			if a.f.calls[t]+a.times*d > g.opts.MaxTransitiveCalls {
				return false
			}
		}
	}
	if commit {
		for _, a := range affected {
			for t, d := range delta {
				a.f.calls[t] += a.times * d
			}
		}
	}
	return true
}

func (g *Generator) canAddCall(caller, callee *funcGen, mult int64) bool {
	return g.applyCall(caller, callee, mult, false)
}

func (g *Generator) addCall(caller, callee *funcGen, mult int64) bool {
	if !g.applyCall(caller, callee, mult, false) {
		return false
	}
	g.applyCall(caller, callee, mult, true)
	return true
}

func (g *Generator) canCreateFunction() bool {
	return len(g.funcs) < g.opts.MaxFunctions
}

// newFunction allocates the next table entry, picks its signature and
// generates its bodies. The entry point (index 0) is a parameterless
// static function.
func (g *Generator) newFunction(ret typesystem.Type, retByRef bool) *funcGen {
	fg := &funcGen{
		index:    len(g.funcs),
		name:     fmt.Sprintf("%s%d", config.FuncPrefix, len(g.funcs)),
		ret:      ret,
		retByRef: retByRef,
		calls:    map[int]int64{},
	}
	g.funcs = append(g.funcs, fg)
	g.stats.Functions++

	if fg.index > 0 {
		n := g.opts.ParameterCount.Sample(g.r)
		for i := 0; i < n; i++ {
			t := g.types.PickValueType()
			if g.r.Flip(g.opts.ByRefParameterProb) {
				t = typesystem.NewRef(t)
			}
			fg.params = append(fg.params, ast.Param{Name: fmt.Sprintf("%s%d", config.ParamPrefix, i), Type: t})
		}
		if len(g.types.Interfaces) > 0 && g.r.Flip(g.opts.InterfaceMethodProb) {
			fg.iface = rng.Pick(g.r, g.types.Interfaces)
		}
	}

	if fg.iface == nil {
		decl := &ast.FuncDecl{Name: fg.name, Params: fg.params, Ret: ret, RetByRef: retByRef}
		fg.decls = []*ast.FuncDecl{decl}
		g.program.Funcs = append(g.program.Funcs, decl)
		decl.Body = g.genBody(fg, nil)
		return fg
	}

	id := g.ifaceDecls[fg.iface]
	id.Sigs = append(id.Sigs, &ast.MethodSig{Name: fg.name, Params: fg.params, Ret: ret, RetByRef: retByRef})
	merged := map[int]int64{}
	for _, impl := range g.types.Implementers(fg.iface) {
		decl := &ast.FuncDecl{Name: fg.name, Params: fg.params, Ret: ret, RetByRef: retByRef, Receiver: impl}
		fg.decls = append(fg.decls, decl)
		ad := g.aggDecls[impl]
		ad.Methods = append(ad.Methods, decl)
		fg.calls = map[int]int64{}
		decl.Body = g.genBody(fg, impl)
		for t, n := range fg.calls {
			merged[t] = max(merged[t], n)
		}
	}
	fg.calls = merged
	return fg
}

// genBody generates one body of fg, for receiver when it is a method.
func (g *Generator) genBody(fg *funcGen, receiver *typesystem.AggregateType) *ast.Block {
	b := &bodyGen{g: g, fn: fg, scope: symbols.NewScope(), loopMult: 1}
	b.params = b.scope.Push()
	if receiver != nil {
		b.scope.DeclareReceiver(config.ThisName, receiver)
	}
	for _, p := range fg.params {
		b.scope.DeclareParam(p.Name, p.Type)
	}
	return b.genBlock(blockRoot)
}

// callees lists existing functions fn may call that produce want.
func (b *bodyGen) callees(want typesystem.Type, byRef bool) []*funcGen {
	var out []*funcGen
	for _, f := range b.g.funcs[b.fn.index+1:] {
		switch {
		case byRef:
			if !f.retByRef || !typesystem.Equal(f.ret, want) {
				continue
			}
		case want != nil:
			if f.ret == nil || !typesystem.IsCastableTo(f.ret, want) {
				continue
			}
		}
		if !b.g.canAddCall(b.fn, f, b.loopMult) {
			continue
		}
		out = append(out, f)
	}
	return out
}
