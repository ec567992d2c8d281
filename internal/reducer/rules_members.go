package reducer

import (
	"regexp"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

// member is a declaration found by id.
type member struct {
	fn     *ast.FuncDecl // static function or method
	method bool
	static *ast.StaticField
	typ    *ast.TypeDecl
}

func memberAt(p *ast.Program, id int) member {
	for _, f := range p.Funcs {
		if f.ID == id {
			return member{fn: f}
		}
	}
	for _, s := range p.Statics {
		if s.ID == id {
			return member{static: s}
		}
	}
	for _, td := range p.Types {
		if td.ID == id {
			return member{typ: td}
		}
		for _, m := range td.Methods {
			if m.ID == id {
				return member{fn: m, method: true}
			}
		}
	}
	return member{}
}

// implementations returns every body of the function or interface
// method called name.
func implementations(p *ast.Program, name string) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, f := range p.AllFuncs() {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// signatures returns the interface declarations of method name.
func signatures(p *ast.Program, name string) []*ast.MethodSig {
	var out []*ast.MethodSig
	for _, td := range p.Types {
		for _, s := range td.Sigs {
			if s.Name == name {
				out = append(out, s)
			}
		}
	}
	return out
}

// removeFunc deletes every function, method and signature called name.
func removeFunc(p *ast.Program, name string) {
	funcs := p.Funcs[:0]
	for _, f := range p.Funcs {
		if f.Name != name {
			funcs = append(funcs, f)
		}
	}
	p.Funcs = funcs
	for _, td := range p.Types {
		methods := td.Methods[:0]
		for _, m := range td.Methods {
			if m.Name != name {
				methods = append(methods, m)
			}
		}
		td.Methods = methods
		sigs := td.Sigs[:0]
		for _, s := range td.Sigs {
			if s.Name != name {
				sigs = append(sigs, s)
			}
		}
		td.Sigs = sigs
	}
}

func removeUnusedFunction(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		m := memberAt(c, id)
		if m.fn == nil || len(ast.Calls(c, m.fn.Name)) > 0 {
			return false
		}
		removeFunc(c, m.fn.Name)
		return true
	}))
}

func removeUnusedStatic(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		m := memberAt(c, id)
		if m.static == nil || ast.CountIdents(c, m.static.Name) > 0 {
			return false
		}
		statics := c.Statics[:0]
		for _, s := range c.Statics {
			if s != m.static {
				statics = append(statics, s)
			}
		}
		c.Statics = statics
		return true
	}))
}

// removeUnusedType deletes a type declaration whose name no longer
// appears in the emitted program.
func removeUnusedType(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		m := memberAt(c, id)
		if m.typ == nil {
			return false
		}
		types := c.Types[:0]
		for _, td := range c.Types {
			if td != m.typ {
				types = append(types, td)
			}
		}
		c.Types = types
		used := regexp.MustCompile(`\b` + regexp.QuoteMeta(m.typ.Name()) + `\b`)
		return !used.MatchString(prettyprinter.Print(c))
	}))
}

// unusedParam reports whether no body of name reads parameter i.
func unusedParam(p *ast.Program, name string, i int) bool {
	for _, f := range implementations(p, name) {
		if i >= len(f.Params) || ast.CountIdents(f.Body, f.Params[i].Name) > 0 {
			return false
		}
	}
	return true
}

func dropParam(ps []ast.Param, i int) []ast.Param {
	return append(ps[:i:i], ps[i+1:]...)
}

// removeArgument deletes an unused parameter together with the matching
// argument at every call site.
func removeArgument(p *ast.Program, id int) []*ast.Program {
	m := memberAt(p, id)
	if m.fn == nil {
		return nil
	}
	name := m.fn.Name
	var out []*ast.Program
	for i := range m.fn.Params {
		if !unusedParam(p, name, i) {
			continue
		}
		out = append(out, edit(p, func(c *ast.Program) bool {
			for _, f := range implementations(c, name) {
				f.Params = dropParam(f.Params, i)
			}
			for _, s := range signatures(c, name) {
				s.Params = dropParam(s.Params, i)
			}
			for _, call := range ast.Calls(c, name) {
				if i < len(call.Args) {
					call.Args = append(call.Args[:i:i], call.Args[i+1:]...)
				}
			}
			return true
		}))
	}
	return collect(out...)
}

// demoteMethod turns an interface method whose body in one implementer
// does not use the receiver into a static function with that body. The
// other implementations and the interface declaration go away, and
// calls lose their receiver.
func demoteMethod(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		m := memberAt(c, id)
		if m.fn == nil || !m.method || ast.CountIdents(m.fn.Body, config.ThisName) > 0 {
			return false
		}
		static := m.fn
		removeFunc(c, static.Name)
		static.Receiver = nil
		c.Funcs = append(c.Funcs, static)
		for _, call := range ast.Calls(c, static.Name) {
			call.Receiver = nil
		}
		return true
	}))
}

// removeByRef passes a by-reference parameter by value instead.
func removeByRef(p *ast.Program, id int) []*ast.Program {
	m := memberAt(p, id)
	if m.fn == nil {
		return nil
	}
	name := m.fn.Name
	var out []*ast.Program
	for i, prm := range m.fn.Params {
		if !prm.IsRef() {
			continue
		}
		out = append(out, edit(p, func(c *ast.Program) bool {
			for _, f := range implementations(c, name) {
				f.Params[i].Type = ts.Deref(f.Params[i].Type)
			}
			for _, s := range signatures(c, name) {
				s.Params[i].Type = ts.Deref(s.Params[i].Type)
			}
			for _, call := range ast.Calls(c, name) {
				if i < len(call.Args) {
					if ref, ok := call.Args[i].(*ast.RefExpr); ok {
						call.Args[i] = ref.Target
					}
				}
			}
			return true
		}))
	}
	return collect(out...)
}
