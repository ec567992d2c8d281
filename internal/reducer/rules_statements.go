package reducer

import (
	"github.com/funvibe/diffsmith/internal/ast"
	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

// rootOf returns the function whose body is b.
func rootOf(p *ast.Program, b *ast.Block) *ast.FuncDecl {
	for _, f := range p.AllFuncs() {
		if f.Body == b {
			return f
		}
	}
	return nil
}

// lvalueRoot returns the variable an assignable expression is rooted at.
func lvalueRoot(e ast.Expression) string {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x.Name
		case *ast.Member:
			e = x.Target
		case *ast.Index:
			e = x.Target
		default:
			return ""
		}
	}
}

// written reports whether name is assigned, incremented or referenced
// by ref anywhere under n.
func written(n ast.Node, name string) bool {
	found := false
	ast.Inspect(n, func(x ast.Node) bool {
		if found {
			return false
		}
		var target ast.Expression
		switch y := x.(type) {
		case *ast.Assign:
			target = y.Target
		case *ast.IncDec:
			target = y.Target
		case *ast.RefExpr:
			target = y.Target
		case *ast.UnsafeRead:
			target = y.Source
		}
		if target != nil && lvalueRoot(target) == name {
			found = true
		}
		return true
	})
	return found
}

func removeStatement(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		s, b, _ := ast.FindStmt(c, id)
		switch x := s.(type) {
		case nil, *ast.VarDecl:
			return false
		case *ast.Return:
			// A value-returning function keeps its final return.
			if x.Value != nil && rootOf(c, b) != nil {
				return false
			}
		}
		return ast.ReplaceStmt(c, id)
	}))
}

func removeUnusedLocal(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		d, ok := stmtAs[*ast.VarDecl](c, id)
		if !ok || ast.CountIdents(c, d.Name) > 0 {
			return false
		}
		return ast.ReplaceStmt(c, id)
	}))
}

// inlineLocal substitutes a never-written local initialized with a
// constant by that constant.
func inlineLocal(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		d, ok := stmtAs[*ast.VarDecl](c, id)
		if !ok || d.IsRef() {
			return false
		}
		lit, ok := d.Value.(*ast.Literal)
		if !ok || written(c, d.Name) {
			return false
		}
		ast.RewriteExprs(c, func(slot *ast.Expression) {
			if x, ok := (*slot).(*ast.Ident); ok && x.Name == d.Name {
				*slot = ast.NewLiteral(lit.Value)
			}
		})
		return ast.ReplaceStmt(c, id)
	}))
}

func shrinkLocalInit(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		d, ok := stmtAs[*ast.VarDecl](c, id)
		if !ok || d.IsRef() {
			return false
		}
		k, ok := ts.IsPrimitive(d.Type)
		if _, isLit := d.Value.(*ast.Literal); !ok || isLit {
			return false
		}
		d.Value = ast.IntLiteral(k, 0)
		return true
	}))
}

func flattenBlock(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		b, ok := stmtAs[*ast.Block](c, id)
		return ok && ast.ReplaceStmt(c, id, b.Stmts...)
	}))
}

func flattenIf(p *ast.Program, id int) []*ast.Program {
	thenOnly := edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.If](c, id)
		return ok && ast.ReplaceStmt(c, id, s.Then.Stmts...)
	})
	elseOnly := edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.If](c, id)
		return ok && s.Else != nil && ast.ReplaceStmt(c, id, s.Else.Stmts...)
	})
	dropElse := edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.If](c, id)
		if !ok || s.Else == nil {
			return false
		}
		s.Else = nil
		return true
	})
	return collect(thenOnly, elseOnly, dropElse)
}

func flattenTry(p *ast.Program, id int) []*ast.Program {
	splice := func(try, finally bool) *ast.Program {
		return edit(p, func(c *ast.Program) bool {
			s, ok := stmtAs[*ast.TryFinally](c, id)
			if !ok {
				return false
			}
			var stmts []ast.Statement
			if try {
				stmts = append(stmts, s.Try.Stmts...)
			}
			if finally {
				stmts = append(stmts, s.Finally.Stmts...)
			}
			return ast.ReplaceStmt(c, id, stmts...)
		})
	}
	return collect(splice(true, true), splice(true, false), splice(false, true))
}

// flattenLoop replaces a loop by one copy of its body, keeping the loop
// variable as a local when the body reads it, or runs it once.
func flattenLoop(p *ast.Program, id int) []*ast.Program {
	unrolled := edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.For](c, id)
		if !ok {
			return false
		}
		var stmts []ast.Statement
		if ast.CountIdents(s.Body, s.Var) > 0 {
			stmts = append(stmts, &ast.VarDecl{Name: s.Var, Type: ts.Primitive(ts.Int), Value: ast.IntLiteral(ts.Int, 0)})
		}
		stmts = append(stmts, s.Body.Stmts...)
		return ast.ReplaceStmt(c, id, stmts...)
	})
	once := edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.For](c, id)
		if !ok || s.Count <= 1 {
			return false
		}
		s.Count = 1
		return true
	})
	return collect(unrolled, once)
}

// inlineVoidCall replaces the only call to a parameterless void function
// by the function's body and deletes the function.
func inlineVoidCall(p *ast.Program, id int) []*ast.Program {
	return collect(edit(p, func(c *ast.Program) bool {
		s, ok := stmtAs[*ast.ExprStmt](c, id)
		if !ok {
			return false
		}
		call, ok := s.Expr.(*ast.Call)
		if !ok || call.Receiver != nil || len(call.Args) > 0 {
			return false
		}
		callee := c.Func(call.Func)
		if callee == nil || callee.Ret != nil || len(callee.Params) > 0 || len(ast.Calls(c, call.Func)) != 1 {
			return false
		}
		stmts := callee.Body.Stmts
		if n := len(stmts); n > 0 {
			if _, ok := stmts[n-1].(*ast.Return); ok {
				stmts = stmts[:n-1]
			}
		}
		returns := false
		for _, st := range stmts {
			ast.Inspect(st, func(x ast.Node) bool {
				if _, ok := x.(*ast.Return); ok {
					returns = true
				}
				return !returns
			})
		}
		if returns {
			return false
		}
		removeFunc(c, callee.Name)
		return ast.ReplaceStmt(c, id, stmts...)
	}))
}

// stmtAs finds the statement with the given id and asserts its type.
func stmtAs[T ast.Statement](p *ast.Program, id int) (T, bool) {
	s, _, _ := ast.FindStmt(p, id)
	t, ok := s.(T)
	return t, ok
}
