package ast

// Clone deep-copies the program. Node ids are preserved; types are shared
// because they are immutable.
func (p *Program) Clone() *Program {
	c := &Program{
		Base:       p.Base,
		Header:     append([]string(nil), p.Header...),
		Standalone: p.Standalone,
		Unsafe:     p.Unsafe,
		Vectors:    p.Vectors,
	}
	for _, t := range p.Types {
		c.Types = append(c.Types, cloneTypeDecl(t))
	}
	for _, s := range p.Statics {
		c.Statics = append(c.Statics, &StaticField{Base: s.Base, Name: s.Name, Type: s.Type, Init: CloneExpr(s.Init)})
	}
	for _, f := range p.Funcs {
		c.Funcs = append(c.Funcs, CloneFunc(f))
	}
	if p.Main != nil {
		c.Main = CloneBlock(p.Main)
	}
	return c
}

func cloneTypeDecl(t *TypeDecl) *TypeDecl {
	c := &TypeDecl{Base: t.Base, Aggregate: t.Aggregate, Interface: t.Interface}
	for _, m := range t.Methods {
		c.Methods = append(c.Methods, CloneFunc(m))
	}
	for _, s := range t.Sigs {
		sc := *s
		sc.Params = append([]Param(nil), s.Params...)
		c.Sigs = append(c.Sigs, &sc)
	}
	return c
}

// CloneFunc deep-copies a function declaration.
func CloneFunc(f *FuncDecl) *FuncDecl {
	c := *f
	c.Params = append([]Param(nil), f.Params...)
	c.Body = CloneBlock(f.Body)
	return &c
}

// CloneBlock deep-copies a block.
func CloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	c := &Block{Base: b.Base, Stmts: make([]Statement, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		c.Stmts = append(c.Stmts, CloneStmt(s))
	}
	return c
}

// CloneStmt deep-copies a statement.
func CloneStmt(s Statement) Statement {
	switch x := s.(type) {
	case *Block:
		return CloneBlock(x)
	case *VarDecl:
		return &VarDecl{Base: x.Base, Name: x.Name, Type: x.Type, Value: CloneExpr(x.Value)}
	case *Assign:
		return &Assign{Base: x.Base, Target: CloneExpr(x.Target), Op: x.Op, Value: CloneExpr(x.Value)}
	case *ExprStmt:
		return &ExprStmt{Base: x.Base, Expr: CloneExpr(x.Expr)}
	case *If:
		return &If{Base: x.Base, Cond: CloneExpr(x.Cond), Then: CloneBlock(x.Then), Else: CloneBlock(x.Else)}
	case *Return:
		return &Return{Base: x.Base, Value: CloneExpr(x.Value)}
	case *TryFinally:
		return &TryFinally{Base: x.Base, Try: CloneBlock(x.Try), Finally: CloneBlock(x.Finally)}
	case *For:
		return &For{Base: x.Base, Var: x.Var, Count: x.Count, Body: CloneBlock(x.Body)}
	case *Checksum:
		return &Checksum{Base: x.Base, Site: x.Site, Value: CloneExpr(x.Value)}
	}
	panic("ast: unknown statement in CloneStmt")
}

func cloneExprs(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = CloneExpr(e)
	}
	return out
}

// CloneExpr deep-copies an expression. A nil expression clones to nil.
func CloneExpr(e Expression) Expression {
	switch x := e.(type) {
	case nil:
		return nil
	case *Literal:
		c := *x
		return &c
	case *Ident:
		c := *x
		return &c
	case *Member:
		return &Member{Base: x.Base, Target: CloneExpr(x.Target), Field: x.Field, Type: x.Type}
	case *Index:
		return &Index{Base: x.Base, Target: CloneExpr(x.Target), Indices: cloneExprs(x.Indices), Type: x.Type}
	case *Unary:
		return &Unary{Base: x.Base, Op: x.Op, Operand: CloneExpr(x.Operand), Type: x.Type}
	case *Binary:
		return &Binary{Base: x.Base, Op: x.Op, Left: CloneExpr(x.Left), Right: CloneExpr(x.Right), Type: x.Type}
	case *Call:
		return &Call{Base: x.Base, Func: x.Func, Receiver: CloneExpr(x.Receiver), Args: cloneExprs(x.Args), Type: x.Type}
	case *Cast:
		return &Cast{Base: x.Base, Type: x.Type, Value: CloneExpr(x.Value)}
	case *New:
		return &New{Base: x.Base, Type: x.Type, Args: cloneExprs(x.Args)}
	case *NewArray:
		return &NewArray{Base: x.Base, Type: x.Type, Dims: append([]int(nil), x.Dims...), Elems: cloneExprs(x.Elems)}
	case *VectorCreate:
		return &VectorCreate{Base: x.Base, Type: x.Type, Value: CloneExpr(x.Value)}
	case *RefExpr:
		return &RefExpr{Base: x.Base, Target: CloneExpr(x.Target)}
	case *IncDec:
		return &IncDec{Base: x.Base, Target: CloneExpr(x.Target), Decrement: x.Decrement, Prefix: x.Prefix}
	case *UnsafeRead:
		return &UnsafeRead{Base: x.Base, Type: x.Type, Source: CloneExpr(x.Source), Offset: x.Offset}
	}
	panic("ast: unknown expression in CloneExpr")
}
