package ast

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	addExprs := func(es []Expression) {
		for _, e := range es {
			add(e)
		}
	}
	switch x := n.(type) {
	case *Program:
		for _, t := range x.Types {
			out = append(out, t)
		}
		for _, s := range x.Statics {
			out = append(out, s)
		}
		for _, f := range x.Funcs {
			out = append(out, f)
		}
		if x.Main != nil {
			out = append(out, x.Main)
		}
	case *TypeDecl:
		for _, m := range x.Methods {
			out = append(out, m)
		}
	case *StaticField:
		add(x.Init)
	case *FuncDecl:
		if x.Body != nil {
			out = append(out, x.Body)
		}
	case *Block:
		for _, s := range x.Stmts {
			add(s)
		}
	case *VarDecl:
		add(x.Value)
	case *Assign:
		add(x.Target)
		add(x.Value)
	case *ExprStmt:
		add(x.Expr)
	case *If:
		add(x.Cond)
		out = append(out, x.Then)
		if x.Else != nil {
			out = append(out, x.Else)
		}
	case *Return:
		add(x.Value)
	case *TryFinally:
		out = append(out, x.Try, x.Finally)
	case *For:
		out = append(out, x.Body)
	case *Checksum:
		add(x.Value)
	case *Member:
		add(x.Target)
	case *Index:
		add(x.Target)
		addExprs(x.Indices)
	case *Unary:
		add(x.Operand)
	case *Binary:
		add(x.Left)
		add(x.Right)
	case *Call:
		add(x.Receiver)
		addExprs(x.Args)
	case *Cast:
		add(x.Value)
	case *New:
		addExprs(x.Args)
	case *NewArray:
		addExprs(x.Elems)
	case *VectorCreate:
		add(x.Value)
	case *RefExpr:
		add(x.Target)
	case *IncDec:
		add(x.Target)
	case *UnsafeRead:
		add(x.Source)
	}
	return out
}

// Inspect traverses n in pre-order. Returning false from fn skips the
// children of the current node.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// exprSlots returns pointers to the expression fields of n so callers can
// substitute them in place.
func exprSlots(n Node) []*Expression {
	var out []*Expression
	add := func(e *Expression) {
		if *e != nil {
			out = append(out, e)
		}
	}
	addAll := func(es []Expression) {
		for i := range es {
			add(&es[i])
		}
	}
	switch x := n.(type) {
	case *StaticField:
		add(&x.Init)
	case *VarDecl:
		add(&x.Value)
	case *Assign:
		add(&x.Target)
		add(&x.Value)
	case *ExprStmt:
		add(&x.Expr)
	case *If:
		add(&x.Cond)
	case *Return:
		add(&x.Value)
	case *Checksum:
		add(&x.Value)
	case *Member:
		add(&x.Target)
	case *Index:
		add(&x.Target)
		addAll(x.Indices)
	case *Unary:
		add(&x.Operand)
	case *Binary:
		add(&x.Left)
		add(&x.Right)
	case *Call:
		add(&x.Receiver)
		addAll(x.Args)
	case *Cast:
		add(&x.Value)
	case *New:
		addAll(x.Args)
	case *NewArray:
		addAll(x.Elems)
	case *VectorCreate:
		add(&x.Value)
	case *RefExpr:
		add(&x.Target)
	case *IncDec:
		add(&x.Target)
	case *UnsafeRead:
		add(&x.Source)
	}
	return out
}

// Find returns the node with the given id.
func Find(root Node, id int) Node {
	var found Node
	Inspect(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.NodeID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindStmt returns the statement with the given id together with the
// block holding it and its position there.
func FindStmt(root Node, id int) (Statement, *Block, int) {
	var (
		stmt  Statement
		block *Block
		index int
	)
	Inspect(root, func(n Node) bool {
		if block != nil {
			return false
		}
		if b, ok := n.(*Block); ok {
			for i, s := range b.Stmts {
				if s.NodeID() == id {
					stmt, block, index = s, b, i
					return false
				}
			}
		}
		return true
	})
	return stmt, block, index
}

// ReplaceStmt splices repl in place of the statement with the given id.
// It reports whether the statement was found.
func ReplaceStmt(root Node, id int, repl ...Statement) bool {
	_, b, i := FindStmt(root, id)
	if b == nil {
		return false
	}
	stmts := make([]Statement, 0, len(b.Stmts)-1+len(repl))
	stmts = append(stmts, b.Stmts[:i]...)
	stmts = append(stmts, repl...)
	stmts = append(stmts, b.Stmts[i+1:]...)
	b.Stmts = stmts
	return true
}

// RemoveStmts deletes every statement whose id is in ids and returns how
// many were removed. Statements nested in a removed one are not counted.
func RemoveStmts(root Node, ids map[int]bool) int {
	removed := 0
	Inspect(root, func(n Node) bool {
		b, ok := n.(*Block)
		if !ok {
			return true
		}
		kept := b.Stmts[:0]
		for _, s := range b.Stmts {
			if ids[s.NodeID()] {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		for i := len(kept); i < len(b.Stmts); i++ {
			b.Stmts[i] = nil
		}
		b.Stmts = kept
		return true
	})
	return removed
}

// ReplaceExpr substitutes repl for the expression with the given id.
func ReplaceExpr(root Node, id int, repl Expression) bool {
	done := false
	Inspect(root, func(n Node) bool {
		if done {
			return false
		}
		for _, slot := range exprSlots(n) {
			if (*slot).NodeID() == id {
				*slot = repl
				done = true
				return false
			}
		}
		return true
	})
	return done
}

// FindSlot returns the field holding the expression with the given id
// and the node that owns it.
func FindSlot(root Node, id int) (*Expression, Node) {
	var (
		found  *Expression
		parent Node
	)
	Inspect(root, func(n Node) bool {
		if found != nil {
			return false
		}
		for _, slot := range exprSlots(n) {
			if (*slot).NodeID() == id {
				found, parent = slot, n
				return false
			}
		}
		return true
	})
	return found, parent
}

// RewriteExprs calls fn on every expression slot in pre-order. fn may
// replace *slot; the replacement's children are visited next.
func RewriteExprs(root Node, fn func(slot *Expression)) {
	Inspect(root, func(n Node) bool {
		for _, slot := range exprSlots(n) {
			fn(slot)
		}
		return true
	})
}

// EnclosingFunc returns the function whose body contains id, or nil when
// the node lives in Main or a static initializer.
func EnclosingFunc(p *Program, id int) *FuncDecl {
	for _, f := range p.AllFuncs() {
		if f.ID == id || Find(f.Body, id) != nil {
			return f
		}
	}
	return nil
}

// AssignIDs numbers every node of p from 1 in pre-order.
func AssignIDs(p *Program) {
	next := 1
	Inspect(p, func(n Node) bool {
		n.setID(next)
		next++
		return true
	})
	for _, t := range p.Types {
		for _, s := range t.Sigs {
			s.ID = next
			next++
		}
	}
}

// FillIDs numbers the nodes that have no id yet, keeping existing ids.
func FillIDs(p *Program) {
	maxID := 0
	Inspect(p, func(n Node) bool {
		maxID = max(maxID, n.NodeID())
		return true
	})
	for _, t := range p.Types {
		for _, s := range t.Sigs {
			maxID = max(maxID, s.ID)
		}
	}
	next := maxID + 1
	Inspect(p, func(n Node) bool {
		if n.NodeID() == 0 {
			n.setID(next)
			next++
		}
		return true
	})
	for _, t := range p.Types {
		for _, s := range t.Sigs {
			if s.ID == 0 {
				s.ID = next
				next++
			}
		}
	}
}

// Size counts the nodes of n.
func Size(n Node) int {
	count := 0
	Inspect(n, func(Node) bool {
		count++
		return true
	})
	if p, ok := n.(*Program); ok {
		for _, t := range p.Types {
			count += len(t.Sigs)
		}
	}
	return count
}

// CountIdents counts references to name under n.
func CountIdents(n Node, name string) int {
	count := 0
	Inspect(n, func(x Node) bool {
		if id, ok := x.(*Ident); ok && id.Name == name {
			count++
		}
		return true
	})
	return count
}

// Calls returns every call to the function or method named name, or
// every call when name is empty.
func Calls(n Node, name string) []*Call {
	var out []*Call
	Inspect(n, func(x Node) bool {
		if c, ok := x.(*Call); ok && (name == "" || c.Func == name) {
			out = append(out, c)
		}
		return true
	})
	return out
}
