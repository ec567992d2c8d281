package ast

import (
	"testing"

	ts "github.com/funvibe/diffsmith/internal/typesystem"
)

func sampleProgram() *Program {
	intT := ts.Primitive(ts.Int)
	local := &Ident{Name: "var0", Type: intT}
	body := &Block{Stmts: []Statement{
		&VarDecl{Name: "var0", Type: intT, Value: IntLiteral(ts.Int, 5)},
		&Assign{Target: &Ident{Name: "var0", Type: intT}, Op: ts.AddAssign, Value: &Binary{
			Op: ts.Mul, Left: IntLiteral(ts.Int, 2), Right: &Ident{Name: "var0", Type: intT}, Type: intT,
		}},
		&If{Cond: &Binary{Op: ts.Lt, Left: local, Right: IntLiteral(ts.Int, 3), Type: ts.Primitive(ts.Bool)},
			Then: &Block{Stmts: []Statement{&Checksum{Site: 0, Value: &Ident{Name: "var0", Type: intT}}}}},
		&Return{},
	}}
	p := &Program{
		Funcs: []*FuncDecl{{Name: "M0", Body: body}},
		Main:  &Block{Stmts: []Statement{&ExprStmt{Expr: &Call{Func: "M0"}}}},
	}
	AssignIDs(p)
	return p
}

func TestAssignIDsUnique(t *testing.T) {
	p := sampleProgram()
	seen := map[int]bool{}
	Inspect(p, func(n Node) bool {
		if n.NodeID() == 0 || seen[n.NodeID()] {
			t.Fatalf("duplicate or missing id %d on %T", n.NodeID(), n)
		}
		seen[n.NodeID()] = true
		return true
	})
	if p.ID != 1 {
		t.Errorf("program id = %d, want 1", p.ID)
	}
}

func TestCloneIsDeepAndKeepsIDs(t *testing.T) {
	p := sampleProgram()
	c := p.Clone()
	if Size(c) != Size(p) {
		t.Fatalf("clone size %d, original %d", Size(c), Size(p))
	}
	assign := p.Funcs[0].Body.Stmts[1]
	if Find(c, assign.NodeID()) == nil {
		t.Fatal("clone lost node id")
	}
	if c.ID != p.ID {
		t.Errorf("clone program id = %d, want %d", c.ID, p.ID)
	}
	if !ReplaceStmt(c, assign.NodeID()) {
		t.Fatal("ReplaceStmt on clone failed")
	}
	if len(p.Funcs[0].Body.Stmts) != 4 {
		t.Fatal("editing the clone changed the original")
	}
	if len(c.Funcs[0].Body.Stmts) != 3 {
		t.Fatalf("clone has %d statements, want 3", len(c.Funcs[0].Body.Stmts))
	}
}

func TestRemoveStmtsSkipsNested(t *testing.T) {
	p := sampleProgram()
	ifStmt := p.Funcs[0].Body.Stmts[2].(*If)
	nested := ifStmt.Then.Stmts[0]
	n := RemoveStmts(p, map[int]bool{ifStmt.ID: true, nested.NodeID(): true})
	if n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if Find(p, nested.NodeID()) != nil {
		t.Fatal("nested statement survived removal of its parent")
	}
}

func TestReplaceExprAndFillIDs(t *testing.T) {
	p := sampleProgram()
	bin := p.Funcs[0].Body.Stmts[1].(*Assign).Value.(*Binary)
	repl := IntLiteral(ts.Int, 1)
	if !ReplaceExpr(p, bin.ID, repl) {
		t.Fatal("ReplaceExpr failed")
	}
	if repl.ID != 0 {
		t.Fatal("replacement should start without id")
	}
	FillIDs(p)
	if repl.ID == 0 || Find(p, repl.ID) != repl {
		t.Fatal("FillIDs did not number the replacement")
	}
}

func TestEnclosingFuncAndCalls(t *testing.T) {
	p := sampleProgram()
	ret := p.Funcs[0].Body.Stmts[3]
	if f := EnclosingFunc(p, ret.NodeID()); f == nil || f.Name != "M0" {
		t.Fatalf("EnclosingFunc = %v", f)
	}
	if f := EnclosingFunc(p, p.Main.Stmts[0].NodeID()); f != nil {
		t.Fatalf("statement in Main attributed to %s", f.Name)
	}
	if got := len(Calls(p, "M0")); got != 1 {
		t.Fatalf("Calls = %d, want 1", got)
	}
	if got := CountIdents(p, "var0"); got != 4 {
		t.Fatalf("CountIdents = %d, want 4", got)
	}
}

func TestFindSlot(t *testing.T) {
	p := sampleProgram()
	assign := p.Funcs[0].Body.Stmts[1].(*Assign)
	bin := assign.Value.(*Binary)
	slot, parent := FindSlot(p, bin.ID)
	if slot == nil || parent != Node(assign) {
		t.Fatalf("FindSlot = %v, %v", slot, parent)
	}
	*slot = IntLiteral(ts.Int, 2)
	if _, ok := assign.Value.(*Literal); !ok {
		t.Error("writing through the slot did not replace the value")
	}
	if slot, _ := FindSlot(p, -1); slot != nil {
		t.Error("found a slot for a missing id")
	}
}
