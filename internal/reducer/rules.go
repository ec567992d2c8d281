package reducer

import (
	"sort"

	"github.com/funvibe/diffsmith/internal/ast"
)

// Target is the kind of node a rule rewrites.
type Target int

const (
	TargetStatement Target = iota
	TargetExpression
	TargetMember
)

func (t Target) String() string {
	switch t {
	case TargetStatement:
		return "statement"
	case TargetExpression:
		return "expression"
	}
	return "member"
}

// Rule proposes smaller versions of a program around one node. Each
// candidate is a modified clone of p; p itself is never changed.
type Rule struct {
	Name     string
	Priority int
	// Late rules only run once the other rules have reached a fixpoint.
	Late      bool
	Target    Target
	Transform func(p *ast.Program, id int) []*ast.Program
}

// Registry lists every rule. Lower priorities are tried first.
var Registry = []Rule{
	{Name: "remove-statement", Priority: 10, Target: TargetStatement, Transform: removeStatement},
	{Name: "remove-unused-local", Priority: 11, Target: TargetStatement, Transform: removeUnusedLocal},
	{Name: "inline-local", Priority: 12, Target: TargetStatement, Transform: inlineLocal},
	{Name: "shrink-local-initializer", Priority: 13, Target: TargetStatement, Transform: shrinkLocalInit},
	{Name: "flatten-block", Priority: 20, Target: TargetStatement, Transform: flattenBlock},
	{Name: "flatten-if", Priority: 21, Target: TargetStatement, Transform: flattenIf},
	{Name: "flatten-try", Priority: 22, Target: TargetStatement, Transform: flattenTry},
	{Name: "flatten-loop", Priority: 23, Target: TargetStatement, Transform: flattenLoop},
	{Name: "inline-void-call", Priority: 30, Late: true, Target: TargetStatement, Transform: inlineVoidCall},

	{Name: "replace-with-literal", Priority: 10, Target: TargetExpression, Transform: replaceWithLiteral},
	{Name: "shrink-literal", Priority: 11, Target: TargetExpression, Transform: shrinkLiteral},
	{Name: "extract-operand", Priority: 12, Target: TargetExpression, Transform: extractOperand},
	{Name: "inline-call", Priority: 30, Late: true, Target: TargetExpression, Transform: inlineCall},

	{Name: "remove-unused-function", Priority: 10, Target: TargetMember, Transform: removeUnusedFunction},
	{Name: "remove-unused-static", Priority: 11, Target: TargetMember, Transform: removeUnusedStatic},
	{Name: "remove-unused-type", Priority: 12, Target: TargetMember, Transform: removeUnusedType},
	{Name: "remove-argument", Priority: 20, Target: TargetMember, Transform: removeArgument},
	{Name: "demote-method", Priority: 30, Late: true, Target: TargetMember, Transform: demoteMethod},
	{Name: "remove-by-ref", Priority: 31, Late: true, Target: TargetMember, Transform: removeByRef},
}

// byTarget holds Registry split by target and sorted by priority.
var byTarget = func() map[Target][]Rule {
	m := map[Target][]Rule{}
	for _, r := range Registry {
		m[r.Target] = append(m[r.Target], r)
	}
	for _, rules := range m {
		sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	}
	return m
}()

// rulesFor returns the rules for t, leaving out late ones unless late.
func rulesFor(t Target, late bool) []Rule {
	var out []Rule
	for _, r := range byTarget[t] {
		if r.Late && !late {
			continue
		}
		out = append(out, r)
	}
	return out
}

// edit clones p and applies fn to the clone. It returns nil when fn
// reports that the edit does not apply.
func edit(p *ast.Program, fn func(c *ast.Program) bool) *ast.Program {
	c := p.Clone()
	if !fn(c) {
		return nil
	}
	return c
}

// collect appends the non-nil candidates.
func collect(cands ...*ast.Program) []*ast.Program {
	var out []*ast.Program
	for _, c := range cands {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
