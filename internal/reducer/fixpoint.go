package reducer

import (
	"context"

	"github.com/funvibe/diffsmith/internal/ast"
)

// nodeIDs lists the nodes of p that rules for t apply to.
func nodeIDs(p *ast.Program, t Target) []int {
	var ids []int
	switch t {
	case TargetStatement:
		ast.Inspect(p, func(n ast.Node) bool {
			if b, ok := n.(*ast.Block); ok {
				for _, s := range b.Stmts {
					ids = append(ids, s.NodeID())
				}
			}
			return true
		})
	case TargetExpression:
		ast.Inspect(p, func(n ast.Node) bool {
			if _, ok := n.(ast.Expression); ok {
				ids = append(ids, n.NodeID())
			}
			return true
		})
	case TargetMember:
		for _, td := range p.Types {
			ids = append(ids, td.ID)
			for _, m := range td.Methods {
				ids = append(ids, m.ID)
			}
		}
		for _, s := range p.Statics {
			ids = append(ids, s.ID)
		}
		for _, f := range p.Funcs {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// fixpoint runs the statement, expression and member passes until a
// whole round keeps nothing, then enables the late rules and repeats.
func (r *Reducer) fixpoint(ctx context.Context) error {
	late := false
	for {
		r.stats.Rounds++
		progress := false
		for _, t := range []Target{TargetStatement, TargetExpression, TargetMember} {
			p, err := r.pass(ctx, t, late)
			if err != nil {
				return err
			}
			progress = progress || p
		}
		if !progress {
			if late {
				return nil
			}
			late = true
		}
	}
}

// pass visits the nodes of one target in random order and tries every
// rule on each. After a kept candidate the visit order is rebuilt from
// the new program.
func (r *Reducer) pass(ctx context.Context, t Target, late bool) (bool, error) {
	rules := rulesFor(t, late)
	progress := false
	ids := r.shuffled(t)
	for i := 0; i < len(ids); i++ {
		kept, err := r.tryRules(ctx, rules, ids[i])
		if err != nil {
			return progress, err
		}
		if kept {
			progress = true
			ids = r.shuffled(t)
			i = -1
		}
	}
	return progress, nil
}

func (r *Reducer) shuffled(t Target) []int {
	ids := nodeIDs(r.cur, t)
	r.r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func (r *Reducer) tryRules(ctx context.Context, rules []Rule, id int) (bool, error) {
	for _, rule := range rules {
		for _, cand := range rule.Transform(r.cur, id) {
			ok, err := r.try(ctx, cand, rule.Name)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}
