package reducer

import (
	"context"

	"github.com/funvibe/diffsmith/internal/ast"
)

// bodies returns the root block of every function followed by Main.
func bodies(p *ast.Program) []*ast.Block {
	var out []*ast.Block
	for _, f := range p.AllFuncs() {
		out = append(out, f.Body)
	}
	if p.Main != nil {
		out = append(out, p.Main)
	}
	return out
}

// removable lists the direct children of b that coarse removal may
// delete: everything except declarations and returns.
func removable(b *ast.Block) []int {
	var ids []int
	for _, s := range b.Stmts {
		switch s.(type) {
		case *ast.VarDecl, *ast.Return:
			continue
		}
		ids = append(ids, s.NodeID())
	}
	return ids
}

// coarse deletes runs of statements from each body. It first tries all
// of them, then binary searches for the longest removable prefix and
// the longest removable suffix of what is left, so a body of n
// statements costs O(log n) predicate calls per direction.
func (r *Reducer) coarse(ctx context.Context) error {
	for i := range bodies(r.cur) {
		// Coarse removal never deletes functions, so indices are stable.
		if err := r.removeRuns(ctx, removable(bodies(r.cur)[i])); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reducer) removeIDs(ctx context.Context, ids []int) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	cand := r.cur.Clone()
	ast.RemoveStmts(cand, set)
	return r.try(ctx, cand, "coarse")
}

func (r *Reducer) removeRuns(ctx context.Context, ids []int) error {
	if ok, err := r.removeIDs(ctx, ids); err != nil || ok {
		return err
	}

	// Removing ids[:lo] is known to work and ids[:hi] known not to.
	lo, hi := 0, len(ids)
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		ok, err := r.removeIDs(ctx, ids[:mid])
		if err != nil {
			return err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}

	rest := ids[lo:]
	lo, hi = 0, len(rest)
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		ok, err := r.removeIDs(ctx, rest[len(rest)-mid:])
		if err != nil {
			return err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return nil
}
