package reducer

import (
	"context"
	"fmt"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
)

// collapse turns the reduced program into a standalone one that prints
// its checksummed values instead of reporting them to the runtime hook,
// then drops checksum statements one at a time. Every step is checked
// with the behavior check and rolled back if the divergence is gone.
func (r *Reducer) collapse(ctx context.Context) error {
	cand := r.cur.Clone()
	cand.Standalone = true
	ok, err := r.keepsBehavior(ctx, cand)
	if err != nil || !ok {
		return err
	}
	r.cur = cand

	var sites []int
	ast.Inspect(r.cur, func(n ast.Node) bool {
		if c, ok := n.(*ast.Checksum); ok {
			sites = append(sites, c.ID)
		}
		return true
	})
	for _, id := range sites {
		cand := r.cur.Clone()
		if !ast.ReplaceStmt(cand, id) {
			continue
		}
		ok, err := r.keepsBehavior(ctx, cand)
		if err != nil {
			return err
		}
		if ok {
			r.cur = cand
		}
	}
	r.curSize = ast.Size(r.cur)
	r.curText = prettyprinter.Print(r.cur)
	return nil
}

func (r *Reducer) keepsBehavior(ctx context.Context, cand *ast.Program) (bool, error) {
	r.stats.StandaloneSteps++
	ok, err := r.check.Diverges(ctx, prettyprinter.Print(cand))
	if err != nil {
		return false, fmt.Errorf("behavior check: %w", err)
	}
	if !ok {
		r.stats.RolledBack++
	}
	return ok, nil
}
