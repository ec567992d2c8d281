package store

import (
	"context"
	"log/slog"

	"github.com/funvibe/diffsmith/internal/pipeline"
)

// Processor is the pipeline stage that records interesting failures.
// Sessions without a run id get one on first use.
type Processor struct {
	Store *Store
}

func (p *Processor) Process(ctx context.Context, pc *pipeline.Context) *pipeline.Context {
	if len(pc.Errors) > 0 || !pc.Failure.Interesting() {
		return pc
	}
	if pc.RunID == "" {
		id, err := p.Store.BeginRun(ctx, pc.Seed)
		if err != nil {
			pc.Fail(err)
			return pc
		}
		pc.RunID = id
	}
	f := Finding{
		RunID:      pc.RunID,
		Seed:       pc.Seed,
		Kind:       pc.Failure.Kind.String(),
		Detail:     pc.Failure.Detail,
		Variant:    pc.Failure.Variant,
		Divergence: pc.Failure.Divergence,
		Source:     pc.Source,
	}
	if r := pc.Reduction; r != nil {
		f.OriginalSize = r.OriginalSize
		f.ReducedSize = r.ReducedSize
		f.ReducedSource = pc.ReducedSource
	}
	id, err := p.Store.RecordFinding(ctx, f)
	if err != nil {
		pc.Fail(err)
		return pc
	}
	pc.Count("findings", 1)
	pc.Log().Info("recorded finding", slog.String("id", id), slog.String("seed", pc.Seed), slog.String("outcome", pc.Failure.String()))
	return pc
}
