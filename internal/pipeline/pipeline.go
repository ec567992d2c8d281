package pipeline

import (
	"context"
	"log/slog"
)

// Processor is one stage of a session.
type Processor interface {
	// Process returns the context for the next stage. A stage whose
	// inputs are missing passes pc through unchanged.
	Process(ctx context.Context, pc *Context) *Context
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, pc *Context) *Context

func (f ProcessorFunc) Process(ctx context.Context, pc *Context) *Context { return f(ctx, pc) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
	logger     *slog.Logger
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors, logger: slog.Default()}
}

// WithLogger sets the logger stages report through.
func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	p.logger = l
	return p
}

// Run executes the pipeline. Stages keep running after an error so that
// later ones (the findings store in particular) see what happened.
func (p *Pipeline) Run(ctx context.Context, initial *Context) *Context {
	pc := initial
	if pc.Logger == nil {
		pc.Logger = p.logger
	}
	for _, processor := range p.processors {
		if ctx.Err() != nil {
			pc.Fail(ctx.Err())
			break
		}
		pc = processor.Process(ctx, pc)
	}
	return pc
}
