package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/pipeline"
	"github.com/funvibe/diffsmith/internal/prettyprinter"
)

// ProvenanceLine describes where a program came from.
func ProvenanceLine(seed string) string {
	return fmt.Sprintf("Generated by %s %s from seed %s", config.ToolName, config.Version, seed)
}

// Processor is the pipeline stage that turns the session seed into a
// program and its source text.
type Processor struct{}

func (Processor) Process(_ context.Context, pc *pipeline.Context) *pipeline.Context {
	seed, err := ParseSeed(pc.Seed)
	if err != nil {
		pc.Fail(err)
		return pc
	}
	g, err := New(seed, pc.Options)
	if err != nil {
		pc.Fail(fmt.Errorf("seed %s: %w", seed, err))
		return pc
	}
	p := g.Program()
	p.Header = []string{ProvenanceLine(seed.String())}

	pc.Seed = seed.String()
	pc.Program = p
	pc.Source = prettyprinter.Print(p)

	st := g.Stats()
	pc.Count("functions", st.Functions)
	pc.Count("statements", st.Statements)
	pc.Count("checksum_sites", st.ChecksumSites)
	pc.Count("fallbacks", st.Fallbacks)
	pc.Log().Debug("generated",
		slog.String("seed", pc.Seed),
		slog.Int("functions", st.Functions),
		slog.Int("statements", st.Statements),
		slog.Int("bytes", len(pc.Source)))
	return pc
}
