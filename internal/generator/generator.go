// Package generator synthesizes random, well-typed programs that are free
// of undefined behavior and deterministic for a given seed.
package generator

import (
	"fmt"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/rng"
	"github.com/funvibe/diffsmith/internal/symbols"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// maxKindAttempts bounds rejection sampling of statement and expression
// kinds before falling back to a construct that always succeeds.
const maxKindAttempts = 16

// Stats counts what a generation run produced.
type Stats struct {
	Functions     int
	Statements    int
	ChecksumSites int
	Fallbacks     int
}

// Generator builds one program from one seed. It is not safe for
// concurrent use; create one per seed.
type Generator struct {
	seed    Seed
	opts    config.Options
	r       *rng.Rand
	types   *typesystem.Manager
	statics *symbols.Statics
	funcs   []*funcGen
	program *ast.Program

	aggDecls   map[*typesystem.AggregateType]*ast.TypeDecl
	ifaceDecls map[*typesystem.InterfaceType]*ast.TypeDecl

	stmtKinds     *rng.Table[stmtKind]
	exprKinds     *rng.Table[exprKind]
	binaryOps     *rng.Table[typesystem.BinaryOp]
	literalStyles *rng.Table[typesystem.LiteralStyle]

	nextLocal int
	nextLoop  int
	nextSite  int
	stats     Stats
}

// New validates opts with the seed's tags applied and prepares a
// generator.
func New(seed Seed, opts config.Options) (*Generator, error) {
	opts = opts.WithTags(seed.Vectors, seed.Unsafe)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		seed:       seed,
		opts:       opts,
		r:          rng.New(seed.Value),
		statics:    symbols.NewStatics(),
		aggDecls:   map[*typesystem.AggregateType]*ast.TypeDecl{},
		ifaceDecls: map[*typesystem.InterfaceType]*ast.TypeDecl{},
	}
	g.types = typesystem.NewManager(g.r, &g.opts)
	g.stmtKinds = statementTable(opts.Statements)
	g.exprKinds = expressionTable(opts.Expressions)
	g.binaryOps = binaryOpTable(opts.BinaryOperators)
	g.literalStyles = typesystem.LiteralStyles(opts.Literals)
	return g, nil
}

// Generate is a convenience for New followed by Program.
func Generate(seed Seed, opts config.Options) (*ast.Program, error) {
	g, err := New(seed, opts)
	if err != nil {
		return nil, err
	}
	return g.Program(), nil
}

// Program synthesizes the program. It must be called at most once.
func (g *Generator) Program() *ast.Program {
	g.program = &ast.Program{Vectors: g.opts.Vectors, Unsafe: g.opts.Unsafe}
	g.types.GenerateTypes()
	for _, iface := range g.types.Interfaces {
		d := &ast.TypeDecl{Interface: iface}
		g.ifaceDecls[iface] = d
		g.program.Types = append(g.program.Types, d)
	}
	for _, agg := range g.types.Aggregates {
		d := &ast.TypeDecl{Aggregate: agg}
		g.aggDecls[agg] = d
		g.program.Types = append(g.program.Types, d)
	}

	entry := g.newFunction(nil, false)

	main := &ast.Block{Stmts: []ast.Statement{&ast.ExprStmt{Expr: &ast.Call{Func: entry.name}}}}
	for _, sym := range g.statics.Symbols() {
		for _, p := range symbols.Leaves(sym) {
			main.Stmts = append(main.Stmts, &ast.Checksum{Site: g.site(), Value: p.Expr()})
		}
	}
	g.program.Main = main
	g.program.Statics = g.statics.Fields
	ast.AssignIDs(g.program)
	return g.program
}

// Stats reports counters of the last Program call.
func (g *Generator) Stats() Stats {
	return g.stats
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() Seed {
	return g.seed
}

func (g *Generator) localName() string {
	name := fmt.Sprintf("%s%d", config.LocalPrefix, g.nextLocal)
	g.nextLocal++
	return name
}

func (g *Generator) loopName() string {
	name := fmt.Sprintf("%s%d", config.LoopVarPrefix, g.nextLoop)
	g.nextLoop++
	return name
}

func (g *Generator) site() int {
	id := g.nextSite
	g.nextSite++
	g.stats.ChecksumSites++
	return id
}

// newStatic declares a static of type t initialized with a literal.
func (g *Generator) newStatic(t typesystem.Type) *symbols.Symbol {
	return g.statics.Add(t, g.genLiteral(t))
}
