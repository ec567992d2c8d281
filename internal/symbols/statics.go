package symbols

import (
	"fmt"

	"github.com/funvibe/diffsmith/internal/ast"
	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/typesystem"
)

// Statics is the program-wide pool of static fields.
type Statics struct {
	Fields  []*ast.StaticField
	symbols []*Symbol
}

func NewStatics() *Statics {
	return &Statics{}
}

// Add declares a new static of type t initialized with init.
func (s *Statics) Add(t typesystem.Type, init ast.Expression) *Symbol {
	name := fmt.Sprintf("%s%d", config.StaticPrefix, len(s.Fields))
	s.Fields = append(s.Fields, &ast.StaticField{Name: name, Type: t, Init: init})
	sym := &Symbol{Name: name, Type: t, Kind: StaticSymbol, EscapeRank: Infinity}
	s.symbols = append(s.symbols, sym)
	return sym
}

// Symbols returns the statics in declaration order.
func (s *Statics) Symbols() []*Symbol {
	return s.symbols
}
