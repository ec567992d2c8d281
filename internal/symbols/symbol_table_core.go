package symbols

import (
	"math"

	"github.com/funvibe/diffsmith/internal/typesystem"
)

type SymbolKind int

const (
	LocalSymbol    SymbolKind = iota
	ParamSymbol               // By-value or by-reference parameter
	ReceiverSymbol            // The implicit "this" of a method body
	StaticSymbol              // Static field of the program class
	LoopSymbol                // Induction variable of a for loop
)

// Escape ranks. A reference may be stored into or returned through a
// location only if its rank is at least that location's rank.
const (
	// Infinity is the rank of heap and static storage.
	Infinity = math.MaxInt32
	// MinRank accepts any location.
	MinRank = math.MinInt32
	// ReturnRank is the minimum rank of a by-ref return.
	ReturnRank = 1
)

// Symbol is a named value visible in a scope.
type Symbol struct {
	Name       string
	Type       typesystem.Type // Referenced type for ref locals and ref params
	Kind       SymbolKind
	IsRef      bool // Ref local or ref parameter
	EscapeRank int
	OnStack    bool // Storage is a local slot of the current frame
	ReadOnly   bool // Neither the symbol nor its struct fields may be written
	FixedRoot  bool // The root may not be reassigned but struct fields may
	// Aliases is the variable a ref local points into, when known.
	Aliases *Symbol
}

// Frame holds the symbols declared by one block.
type Frame struct {
	Depth   int
	Symbols []*Symbol
}

// Scope is the stack of frames of the function body being generated.
// The parameter frame has depth 0 and the root block depth 1.
type Scope struct {
	frames []*Frame
}

func NewScope() *Scope {
	return &Scope{}
}

// Push opens a frame one level deeper than the current one.
func (s *Scope) Push() *Frame {
	f := &Frame{Depth: len(s.frames)}
	s.frames = append(s.frames, f)
	return f
}

// Pop closes the innermost frame.
func (s *Scope) Pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// Current returns the innermost frame.
func (s *Scope) Current() *Frame {
	return s.frames[len(s.frames)-1]
}

// LocalRank is the escape rank of a local declared in the current frame.
// Deeper blocks get lower ranks.
func (s *Scope) LocalRank() int {
	return -s.Current().Depth
}

// Declare adds sym to the current frame.
func (s *Scope) Declare(sym *Symbol) {
	f := s.Current()
	f.Symbols = append(f.Symbols, sym)
}

// DeclareLocal declares a by-value local in the current frame.
func (s *Scope) DeclareLocal(name string, t typesystem.Type) *Symbol {
	sym := &Symbol{Name: name, Type: t, Kind: LocalSymbol, EscapeRank: s.LocalRank(), OnStack: true}
	s.Declare(sym)
	return sym
}

// DeclareRefLocal declares a ref local aliasing a location of the given
// rank inside aliases. The alias inherits the rank of its target.
func (s *Scope) DeclareRefLocal(name string, t typesystem.Type, rank int, onStack bool, aliases *Symbol) *Symbol {
	sym := &Symbol{Name: name, Type: t, Kind: LocalSymbol, IsRef: true, EscapeRank: rank, OnStack: onStack, Aliases: aliases}
	s.Declare(sym)
	return sym
}

// DeclareParam declares a parameter in the current frame. By-value
// parameters have rank 0, by-reference ones rank ReturnRank.
func (s *Scope) DeclareParam(name string, t typesystem.Type) *Symbol {
	sym := &Symbol{Name: name, Kind: ParamSymbol}
	if r, ok := t.(*typesystem.RefType); ok {
		sym.Type = r.Inner
		sym.IsRef = true
		sym.EscapeRank = ReturnRank
	} else {
		sym.Type = t
		sym.OnStack = true
	}
	s.Declare(sym)
	return sym
}

// DeclareReceiver declares "this" for a method of agg.
func (s *Scope) DeclareReceiver(name string, agg *typesystem.AggregateType) *Symbol {
	sym := &Symbol{Name: name, Type: agg, Kind: ReceiverSymbol, FixedRoot: true}
	if agg.IsClass {
		sym.EscapeRank = Infinity
	} else {
		sym.OnStack = true
	}
	s.Declare(sym)
	return sym
}

// DeclareLoopVar declares a read-only int induction variable.
func (s *Scope) DeclareLoopVar(name string) *Symbol {
	sym := &Symbol{
		Name: name, Type: typesystem.Primitive(typesystem.Int), Kind: LoopSymbol,
		EscapeRank: s.LocalRank(), OnStack: true, ReadOnly: true,
	}
	s.Declare(sym)
	return sym
}

// Symbols returns every visible symbol, outermost frame first.
func (s *Scope) Symbols() []*Symbol {
	var out []*Symbol
	for _, f := range s.frames {
		out = append(out, f.Symbols...)
	}
	return out
}

// Lookup finds a visible symbol by name.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		for _, sym := range s.frames[i].Symbols {
			if sym.Name == name {
				return sym, true
			}
		}
	}
	return nil, false
}
