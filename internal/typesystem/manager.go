package typesystem

import (
	"fmt"

	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/rng"
)

// Manager owns the types of one program and samples from them.
type Manager struct {
	opts *config.Options
	r    *rng.Rand

	Aggregates []*AggregateType
	Interfaces []*InterfaceType
	Vectors    []*VectorType
	Ops        *OperatorTable
}

func NewManager(r *rng.Rand, opts *config.Options) *Manager {
	m := &Manager{opts: opts, r: r}
	if opts.Vectors {
		for _, w := range VectorWidths {
			for _, k := range NumericKinds() {
				m.Vectors = append(m.Vectors, &VectorType{Width: w, Elem: k})
			}
		}
	}
	m.Ops = NewOperatorTable(m.Vectors)
	return m
}

// GenerateTypes synthesizes interfaces and aggregates. Every interface
// that survives has at least one implementer.
func (m *Manager) GenerateTypes() {
	numIfaces := m.opts.InterfaceTypeCount.Sample(m.r)
	for i := 0; i < numIfaces; i++ {
		m.Interfaces = append(m.Interfaces, &InterfaceType{Name: fmt.Sprintf("%s%d", config.InterfacePrefix, i)})
	}

	numAggs := m.opts.AggregateTypeCount.Sample(m.r)
	for i := 0; i < numAggs; i++ {
		isClass := m.r.Flip(m.opts.ClassProb)
		prefix := config.StructPrefix
		if isClass {
			prefix = config.ClassPrefix
		}
		n := m.opts.AggregateFieldCount.Sample(m.r)
		fields := make([]Field, n)
		for f := range fields {
			fields[f] = Field{Name: fmt.Sprintf("%s%d", config.FieldPrefix, f), Type: m.pickFieldType()}
		}
		agg := NewAggregate(fmt.Sprintf("%s%d", prefix, i), isClass, fields)
		for _, iface := range m.Interfaces {
			if m.r.Flip(m.opts.ImplementInterfaceProb) {
				agg.Interfaces = append(agg.Interfaces, iface)
			}
		}
		m.Aggregates = append(m.Aggregates, agg)
	}

	if len(m.Aggregates) == 0 {
		m.Interfaces = nil
		return
	}
	for _, iface := range m.Interfaces {
		if len(m.Implementers(iface)) == 0 {
			agg := rng.Pick(m.r, m.Aggregates)
			agg.Interfaces = append(agg.Interfaces, iface)
		}
	}
}

func (m *Manager) pickFieldType() Type {
	if len(m.Aggregates) == 0 || m.r.Flip(m.opts.PrimitiveFieldProb) {
		return rng.Pick(m.r, primitives)
	}
	return rng.Pick(m.r, m.Aggregates)
}

// Implementers returns the aggregates declaring iface, in declaration order.
func (m *Manager) Implementers(iface *InterfaceType) []*AggregateType {
	var out []*AggregateType
	for _, a := range m.Aggregates {
		if a.Implements(iface) {
			out = append(out, a)
		}
	}
	return out
}

// PickType samples uniformly over the primitive and aggregate types and
// wraps the result as a reference with probability refProb.
func (m *Manager) PickType(refProb float64) Type {
	n := len(primitives) + len(m.Aggregates)
	i := m.r.Intn(n)
	var t Type
	if i < len(primitives) {
		t = primitives[i]
	} else {
		t = m.Aggregates[i-len(primitives)]
	}
	if m.r.Flip(refProb) {
		return NewRef(t)
	}
	return t
}

// PickValueType extends PickType with the arrays, vectors and interfaces
// that locals, parameters and return values may carry.
func (m *Manager) PickValueType() Type {
	switch {
	case m.r.Flip(m.opts.ArrayTypeProb):
		return m.PickArrayType()
	case len(m.Vectors) > 0 && m.r.Flip(m.opts.VectorTypeProb):
		return rng.Pick(m.r, m.Vectors)
	case len(m.Interfaces) > 0 && m.r.Flip(m.opts.InterfaceLocalProb):
		return rng.Pick(m.r, m.Interfaces)
	}
	return m.PickType(0)
}

// PickArrayType builds a rectangular array. Its elements are arrays again
// with JaggedArrayProb, at most MaxJaggedDepth levels down.
func (m *Manager) PickArrayType() *ArrayType {
	return m.pickArrayType(m.opts.MaxJaggedDepth)
}

func (m *Manager) pickArrayType(depth int) *ArrayType {
	var elem Type
	if depth > 0 && m.r.Flip(m.opts.JaggedArrayProb) {
		elem = m.pickArrayType(depth - 1)
	} else {
		elem = m.PickType(0)
	}
	return &ArrayType{Elem: elem, Rank: m.opts.ArrayRank.Sample(m.r)}
}

// ArrayShape chooses dimension lengths whose product stays within budget,
// retrying a bounded number of times before settling on all ones.
func (m *Manager) ArrayShape(rank, budget int) []int {
	dims := make([]int, rank)
	for attempt := 0; attempt < m.opts.ArrayShapeRetries; attempt++ {
		total := 1
		for i := range dims {
			dims[i] = m.opts.ArrayDimension.Sample(m.r)
			total *= dims[i]
		}
		if total <= budget {
			return dims
		}
	}
	for i := range dims {
		dims[i] = 1
	}
	return dims
}

// LiteralStyles builds the constant style table from the options.
func LiteralStyles(w config.LiteralWeights) *rng.Table[LiteralStyle] {
	return rng.NewTable(
		rng.Entry[LiteralStyle]{Value: StyleZero, Weight: w.Zero},
		rng.Entry[LiteralStyle]{Value: StyleOne, Weight: w.One},
		rng.Entry[LiteralStyle]{Value: StyleMinusOne, Weight: w.MinusOne},
		rng.Entry[LiteralStyle]{Value: StyleMin, Weight: w.Min},
		rng.Entry[LiteralStyle]{Value: StyleMax, Weight: w.Max},
		rng.Entry[LiteralStyle]{Value: StyleSmall, Weight: w.Small},
		rng.Entry[LiteralStyle]{Value: StyleRandom, Weight: w.Random},
	)
}
