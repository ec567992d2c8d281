package rng

// geometricCap bounds a geometric sample when no explicit maximum is set.
const geometricCap = 64

// Distribution samples a non-negative integer.
type Distribution interface {
	Sample(r *Rand) int
}

// Geometric counts failed trials before the first success, offset by Min.
// Sampling uses repeated Bernoulli trials, so no transcendental math is
// involved and results are identical across platforms.
type Geometric struct {
	P   float64 `yaml:"p"`
	Min int     `yaml:"min"`
	Max int     `yaml:"max,omitempty"`
}

func (g Geometric) Sample(r *Rand) int {
	limit := g.Max
	if limit < g.Min || limit == 0 {
		limit = g.Min + geometricCap
	}
	n := g.Min
	for n < limit && !r.Flip(g.P) {
		n++
	}
	return n
}

// Uniform samples an integer in [Min, Max].
type Uniform struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (u Uniform) Sample(r *Rand) int {
	return r.IntRange(u.Min, u.Max)
}

// Decay returns base^depth, the acceptance probability of a recursive
// construct at the given nesting depth.
func Decay(base float64, depth int) float64 {
	p := 1.0
	for i := 0; i < depth; i++ {
		p *= base
	}
	return p
}

// Entry is a weighted table row.
type Entry[T any] struct {
	Value  T
	Weight float64
}

// Table samples values proportionally to their weights.
// Rows with a non-positive weight are dropped.
type Table[T any] struct {
	entries []Entry[T]
	total   float64
}

func NewTable[T any](entries ...Entry[T]) *Table[T] {
	t := &Table[T]{}
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		t.entries = append(t.entries, e)
		t.total += e.Weight
	}
	return t
}

// Len returns the number of rows with positive weight.
func (t *Table[T]) Len() int { return len(t.entries) }

// Values returns the table rows in insertion order.
func (t *Table[T]) Values() []T {
	out := make([]T, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Value
	}
	return out
}

// Sample draws one value. It panics on an empty table.
func (t *Table[T]) Sample(r *Rand) T {
	if len(t.entries) == 0 {
		panic("rng: sampling from empty table")
	}
	x := r.Float64() * t.total
	for _, e := range t.entries {
		if x < e.Weight {
			return e.Value
		}
		x -= e.Weight
	}
	return t.entries[len(t.entries)-1].Value
}

// SampleFiltered draws among the rows accepted by keep. The second result
// is false when no row is accepted.
func (t *Table[T]) SampleFiltered(r *Rand, keep func(T) bool) (T, bool) {
	var kept []Entry[T]
	total := 0.0
	for _, e := range t.entries {
		if keep(e.Value) {
			kept = append(kept, e)
			total += e.Weight
		}
	}
	if len(kept) == 0 {
		var zero T
		return zero, false
	}
	x := r.Float64() * total
	for _, e := range kept {
		if x < e.Weight {
			return e.Value, true
		}
		x -= e.Weight
	}
	return kept[len(kept)-1].Value, true
}
