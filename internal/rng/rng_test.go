package rng

import (
	"testing"
)

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("step %d: %d != %d", i, x, y)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same > 1 {
		t.Fatalf("streams for different seeds overlap in %d positions", same)
	}
}

func TestIntnBounds(t *testing.T) {
	r := New(7)
	seen := make([]bool, 5)
	for i := 0; i < 1000; i++ {
		v := r.Intn(5)
		if v < 0 || v >= 5 {
			t.Fatalf("Intn(5) = %d", v)
		}
		seen[v] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("value %d never produced", i)
		}
	}
}

func TestFlipExtremes(t *testing.T) {
	r := New(3)
	for i := 0; i < 100; i++ {
		if r.Flip(0) {
			t.Fatal("Flip(0) returned true")
		}
		if !r.Flip(1) {
			t.Fatal("Flip(1) returned false")
		}
	}
}

func TestGeometricRespectsBounds(t *testing.T) {
	tests := []struct {
		name string
		g    Geometric
		lo   int
		hi   int
	}{
		{"default cap", Geometric{P: 0.01, Min: 2}, 2, 2 + geometricCap},
		{"explicit max", Geometric{P: 0.1, Min: 1, Max: 4}, 1, 4},
		{"always succeed", Geometric{P: 1, Min: 3}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(11)
			for i := 0; i < 500; i++ {
				v := tt.g.Sample(r)
				if v < tt.lo || v > tt.hi {
					t.Fatalf("sample %d outside [%d, %d]", v, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestUniformInclusive(t *testing.T) {
	r := New(5)
	u := Uniform{Min: 2, Max: 4}
	seen := map[int]bool{}
	for i := 0; i < 300; i++ {
		seen[u.Sample(r)] = true
	}
	for v := 2; v <= 4; v++ {
		if !seen[v] {
			t.Errorf("value %d never sampled", v)
		}
	}
	if len(seen) != 3 {
		t.Errorf("sampled values %v outside range", seen)
	}
}

func TestTableSkipsZeroWeights(t *testing.T) {
	tab := NewTable(Entry[string]{"a", 1}, Entry[string]{"never", 0}, Entry[string]{"b", 3})
	if tab.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tab.Len())
	}
	r := New(9)
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[tab.Sample(r)]++
	}
	if counts["never"] != 0 {
		t.Fatal("zero-weight row sampled")
	}
	if counts["b"] < 2*counts["a"] {
		t.Errorf("weights not respected: %v", counts)
	}
}

func TestSampleFiltered(t *testing.T) {
	tab := NewTable(Entry[int]{1, 1}, Entry[int]{2, 1}, Entry[int]{3, 1})
	r := New(1)
	for i := 0; i < 100; i++ {
		v, ok := tab.SampleFiltered(r, func(x int) bool { return x != 2 })
		if !ok || v == 2 {
			t.Fatalf("got %d, %v", v, ok)
		}
	}
	if _, ok := tab.SampleFiltered(r, func(int) bool { return false }); ok {
		t.Fatal("expected no candidate")
	}
}

func TestDecay(t *testing.T) {
	if Decay(0.5, 0) != 1 {
		t.Error("Decay at depth 0 must be 1")
	}
	if got := Decay(0.5, 3); got != 0.125 {
		t.Errorf("Decay(0.5, 3) = %v", got)
	}
}
