package typesystem

import (
	"math"

	"github.com/funvibe/diffsmith/internal/rng"
)

// LiteralStyle picks the family of a generated constant.
type LiteralStyle int

const (
	StyleZero LiteralStyle = iota
	StyleOne
	StyleMinusOne
	StyleMin
	StyleMax
	StyleSmall
	StyleRandom
)

// Constant is a primitive value. Integral values are held as int64 or
// uint64 bit patterns, floating values as float64.
type Constant struct {
	Kind  PrimitiveKind
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
}

// IsUnsigned covers the integral kinds stored in Uint.
func (k PrimitiveKind) IsUnsigned() bool {
	switch k {
	case Char, Byte, UShort, UInt, ULong:
		return true
	}
	return false
}

// IntConstant builds an integral or floating constant from v, clamped to
// the range of k.
func IntConstant(k PrimitiveKind, v int64) Constant {
	c := Constant{Kind: k}
	switch {
	case k == Bool:
		c.Bool = v != 0
	case k.IsFloating():
		c.Float = float64(v)
		if k == Float {
			c.Float = float64(float32(c.Float))
		}
	case k.IsUnsigned():
		if v < 0 {
			v = 0
		}
		c.Uint = uint64(v)
		if c.Uint > k.MaxUint() {
			c.Uint = k.MaxUint()
		}
	default:
		c.Int = max(min(v, k.MaxInt()), k.MinInt())
	}
	return c
}

// Equal compares two constants of the same kind.
func (c Constant) Equal(o Constant) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch {
	case c.Kind == Bool:
		return c.Bool == o.Bool
	case c.Kind.IsFloating():
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	case c.Kind.IsUnsigned():
		return c.Uint == o.Uint
	}
	return c.Int == o.Int
}

// IsMin and IsMax report the extreme values of integral kinds.
func (c Constant) IsMin() bool {
	switch {
	case c.Kind.IsUnsigned():
		return c.Uint == 0
	case c.Kind.IsIntegral():
		return c.Int == c.Kind.MinInt()
	}
	return false
}

func (c Constant) IsMax() bool {
	switch {
	case c.Kind.IsUnsigned():
		return c.Uint == c.Kind.MaxUint()
	case c.Kind.IsIntegral():
		return c.Int == c.Kind.MaxInt()
	}
	return false
}

// IsNegative reports whether the constant renders with a leading minus.
func (c Constant) IsNegative() bool {
	switch {
	case c.Kind.IsFloating():
		return c.Float < 0
	case c.Kind.IsIntegral() && !c.Kind.IsUnsigned():
		return c.Int < 0
	}
	return false
}

// GenConstant samples a constant of kind k in one of the given styles.
// Values are always within the range of k.
func GenConstant(r *rng.Rand, k PrimitiveKind, styles *rng.Table[LiteralStyle]) Constant {
	if k == Bool {
		return Constant{Kind: Bool, Bool: r.Flip(0.5)}
	}
	style := styles.Sample(r)
	switch style {
	case StyleZero:
		return IntConstant(k, 0)
	case StyleOne:
		return IntConstant(k, 1)
	case StyleMinusOne:
		if k.IsUnsigned() {
			return IntConstant(k, 1)
		}
		return IntConstant(k, -1)
	case StyleMin:
		if k.IsFloating() {
			return IntConstant(k, -1<<20)
		}
		if k.IsUnsigned() {
			return IntConstant(k, 0)
		}
		return Constant{Kind: k, Int: k.MinInt()}
	case StyleMax:
		if k.IsFloating() {
			return IntConstant(k, 1<<20)
		}
		if k.IsUnsigned() {
			return Constant{Kind: k, Uint: k.MaxUint()}
		}
		return Constant{Kind: k, Int: k.MaxInt()}
	case StyleSmall:
		if k.IsUnsigned() {
			return IntConstant(k, int64(r.Intn(21)))
		}
		return IntConstant(k, int64(r.IntRange(-10, 10)))
	}
	return randomConstant(r, k)
}

func randomConstant(r *rng.Rand, k PrimitiveKind) Constant {
	c := Constant{Kind: k}
	switch {
	case k.IsFloating():
		c.Float = float64(r.IntRange(-1000000, 1000000)) / 100
		if k == Float {
			c.Float = float64(float32(c.Float))
		}
	case k.IsUnsigned():
		c.Uint = r.Uint64() & k.MaxUint()
	default:
		shift := 64 - k.Bits()
		c.Int = int64(r.Uint64()<<shift) >> shift
	}
	return c
}
