package typesystem

// PrimitiveKind enumerates the scalar types.
type PrimitiveKind int

const (
	Bool PrimitiveKind = iota
	Char
	SByte
	Byte
	Short
	UShort
	Int
	UInt
	Long
	ULong
	Float
	Double
	numPrimitiveKinds
)

var kindInfo = [numPrimitiveKinds]struct {
	keyword string
	size    int
}{
	Bool:   {"bool", 1},
	Char:   {"char", 2},
	SByte:  {"sbyte", 1},
	Byte:   {"byte", 1},
	Short:  {"short", 2},
	UShort: {"ushort", 2},
	Int:    {"int", 4},
	UInt:   {"uint", 4},
	Long:   {"long", 8},
	ULong:  {"ulong", 8},
	Float:  {"float", 4},
	Double: {"double", 8},
}

func (k PrimitiveKind) Keyword() string { return kindInfo[k].keyword }
func (k PrimitiveKind) String() string  { return kindInfo[k].keyword }

// Size is the storage size in bytes.
func (k PrimitiveKind) Size() int { return kindInfo[k].size }

// IsIntegral includes char.
func (k PrimitiveKind) IsIntegral() bool { return k >= Char && k <= ULong }

func (k PrimitiveKind) IsFloating() bool { return k == Float || k == Double }

// IsNumeric is every kind except bool.
func (k PrimitiveKind) IsNumeric() bool { return k != Bool }

func (k PrimitiveKind) IsSigned() bool {
	switch k {
	case SByte, Short, Int, Long, Float, Double:
		return true
	}
	return false
}

// IsSmall reports kinds that promote to int in arithmetic.
func (k PrimitiveKind) IsSmall() bool {
	switch k {
	case Char, SByte, Byte, Short, UShort:
		return true
	}
	return false
}

// Bits is the width of an integral kind.
func (k PrimitiveKind) Bits() int { return kindInfo[k].size * 8 }

// MinInt and MaxInt are the bounds of a signed integral kind.
func (k PrimitiveKind) MinInt() int64 {
	return -1 << (k.Bits() - 1)
}

func (k PrimitiveKind) MaxInt() int64 {
	return 1<<(k.Bits()-1) - 1
}

// MaxUint is the upper bound of an unsigned integral kind (char included).
func (k PrimitiveKind) MaxUint() uint64 {
	if k.Bits() == 64 {
		return ^uint64(0)
	}
	return 1<<k.Bits() - 1
}

// NumericKinds are the element kinds allowed in vectors.
func NumericKinds() []PrimitiveKind {
	return []PrimitiveKind{SByte, Byte, Short, UShort, Int, UInt, Long, ULong, Float, Double}
}
