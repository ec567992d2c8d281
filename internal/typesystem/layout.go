package typesystem

// ByteKind classifies one byte of an unmanaged value.
type ByteKind uint8

const (
	Padding ByteKind = iota
	Data
	BoolData
)

// FieldLayout is the placement of one field.
type FieldLayout struct {
	Name   string
	Offset int
	Size   int
}

// Layout is the in-memory shape of an unmanaged value under natural
// alignment.
type Layout struct {
	Size   int
	Align  int
	Bytes  []ByteKind
	Fields []FieldLayout
}

func primitiveLayout(k PrimitiveKind) *Layout {
	l := &Layout{Size: k.Size(), Align: k.Size(), Bytes: make([]ByteKind, k.Size())}
	kind := Data
	if k == Bool {
		kind = BoolData
	}
	for i := range l.Bytes {
		l.Bytes[i] = kind
	}
	return l
}

// LayoutOf returns the layout of t, or nil when t has none.
func LayoutOf(t Type) *Layout {
	switch x := t.(type) {
	case *PrimitiveType:
		return primitiveLayout(x.Kind)
	case *AggregateType:
		return x.Layout
	}
	return nil
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

func structLayout(fields []Field) *Layout {
	l := &Layout{Align: 1}
	offset := 0
	for _, f := range fields {
		fl := LayoutOf(f.Type)
		if fl == nil {
			return nil
		}
		offset = alignUp(offset, fl.Align)
		for len(l.Bytes) < offset {
			l.Bytes = append(l.Bytes, Padding)
		}
		l.Bytes = append(l.Bytes, fl.Bytes...)
		l.Fields = append(l.Fields, FieldLayout{Name: f.Name, Offset: offset, Size: fl.Size})
		offset += fl.Size
		if fl.Align > l.Align {
			l.Align = fl.Align
		}
	}
	l.Size = alignUp(offset, l.Align)
	if l.Size == 0 {
		l.Size = 1
	}
	for len(l.Bytes) < l.Size {
		l.Bytes = append(l.Bytes, Padding)
	}
	return l
}

// HasBool reports whether any byte belongs to a bool.
func (l *Layout) HasBool() bool {
	for _, b := range l.Bytes {
		if b == BoolData {
			return true
		}
	}
	return false
}

// TouchesPadding reports whether the byte window [off, off+n) overlaps
// padding or lies outside the layout.
func (l *Layout) TouchesPadding(off, n int) bool {
	if off < 0 || off+n > l.Size {
		return true
	}
	for _, b := range l.Bytes[off : off+n] {
		if b == Padding {
			return true
		}
	}
	return false
}

// FitsAt reports whether a value with layout l can be read from src at
// offset without observing padding and without materializing a bool from
// arbitrary bytes.
func (l *Layout) FitsAt(src *Layout, offset int) bool {
	if offset < 0 || offset+l.Size > src.Size {
		return false
	}
	for i, b := range l.Bytes {
		if b == Padding {
			continue
		}
		if b == BoolData {
			return false
		}
		if src.Bytes[offset+i] == Padding {
			return false
		}
	}
	return true
}

// Offsets returns every offset at which l fits inside src.
func (l *Layout) Offsets(src *Layout) []int {
	var out []int
	for off := 0; off+l.Size <= src.Size; off++ {
		if l.FitsAt(src, off) {
			out = append(out, off)
		}
	}
	return out
}
