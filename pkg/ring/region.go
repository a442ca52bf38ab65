package ring

// Region is a contiguous run of a ring's backing store lent for in-place
// access. Offset is the absolute position of Data[0] in the store.
//
// A Region is only valid until the next cursor mutation on its ring.
type Region struct {
	Data   []byte
	Offset int
}

// Len returns the length of the region.
func (r Region) Len() int {
	return len(r.Data)
}

// Span is a logical run of up to two regions. Head always precedes Tail; Tail
// is non-empty only when the run wraps past the physical end of the store.
type Span struct {
	Head Region
	Tail Region
}

// Len returns the total length of the span.
func (s Span) Len() int {
	return len(s.Head.Data) + len(s.Tail.Data)
}

// Slice returns the sub-span [off, off+n), clamped to the span's length.
func (s Span) Slice(off, n int) Span {
	var out Span
	if off < 0 || n <= 0 {
		return out
	}
	regions := [2]Region{s.Head, s.Tail}
	for _, r := range regions {
		if n == 0 {
			break
		}
		if off >= r.Len() {
			off -= r.Len()
			continue
		}
		end := off + n
		if end > r.Len() {
			end = r.Len()
		}
		part := Region{Data: r.Data[off:end], Offset: r.Offset + off}
		if out.Head.Len() == 0 {
			out.Head = part
		} else {
			out.Tail = part
		}
		n -= end - off
		off = 0
	}
	return out
}

// CopyTo copies the span into dst and returns the number of bytes copied.
func (s Span) CopyTo(dst []byte) int {
	n := copy(dst, s.Head.Data)
	return n + copy(dst[n:], s.Tail.Data)
}

// Info is a snapshot of a ring's cursors.
type Info struct {
	Size       int // Capacity of the backing store
	ReadIndex  int // Read cursor
	WriteIndex int // Write cursor
	Used       int // Occupancy
	Full       bool
}
