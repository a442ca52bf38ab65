package ring

import (
	"fmt"

	"github.com/ardnew/softbulk/pkg"
)

// Buffer is a fixed-capacity circular byte store.
type Buffer struct {
	store []byte
	r, w  int
	full  bool

	// Lengths lent by the last WriteRegion/ReadRegion/ReadSpan, reduced by
	// each commit and cleared by any other cursor mutation.
	writeGrant int
	readGrant  int
}

// New creates a ring over store. The store is used in place and its length
// is the ring's capacity.
func New(store []byte) *Buffer {
	return &Buffer{store: store}
}

// NewSize creates a ring with a freshly allocated store of size bytes.
func NewSize(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return New(make([]byte, size))
}

// Cap returns the capacity of the backing store.
func (b *Buffer) Cap() int {
	return len(b.store)
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	switch {
	case b.full:
		return len(b.store)
	case b.w >= b.r:
		return b.w - b.r
	default:
		return len(b.store) - b.r + b.w
	}
}

// Free returns the number of bytes that can be written.
func (b *Buffer) Free() int {
	return len(b.store) - b.Len()
}

// IsEmpty returns true if the ring holds no data.
func (b *Buffer) IsEmpty() bool {
	return !b.full && b.r == b.w
}

// IsFull returns true if the ring has no free space.
func (b *Buffer) IsFull() bool {
	return b.full
}

// Reset returns both cursors to zero and discards any content.
func (b *Buffer) Reset() {
	b.r, b.w = 0, 0
	b.full = false
	b.writeGrant, b.readGrant = 0, 0
}

// Info returns a snapshot of the ring's cursors.
func (b *Buffer) Info() Info {
	return Info{
		Size:       len(b.store),
		ReadIndex:  b.r,
		WriteIndex: b.w,
		Used:       b.Len(),
		Full:       b.full,
	}
}

// Write copies up to min(len(p), Free()) bytes into the ring and returns the
// number copied.
func (b *Buffer) Write(p []byte) int {
	n := len(p)
	if free := b.Free(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	first := copy(b.store[b.w:], p[:n])
	copy(b.store, p[first:n])
	b.advanceWrite(n)
	b.writeGrant = 0
	return n
}

// Read copies up to min(len(p), Len()) bytes out of the ring and returns the
// number copied.
func (b *Buffer) Read(p []byte) int {
	n := b.Peek(p)
	b.advanceRead(n)
	b.readGrant = 0
	return n
}

// Peek copies up to min(len(p), Len()) bytes out of the ring without
// advancing the read cursor.
func (b *Buffer) Peek(p []byte) int {
	n := len(p)
	if used := b.Len(); n > used {
		n = used
	}
	if n == 0 {
		return 0
	}
	first := copy(p[:n], b.store[b.r:])
	copy(p[first:n], b.store)
	return n
}

// WriteRegion lends the contiguous free run starting at the write cursor,
// at most n bytes long. The run stops at the physical end of the store.
func (b *Buffer) WriteRegion(n int) Region {
	var run int
	switch {
	case b.full:
		run = 0
	case b.w >= b.r:
		run = len(b.store) - b.w
	default:
		run = b.r - b.w
	}
	if n < run {
		run = n
	}
	if run < 0 {
		run = 0
	}
	b.writeGrant = run
	return Region{Data: b.store[b.w : b.w+run], Offset: b.w}
}

// ReadRegion lends the contiguous readable run starting at the read cursor,
// at most n bytes long. The run stops at the physical end of the store.
func (b *Buffer) ReadRegion(n int) Region {
	var run int
	switch {
	case b.IsEmpty():
		run = 0
	case b.w > b.r:
		run = b.w - b.r
	default:
		run = len(b.store) - b.r
	}
	if n < run {
		run = n
	}
	if run < 0 {
		run = 0
	}
	b.readGrant = run
	return Region{Data: b.store[b.r : b.r+run], Offset: b.r}
}

// ReadSpan lends up to n readable bytes starting at the read cursor as a
// span that may wrap. The whole span is granted to CommitRead.
func (b *Buffer) ReadSpan(n int) Span {
	used := b.Len()
	if n > used {
		n = used
	}
	if n <= 0 {
		b.readGrant = 0
		return Span{}
	}
	var s Span
	head := len(b.store) - b.r
	if head >= n {
		s.Head = Region{Data: b.store[b.r : b.r+n], Offset: b.r}
	} else {
		s.Head = Region{Data: b.store[b.r:], Offset: b.r}
		s.Tail = Region{Data: b.store[:n-head], Offset: 0}
	}
	b.readGrant = n
	return s
}

// CommitWrite advances the write cursor by n bytes of a granted region and
// returns the number committed.
func (b *Buffer) CommitWrite(n int) int {
	n = b.checkGrant("write", n, b.writeGrant)
	b.advanceWrite(n)
	b.writeGrant -= n
	return n
}

// CommitRead advances the read cursor by n bytes of a granted region or span
// and returns the number committed.
func (b *Buffer) CommitRead(n int) int {
	n = b.checkGrant("read", n, b.readGrant)
	b.advanceRead(n)
	b.readGrant -= n
	return n
}

func (b *Buffer) checkGrant(op string, n, grant int) int {
	if n >= 0 && n <= grant {
		return n
	}
	if strictCommit {
		panic(fmt.Sprintf("ring: commit %s of %d exceeds granted %d: %v", op, n, grant, pkg.ErrOverrun))
	}
	pkg.LogWarn(pkg.ComponentRing, "commit clamped",
		"op", op,
		"requested", n,
		"granted", grant)
	if n < 0 {
		return 0
	}
	return grant
}

func (b *Buffer) advanceWrite(n int) {
	if n == 0 {
		return
	}
	b.w = (b.w + n) % len(b.store)
	if b.w == b.r {
		b.full = true
	}
}

func (b *Buffer) advanceRead(n int) {
	if n == 0 {
		return
	}
	b.r = (b.r + n) % len(b.store)
	b.full = false
}
