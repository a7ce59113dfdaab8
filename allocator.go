package gpr

// AllocFunc allocates n bytes and returns the backing slice, or nil when
// the allocation fails. FreeFunc releases a slice previously returned by
// the paired AllocFunc.
type (
	AllocFunc func(n int) []byte
	FreeFunc  func(b []byte)
)

// Allocator pairs an allocation function with the free function that must
// release its buffers. An Allocator is a cheap value; it must outlive every
// buffer allocated through it, and the same instance the codec allocates
// with must be the one that frees.
type Allocator struct {
	Alloc AllocFunc
	Free  FreeFunc
}

// GoAllocator returns an allocator backed by the Go heap. Free is a no-op
// beyond dropping the reference; the pairing discipline is still exercised
// so a codec-backed allocator can be swapped in without touching callers.
func GoAllocator() Allocator {
	return Allocator{
		Alloc: func(n int) []byte {
			if n <= 0 {
				return nil
			}
			return make([]byte, n)
		},
		Free: func([]byte) {},
	}
}

// Buffer is an owned (data, size) pair. The zero value is the empty buffer.
// A buffer is either empty (nil data) or holds memory obtained from its
// companion allocator; it is released exactly once and never duplicated.
type Buffer struct {
	Data []byte
}

// Empty reports whether the buffer holds no memory.
func (b *Buffer) Empty() bool { return b.Data == nil }

// Size returns the buffer length in bytes.
func (b *Buffer) Size() int { return len(b.Data) }

// Release frees the buffer through a and resets it to empty. Releasing an
// empty buffer is a no-op, so double release is harmless.
func (b *Buffer) Release(a Allocator) {
	if b.Data == nil {
		return
	}
	a.Free(b.Data)
	b.Data = nil
}

// Move transfers ownership out of b, leaving it empty. The caller becomes
// responsible for releasing the returned buffer.
func (b *Buffer) Move() Buffer {
	out := Buffer{Data: b.Data}
	b.Data = nil
	return out
}
