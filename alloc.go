package bytebuf

import (
	"github.com/valyala/bytebufferpool"
)

// Allocator hands out payloads for decoded buffers.
type Allocator interface {
	// Alloc returns a zeroed, non-nil slice with len == size.
	Alloc(size int) []byte
	// Free gives a payload obtained from Alloc back to the allocator.
	Free(buf []byte)
}

// HeapAllocator delegates to the Go runtime and keeps Free as a no-op.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(size int) []byte {
	return make([]byte, size)
}

func (HeapAllocator) Free([]byte) {}

// PoolAllocator recycles backing arrays through a bytebufferpool.Pool.
// It stands in for the special memory pool a buffer's allocation hint
// refers to. Safe for concurrent use.
type PoolAllocator struct {
	pool bytebufferpool.Pool
}

func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{}
}

func (a *PoolAllocator) Alloc(size int) []byte {
	bb := a.pool.Get()
	if bb.B == nil || cap(bb.B) < size {
		a.pool.Put(bb)
		return make([]byte, size)
	}
	b := bb.B[:size]
	clear(b)
	return b
}

func (a *PoolAllocator) Free(buf []byte) {
	if buf == nil {
		return
	}
	a.pool.Put(&bytebufferpool.ByteBuffer{B: buf})
}

var (
	defaultHeap   Allocator = HeapAllocator{}
	defaultPooled Allocator = NewPoolAllocator()
)
