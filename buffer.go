package bytebuf

import (
	"bytes"
	"io"
)

// Buffer owns a contiguous payload together with the allocation hint that
// tells a receiver which allocator to rebuild it from. It also carries a
// read cursor; the codec never transmits or moves that cursor.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	payload []byte
	pos     int
	pooled  bool
	alloc   Allocator
}

// New wraps payload without copying it. A nil payload yields a Buffer that
// cannot be encoded.
func New(payload []byte, pooled bool) *Buffer {
	return &Buffer{payload: payload, pooled: pooled}
}

// Allocate returns a zeroed Buffer of size bytes from the default allocator
// selected by pooled.
func Allocate(size int, pooled bool) *Buffer {
	a := defaultHeap
	if pooled {
		a = defaultPooled
	}
	return &Buffer{payload: a.Alloc(size), pooled: pooled, alloc: a}
}

// Bytes returns the whole payload regardless of the cursor.
func (b *Buffer) Bytes() []byte {
	return b.payload
}

// Capacity is the payload length.
func (b *Buffer) Capacity() int {
	return len(b.payload)
}

// Pooled reports the allocation hint.
func (b *Buffer) Pooled() bool {
	return b.pooled
}

// HasPayload reports whether the Buffer has a backing payload.
func (b *Buffer) HasPayload() bool {
	return b != nil && b.payload != nil
}

// Position returns the read cursor.
func (b *Buffer) Position() int {
	return b.pos
}

// Remaining returns the number of unread bytes after the cursor.
func (b *Buffer) Remaining() int {
	return len(b.payload) - b.pos
}

// Read copies bytes from the cursor into p and advances the cursor.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.payload) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.payload[b.pos:])
	b.pos += n
	return n, nil
}

// Rewind moves the cursor back to the start of the payload.
func (b *Buffer) Rewind() {
	b.pos = 0
}

// Equal reports whether both buffers carry the same hint and payload bytes.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.pooled == o.pooled && (b.payload == nil) == (o.payload == nil) && bytes.Equal(b.payload, o.payload)
}

// Release hands the payload back to the allocator it came from. The Buffer
// has no payload afterwards.
func (b *Buffer) Release() {
	if b.alloc != nil && b.payload != nil {
		b.alloc.Free(b.payload)
	}
	b.payload = nil
	b.pos = 0
	b.alloc = nil
}

// WriteTo encodes b with the default codec.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := defaultCodec.Encode(cw, b)
	return cw.n, err
}

// ReadFrom replaces b with a record decoded from r by the default codec.
// On success the previous payload is released.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	d, err := defaultCodec.Decode(cr)
	if err != nil {
		return cr.n, err
	}
	b.Release()
	*b = *d
	return cr.n, nil
}

func (b *Buffer) MarshalBinary() ([]byte, error) {
	return defaultCodec.Marshal(b)
}

func (b *Buffer) UnmarshalBinary(data []byte) error {
	d, err := defaultCodec.Unmarshal(data)
	if err != nil {
		return err
	}
	b.Release()
	*b = *d
	return nil
}
