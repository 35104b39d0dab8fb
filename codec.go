// Package bytebuf serializes in-memory byte buffers into a self-checking
// binary record so they can cross a process or node boundary and be
// rebuilt bit-for-bit on the other side.
//
// Record layout, big-endian, no padding:
//
//	capacity int32 | hint byte | payload [capacity]byte | end tag int32 (42)
package bytebuf

import (
	"bytes"
	"io"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rawbytedev/bytebuf/internal/common"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

type Options struct {
	// Heap allocates payloads whose hint is false. Defaults to HeapAllocator.
	Heap Allocator
	// Pooled allocates payloads whose hint is true. Defaults to a shared PoolAllocator.
	Pooled Allocator
	// MaxCapacity rejects decoded records announcing more bytes. Zero means no limit
	// beyond the int32 range.
	MaxCapacity int
	Logger      *zap.Logger
	// Registerer receives the codec metrics when set.
	Registerer prometheus.Registerer
	Namespace  string
}

// Codec encodes and decodes buffer records. It holds no per-call state and
// is safe for concurrent use.
type Codec struct {
	opts    Options
	log     *zap.Logger
	metrics *metrics
}

var defaultCodec = NewCodec(Options{})

func NewCodec(opts Options) *Codec {
	if opts.Heap == nil {
		opts.Heap = defaultHeap
	}
	if opts.Pooled == nil {
		opts.Pooled = defaultPooled
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Codec{
		opts:    opts,
		log:     opts.Logger.Named("bytebuf"),
		metrics: newMetrics(opts.Registerer, opts.Namespace, "codec"),
	}
}

// RecordSize returns the encoded size of a buffer holding capacity bytes.
func RecordSize(capacity int) int {
	return common.RecordSize(capacity)
}

// Encode writes b as a single record. The whole payload is written from
// position 0; the cursor and the payload are left untouched.
// Nothing is written when b has no payload or is too large.
func (c *Codec) Encode(w io.Writer, b *Buffer) error {
	if !b.HasPayload() {
		c.metrics.encodeFailures.WithLabelValues(failureMissingPayload).Inc()
		return ErrMissingPayload
	}
	capacity, err := safecast.ToInt32(len(b.payload))
	if err != nil {
		c.metrics.encodeFailures.WithLabelValues(failureCapacityOverflow).Inc()
		return errors.Wrapf(ErrCapacityOverflow, "payload of %d bytes", len(b.payload))
	}

	scratch := bytebufferpool.Get()
	defer bytebufferpool.Put(scratch)

	scratch.B = common.AppendHeader(scratch.B, capacity, b.pooled)
	if err := writeFull(w, scratch.B); err != nil {
		return c.encodeFailed(errors.Wrap(err, "bytebuf: writing record header"))
	}
	if err := writeFull(w, b.payload); err != nil {
		return c.encodeFailed(errors.Wrapf(err, "bytebuf: writing %d payload bytes", capacity))
	}
	scratch.Reset()
	scratch.B = common.AppendInt32(scratch.B, common.EndTag)
	if err := writeFull(w, scratch.B); err != nil {
		return c.encodeFailed(errors.Wrap(err, "bytebuf: writing end tag"))
	}

	c.metrics.encoded.Inc()
	c.metrics.encodedBytes.Add(float64(capacity))
	return nil
}

// Decode reads one record from r into a freshly allocated Buffer. The
// allocator is chosen by the record's hint; the returned Buffer owns the
// payload and its cursor is at 0. Partial reads from r are retried until
// each field is complete.
func (c *Codec) Decode(r io.Reader) (*Buffer, error) {
	return c.decode(r, -1)
}

// decode reads one record. avail is the number of bytes known to follow the
// header, or negative when r has no known length; a capacity beyond avail
// fails before anything is allocated.
func (c *Codec) decode(r io.Reader, avail int) (*Buffer, error) {
	var scratch [common.HeaderSize]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return nil, c.decodeFailed(failureIO, errors.Wrap(err, "bytebuf: reading record header"))
	}
	capacity, pooled := common.ParseHeader(scratch[:])
	if capacity < 0 {
		return nil, c.decodeFailed(failureCorrupt, errors.Wrapf(ErrCorruptStream, "negative capacity %d", capacity))
	}
	if c.opts.MaxCapacity > 0 && int(capacity) > c.opts.MaxCapacity {
		return nil, c.decodeFailed(failureCorrupt,
			errors.Wrapf(ErrCorruptStream, "capacity %d exceeds limit %d", capacity, c.opts.MaxCapacity))
	}

	if avail >= 0 && int(capacity) > avail {
		err := io.ErrUnexpectedEOF
		if avail == 0 {
			err = io.EOF
		}
		return nil, c.decodeFailed(failureTruncated, &TruncatedPayloadError{Expected: int(capacity), Read: avail, Err: err})
	}

	alloc := c.allocator(pooled)
	payload := alloc.Alloc(int(capacity))
	if n, err := io.ReadFull(r, payload); err != nil {
		alloc.Free(payload)
		if isEOF(err) {
			return nil, c.decodeFailed(failureTruncated, &TruncatedPayloadError{Expected: int(capacity), Read: n, Err: err})
		}
		return nil, c.decodeFailed(failureIO, errors.Wrapf(err, "bytebuf: reading %d payload bytes", capacity))
	}

	tag := scratch[:common.EndTagSize]
	if _, err := io.ReadFull(r, tag); err != nil {
		alloc.Free(payload)
		if isEOF(err) {
			return nil, c.decodeFailed(failureCorrupt, errors.Wrapf(ErrCorruptStream, "end tag: %v", err))
		}
		return nil, c.decodeFailed(failureIO, errors.Wrap(err, "bytebuf: reading end tag"))
	}
	if got := common.ParseInt32(tag); got != common.EndTag {
		alloc.Free(payload)
		return nil, c.decodeFailed(failureCorrupt, errors.Wrapf(ErrCorruptStream, "end tag %d", got))
	}

	c.metrics.decoded.Inc()
	c.metrics.decodedBytes.Add(float64(capacity))
	return &Buffer{payload: payload, pooled: pooled, alloc: alloc}, nil
}

// Marshal returns b encoded as a standalone record.
func (c *Codec) Marshal(b *Buffer) ([]byte, error) {
	var out bytes.Buffer
	if b.HasPayload() {
		out.Grow(RecordSize(len(b.payload)))
	}
	if err := c.Encode(&out, b); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal decodes data, which must hold exactly one record.
func (c *Codec) Unmarshal(data []byte) (*Buffer, error) {
	rd := bytes.NewReader(data)
	b, err := c.decode(rd, len(data)-common.HeaderSize)
	if err != nil {
		return nil, err
	}
	if rd.Len() != 0 {
		b.Release()
		return nil, c.decodeFailed(failureCorrupt, errors.Wrapf(ErrCorruptStream, "%d trailing bytes", rd.Len()))
	}
	return b, nil
}

func (c *Codec) allocator(pooled bool) Allocator {
	if pooled {
		return c.opts.Pooled
	}
	return c.opts.Heap
}

func (c *Codec) encodeFailed(err error) error {
	c.metrics.encodeFailures.WithLabelValues(failureIO).Inc()
	c.log.Debug("encode failed", zap.Error(err))
	return err
}

func (c *Codec) decodeFailed(reason string, err error) error {
	c.metrics.decodeFailures.WithLabelValues(reason).Inc()
	c.log.Debug("decode failed", zap.String("reason", reason), zap.Error(err))
	return err
}

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
