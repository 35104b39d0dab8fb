// Package codec exposes the buffer record codec through the generic codec
// interface used by serialization frameworks that handle values as any.
package codec

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/rawbytedev/bytebuf"
)

var ErrUnsupportedType = errors.New("codec: value is not a bytebuf.Buffer")

type Codec interface {
	// Marshal encodes a single value and returns the serialized byte slice.
	Marshal(value any) ([]byte, error)

	// Unmarshal decodes and returns the value stored in data.
	Unmarshal(data []byte) (any, error)

	NewDecoder(io.Reader) Decoder
	NewEncoder(io.Writer) Encoder
}

type Decoder interface {
	Decode() (any, error)
}

type Encoder interface {
	Encode(v any) error
}

// New creates a codec that encodes *bytebuf.Buffer values and decodes into them.
func New(opts bytebuf.Options) Codec {
	return &codec{c: bytebuf.NewCodec(opts)}
}

type codec struct {
	c *bytebuf.Codec
}

func (c *codec) Marshal(v any) ([]byte, error) {
	b, err := asBuffer(v)
	if err != nil {
		return nil, err
	}
	return c.c.Marshal(b)
}

func (c *codec) Unmarshal(data []byte) (any, error) {
	b, err := c.c.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *codec) NewEncoder(w io.Writer) Encoder {
	return &encoder{c: c.c, w: w}
}

func (c *codec) NewDecoder(r io.Reader) Decoder {
	return &decoder{c: c.c, r: bufio.NewReader(r)}
}

type encoder struct {
	c *bytebuf.Codec
	w io.Writer
}

func (enc *encoder) Encode(v any) error {
	b, err := asBuffer(v)
	if err != nil {
		return err
	}
	return enc.c.Encode(enc.w, b)
}

// decoder reads records back-to-back from a buffered stream. A stream that
// ends cleanly between two records yields io.EOF.
type decoder struct {
	c *bytebuf.Codec
	r *bufio.Reader
}

func (dec *decoder) Decode() (any, error) {
	if _, err := dec.r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}
	b, err := dec.c.Decode(dec.r)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func asBuffer(v any) (*bytebuf.Buffer, error) {
	switch b := v.(type) {
	case *bytebuf.Buffer:
		return b, nil
	case bytebuf.Buffer:
		return &b, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "got %T", v)
	}
}
