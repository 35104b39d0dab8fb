package bytebuf

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingPayload   = errors.New("bytebuf: no backing payload")
	ErrTruncatedPayload = errors.New("bytebuf: truncated payload")
	ErrCorruptStream    = errors.New("bytebuf: byte buffer stream corrupt")
	ErrCapacityOverflow = errors.New("bytebuf: capacity exceeds int32 range")
)

// TruncatedPayloadError reports a stream that ended before the declared
// payload was read. It matches ErrTruncatedPayload and unwraps to the
// read error.
type TruncatedPayloadError struct {
	Expected int
	Read     int
	Err      error
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf("%v: expect buffer bytes: %d, got %d: %v", ErrTruncatedPayload, e.Expected, e.Read, e.Err)
}

func (e *TruncatedPayloadError) Is(target error) bool {
	return target == ErrTruncatedPayload
}

func (e *TruncatedPayloadError) Unwrap() error {
	return e.Err
}
