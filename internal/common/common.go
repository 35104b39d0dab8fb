// Package common holds the fixed-width layout of a buffer record and the
// big-endian helpers used to read and write it.
package common

import (
	"encoding/binary"
)

// Record layout: capacity(int32) | hint(1) | payload(capacity) | end tag(int32).
const (
	CapacitySize = 4
	HintSize     = 1
	EndTagSize   = 4
	HeaderSize   = CapacitySize + HintSize
	Overhead     = HeaderSize + EndTagSize

	EndTag int32 = 42
)

// AppendHeader appends the capacity and allocation hint of a record to dst.
func AppendHeader(dst []byte, capacity int32, hint bool) []byte {
	dst = AppendInt32(dst, capacity)
	if hint {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// AppendInt32 appends v to dst in big-endian order.
func AppendInt32(dst []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

// ParseHeader splits a HeaderSize slice into capacity and hint.
// Any non-zero hint byte reads as true.
func ParseHeader(b []byte) (int32, bool) {
	_ = b[HeaderSize-1]
	return ParseInt32(b[:CapacitySize]), b[CapacitySize] != 0
}

// ParseInt32 reads a big-endian int32 from the first four bytes of b.
func ParseInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// RecordSize returns the encoded size of a record carrying capacity bytes.
func RecordSize(capacity int) int {
	return Overhead + capacity
}
