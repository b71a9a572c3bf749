// Package bytebuf implements the little-endian binary packing used by
// access tokens. Every multi-byte integer is little-endian, strings and
// byte slices carry a 16-bit length prefix, and integer maps are written
// in ascending key order so the same logical value always produces the
// same bytes.
package bytebuf

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"

	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Writer accumulates packed values. The first encoding error is kept and
// returned by Bytes; later writes after an error are no-ops.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns an empty Writer. A Writer is single use and not safe
// for concurrent use.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// PutUint16 appends v as two little-endian bytes.
func (w *Writer) PutUint16(v uint16) *Writer {
	if w.err == nil {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	}
	return w
}

// PutUint32 appends v as four little-endian bytes.
func (w *Writer) PutUint32(v uint32) *Writer {
	if w.err == nil {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
	return w
}

// PutInt32 appends v as four little-endian bytes (two's complement).
func (w *Writer) PutInt32(v int32) *Writer {
	return w.PutUint32(uint32(v))
}

// PutBytes appends a 16-bit length prefix followed by b.
func (w *Writer) PutBytes(b []byte) *Writer {
	if w.err != nil {
		return w
	}
	if len(b) > math.MaxUint16 {
		w.err = fmt.Errorf("packing %d bytes: %w", len(b), apperrors.ErrEncodingOverflow)
		return w
	}
	w.PutUint16(uint16(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// PutString appends s as length-prefixed UTF-8 bytes.
func (w *Writer) PutString(s string) *Writer {
	return w.PutBytes([]byte(s))
}

// PutUint32Map appends a 16-bit entry count followed by each (key, value)
// pair in ascending key order. Map iteration order never reaches the
// output.
func (w *Writer) PutUint32Map(m map[uint16]uint32) *Writer {
	if w.err != nil {
		return w
	}
	if len(m) > math.MaxUint16 {
		w.err = fmt.Errorf("packing map of %d entries: %w", len(m), apperrors.ErrEncodingOverflow)
		return w
	}
	w.PutUint16(uint16(len(m)))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		w.PutUint16(k).PutUint32(m[k])
	}
	return w
}

// Append copies raw bytes without a length prefix.
func (w *Writer) Append(b []byte) *Writer {
	if w.err == nil {
		w.buf = append(w.buf, b...)
	}
	return w
}

// Err returns the first encoding error, if any.
func (w *Writer) Err() error {
	return w.err
}

// Bytes returns the packed bytes, or the first encoding error.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}
