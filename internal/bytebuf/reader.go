package bytebuf

import (
	"encoding/binary"
	"fmt"

	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Reader decodes values written by Writer, in the same order.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b. The Reader does not copy b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n > len(r.buf)-r.off {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, r.off, apperrors.ErrShortBuffer)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Uint16 reads a little-endian 16-bit integer.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian 32-bit integer.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian signed 32-bit integer.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Bytes reads a length-prefixed byte slice. The result aliases the
// underlying buffer.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// String reads a length-prefixed string.
func (r *Reader) String() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Uint32Map reads a map written by PutUint32Map.
func (r *Reader) Uint32Map() (map[uint16]uint32, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	m := make(map[uint16]uint32, n)
	for i := 0; i < int(n); i++ {
		k, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		v, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// Fixed reads exactly n raw bytes without a length prefix.
func (r *Reader) Fixed(n int) ([]byte, error) {
	return r.take(n)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}
