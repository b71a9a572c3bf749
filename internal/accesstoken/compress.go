package accesstoken

import (
	"bytes"
	"fmt"
	"io"

	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
	"github.com/klauspost/compress/zlib"
)

// compress is swapped in tests to exercise the uncompressed fallback.
var compress = deflate

// deflate wraps data in a zlib stream at the default level, no
// dictionary, flushed and closed.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCompression, err)
	}

	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCompression, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCompression, err)
	}

	return buf.Bytes(), nil
}

// inflate reverses deflate.
func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}
