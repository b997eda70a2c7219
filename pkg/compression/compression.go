package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultThreshold is the size below which values are stored as-is
const DefaultThreshold = 64 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// IsCompressed reports whether data starts with the gzip magic bytes
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// MaybeCompress gzips data when it is at least threshold bytes long.
// Smaller values are returned unchanged.
func MaybeCompress(data []byte, threshold int) ([]byte, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(data) < threshold {
		return data, nil
	}
	return Compress(data)
}

// Compress gzips data unconditionally
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates gzip data. Values without the gzip header pass through.
func Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}
