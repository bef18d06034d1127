// Package deflate wraps zlib framed deflate as used by TIFF compression 8 and
// by PNG IDAT chunks.
package deflate

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	// TiffLevel is the zlib level of deflate TIFF payloads
	TiffLevel = 6
	// PNGLevel is the zlib level of PNG IDAT streams
	PNGLevel = 5
)

// Compress writes the zlib stream of every chunk produced by next into w.
// next returns nil once the input is exhausted.
func Compress(w io.Writer, level int, next func() []byte) error {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return fmt.Errorf("deflate: %w", err)
	}
	for chunk := next(); chunk != nil; chunk = next() {
		if _, err := zw.Write(chunk); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Decode inflates a zlib stream. expectedLen is a capacity hint.
func Decode(data []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	defer zr.Close()

	var out bytes.Buffer
	if expectedLen > 0 {
		out.Grow(expectedLen)
	}
	if _, err := io.Copy(&out, zr); err != nil {
		return out.Bytes(), fmt.Errorf("deflate: %w", err)
	}
	return out.Bytes(), nil
}
