// Package compress holds the shared output buffer used by the whole-image
// compressors and the codec sub-packages (deflate, lzw, packbits).
package compress

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxBuffer caps the output buffer of a single compression pass.
const DefaultMaxBuffer = 256 << 20

// ErrBufferLimit is returned when compressed output does not fit the largest
// allowed buffer.
var ErrBufferLimit = errors.New("compress: output exceeds buffer limit")

// Bounded is a fixed capacity io.Writer. A write that does not fit fails with
// io.ErrShortBuffer and leaves the buffer unchanged.
type Bounded struct {
	buf []byte
}

// NewBounded allocates a buffer of the given capacity.
func NewBounded(capacity int) *Bounded {
	return &Bounded{buf: make([]byte, 0, capacity)}
}

func (b *Bounded) Write(p []byte) (int, error) {
	if len(b.buf)+len(p) > cap(b.buf) {
		return 0, io.ErrShortBuffer
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Bytes returns the written bytes.
func (b *Bounded) Bytes() []byte { return b.buf }

// Len is the number of written bytes.
func (b *Bounded) Len() int { return len(b.buf) }

// Cap is the buffer capacity.
func (b *Bounded) Cap() int { return cap(b.buf) }

// Grow runs fn against a buffer of initial capacity and, whenever fn reports
// io.ErrShortBuffer, starts over from scratch with twice the capacity. Once
// the capacity reached limit the error is ErrBufferLimit.
func Grow(initial, limit int, fn func(w *Bounded) error) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBuffer
	}
	size := min(max(initial, 1), limit)
	for {
		b := NewBounded(size)
		err := fn(b)
		if err == nil {
			return b.Bytes(), nil
		}
		if !errors.Is(err, io.ErrShortBuffer) {
			return nil, err
		}
		if size >= limit {
			return nil, fmt.Errorf("%w (%d bytes)", ErrBufferLimit, limit)
		}
		size = min(size*2, limit)
	}
}
