package encoder

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// BilEncoder writes band interleaved by line float32 samples, little
// endian. Uint8 images are widened to float32.
type BilEncoder struct {
	img  raster.Image
	line []byte
	y    int
	err  error
}

func NewBilEncoder(img raster.Image, opts ...Option) (*BilEncoder, error) {
	if _, err := newConfig(opts...); err != nil {
		return nil, err
	}
	if img.Channels() < 1 {
		return nil, fmt.Errorf("%w: bil of %d channels", ErrUnsupportedImage, img.Channels())
	}
	return &BilEncoder{img: img, line: make([]byte, raster.LineSize(img))}, nil
}

// RowSize is the encoded size of one line.
func (b *BilEncoder) RowSize() int { return 4 * b.img.Width() * b.img.Channels() }

// Read writes as many whole lines as fit in p.
func (b *BilEncoder) Read(p []byte) int {
	size := b.RowSize()
	off := 0
	for ; b.y < b.img.Height() && off+size <= len(p); b.y++ {
		if n := b.img.GetLine(b.line, b.y); n != len(b.line) {
			b.err = fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, b.y, n, len(b.line))
			slog.Error("bil encoding failed", "error", b.err)
			b.y = b.img.Height()
			return off
		}
		b.put(p[off : off+size])
		off += size
	}
	return off
}

// put reorders one pixel interleaved line into bands.
func (b *BilEncoder) put(dst []byte) {
	w, ch := b.img.Width(), b.img.Channels()
	float := b.img.SampleFormat() == raster.Float
	for c := 0; c < ch; c++ {
		band := dst[4*w*c:]
		for x := 0; x < w; x++ {
			i := x*ch + c
			if float {
				copy(band[4*x:4*x+4], b.line[4*i:4*i+4])
			} else {
				binary.LittleEndian.PutUint32(band[4*x:], math.Float32bits(float32(b.line[i])))
			}
		}
	}
}

func (b *BilEncoder) EOF() bool { return b.y >= b.img.Height() }

// Err is the encoding failure, if any.
func (b *BilEncoder) Err() error { return b.err }

func (b *BilEncoder) Type() string     { return "image/x-bil;bits=32" }
func (b *BilEncoder) HTTPStatus() int  { return http.StatusOK }
func (b *BilEncoder) Encoding() string { return "" }
