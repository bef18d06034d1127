package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"net/http"

	"github.com/jpfielding/rok4tile.go/pkg/compress/deflate"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG colour types
const (
	pngGray    = 0
	pngRGB     = 2
	pngPalette = 3
	pngRGBA    = 6
)

// idatSize is the compressed size at which an IDAT chunk is cut
const idatSize = 32 << 10

// PNGEncoder streams an 8 bit PNG: IHDR, IDAT chunks of filter 0 rows and
// IEND. Rows are compressed as the stream is pulled.
type PNGEncoder struct {
	img       raster.Image
	level     int
	colorType byte
	plte      []byte
	trns      []byte

	started  bool
	finished bool
	y        int
	row      []byte
	zbuf     bytes.Buffer
	zw       *zlib.Writer
	pending  bytes.Buffer
	err      error
}

// NewPNGEncoder encodes gray, RGB or RGBA images.
func NewPNGEncoder(img raster.Image, opts ...Option) (*PNGEncoder, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if img.SampleFormat() != raster.Uint {
		return nil, fmt.Errorf("%w: png needs uint8 samples, got %s", ErrUnsupportedImage, img.SampleFormat())
	}
	var ct byte
	switch img.Channels() {
	case 1:
		ct = pngGray
	case 3:
		ct = pngRGB
	case 4:
		ct = pngRGBA
	default:
		return nil, fmt.Errorf("%w: png of %d channels", ErrUnsupportedImage, img.Channels())
	}
	return &PNGEncoder{img: img, level: cfg.deflateLevel(deflate.PNGLevel), colorType: ct}, nil
}

// NewPalettePNGEncoder colourises a gray image through a 256 entry palette.
// Opaque palettes fade from rgb at 0 to white at 255. Transparent palettes
// are rgb everywhere with alpha falling from 255 at 0 to 0 at 255.
func NewPalettePNGEncoder(img raster.Image, rgb [3]uint8, transparent bool, opts ...Option) (*PNGEncoder, error) {
	if img.Channels() != 1 {
		return nil, fmt.Errorf("%w: palette png of %d channels", ErrUnsupportedImage, img.Channels())
	}
	e, err := NewPNGEncoder(img, opts...)
	if err != nil {
		return nil, err
	}
	e.colorType = pngPalette
	e.plte = make([]byte, 3*256)
	for i := 0; i < 256; i++ {
		for c := 0; c < 3; c++ {
			v := int(rgb[c])
			if !transparent {
				v = i + ((255-i)*v+127)/255
			}
			e.plte[3*i+c] = byte(v)
		}
	}
	if transparent {
		e.trns = make([]byte, 256)
		for i := range e.trns {
			e.trns[i] = byte(255 - i)
		}
	}
	return e, nil
}

func (e *PNGEncoder) chunk(kind string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	e.pending.Write(length[:])
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(data)
	e.pending.WriteString(kind)
	e.pending.Write(data)
	e.pending.Write(crc.Sum(nil))
}

func (e *PNGEncoder) start() error {
	e.started = true
	e.pending.Write(pngSignature)
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(e.img.Width()))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(e.img.Height()))
	ihdr[8] = 8
	ihdr[9] = e.colorType
	e.chunk("IHDR", ihdr)
	if e.plte != nil {
		e.chunk("PLTE", e.plte)
	}
	if e.trns != nil {
		e.chunk("tRNS", e.trns)
	}
	zw, err := zlib.NewWriterLevel(&e.zbuf, e.level)
	if err != nil {
		return err
	}
	e.zw = zw
	e.row = make([]byte, 1+raster.LineSize(e.img))
	return nil
}

// step compresses one row, or finishes the stream after the last one.
func (e *PNGEncoder) step() error {
	if e.y < e.img.Height() {
		if n := e.img.GetLine(e.row[1:], e.y); n != len(e.row)-1 {
			return fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, e.y, n, len(e.row)-1)
		}
		if _, err := e.zw.Write(e.row); err != nil {
			return err
		}
		e.y++
		if e.zbuf.Len() >= idatSize {
			e.chunk("IDAT", e.zbuf.Bytes())
			e.zbuf.Reset()
		}
		return nil
	}
	if err := e.zw.Close(); err != nil {
		return err
	}
	if e.zbuf.Len() > 0 {
		e.chunk("IDAT", e.zbuf.Bytes())
		e.zbuf.Reset()
	}
	e.chunk("IEND", nil)
	e.finished = true
	return nil
}

func (e *PNGEncoder) fail(err error) {
	slog.Error("png encoding failed", "error", err)
	e.err = err
	e.finished = true
	e.pending.Reset()
}

func (e *PNGEncoder) Read(p []byte) int {
	if e.err != nil {
		return 0
	}
	if !e.started {
		if err := e.start(); err != nil {
			e.fail(err)
			return 0
		}
	}
	for !e.finished && e.pending.Len() < len(p) {
		if err := e.step(); err != nil {
			e.fail(err)
			return 0
		}
	}
	n, _ := e.pending.Read(p)
	return n
}

// EOF reports that IEND was delivered, or that encoding failed.
func (e *PNGEncoder) EOF() bool { return e.finished && e.pending.Len() == 0 }

// Err is the encoding failure, if any.
func (e *PNGEncoder) Err() error { return e.err }

func (e *PNGEncoder) Type() string     { return "image/png" }
func (e *PNGEncoder) HTTPStatus() int  { return http.StatusOK }
func (e *PNGEncoder) Encoding() string { return "" }
