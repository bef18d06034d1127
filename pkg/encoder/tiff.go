package encoder

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jpfielding/rok4tile.go/pkg/compress"
	"github.com/jpfielding/rok4tile.go/pkg/compress/deflate"
	"github.com/jpfielding/rok4tile.go/pkg/compress/lzw"
	"github.com/jpfielding/rok4tile.go/pkg/compress/packbits"
	"github.com/jpfielding/rok4tile.go/pkg/format"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/jpfielding/rok4tile.go/pkg/tiff"
)

type tiffState int

const (
	statePending tiffState = iota
	stateHeader
	statePayload
	stateDone
)

// payloadFunc compresses every scanline of an image into one strip.
type payloadFunc func(img raster.Image, cfg *Config) ([]byte, error)

// TiffEncoder streams a single strip TIFF: the header is written in one
// piece, then the payload. Both are built lazily on the first Read or Length.
type TiffEncoder struct {
	img         raster.Image
	cfg         *Config
	compression tiff.Compression
	payloadFn   payloadFunc
	geo         *raster.Georef

	state   tiffState
	header  []byte
	payload []byte
	pos     int
	err     error
	// geotagged is set once placement tags made it into the header
	geotagged bool
}

func newTiff(img raster.Image, c tiff.Compression, fn payloadFunc, opts ...Option) (*TiffEncoder, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if tiff.HeaderSize(img.Channels()) == 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedImage, img.Channels())
	}
	e := &TiffEncoder{img: img, cfg: cfg, compression: c, payloadFn: fn}
	if cfg.GeoTIFF {
		e.geo = raster.GeorefOf(img)
	}
	return e, nil
}

// NewTiffRawEncoder writes uncompressed scanlines.
func NewTiffRawEncoder(img raster.Image, opts ...Option) (*TiffEncoder, error) {
	return newTiff(img, tiff.CompressionNone, rawPayload, opts...)
}

// NewTiffLZWEncoder compresses the whole image as one LZW block.
func NewTiffLZWEncoder(img raster.Image, opts ...Option) (*TiffEncoder, error) {
	return newTiff(img, tiff.CompressionLZW, lzwPayload, opts...)
}

// NewTiffDeflateEncoder compresses the whole image as one zlib stream.
func NewTiffDeflateEncoder(img raster.Image, opts ...Option) (*TiffEncoder, error) {
	return newTiff(img, tiff.CompressionDeflate, deflatePayload, opts...)
}

// NewTiffPackBitsEncoder compresses each scanline separately.
func NewTiffPackBitsEncoder(img raster.Image, opts ...Option) (*TiffEncoder, error) {
	return newTiff(img, tiff.CompressionPackBits, packbitsPayload, opts...)
}

// NewTiffEncoder picks the TIFF encoder of a pyramid format. The sample
// format of img must match the format.
func NewTiffEncoder(img raster.Image, f format.Format, geotiff bool, opts ...Option) (*TiffEncoder, error) {
	if f.SampleFormat() != img.SampleFormat() {
		return nil, fmt.Errorf("%w: %s image for %s", ErrUnsupportedImage, img.SampleFormat(), f)
	}
	opts = append(opts, WithGeoTIFF(geotiff))
	switch f.Compression() {
	case format.CompressionNone:
		return NewTiffRawEncoder(img, opts...)
	case format.CompressionLZW:
		return NewTiffLZWEncoder(img, opts...)
	case format.CompressionDeflate:
		return NewTiffDeflateEncoder(img, opts...)
	case format.CompressionPackBits:
		return NewTiffPackBitsEncoder(img, opts...)
	default:
		return nil, fmt.Errorf("%w: %s is not a tiff format", ErrUnsupportedFormat, f)
	}
}

// prepare builds the payload then the header, once.
func (e *TiffEncoder) prepare() {
	if e.state != statePending {
		return
	}
	payload, err := e.payloadFn(e.img, e.cfg)
	if err != nil {
		e.fail(fmt.Errorf("%s payload: %w", e.compression, err))
		return
	}
	h, err := tiff.NewHeader(e.compression, e.img.SampleFormat(), e.img.Channels(), e.img.Width(), e.img.Height(), len(payload))
	if err != nil {
		e.fail(err)
		return
	}
	header := h.Bytes()
	if e.cfg.GeoTIFF {
		plain := len(header)
		header, err = tiff.InsertGeoTags(header, e.geo)
		if err != nil {
			slog.Warn("geotiff tags skipped", "error", err)
		}
		e.geotagged = err == nil && len(header) > plain
	}
	e.header, e.payload = header, payload
	e.state = stateHeader
}

func (e *TiffEncoder) fail(err error) {
	slog.Error("tiff encoding failed", "compression", e.compression.String(), "error", err)
	e.err = err
	e.header, e.payload = nil, nil
	e.state = stateDone
}

// Read returns 0 while p cannot hold the whole header.
func (e *TiffEncoder) Read(p []byte) int {
	e.prepare()
	if e.state == stateDone || len(p) < len(e.header) {
		return 0
	}
	n := 0
	if e.state == stateHeader {
		n = copy(p, e.header)
		e.state = statePayload
	}
	c := copy(p[n:], e.payload[e.pos:])
	e.pos += c
	if e.pos >= len(e.payload) {
		e.state = stateDone
	}
	return n + c
}

// EOF reports that the header and the whole payload were delivered, or that
// encoding failed.
func (e *TiffEncoder) EOF() bool { return e.state == stateDone }

// Length is the full size of the file: header plus payload.
func (e *TiffEncoder) Length() int {
	e.prepare()
	return len(e.header) + len(e.payload)
}

// Err is the encoding failure, if any.
func (e *TiffEncoder) Err() error { return e.err }

// Type is image/geotiff when placement tags are written, which is only known
// once the header is built.
func (e *TiffEncoder) Type() string {
	e.prepare()
	if e.geotagged {
		return "image/geotiff"
	}
	return "image/tiff"
}

func (e *TiffEncoder) HTTPStatus() int  { return http.StatusOK }
func (e *TiffEncoder) Encoding() string { return "" }

// scanlines calls fn with every row of img, reusing one buffer.
func scanlines(img raster.Image, fn func(line []byte) error) error {
	buf := make([]byte, raster.LineSize(img))
	for y := 0; y < img.Height(); y++ {
		if n := img.GetLine(buf, y); n != len(buf) {
			return fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, y, n, len(buf))
		}
		if err := fn(buf); err != nil {
			return err
		}
	}
	return nil
}

func rawSize(img raster.Image) int { return raster.LineSize(img) * img.Height() }

func rawPayload(img raster.Image, _ *Config) ([]byte, error) {
	out := make([]byte, 0, rawSize(img))
	err := scanlines(img, func(line []byte) error {
		out = append(out, line...)
		return nil
	})
	return out, err
}

func lzwPayload(img raster.Image, cfg *Config) ([]byte, error) {
	return compress.Grow(rawSize(img), cfg.MaxBuffer, func(b *compress.Bounded) error {
		w := lzw.NewWriter(b)
		if err := scanlines(img, func(line []byte) error {
			_, err := w.Write(line)
			return err
		}); err != nil {
			return err
		}
		return w.Close()
	})
}

func deflatePayload(img raster.Image, cfg *Config) ([]byte, error) {
	level := cfg.deflateLevel(deflate.TiffLevel)
	return compress.Grow(rawSize(img), cfg.MaxBuffer, func(b *compress.Bounded) error {
		buf := make([]byte, raster.LineSize(img))
		y := 0
		var lineErr error
		err := deflate.Compress(b, level, func() []byte {
			if y >= img.Height() || lineErr != nil {
				return nil
			}
			if n := img.GetLine(buf, y); n != len(buf) {
				lineErr = fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, y, n, len(buf))
				return nil
			}
			y++
			return buf
		})
		if lineErr != nil {
			return lineErr
		}
		return err
	})
}

func packbitsPayload(img raster.Image, cfg *Config) ([]byte, error) {
	// one header byte per 128 input bytes bounds the expansion
	size := raster.LineSize(img)
	initial := rawSize(img) + img.Height()*(size/128+1)
	return compress.Grow(initial, cfg.MaxBuffer, func(b *compress.Bounded) error {
		var packed []byte
		return scanlines(img, func(line []byte) error {
			packed = packbits.Append(packed[:0], line)
			_, err := b.Write(packed)
			return err
		})
	})
}
