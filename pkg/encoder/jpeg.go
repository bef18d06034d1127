package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// MinJPEGRead is the smallest buffer JPEGEncoder.Read writes into
const MinJPEGRead = 1024

// JPEGEncoder compresses 8 bit gray, RGB or RGBX images. The alpha channel
// of four channel images is dropped. The whole image is compressed on the
// first Read and held until drained, so memory grows with the encoded size.
type JPEGEncoder struct {
	img     raster.Image
	quality int

	prepared bool
	out      []byte
	pos      int
	err      error
}

func NewJPEGEncoder(img raster.Image, opts ...Option) (*JPEGEncoder, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if img.SampleFormat() != raster.Uint {
		return nil, fmt.Errorf("%w: jpeg needs uint8 samples, got %s", ErrUnsupportedImage, img.SampleFormat())
	}
	switch img.Channels() {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("%w: jpeg of %d channels", ErrUnsupportedImage, img.Channels())
	}
	return &JPEGEncoder{img: img, quality: cfg.Quality}, nil
}

// toImage copies the scanlines into the image type image/jpeg encodes
// fastest for the channel count.
func toImage(img raster.Image) (image.Image, error) {
	w, h, ch := img.Width(), img.Height(), img.Channels()
	rect := image.Rect(0, 0, w, h)
	if ch == 1 {
		gray := image.NewGray(rect)
		for y := 0; y < h; y++ {
			if n := img.GetLine(gray.Pix[y*gray.Stride:(y+1)*gray.Stride], y); n != w {
				return nil, fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, y, n, w)
			}
		}
		return gray, nil
	}
	rgba := image.NewRGBA(rect)
	line := make([]byte, raster.LineSize(img))
	for y := 0; y < h; y++ {
		if n := img.GetLine(line, y); n != len(line) {
			return nil, fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, y, n, len(line))
		}
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			copy(row[4*x:4*x+3], line[ch*x:ch*x+3])
			row[4*x+3] = 0xFF
		}
	}
	return rgba, nil
}

func (j *JPEGEncoder) prepare() {
	if j.prepared {
		return
	}
	j.prepared = true
	img, err := toImage(j.img)
	if err == nil {
		var buf bytes.Buffer
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: j.quality})
		j.out = buf.Bytes()
	}
	if err != nil {
		slog.Error("jpeg encoding failed", "error", err)
		j.err = err
		j.out = nil
	}
}

// Read returns 0 for buffers smaller than MinJPEGRead.
func (j *JPEGEncoder) Read(p []byte) int {
	if len(p) < MinJPEGRead {
		return 0
	}
	j.prepare()
	n := copy(p, j.out[j.pos:])
	j.pos += n
	return n
}

// EOF reports that every encoded byte was delivered.
func (j *JPEGEncoder) EOF() bool { return j.prepared && j.pos >= len(j.out) }

// Err is the encoding failure, if any.
func (j *JPEGEncoder) Err() error { return j.err }

func (j *JPEGEncoder) Type() string     { return "image/jpeg" }
func (j *JPEGEncoder) HTTPStatus() int  { return http.StatusOK }
func (j *JPEGEncoder) Encoding() string { return "" }
