package encoder

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// AscNoData is the NODATA_value written in the grid header
const AscNoData = -99999.0

// AscEncoder writes the first channel of an image as an ESRI ASCII grid.
// Each Read writes whole text lines; the header goes with the first row.
type AscEncoder struct {
	img  raster.Image
	geo  *raster.Georef
	line []byte
	text []byte
	y    int
	err  error
}

// NewAscEncoder needs a georeferenced image for the grid corner and cell
// size.
func NewAscEncoder(img raster.Image, opts ...Option) (*AscEncoder, error) {
	if _, err := newConfig(opts...); err != nil {
		return nil, err
	}
	geo := raster.GeorefOf(img)
	if geo == nil {
		return nil, fmt.Errorf("%w: ascii grid needs a georeferenced image", ErrUnsupportedImage)
	}
	if img.Channels() < 1 {
		return nil, fmt.Errorf("%w: ascii grid of %d channels", ErrUnsupportedImage, img.Channels())
	}
	return &AscEncoder{img: img, geo: geo, line: make([]byte, raster.LineSize(img))}, nil
}

func (a *AscEncoder) header() []byte {
	var out []byte
	out = fmt.Appendf(out, "ncols        %d\n", a.img.Width())
	out = fmt.Appendf(out, "nrows        %d\n", a.img.Height())
	out = fmt.Appendf(out, "xllcorner    %.8f\n", a.geo.BBox.XMin)
	out = fmt.Appendf(out, "yllcorner    %.8f\n", a.geo.BBox.YMin)
	out = fmt.Appendf(out, "cellsize     %.8f\n", a.geo.ResX)
	out = fmt.Appendf(out, "NODATA_value %.2f\n", AscNoData)
	return out
}

func (a *AscEncoder) sample(x int) float64 {
	i := x * a.img.Channels()
	if a.img.SampleFormat() == raster.Float {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(a.line[4*i:])))
	}
	return float64(a.line[i])
}

// row renders the next line, prefixed with the header for the first one.
func (a *AscEncoder) row() ([]byte, error) {
	var out []byte
	if a.y == 0 {
		out = a.header()
	}
	if n := a.img.GetLine(a.line, a.y); n != len(a.line) {
		return nil, fmt.Errorf("%w: line %d gave %d of %d bytes", ErrShortLine, a.y, n, len(a.line))
	}
	for x := 0; x < a.img.Width(); x++ {
		out = append(out, ' ')
		out = strconv.AppendFloat(out, a.sample(x), 'f', 2, 64)
	}
	return append(out, '\n'), nil
}

// Read returns 0 when p cannot hold the next line.
func (a *AscEncoder) Read(p []byte) int {
	off := 0
	for {
		if a.text == nil {
			if a.y >= a.img.Height() {
				return off
			}
			text, err := a.row()
			if err != nil {
				a.err = err
				slog.Error("ascii grid encoding failed", "error", err)
				a.y = a.img.Height()
				return off
			}
			a.text = text
		}
		if off+len(a.text) > len(p) {
			return off
		}
		off += copy(p[off:], a.text)
		a.text = nil
		a.y++
	}
}

func (a *AscEncoder) EOF() bool { return a.text == nil && a.y >= a.img.Height() }

// Err is the encoding failure, if any.
func (a *AscEncoder) Err() error { return a.err }

func (a *AscEncoder) Type() string     { return "text/plain" }
func (a *AscEncoder) HTTPStatus() int  { return http.StatusOK }
func (a *AscEncoder) Encoding() string { return "" }
