// Package nodata synthesises the constant tiles served where a pyramid has no
// data, and shares them across requests.
package nodata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/encoder"
	"github.com/jpfielding/rok4tile.go/pkg/format"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/jpfielding/rok4tile.go/pkg/util"
)

var ErrEmptyTile = errors.New("no-data tile encoded to nothing")

// Params fully determines a no-data tile.
type Params struct {
	Format   format.Format `json:"format"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Channels int           `json:"channels"`
	Color    []int         `json:"color"`
}

// ID is the deterministic identifier of the tile described by p.
func (p Params) ID() string {
	return util.HashUUID(util.NoDataNamespace, p)
}

func (p Params) validate() error {
	if p.Width <= 0 || p.Height <= 0 || p.Channels <= 0 {
		return fmt.Errorf("invalid no-data geometry %dx%dx%d", p.Width, p.Height, p.Channels)
	}
	if p.Format == format.Unknown {
		return fmt.Errorf("no-data format: %w", encoder.ErrUnsupportedFormat)
	}
	return nil
}

// Source is a fully encoded constant tile held in memory.
type Source struct {
	params   Params
	data     []byte
	mime     string
	encoding string
	id       string
	etag     string
}

// New builds the constant image described by p, encodes it in p.Format and
// keeps the result. Identical params always yield identical bytes.
func New(p Params, opts ...encoder.Option) (*Source, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	img := raster.NewEmptyImage(p.Width, p.Height, p.Channels, p.Color, p.Format.SampleFormat())
	enc, err := encoder.New(img, p.Format, opts...)
	if err != nil {
		return nil, fmt.Errorf("no-data %s: %w", p.Format, err)
	}
	buf := datasource.NewBufferedSource(enc)
	if e, ok := enc.(interface{ Err() error }); ok && e.Err() != nil {
		return nil, fmt.Errorf("no-data %s: %w", p.Format, e.Err())
	}
	if buf.Size() == 0 {
		return nil, fmt.Errorf("no-data %s: %w", p.Format, ErrEmptyTile)
	}
	return &Source{
		params:   p,
		data:     buf.Data(),
		mime:     buf.Type(),
		encoding: buf.Encoding(),
		id:       p.ID(),
		etag:     datasource.ETag(buf.Data()),
	}, nil
}

func (s *Source) Data() []byte { return s.data }

// Release drops the encoded bytes.
func (s *Source) Release() bool {
	s.data = nil
	return true
}

func (s *Source) Type() string     { return s.mime }
func (s *Source) HTTPStatus() int  { return http.StatusOK }
func (s *Source) Encoding() string { return s.encoding }

func (s *Source) ID() string     { return s.id }
func (s *Source) ETag() string   { return s.etag }
func (s *Source) Params() Params { return s.params }
