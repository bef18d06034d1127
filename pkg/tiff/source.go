package tiff

import (
	"log/slog"

	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// HeaderSource turns a raw pyramid tile into a standalone TIFF by
// prepending a patched single strip header.
type HeaderSource struct {
	tile        datasource.DataSource
	compression Compression
	format      raster.SampleFormat
	channels    int
	width       int
	height      int

	data []byte
	done bool
}

func NewHeaderSource(tile datasource.DataSource, c Compression, sf raster.SampleFormat, channels, width, height int) *HeaderSource {
	return &HeaderSource{tile: tile, compression: c, format: sf, channels: channels, width: width, height: height}
}

func (s *HeaderSource) Data() []byte {
	if s.done {
		return s.data
	}
	s.done = true
	payload := s.tile.Data()
	if len(payload) == 0 {
		return nil
	}
	h, err := NewHeader(s.compression, s.format, s.channels, s.width, s.height, len(payload))
	if err != nil {
		slog.Error("cannot build tile header", "error", err)
		return nil
	}
	s.data = make([]byte, 0, h.Len()+len(payload))
	s.data = append(s.data, h.Bytes()...)
	s.data = append(s.data, payload...)
	return s.data
}

func (s *HeaderSource) Release() bool {
	s.data = nil
	return s.tile.Release()
}

func (s *HeaderSource) Type() string { return "image/tiff" }

func (s *HeaderSource) HTTPStatus() int { return s.tile.HTTPStatus() }

func (s *HeaderSource) Encoding() string { return "" }
