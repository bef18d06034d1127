// Package pyramid reads the tiled TIFF files of a raster pyramid and serves
// them line by line.
//
// A pyramid file is a classic TIFF whose first IFD describes a tiled image.
// At HeaderSize starts an index of tilesNumber 4 byte little endian tile
// offsets followed by tilesNumber 4 byte tile sizes; the tiles follow.
package pyramid

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/options"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/jpfielding/rok4tile.go/pkg/tiff"
)

// HeaderSize is where the tile index starts
const HeaderSize = 2048

var (
	ErrTooShort               = errors.New("pyramid: file shorter than the pyramid header")
	ErrNotTiled               = errors.New("pyramid: image is not tiled")
	ErrInvalidGeometry        = errors.New("pyramid: invalid image geometry")
	ErrUnsupportedSample      = errors.New("pyramid: unsupported sample type")
	ErrUnsupportedCompression = errors.New("pyramid: unsupported compression")
	ErrInvalidTile            = errors.New("pyramid: tile index out of range")
)

// Config tunes a Reader.
type Config struct {
	// Lock guards the tile cache so one Reader may serve several goroutines.
	Lock bool
	// Georef places the image.
	Georef *raster.Georef
}

type Option = options.Option[*Config]

// WithLock makes the Reader safe for concurrent use.
func WithLock() Option {
	return options.NoError(func(c *Config) { c.Lock = true })
}

// WithGeoref attaches a placement to the image, used by GeoTIFF output. A
// zero resolution is derived from the bbox and the image size.
func WithGeoref(geo raster.Georef) Option {
	return options.NoError(func(c *Config) { c.Georef = &geo })
}

// Stats counts tile cache activity.
type Stats struct {
	Decodes  int64
	Hits     int64
	Failures int64
}

// Reader is a raster.Image over one pyramid file. It keeps one decoded tile
// per tile column: tile t lives in slot t % tilesWide, so a row band of tiles
// is decoded once while its lines are read.
//
// Without WithLock a Reader must not be shared between goroutines.
type Reader struct {
	path        string
	width       int
	height      int
	tileWidth   int
	tileHeight  int
	channels    int
	format      raster.SampleFormat
	compression tiff.Compression
	photometric uint16
	geo         *raster.Georef

	tilesWide   int
	tilesHigh   int
	tilesNumber int
	pixelSize   int
	tileSize    int
	tileLine    int

	mu    *sync.Mutex
	slots [][]byte
	index []int

	decodes  atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

// Open reads the geometry of a pyramid file. The file is closed before
// returning; tiles are read with positioned reads on demand.
func Open(path string, opts ...Option) (*Reader, error) {
	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < HeaderSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooShort, path, info.Size())
	}
	dir, err := tiff.ReadDirectory(f)
	if err != nil {
		return nil, fmt.Errorf("pyramid %s: %w", path, err)
	}

	r, err := newReader(path, dir)
	if err != nil {
		return nil, fmt.Errorf("pyramid %s: %w", path, err)
	}
	if end := int64(HeaderSize + 8*r.tilesNumber); end > info.Size() {
		return nil, fmt.Errorf("%w: tile index ends at %d past %d bytes", ErrInvalidGeometry, end, info.Size())
	}
	if cfg.Georef != nil {
		r.geo = raster.WithGeoref(r, *cfg.Georef).Georef()
	}
	if cfg.Lock {
		r.mu = &sync.Mutex{}
	}
	return r, nil
}

func newReader(path string, dir *tiff.Directory) (*Reader, error) {
	l := dir.Layout
	if l.TileWidth == 0 || l.TileLength == 0 {
		return nil, ErrNotTiled
	}
	r := &Reader{
		path:        path,
		width:       int(l.ImageWidth),
		height:      int(l.ImageLength),
		tileWidth:   int(l.TileWidth),
		tileHeight:  int(l.TileLength),
		channels:    1,
		format:      raster.Uint,
		compression: tiff.CompressionNone,
		photometric: l.Photometric,
	}
	if l.SamplesPerPixel > 0 {
		r.channels = int(l.SamplesPerPixel)
	}
	if len(l.SampleFormat) > 0 {
		r.format = raster.SampleFormat(l.SampleFormat[0])
	}
	if l.Compression > 0 {
		r.compression = tiff.Compression(l.Compression)
	}
	bits := 1
	if len(l.BitsPerSample) > 0 {
		bits = int(l.BitsPerSample[0])
	}
	if !(r.format == raster.Uint && bits == 8) && !(r.format == raster.Float && bits == 32) {
		return nil, fmt.Errorf("%w: %d bits %s", ErrUnsupportedSample, bits, r.format)
	}
	if len(l.ExtraSamples) > 0 && l.ExtraSamples[0] == 1 {
		return nil, fmt.Errorf("%w: associated alpha", ErrUnsupportedSample)
	}
	if r.width <= 0 || r.height <= 0 || r.tileWidth <= 0 || r.tileHeight <= 0 || r.channels <= 0 ||
		r.width%r.tileWidth != 0 || r.height%r.tileHeight != 0 {
		return nil, fmt.Errorf("%w: %dx%d image in %dx%d tiles, %d channels", ErrInvalidGeometry,
			r.width, r.height, r.tileWidth, r.tileHeight, r.channels)
	}

	r.pixelSize = r.channels * bits / 8
	r.tilesWide = r.width / r.tileWidth
	r.tilesHigh = r.height / r.tileHeight
	r.tilesNumber = r.tilesWide * r.tilesHigh
	r.tileLine = r.tileWidth * r.pixelSize
	r.tileSize = r.tileLine * r.tileHeight
	r.slots = make([][]byte, r.tilesWide)
	r.index = make([]int, r.tilesWide)
	for i := range r.index {
		r.index[i] = -1
	}
	return r, nil
}

func (r *Reader) lock() func() {
	if r.mu == nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// TileSource returns the encoded bytes of a tile as a DataSource.
func (r *Reader) TileSource(tile int) (*datasource.FileSource, error) {
	if tile < 0 || tile >= r.tilesNumber {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidTile, tile, r.tilesNumber)
	}
	return datasource.NewFileSource(r.path,
		int64(HeaderSize+4*tile),
		int64(HeaderSize+4*r.tilesNumber+4*tile),
		"application/octet-stream"), nil
}

// MemorizeRawTile returns the decoded tile, decoding it into its cache slot
// when the slot holds another tile. The slice is the slot itself and is
// overwritten by later calls. nil means the tile could not be read.
func (r *Reader) MemorizeRawTile(tile int) []byte {
	defer r.lock()()
	return r.memorize(tile)
}

func (r *Reader) memorize(tile int) []byte {
	if tile < 0 || tile >= r.tilesNumber {
		slog.Error("invalid tile index", "file", r.path, "tile", tile, "tiles", r.tilesNumber)
		r.failures.Add(1)
		return nil
	}
	slot := tile % len(r.slots)
	if r.index[slot] == tile {
		r.hits.Add(1)
		return r.slots[slot]
	}

	src, _ := r.TileSource(tile)
	defer src.Release()
	encoded := src.Data()
	if len(encoded) == 0 {
		slog.Error("cannot read tile", "file", r.path, "tile", tile, "error", src.Err())
		r.failures.Add(1)
		return nil
	}
	data, err := decodeTile(r.compression, encoded, r.channels, r.tileSize)
	if err != nil || len(data) == 0 {
		slog.Error("cannot decode tile", "file", r.path, "tile", tile, "compression", r.compression.String(), "error", err)
		r.failures.Add(1)
		return nil
	}
	if len(data) != r.tileSize {
		slog.Warn("unexpected raw tile size", "file", r.path, "tile", tile, "size", len(data), "expected", r.tileSize)
	}

	if r.slots[slot] == nil {
		r.slots[slot] = make([]byte, r.tileSize)
	}
	n := copy(r.slots[slot], data)
	clear(r.slots[slot][n:])
	r.index[slot] = tile
	r.decodes.Add(1)
	return r.slots[slot]
}

// GetLine assembles one image row from the tiles of its row band.
func (r *Reader) GetLine(buf []byte, line int) int {
	size := r.width * r.pixelSize
	if line < 0 || line >= r.height || len(buf) < size {
		return 0
	}
	defer r.lock()()
	row, sub := line/r.tileHeight, line%r.tileHeight
	for col := 0; col < r.tilesWide; col++ {
		tile := r.memorize(row*r.tilesWide + col)
		if tile == nil {
			return 0
		}
		copy(buf[col*r.tileLine:(col+1)*r.tileLine], tile[sub*r.tileLine:(sub+1)*r.tileLine])
	}
	return size
}

func (r *Reader) Width() int                        { return r.width }
func (r *Reader) Height() int                       { return r.height }
func (r *Reader) Channels() int                     { return r.channels }
func (r *Reader) SampleFormat() raster.SampleFormat { return r.format }

// Georef is the placement given with WithGeoref, or nil.
func (r *Reader) Georef() *raster.Georef { return r.geo }

func (r *Reader) Path() string                  { return r.path }
func (r *Reader) TileWidth() int                { return r.tileWidth }
func (r *Reader) TileHeight() int               { return r.tileHeight }
func (r *Reader) TilesWide() int                { return r.tilesWide }
func (r *Reader) TilesHigh() int                { return r.tilesHigh }
func (r *Reader) TilesNumber() int              { return r.tilesNumber }
func (r *Reader) PixelSize() int                { return r.pixelSize }
func (r *Reader) RawTileSize() int              { return r.tileSize }
func (r *Reader) Compression() tiff.Compression { return r.compression }
func (r *Reader) Photometric() uint16           { return r.photometric }

// Stats returns the cache counters.
func (r *Reader) Stats() Stats {
	return Stats{Decodes: r.decodes.Load(), Hits: r.hits.Load(), Failures: r.failures.Load()}
}
