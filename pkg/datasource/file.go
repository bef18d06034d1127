package datasource

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// MaxTileSize is the largest tile a pyramid may declare; anything bigger is
// taken as a corrupt index.
const MaxTileSize = 1 << 20

var ErrTileTooLarge = errors.New("datasource: tile size exceeds maximum")

// FileSource reads one tile of a pyramid file. The tile offset and size are
// 4 byte little endian fields at posOff and posSize. The file is opened for
// each load and closed before returning.
type FileSource struct {
	path    string
	posOff  int64
	posSize int64
	mime    string

	data     []byte
	loaded   bool
	released bool
	status   int
	err      error
}

func NewFileSource(path string, posOff, posSize int64, mime string) *FileSource {
	return &FileSource{path: path, posOff: posOff, posSize: posSize, mime: mime, status: http.StatusOK}
}

// Data loads the tile on first call; after Release it stays nil.
func (f *FileSource) Data() []byte {
	if f.loaded || f.released {
		return f.data
	}
	f.loaded = true
	data, err := f.load()
	if err != nil {
		f.err = err
		f.status = http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			f.status = http.StatusNotFound
		}
		slog.Error("cannot read tile", "file", f.path, "error", err)
		return nil
	}
	f.data = data
	return f.data
}

func (f *FileSource) load() ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var field [4]byte
	if _, err := fh.ReadAt(field[:], f.posOff); err != nil {
		return nil, fmt.Errorf("tile offset at %d: %w", f.posOff, err)
	}
	offset := binary.LittleEndian.Uint32(field[:])
	if _, err := fh.ReadAt(field[:], f.posSize); err != nil {
		return nil, fmt.Errorf("tile size at %d: %w", f.posSize, err)
	}
	size := binary.LittleEndian.Uint32(field[:])
	if size > MaxTileSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTileTooLarge, size, MaxTileSize)
	}

	data := make([]byte, size)
	if _, err := fh.ReadAt(data, int64(offset)); err != nil {
		return nil, fmt.Errorf("tile data at %d (%d bytes): %w", offset, size, err)
	}
	return data, nil
}

func (f *FileSource) Release() bool {
	f.data = nil
	f.released = true
	return true
}

// Err is the failure of the last load, if any.
func (f *FileSource) Err() error { return f.err }

func (f *FileSource) Type() string     { return f.mime }
func (f *FileSource) HTTPStatus() int  { return f.status }
func (f *FileSource) Encoding() string { return "" }
