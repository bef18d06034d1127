package pyramid

import (
	"encoding/binary"
	"fmt"
	"os"
)

// TileIndex reads the offset and size recorded for a tile.
func (r *Reader) TileIndex(tile int) (offset, size uint32, err error) {
	if tile < 0 || tile >= r.tilesNumber {
		return 0, 0, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidTile, tile, r.tilesNumber)
	}
	f, err := os.Open(r.path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var field [4]byte
	if _, err := f.ReadAt(field[:], int64(HeaderSize+4*tile)); err != nil {
		return 0, 0, fmt.Errorf("tile %d offset: %w", tile, err)
	}
	offset = binary.LittleEndian.Uint32(field[:])
	if _, err := f.ReadAt(field[:], int64(HeaderSize+4*r.tilesNumber+4*tile)); err != nil {
		return 0, 0, fmt.Errorf("tile %d size: %w", tile, err)
	}
	return offset, binary.LittleEndian.Uint32(field[:]), nil
}
