package tiff

import (
	"encoding/binary"
	"fmt"
	"io"

	gtiff "github.com/google/tiff"
)

// Layout is the part of a tiled pyramid directory the reader needs.
type Layout struct {
	ImageWidth      uint32   `tiff:"field,tag=256"`
	ImageLength     uint32   `tiff:"field,tag=257"`
	BitsPerSample   []uint16 `tiff:"field,tag=258"`
	Compression     uint16   `tiff:"field,tag=259"`
	Photometric     uint16   `tiff:"field,tag=262"`
	SamplesPerPixel uint16   `tiff:"field,tag=277"`
	TileWidth       uint32   `tiff:"field,tag=322"`
	TileLength      uint32   `tiff:"field,tag=323"`
	ExtraSamples    []uint16 `tiff:"field,tag=338"`
	SampleFormat    []uint16 `tiff:"field,tag=339"`
}

// Directory is the first IFD of a file: its typed layout plus the raw values
// of every BYTE, SHORT and LONG tag.
type Directory struct {
	Layout
	ByteOrder binary.ByteOrder
	Tags      map[uint16][]uint32

	ifd gtiff.IFD
}

// First returns the first value of a tag, or 0.
func (d *Directory) First(tag uint16) uint32 {
	if v := d.Tags[tag]; len(v) > 0 {
		return v[0]
	}
	return 0
}

// Has reports a present tag, whatever its type.
func (d *Directory) Has(tag uint16) bool {
	return d.ifd.HasField(tag)
}

// ReadAtSeeker is what the directory parser reads from: files and
// bytes.Reader both qualify.
type ReadAtSeeker interface {
	io.ReaderAt
	io.ReadSeeker
}

// ReadDirectory parses the first IFD of a classic TIFF.
func ReadDirectory(r ReadAtSeeker) (*Directory, error) {
	tif, err := gtiff.Parse(r, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTIFF, err)
	}
	ifds := tif.IFDs()
	if len(ifds) == 0 {
		return nil, fmt.Errorf("%w: no directory", ErrNotTIFF)
	}
	d := &Directory{Tags: map[uint16][]uint32{}, ifd: ifds[0]}
	if err := gtiff.UnmarshalIFD(d.ifd, &d.Layout); err != nil {
		return nil, fmt.Errorf("tiff: directory: %w", err)
	}
	for _, f := range d.ifd.Fields() {
		v := f.Value()
		d.ByteOrder = v.Order()
		if values := integers(f.Type().ID(), int(f.Count()), v.Order(), v.Bytes()); values != nil {
			d.Tags[f.Tag().ID()] = values
		}
	}
	return d, nil
}

// integers widens the count BYTE, SHORT or LONG values at the head of raw;
// other types give nil.
func integers(typ uint16, count int, order binary.ByteOrder, raw []byte) []uint32 {
	size := 0
	switch typ {
	case TypeByte, TypeShort, TypeLong:
		size = typeSize[typ]
	default:
		return nil
	}
	out := make([]uint32, min(count, len(raw)/size))
	for i := range out {
		switch typ {
		case TypeByte:
			out[i] = uint32(raw[i])
		case TypeShort:
			out[i] = uint32(order.Uint16(raw[2*i:]))
		case TypeLong:
			out[i] = order.Uint32(raw[4*i:])
		}
	}
	return out
}
