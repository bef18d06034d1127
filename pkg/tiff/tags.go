// Package tiff builds the single strip TIFF headers prepended to encoded
// payloads, extends them with GeoTIFF tags, and reads the directory of tiled
// pyramid files.
package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag ids
const (
	TagImageWidth      uint16 = 256
	TagImageLength     uint16 = 257
	TagBitsPerSample   uint16 = 258
	TagCompression     uint16 = 259
	TagPhotometric     uint16 = 262
	TagStripOffsets    uint16 = 273
	TagSamplesPerPixel uint16 = 277
	TagRowsPerStrip    uint16 = 278
	TagStripByteCounts uint16 = 279
	TagTileWidth       uint16 = 322
	TagTileLength      uint16 = 323
	TagTileOffsets     uint16 = 324
	TagTileByteCounts  uint16 = 325
	TagExtraSamples    uint16 = 338
	TagSampleFormat    uint16 = 339

	TagModelPixelScale uint16 = 33550
	TagModelTiepoint   uint16 = 33922
	TagGeoKeyDirectory uint16 = 34735
	TagGeoDoubleParams uint16 = 34736
	TagGeoAsciiParams  uint16 = 34737
)

// Field types
const (
	TypeByte   uint16 = 1
	TypeASCII  uint16 = 2
	TypeShort  uint16 = 3
	TypeLong   uint16 = 4
	TypeDouble uint16 = 12
)

// typeSize is the byte size of one value of each field type
var typeSize = map[uint16]int{
	TypeByte:   1,
	TypeASCII:  1,
	TypeShort:  2,
	TypeLong:   4,
	5:          8, // rational
	6:          1,
	7:          1,
	8:          2,
	9:          4,
	10:         8,
	11:         4,
	TypeDouble: 8,
}

// Compression codes
type Compression uint16

const (
	CompressionNone         Compression = 1
	CompressionLZW          Compression = 5
	CompressionJPEG         Compression = 7
	CompressionDeflate      Compression = 8
	CompressionPackBits     Compression = 32773
	CompressionAdobeDeflate Compression = 32946
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZW:
		return "lzw"
	case CompressionJPEG:
		return "jpeg"
	case CompressionDeflate, CompressionAdobeDeflate:
		return "deflate"
	case CompressionPackBits:
		return "packbits"
	default:
		return fmt.Sprintf("compression(%d)", uint16(c))
	}
}

// Photometric interpretations
const (
	PhotometricMinIsBlack uint16 = 1
	PhotometricRGB        uint16 = 2
)

// ExtraSamplesUnassociatedAlpha marks the fourth channel of RGBA images
const ExtraSamplesUnassociatedAlpha uint16 = 2

const (
	entrySize   = 12
	firstEntry  = 10
	inlineBytes = 4
)

var (
	ErrOutOfBounds = errors.New("tiff: field outside header")
	ErrNotTIFF     = errors.New("tiff: not a tiff file")
)

var le = binary.LittleEndian

// Entry is one IFD record. Values holds SHORT and LONG values; Data holds
// the raw little endian bytes of any other type.
type Entry struct {
	Tag    uint16
	Type   uint16
	Count  uint32
	Values []uint32
	Data   []byte
}

// Size is the byte size of the entry's values.
func (e Entry) Size() int {
	return typeSize[e.Type] * int(e.Count)
}

// Inline reports whether the values fit the 4 byte value slot.
func (e Entry) Inline() bool {
	return e.Size() <= inlineBytes
}

func (e Entry) bytes() []byte {
	if e.Data != nil {
		return e.Data
	}
	out := make([]byte, e.Size())
	for i, v := range e.Values {
		switch e.Type {
		case TypeShort:
			le.PutUint16(out[2*i:], uint16(v))
		case TypeLong:
			le.PutUint32(out[4*i:], v)
		case TypeByte:
			out[i] = byte(v)
		}
	}
	return out
}

func shorts(tag uint16, values ...uint32) Entry {
	return Entry{Tag: tag, Type: TypeShort, Count: uint32(len(values)), Values: values}
}

func long(tag uint16, value uint32) Entry {
	return Entry{Tag: tag, Type: TypeLong, Count: 1, Values: []uint32{value}}
}

func repeat(v uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// directorySize is the size of a little endian header holding entries, with
// their out of line values appended after the IFD.
func directorySize(entries []Entry) int {
	size := firstEntry + entrySize*len(entries) + 4
	for _, e := range entries {
		if !e.Inline() {
			size += e.Size()
		}
	}
	return size
}

// encodeDirectory lays out "II*", the IFD and the out of line values in
// entry order.
func encodeDirectory(entries []Entry) []byte {
	buf := make([]byte, directorySize(entries))
	copy(buf, []byte{'I', 'I', 42, 0, 8, 0, 0, 0})
	le.PutUint16(buf[8:], uint16(len(entries)))
	data := firstEntry + entrySize*len(entries) + 4
	for i, e := range entries {
		p := buf[firstEntry+entrySize*i:]
		le.PutUint16(p[0:], e.Tag)
		le.PutUint16(p[2:], e.Type)
		le.PutUint32(p[4:], e.Count)
		raw := e.bytes()
		if e.Inline() {
			copy(p[8:12], raw)
			continue
		}
		le.PutUint32(p[8:], uint32(data))
		copy(buf[data:], raw)
		data += len(raw)
	}
	return buf
}
