package tiff

import (
	"fmt"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// Offsets of the patched 4 byte values, identical for every template since
// the first nine tags never move.
const (
	OffsetWidth           = 18
	OffsetHeight          = 30
	OffsetStripOffset     = 78
	OffsetRowsPerStrip    = 102
	OffsetStripByteCounts = 114
)

// SingleStrip is the RowsPerStrip value that declares one strip
const SingleStrip = 0xFFFFFFFF

type templateKey struct {
	compression Compression
	format      raster.SampleFormat
	channels    int
}

// templates holds one header per (compression, sample format, channels),
// generated at init from templateEntries.
var templates = map[templateKey][]byte{}

func init() {
	for _, c := range []Compression{CompressionNone, CompressionLZW, CompressionDeflate, CompressionPackBits, CompressionJPEG} {
		for _, sf := range []raster.SampleFormat{raster.Uint, raster.Float} {
			for _, ch := range []int{1, 3, 4} {
				templates[templateKey{c, sf, ch}] = encodeDirectory(templateEntries(c, sf, ch))
			}
		}
	}
}

// templateEntries is the tag list of a single strip image. Width, height,
// rows per strip and strip byte count are placeholders patched per image.
func templateEntries(c Compression, sf raster.SampleFormat, channels int) []Entry {
	photometric := PhotometricMinIsBlack
	if channels >= 3 {
		photometric = PhotometricRGB
	}
	entries := []Entry{
		long(TagImageWidth, 0),
		long(TagImageLength, 0),
		shorts(TagBitsPerSample, repeat(uint32(sf.BitsPerSample()), channels)...),
		shorts(TagCompression, uint32(c)),
		shorts(TagPhotometric, uint32(photometric)),
		long(TagStripOffsets, 0),
		shorts(TagSamplesPerPixel, uint32(channels)),
		long(TagRowsPerStrip, SingleStrip),
		long(TagStripByteCounts, 0),
	}
	if channels == 4 {
		entries = append(entries, shorts(TagExtraSamples, uint32(ExtraSamplesUnassociatedAlpha)))
	}
	entries = append(entries, shorts(TagSampleFormat, repeat(uint32(sf), channels)...))
	// the strip follows the header
	entries[5].Values[0] = uint32(directorySize(entries))
	return entries
}

// HeaderSize is the header length for a channel count: 134, 146 or 162
// bytes, 0 when the channel count is not supported.
func HeaderSize(channels int) int {
	switch channels {
	case 1, 3, 4:
		return directorySize(templateEntries(CompressionNone, raster.Uint, channels))
	default:
		return 0
	}
}

// Template returns a copy of the unpatched header.
func Template(c Compression, sf raster.SampleFormat, channels int) ([]byte, error) {
	t, ok := templates[templateKey{c, sf, channels}]
	if !ok {
		return nil, fmt.Errorf("tiff: no header for %s %s with %d channels", c, sf, channels)
	}
	return append([]byte(nil), t...), nil
}

// NewHeader copies the matching template and patches its image fields.
func NewHeader(c Compression, sf raster.SampleFormat, channels, width, height, payload int) (Header, error) {
	buf, err := Template(c, sf, channels)
	if err != nil {
		return Header{}, err
	}
	h := Header{buf: buf}
	if err := h.Patch(width, height, payload); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Header is a mutable view over little endian header bytes. Every accessor
// is bounds checked.
type Header struct {
	buf []byte
}

// HeaderOf wraps existing bytes without copying.
func HeaderOf(buf []byte) Header { return Header{buf: buf} }

func (h Header) Bytes() []byte { return h.buf }
func (h Header) Len() int      { return len(h.buf) }

func (h Header) uint16At(off int) (uint16, error) {
	if off < 0 || off+2 > len(h.buf) {
		return 0, fmt.Errorf("%w: uint16 at %d of %d", ErrOutOfBounds, off, len(h.buf))
	}
	return le.Uint16(h.buf[off:]), nil
}

func (h Header) uint32At(off int) (uint32, error) {
	if off < 0 || off+4 > len(h.buf) {
		return 0, fmt.Errorf("%w: uint32 at %d of %d", ErrOutOfBounds, off, len(h.buf))
	}
	return le.Uint32(h.buf[off:]), nil
}

func (h Header) putUint16(off int, v uint16) error {
	if off < 0 || off+2 > len(h.buf) {
		return fmt.Errorf("%w: uint16 at %d of %d", ErrOutOfBounds, off, len(h.buf))
	}
	le.PutUint16(h.buf[off:], v)
	return nil
}

func (h Header) putUint32(off int, v uint32) error {
	if off < 0 || off+4 > len(h.buf) {
		return fmt.Errorf("%w: uint32 at %d of %d", ErrOutOfBounds, off, len(h.buf))
	}
	le.PutUint32(h.buf[off:], v)
	return nil
}

func (h Header) SetWidth(v uint32) error          { return h.putUint32(OffsetWidth, v) }
func (h Header) SetHeight(v uint32) error         { return h.putUint32(OffsetHeight, v) }
func (h Header) SetRowsPerStrip(v uint32) error   { return h.putUint32(OffsetRowsPerStrip, v) }
func (h Header) SetStripByteCount(v uint32) error { return h.putUint32(OffsetStripByteCounts, v) }
func (h Header) SetStripOffset(v uint32) error    { return h.putUint32(OffsetStripOffset, v) }

func (h Header) Width() (uint32, error)          { return h.uint32At(OffsetWidth) }
func (h Header) Height() (uint32, error)         { return h.uint32At(OffsetHeight) }
func (h Header) RowsPerStrip() (uint32, error)   { return h.uint32At(OffsetRowsPerStrip) }
func (h Header) StripByteCount() (uint32, error) { return h.uint32At(OffsetStripByteCounts) }
func (h Header) StripOffset() (uint32, error)    { return h.uint32At(OffsetStripOffset) }

// Patch writes width, height (twice, as image length and rows per strip) and
// the payload byte count.
func (h Header) Patch(width, height, payload int) error {
	for _, set := range []func() error{
		func() error { return h.SetWidth(uint32(width)) },
		func() error { return h.SetHeight(uint32(height)) },
		func() error { return h.SetRowsPerStrip(uint32(height)) },
		func() error { return h.SetStripByteCount(uint32(payload)) },
	} {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

// TagCount is the number of IFD entries.
func (h Header) TagCount() (int, error) {
	n, err := h.uint16At(8)
	return int(n), err
}

func (h Header) setTagCount(n int) error { return h.putUint16(8, uint16(n)) }

// entryOffset is the position of the i-th IFD entry
func entryOffset(i int) int { return firstEntry + entrySize*i }

// Entry decodes the i-th IFD record. For out of line entries Values holds
// the value offset, not the values.
func (h Header) Entry(i int) (Entry, error) {
	off := entryOffset(i)
	if off < 0 || off+entrySize > len(h.buf) {
		return Entry{}, fmt.Errorf("%w: entry %d", ErrOutOfBounds, i)
	}
	p := h.buf[off:]
	e := Entry{Tag: le.Uint16(p[0:]), Type: le.Uint16(p[2:]), Count: le.Uint32(p[4:])}
	e.Values = []uint32{le.Uint32(p[8:])}
	if e.Inline() && e.Type == TypeShort && e.Count == 1 {
		e.Values = []uint32{uint32(le.Uint16(p[8:]))}
	}
	return e, nil
}

// Find returns the index of a tag.
func (h Header) Find(tag uint16) (int, bool) {
	n, err := h.TagCount()
	if err != nil {
		return 0, false
	}
	for i := 0; i < n; i++ {
		e, err := h.Entry(i)
		if err != nil {
			return 0, false
		}
		if e.Tag == tag {
			return i, true
		}
	}
	return 0, false
}

// ValueOffset is the position of the 4 byte value slot of entry i.
func ValueOffset(i int) int { return entryOffset(i) + 8 }
