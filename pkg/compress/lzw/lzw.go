// Package lzw implements the TIFF flavour of LZW (MSB first codes with the
// early code width change). Decoding delegates to golang.org/x/image/tiff/lzw.
package lzw

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xlzw "golang.org/x/image/tiff/lzw"
)

const (
	clearCode = 256
	eoiCode   = 257
	firstCode = 258
	minWidth  = 9
	maxWidth  = 12
	// the table is reset one entry before the 12 bit space is exhausted
	resetCode = 1<<maxWidth - 2
)

var errClosed = errors.New("lzw: write after close")

// Writer compresses everything written to it as a single TIFF LZW strip.
type Writer struct {
	w      io.Writer
	table  map[uint32]uint16
	next   uint16
	width  uint
	prefix int

	bits  uint32
	nBits uint
	out   []byte

	err    error
	closed bool
}

// NewWriter returns a Writer; Close must be called to flush the end code.
func NewWriter(w io.Writer) *Writer {
	z := &Writer{w: w, prefix: -1, table: make(map[uint32]uint16, 1<<maxWidth)}
	z.reset()
	z.emit(clearCode)
	return z
}

func (z *Writer) reset() {
	clear(z.table)
	z.next = firstCode
	z.width = minWidth
}

func (z *Writer) emit(code uint16) {
	z.bits = z.bits<<z.width | uint32(code)
	z.nBits += z.width
	for z.nBits >= 8 {
		z.nBits -= 8
		z.out = append(z.out, byte(z.bits>>z.nBits))
	}
}

// grow registers one more table entry, widening codes or resetting the table.
func (z *Writer) grow() {
	z.next++
	switch {
	case z.next == resetCode:
		z.emit(clearCode)
		z.reset()
	case z.next >= 1<<z.width && z.width < maxWidth:
		z.width++
	}
}

func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, errClosed
	}
	if z.err != nil {
		return 0, z.err
	}
	for _, c := range p {
		if z.prefix < 0 {
			z.prefix = int(c)
			continue
		}
		key := uint32(z.prefix)<<8 | uint32(c)
		if code, ok := z.table[key]; ok {
			z.prefix = int(code)
			continue
		}
		z.emit(uint16(z.prefix))
		z.table[key] = z.next
		z.grow()
		z.prefix = int(c)
	}
	if err := z.flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (z *Writer) flush() error {
	if len(z.out) == 0 {
		return nil
	}
	if _, err := z.w.Write(z.out); err != nil {
		z.err = err
		return err
	}
	z.out = z.out[:0]
	return nil
}

// Close emits the pending prefix and the end of information code.
func (z *Writer) Close() error {
	if z.closed {
		return z.err
	}
	z.closed = true
	if z.err != nil {
		return z.err
	}
	if z.prefix >= 0 {
		z.emit(uint16(z.prefix))
		if z.next+1 < resetCode {
			z.next++
			if z.next >= 1<<z.width && z.width < maxWidth {
				z.width++
			}
		}
	}
	z.emit(eoiCode)
	if z.nBits > 0 {
		z.out = append(z.out, byte(z.bits<<(8-z.nBits)))
		z.nBits = 0
	}
	return z.flush()
}

// Encode compresses data in one call.
func Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	z := NewWriter(&buf)
	if _, err := z.Write(data); err != nil {
		return nil, err
	}
	if err := z.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode expands a TIFF LZW strip. expectedLen is a capacity hint.
func Decode(data []byte, expectedLen int) ([]byte, error) {
	r := xlzw.NewReader(bytes.NewReader(data), xlzw.MSB, 8)
	defer r.Close()

	var out bytes.Buffer
	if expectedLen > 0 {
		out.Grow(expectedLen)
	}
	if _, err := io.Copy(&out, r); err != nil {
		return out.Bytes(), fmt.Errorf("lzw: %w", err)
	}
	return out.Bytes(), nil
}
