// Package packbits implements the Apple PackBits run length scheme used by
// TIFF compression 32773.
package packbits

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrTruncatedLiteral   = errors.New("packbits: compressed data truncated in literal run")
	ErrTruncatedReplicate = errors.New("packbits: compressed data truncated in replicate run")
)

// maxRun is the longest literal or replicate run a header byte can describe
const maxRun = 128

// Encode compresses one scanline. TIFF requires each row to be packed on its
// own, so callers concatenate the results of one call per row.
func Encode(data []byte) []byte {
	return Append(nil, data)
}

// Append compresses data and appends the result to dst.
func Append(dst []byte, data []byte) []byte {
	buf := bytes.NewBuffer(dst)
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && runLen < maxRun && data[i+runLen] == data[i] {
			runLen++
		}

		if runLen > 1 {
			buf.WriteByte(byte(int8(-(runLen - 1))))
			buf.WriteByte(data[i])
			i += runLen
			continue
		}

		// literal run ends before 3 identical bytes
		litLen := 1
		for i+litLen < len(data) && litLen < maxRun {
			if i+litLen+2 < len(data) &&
				data[i+litLen] == data[i+litLen+1] &&
				data[i+litLen] == data[i+litLen+2] {
				break
			}
			litLen++
		}
		buf.WriteByte(byte(int8(litLen - 1)))
		buf.Write(data[i : i+litLen])
		i += litLen
	}
	return buf.Bytes()
}

// Decode expands PackBits data. When expectedLen is positive decoding stops
// once that many bytes were produced.
func Decode(data []byte, expectedLen int) ([]byte, error) {
	var buf bytes.Buffer
	if expectedLen > 0 {
		buf.Grow(expectedLen)
	}

	i := 0
	for i < len(data) {
		if expectedLen > 0 && buf.Len() >= expectedLen {
			break
		}

		n := int8(data[i])
		i++

		switch {
		case n == -128:
			// no-op
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w (i=%d, count=%d, len=%d)", ErrTruncatedLiteral, i, count, len(data))
			}
			buf.Write(data[i : i+count])
			i += count
		default:
			count := int(-n) + 1
			if i >= len(data) {
				return nil, ErrTruncatedReplicate
			}
			val := data[i]
			i++
			for k := 0; k < count; k++ {
				buf.WriteByte(val)
			}
		}
	}
	return buf.Bytes(), nil
}
