package deflate

import (
	"bytes"
	"io"
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(data [][]byte) func() []byte {
	i := 0
	return func() []byte {
		if i >= len(data) {
			return nil
		}
		i++
		return data[i-1]
	}
}

func TestRoundTrip(t *testing.T) {
	input := [][]byte{
		bytes.Repeat([]byte{1}, 300),
		bytes.Repeat([]byte{1, 2, 3}, 100),
		{},
		[]byte("tail"),
	}
	var buf bytes.Buffer
	require.NoError(t, Compress(&buf, TiffLevel, rows(input)))

	out, err := Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, bytes.Join(input, nil), out)
}

func TestCompressIntoBoundedRetries(t *testing.T) {
	// random-ish payload barely compresses, so an 8 byte start must grow
	raw := make([]byte, 4096)
	x := uint32(1)
	for i := range raw {
		x = x*1103515245 + 12345
		raw[i] = byte(x >> 16)
	}
	attempts := 0
	out, err := compress.Grow(8, 1<<20, func(w *compress.Bounded) error {
		attempts++
		return Compress(w, TiffLevel, rows([][]byte{raw}))
	})
	require.NoError(t, err)
	assert.Greater(t, attempts, 1)

	back, err := Decode(out, len(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not zlib"), 0)
	require.Error(t, err)
}

func TestCompressBadLevel(t *testing.T) {
	err := Compress(io.Discard, 42, rows(nil))
	require.Error(t, err)
}
