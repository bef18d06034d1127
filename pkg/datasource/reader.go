package datasource

import (
	"io"
)

// DefaultChunk is the read size used by WriteTo
const DefaultChunk = 64 << 10

type streamReader struct {
	s       DataStream
	buf     []byte
	pending []byte
}

// NewReader adapts a stream to io.Reader. Streams that cannot make progress
// in chunk bytes get a larger internal buffer; after repeated empty reads the
// reader fails with io.ErrNoProgress.
func NewReader(s DataStream, chunk int) io.Reader {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &streamReader{s: s, buf: make([]byte, chunk)}
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for tries := 0; len(r.pending) == 0; tries++ {
		if r.s.EOF() {
			return 0, io.EOF
		}
		if tries >= maxStalls {
			return 0, io.ErrNoProgress
		}
		n := r.s.Read(r.buf)
		if n == 0 {
			r.buf = make([]byte, 2*len(r.buf))
			continue
		}
		r.pending = r.buf[:n]
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// WriteTo copies a stream to w until EOF.
func WriteTo(w io.Writer, s DataStream) (int64, error) {
	return io.Copy(w, NewReader(s, DefaultChunk))
}
