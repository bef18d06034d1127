// Package datasource defines the two byte ports of the tile pipeline: a
// DataSource is a whole payload held in memory, a DataStream is a single
// pass pull producer.
//
// A DataStream never delivers a byte twice. Read may return 0 while the
// stream still has data (its internal granularity did not fit the buffer);
// only EOF says the stream is finished.
package datasource

import (
	"log/slog"
	"net/http"
)

// DataStream is a sequential pull producer.
type DataStream interface {
	// Read copies the next bytes into p and returns how many were written.
	Read(p []byte) int
	// EOF reports that no more bytes will ever be produced.
	EOF() bool
	Type() string
	HTTPStatus() int
	// Encoding is the HTTP content-encoding, "" when none applies.
	Encoding() string
}

// DataSource is a whole payload.
type DataSource interface {
	// Data returns the payload, nil or empty on failure. The slice is valid
	// until Release.
	Data() []byte
	// Release frees the payload; it reports whether memory was dropped.
	Release() bool
	Type() string
	HTTPStatus() int
	Encoding() string
}

// RawSource owns a copy of a buffer.
type RawSource struct {
	data     []byte
	mime     string
	encoding string
}

// NewRawSource copies data.
func NewRawSource(data []byte, mime, encoding string) *RawSource {
	return &RawSource{data: append([]byte(nil), data...), mime: mime, encoding: encoding}
}

func (r *RawSource) Data() []byte { return r.data }

func (r *RawSource) Release() bool {
	r.data = nil
	return true
}

func (r *RawSource) Type() string     { return r.mime }
func (r *RawSource) HTTPStatus() int  { return http.StatusOK }
func (r *RawSource) Encoding() string { return r.encoding }

// RawStream reads a caller buffer once.
type RawStream struct {
	data     []byte
	pos      int
	mime     string
	encoding string
}

func NewRawStream(data []byte, mime, encoding string) *RawStream {
	return &RawStream{data: data, mime: mime, encoding: encoding}
}

func (r *RawStream) Read(p []byte) int {
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n
}

func (r *RawStream) EOF() bool        { return r.pos >= len(r.data) }
func (r *RawStream) Type() string     { return r.mime }
func (r *RawStream) HTTPStatus() int  { return http.StatusOK }
func (r *RawStream) Encoding() string { return r.encoding }

// SourceStream is a single pass stream over a source's payload.
type SourceStream struct {
	src DataSource
	pos int
}

// NewSourceStream bridges a DataSource to a DataStream.
func NewSourceStream(src DataSource) *SourceStream {
	return &SourceStream{src: src}
}

func (s *SourceStream) Read(p []byte) int {
	data := s.src.Data()
	if s.pos >= len(data) {
		return 0
	}
	n := copy(p, data[s.pos:])
	s.pos += n
	return n
}

func (s *SourceStream) EOF() bool        { return s.pos >= len(s.src.Data()) }
func (s *SourceStream) Type() string     { return s.src.Type() }
func (s *SourceStream) HTTPStatus() int  { return s.src.HTTPStatus() }
func (s *SourceStream) Encoding() string { return s.src.Encoding() }

const (
	// InitialBufferSize is the first allocation of a BufferedSource
	InitialBufferSize = 32 << 10
	// maxStalls bounds consecutive empty reads while draining
	maxStalls = 16
)

// BufferedSource drains a stream once into memory.
type BufferedSource struct {
	data     []byte
	mime     string
	encoding string
	status   int
}

// NewBufferedSource reads stream to its end. The buffer starts at 32 KiB and
// doubles whenever it is full or the stream could not make progress in the
// space left, then is trimmed to the exact size.
func NewBufferedSource(stream DataStream) *BufferedSource {
	b := &BufferedSource{
		mime:     stream.Type(),
		encoding: stream.Encoding(),
		status:   stream.HTTPStatus(),
	}
	buf := make([]byte, InitialBufferSize)
	size, stalls := 0, 0
	for !stream.EOF() {
		n := stream.Read(buf[size:])
		size += n
		if n == 0 {
			stalls++
			if stalls > maxStalls {
				slog.Error("stream stalled while buffering", "type", b.mime, "bytes", size)
				break
			}
		} else {
			stalls = 0
		}
		if size == len(buf) || n == 0 {
			grown := make([]byte, 2*len(buf))
			copy(grown, buf[:size])
			buf = grown
		}
	}
	b.data = append(make([]byte, 0, size), buf[:size]...)
	return b
}

func (b *BufferedSource) Data() []byte { return b.data }

// Release keeps the buffer; it is the cached form of the stream.
func (b *BufferedSource) Release() bool { return false }

func (b *BufferedSource) Type() string     { return b.mime }
func (b *BufferedSource) HTTPStatus() int  { return b.status }
func (b *BufferedSource) Encoding() string { return b.encoding }

// Size is the payload length.
func (b *BufferedSource) Size() int { return len(b.data) }
