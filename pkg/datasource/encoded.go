package datasource

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// EncodedSource applies an HTTP content-encoding to another source. The
// pixel format is untouched; only Encoding changes.
type EncodedSource struct {
	src      DataSource
	encoding string
	data     []byte
	done     bool
}

// Encodings accepted by NewEncodedSource
var Encodings = []string{"gzip", "deflate", "zstd"}

// NewEncodedSource fails for an unknown encoding or a source that already
// carries one.
func NewEncodedSource(src DataSource, encoding string) (*EncodedSource, error) {
	if src.Encoding() != "" {
		return nil, fmt.Errorf("datasource: source already %s encoded", src.Encoding())
	}
	if !slices.Contains(Encodings, encoding) {
		return nil, fmt.Errorf("datasource: unsupported content-encoding %q", encoding)
	}
	return &EncodedSource{src: src, encoding: encoding}, nil
}

func newEncoder(w io.Writer, encoding string) (io.WriteCloser, error) {
	switch encoding {
	case "gzip":
		return gzip.NewWriter(w), nil
	case "deflate":
		return zlib.NewWriter(w), nil
	case "zstd":
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	default:
		return nil, fmt.Errorf("datasource: unsupported content-encoding %q", encoding)
	}
}

func (e *EncodedSource) Data() []byte {
	if e.done {
		return e.data
	}
	e.done = true
	raw := e.src.Data()
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	w, err := newEncoder(&buf, e.encoding)
	if err == nil {
		_, err = w.Write(raw)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		slog.Error("content encoding failed", "encoding", e.encoding, "error", err)
		return nil
	}
	e.data = buf.Bytes()
	return e.data
}

func (e *EncodedSource) Release() bool {
	e.data = nil
	return e.src.Release()
}

func (e *EncodedSource) Type() string     { return e.src.Type() }
func (e *EncodedSource) HTTPStatus() int  { return e.src.HTTPStatus() }
func (e *EncodedSource) Encoding() string { return e.encoding }

// ETag is a strong entity tag of a payload.
func ETag(data []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%016x", xxhash.Sum64(data)))
}
