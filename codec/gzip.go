package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Gzip implements the N5 "gzip" compression. With useZlib the payload is
// framed as zlib (RFC 1950) instead of gzip (RFC 1952).
type Gzip struct {
	level   int
	useZlib bool
}

// NewGzip creates a gzip codec. Level -1 selects the library default.
func NewGzip(level int, useZlib bool) (*Gzip, error) {
	g := &Gzip{level: level, useZlib: useZlib}
	// Validate the level up front so Encode cannot fail on configuration.
	w, err := g.writer(io.Discard)
	if err != nil {
		return nil, fmt.Errorf("gzip level %d: %w", level, err)
	}
	w.Close()
	return g, nil
}

func (g *Gzip) Type() string { return TypeGzip }

func (g *Gzip) writer(dst io.Writer) (io.WriteCloser, error) {
	if g.useZlib {
		return zlib.NewWriterLevel(dst, g.level)
	}
	return gzip.NewWriterLevel(dst, g.level)
}

func (g *Gzip) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := g.writer(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to gzip payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to gzip payload: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Gzip) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, emptyStream(TypeGzip)
	}
	var (
		r   io.ReadCloser
		err error
	)
	if g.useZlib {
		r, err = zlib.NewReader(bytes.NewReader(src))
	} else {
		r, err = gzip.NewReader(bytes.NewReader(src))
	}
	if err != nil {
		return nil, corrupt(TypeGzip, err)
	}
	defer r.Close()
	return drain(TypeGzip, r)
}
