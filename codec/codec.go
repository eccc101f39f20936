// Package codec implements the compression codecs applied to N5 block payloads.
//
// Codecs are looked up by their N5 compression type ("raw", "gzip", "bzip2",
// "lz4", "xz", "zstd"). Every codec satisfies Decode(Encode(b)) == b for any
// byte sequence, including the empty one.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	// ErrUnsupportedCodec is returned for a compression type with no registered codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")
	// ErrCorruptPayload is returned when an encoded stream is truncated or fails
	// its magic or checksum verification.
	ErrCorruptPayload = errors.New("corrupt payload")
)

// Codec is a reversible byte transform.
type Codec interface {
	// Type returns the N5 compression type this codec implements.
	Type() string

	// Encode compresses src.
	Encode(src []byte) ([]byte, error)

	// Decode reverses Encode.
	Decode(src []byte) ([]byte, error)
}

// Factory builds a codec configured by c.
type Factory func(c Compression) (Codec, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		TypeRaw:   func(Compression) (Codec, error) { return Raw{}, nil },
		TypeGzip:  func(c Compression) (Codec, error) { return NewGzip(c.Level, c.UseZlib) },
		TypeBzip2: func(c Compression) (Codec, error) { return NewBzip2(c.BlockSize) },
		TypeLZ4:   func(c Compression) (Codec, error) { return NewLZ4(c.BlockSize), nil },
		TypeXZ:    func(c Compression) (Codec, error) { return NewXZ(c.Preset) },
		TypeZstd:  func(c Compression) (Codec, error) { return NewZstd(c.Level), nil },
	}
)

// Register adds or replaces the factory for a compression type.
func Register(typ string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typ] = f
}

// Types lists the registered compression types in sorted order.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Supported reports whether a codec is registered for typ.
func Supported(typ string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[typ]
	return ok
}

// New creates the codec described by c.
func New(c Compression) (Codec, error) {
	registryMu.RLock()
	f, ok := registry[c.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, c.Type)
	}
	return f(c)
}

// Encode compresses src with the codec described by c.
func Encode(c Compression, src []byte) ([]byte, error) {
	cd, err := New(c)
	if err != nil {
		return nil, err
	}
	return cd.Encode(src)
}

// Decode decompresses src with the codec described by c.
func Decode(c Compression, src []byte) ([]byte, error) {
	cd, err := New(c)
	if err != nil {
		return nil, err
	}
	return cd.Decode(src)
}

// corrupt tags a decoder failure as ErrCorruptPayload.
func corrupt(typ string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorruptPayload, typ, err)
}

// emptyStream is the error for a zero-length input to a compressing codec:
// every format has at least a header.
func emptyStream(typ string) error {
	return corrupt(typ, io.ErrUnexpectedEOF)
}

// truncating reports running out of input as io.ErrUnexpectedEOF, for
// decoders that take a clean EOF at a frame boundary as the end of data.
type truncating struct {
	r io.Reader
}

func (t truncating) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// drain reads r to EOF. A stream that ends early surfaces as a corrupt payload.
func drain(typ string, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, corrupt(typ, err)
	}
	return out, nil
}
