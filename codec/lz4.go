package codec

import (
	"bytes"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 implements the N5 "lz4" compression as an LZ4 frame with a content
// checksum.
type LZ4 struct {
	blockSize lz4.BlockSize
}

// NewLZ4 creates an lz4 codec. The requested block size is rounded up to the
// nearest frame block size (64KiB, 256KiB, 1MiB or 4MiB).
func NewLZ4(blockSize int) *LZ4 {
	sizes := []lz4.BlockSize{lz4.Block64Kb, lz4.Block256Kb, lz4.Block1Mb, lz4.Block4Mb}
	size := lz4.Block4Mb
	for _, s := range sizes {
		if blockSize <= int(s) {
			size = s
			break
		}
	}
	return &LZ4{blockSize: size}
}

func (l *LZ4) Type() string { return TypeLZ4 }

func (l *LZ4) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.BlockSizeOption(l.blockSize), lz4.ChecksumOption(true)); err != nil {
		return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to lz4 payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to lz4 payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode requires a complete frame. The input is read through truncating so
// a frame cut before its end mark or content checksum fails.
func (l *LZ4) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, emptyStream(TypeLZ4)
	}
	r := lz4.NewReader(truncating{bytes.NewReader(src)})
	if err := r.Apply(lz4.ConcurrencyOption(1)); err != nil {
		return nil, fmt.Errorf("failed to configure lz4 reader: %w", err)
	}
	return drain(TypeLZ4, r)
}
