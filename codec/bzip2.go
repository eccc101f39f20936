package codec

import (
	"bytes"
	"fmt"

	"github.com/dsnet/compress/bzip2"
)

// Bzip2 implements the N5 "bzip2" compression. The block size, in units of
// 100k, doubles as the compression level.
type Bzip2 struct {
	blockSize int
}

// NewBzip2 creates a bzip2 codec for block sizes 1 through 9.
func NewBzip2(blockSize int) (*Bzip2, error) {
	if blockSize < bzip2.BestSpeed || blockSize > bzip2.BestCompression {
		return nil, fmt.Errorf("bzip2 block size %d out of range [%d, %d]", blockSize, bzip2.BestSpeed, bzip2.BestCompression)
	}
	return &Bzip2{blockSize: blockSize}, nil
}

func (b *Bzip2) Type() string { return TypeBzip2 }

func (b *Bzip2) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: b.blockSize})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to bzip2 payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to bzip2 payload: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Bzip2) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, emptyStream(TypeBzip2)
	}
	r, err := bzip2.NewReader(bytes.NewReader(src), nil)
	if err != nil {
		return nil, corrupt(TypeBzip2, err)
	}
	defer r.Close()
	return drain(TypeBzip2, r)
}
