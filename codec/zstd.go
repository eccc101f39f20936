package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd implements zstandard compression with frame checksums.
type Zstd struct {
	level int
}

// NewZstd creates a zstd codec. Levels follow the zstd command line scale.
func NewZstd(level int) *Zstd {
	return &Zstd{level: level}
}

func (z *Zstd) Type() string { return TypeZstd }

func (z *Zstd) Encode(src []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(z.level)),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(true),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(src, nil), nil
}

func (z *Zstd) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, emptyStream(TypeZstd)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer decoder.Close()
	out, err := decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, corrupt(TypeZstd, err)
	}
	return out, nil
}
