package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/ulikunitz/xz"
)

// presetDictCap maps xz presets to the dictionary sizes liblzma uses for them.
var presetDictCap = [10]int{
	256 << 10,
	1 << 20,
	2 << 20,
	4 << 20,
	4 << 20,
	8 << 20,
	8 << 20,
	16 << 20,
	32 << 20,
	64 << 20,
}

// XZ implements the N5 "xz" compression.
type XZ struct {
	preset int
}

// NewXZ creates an xz codec for presets 0 through 9.
func NewXZ(preset int) (*XZ, error) {
	if preset < 0 || preset >= len(presetDictCap) {
		return nil, fmt.Errorf("xz preset %d out of range [0, 9]", preset)
	}
	return &XZ{preset: preset}, nil
}

func (x *XZ) Type() string { return TypeXZ }

func (x *XZ) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := xz.WriterConfig{DictCap: presetDictCap[x.preset]}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to xz payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to xz payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode accepts exactly one complete xz stream.
func (x *XZ) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, emptyStream(TypeXZ)
	}
	if !hasStreamFooter(src) {
		return nil, corrupt(TypeXZ, errMissingFooter)
	}
	r, err := xz.ReaderConfig{SingleStream: true}.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, corrupt(TypeXZ, err)
	}
	return drain(TypeXZ, r)
}

const footerLen = 12

var errMissingFooter = errors.New("missing or damaged stream footer")

// hasStreamFooter checks the 12-byte footer every xz stream ends with:
// CRC32 of the next 6 bytes, backward size, stream flags, then "YZ". The
// reader stops cleanly at a block boundary, so a stream cut before its index
// is only caught here.
func hasStreamFooter(src []byte) bool {
	if len(src) < xz.HeaderLen+footerLen {
		return false
	}
	f := src[len(src)-footerLen:]
	return f[10] == 'Y' && f[11] == 'Z' && crc32.ChecksumIEEE(f[4:10]) == binary.LittleEndian.Uint32(f[:4])
}
