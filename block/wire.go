package block

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/TuSKan/go-n5/codec"
)

// Block modes.
const (
	ModeDefault   uint16 = 0
	ModeVarlength uint16 = 1
)

// Header is the fixed part of a serialized block.
type Header struct {
	Mode        uint16
	Shape       []int
	NumElements int
}

// Len returns the serialized header size in bytes.
func (h Header) Len() int {
	n := 4 + 4*len(h.Shape)
	if h.Mode == ModeVarlength {
		n += 4
	}
	return n
}

// Elements returns the number of payload elements the header announces.
func (h Header) Elements() int {
	if h.Mode == ModeVarlength {
		return h.NumElements
	}
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

// AppendHeader appends the big-endian encoding of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.BigEndian.AppendUint16(dst, h.Mode)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(h.Shape)))
	for _, d := range h.Shape {
		dst = binary.BigEndian.AppendUint32(dst, uint32(d))
	}
	if h.Mode == ModeVarlength {
		dst = binary.BigEndian.AppendUint32(dst, uint32(h.NumElements))
	}
	return dst
}

// ReadHeader parses the header at the start of raw.
func ReadHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < 4 {
		return h, fmt.Errorf("%w: %d bytes is shorter than a block header", ErrCorruptPayload, len(raw))
	}
	h.Mode = binary.BigEndian.Uint16(raw[0:])
	if h.Mode != ModeDefault && h.Mode != ModeVarlength {
		return h, fmt.Errorf("%w: unknown block mode %d", ErrCorruptPayload, h.Mode)
	}
	nd := int(binary.BigEndian.Uint16(raw[2:]))
	h.Shape = make([]int, nd)
	if len(raw) < h.Len() {
		return h, fmt.Errorf("%w: truncated header for %d dimensions", ErrCorruptPayload, nd)
	}
	for i := range h.Shape {
		h.Shape[i] = int(binary.BigEndian.Uint32(raw[4+4*i:]))
	}
	if h.Mode == ModeVarlength {
		h.NumElements = int(binary.BigEndian.Uint32(raw[4+4*nd:]))
	}
	return h, nil
}

// Encode serializes b, compressing its payload with c.
func Encode(b *Block, c codec.Codec) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(b.Shape) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: rank %d does not fit the header", ErrRankMismatch, len(b.Shape))
	}
	for _, d := range b.Shape {
		if uint64(d) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: extent %d does not fit the header", ErrOversizedBlock, d)
		}
	}

	payload, err := binary.Append(make([]byte, 0, b.Len()*b.Type.Size()), binary.BigEndian, b.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %v elements: %w", b.Type, err)
	}
	compressed, err := c.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}

	h := Header{Mode: ModeDefault, Shape: b.Shape}
	if b.IsVarlength() {
		h.Mode, h.NumElements = ModeVarlength, b.NumElements
	}
	out := AppendHeader(make([]byte, 0, h.Len()+len(compressed)), h)
	return append(out, compressed...), nil
}

// Decode parses a serialized block of a dataset with element type dt and
// chunk shape chunkShape. It never returns a partially populated block.
func Decode(raw []byte, dt DataType, chunkShape []int, c codec.Codec) (*Block, error) {
	h, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	if len(h.Shape) != len(chunkShape) {
		return nil, fmt.Errorf("%w: header has %d dimensions, dataset has %d", ErrRankMismatch, len(h.Shape), len(chunkShape))
	}
	for i, d := range h.Shape {
		if d > chunkShape[i] {
			return nil, fmt.Errorf("%w: axis %d extent %d > chunk size %d", ErrOversizedBlock, i, d, chunkShape[i])
		}
	}

	payload, err := c.Decode(raw[h.Len():])
	if err != nil {
		return nil, err
	}
	n := h.Elements()
	if len(payload) != n*dt.Size() {
		return nil, fmt.Errorf("%w: %d payload bytes, header announces %d %v elements", ErrSizeMismatch, len(payload), n, dt)
	}

	data := makeSlice(dt, n)
	if data == nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, dt)
	}
	if _, err := binary.Decode(payload, binary.BigEndian, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	b := &Block{Type: dt, Shape: h.Shape, Mode: h.Mode, Data: data}
	if h.Mode == ModeVarlength {
		b.NumElements = h.NumElements
	}
	return b, nil
}
