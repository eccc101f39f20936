// Package block implements the N5 block wire format: a big-endian header
// describing the block extent followed by the element payload, compressed
// with the dataset codec.
package block

import (
	"errors"
	"fmt"

	"github.com/TuSKan/go-n5/codec"
)

var (
	ErrTypeMismatch   = errors.New("element type mismatch")
	ErrRankMismatch   = errors.New("block rank does not match dataset rank")
	ErrOversizedBlock = errors.New("block exceeds dataset chunk shape")
	ErrSizeMismatch   = errors.New("payload size does not match block extent")
	ErrCorruptPayload = codec.ErrCorruptPayload
)

// Block is one chunk of a dataset held in memory. Data is a typed slice
// ([]int8 ... []float64) laid out row-major, last axis fastest.
type Block struct {
	Type  DataType
	Shape []int
	// Mode is ModeDefault or ModeVarlength.
	Mode uint16
	// NumElements is meaningful only in ModeVarlength, where the element
	// count is independent of Shape and may be zero.
	NumElements int
	Data        any
}

// FromSlice wraps data as a default-mode block of the given extent.
func FromSlice[T Element](shape []int, data []T) (*Block, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d elements for shape %v (want %d)", ErrSizeMismatch, len(data), shape, n)
	}
	return &Block{Type: DataTypeOf[T](), Shape: cloneInts(shape), Data: data}, nil
}

// Varlength wraps data as a mode 1 block whose element count is len(data).
func Varlength[T Element](shape []int, data []T) *Block {
	return &Block{Type: DataTypeOf[T](), Shape: cloneInts(shape), Mode: ModeVarlength, NumElements: len(data), Data: data}
}

// Zeros allocates a zero-filled default-mode block.
func Zeros(dt DataType, shape []int) (*Block, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, dt)
	}
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	return &Block{Type: dt, Shape: cloneInts(shape), Data: makeSlice(dt, n)}, nil
}

// Values returns the block elements as []T.
func Values[T Element](b *Block) ([]T, error) {
	v, ok := b.Data.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: block holds %v, requested %v", ErrTypeMismatch, b.Type, DataTypeOf[T]())
	}
	return v, nil
}

// IsVarlength reports whether the block serializes in mode 1.
func (b *Block) IsVarlength() bool {
	return b.Mode == ModeVarlength
}

// Len returns the number of elements in the block.
func (b *Block) Len() int {
	_, n := typeOfSlice(b.Data)
	return n
}

// Validate checks that Data agrees with Type and with the block extent.
func (b *Block) Validate() error {
	dt, n := typeOfSlice(b.Data)
	if dt == 0 || dt != b.Type {
		return fmt.Errorf("%w: block declares %v but holds %T", ErrTypeMismatch, b.Type, b.Data)
	}
	if b.Mode != ModeDefault && b.Mode != ModeVarlength {
		return fmt.Errorf("%w: unknown block mode %d", ErrCorruptPayload, b.Mode)
	}
	if b.IsVarlength() {
		if n != b.NumElements {
			return fmt.Errorf("%w: varlength block declares %d elements, holds %d", ErrSizeMismatch, b.NumElements, n)
		}
		return nil
	}
	want, err := numElements(b.Shape)
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%w: %d elements for shape %v (want %d)", ErrSizeMismatch, n, b.Shape, want)
	}
	return nil
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative extent in %v", ErrSizeMismatch, shape)
		}
		n *= d
	}
	return n, nil
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}
