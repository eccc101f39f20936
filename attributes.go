package n5

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/TuSKan/go-n5/block"
	"github.com/TuSKan/go-n5/codec"
)

// DatasetAttributes is the immutable description of a dataset.
type DatasetAttributes struct {
	Dimensions  []int
	BlockSize   []int
	DataType    block.DataType
	Compression codec.Compression
}

// NewDatasetAttributes builds and validates dataset attributes.
func NewDatasetAttributes(dims, blockSize []int, dt block.DataType, c codec.Compression) (*DatasetAttributes, error) {
	attrs := &DatasetAttributes{
		Dimensions:  slices.Clone(dims),
		BlockSize:   slices.Clone(blockSize),
		DataType:    dt,
		Compression: c,
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Validate checks rank consistency, positivity and the element type. A block
// size may exceed its dimension.
func (a *DatasetAttributes) Validate() error {
	if len(a.Dimensions) == 0 {
		return fmt.Errorf("%w: rank must be at least 1", ErrInvalidShape)
	}
	if len(a.Dimensions) != len(a.BlockSize) {
		return fmt.Errorf("%w: %d dimensions but %d block sizes", ErrInvalidShape, len(a.Dimensions), len(a.BlockSize))
	}
	for i := range a.Dimensions {
		if a.Dimensions[i] <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrInvalidShape, i, a.Dimensions[i])
		}
		if a.BlockSize[i] <= 0 {
			return fmt.Errorf("%w: block size %d is %d", ErrInvalidShape, i, a.BlockSize[i])
		}
	}
	if !a.DataType.Valid() {
		return fmt.Errorf("%w: data type %v", ErrInvalidShape, a.DataType)
	}
	if a.Compression.Type == "" {
		return fmt.Errorf("%w: missing compression type", ErrInvalidShape)
	}
	return nil
}

// Rank returns the number of axes.
func (a *DatasetAttributes) Rank() int { return len(a.Dimensions) }

// GridShape returns the number of blocks along each axis.
func (a *DatasetAttributes) GridShape() []int {
	return GridShape(a.Dimensions, a.BlockSize)
}

// NumBlocks returns the number of grid positions in the dataset.
func (a *DatasetAttributes) NumBlocks() int {
	n := 1
	for _, g := range a.GridShape() {
		n *= g
	}
	return n
}

// BlockExtent returns the actual extent of the block at coord. Blocks on the
// upper boundary are truncated to the dataset dimensions.
func (a *DatasetAttributes) BlockExtent(coord []int) ([]int, error) {
	if len(coord) != len(a.Dimensions) {
		return nil, fmt.Errorf("%w: coordinate %v has rank %d, dataset has %d", ErrOutOfBounds, coord, len(coord), len(a.Dimensions))
	}
	extent := make([]int, len(coord))
	for i, c := range coord {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative coordinate %v", ErrOutOfBounds, coord)
		}
		// Compare against the last grid index before multiplying so huge
		// coordinates cannot wrap around.
		if c > (a.Dimensions[i]-1)/a.BlockSize[i] {
			return nil, fmt.Errorf("%w: coordinate %v past axis %d", ErrOutOfBounds, coord, i)
		}
		extent[i] = min(a.BlockSize[i], a.Dimensions[i]-c*a.BlockSize[i])
	}
	return extent, nil
}

// attributesJSON is the attributes.json document. compressionType is the
// pre-2.0 N5 spelling of the codec and is only read.
type attributesJSON struct {
	Dimensions      []int              `json:"dimensions"`
	BlockSize       []int              `json:"blockSize"`
	DataType        block.DataType     `json:"dataType"`
	Compression     *codec.Compression `json:"compression,omitempty"`
	CompressionType string             `json:"compressionType,omitempty"`
}

func (a DatasetAttributes) MarshalJSON() ([]byte, error) {
	c := a.Compression
	return json.Marshal(attributesJSON{
		Dimensions:  a.Dimensions,
		BlockSize:   a.BlockSize,
		DataType:    a.DataType,
		Compression: &c,
	})
}

func (a *DatasetAttributes) UnmarshalJSON(data []byte) error {
	var in attributesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	a.Dimensions = in.Dimensions
	a.BlockSize = in.BlockSize
	a.DataType = in.DataType
	switch {
	case in.Compression != nil:
		a.Compression = *in.Compression
	case in.CompressionType != "":
		a.Compression = codec.DefaultCompression(in.CompressionType)
	default:
		a.Compression = codec.RawCompression()
	}
	return nil
}

// LoadAttributes reads and validates an attributes.json document.
func LoadAttributes(reader io.Reader) (*DatasetAttributes, error) {
	var attrs DatasetAttributes
	if err := json.NewDecoder(reader).Decode(&attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	return &attrs, nil
}
