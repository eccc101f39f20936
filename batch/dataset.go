// Package batch streams an N5 dataset along its first axis as gomlx tensors.
package batch

import (
	"context"
	"fmt"
	"io"

	n5 "github.com/TuSKan/go-n5"
	"github.com/TuSKan/go-n5/block"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Dataset handles reading N5 datasets in batches.
type Dataset struct {
	engine       *n5.Engine
	path         string
	attrs        *n5.DatasetAttributes
	CurrentIndex int
}

// NewDataset creates a Dataset over the dataset at path.
func NewDataset(ctx context.Context, engine *n5.Engine, path string) (*Dataset, error) {
	attrs, err := engine.GetDatasetAttributes(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	return &Dataset{engine: engine, path: path, attrs: attrs}, nil
}

// Attributes returns the attributes of the underlying dataset.
func (d *Dataset) Attributes() *n5.DatasetAttributes { return d.attrs }

// NextBatch reads the next batch of size batchSize.
// Returns io.EOF if there is no more data.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	dims := d.attrs.Dimensions
	if d.CurrentIndex >= dims[0] {
		return nil, io.EOF
	}

	start := d.CurrentIndex
	end := min(start+batchSize, dims[0])

	// Batch shape: [end-start, dims[1], dims[2]...]
	regionStart := make([]int, len(dims))
	regionStart[0] = start
	batchShape := make([]int, len(dims))
	batchShape[0] = end - start
	copy(batchShape[1:], dims[1:])

	region, err := d.engine.ReadRegion(ctx, d.path, regionStart, batchShape)
	if err != nil {
		return nil, err
	}

	t, err := toTensor(region)
	if err != nil {
		return nil, err
	}
	d.CurrentIndex = end
	return t, nil
}

// Reset rewinds the dataset to its first row.
func (d *Dataset) Reset() {
	d.CurrentIndex = 0
}

func toTensor(b *block.Block) (*tensors.Tensor, error) {
	switch v := b.Data.(type) {
	case []int8:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []int16:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []int32:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []int64:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []uint8:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []uint16:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []uint32:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []uint64:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []float32:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	case []float64:
		return tensors.FromFlatDataAndDimensions(v, b.Shape...), nil
	default:
		return nil, fmt.Errorf("unexpected data type: %T", b.Data)
	}
}
