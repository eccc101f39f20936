package n5

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/TuSKan/go-n5/block"
	"golang.org/x/sync/errgroup"
)

// ReadRegion reads the dense box [start, start+shape) of the dataset at path
// into a single row-major block. Positions covered by absent blocks hold the
// fill value, zero.
func (e *Engine) ReadRegion(ctx context.Context, path string, start, shape []int) (*block.Block, error) {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := checkRegion(attrs.Dimensions, start, shape); err != nil {
		return nil, err
	}

	out, err := block.Zeros(attrs.DataType, shape)
	if err != nil {
		return nil, err
	}
	dst := reflect.ValueOf(out.Data)
	dstStrides := strides(shape)

	// Blocks cover disjoint parts of out, so they are copied concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	minChunk, endChunk := chunkRange(attrs.BlockSize, start, shape)
	err = iterateGrid(minChunk, endChunk, func(indices []int) error {
		coord := slices.Clone(indices)
		g.Go(func() error {
			b, ok, err := e.ReadBlock(gctx, p, coord)
			if err != nil || !ok {
				return err
			}
			if b.Len() != product(b.Shape) {
				return fmt.Errorf("%w: block %v holds %d elements for extent %v", ErrSizeMismatch, coord, b.Len(), b.Shape)
			}

			box, ok := intersect(coord, attrs.BlockSize, b.Shape, start, shape)
			if !ok {
				return nil
			}
			copyND(dst, dstStrides, box.regionOffset, reflect.ValueOf(b.Data), strides(b.Shape), box.chunkOffset, box.shape)
			return nil
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteRegion writes the dense block b into the dataset at path with its
// first element at start. Blocks fully covered by the region are replaced;
// partially covered ones are read, merged and written back, absent ones
// starting from zero. Concurrent writers of overlapping regions may lose
// updates to shared blocks.
func (e *Engine) WriteRegion(ctx context.Context, path string, start []int, b *block.Block) error {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: nil block", ErrShapeMismatch)
	}
	if b.Type != attrs.DataType {
		return fmt.Errorf("%w: dataset %s holds %v, region holds %v", ErrTypeMismatch, p, attrs.DataType, b.Type)
	}
	if b.IsVarlength() {
		return fmt.Errorf("%w: region must be a dense block", ErrShapeMismatch)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	shape := b.Shape
	if err := checkRegion(attrs.Dimensions, start, shape); err != nil {
		return err
	}

	src := reflect.ValueOf(b.Data)
	srcStrides := strides(shape)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	minChunk, endChunk := chunkRange(attrs.BlockSize, start, shape)
	err = iterateGrid(minChunk, endChunk, func(indices []int) error {
		coord := slices.Clone(indices)
		g.Go(func() error {
			extent, err := attrs.BlockExtent(coord)
			if err != nil {
				return err
			}
			box, ok := intersect(coord, attrs.BlockSize, extent, start, shape)
			if !ok {
				return nil
			}

			var chunk *block.Block
			if slices.Equal(box.shape, extent) {
				chunk, err = block.Zeros(attrs.DataType, extent)
			} else {
				chunk, err = e.mergeBase(gctx, p, coord, attrs.DataType, extent)
			}
			if err != nil {
				return err
			}

			copyND(reflect.ValueOf(chunk.Data), strides(extent), box.chunkOffset, src, srcStrides, box.regionOffset, box.shape)
			return e.WriteBlock(gctx, p, coord, chunk)
		})
		return nil
	})
	if err != nil {
		return err
	}
	return g.Wait()
}

// mergeBase returns the current content of the block at coord laid out over
// extent, or zeros when the block is absent.
func (e *Engine) mergeBase(ctx context.Context, p string, coord []int, dt block.DataType, extent []int) (*block.Block, error) {
	base, err := block.Zeros(dt, extent)
	if err != nil {
		return nil, err
	}
	stored, ok, err := e.ReadBlock(ctx, p, coord)
	if err != nil || !ok {
		return base, err
	}
	if stored.Len() != product(stored.Shape) {
		return nil, fmt.Errorf("%w: block %v holds %d elements for extent %v", ErrSizeMismatch, coord, stored.Len(), stored.Shape)
	}

	// A stored block may be smaller than its extent; keep what overlaps.
	overlap := make([]int, len(extent))
	for i := range extent {
		overlap[i] = min(extent[i], stored.Shape[i])
	}
	zero := make([]int, len(extent))
	copyND(reflect.ValueOf(base.Data), strides(extent), zero, reflect.ValueOf(stored.Data), strides(stored.Shape), zero, overlap)
	return base, nil
}

// checkRegion validates the box [start, start+shape) against dims.
func checkRegion(dims, start, shape []int) error {
	if len(start) != len(dims) || len(shape) != len(dims) {
		return fmt.Errorf("%w: region rank does not match dataset rank %d", ErrOutOfBounds, len(dims))
	}
	for i := range dims {
		if start[i] < 0 || start[i] >= dims[i] || shape[i] <= 0 || shape[i] > dims[i]-start[i] {
			return fmt.Errorf("%w: region out of bounds at dimension %d", ErrOutOfBounds, i)
		}
	}
	return nil
}

// chunkRange returns the grid box [minChunk, endChunk) touched by a region.
func chunkRange(blockSize, start, shape []int) (minChunk, endChunk []int) {
	minChunk = make([]int, len(start))
	endChunk = make([]int, len(start))
	for i := range start {
		minChunk[i] = start[i] / blockSize[i]
		endChunk[i] = (start[i]+shape[i]-1)/blockSize[i] + 1
	}
	return minChunk, endChunk
}

// overlapBox is the intersection of one block with a region, as offsets into
// each of them.
type overlapBox struct {
	shape        []int
	chunkOffset  []int
	regionOffset []int
}

// intersect clips the block at coord, holding chunkShape elements per axis,
// against the region [start, start+shape).
func intersect(coord, blockSize, chunkShape, start, shape []int) (overlapBox, bool) {
	box := overlapBox{
		shape:        make([]int, len(coord)),
		chunkOffset:  make([]int, len(coord)),
		regionOffset: make([]int, len(coord)),
	}
	for i := range coord {
		chunkStart := coord[i] * blockSize[i]
		chunkEnd := chunkStart + chunkShape[i]

		intersectStart := max(chunkStart, start[i])
		intersectEnd := min(chunkEnd, start[i]+shape[i])
		if intersectStart >= intersectEnd {
			return box, false
		}

		box.shape[i] = intersectEnd - intersectStart
		box.chunkOffset[i] = intersectStart - chunkStart
		box.regionOffset[i] = intersectStart - start[i]
	}
	return box, true
}

// ReadFull reads the whole dataset at path into a single block.
func (e *Engine) ReadFull(ctx context.Context, path string) (*block.Block, error) {
	attrs, err := e.GetDatasetAttributes(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.ReadRegion(ctx, path, make([]int, attrs.Rank()), attrs.Dimensions)
}

// copyND copies an n-dimensional box between two row-major typed slices of
// the same element type. The innermost axis is contiguous in both.
func copyND(
	dst reflect.Value, dstStrides, dstOffset []int,
	src reflect.Value, srcStrides, srcOffset []int,
	copyShape []int,
) {
	startSrcIdx := 0
	startDstIdx := 0
	for i := range copyShape {
		startSrcIdx += srcOffset[i] * srcStrides[i]
		startDstIdx += dstOffset[i] * dstStrides[i]
	}

	last := len(copyShape) - 1
	var iterate func(dim, srcIdx, dstIdx int)
	iterate = func(dim, srcIdx, dstIdx int) {
		if dim == last {
			n := copyShape[dim]
			reflect.Copy(dst.Slice(dstIdx, dstIdx+n), src.Slice(srcIdx, srcIdx+n))
			return
		}
		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, srcIdx+i*srcStrides[dim], dstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, startSrcIdx, startDstIdx)
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
