package n5_test

import (
	"context"
	"math"
	"testing"

	n5 "github.com/TuSKan/go-n5"
	"github.com/TuSKan/go-n5/block"
	"github.com/TuSKan/go-n5/codec"
	"github.com/TuSKan/go-n5/store"
	"github.com/stretchr/testify/require"
)

// writeIndexed fills every block of a 2-D int32 dataset with the global
// linear index of each element, except the blocks listed in skip.
func writeIndexed(t *testing.T, e *n5.Engine, path string, attrs *n5.DatasetAttributes, skip map[[2]int]bool) []int32 {
	t.Helper()
	ctx := context.Background()
	dims := attrs.Dimensions
	want := make([]int32, dims[0]*dims[1])

	grid := attrs.GridShape()
	for cx := range grid[0] {
		for cy := range grid[1] {
			coord := []int{cx, cy}
			extent, err := attrs.BlockExtent(coord)
			require.NoError(t, err)

			data := make([]int32, 0, extent[0]*extent[1])
			for x := range extent[0] {
				for y := range extent[1] {
					gx, gy := cx*attrs.BlockSize[0]+x, cy*attrs.BlockSize[1]+y
					v := int32(gx*dims[1] + gy)
					data = append(data, v)
					if !skip[[2]int{cx, cy}] {
						want[gx*dims[1]+gy] = v
					}
				}
			}
			if skip[[2]int{cx, cy}] {
				continue
			}
			b, err := block.FromSlice(extent, data)
			require.NoError(t, err)
			require.NoError(t, e.WriteBlock(ctx, path, coord, b))
		}
	}
	return want
}

func TestReadRegion(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore(), n5.WithParallelism(3))

	attrs, err := n5.NewDatasetAttributes([]int{10, 7}, []int{4, 3}, block.Int32, codec.GzipCompression(1))
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "grid", attrs))
	full := writeIndexed(t, e, "grid", attrs, map[[2]int]bool{{1, 1}: true})

	got, err := e.ReadFull(ctx, "grid")
	require.NoError(t, err)
	require.Equal(t, []int{10, 7}, got.Shape)
	require.Equal(t, full, got.Data)

	// The absent block [1,1] covers rows 4..7, columns 3..5.
	region, err := e.ReadRegion(ctx, "grid", []int{3, 2}, []int{6, 4})
	require.NoError(t, err)
	require.Equal(t, []int{6, 4}, region.Shape)

	values, err := block.Values[int32](region)
	require.NoError(t, err)
	for x := range 6 {
		for y := range 4 {
			gx, gy := 3+x, 2+y
			want := int32(gx*7 + gy)
			if gx >= 4 && gx < 8 && gy >= 3 && gy < 6 {
				want = 0
			}
			require.Equal(t, want, values[x*4+y], "element (%d,%d)", gx, gy)
		}
	}

	single, err := e.ReadRegion(ctx, "grid", []int{9, 6}, []int{1, 1})
	require.NoError(t, err)
	require.Equal(t, []int32{69}, single.Data)
}

func TestReadRegionBounds(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore())

	attrs, err := n5.NewDatasetAttributes([]int{10, 7}, []int{4, 3}, block.Int32, codec.RawCompression())
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "grid", attrs))

	tests := []struct {
		start []int
		shape []int
	}{
		{[]int{0}, []int{1}},
		{[]int{-1, 0}, []int{1, 1}},
		{[]int{0, 0}, []int{0, 1}},
		{[]int{8, 0}, []int{3, 1}},
		{[]int{0, 0}, []int{10, 8}},
		{[]int{math.MaxInt - 1, 0}, []int{2, 1}},
		{[]int{0, 0}, []int{1, math.MaxInt}},
	}
	for _, tt := range tests {
		_, err := e.ReadRegion(ctx, "grid", tt.start, tt.shape)
		require.ErrorIs(t, err, n5.ErrOutOfBounds, "start %v shape %v", tt.start, tt.shape)
	}

	empty, err := e.ReadFull(ctx, "grid")
	require.NoError(t, err)
	require.Equal(t, make([]int32, 70), empty.Data)
}

func TestReadRegionCorruptBlock(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore())

	attrs, err := n5.NewDatasetAttributes([]int{4, 4}, []int{2, 2}, block.Int32, codec.RawCompression())
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "grid", attrs))
	require.NoError(t, e.Backend().PutChunk(ctx, "grid", []int{1, 0}, []byte{0, 0, 0, 2, 0, 0}))

	_, err = e.ReadFull(ctx, "grid")
	require.ErrorIs(t, err, n5.ErrCorruptPayload)
}

func TestWriteRegion(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore(), n5.WithParallelism(3))

	attrs, err := n5.NewDatasetAttributes([]int{10, 7}, []int{4, 3}, block.Int32, codec.GzipCompression(1))
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "grid", attrs))
	// [0,0] is absent and partially covered, [2,2] is absent and fully covered.
	want := writeIndexed(t, e, "grid", attrs, map[[2]int]bool{{0, 0}: true, {2, 2}: true})

	start, shape := []int{3, 2}, []int{7, 5}
	data := make([]int32, shape[0]*shape[1])
	for x := range shape[0] {
		for y := range shape[1] {
			v := int32(1000 + x*shape[1] + y)
			data[x*shape[1]+y] = v
			want[(start[0]+x)*7+start[1]+y] = v
		}
	}
	region, err := block.FromSlice(shape, data)
	require.NoError(t, err)
	require.NoError(t, e.WriteRegion(ctx, "grid", start, region))

	full, err := e.ReadFull(ctx, "grid")
	require.NoError(t, err)
	require.Equal(t, want, full.Data)

	got, err := e.ReadRegion(ctx, "grid", start, shape)
	require.NoError(t, err)
	require.Equal(t, data, got.Data)

	corner, ok, err := e.ReadBlock(ctx, "grid", []int{2, 2})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{2, 1}, corner.Shape)
	require.Equal(t, []int32{want[8*7+6], want[9*7+6]}, corner.Data)

	origin, ok, err := e.ReadBlock(ctx, "grid", []int{0, 0})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{4, 3}, origin.Shape)
	require.Equal(t, []int32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1000}, origin.Data)
}

func TestWriteRegionMergesShortBlock(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore())

	attrs, err := n5.NewDatasetAttributes([]int{8}, []int{4}, block.Uint8, codec.RawCompression())
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "line", attrs))

	// Other writers may store a block smaller than its extent.
	short, err := block.FromSlice([]int{2}, []uint8{1, 2})
	require.NoError(t, err)
	raw, err := block.Encode(short, codec.Raw{})
	require.NoError(t, err)
	require.NoError(t, e.Backend().PutChunk(ctx, "line", []int{0}, raw))

	patch, err := block.FromSlice([]int{3}, []uint8{7, 8, 9})
	require.NoError(t, err)
	require.NoError(t, e.WriteRegion(ctx, "line", []int{3}, patch))

	full, err := e.ReadFull(ctx, "line")
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2, 0, 7, 8, 9, 0, 0}, full.Data)

	b, ok, err := e.ReadBlock(ctx, "line", []int{0})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{4}, b.Shape)
}

func TestWriteRegionErrors(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemStore())

	attrs, err := n5.NewDatasetAttributes([]int{8}, []int{4}, block.Int16, codec.RawCompression())
	require.NoError(t, err)
	require.NoError(t, e.CreateDataset(ctx, "line", attrs))

	two, err := block.FromSlice([]int{2}, []int16{1, 2})
	require.NoError(t, err)
	wrongType, err := block.FromSlice([]int{2}, []int32{1, 2})
	require.NoError(t, err)

	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{0}, nil), n5.ErrShapeMismatch)
	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{0}, wrongType), n5.ErrTypeMismatch)
	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{0}, block.Varlength([]int{2}, []int16{1})), n5.ErrShapeMismatch)
	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{7}, two), n5.ErrOutOfBounds)
	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{math.MaxInt - 1}, two), n5.ErrOutOfBounds)
	require.ErrorIs(t, e.WriteRegion(ctx, "line", []int{0, 0}, two), n5.ErrOutOfBounds)
	require.ErrorIs(t, e.WriteRegion(ctx, "missing", []int{0}, two), n5.ErrDatasetNotFound)

	coords, err := e.ListBlocks(ctx, "line")
	require.NoError(t, err)
	require.Empty(t, coords)
}
