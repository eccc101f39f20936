package block_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/TuSKan/go-n5/block"
	"github.com/TuSKan/go-n5/codec"
	"github.com/stretchr/testify/require"
)

func mustCodec(t *testing.T, c codec.Compression) codec.Codec {
	t.Helper()
	cd, err := codec.New(c)
	require.NoError(t, err)
	return cd
}

func TestHeaderLayout(t *testing.T) {
	b, err := block.FromSlice([]int{2, 3}, []int16{1, 2, 3, 4, 5, -1})
	require.NoError(t, err)

	raw, err := block.Encode(b, codec.Raw{})
	require.NoError(t, err)

	want := []byte{
		0x00, 0x00, // mode
		0x00, 0x02, // numDimensions
		0x00, 0x00, 0x00, 0x02, // blockSize[0]
		0x00, 0x00, 0x00, 0x03, // blockSize[1]
		0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, 0x05, 0xff, 0xff,
	}
	require.Equal(t, want, raw)

	h, err := block.ReadHeader(raw)
	require.NoError(t, err)
	require.Equal(t, block.ModeDefault, h.Mode)
	require.Equal(t, []int{2, 3}, h.Shape)
	require.Equal(t, 12, h.Len())
}

func TestFloatEncoding(t *testing.T) {
	b, err := block.FromSlice([]int{1}, []float64{42})
	require.NoError(t, err)

	raw, err := block.Encode(b, codec.Raw{})
	require.NoError(t, err)
	require.Equal(t, math.Float64bits(42), binary.BigEndian.Uint64(raw[8:]))
}

func TestRoundTripAllTypes(t *testing.T) {
	shape := []int{3, 4, 2}
	chunk := []int{4, 4, 2}
	cd := mustCodec(t, codec.DefaultCompression(codec.TypeGzip))

	blocks := []*block.Block{
		mustBlock(t, shape, []int8{math.MinInt8, math.MaxInt8, 0, 1}),
		mustBlock(t, shape, []int16{math.MinInt16, math.MaxInt16, 0, 1}),
		mustBlock(t, shape, []int32{math.MinInt32, math.MaxInt32, 0, 1}),
		mustBlock(t, shape, []int64{math.MinInt64, math.MaxInt64, 0, 1}),
		mustBlock(t, shape, []uint8{0, math.MaxUint8, 7, 1}),
		mustBlock(t, shape, []uint16{0, math.MaxUint16, 7, 1}),
		mustBlock(t, shape, []uint32{0, math.MaxUint32, 7, 1}),
		mustBlock(t, shape, []uint64{0, math.MaxUint64, 7, 1}),
		mustBlock(t, shape, []float32{-math.MaxFloat32, math.MaxFloat32, 0, float32(math.Inf(1))}),
		mustBlock(t, shape, []float64{-math.MaxFloat64, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(-1)}),
	}

	for _, b := range blocks {
		t.Run(b.Type.String(), func(t *testing.T) {
			raw, err := block.Encode(b, cd)
			require.NoError(t, err)

			got, err := block.Decode(raw, b.Type, chunk, cd)
			require.NoError(t, err)
			require.Equal(t, b.Type, got.Type)
			require.Equal(t, b.Shape, got.Shape)
			require.Equal(t, b.Data, got.Data)
		})
	}
}

// mustBlock fills a block of the given shape by repeating pattern.
func mustBlock[T block.Element](t *testing.T, shape []int, pattern []T) *block.Block {
	t.Helper()
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]T, n)
	for i := range data {
		data[i] = pattern[i%len(pattern)]
	}
	b, err := block.FromSlice(shape, data)
	require.NoError(t, err)
	return b
}

func TestVarlength(t *testing.T) {
	b := block.Varlength([]int{2, 2}, []int32{1, 2, 3, 4, 5, 6})
	require.True(t, b.IsVarlength())

	raw, err := block.Encode(b, codec.Raw{})
	require.NoError(t, err)

	h, err := block.ReadHeader(raw)
	require.NoError(t, err)
	require.Equal(t, block.ModeVarlength, h.Mode)
	require.Equal(t, 6, h.NumElements)
	require.Equal(t, 16, h.Len())

	got, err := block.Decode(raw, block.Int32, []int{2, 2}, codec.Raw{})
	require.NoError(t, err)
	require.Equal(t, block.ModeVarlength, got.Mode)
	require.Equal(t, 6, got.NumElements)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6}, got.Data)
}

func TestEmptyVarlength(t *testing.T) {
	for _, c := range []codec.Compression{codec.RawCompression(), codec.DefaultCompression(codec.TypeGzip)} {
		t.Run(c.String(), func(t *testing.T) {
			cd := mustCodec(t, c)
			b := block.Varlength([]int{2, 2}, []int32{})
			require.True(t, b.IsVarlength())
			require.NoError(t, b.Validate())

			raw, err := block.Encode(b, cd)
			require.NoError(t, err)

			h, err := block.ReadHeader(raw)
			require.NoError(t, err)
			require.Equal(t, block.ModeVarlength, h.Mode)
			require.Zero(t, h.NumElements)

			got, err := block.Decode(raw, block.Int32, []int{2, 2}, cd)
			require.NoError(t, err)
			require.True(t, got.IsVarlength())
			require.Equal(t, block.ModeVarlength, got.Mode)
			require.Zero(t, got.NumElements)
			require.Zero(t, got.Len())
			require.NoError(t, got.Validate())

			again, err := block.Encode(got, cd)
			require.NoError(t, err)
			require.Equal(t, raw, again)
		})
	}
}

func TestUnknownMode(t *testing.T) {
	b := mustBlock(t, []int{2}, []int8{1})
	b.Mode = 7
	_, err := block.Encode(b, codec.Raw{})
	require.ErrorIs(t, err, block.ErrCorruptPayload)
}

func TestDecodeErrors(t *testing.T) {
	b := mustBlock(t, []int{2, 3}, []uint16{1, 2, 3})
	raw, err := block.Encode(b, codec.Raw{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   []byte
		chunk []int
		err   error
	}{
		{"empty", nil, []int{2, 3}, block.ErrCorruptPayload},
		{"truncated mode", raw[:1], []int{2, 3}, block.ErrCorruptPayload},
		{"truncated shape", raw[:6], []int{2, 3}, block.ErrCorruptPayload},
		{"unknown mode", append([]byte{0x00, 0x07}, raw[2:]...), []int{2, 3}, block.ErrCorruptPayload},
		{"rank", raw, []int{2, 3, 1}, block.ErrRankMismatch},
		{"oversized", raw, []int{2, 2}, block.ErrOversizedBlock},
		{"short payload", raw[:len(raw)-1], []int{2, 3}, block.ErrSizeMismatch},
		{"long payload", append(append([]byte{}, raw...), 0, 0), []int{2, 3}, block.ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := block.Decode(tt.raw, block.Uint16, tt.chunk, codec.Raw{})
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, got)
		})
	}
}

func TestDecodeCorruptCompressedPayload(t *testing.T) {
	cd := mustCodec(t, codec.DefaultCompression(codec.TypeZstd))
	b := mustBlock(t, []int{8, 8}, []float32{1.5, -2.5})
	raw, err := block.Encode(b, cd)
	require.NoError(t, err)

	_, err = block.Decode(raw[:len(raw)-3], block.Float32, []int{8, 8}, cd)
	require.ErrorIs(t, err, block.ErrCorruptPayload)
}

func TestEncodeValidates(t *testing.T) {
	_, err := block.Encode(&block.Block{Type: block.Int8, Shape: []int{2}, Data: []int16{1, 2}}, codec.Raw{})
	require.ErrorIs(t, err, block.ErrTypeMismatch)

	_, err = block.Encode(&block.Block{Type: block.Int8, Shape: []int{3}, Data: []int8{1, 2}}, codec.Raw{})
	require.ErrorIs(t, err, block.ErrSizeMismatch)

	_, err = block.FromSlice([]int{2, 2}, []float64{1, 2, 3})
	require.ErrorIs(t, err, block.ErrSizeMismatch)
}

func TestValues(t *testing.T) {
	b, err := block.Zeros(block.Float64, []int{2, 2})
	require.NoError(t, err)

	v, err := block.Values[float64](b)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 0}, v)

	_, err = block.Values[float32](b)
	require.ErrorIs(t, err, block.ErrTypeMismatch)
}

func TestDataTypeText(t *testing.T) {
	for _, dt := range block.DataTypes() {
		text, err := dt.MarshalText()
		require.NoError(t, err)

		var back block.DataType
		require.NoError(t, back.UnmarshalText(text))
		require.Equal(t, dt, back)
	}

	require.Equal(t, block.Int8, block.DataTypeOf[int8]())
	require.Equal(t, block.Float32, block.DataTypeOf[float32]())
	require.Equal(t, block.Uint64, block.DataTypeOf[uint64]())

	_, err := block.ParseDataType("complex64")
	require.Error(t, err)
	require.Equal(t, 8, block.Float64.Size())
	require.Equal(t, 2, block.Uint16.Size())
}
