package n5

import (
	"fmt"
	"strconv"
	"strings"
)

// GridShape calculates the number of blocks in each dimension.
// For each dimension i, the number of blocks is ceil(dims[i] / blockSize[i]).
func GridShape(dims, blockSize []int) []int {
	grid := make([]int, len(dims))
	for i := range dims {
		grid[i] = (dims[i] + blockSize[i] - 1) / blockSize[i]
	}
	return grid
}

// ChunkKey renders a block coordinate as decimal indices joined by separator,
// in axis order. N5 uses "/".
// Example: coord=[1, 4], separator="/" -> "1/4"
func ChunkKey(coord []int, separator string) string {
	if len(coord) == 1 {
		return strconv.Itoa(coord[0])
	}

	var sb strings.Builder
	for i, idx := range coord {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// ParseChunkKey is the inverse of ChunkKey.
func ParseChunkKey(key, separator string) ([]int, error) {
	parts := strings.Split(key, separator)
	coord := make([]int, len(parts))
	for i, p := range parts {
		if !isIndex(p) {
			return nil, fmt.Errorf("invalid chunk key %q", key)
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk key %q: %w", key, err)
		}
		coord[i] = v
	}
	return coord, nil
}

// isIndex reports whether s is a non-empty run of decimal digits.
func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// strides computes the C-order strides for a given shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

// iterateGrid calls fn for every index from start (inclusive) to end
// (exclusive), last axis fastest. The slice passed to fn is reused.
func iterateGrid(start, end []int, fn func(indices []int) error) error {
	for i := range start {
		if start[i] >= end[i] {
			return nil
		}
	}
	indices := make([]int, len(start))
	copy(indices, start)

	for {
		if err := fn(indices); err != nil {
			return err
		}

		i := len(start) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < end[i] {
				break
			}
			indices[i] = start[i]
		}
		if i < 0 {
			return nil
		}
	}
}
