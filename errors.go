// Package n5 stores N-dimensional arrays as chunked, compressed blocks in
// the N5 layout: one attributes.json per dataset plus one object per block,
// keyed by its grid coordinate.
package n5

import (
	"errors"

	"github.com/TuSKan/go-n5/block"
	"github.com/TuSKan/go-n5/codec"
)

// Common errors
var (
	ErrInvalidShape    = errors.New("invalid dataset shape")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrOutOfBounds     = errors.New("block coordinate out of bounds")
	ErrShapeMismatch   = errors.New("block extent does not match dataset")
	ErrInvalidPath     = errors.New("invalid dataset path")
	ErrClosed          = errors.New("engine is closed")
)

// Errors detected by the block and codec layers.
var (
	ErrTypeMismatch     = block.ErrTypeMismatch
	ErrRankMismatch     = block.ErrRankMismatch
	ErrOversizedBlock   = block.ErrOversizedBlock
	ErrSizeMismatch     = block.ErrSizeMismatch
	ErrCorruptPayload   = codec.ErrCorruptPayload
	ErrUnsupportedCodec = codec.ErrUnsupportedCodec
)
