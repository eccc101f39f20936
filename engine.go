package n5

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/TuSKan/go-n5/block"
	"github.com/TuSKan/go-n5/codec"
	"github.com/TuSKan/go-n5/store"
	"github.com/go-logr/logr"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

// Engine creates datasets and reads and writes their blocks. It is safe for
// concurrent use; writes to distinct block coordinates never interfere.
type Engine struct {
	store       store.Store
	backend     *Backend
	log         logr.Logger
	attrs       *cache.Cache
	parallelism int
	closed      atomic.Bool
}

// BlockWrite is one entry of a WriteBlocks batch.
type BlockWrite struct {
	Coord []int
	Block *block.Block
}

// New returns an Engine over s. The engine owns s and closes it on Close.
func New(s store.Store, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	e := &Engine{
		store:       s,
		backend:     NewBackend(s),
		log:         o.logger,
		parallelism: o.parallelism,
	}
	if o.cacheAttrs {
		e.attrs = cache.New(o.cacheTTL, 0)
	}
	return e
}

// Open opens an Engine from a storage URL. "leveldb://<dir>" opens a LevelDB
// database; any other URL is opened as a gocloud bucket, e.g.
// "file:///data/root.n5?create_dir=1" or "mem://".
func Open(ctx context.Context, url string, opts ...Option) (*Engine, error) {
	var s store.Store
	if dir, ok := strings.CutPrefix(url, "leveldb://"); ok {
		ls, err := store.OpenLevelStore(dir)
		if err != nil {
			return nil, err
		}
		s = ls
	} else {
		bs, err := store.OpenBucket(ctx, url)
		if err != nil {
			return nil, err
		}
		s = bs
	}
	e := New(s, opts...)
	e.log.Info("opened store", "url", url)
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.attrs != nil {
		e.attrs.Flush()
	}
	return e.store.Close()
}

// Backend exposes the namespace layout the engine writes through.
func (e *Engine) Backend() *Backend { return e.backend }

// CreateDataset validates attrs and persists them at path. Re-creating an
// existing dataset first removes all of its blocks, so no block written
// under the old attributes survives.
func (e *Engine) CreateDataset(ctx context.Context, path string, attrs *DatasetAttributes) error {
	p, err := e.checkPath(path)
	if err != nil {
		return err
	}
	if err := attrs.Validate(); err != nil {
		return err
	}
	if _, err := codec.New(attrs.Compression); err != nil {
		return fmt.Errorf("dataset %s: %w", p, err)
	}

	exists, err := e.backend.DatasetExists(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to check dataset %s: %w", p, err)
	}
	if exists {
		e.log.Info("purging existing dataset", "path", p)
		if err := e.backend.DeleteDataset(ctx, p); err != nil {
			return fmt.Errorf("failed to purge dataset %s: %w", p, err)
		}
	}
	e.forget(p)

	stored := &DatasetAttributes{
		Dimensions:  slices.Clone(attrs.Dimensions),
		BlockSize:   slices.Clone(attrs.BlockSize),
		DataType:    attrs.DataType,
		Compression: attrs.Compression,
	}
	if err := e.backend.PutMetadata(ctx, p, stored); err != nil {
		return fmt.Errorf("failed to write attributes of %s: %w", p, err)
	}
	e.remember(p, stored)

	e.log.Info("created dataset", "path", p,
		"dimensions", stored.Dimensions,
		"blockSize", stored.BlockSize,
		"dataType", stored.DataType.String(),
		"compression", stored.Compression.String())
	return nil
}

// GetDatasetAttributes returns a copy of the attributes of the dataset at path.
func (e *Engine) GetDatasetAttributes(ctx context.Context, path string) (*DatasetAttributes, error) {
	p, err := e.checkPath(path)
	if err != nil {
		return nil, err
	}
	attrs, err := e.attributes(ctx, p)
	if err != nil {
		return nil, err
	}
	out := *attrs
	out.Dimensions = slices.Clone(attrs.Dimensions)
	out.BlockSize = slices.Clone(attrs.BlockSize)
	return &out, nil
}

// DatasetExists reports whether a dataset was created at path.
func (e *Engine) DatasetExists(ctx context.Context, path string) (bool, error) {
	p, err := e.checkPath(path)
	if err != nil {
		return false, err
	}
	return e.backend.DatasetExists(ctx, p)
}

// RemoveDataset deletes the dataset at path with all of its blocks.
func (e *Engine) RemoveDataset(ctx context.Context, path string) error {
	p, err := e.checkPath(path)
	if err != nil {
		return err
	}
	e.forget(p)
	if err := e.backend.DeleteDataset(ctx, p); err != nil {
		return fmt.Errorf("failed to remove dataset %s: %w", p, err)
	}
	e.log.Info("removed dataset", "path", p)
	return nil
}

// WriteBlock stores b at coord. The block element type must equal the
// dataset type and its extent must equal BlockExtent(coord).
func (e *Engine) WriteBlock(ctx context.Context, path string, coord []int, b *block.Block) error {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return err
	}
	extent, err := attrs.BlockExtent(coord)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: nil block at %v", ErrShapeMismatch, coord)
	}
	if b.Type != attrs.DataType {
		return fmt.Errorf("%w: dataset %s holds %v, block holds %v", ErrTypeMismatch, p, attrs.DataType, b.Type)
	}
	if !slices.Equal(b.Shape, extent) {
		return fmt.Errorf("%w: block at %v has extent %v, want %v", ErrShapeMismatch, coord, b.Shape, extent)
	}

	cd, err := codec.New(attrs.Compression)
	if err != nil {
		return err
	}
	raw, err := block.Encode(b, cd)
	if err != nil {
		return fmt.Errorf("failed to encode block %v of %s: %w", coord, p, err)
	}
	if err := e.backend.PutChunk(ctx, p, coord, raw); err != nil {
		return fmt.Errorf("failed to write block %v of %s: %w", coord, p, err)
	}
	e.log.V(1).Info("wrote block", "path", p, "coord", coord, "bytes", len(raw))
	return nil
}

// WriteBlocks writes a batch of blocks concurrently. Coordinates should be
// distinct; the first failure cancels the remaining writes and is returned.
func (e *Engine) WriteBlocks(ctx context.Context, path string, writes []BlockWrite) error {
	if _, _, err := e.dataset(ctx, path); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for _, w := range writes {
		g.Go(func() error {
			return e.WriteBlock(gctx, path, w.Coord, w.Block)
		})
	}
	return g.Wait()
}

// ReadBlock returns the block stored at coord. ok is false when the block was
// never written; callers wanting fill values must check it rather than expect
// a zeroed block.
func (e *Engine) ReadBlock(ctx context.Context, path string, coord []int) (b *block.Block, ok bool, err error) {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if _, err := attrs.BlockExtent(coord); err != nil {
		return nil, false, err
	}

	raw, ok, err := e.backend.GetChunk(ctx, p, coord)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read block %v of %s: %w", coord, p, err)
	}
	if !ok {
		e.log.V(1).Info("block absent", "path", p, "coord", coord)
		return nil, false, nil
	}

	cd, err := codec.New(attrs.Compression)
	if err != nil {
		return nil, false, err
	}
	b, err = block.Decode(raw, attrs.DataType, attrs.BlockSize, cd)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode block %v of %s: %w", coord, p, err)
	}
	e.log.V(1).Info("read block", "path", p, "coord", coord, "bytes", len(raw))
	return b, true, nil
}

// DeleteBlock removes the block at coord. Deleting an absent block is not an
// error.
func (e *Engine) DeleteBlock(ctx context.Context, path string, coord []int) error {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return err
	}
	if _, err := attrs.BlockExtent(coord); err != nil {
		return err
	}
	if err := e.backend.DeleteChunk(ctx, p, coord); err != nil {
		return fmt.Errorf("failed to delete block %v of %s: %w", coord, p, err)
	}
	return nil
}

// BlockExists reports whether a block is stored at coord.
func (e *Engine) BlockExists(ctx context.Context, path string, coord []int) (bool, error) {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return false, err
	}
	if _, err := attrs.BlockExtent(coord); err != nil {
		return false, err
	}
	return e.backend.ChunkExists(ctx, p, coord)
}

// ListBlocks returns the coordinates of every stored block in ascending order.
func (e *Engine) ListBlocks(ctx context.Context, path string) ([][]int, error) {
	p, attrs, err := e.dataset(ctx, path)
	if err != nil {
		return nil, err
	}
	coords, err := e.backend.ListChunks(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks of %s: %w", p, err)
	}
	return slices.DeleteFunc(coords, func(c []int) bool {
		_, err := attrs.BlockExtent(c)
		return err != nil
	}), nil
}

func (e *Engine) checkPath(path string) (string, error) {
	if e.closed.Load() {
		return "", ErrClosed
	}
	return CleanPath(path)
}

// dataset resolves path and its attributes.
func (e *Engine) dataset(ctx context.Context, path string) (string, *DatasetAttributes, error) {
	p, err := e.checkPath(path)
	if err != nil {
		return "", nil, err
	}
	attrs, err := e.attributes(ctx, p)
	if err != nil {
		return "", nil, err
	}
	return p, attrs, nil
}

// attributes returns the shared, read-only attributes of the dataset at p.
func (e *Engine) attributes(ctx context.Context, p string) (*DatasetAttributes, error) {
	if e.attrs != nil {
		if v, ok := e.attrs.Get(p); ok {
			return v.(*DatasetAttributes), nil
		}
	}
	attrs, err := e.backend.GetMetadata(ctx, p)
	if err != nil {
		return nil, err
	}
	e.remember(p, attrs)
	return attrs, nil
}

func (e *Engine) remember(p string, attrs *DatasetAttributes) {
	if e.attrs != nil {
		e.attrs.Set(p, attrs, cache.DefaultExpiration)
	}
}

func (e *Engine) forget(p string) {
	if e.attrs != nil {
		e.attrs.Delete(p)
	}
}
