package n5

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/TuSKan/go-n5/store"
)

// AttributesFile is the name of the metadata object of every dataset.
const AttributesFile = "attributes.json"

// Backend lays datasets out in a store: the metadata object at
// <path>/attributes.json and each block at <path>/<c0>/<c1>/...
type Backend struct {
	store store.Store
}

// NewBackend returns a Backend over s.
func NewBackend(s store.Store) *Backend {
	return &Backend{store: s}
}

// CleanPath normalizes a dataset path. Paths may not be empty, escape the
// root, or contain segments that read as block indices or metadata.
func CleanPath(p string) (string, error) {
	if slices.Contains(strings.Split(p, "/"), "..") {
		return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, p)
	}
	cleaned := strings.Trim(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if isIndex(seg) || seg == AttributesFile {
			return "", fmt.Errorf("%w: %q has reserved segment %q", ErrInvalidPath, p, seg)
		}
	}
	return cleaned, nil
}

func metadataKey(p string) string { return p + "/" + AttributesFile }

func chunkKey(p string, coord []int) string { return p + "/" + ChunkKey(coord, "/") }

// PutMetadata writes the attributes of the dataset at p.
func (b *Backend) PutMetadata(ctx context.Context, p string, attrs *DatasetAttributes) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}
	return b.store.Put(ctx, metadataKey(p), data)
}

// GetMetadata reads the attributes of the dataset at p.
func (b *Backend) GetMetadata(ctx context.Context, p string) (*DatasetAttributes, error) {
	data, err := b.store.Get(ctx, metadataKey(p))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, p)
	}
	if err != nil {
		return nil, err
	}
	attrs, err := LoadAttributes(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", p, err)
	}
	return attrs, nil
}

// DatasetExists reports whether the dataset at p has a metadata object.
func (b *Backend) DatasetExists(ctx context.Context, p string) (bool, error) {
	return b.store.Exists(ctx, metadataKey(p))
}

// PutChunk stores the serialized block at coord.
func (b *Backend) PutChunk(ctx context.Context, p string, coord []int, data []byte) error {
	return b.store.Put(ctx, chunkKey(p, coord), data)
}

// GetChunk returns the serialized block at coord. ok is false when no block
// was ever written there.
func (b *Backend) GetChunk(ctx context.Context, p string, coord []int) (data []byte, ok bool, err error) {
	data, err = b.store.Get(ctx, chunkKey(p, coord))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// DeleteChunk removes the block at coord.
func (b *Backend) DeleteChunk(ctx context.Context, p string, coord []int) error {
	return b.store.Delete(ctx, chunkKey(p, coord))
}

// ChunkExists reports whether a block is stored at coord.
func (b *Backend) ChunkExists(ctx context.Context, p string, coord []int) (bool, error) {
	return b.store.Exists(ctx, chunkKey(p, coord))
}

// ListChunks returns the coordinates of every block stored under p, in
// ascending order. Keys of nested datasets are skipped.
func (b *Backend) ListChunks(ctx context.Context, p string) ([][]int, error) {
	keys, err := b.store.List(ctx, p+"/")
	if err != nil {
		return nil, err
	}
	var coords [][]int
	for _, key := range keys {
		coord, err := ParseChunkKey(strings.TrimPrefix(key, p+"/"), "/")
		if err != nil {
			continue
		}
		coords = append(coords, coord)
	}
	slices.SortFunc(coords, slices.Compare)
	return coords, nil
}

// DeleteDataset removes the metadata and every block of the dataset at p.
// Nested datasets are left in place.
func (b *Backend) DeleteDataset(ctx context.Context, p string) error {
	keys, err := b.store.List(ctx, p+"/")
	if err != nil {
		return err
	}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, p+"/")
		if rel != AttributesFile {
			if _, err := ParseChunkKey(rel, "/"); err != nil {
				continue
			}
		}
		if err := b.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
