package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

// BlobStore keeps values in a gocloud blob bucket. Writes land on Close of
// the blob writer, so a partially written value is never visible.
type BlobStore struct {
	bucket *blob.Bucket
}

var _ Store = (*BlobStore)(nil)

// OpenBucket opens a store from a gocloud URL, e.g. "file:///data/ds.n5" or
// "mem://".
func OpenBucket(ctx context.Context, url string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return NewBlobStore(bucket), nil
}

// NewFileStore opens a directory-backed store rooted at dir, creating it if
// needed. Temporary files are written next to their destination so the final
// rename never crosses a mount point, and no attribute sidecars are written.
func NewFileStore(dir string) (*BlobStore, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return NewBlobStore(bucket), nil
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *BlobStore {
	return NewBlobStore(memblob.OpenBucket(nil))
}

// NewBlobStore wraps an open bucket. The store takes ownership of it.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Bucket exposes the underlying bucket.
func (s *BlobStore) Bucket() *blob.Bucket { return s.bucket }

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, value []byte) error {
	// Cancelling ctx before Close aborts the write and keeps the old value.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, err)
	}
	if _, err := writer.Write(value); err != nil {
		cancel()
		writer.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return ok, nil
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
