package dedup

import (
	"context"
	"io"
)

// BlobStore holds rendered thumbnail blobs keyed by content key.
// Writes are all-or-nothing: a reader never observes a partial blob.
type BlobStore interface {
	// Put stores size bytes read from r under key.
	// Storing the same key twice is safe.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the blob to w. It returns an error wrapping ErrNotFound if
	// the key is absent.
	Get(ctx context.Context, key string, w io.Writer) error

	// ValidateSetup verifies that the store is accessible.
	ValidateSetup(ctx context.Context) error
}

// ThumbnailGenerator renders a preview of a remote image.
// The output is a flat (non-transparent) JPEG whose longest edge is at most maxEdge.
type ThumbnailGenerator interface {
	Render(ctx context.Context, remotePath string, maxEdge int) ([]byte, error)
}
