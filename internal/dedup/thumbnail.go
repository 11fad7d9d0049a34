package dedup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"photodup/internal/shellcmd"
)

// DefaultThumbnailSize is the size limit used when none is configured.
const DefaultThumbnailSize = 512

// CacheKey derives the content identity key of a remote file.
func CacheKey(remotePath string, modTime, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", remotePath, modTime, size)))
	return hex.EncodeToString(sum[:])
}

// ThumbnailCache serves previews of remote images, rendering each distinct
// (path, mtime, size) identity at most once.
type ThumbnailCache struct {
	shell       RemoteShell
	blobs       BlobStore
	index       ThumbnailIndex
	generator   ThumbnailGenerator
	logger      Logger
	clock       Clock
	sizeLimit   int
}

// NewThumbnailCache creates a cache. index may be nil. sizeLimit is both
// the default and the largest edge Get will render.
func NewThumbnailCache(shell RemoteShell, blobs BlobStore, index ThumbnailIndex, generator ThumbnailGenerator, logger Logger, clock Clock, sizeLimit int) *ThumbnailCache {
	if sizeLimit <= 0 {
		sizeLimit = DefaultThumbnailSize
	}
	return &ThumbnailCache{
		shell:       shell,
		blobs:       blobs,
		index:       index,
		generator:   generator,
		logger:      logger,
		clock:       clock,
		sizeLimit:   sizeLimit,
	}
}

// Get returns the preview for remotePath, bounded to maxSize on the longest
// edge. maxSize <= 0 or above the cache's limit renders at the limit. A
// cached blob is returned without any remote work beyond one stat.
func (c *ThumbnailCache) Get(ctx context.Context, remotePath string, maxSize int) ([]byte, error) {
	if maxSize <= 0 || maxSize > c.sizeLimit {
		maxSize = c.sizeLimit
	}

	modTime, size, err := c.stat(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	key := CacheKey(remotePath, modTime, size)

	var buf bytes.Buffer
	err = c.blobs.Get(ctx, key, &buf)
	if err == nil {
		c.logger.Debug("thumbnail cache hit", "path", remotePath, "key", key)
		return buf.Bytes(), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("reading cached thumbnail: %w", err)
	}

	data, err := c.generator.Render(ctx, remotePath, maxSize)
	if err != nil {
		return nil, fmt.Errorf("rendering thumbnail for %s: %w", remotePath, err)
	}
	if err := c.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("storing thumbnail: %w", err)
	}

	if c.index != nil {
		entry := &ThumbnailEntry{
			CacheKey:   key,
			RemotePath: remotePath,
			ModTime:    modTime,
			Size:       size,
			BlobSize:   int64(len(data)),
			CreatedAt:  c.clock.Now(),
		}
		if err := c.index.RecordThumbnail(entry); err != nil {
			c.logger.Warn("thumbnail index not updated", "key", key, "error", err)
		}
	}

	c.logger.Debug("thumbnail rendered", "path", remotePath, "key", key, "bytes", len(data))
	return data, nil
}

// stat returns the remote file's modification time (unix seconds) and size.
func (c *ThumbnailCache) stat(ctx context.Context, remotePath string) (int64, int64, error) {
	res, err := run(ctx, c.shell, shellcmd.StatModSize(remotePath))
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", remotePath, err)
	}
	fields := strings.Fields(string(res.Stdout))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("stat %s: unexpected output %q", remotePath, strings.TrimSpace(string(res.Stdout)))
	}
	modTime, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: parsing mtime: %w", remotePath, err)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: parsing size: %w", remotePath, err)
	}
	return modTime, size, nil
}
