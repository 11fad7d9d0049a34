// Package thumbstore provides the blob stores backing the thumbnail cache.
package thumbstore

import (
	"context"
	"fmt"

	"photodup/internal/config"
	"photodup/internal/dedup"
)

// NewStoreFromConfig creates a BlobStore based on the store config type.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (dedup.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem store requires dir to be set")
		}
		store, err := NewFileSystemStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown thumbnail store type: %s", cfg.Type)
	}
}
