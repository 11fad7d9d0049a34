package dedup_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"photodup/internal/dedup"
	"photodup/internal/testutil"
	"photodup/internal/thumbstore"
)

func TestCacheKey(t *testing.T) {
	a := dedup.CacheKey("/volume1/photo/a.jpg", 1700000000, 100)
	if len(a) != 64 {
		t.Errorf("len(CacheKey()) = %d, want 64", len(a))
	}
	if a != dedup.CacheKey("/volume1/photo/a.jpg", 1700000000, 100) {
		t.Error("CacheKey() not deterministic")
	}
	if a == dedup.CacheKey("/volume1/photo/a.jpg", 1700000001, 100) {
		t.Error("CacheKey() ignores mtime")
	}
	if a == dedup.CacheKey("/volume1/photo/a.jpg", 1700000000, 101) {
		t.Error("CacheKey() ignores size")
	}
}

func TestThumbnailCache_Get(t *testing.T) {
	ctx := context.Background()
	const img = "/volume1/photo/2020/IMG_001.jpg"

	t.Run("renders once per identity", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		remote.AddFile(img, []byte("original"))
		blobs := thumbstore.NewMemoryStore()
		db := testutil.NewTestDatabase(t)
		gen := testutil.NewCountingGenerator()
		cache := dedup.NewThumbnailCache(remote, blobs, db, gen, dedup.NopLogger{}, testutil.FixedClock(), 0)

		first, err := cache.Get(ctx, img, 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		second, err := cache.Get(ctx, img, 0)
		if err != nil {
			t.Fatalf("second Get() error = %v", err)
		}

		if !bytes.Equal(first, second) {
			t.Errorf("cached bytes differ: %q vs %q", first, second)
		}
		if gen.Calls(img) != 1 {
			t.Errorf("renders = %d, want 1", gen.Calls(img))
		}
		if string(first) != "thumb:"+img+":512:1" {
			t.Errorf("Get() = %q, want default size render", first)
		}

		count, total, err := db.ThumbnailStats()
		if err != nil {
			t.Fatalf("ThumbnailStats() error = %v", err)
		}
		if count != 1 || total != int64(len(first)) {
			t.Errorf("ThumbnailStats() = (%d, %d), want (1, %d)", count, total, len(first))
		}
	})

	t.Run("modified file renders again", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		remote.AddFile(img, []byte("original"))
		blobs := thumbstore.NewMemoryStore()
		gen := testutil.NewCountingGenerator()
		cache := dedup.NewThumbnailCache(remote, blobs, nil, gen, dedup.NopLogger{}, testutil.FixedClock(), 256)

		first, err := cache.Get(ctx, img, 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		remote.Touch(img, 1800000000)
		second, err := cache.Get(ctx, img, 0)
		if err != nil {
			t.Fatalf("Get() after touch error = %v", err)
		}

		if bytes.Equal(first, second) {
			t.Error("expected a fresh render after mtime change")
		}
		if gen.Calls(img) != 2 {
			t.Errorf("renders = %d, want 2", gen.Calls(img))
		}
		if blobs.Len() != 2 {
			t.Errorf("blobs = %d, want 2", blobs.Len())
		}
	})

	t.Run("oversized request is clamped to the limit", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		remote.AddFile(img, []byte("original"))
		gen := testutil.NewCountingGenerator()
		cache := dedup.NewThumbnailCache(remote, thumbstore.NewMemoryStore(), nil, gen, dedup.NopLogger{}, testutil.FixedClock(), 256)

		got, err := cache.Get(ctx, img, 100000)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "thumb:"+img+":256:1" {
			t.Errorf("Get() = %q, want render at 256", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		gen := testutil.NewCountingGenerator()
		cache := dedup.NewThumbnailCache(remote, thumbstore.NewMemoryStore(), nil, gen, dedup.NopLogger{}, testutil.FixedClock(), 0)

		_, err := cache.Get(ctx, "/volume1/photo/nope.jpg", 0)
		if !errors.Is(err, dedup.ErrRemoteCommandFailed) {
			t.Errorf("Get() error = %v, want ErrRemoteCommandFailed", err)
		}
		if gen.Calls("/volume1/photo/nope.jpg") != 0 {
			t.Error("generator should not run for a missing file")
		}
	})

	t.Run("render failure is not cached", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		remote.AddFile(img, []byte("original"))
		blobs := thumbstore.NewMemoryStore()
		gen := testutil.NewCountingGenerator()
		gen.Err = errors.New("decoder exploded")
		cache := dedup.NewThumbnailCache(remote, blobs, nil, gen, dedup.NopLogger{}, testutil.FixedClock(), 0)

		if _, err := cache.Get(ctx, img, 0); err == nil {
			t.Fatal("Get() expected error")
		}
		if blobs.Len() != 0 {
			t.Errorf("blobs = %d, want 0", blobs.Len())
		}
	})

	t.Run("unavailable transport", func(t *testing.T) {
		remote := testutil.NewMemoryRemote()
		remote.Unavailable = true
		cache := dedup.NewThumbnailCache(remote, thumbstore.NewMemoryStore(), nil, testutil.NewCountingGenerator(),
			dedup.NopLogger{}, testutil.FixedClock(), 0)

		if _, err := cache.Get(ctx, img, 0); !errors.Is(err, dedup.ErrTransportUnavailable) {
			t.Errorf("Get() error = %v, want ErrTransportUnavailable", err)
		}
	})
}
