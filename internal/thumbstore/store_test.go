package thumbstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photodup/internal/dedup"
)

// storeContract exercises the behaviour every BlobStore must share.
func storeContract(t *testing.T, store dedup.BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		data := []byte("jpeg bytes")
		if err := store.Put(ctx, "abc123", bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := store.Get(ctx, "abc123", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "jpeg bytes" {
			t.Errorf("Get() = %q, want %q", buf.String(), "jpeg bytes")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		var buf bytes.Buffer
		err := store.Get(ctx, "does-not-exist", &buf)
		if !errors.Is(err, dedup.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		err := store.Put(ctx, "mismatch", strings.NewReader("short"), 100)
		if err == nil {
			t.Fatal("Put() expected size mismatch error")
		}
		var buf bytes.Buffer
		if err := store.Get(ctx, "mismatch", &buf); !errors.Is(err, dedup.ErrNotFound) {
			t.Errorf("partial blob visible after failed Put: %v", err)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := store.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store)

	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
	if store.Puts() != 1 {
		t.Errorf("Puts() = %d, want 1", store.Puts())
	}
}

func TestFileSystemStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "thumbs")
	store, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	storeContract(t, store)

	t.Run("sharded layout", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(root, "ab", "abc123.jpg")); err != nil {
			t.Errorf("blob not at sharded path: %v", err)
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		matches, _ := filepath.Glob(filepath.Join(root, "*", ".tmp-*"))
		if len(matches) != 0 {
			t.Errorf("temp files left: %v", matches)
		}
	})

	t.Run("second put keeps existing blob", func(t *testing.T) {
		ctx := context.Background()
		if err := store.Put(ctx, "abc123", strings.NewReader("other"), 5); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		var buf bytes.Buffer
		if err := store.Get(ctx, "abc123", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "jpeg bytes" {
			t.Errorf("Get() = %q, want original blob", buf.String())
		}
	})
}
