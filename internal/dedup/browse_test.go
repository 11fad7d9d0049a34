package dedup_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"photodup/internal/dedup"
	"photodup/internal/testutil"
)

func newBrowseRemote() *testutil.MemoryRemote {
	remote := testutil.NewMemoryRemote()
	remote.AddDir("/volume1/photo/2020")
	remote.AddDir("/volume1/photo/2021")
	remote.AddDir("/volume1/photo/Albums")
	remote.AddDir("/volume1/photo/@eaDir")
	remote.AddDir("/volume1/backup")
	remote.AddDir("/volume2/archive")
	return remote
}

func TestPathBrowser_ListDirectories(t *testing.T) {
	b := dedup.NewPathBrowser(newBrowseRemote(), dedup.NopLogger{})

	got, err := b.ListDirectories(context.Background(), "/volume1/photo/")
	if err != nil {
		t.Fatalf("ListDirectories() error = %v", err)
	}
	want := []string{"/volume1/photo/2020", "/volume1/photo/2021", "/volume1/photo/Albums"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListDirectories() = %v, want %v", got, want)
	}

	if _, err := b.ListDirectories(context.Background(), "/volume9"); !errors.Is(err, dedup.ErrRemoteCommandFailed) {
		t.Errorf("ListDirectories(missing) error = %v, want ErrRemoteCommandFailed", err)
	}
}

func TestPathBrowser_SuggestPaths(t *testing.T) {
	b := dedup.NewPathBrowser(newBrowseRemote(), dedup.NopLogger{})

	tests := []struct {
		name    string
		partial string
		want    []string
	}{
		{"empty lists volumes", "", []string{"/volume1", "/volume2"}},
		{"bare word matches volumes", "VOLUME2", []string{"/volume2"}},
		{"bare word without match", "photo", []string{}},
		{"trailing slash lists children", "/volume1/", []string{"/volume1/backup", "/volume1/photo"}},
		{"prefix filter", "/volume1/photo/20", []string{"/volume1/photo/2020", "/volume1/photo/2021"}},
		{"prefix ignores case", "/volume1/photo/al", []string{"/volume1/photo/Albums"}},
		{"system dirs hidden", "/volume1/photo/@", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.SuggestPaths(context.Background(), tt.partial)
			if err != nil {
				t.Fatalf("SuggestPaths(%q) error = %v", tt.partial, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestPaths(%q) = %v, want %v", tt.partial, got, tt.want)
			}
		})
	}
}

func TestPathBrowser_SuggestPathsLimit(t *testing.T) {
	remote := testutil.NewMemoryRemote()
	for i := 0; i < 30; i++ {
		remote.AddDir(fmt.Sprintf("/volume1/photo/event%02d", i))
	}
	b := dedup.NewPathBrowser(remote, dedup.NopLogger{})

	got, err := b.SuggestPaths(context.Background(), "/volume1/photo/ev")
	if err != nil {
		t.Fatalf("SuggestPaths() error = %v", err)
	}
	if len(got) != dedup.MaxSuggestions {
		t.Errorf("len = %d, want %d", len(got), dedup.MaxSuggestions)
	}
	if got[0] != "/volume1/photo/event00" {
		t.Errorf("first = %q, want event00", got[0])
	}
}

func TestPathBrowser_ValidatePath(t *testing.T) {
	remote := newBrowseRemote()
	remote.AddFile("/volume1/photo/readme.txt", nil)
	remote.SetUnreadable("/volume1/backup")
	b := dedup.NewPathBrowser(remote, dedup.NopLogger{})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", "/volume1/photo/", nil},
		{"empty", "  ", dedup.ErrInvalidRequest},
		{"missing", "/volume1/nope", dedup.ErrNotFound},
		{"file", "/volume1/photo/readme.txt", dedup.ErrNotFound},
		{"unreadable", "/volume1/backup", dedup.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.ValidatePath(context.Background(), tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePath() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
