package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestCredentialFile(t *testing.T) *AgeCredentialFile {
	t.Helper()
	f := NewAgeCredentialFile(filepath.Join(t.TempDir(), "secrets", "nas-password.age"))
	f.SetWorkFactor(10)
	return f
}

func TestAgeCredentialFile_IsConfigured(t *testing.T) {
	t.Parallel()
	f := newTestCredentialFile(t)

	if f.IsConfigured() {
		t.Error("IsConfigured() = true before Seal, want false")
	}
	if err := f.Seal("pass", "hunter2"); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !f.IsConfigured() {
		t.Error("IsConfigured() = false after Seal, want true")
	}
}

func TestAgeCredentialFile_SealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
	}{
		{name: "simple", secret: "hunter2"},
		{name: "spaces and quotes", secret: `p a's"s`},
		{name: "unicode", secret: "pässwörd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestCredentialFile(t)

			if err := f.Seal("correct horse", tt.secret); err != nil {
				t.Fatalf("Seal() error = %v", err)
			}

			raw, err := os.ReadFile(f.Path())
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if strings.Contains(string(raw), tt.secret) {
				t.Error("sealed file contains plaintext secret")
			}

			got, err := f.Open("correct horse")
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if got != tt.secret {
				t.Errorf("Open() = %q, want %q", got, tt.secret)
			}
		})
	}
}

func TestAgeCredentialFile_FileMode(t *testing.T) {
	t.Parallel()
	f := newTestCredentialFile(t)
	if err := f.Seal("pass", "secret"); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestAgeCredentialFile_OpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		f := newTestCredentialFile(t)
		_, err := f.Open("pass")
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Open() error = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		f := newTestCredentialFile(t)
		if err := f.Seal("right", "secret"); err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if _, err := f.Open("wrong"); err == nil {
			t.Error("Open() with wrong passphrase should return error")
		}
	})

	t.Run("empty passphrase", func(t *testing.T) {
		f := newTestCredentialFile(t)
		if err := f.Seal("", "secret"); err == nil {
			t.Error("Seal() with empty passphrase should return error")
		}
	})
}
