// Package secrets keeps credentials sealed at rest.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// ErrNotConfigured is returned by Open when no sealed credential exists.
var ErrNotConfigured = errors.New("credential file not configured")

// AgeCredentialFile stores a single secret (the NAS password) encrypted with
// age's scrypt-based passphrase encryption.
type AgeCredentialFile struct {
	path       string
	workFactor int
}

// NewAgeCredentialFile creates a credential file handle at path. Nothing is
// written until Seal is called.
func NewAgeCredentialFile(path string) *AgeCredentialFile {
	return &AgeCredentialFile{path: path}
}

// SetWorkFactor overrides the scrypt work factor (log2 N) used by Seal.
// Zero keeps age's default.
func (f *AgeCredentialFile) SetWorkFactor(logN int) {
	f.workFactor = logN
}

// Path returns the location of the sealed file.
func (f *AgeCredentialFile) Path() string {
	return f.path
}

// Seal encrypts secret with passphrase and replaces the file atomically.
func (f *AgeCredentialFile) Seal(passphrase, secret string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if f.workFactor > 0 {
		recipient.SetWorkFactor(f.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, secret); err != nil {
		return fmt.Errorf("writing encrypted secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credential file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting credential file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing credential file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}

// Open decrypts the sealed secret with passphrase.
func (f *AgeCredentialFile) Open(passphrase string) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", f.path, ErrNotConfigured)
		}
		return "", fmt.Errorf("reading credential file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting credential: %w", err)
	}
	secret, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted credential: %w", err)
	}
	return strings.TrimRight(string(secret), "\n"), nil
}

// IsConfigured returns true if the sealed file exists.
func (f *AgeCredentialFile) IsConfigured() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
