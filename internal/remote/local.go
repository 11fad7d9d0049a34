package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"photodup/internal/dedup"
)

// LocalShell runs commands with sh -c on this machine. It is used when
// photodup runs on the NAS itself.
type LocalShell struct {
	timeout time.Duration
	logger  dedup.Logger
}

func NewLocalShell(timeout time.Duration, logger dedup.Logger) *LocalShell {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &LocalShell{timeout: timeout, logger: logger}
}

// Run implements dedup.RemoteShell.
func (l *LocalShell) Run(ctx context.Context, command string) (*dedup.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &dedup.RemoteCommandError{
			Command:  command,
			ExitCode: -1,
			Stderr:   fmt.Sprintf("timed out after %s", l.timeout),
		}
	}

	result := &dedup.CommandResult{Stdout: stdout.Bytes(), Stderr: strings.TrimSpace(stderr.String())}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running sh: %w: %w", dedup.ErrTransportUnavailable, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	l.logger.Debug("local command", "command", command, "exit", result.ExitCode)
	return result, nil
}

// Fetch implements dedup.RemoteTransfer with a local copy.
func (l *LocalShell) Fetch(ctx context.Context, remotePath, localPath string) error {
	src, err := os.Open(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("fetching %s: %w", remotePath, dedup.ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", remotePath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".fetch-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("copying %s: %w", remotePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		return fmt.Errorf("renaming fetched file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (l *LocalShell) Close() error {
	return nil
}

var (
	_ dedup.RemoteShell    = (*LocalShell)(nil)
	_ dedup.RemoteTransfer = (*LocalShell)(nil)
)
