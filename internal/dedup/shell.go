package dedup

import (
	"context"
	"fmt"
	"strings"

	"photodup/internal/shellcmd"
)

// CommandResult is the outcome of a remote command that was dispatched.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   string
}

// Success reports whether the command exited zero.
func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

// RemoteShell runs a command line on the NAS.
// The error return is reserved for transport failures (wrapping
// ErrTransportUnavailable) and timeouts (*RemoteCommandError); a command that
// ran and exited non-zero is reported through CommandResult.ExitCode.
type RemoteShell interface {
	Run(ctx context.Context, command string) (*CommandResult, error)
}

// RemoteTransfer copies a remote file to a local path.
type RemoteTransfer interface {
	Fetch(ctx context.Context, remotePath, localPath string) error
}

// run dispatches cmd and converts a non-zero exit into *RemoteCommandError.
func run(ctx context.Context, shell RemoteShell, cmd shellcmd.Command) (*CommandResult, error) {
	line := cmd.String()
	res, err := shell.Run(ctx, line)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return res, &RemoteCommandError{Command: line, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

// probe dispatches a test-style command and reports whether it exited zero.
func probe(ctx context.Context, shell RemoteShell, cmd shellcmd.Command) (bool, error) {
	res, err := shell.Run(ctx, cmd.String())
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// lines splits command output into trimmed, non-empty lines.
func lines(out []byte) []string {
	var result []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		result = append(result, line)
	}
	return result
}

// RunChecked is run for callers outside the package.
func RunChecked(ctx context.Context, shell RemoteShell, cmd shellcmd.Command) (*CommandResult, error) {
	res, err := run(ctx, shell, cmd)
	if err != nil {
		return res, fmt.Errorf("running %s: %w", cmd.Name(), err)
	}
	return res, nil
}
