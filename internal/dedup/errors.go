package dedup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransportUnavailable means the remote shell or transfer channel could
	// not be reached or authenticated. It is never retried silently.
	ErrTransportUnavailable = errors.New("remote transport unavailable")

	// ErrNotFound covers a missing recycle area, scan session, or review entry.
	ErrNotFound = errors.New("not found")

	// ErrRemoteCommandFailed matches any *RemoteCommandError.
	ErrRemoteCommandFailed = errors.New("remote command failed")

	// ErrPersistence means a local store write failed and was rolled back.
	ErrPersistence = errors.New("persistence failure")

	// ErrNothingToUndo is the expected outcome of Undo on an empty ledger.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrInvalidRequest rejects actions that do not apply to the entry's
	// current state or arguments that contradict the stored entry.
	ErrInvalidRequest = errors.New("invalid request")
)

// RemoteCommandError reports a remote command that ran but exited non-zero,
// or that hit the command timeout (ExitCode -1).
type RemoteCommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *RemoteCommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("remote command exited with status %d: %s", e.ExitCode, msg)
}

// Is makes errors.Is(err, ErrRemoteCommandFailed) true for every RemoteCommandError.
func (e *RemoteCommandError) Is(target error) bool {
	return target == ErrRemoteCommandFailed
}

// persistenceError tags a store failure with ErrPersistence while keeping the
// cause inspectable. Not-found errors pass through unchanged.
func persistenceError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRequest) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Kind returns a short machine-readable name for err's class.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNothingToUndo):
		return "nothing_to_undo"
	case errors.Is(err, ErrTransportUnavailable):
		return "transport_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRemoteCommandFailed):
		return "remote_command_failed"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
