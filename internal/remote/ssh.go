package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/crypto/ssh"

	"photodup/internal/dedup"
	"photodup/internal/shellcmd"
)

const (
	// DefaultCommandTimeout bounds every remote command and transfer.
	DefaultCommandTimeout = 30 * time.Second

	connectTimeout   = 10 * time.Second
	keepaliveTimeout = 5 * time.Second
	reconnectDelay   = 200 * time.Millisecond
)

// conn is one established connection to the NAS.
type conn interface {
	exec(ctx context.Context, command string, stdout, stderr io.Writer) (int, error)
	keepalive() error
	Close() error
}

type dialFunc func(ctx context.Context) (conn, error)

// transportError marks a failure of the connection itself. started records
// whether the command may already have run on the NAS.
type transportError struct {
	err     error
	started bool
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() []error {
	return []error{dedup.ErrTransportUnavailable, e.err}
}

// SSHSession is a single long-lived SSH connection to the NAS. It connects
// lazily on first use, checks the connection with a keepalive before reuse
// and reconnects once when the connection turns out to be dead.
// Commands are serialised: a session runs one command at a time.
type SSHSession struct {
	mu      sync.Mutex
	conn    conn
	dial    dialFunc
	addr    string
	timeout time.Duration
	logger  dedup.Logger
}

// NewSSHSession creates a session for addr. No connection is made until the
// first command.
func NewSSHSession(addr string, clientConfig *ssh.ClientConfig, timeout time.Duration, logger dedup.Logger) *SSHSession {
	return newSSHSession(addr, dialSSH(addr, clientConfig), timeout, logger)
}

func newSSHSession(addr string, dial dialFunc, timeout time.Duration, logger dedup.Logger) *SSHSession {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &SSHSession{dial: dial, addr: addr, timeout: timeout, logger: logger}
}

// acquire locks the session and returns a healthy connection. Callers must
// call release when done; on error the session is already unlocked.
func (s *SSHSession) acquire(ctx context.Context) (conn, error) {
	s.mu.Lock()

	if s.conn != nil {
		err := s.conn.keepalive()
		if err == nil {
			return s.conn, nil
		}
		s.logger.Warn("ssh connection unhealthy", "addr", s.addr, "error", err)
		s.dropLocked()
	}

	c, err := s.dial(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.conn = c
	s.logger.Info("ssh connected", "addr", s.addr)
	return c, nil
}

func (s *SSHSession) release() {
	s.mu.Unlock()
}

func (s *SSHSession) dropLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Reconnect discards the current connection and dials a new one.
func (s *SSHSession) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.dropLocked()
	s.mu.Unlock()

	if _, err := s.acquire(ctx); err != nil {
		return fmt.Errorf("reconnecting to %s: %w", s.addr, err)
	}
	s.release()
	return nil
}

// Close closes the connection, if any. The session may be used again
// afterwards; it will reconnect.
func (s *SSHSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
	return nil
}

// exec runs one command on a healthy connection. Any failure drops the
// connection so the next attempt starts fresh.
func (s *SSHSession) exec(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	c, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer s.release()

	code, err := c.exec(ctx, command, stdout, stderr)
	if err != nil {
		s.dropLocked()
	}
	return code, err
}

func (s *SSHSession) retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(reconnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var te *transportError
			return errors.As(err, &te) && !te.started
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("ssh command failed, reconnecting", "addr", s.addr, "attempt", n+1, "error", err)
		}),
	}
}

// Run implements dedup.RemoteShell.
func (s *SSHSession) Run(ctx context.Context, command string) (*dedup.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *dedup.CommandResult
	err := retry.Do(func() error {
		var stdout, stderr bytes.Buffer
		code, err := s.exec(ctx, command, &stdout, &stderr)
		if err != nil {
			return err
		}
		result = &dedup.CommandResult{
			ExitCode: code,
			Stdout:   stdout.Bytes(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
		return nil
	}, s.retryOptions(ctx)...)
	if err != nil {
		return nil, s.classify(command, err)
	}

	s.logger.Debug("ssh command", "command", command, "exit", result.ExitCode)
	return result, nil
}

// Fetch implements dedup.RemoteTransfer by streaming the file over cat into
// a temp file beside localPath and renaming it into place.
func (s *SSHSession) Fetch(ctx context.Context, remotePath, localPath string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	command := shellcmd.Cat(remotePath).String()
	err := retry.Do(func() error {
		tmp, err := os.CreateTemp(filepath.Dir(localPath), ".fetch-*")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmp.Name()

		var stderr bytes.Buffer
		code, err := s.exec(ctx, command, tmp, &stderr)
		closeErr := tmp.Close()
		if err != nil {
			os.Remove(tmpPath)
			return err
		}
		if code != 0 {
			os.Remove(tmpPath)
			return &dedup.RemoteCommandError{Command: command, ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
		}
		if closeErr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("closing temp file: %w", closeErr)
		}
		if err := os.Rename(tmpPath, localPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("renaming fetched file: %w", err)
		}
		return nil
	}, s.retryOptions(ctx)...)
	if err != nil {
		return s.classify(command, err)
	}
	return nil
}

func (s *SSHSession) classify(command string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &dedup.RemoteCommandError{
			Command:  command,
			ExitCode: -1,
			Stderr:   fmt.Sprintf("timed out after %s", s.timeout),
		}
	}
	var rce *dedup.RemoteCommandError
	if errors.As(err, &rce) {
		return err
	}
	return fmt.Errorf("ssh %s: %w", s.addr, err)
}

// sshConn adapts *ssh.Client to conn.
type sshConn struct {
	client *ssh.Client
}

func dialSSH(addr string, cfg *ssh.ClientConfig) dialFunc {
	return func(ctx context.Context) (conn, error) {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = connectTimeout
		}
		d := net.Dialer{Timeout: timeout}
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, &transportError{err: fmt.Errorf("dialing %s: %w", addr, err)}
		}
		c, chans, reqs, err := ssh.NewClientConn(nc, addr, cfg)
		if err != nil {
			nc.Close()
			return nil, &transportError{err: fmt.Errorf("ssh handshake with %s: %w", addr, err)}
		}
		return &sshConn{client: ssh.NewClient(c, chans, reqs)}, nil
	}
}

func (c *sshConn) exec(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return 0, &transportError{err: fmt.Errorf("opening ssh session: %w", err)}
	}
	defer sess.Close()

	sess.Stdout = stdout
	sess.Stderr = stderr
	if err := sess.Start(command); err != nil {
		return 0, &transportError{err: fmt.Errorf("starting command: %w", err)}
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		sess.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return 0, &transportError{err: fmt.Errorf("waiting for command: %w", err), started: true}
	}
}

func (c *sshConn) keepalive() error {
	done := make(chan error, 1)
	go func() {
		_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(keepaliveTimeout):
		return fmt.Errorf("keepalive timed out after %s", keepaliveTimeout)
	}
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

var (
	_ dedup.RemoteShell    = (*SSHSession)(nil)
	_ dedup.RemoteTransfer = (*SSHSession)(nil)
)
