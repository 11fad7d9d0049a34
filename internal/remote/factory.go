// Package remote provides the transports photodup uses to run commands on
// the NAS: a persistent SSH session, or a local shell when running on the
// NAS itself.
package remote

import (
	"fmt"
	"io"

	"photodup/internal/config"
	"photodup/internal/dedup"
)

// Shell is a transport that can both run commands and fetch files.
type Shell interface {
	dedup.RemoteShell
	dedup.RemoteTransfer
	io.Closer
}

// NewShellFromConfig creates a Shell based on the configuration type.
// password is consulted only for ssh with password authentication.
func NewShellFromConfig(cfg config.RemoteConfig, password PasswordFunc, logger dedup.Logger) (Shell, error) {
	switch cfg.Type {
	case "ssh", "":
		clientConfig, err := ClientConfig(cfg, password)
		if err != nil {
			return nil, fmt.Errorf("configuring ssh: %w", err)
		}
		return NewSSHSession(cfg.Address(), clientConfig, cfg.CommandTimeout(), logger), nil
	case "local":
		return NewLocalShell(cfg.CommandTimeout(), logger), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %q", cfg.Type)
	}
}
