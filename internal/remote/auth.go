package remote

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"photodup/internal/config"
)

// PasswordFunc supplies the SSH password on demand. It is only called when
// the server asks for password authentication.
type PasswordFunc func() (string, error)

// ClientConfig builds the SSH client configuration for cfg. Public key
// authentication is offered first when key_path is set, then the password
// from password when it is non-nil.
func ClientConfig(cfg config.RemoteConfig, password PasswordFunc) (*ssh.ClientConfig, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("remote host is not configured")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("remote user is not configured")
	}

	var methods []ssh.AuthMethod
	if cfg.KeyPath != "" {
		signer, err := loadSigner(cfg.KeyPath, cfg.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if password != nil {
		methods = append(methods, ssh.PasswordCallback(password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh authentication configured: set key_path or password_file")
	}

	hostKeys, err := hostKeyCallback(cfg.KnownHostsPath)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         connectTimeout,
	}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key: %w", err)
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key %s: %w", path, err)
	}
	return signer, nil
}

// hostKeyCallback verifies the NAS against a known_hosts file, defaulting to
// ~/.ssh/known_hosts. Unknown hosts are rejected.
func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts from %s: %w", path, err)
	}
	return cb, nil
}
