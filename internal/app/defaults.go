package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by photodup.
const (
	ConfigPathEnv = "PHOTODUP_CONFIG_PATH"
	HomeEnv       = "PHOTODUP_HOME"
	PassphraseEnv = "PHOTODUP_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PHOTODUP_CONFIG_PATH: config file location (default: ~/.config/photodup.toml)
//   - PHOTODUP_HOME: base directory for photodup data (default: ~/.local/share/photodup)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "photodup.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv(HomeEnv); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "photodup"), nil
}

// GetPassphrase returns PHOTODUP_PASSPHRASE if set, otherwise asks prompt.
func GetPassphrase(prompt func() (string, error)) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}
	if prompt == nil {
		return "", fmt.Errorf("%s is not set and no terminal is available", PassphraseEnv)
	}
	p, err := prompt()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return p, nil
}
