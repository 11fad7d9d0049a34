package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "/custom/config.toml")
		t.Setenv(HomeEnv, "/custom/photodup")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/photodup" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/photodup")
		}
		if defaults["log_dir"] != "/custom/photodup/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/photodup/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "")
		t.Setenv(HomeEnv, "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "photodup.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "photodup")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})
}

func TestGetPassphrase(t *testing.T) {
	t.Run("env wins over prompt", func(t *testing.T) {
		t.Setenv(PassphraseEnv, "from-env")
		got, err := GetPassphrase(func() (string, error) { return "from-prompt", nil })
		if err != nil {
			t.Fatalf("GetPassphrase() error = %v", err)
		}
		if got != "from-env" {
			t.Errorf("GetPassphrase() = %q, want from-env", got)
		}
	})

	t.Run("prompts when env empty", func(t *testing.T) {
		t.Setenv(PassphraseEnv, "")
		got, err := GetPassphrase(func() (string, error) { return "from-prompt", nil })
		if err != nil {
			t.Fatalf("GetPassphrase() error = %v", err)
		}
		if got != "from-prompt" {
			t.Errorf("GetPassphrase() = %q, want from-prompt", got)
		}
	})

	t.Run("fails without env or prompt", func(t *testing.T) {
		t.Setenv(PassphraseEnv, "")
		if _, err := GetPassphrase(nil); err == nil {
			t.Error("GetPassphrase(nil) expected error")
		}
	})
}
