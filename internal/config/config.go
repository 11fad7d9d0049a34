package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for photodup.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Remote     RemoteConfig     `toml:"remote"`
	Database   DatabaseConfig   `toml:"database"`
	Thumbnails ThumbnailsConfig `toml:"thumbnails"`
	Review     ReviewConfig     `toml:"review"`
	Server     ServerConfig     `toml:"server"`
}

// RemoteConfig describes how to reach the NAS.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "ssh" or "local"

	// SSH-specific fields (only used when Type == "ssh")
	Host           string `toml:"host,omitempty"`
	Port           int    `toml:"port,omitempty"`
	User           string `toml:"user,omitempty"`
	KeyPath        string `toml:"key_path,omitempty"`
	KeyPassphrase  string `toml:"key_passphrase,omitempty"`
	PasswordFile   string `toml:"password_file,omitempty"` // age-encrypted SSH password
	KnownHostsPath string `toml:"known_hosts_path,omitempty"`

	CommandTimeoutSeconds int `toml:"command_timeout_seconds"`
}

// CommandTimeout returns the per-command timeout, defaulting to 30s.
func (c RemoteConfig) CommandTimeout() time.Duration {
	if c.CommandTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// Address returns host:port for SSH, defaulting the port to 22.
func (c RemoteConfig) Address() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// DatabaseConfig represents configuration for the review database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ThumbnailsConfig controls preview rendering and where previews are cached.
type ThumbnailsConfig struct {
	MaxSize   int         `toml:"max_size"`
	Generator string      `toml:"generator"` // "remote" (ffmpeg on the NAS) or "local"
	Store     StoreConfig `toml:"store"`
}

// StoreConfig represents configuration for the thumbnail blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible services such as MinIO

	// Static credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// ReviewConfig holds defaults for scanning and deleting.
type ReviewConfig struct {
	BackupRoot     string   `toml:"backup_root,omitempty"`
	SortedRoot     string   `toml:"sorted_root,omitempty"`
	RecycleDirName string   `toml:"recycle_dir_name,omitempty"`
	ShareDepth     int      `toml:"share_depth"`
	Extensions     []string `toml:"extensions,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen         string   `toml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Type:                  "ssh",
			Port:                  22,
			CommandTimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Thumbnails: ThumbnailsConfig{
			MaxSize:   512,
			Generator: "remote",
			Store: StoreConfig{
				Type: "filesystem",
				Dir:  filepath.Join(baseDir, "thumbnails"),
			},
		},
		Review: ReviewConfig{
			ShareDepth: 2,
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8000",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// The file may hold an SSH key passphrase, so it is created 0600.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
