package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"photodup/internal/config"
	"photodup/internal/database"
	"photodup/internal/dedup"
	"photodup/internal/remote"
	"photodup/internal/secrets"
	"photodup/internal/thumbnail"
	"photodup/internal/thumbstore"
)

// Options adjust how an App is built.
type Options struct {
	// Passphrase prompts for the credential passphrase when
	// PHOTODUP_PASSPHRASE is not set. nil disables prompting.
	Passphrase func() (string, error)
	// Console receives log lines besides the log file. Defaults to os.Stderr.
	Console io.Writer
	// Debug enables debug-level logging.
	Debug bool
	// Shell replaces the configured transport.
	Shell remote.Shell
}

// App is the application layer between the CLI/HTTP surfaces and the dedup
// service. It constructs all dependencies from config and releases them on
// Close.
type App struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	shell     remote.Shell
	blobs     dedup.BlobStore
	service   *dedup.Service
	thumbs    *dedup.ThumbnailCache
	browser   *dedup.PathBrowser
	op        *Operation
	logger    *slogAdapter
	logCloser io.Closer
}

// New creates a fully wired App from the given config.
// operation names the command being run (e.g. "scan", "serve").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	op := NewOperation(operation, time.Now())

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	logger, logCloser, err := newLogger(cfg.LogDir, op.ID, console, opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logCloser.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	shell := opts.Shell
	if shell == nil {
		shell, err = remote.NewShellFromConfig(cfg.Remote, passwordSource(cfg.Remote, opts.Passphrase), log)
		if err != nil {
			db.Close()
			logCloser.Close()
			return nil, fmt.Errorf("creating remote shell: %w", err)
		}
	}

	blobs, err := thumbstore.NewStoreFromConfig(ctx, cfg.Thumbnails.Store)
	if err != nil {
		shell.Close()
		db.Close()
		logCloser.Close()
		return nil, fmt.Errorf("creating thumbnail store: %w", err)
	}

	generator, err := thumbnail.NewGeneratorFromConfig(cfg.Thumbnails, shell, shell)
	if err != nil {
		shell.Close()
		db.Close()
		logCloser.Close()
		return nil, fmt.Errorf("creating thumbnail generator: %w", err)
	}

	clock := dedup.RealClock{}
	svc := dedup.NewService(db, shell, log, clock, dedup.UUIDGenerator{}, dedup.ServiceOptions{
		Extensions:     cfg.Review.Extensions,
		RecycleDirName: cfg.Review.RecycleDirName,
		ShareDepth:     cfg.Review.ShareDepth,
	})

	log.Debug("operation started", "operation", op.Name)

	return &App{
		cfg:       cfg,
		db:        db,
		shell:     shell,
		blobs:     blobs,
		service:   svc,
		thumbs:    dedup.NewThumbnailCache(shell, blobs, db, generator, log, clock, cfg.Thumbnails.MaxSize),
		browser:   dedup.NewPathBrowser(shell, log),
		op:        op,
		logger:    log,
		logCloser: logCloser,
	}, nil
}

// passwordSource returns the SSH password callback for a sealed password
// file, or nil when none is configured. The password is decrypted at most
// once per process.
func passwordSource(cfg config.RemoteConfig, prompt func() (string, error)) remote.PasswordFunc {
	if cfg.PasswordFile == "" {
		return nil
	}
	cred := secrets.NewAgeCredentialFile(cfg.PasswordFile)

	var (
		mu       sync.Mutex
		password string
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if password != "" {
			return password, nil
		}

		passphrase, err := GetPassphrase(prompt)
		if err != nil {
			return "", err
		}
		p, err := cred.Open(passphrase)
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", cfg.PasswordFile, err)
		}
		password = p
		return password, nil
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Service returns the review service.
func (a *App) Service() *dedup.Service { return a.service }

// Thumbnails returns the thumbnail cache.
func (a *App) Thumbnails() *dedup.ThumbnailCache { return a.thumbs }

// Browser returns the remote path browser.
func (a *App) Browser() *dedup.PathBrowser { return a.browser }

// Logger returns the operation's logger.
func (a *App) Logger() dedup.Logger { return a.logger }

// Operation returns the operation this App was created for.
func (a *App) Operation() *Operation { return a.op }

// ResolveRoots fills empty backup/sorted roots from the review config.
func (a *App) ResolveRoots(backupRoot, sortedRoot string) (string, string, error) {
	if backupRoot == "" {
		backupRoot = a.cfg.Review.BackupRoot
	}
	if sortedRoot == "" {
		sortedRoot = a.cfg.Review.SortedRoot
	}
	if backupRoot == "" || sortedRoot == "" {
		return "", "", fmt.Errorf("backup and sorted roots must be given or set in [review]: %w", dedup.ErrInvalidRequest)
	}
	return backupRoot, sortedRoot, nil
}

// ThumbnailStats reports how many thumbnails have been rendered and their
// total size.
func (a *App) ThumbnailStats() (int64, int64, error) {
	return a.db.ThumbnailStats()
}

// ValidateThumbnailStore checks that the blob store is usable.
func (a *App) ValidateThumbnailStore(ctx context.Context) error {
	if err := a.blobs.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("thumbnail store: %w", err)
	}
	return nil
}

// BackupState writes a consistent copy of the review database to destPath.
func (a *App) BackupState(destPath string) error {
	if err := a.db.BackupTo(destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	a.logger.Info("database backed up", "dest", destPath)
	return nil
}

// Finish records the outcome of the operation for the closing log line.
func (a *App) Finish(err error) {
	if err != nil {
		a.op.Fail()
	}
}

// Close closes the transport, the database and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.shell.Close(); err != nil {
		firstErr = fmt.Errorf("closing remote shell: %w", err)
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Debug("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"elapsed", a.op.Elapsed(time.Now()).Round(time.Millisecond),
	)
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return firstErr
}
