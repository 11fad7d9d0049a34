// Package migrations embeds the review database schema and moves a database
// to the schema version this binary was built with.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"photodup/internal/dedup"
)

const schemaDir = "files"

//go:embed files/*.sql
var schemaFiles embed.FS

// ErrSchemaMismatch means the review database is not at the embedded schema
// version. It is a persistence failure.
var ErrSchemaMismatch = fmt.Errorf("review database schema mismatch: %w", dedup.ErrPersistence)

// Status is a database's schema version next to the embedded one.
// Version is 0 for a database that was never migrated.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Err describes why s is not current, or returns nil.
func (s Status) Err() error {
	switch {
	case s.Dirty:
		return fmt.Errorf("schema v%d was left half-applied; restore a state backup: %w", s.Version, ErrSchemaMismatch)
	case s.Version == 0:
		return fmt.Errorf("database has no review schema yet: %w", ErrSchemaMismatch)
	case s.Version < s.Latest:
		return fmt.Errorf("schema v%d is %d behind v%d: %w", s.Version, s.Latest-s.Version, s.Latest, ErrSchemaMismatch)
	case s.Version > s.Latest:
		return fmt.Errorf("schema v%d is newer than this photodup (v%d); upgrade photodup: %w", s.Version, s.Latest, ErrSchemaMismatch)
	}
	return nil
}

// Latest returns the highest schema version embedded in the binary.
func Latest() (uint, error) {
	entries, err := fs.ReadDir(schemaFiles, schemaDir)
	if err != nil {
		return 0, fmt.Errorf("reading embedded schema: %w", err)
	}
	var latest uint
	for _, e := range entries {
		m, err := source.Parse(e.Name())
		if err != nil {
			return 0, fmt.Errorf("parsing schema file %s: %w", e.Name(), err)
		}
		latest = max(latest, m.Version)
	}
	if latest == 0 {
		return 0, errors.New("no schema files embedded")
	}
	return latest, nil
}

// Inspect reads db's schema version.
func Inspect(db *sql.DB) (Status, error) {
	latest, err := Latest()
	if err != nil {
		return Status{}, err
	}
	m, err := newMigrator(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: closing it closes db, which the caller owns.

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{Latest: latest}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}
	return Status{Version: version, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil if db is at the embedded schema version and an error
// wrapping ErrSchemaMismatch otherwise.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// Apply migrates db up to the embedded schema and returns the version it
// started from.
func Apply(db *sql.DB) (uint, error) {
	before, err := Inspect(db)
	if err != nil {
		return 0, err
	}
	if before.Dirty {
		return before.Version, before.Err()
	}

	m, err := newMigrator(db)
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before.Version, fmt.Errorf("applying review schema: %w: %w", dedup.ErrPersistence, err)
	}
	return before.Version, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing sqlite for migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}
