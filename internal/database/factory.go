package database

import (
	"fmt"
	"path/filepath"

	"photodup/internal/config"
)

// DatabaseFileName is the SQLite file created inside the configured data_dir.
const DatabaseFileName = "photodup.db"

// NewDatabaseFromConfig opens the review store described by the database config.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFileName))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
