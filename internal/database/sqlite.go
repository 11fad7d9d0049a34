package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"photodup/internal/database/migrations"
	"photodup/internal/dedup"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements dedup.Store and dedup.ThumbnailIndex using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and migrates it to the latest
// schema version. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.Apply(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Session operations

func (s *SQLiteDatabase) CreateSession(session *dedup.ScanSession, pairs []dedup.CandidatePair) (*dedup.ScanSession, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := session.CreatedAt.UTC()

	// Replaying a session ID replaces its previous contents, unless a file
	// of that session is still in a recycle area.
	var recycled int
	err = tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM undo_records WHERE session_id = ?)
			+ (SELECT COUNT(*) FROM review_entries WHERE session_id = ? AND disposition = ?)`,
		session.ID, session.ID, string(dedup.DispositionDeleted)).Scan(&recycled)
	if err != nil {
		return nil, fmt.Errorf("checking deleted entries: %w", err)
	}
	if recycled > 0 {
		return nil, fmt.Errorf("session %s has deleted entries; undo them before replaying: %w",
			session.ID, dedup.ErrInvalidRequest)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_entries WHERE session_id = ?`, session.ID); err != nil {
		return nil, fmt.Errorf("clearing review entries: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_sessions (id, backup_root, sorted_root, created_at, pair_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (id) DO UPDATE SET
			backup_root = excluded.backup_root,
			sorted_root = excluded.sorted_root,
			created_at = excluded.created_at,
			pair_count = 0`,
		session.ID, session.BackupRoot, session.SortedRoot, createdAt)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	ignoredStmt, err := tx.PrepareContext(ctx,
		`SELECT COUNT(*) FROM ignored_pairs WHERE backup_path = ? AND sorted_path = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing ignore lookup: %w", err)
	}
	defer ignoredStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review_entries (session_id, group_id, backup_path, sorted_path, disposition, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing entry insert: %w", err)
	}
	defer insertStmt.Close()

	var pending int64
	for _, p := range pairs {
		var n int
		if err := ignoredStmt.QueryRowContext(ctx, p.BackupPath, p.SortedPath).Scan(&n); err != nil {
			return nil, fmt.Errorf("checking ignore ledger: %w", err)
		}

		disposition, action := dedup.DispositionPending, ""
		if n > 0 {
			disposition, action = dedup.DispositionIgnored, dedup.ActionAutoIgnored
		} else {
			pending++
		}

		_, err := insertStmt.ExecContext(ctx,
			session.ID, p.GroupID, p.BackupPath, p.SortedPath, string(disposition), nullString(action), createdAt)
		if err != nil {
			return nil, fmt.Errorf("inserting entry for %s: %w", p.BackupPath, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE scan_sessions SET pair_count = ? WHERE id = ?`, pending, session.ID); err != nil {
		return nil, fmt.Errorf("updating pair count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &dedup.ScanSession{
		ID:         session.ID,
		BackupRoot: session.BackupRoot,
		SortedRoot: session.SortedRoot,
		CreatedAt:  createdAt,
		PairCount:  pending,
	}, nil
}

const sessionColumns = `id, backup_root, sorted_root, created_at, pair_count`

func (s *SQLiteDatabase) FindSession(id string) (*dedup.ScanSession, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+sessionColumns+` FROM scan_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, dedup.ErrNotFound)
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return session, nil
}

func (s *SQLiteDatabase) LatestSession() (*dedup.ScanSession, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+sessionColumns+` FROM scan_sessions ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No sessions yet
		}
		return nil, fmt.Errorf("finding latest session: %w", err)
	}
	return session, nil
}

func (s *SQLiteDatabase) ListSessions() ([]*dedup.ScanSession, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+sessionColumns+` FROM scan_sessions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*dedup.ScanSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("reading session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Review entry operations

const entryColumns = `id, session_id, group_id, backup_path, sorted_path, disposition, action, created_at`

func (s *SQLiteDatabase) FindEntry(id int64) (*dedup.ReviewEntry, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+entryColumns+` FROM review_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review entry %d: %w", id, dedup.ErrNotFound)
		}
		return nil, fmt.Errorf("finding entry: %w", err)
	}
	return entry, nil
}

func (s *SQLiteDatabase) ListEntries(sessionID string, limit, offset int, includeReviewed bool) ([]*dedup.ReviewEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + entryColumns + ` FROM review_entries WHERE session_id = ?`
	if !includeReviewed {
		query += ` AND disposition = 'pending'`
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(context.Background(), query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	entries := []*dedup.ReviewEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("reading entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDatabase) MarkIgnored(entryID int64, backupPath, sortedPath string, ignoredAt time.Time) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setDisposition(ctx, tx, entryID, dedup.DispositionIgnored, dedup.ActionIgnored); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ignored_pairs (backup_path, sorted_path, ignored_at)
		VALUES (?, ?, ?)
		ON CONFLICT (backup_path, sorted_path) DO NOTHING`,
		backupPath, sortedPath, ignoredAt.UTC())
	if err != nil {
		return fmt.Errorf("recording ignored pair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) MarkDeleted(entryID int64, undo *dedup.UndoRecord) (*dedup.UndoRecord, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setDisposition(ctx, tx, entryID, dedup.DispositionDeleted, dedup.ActionDeleted); err != nil {
		return nil, err
	}

	var record *dedup.UndoRecord
	if undo != nil {
		r := *undo
		r.CreatedAt = r.CreatedAt.UTC()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO undo_records (session_id, review_entry_id, previous_disposition, previous_action,
				original_location, recycle_location, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.SessionID, r.ReviewEntryID, string(r.PreviousDisposition), nullString(r.PreviousAction),
			r.OriginalLocation, nullString(r.RecycleLocation), r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting undo record: %w", err)
		}
		r.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading undo record id: %w", err)
		}
		record = &r
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return record, nil
}

func (s *SQLiteDatabase) Stats(sessionID string) (*dedup.ReviewStats, error) {
	var st dedup.ReviewStats
	err := s.db.QueryRowContext(context.Background(), `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN disposition != 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN disposition = 'deleted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN disposition = 'ignored' THEN 1 ELSE 0 END), 0)
		FROM review_entries WHERE session_id = ?`, sessionID).
		Scan(&st.Total, &st.Reviewed, &st.Deleted, &st.Ignored)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	st.Remaining = st.Total - st.Reviewed
	st.Completed = st.Reviewed == st.Total
	return &st, nil
}

// Ignore ledger

func (s *SQLiteDatabase) FindIgnoredPair(backupPath, sortedPath string) (*dedup.IgnoredPair, error) {
	var p dedup.IgnoredPair
	err := s.db.QueryRowContext(context.Background(),
		`SELECT backup_path, sorted_path, ignored_at FROM ignored_pairs WHERE backup_path = ? AND sorted_path = ?`,
		backupPath, sortedPath).Scan(&p.BackupPath, &p.SortedPath, &p.IgnoredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not ignored
		}
		return nil, fmt.Errorf("finding ignored pair: %w", err)
	}
	return &p, nil
}

// Undo ledger

func (s *SQLiteDatabase) LatestUndo(sessionID string) (*dedup.UndoRecord, error) {
	var (
		r              dedup.UndoRecord
		prevDisp       string
		prevAction     sql.NullString
		recycleLocation sql.NullString
	)
	err := s.db.QueryRowContext(context.Background(), `
		SELECT id, session_id, review_entry_id, previous_disposition, previous_action,
			original_location, recycle_location, created_at
		FROM undo_records
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, sessionID).Scan(
		&r.ID, &r.SessionID, &r.ReviewEntryID, &prevDisp, &prevAction,
		&r.OriginalLocation, &recycleLocation, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Nothing to undo
		}
		return nil, fmt.Errorf("finding undo record: %w", err)
	}
	r.PreviousDisposition = dedup.Disposition(prevDisp)
	r.PreviousAction = prevAction.String
	r.RecycleLocation = recycleLocation.String
	return &r, nil
}

func (s *SQLiteDatabase) ApplyUndo(record *dedup.UndoRecord) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setDisposition(ctx, tx, record.ReviewEntryID, record.PreviousDisposition, record.PreviousAction); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM undo_records WHERE id = ?`, record.ID)
	if err != nil {
		return fmt.Errorf("deleting undo record: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting undo record: %w", err)
	} else if n == 0 {
		return fmt.Errorf("undo record %d: %w", record.ID, dedup.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Thumbnail index

func (s *SQLiteDatabase) RecordThumbnail(entry *dedup.ThumbnailEntry) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO thumbnail_cache (cache_key, remote_path, mtime, size, blob_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO NOTHING`,
		entry.CacheKey, entry.RemotePath, entry.ModTime, entry.Size, entry.BlobSize, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording thumbnail: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ThumbnailStats() (int64, int64, error) {
	var count, total int64
	err := s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*), COALESCE(SUM(blob_size), 0) FROM thumbnail_cache`).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("counting thumbnails: %w", err)
	}
	return count, total, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*dedup.ScanSession, error) {
	var session dedup.ScanSession
	if err := row.Scan(&session.ID, &session.BackupRoot, &session.SortedRoot, &session.CreatedAt, &session.PairCount); err != nil {
		return nil, err
	}
	return &session, nil
}

func scanEntry(row rowScanner) (*dedup.ReviewEntry, error) {
	var (
		e           dedup.ReviewEntry
		disposition string
		action      sql.NullString
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.GroupID, &e.BackupPath, &e.SortedPath, &disposition, &action, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Disposition = dedup.Disposition(disposition)
	e.Action = action.String
	return &e, nil
}

// setDisposition updates one entry inside tx, returning ErrNotFound if it does not exist.
func setDisposition(ctx context.Context, tx *sql.Tx, entryID int64, d dedup.Disposition, action string) error {
	if !d.Valid() {
		return fmt.Errorf("entry %d: unknown disposition %q: %w", entryID, d, dedup.ErrInvalidRequest)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE review_entries SET disposition = ?, action = ? WHERE id = ?`,
		string(d), nullString(action), entryID)
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", entryID, err)
	}
	if n == 0 {
		return fmt.Errorf("review entry %d: %w", entryID, dedup.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time checks
var (
	_ dedup.Store          = (*SQLiteDatabase)(nil)
	_ dedup.ThumbnailIndex = (*SQLiteDatabase)(nil)
)
