package dedup

import "time"

// Store persists scan sessions, review entries, the ignore ledger and the
// undo ledger. Every mutating method runs in its own transaction and rolls
// back on failure. Lookups of a single missing row return an error wrapping
// ErrNotFound.
type Store interface {
	// Session operations

	// CreateSession inserts the session and one review entry per pair.
	// Pairs already in the ignore ledger are inserted as ignored; the stored
	// pair count excludes them. If a session with the same ID exists, its
	// entries are replaced; a session with deleted entries or undo records
	// is rejected with ErrInvalidRequest.
	CreateSession(session *ScanSession, pairs []CandidatePair) (*ScanSession, error)

	// FindSession returns the session with the given ID.
	FindSession(id string) (*ScanSession, error)

	// LatestSession returns the most recently created session, or nil if none exist.
	LatestSession() (*ScanSession, error)

	// ListSessions returns all sessions, newest first.
	ListSessions() ([]*ScanSession, error)

	// Review entry operations

	// FindEntry returns the review entry with the given ID.
	FindEntry(id int64) (*ReviewEntry, error)

	// ListEntries returns the session's entries ordered by ID.
	// Only pending entries are returned unless includeReviewed is set.
	ListEntries(sessionID string, limit, offset int, includeReviewed bool) ([]*ReviewEntry, error)

	// MarkIgnored sets the entry to ignored and adds the pair to the ignore
	// ledger, stamped with ignoredAt, if it is not already there.
	MarkIgnored(entryID int64, backupPath, sortedPath string, ignoredAt time.Time) error

	// MarkDeleted sets the entry to deleted. When undo is non-nil it is
	// appended to the undo ledger in the same transaction and returned with
	// its assigned ID.
	MarkDeleted(entryID int64, undo *UndoRecord) (*UndoRecord, error)

	// Stats counts the session's entries by disposition.
	Stats(sessionID string) (*ReviewStats, error)

	// Ignore ledger

	// FindIgnoredPair returns the ledger row for the pair, or nil if absent.
	FindIgnoredPair(backupPath, sortedPath string) (*IgnoredPair, error)

	// Undo ledger

	// LatestUndo returns the newest undo record for the session, or nil if none.
	LatestUndo(sessionID string) (*UndoRecord, error)

	// ApplyUndo restores the entry's previous disposition and removes the record.
	ApplyUndo(record *UndoRecord) error

	// Close closes the underlying connection.
	Close() error
}

// ThumbnailIndex records which preview blobs have been generated.
type ThumbnailIndex interface {
	// RecordThumbnail stores the entry; an existing key is left untouched.
	RecordThumbnail(entry *ThumbnailEntry) error

	// ThumbnailStats returns the number of indexed blobs and their total size.
	ThumbnailStats() (count int64, totalBytes int64, err error)
}
