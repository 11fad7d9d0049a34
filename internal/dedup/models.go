package dedup

import "time"

// Disposition is the review state of a ReviewEntry.
type Disposition string

const (
	DispositionPending Disposition = "pending"
	DispositionIgnored Disposition = "ignored"
	DispositionDeleted Disposition = "deleted"
)

// Valid reports whether d is one of the known dispositions.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionPending, DispositionIgnored, DispositionDeleted:
		return true
	}
	return false
}

// Action tags recorded on review entries alongside their disposition.
const (
	ActionIgnored     = "ignored"
	ActionAutoIgnored = "auto-ignored"
	ActionDeleted     = "deleted"
)

// ScanSession is one scan of a backup tree against a sorted tree.
type ScanSession struct {
	ID         string    `json:"id"`
	BackupRoot string    `json:"backup_root"`
	SortedRoot string    `json:"sorted_root"`
	CreatedAt  time.Time `json:"created_at"`
	PairCount  int64     `json:"pair_count"`
}

// CandidatePair is a matcher result: a backup file and a sorted file that
// share a case-insensitive filename.
type CandidatePair struct {
	GroupID    string `json:"group_id"`
	Filename   string `json:"filename"`
	BackupPath string `json:"backup_path"`
	SortedPath string `json:"sorted_path"`
}

// ReviewEntry is a persisted candidate pair awaiting or holding a decision.
// Action is empty when no action tag has been recorded.
type ReviewEntry struct {
	ID          int64       `json:"id"`
	SessionID   string      `json:"session_id"`
	GroupID     string      `json:"group_id"`
	BackupPath  string      `json:"backup_path"`
	SortedPath  string      `json:"sorted_path"`
	Disposition Disposition `json:"disposition"`
	Action      string      `json:"action,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Reviewed reports whether the operator (or the ignore ledger) has decided on the entry.
func (e *ReviewEntry) Reviewed() bool {
	return e.Disposition != DispositionPending
}

// IgnoredPair is a permanently dismissed (backup, sorted) pair.
type IgnoredPair struct {
	BackupPath string    `json:"backup_path"`
	SortedPath string    `json:"sorted_path"`
	IgnoredAt  time.Time `json:"ignored_at"`
}

// UndoRecord captures what is needed to reverse one delete.
// RecycleLocation is empty when the action moved no file.
type UndoRecord struct {
	ID                  int64       `json:"id"`
	SessionID           string      `json:"session_id"`
	ReviewEntryID       int64       `json:"review_entry_id"`
	PreviousDisposition Disposition `json:"previous_disposition"`
	PreviousAction      string      `json:"previous_action,omitempty"`
	OriginalLocation    string      `json:"original_location"`
	RecycleLocation     string      `json:"recycle_location,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
}

// ReviewStats summarises the dispositions of one session.
type ReviewStats struct {
	Total     int64 `json:"total"`
	Reviewed  int64 `json:"reviewed"`
	Remaining int64 `json:"remaining"`
	Deleted   int64 `json:"deleted"`
	Ignored   int64 `json:"ignored"`
	Completed bool  `json:"completed"`
}

// ThumbnailEntry indexes one cached preview blob.
type ThumbnailEntry struct {
	CacheKey   string    `json:"cache_key"`
	RemotePath string    `json:"remote_path"`
	ModTime    int64     `json:"mtime"`
	Size       int64     `json:"size"`
	BlobSize   int64     `json:"blob_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListOptions selects review entries.
// An empty SessionID means the most recently created session.
// Limit <= 0 means no limit.
type ListOptions struct {
	SessionID       string
	Limit           int
	Offset          int
	IncludeReviewed bool
}
