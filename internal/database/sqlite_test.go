package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"photodup/internal/dedup"
)

// newTestDB creates a new in-memory database with migrations applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func testPairs() []dedup.CandidatePair {
	return []dedup.CandidatePair{
		{GroupID: dedup.GroupID("/volume1/backup/IMG_001.jpg"), Filename: "IMG_001.jpg", BackupPath: "/volume1/backup/IMG_001.jpg", SortedPath: "/volume1/photo/2020/IMG_001.jpg"},
		{GroupID: dedup.GroupID("/volume1/backup/IMG_002.jpg"), Filename: "IMG_002.jpg", BackupPath: "/volume1/backup/IMG_002.jpg", SortedPath: "/volume1/photo/2021/IMG_002.jpg"},
	}
}

func createTestSession(t *testing.T, db *SQLiteDatabase, id string, createdAt time.Time) *dedup.ScanSession {
	t.Helper()
	session, err := db.CreateSession(&dedup.ScanSession{
		ID:         id,
		BackupRoot: "/volume1/backup",
		SortedRoot: "/volume1/photo",
		CreatedAt:  createdAt,
	}, testPairs())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func TestSQLiteDatabase_CreateSession(t *testing.T) {
	t.Run("inserts pending entries", func(t *testing.T) {
		db := newTestDB(t)

		session := createTestSession(t, db, "s1", testTime)
		if session.PairCount != 2 {
			t.Errorf("PairCount = %d, want 2", session.PairCount)
		}

		entries, err := db.ListEntries("s1", 0, 0, true)
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}
		for _, e := range entries {
			if e.Disposition != dedup.DispositionPending {
				t.Errorf("Disposition = %v, want pending", e.Disposition)
			}
			if e.Action != "" {
				t.Errorf("Action = %q, want empty", e.Action)
			}
		}
		if entries[0].BackupPath != "/volume1/backup/IMG_001.jpg" {
			t.Errorf("first entry = %v, want IMG_001 first", entries[0].BackupPath)
		}
	})

	t.Run("seeds ignored pairs as ignored", func(t *testing.T) {
		db := newTestDB(t)

		first := createTestSession(t, db, "s1", testTime)
		entries, _ := db.ListEntries(first.ID, 0, 0, false)
		if err := db.MarkIgnored(entries[0].ID, entries[0].BackupPath, entries[0].SortedPath, testTime); err != nil {
			t.Fatalf("MarkIgnored() error = %v", err)
		}

		second := createTestSession(t, db, "s2", testTime.Add(time.Hour))
		if second.PairCount != 1 {
			t.Errorf("PairCount = %d, want 1", second.PairCount)
		}

		all, err := db.ListEntries("s2", 0, 0, true)
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if all[0].Disposition != dedup.DispositionIgnored {
			t.Errorf("Disposition = %v, want ignored", all[0].Disposition)
		}
		if all[0].Action != dedup.ActionAutoIgnored {
			t.Errorf("Action = %q, want %q", all[0].Action, dedup.ActionAutoIgnored)
		}

		pending, _ := db.ListEntries("s2", 0, 0, false)
		if len(pending) != 1 {
			t.Errorf("len(pending) = %d, want 1", len(pending))
		}
	})

	t.Run("replaying a session id replaces its entries", func(t *testing.T) {
		db := newTestDB(t)

		createTestSession(t, db, "s1", testTime)
		createTestSession(t, db, "s1", testTime)

		entries, _ := db.ListEntries("s1", 0, 0, true)
		if len(entries) != 2 {
			t.Errorf("len(entries) = %d, want 2", len(entries))
		}
		sessions, _ := db.ListSessions()
		if len(sessions) != 1 {
			t.Errorf("len(sessions) = %d, want 1", len(sessions))
		}
	})

	t.Run("replay keeps undo records of deleted entries", func(t *testing.T) {
		db := newTestDB(t)

		createTestSession(t, db, "s1", testTime)
		entries, _ := db.ListEntries("s1", 0, 0, true)
		if _, err := db.MarkDeleted(entries[0].ID, &dedup.UndoRecord{
			SessionID:           "s1",
			ReviewEntryID:       entries[0].ID,
			PreviousDisposition: dedup.DispositionPending,
			OriginalLocation:    entries[0].BackupPath,
			RecycleLocation:     "/volume1/backup/#recycle/backup/IMG_001.jpg",
			CreatedAt:           testTime,
		}); err != nil {
			t.Fatalf("MarkDeleted() error = %v", err)
		}

		_, err := db.CreateSession(&dedup.ScanSession{
			ID: "s1", BackupRoot: "/volume1/backup", SortedRoot: "/volume1/photo", CreatedAt: testTime,
		}, testPairs())
		if !errors.Is(err, dedup.ErrInvalidRequest) {
			t.Fatalf("replay CreateSession() error = %v, want ErrInvalidRequest", err)
		}

		undo, err := db.LatestUndo("s1")
		if err != nil {
			t.Fatalf("LatestUndo() error = %v", err)
		}
		if undo == nil || undo.ReviewEntryID != entries[0].ID {
			t.Errorf("LatestUndo() = %+v, want record for entry %d", undo, entries[0].ID)
		}
		all, _ := db.ListEntries("s1", 0, 0, true)
		if len(all) != 2 {
			t.Errorf("len(entries) = %d, want 2 (unchanged)", len(all))
		}
	})
}

func TestSQLiteDatabase_Sessions(t *testing.T) {
	t.Run("latest session is nil when empty", func(t *testing.T) {
		db := newTestDB(t)

		got, err := db.LatestSession()
		if err != nil {
			t.Fatalf("LatestSession() error = %v", err)
		}
		if got != nil {
			t.Errorf("LatestSession() = %v, want nil", got)
		}
	})

	t.Run("lists newest first", func(t *testing.T) {
		db := newTestDB(t)

		createTestSession(t, db, "old", testTime)
		createTestSession(t, db, "new", testTime.Add(time.Hour))

		sessions, err := db.ListSessions()
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		if len(sessions) != 2 || sessions[0].ID != "new" {
			t.Errorf("ListSessions() = %v, want new first", sessions)
		}

		latest, _ := db.LatestSession()
		if latest == nil || latest.ID != "new" {
			t.Errorf("LatestSession() = %v, want new", latest)
		}
		if !latest.CreatedAt.Equal(testTime.Add(time.Hour)) {
			t.Errorf("CreatedAt = %v, want %v", latest.CreatedAt, testTime.Add(time.Hour))
		}
	})

	t.Run("find unknown session", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.FindSession("missing")
		if !errors.Is(err, dedup.ErrNotFound) {
			t.Errorf("FindSession() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteDatabase_ListEntries(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "s1", testTime)

	t.Run("limit and offset", func(t *testing.T) {
		got, err := db.ListEntries("s1", 1, 1, true)
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if len(got) != 1 || got[0].BackupPath != "/volume1/backup/IMG_002.jpg" {
			t.Errorf("ListEntries(1, 1) = %v, want only IMG_002", got)
		}
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		got, err := db.ListEntries("nope", 0, 0, true)
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})
}

func TestSQLiteDatabase_MarkIgnored(t *testing.T) {
	t.Run("re-ignoring keeps the first timestamp", func(t *testing.T) {
		db := newTestDB(t)
		createTestSession(t, db, "s1", testTime)
		entries, _ := db.ListEntries("s1", 0, 0, false)
		e := entries[0]

		if err := db.MarkIgnored(e.ID, e.BackupPath, e.SortedPath, testTime); err != nil {
			t.Fatalf("MarkIgnored() error = %v", err)
		}
		first, err := db.FindIgnoredPair(e.BackupPath, e.SortedPath)
		if err != nil || first == nil {
			t.Fatalf("FindIgnoredPair() = %v, %v", first, err)
		}

		if err := db.MarkIgnored(e.ID, e.BackupPath, e.SortedPath, testTime); err != nil {
			t.Fatalf("second MarkIgnored() error = %v", err)
		}
		second, _ := db.FindIgnoredPair(e.BackupPath, e.SortedPath)
		if !second.IgnoredAt.Equal(first.IgnoredAt) {
			t.Errorf("IgnoredAt changed from %v to %v", first.IgnoredAt, second.IgnoredAt)
		}

		got, _ := db.FindEntry(e.ID)
		if got.Disposition != dedup.DispositionIgnored || got.Action != dedup.ActionIgnored {
			t.Errorf("entry = %v/%q, want ignored/ignored", got.Disposition, got.Action)
		}
	})

	t.Run("unknown entry", func(t *testing.T) {
		db := newTestDB(t)

		err := db.MarkIgnored(42, "/a", "/b", testTime)
		if !errors.Is(err, dedup.ErrNotFound) {
			t.Errorf("MarkIgnored() error = %v, want ErrNotFound", err)
		}
		pair, _ := db.FindIgnoredPair("/a", "/b")
		if pair != nil {
			t.Error("ignored pair recorded despite rollback")
		}
	})

	t.Run("absent pair is nil", func(t *testing.T) {
		db := newTestDB(t)

		pair, err := db.FindIgnoredPair("/x", "/y")
		if err != nil {
			t.Fatalf("FindIgnoredPair() error = %v", err)
		}
		if pair != nil {
			t.Errorf("FindIgnoredPair() = %v, want nil", pair)
		}
	})
}

func TestSQLiteDatabase_DeleteAndUndo(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "s1", testTime)
	entries, _ := db.ListEntries("s1", 0, 0, false)
	e := entries[0]

	record, err := db.MarkDeleted(e.ID, &dedup.UndoRecord{
		SessionID:           "s1",
		ReviewEntryID:       e.ID,
		PreviousDisposition: dedup.DispositionPending,
		OriginalLocation:    e.BackupPath,
		RecycleLocation:     "/volume1/backup/#recycle/backup/IMG_001.jpg",
		CreatedAt:           testTime,
	})
	if err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}
	if record.ID == 0 {
		t.Error("undo record ID not assigned")
	}

	stats, _ := db.Stats("s1")
	if stats.Deleted != 1 || stats.Remaining != 1 {
		t.Errorf("Stats() = %+v, want 1 deleted, 1 remaining", stats)
	}

	latest, err := db.LatestUndo("s1")
	if err != nil {
		t.Fatalf("LatestUndo() error = %v", err)
	}
	if latest == nil || latest.ID != record.ID {
		t.Fatalf("LatestUndo() = %v, want record %d", latest, record.ID)
	}
	if latest.PreviousAction != "" {
		t.Errorf("PreviousAction = %q, want empty", latest.PreviousAction)
	}

	if err := db.ApplyUndo(latest); err != nil {
		t.Fatalf("ApplyUndo() error = %v", err)
	}

	got, _ := db.FindEntry(e.ID)
	if got.Disposition != dedup.DispositionPending || got.Action != "" {
		t.Errorf("entry = %v/%q, want pending with no action", got.Disposition, got.Action)
	}

	none, err := db.LatestUndo("s1")
	if err != nil {
		t.Fatalf("LatestUndo() error = %v", err)
	}
	if none != nil {
		t.Errorf("LatestUndo() = %v, want nil after undo", none)
	}

	if err := db.ApplyUndo(latest); !errors.Is(err, dedup.ErrNotFound) {
		t.Errorf("second ApplyUndo() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteDatabase_ApplyUndoRejectsUnknownDisposition(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "s1", testTime)
	entries, _ := db.ListEntries("s1", 0, 0, false)
	e := entries[0]

	record, err := db.MarkDeleted(e.ID, &dedup.UndoRecord{
		SessionID:           "s1",
		ReviewEntryID:       e.ID,
		PreviousDisposition: dedup.DispositionPending,
		OriginalLocation:    e.BackupPath,
		RecycleLocation:     "/volume1/backup/#recycle/backup/IMG_001.jpg",
		CreatedAt:           testTime,
	})
	if err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	bad := *record
	bad.PreviousDisposition = dedup.Disposition("archived")
	if err := db.ApplyUndo(&bad); !errors.Is(err, dedup.ErrInvalidRequest) {
		t.Fatalf("ApplyUndo() error = %v, want ErrInvalidRequest", err)
	}

	got, _ := db.FindEntry(e.ID)
	if got.Disposition != dedup.DispositionDeleted {
		t.Errorf("Disposition = %v, want deleted", got.Disposition)
	}
	latest, _ := db.LatestUndo("s1")
	if latest == nil || latest.ID != record.ID {
		t.Errorf("LatestUndo() = %v, want record %d kept", latest, record.ID)
	}
}

func TestSQLiteDatabase_LatestUndoOrdering(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "s1", testTime)
	entries, _ := db.ListEntries("s1", 0, 0, false)

	var last *dedup.UndoRecord
	for _, e := range entries {
		r, err := db.MarkDeleted(e.ID, &dedup.UndoRecord{
			SessionID:           "s1",
			ReviewEntryID:       e.ID,
			PreviousDisposition: dedup.DispositionPending,
			OriginalLocation:    e.BackupPath,
			CreatedAt:           testTime,
		})
		if err != nil {
			t.Fatalf("MarkDeleted() error = %v", err)
		}
		last = r
	}

	got, _ := db.LatestUndo("s1")
	if got.ID != last.ID {
		t.Errorf("LatestUndo().ID = %d, want %d", got.ID, last.ID)
	}
}

func TestSQLiteDatabase_Stats(t *testing.T) {
	t.Run("empty session is complete", func(t *testing.T) {
		db := newTestDB(t)

		stats, err := db.Stats("none")
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		want := dedup.ReviewStats{Completed: true}
		if *stats != want {
			t.Errorf("Stats() = %+v, want %+v", *stats, want)
		}
	})

	t.Run("counts dispositions", func(t *testing.T) {
		db := newTestDB(t)
		createTestSession(t, db, "s1", testTime)
		entries, _ := db.ListEntries("s1", 0, 0, false)

		for _, e := range entries {
			if err := db.MarkIgnored(e.ID, e.BackupPath, e.SortedPath, testTime); err != nil {
				t.Fatalf("MarkIgnored() error = %v", err)
			}
		}

		stats, _ := db.Stats("s1")
		want := dedup.ReviewStats{Total: 2, Reviewed: 2, Remaining: 0, Ignored: 2, Completed: true}
		if *stats != want {
			t.Errorf("Stats() = %+v, want %+v", *stats, want)
		}
	})
}

func TestSQLiteDatabase_ThumbnailIndex(t *testing.T) {
	db := newTestDB(t)

	entry := &dedup.ThumbnailEntry{
		CacheKey:   dedup.CacheKey("/volume1/photo/a.jpg", 100, 2048),
		RemotePath: "/volume1/photo/a.jpg",
		ModTime:    100,
		Size:       2048,
		BlobSize:   300,
		CreatedAt:  testTime,
	}
	if err := db.RecordThumbnail(entry); err != nil {
		t.Fatalf("RecordThumbnail() error = %v", err)
	}
	if err := db.RecordThumbnail(entry); err != nil {
		t.Fatalf("repeat RecordThumbnail() error = %v", err)
	}

	count, total, err := db.ThumbnailStats()
	if err != nil {
		t.Fatalf("ThumbnailStats() error = %v", err)
	}
	if count != 1 || total != 300 {
		t.Errorf("ThumbnailStats() = %d, %d, want 1, 300", count, total)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "s1", testTime)

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	restored, err := NewSQLiteDatabase(dest)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer restored.Close()

	sessions, err := restored.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("ListSessions() = %v, want s1", sessions)
	}
}
