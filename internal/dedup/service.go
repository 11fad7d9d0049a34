package dedup

import (
	"context"
	"errors"
	"fmt"
)

// ServiceOptions tune scanning and recycle routing.
type ServiceOptions struct {
	// Extensions overrides DefaultExtensions when non-empty.
	Extensions []string
	// RecycleDirName is probed before the conventional recycle folder names.
	RecycleDirName string
	// ShareDepth is the number of path segments forming a share root.
	ShareDepth int
}

// Service is the orchestration layer for scanning and reviewing duplicates.
// It coordinates the remote shell, the store and the recycle router.
type Service struct {
	store   Store
	shell   RemoteShell
	scanner *Scanner
	matcher *Matcher
	router  *RecycleRouter
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, shell RemoteShell, logger Logger, clock Clock, idgen IDGenerator, opts ServiceOptions) *Service {
	scanner := NewScanner(shell, logger, opts.Extensions, RecyclePrunes(opts.RecycleDirName))
	return &Service{
		store:   store,
		shell:   shell,
		scanner: scanner,
		matcher: NewMatcher(scanner, logger),
		router:  NewRecycleRouter(shell, logger, opts.RecycleDirName, opts.ShareDepth),
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// Scan finds candidate pairs without persisting them.
func (s *Service) Scan(ctx context.Context, backupRoot, sortedRoot string) ([]CandidatePair, error) {
	return s.matcher.FindDuplicates(ctx, backupRoot, sortedRoot)
}

// CreateSession persists pairs as a new scan session. An empty sessionID
// gets a fresh one; an existing sessionID has its entries replaced unless
// the session has deleted entries.
func (s *Service) CreateSession(backupRoot, sortedRoot string, pairs []CandidatePair, sessionID string) (*ScanSession, error) {
	if backupRoot == "" || sortedRoot == "" {
		return nil, fmt.Errorf("backup and sorted roots are required: %w", ErrInvalidRequest)
	}
	if sessionID == "" {
		sessionID = s.idgen.New()
	}

	session, err := s.store.CreateSession(&ScanSession{
		ID:         sessionID,
		BackupRoot: backupRoot,
		SortedRoot: sortedRoot,
		CreatedAt:  s.clock.Now(),
	}, pairs)
	if err != nil {
		return nil, persistenceError("creating session", err)
	}

	s.logger.Info("session created",
		"session", session.ID,
		"pairs", len(pairs),
		"pending", session.PairCount,
	)
	return session, nil
}

// ScanAndSave scans both trees and stores the result as a new session.
func (s *Service) ScanAndSave(ctx context.Context, backupRoot, sortedRoot string) (*ScanSession, error) {
	pairs, err := s.Scan(ctx, backupRoot, sortedRoot)
	if err != nil {
		return nil, err
	}
	return s.CreateSession(backupRoot, sortedRoot, pairs, "")
}

// ListSessions returns all sessions, newest first.
func (s *Service) ListSessions() ([]*ScanSession, error) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return nil, persistenceError("listing sessions", err)
	}
	return sessions, nil
}

// resolveSession returns the named session, or the newest one when id is
// empty. It returns nil without error if id is empty and no sessions exist.
func (s *Service) resolveSession(id string) (*ScanSession, error) {
	if id == "" {
		session, err := s.store.LatestSession()
		if err != nil {
			return nil, persistenceError("finding latest session", err)
		}
		return session, nil
	}
	session, err := s.store.FindSession(id)
	if err != nil {
		return nil, persistenceError("finding session", err)
	}
	return session, nil
}

// ListEntries returns review entries for a session.
func (s *Service) ListEntries(opts ListOptions) ([]*ReviewEntry, error) {
	session, err := s.resolveSession(opts.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []*ReviewEntry{}, nil
	}
	entries, err := s.store.ListEntries(session.ID, opts.Limit, opts.Offset, opts.IncludeReviewed)
	if err != nil {
		return nil, persistenceError("listing entries", err)
	}
	return entries, nil
}

// Ignore marks the entry ignored and records the pair in the ignore ledger
// so later scans suppress it. Empty paths default to the entry's own.
func (s *Service) Ignore(entryID int64, backupPath, sortedPath string) (*ReviewEntry, error) {
	entry, err := s.store.FindEntry(entryID)
	if err != nil {
		return nil, persistenceError("finding entry", err)
	}
	if entry.Disposition == DispositionDeleted {
		return nil, fmt.Errorf("entry %d is deleted; undo it first: %w", entryID, ErrInvalidRequest)
	}
	if backupPath == "" {
		backupPath = entry.BackupPath
	}
	if sortedPath == "" {
		sortedPath = entry.SortedPath
	}

	if err := s.store.MarkIgnored(entryID, backupPath, sortedPath, s.clock.Now()); err != nil {
		return nil, persistenceError("marking ignored", err)
	}
	entry.Disposition = DispositionIgnored
	entry.Action = ActionIgnored

	s.logger.Info("pair ignored", "entry", entryID, "backup", backupPath, "sorted", sortedPath)
	return entry, nil
}

// Delete moves the entry's backup file into the share's recycle area, then
// marks the entry deleted and records how to undo it. Empty backupPath or
// sessionID default to the entry's own; values that disagree with the
// stored entry are rejected.
func (s *Service) Delete(ctx context.Context, entryID int64, backupPath, sessionID string) (*UndoRecord, error) {
	entry, err := s.store.FindEntry(entryID)
	if err != nil {
		return nil, persistenceError("finding entry", err)
	}
	if entry.Disposition == DispositionDeleted {
		return nil, fmt.Errorf("entry %d is already deleted: %w", entryID, ErrInvalidRequest)
	}
	if backupPath != "" && backupPath != entry.BackupPath {
		return nil, fmt.Errorf("backup path %q does not match entry %d: %w", backupPath, entryID, ErrInvalidRequest)
	}
	if sessionID != "" && sessionID != entry.SessionID {
		return nil, fmt.Errorf("entry %d does not belong to session %s: %w", entryID, sessionID, ErrInvalidRequest)
	}

	shareRoot := s.router.ShareRootOf(entry.BackupPath)
	recycleRoot, err := s.router.LocateRecycleArea(ctx, shareRoot)
	if err != nil {
		return nil, err
	}
	location, err := s.router.MoveToRecycle(ctx, entry.BackupPath, recycleRoot)
	if err != nil {
		return nil, err
	}

	record, err := s.store.MarkDeleted(entryID, &UndoRecord{
		SessionID:           entry.SessionID,
		ReviewEntryID:       entry.ID,
		PreviousDisposition: entry.Disposition,
		PreviousAction:      entry.Action,
		OriginalLocation:    entry.BackupPath,
		RecycleLocation:     location,
		CreatedAt:           s.clock.Now(),
	})
	if err != nil {
		s.logger.Error("file moved but entry not updated; manual reconciliation required",
			"entry", entryID,
			"original", entry.BackupPath,
			"recycle", location,
			"error", err,
		)
		return nil, persistenceError("marking deleted", err)
	}

	s.logger.Info("entry deleted", "entry", entryID, "recycle", location)
	return record, nil
}

// Undo reverses the session's most recent delete: the file is restored
// first, then the entry's previous disposition. It returns ErrNothingToUndo
// when the session has no undo records.
func (s *Service) Undo(ctx context.Context, sessionID string) (*UndoRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrInvalidRequest)
	}
	record, err := s.store.LatestUndo(sessionID)
	if err != nil {
		return nil, persistenceError("finding undo record", err)
	}
	if record == nil {
		return nil, ErrNothingToUndo
	}

	if record.RecycleLocation != "" {
		if err := s.router.RestoreFromRecycle(ctx, record.RecycleLocation, record.OriginalLocation); err != nil {
			return nil, err
		}
	}

	if err := s.store.ApplyUndo(record); err != nil {
		s.logger.Error("file restored but entry not reverted; manual reconciliation required",
			"entry", record.ReviewEntryID,
			"original", record.OriginalLocation,
			"error", err,
		)
		return nil, persistenceError("applying undo", err)
	}

	s.logger.Info("delete undone", "entry", record.ReviewEntryID, "restored", record.OriginalLocation)
	return record, nil
}

// Stats summarises a session's review progress. An empty sessionID means
// the newest session.
func (s *Service) Stats(sessionID string) (*ReviewStats, error) {
	session, err := s.resolveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no scan sessions: %w", ErrNotFound)
	}
	stats, err := s.store.Stats(session.ID)
	if err != nil {
		return nil, persistenceError("counting entries", err)
	}
	return stats, nil
}

// IsNothingToUndo reports whether err is the expected empty-ledger outcome.
func IsNothingToUndo(err error) bool {
	return errors.Is(err, ErrNothingToUndo)
}
