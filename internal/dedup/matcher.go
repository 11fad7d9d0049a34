package dedup

import (
	"context"
	"fmt"
	"path"

	"github.com/cespare/xxhash/v2"
)

// GroupID returns the stable group identifier for a backup path.
func GroupID(backupPath string) string {
	return fmt.Sprintf("pair_%016x", xxhash.Sum64String(backupPath))
}

// Matcher pairs files of a backup tree with same-named files in a sorted tree.
type Matcher struct {
	scanner *Scanner
	logger  Logger
}

func NewMatcher(scanner *Scanner, logger Logger) *Matcher {
	return &Matcher{scanner: scanner, logger: logger}
}

// FindDuplicates scans both trees and returns every candidate pair.
// When backupRoot lies inside sortedRoot it is excluded from the sorted scan.
func (m *Matcher) FindDuplicates(ctx context.Context, backupRoot, sortedRoot string) ([]CandidatePair, error) {
	backup, err := m.scanner.ScanFolder(ctx, backupRoot, "")
	if err != nil {
		return nil, fmt.Errorf("backup tree: %w", err)
	}

	exclude := ""
	if IsSubpath(backupRoot, sortedRoot) {
		exclude = backupRoot
	}
	sorted, err := m.scanner.ScanFolder(ctx, sortedRoot, exclude)
	if err != nil {
		return nil, fmt.Errorf("sorted tree: %w", err)
	}

	pairs := MatchIndexes(backup, sorted)
	m.logger.Info("matched duplicates",
		"backup_root", backupRoot,
		"sorted_root", sortedRoot,
		"pairs", len(pairs),
	)
	return pairs, nil
}

// MatchIndexes emits the cross product of backup and sorted paths for every
// filename present in both indexes, in backup enumeration order.
func MatchIndexes(backup, sorted *FilenameIndex) []CandidatePair {
	var pairs []CandidatePair
	if backup == nil || sorted == nil {
		return pairs
	}
	for _, name := range backup.Names() {
		sortedPaths := sorted.Paths(name)
		if len(sortedPaths) == 0 {
			continue
		}
		for _, bp := range backup.Paths(name) {
			gid := GroupID(bp)
			for _, sp := range sortedPaths {
				pairs = append(pairs, CandidatePair{
					GroupID:    gid,
					Filename:   path.Base(bp),
					BackupPath: bp,
					SortedPath: sp,
				})
			}
		}
	}
	return pairs
}
