package dedup

import (
	"context"
	"fmt"
	"path"
	"strings"

	"photodup/internal/shellcmd"
)

// DefaultExtensions are the file extensions treated as images.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp",
	".heic", ".heif", ".raw", ".cr2", ".nef", ".orf", ".sr2",
}

// systemDirPattern prunes vendor system directories such as @eaDir.
const systemDirPattern = "*/@*"

// FilenameIndex groups absolute paths by lower-cased filename.
// It remembers the order in which filenames and paths were added.
type FilenameIndex struct {
	names []string
	paths map[string][]string
}

// NewFilenameIndex returns an empty index.
func NewFilenameIndex() *FilenameIndex {
	return &FilenameIndex{paths: make(map[string][]string)}
}

// Add records p under its lower-cased basename.
func (ix *FilenameIndex) Add(p string) {
	key := strings.ToLower(path.Base(p))
	if _, ok := ix.paths[key]; !ok {
		ix.names = append(ix.names, key)
	}
	ix.paths[key] = append(ix.paths[key], p)
}

// Names returns the filenames in first-seen order.
func (ix *FilenameIndex) Names() []string {
	return append([]string(nil), ix.names...)
}

// Paths returns the paths recorded for a lower-cased filename.
func (ix *FilenameIndex) Paths(name string) []string {
	return ix.paths[name]
}

// Len returns the number of distinct filenames.
func (ix *FilenameIndex) Len() int {
	return len(ix.names)
}

// Scanner walks a remote tree and indexes its image files by filename.
type Scanner struct {
	shell      RemoteShell
	logger     Logger
	extensions map[string]bool
	prunes     []string
}

// NewScanner creates a Scanner. A nil or empty extensions list uses
// DefaultExtensions. extraPrunes are additional find -path patterns whose
// directories are never descended.
func NewScanner(shell RemoteShell, logger Logger, extensions []string, extraPrunes []string) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Scanner{
		shell:      shell,
		logger:     logger,
		extensions: exts,
		prunes:     append([]string{systemDirPattern}, extraPrunes...),
	}
}

// IsImage reports whether name has one of the scanner's image extensions.
func (s *Scanner) IsImage(name string) bool {
	return s.extensions[strings.ToLower(path.Ext(name))]
}

// ScanFolder indexes the image files below root, skipping '@' system
// directories and, when exclude is non-empty, the exclude subtree.
// If root itself lies inside exclude, nothing is traversed.
// On failure the returned index is empty and the error is returned as well.
func (s *Scanner) ScanFolder(ctx context.Context, root, exclude string) (*FilenameIndex, error) {
	index := NewFilenameIndex()

	if exclude != "" && IsSubpath(root, exclude) {
		s.logger.Warn("skipping scan of excluded subtree", "root", root, "exclude", exclude)
		return index, nil
	}

	prunes := s.prunes
	if exclude != "" {
		prunes = append(append([]string(nil), prunes...), shellcmd.GlobEscape(path.Clean(exclude)))
	}

	res, err := run(ctx, s.shell, shellcmd.FindFiles(root, prunes...))
	if err != nil {
		s.logger.Error("scan failed", "root", root, "error", err)
		return index, fmt.Errorf("scanning %s: %w", root, err)
	}

	total, skipped := 0, 0
	for _, p := range lines(res.Stdout) {
		total++
		if hasSystemSegment(p) {
			skipped++
			continue
		}
		if exclude != "" && IsSubpath(p, exclude) {
			skipped++
			continue
		}
		if !s.IsImage(p) {
			continue
		}
		index.Add(p)
	}

	s.logger.Info("scanned folder",
		"root", root,
		"filenames", index.Len(),
		"files", total,
		"skipped", skipped,
	)
	return index, nil
}
