package dedup

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"photodup/internal/shellcmd"
)

// MaxSuggestions caps the number of paths SuggestPaths returns.
const MaxSuggestions = 20

// VolumeRoots are the NAS volume mount points offered for an empty prefix.
var VolumeRoots = []string{"/volume1", "/volume2", "/volume3", "/volume4", "/volume5"}

// PathBrowser lists and validates remote directories for path entry.
type PathBrowser struct {
	shell  RemoteShell
	logger Logger
}

func NewPathBrowser(shell RemoteShell, logger Logger) *PathBrowser {
	return &PathBrowser{shell: shell, logger: logger}
}

// ListDirectories returns parent's direct child directories, sorted,
// without '@' system directories.
func (b *PathBrowser) ListDirectories(ctx context.Context, parent string) ([]string, error) {
	parent = normalizeDir(parent)
	res, err := run(ctx, b.shell, shellcmd.ListDirs(parent))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", parent, err)
	}

	var dirs []string
	for _, d := range lines(res.Stdout) {
		d = strings.TrimSpace(d)
		if d == parent || strings.HasPrefix(path.Base(d), "@") {
			continue
		}
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// SuggestPaths completes a partially typed directory path.
//
// An empty prefix yields the existing volume roots. A prefix ending in '/'
// lists that directory. Otherwise the parent is listed and filtered to names
// starting with the typed basename, ignoring case. A bare word without any
// '/' matches volume roots containing it.
func (b *PathBrowser) SuggestPaths(ctx context.Context, partial string) ([]string, error) {
	if partial == "" {
		return b.volumes(ctx)
	}

	if strings.HasSuffix(partial, "/") {
		dirs, err := b.ListDirectories(ctx, partial)
		if err != nil {
			return nil, err
		}
		return limit(dirs), nil
	}

	if !strings.Contains(partial, "/") {
		vols, err := b.volumes(ctx)
		if err != nil {
			return nil, err
		}
		var matching []string
		for _, v := range vols {
			if strings.Contains(strings.ToLower(v), strings.ToLower(partial)) {
				matching = append(matching, v)
			}
		}
		return limit(matching), nil
	}

	parent, base := path.Split(partial)
	dirs, err := b.ListDirectories(ctx, parent)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToLower(base)
	var matching []string
	for _, d := range dirs {
		if strings.HasPrefix(strings.ToLower(path.Base(d)), prefix) {
			matching = append(matching, d)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return strings.ToLower(path.Base(matching[i])) < strings.ToLower(path.Base(matching[j]))
	})
	return limit(matching), nil
}

// ValidatePath checks that p exists, is a directory and is readable.
func (b *PathBrowser) ValidatePath(ctx context.Context, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path cannot be empty: %w", ErrInvalidRequest)
	}
	p = normalizeDir(p)

	ok, err := probe(ctx, b.shell, shellcmd.TestDir(p))
	if err != nil {
		return fmt.Errorf("checking %s: %w", p, err)
	}
	if !ok {
		return fmt.Errorf("%s does not exist or is not a directory: %w", p, ErrNotFound)
	}

	ok, err = probe(ctx, b.shell, shellcmd.TestReadable(p))
	if err != nil {
		return fmt.Errorf("checking %s: %w", p, err)
	}
	if !ok {
		return fmt.Errorf("%s is not readable: %w", p, ErrInvalidRequest)
	}
	return nil
}

func (b *PathBrowser) volumes(ctx context.Context) ([]string, error) {
	existing := []string{}
	for _, v := range VolumeRoots {
		ok, err := probe(ctx, b.shell, shellcmd.TestDir(v))
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", v, err)
		}
		if ok {
			existing = append(existing, v)
		}
	}
	return existing, nil
}

func normalizeDir(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

func limit(paths []string) []string {
	if len(paths) > MaxSuggestions {
		return paths[:MaxSuggestions]
	}
	if paths == nil {
		return []string{}
	}
	return paths
}
