package dedup

import (
	"path"
	"strings"
)

// IsSubpath reports whether child is parent or lies below it.
// Both paths are cleaned first, so "/a/b/" and "/a/b" are equal and
// "/a/bc" is not inside "/a/b".
func IsSubpath(child, parent string) bool {
	if child == "" || parent == "" {
		return false
	}
	c := path.Clean(child)
	p := path.Clean(parent)
	if c == p {
		return true
	}
	if p == "/" {
		return strings.HasPrefix(c, "/")
	}
	return strings.HasPrefix(c, p+"/")
}

// ShareRoot returns the first depth segments of an absolute path, e.g.
// ShareRoot("/volume1/photo/2020/a.jpg", 2) is "/volume1/photo".
// Paths with fewer segments are returned cleaned and unchanged.
func ShareRoot(p string, depth int) string {
	if depth <= 0 {
		depth = DefaultShareDepth
	}
	segments := strings.Split(strings.Trim(path.Clean(p), "/"), "/")
	if len(segments) > depth {
		segments = segments[:depth]
	}
	return "/" + strings.Join(segments, "/")
}

// hasSystemSegment reports whether any directory segment of p starts with '@'.
func hasSystemSegment(p string) bool {
	return strings.Contains(p, "/@")
}
