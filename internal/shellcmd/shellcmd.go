// Package shellcmd builds the remote shell commands photodup sends to the NAS.
//
// Every argument is quoted by go-shellquote when a Command is rendered, so
// paths containing spaces, quotes or other shell metacharacters are always
// passed through as a single literal word. Call sites never format command
// strings themselves.
package shellcmd

import (
	"path"
	"strconv"
	"strings"

	"github.com/Hellseher/go-shellquote"
)

// Command is a program name plus its arguments.
type Command struct {
	argv []string
}

// New returns a command for name with the given arguments.
func New(name string, args ...string) Command {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, name)
	argv = append(argv, args...)
	return Command{argv: argv}
}

// With returns a copy of c with extra arguments appended.
func (c Command) With(args ...string) Command {
	argv := make([]string, 0, len(c.argv)+len(args))
	argv = append(argv, c.argv...)
	argv = append(argv, args...)
	return Command{argv: argv}
}

// Name returns the program name.
func (c Command) Name() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// Args returns a copy of the arguments, excluding the program name.
func (c Command) Args() []string {
	if len(c.argv) < 2 {
		return nil
	}
	return append([]string(nil), c.argv[1:]...)
}

// String renders the command as a single shell-safe line.
func (c Command) String() string {
	return shellquote.Join(c.argv...)
}

// Split parses a rendered command line back into its words.
func Split(line string) ([]string, error) {
	return shellquote.Split(line)
}

// FindFiles lists regular files below root. Each prune pattern is matched
// with find's -path and the matching directory is not descended into.
func FindFiles(root string, prunes ...string) Command {
	c := New("find", cleanRoot(root))
	for _, p := range prunes {
		if p == "" {
			continue
		}
		c = c.With("-path", p, "-prune", "-o")
	}
	return c.With("-type", "f", "-print")
}

// GlobEscape backslash-escapes the find -path metacharacters in p so the
// pattern matches p literally.
func GlobEscape(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for _, r := range p {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListDirs lists the direct child directories of parent.
func ListDirs(parent string) Command {
	return New("find", cleanRoot(parent), "-mindepth", "1", "-maxdepth", "1", "-type", "d")
}

// TestDir exits zero if p is an existing directory.
func TestDir(p string) Command {
	return New("test", "-d", p)
}

// TestReadable exits zero if p is readable by the remote user.
func TestReadable(p string) Command {
	return New("test", "-r", p)
}

// MkdirAll creates p and any missing parents.
func MkdirAll(p string) Command {
	return New("mkdir", "-p", p)
}

// TestExists exits zero if anything exists at p.
func TestExists(p string) Command {
	return New("test", "-e", p)
}

// Move renames src to dst without replacing an existing dst. When dst
// exists mv leaves src in place, so callers check src afterwards.
func Move(src, dst string) Command {
	return New("mv", "-n", src, dst)
}

// StatModSize prints "<mtime-seconds> <size-bytes>" for p.
func StatModSize(p string) Command {
	return New("stat", "-c", "%Y %s", p)
}

// Cat writes the contents of p to stdout.
func Cat(p string) Command {
	return New("cat", p)
}

// FFmpegThumbnail renders the first frame of p as a JPEG on stdout, scaled so
// the longest edge is at most maxEdge. JPEG has no alpha channel, so the
// output is always flat.
func FFmpegThumbnail(p string, maxEdge int) Command {
	edge := strconv.Itoa(maxEdge)
	scale := "scale='min(" + edge + ",iw)':'min(" + edge + ",ih)':force_original_aspect_ratio=decrease"
	return New("ffmpeg",
		"-loglevel", "error",
		"-i", p,
		"-vf", scale,
		"-frames:v", "1",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"-f", "mjpeg",
		"pipe:1",
	)
}

func cleanRoot(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}
