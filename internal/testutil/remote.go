package testutil

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"photodup/internal/dedup"
	"photodup/internal/shellcmd"
)

type memFile struct {
	data    []byte
	modTime int64
}

type injectedFailure struct {
	exitCode  int
	stderr    string
	remaining int // < 0 means forever
}

// MemoryRemote is an in-memory NAS. It interprets the commands built by
// shellcmd (find, test, mkdir, mv, stat, cat, ffmpeg) against a fake
// filesystem and also implements dedup.RemoteTransfer.
// This implementation is safe for concurrent use.
type MemoryRemote struct {
	mu         sync.Mutex
	files      map[string]*memFile
	dirs       map[string]bool
	unreadable map[string]bool
	failures   map[string]*injectedFailure
	calls      map[string]int
	commands   []string

	// Unavailable makes every call fail as if the NAS could not be reached.
	Unavailable bool
}

// NewMemoryRemote creates an empty remote with only "/" present.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		files:      make(map[string]*memFile),
		dirs:       map[string]bool{"/": true},
		unreadable: make(map[string]bool),
		failures:   make(map[string]*injectedFailure),
		calls:      make(map[string]int),
	}
}

// AddFile creates a file (and its parent directories) with mtime 1700000000.
func (m *MemoryRemote) AddFile(p string, data []byte) {
	m.AddFileWithTime(p, data, 1700000000)
}

// AddFileWithTime creates a file with the given modification time.
func (m *MemoryRemote) AddFileWithTime(p string, data []byte, modTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	m.addDirLocked(path.Dir(p))
	m.files[p] = &memFile{data: data, modTime: modTime}
}

// Touch changes a file's modification time.
func (m *MemoryRemote) Touch(p string, modTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path.Clean(p)]; ok {
		f.modTime = modTime
	}
}

// AddDir creates a directory and its parents.
func (m *MemoryRemote) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirLocked(path.Clean(p))
}

// SetUnreadable makes test -r fail for p.
func (m *MemoryRemote) SetUnreadable(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreadable[path.Clean(p)] = true
}

// FailOn makes the next times invocations of program exit with exitCode.
// times < 0 fails forever.
func (m *MemoryRemote) FailOn(program string, times, exitCode int, stderr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[program] = &injectedFailure{exitCode: exitCode, stderr: stderr, remaining: times}
}

// Exists reports whether a file exists at p.
func (m *MemoryRemote) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path.Clean(p)]
	return ok
}

// DirExists reports whether a directory exists at p.
func (m *MemoryRemote) DirExists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path.Clean(p)]
}

// Calls returns how many times program was run.
func (m *MemoryRemote) Calls(program string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[program]
}

// Commands returns every command line received, in order.
func (m *MemoryRemote) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func (m *MemoryRemote) addDirLocked(p string) {
	for {
		m.dirs[p] = true
		if p == "/" || p == "." {
			return
		}
		p = path.Dir(p)
	}
}

// Run implements dedup.RemoteShell.
func (m *MemoryRemote) Run(ctx context.Context, command string) (*dedup.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return nil, fmt.Errorf("connecting to nas: %w", dedup.ErrTransportUnavailable)
	}

	m.commands = append(m.commands, command)
	argv, err := shellcmd.Split(command)
	if err != nil || len(argv) == 0 {
		return failure(2, "sh: syntax error"), nil
	}
	program, args := argv[0], argv[1:]
	m.calls[program]++

	if f, ok := m.failures[program]; ok && f.remaining != 0 {
		if f.remaining > 0 {
			f.remaining--
		}
		return failure(f.exitCode, f.stderr), nil
	}

	switch program {
	case "find":
		return m.find(args), nil
	case "test":
		return m.test(args), nil
	case "mkdir":
		return m.mkdir(args), nil
	case "mv":
		return m.mv(args), nil
	case "stat":
		return m.stat(args), nil
	case "cat":
		return m.cat(args), nil
	case "ffmpeg":
		return m.ffmpeg(args), nil
	default:
		return failure(127, "sh: "+program+": not found"), nil
	}
}

// Fetch implements dedup.RemoteTransfer by writing the file's bytes locally.
func (m *MemoryRemote) Fetch(ctx context.Context, remotePath, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return fmt.Errorf("connecting to nas: %w", dedup.ErrTransportUnavailable)
	}
	m.calls["fetch"]++
	f, ok := m.files[path.Clean(remotePath)]
	if !ok {
		return fmt.Errorf("fetching %s: %w", remotePath, dedup.ErrNotFound)
	}
	return os.WriteFile(localPath, f.data, 0644)
}

func result(stdout string) *dedup.CommandResult {
	return &dedup.CommandResult{Stdout: []byte(stdout)}
}

func failure(code int, stderr string) *dedup.CommandResult {
	return &dedup.CommandResult{ExitCode: code, Stderr: stderr}
}

func noSuchFile(p string) *dedup.CommandResult {
	return failure(1, p+": No such file or directory")
}

// find supports "ROOT [-path P -prune -o]... -type f -print" and
// "ROOT -mindepth 1 -maxdepth 1 -type d".
func (m *MemoryRemote) find(args []string) *dedup.CommandResult {
	if len(args) == 0 {
		return failure(1, "find: missing root")
	}
	root := path.Clean(args[0])
	if !m.dirs[root] {
		return noSuchFile(root)
	}

	var prunes []*regexp.Regexp
	fileType := ""
	maxDepth := -1
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-path":
			if i+1 < len(args) {
				prunes = append(prunes, globToRegexp(args[i+1]))
				i++
			}
		case "-type":
			if i+1 < len(args) {
				fileType = args[i+1]
				i++
			}
		case "-maxdepth":
			if i+1 < len(args) {
				maxDepth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "-mindepth":
			i++
		}
	}

	pruned := func(p string) bool {
		for _, re := range prunes {
			if re.MatchString(p) {
				return true
			}
		}
		return false
	}
	// A path is hidden when it, or any directory between root and it, is pruned.
	hidden := func(p string) bool {
		for cur := p; ; cur = path.Dir(cur) {
			if pruned(cur) {
				return true
			}
			if cur == root || cur == "/" {
				return false
			}
		}
	}

	var out []string
	switch fileType {
	case "f":
		for p := range m.files {
			if dedup.IsSubpath(p, root) && p != root && !hidden(p) {
				out = append(out, p)
			}
		}
	case "d":
		for d := range m.dirs {
			if d == root || !dedup.IsSubpath(d, root) {
				continue
			}
			if maxDepth == 1 && path.Dir(d) != root {
				continue
			}
			if !hidden(d) {
				out = append(out, d)
			}
		}
	default:
		return failure(1, "find: unsupported expression")
	}

	sort.Strings(out)
	if len(out) == 0 {
		return result("")
	}
	return result(strings.Join(out, "\n") + "\n")
}

func (m *MemoryRemote) test(args []string) *dedup.CommandResult {
	if len(args) != 2 {
		return failure(2, "test: bad arguments")
	}
	p := path.Clean(args[1])
	switch args[0] {
	case "-e":
		if _, isFile := m.files[p]; isFile || m.dirs[p] {
			return result("")
		}
	case "-d":
		if m.dirs[p] {
			return result("")
		}
	case "-r":
		_, isFile := m.files[p]
		if (m.dirs[p] || isFile) && !m.unreadable[p] {
			return result("")
		}
	}
	return failure(1, "")
}

func (m *MemoryRemote) mkdir(args []string) *dedup.CommandResult {
	for _, a := range args {
		if a == "-p" {
			continue
		}
		p := path.Clean(a)
		if _, isFile := m.files[p]; isFile {
			return failure(1, "mkdir: "+p+": File exists")
		}
		m.addDirLocked(p)
	}
	return result("")
}

// mv supports "[-n] SRC DST". With -n an existing DST is left alone and
// SRC stays where it is.
func (m *MemoryRemote) mv(args []string) *dedup.CommandResult {
	noClobber := false
	if len(args) > 0 && args[0] == "-n" {
		noClobber = true
		args = args[1:]
	}
	if len(args) != 2 {
		return failure(1, "mv: bad arguments")
	}
	src, dst := path.Clean(args[0]), path.Clean(args[1])
	f, exists := m.files[src]
	if !exists {
		return failure(1, "mv: cannot stat '"+src+"': No such file or directory")
	}
	if m.dirs[dst] {
		dst = path.Join(dst, path.Base(src))
	}
	if !m.dirs[path.Dir(dst)] {
		return failure(1, "mv: cannot move '"+src+"': No such file or directory")
	}
	if _, taken := m.files[dst]; taken && noClobber {
		return result("")
	}
	delete(m.files, src)
	m.files[dst] = f
	return result("")
}

func (m *MemoryRemote) stat(args []string) *dedup.CommandResult {
	if len(args) != 3 || args[0] != "-c" {
		return failure(1, "stat: bad arguments")
	}
	p := path.Clean(args[2])
	f, exists := m.files[p]
	if !exists {
		return failure(1, "stat: cannot stat '"+p+"': No such file or directory")
	}
	return result(fmt.Sprintf("%d %d\n", f.modTime, len(f.data)))
}

func (m *MemoryRemote) cat(args []string) *dedup.CommandResult {
	if len(args) != 1 {
		return failure(1, "cat: bad arguments")
	}
	f, exists := m.files[path.Clean(args[0])]
	if !exists {
		return noSuchFile(args[0])
	}
	return &dedup.CommandResult{Stdout: append([]byte(nil), f.data...)}
}

// ffmpeg emits a fake JPEG whose bytes name the input file.
func (m *MemoryRemote) ffmpeg(args []string) *dedup.CommandResult {
	input := ""
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			input = path.Clean(args[i+1])
		}
	}
	if _, exists := m.files[input]; !exists {
		return failure(1, input+": No such file or directory")
	}
	return &dedup.CommandResult{Stdout: []byte("\xff\xd8fake-jpeg:" + input + "\xff\xd9")}
}

// globToRegexp converts a find -path pattern, where '*' also matches '/'.
// Bracket classes ("[abc]", "[!a-z]") and backslash escapes are honoured.
func globToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	rs := []rune(pattern)
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(rs) {
				i++
				b.WriteString(regexp.QuoteMeta(string(rs[i])))
			} else {
				b.WriteString(regexp.QuoteMeta("\\"))
			}
		case '[':
			class, n := bracketClass(rs[i:])
			if n == 0 {
				b.WriteString(regexp.QuoteMeta("["))
				continue
			}
			b.WriteString(class)
			i += n - 1
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// bracketClass converts the class starting at rs[0] == '[' and returns it
// with the number of runes consumed, or 0 if the class is not terminated.
func bracketClass(rs []rune) (string, int) {
	i := 1
	negate := false
	if i < len(rs) && (rs[i] == '!' || rs[i] == '^') {
		negate = true
		i++
	}
	var body strings.Builder
	for first := true; i < len(rs); i++ {
		r := rs[i]
		if r == ']' && !first {
			class := "[" + body.String() + "]"
			if negate {
				class = "[^" + body.String() + "]"
			}
			return class, i + 1
		}
		first = false
		if r == '-' {
			body.WriteRune('-')
			continue
		}
		body.WriteString(regexp.QuoteMeta(string(r)))
	}
	return "", 0
}

var (
	_ dedup.RemoteShell    = (*MemoryRemote)(nil)
	_ dedup.RemoteTransfer = (*MemoryRemote)(nil)
)
