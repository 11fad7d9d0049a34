package dedup

import (
	"context"
	"fmt"
	"path"
	"strings"

	"photodup/internal/shellcmd"
)

// DefaultShareDepth is the number of leading path segments forming a share
// root, as in /volume1/photo.
const DefaultShareDepth = 2

// RecycleDirNames are the recycle folder names probed below a share root,
// in order.
var RecycleDirNames = []string{"#recycle", "@Recycle", "@recycle", ".recycle"}

// RecyclePrunes returns find -path patterns matching every recycle folder name.
func RecyclePrunes(configured string) []string {
	var prunes []string
	for _, name := range recycleCandidates(configured) {
		prunes = append(prunes, "*/"+shellcmd.GlobEscape(name))
	}
	return prunes
}

func recycleCandidates(configured string) []string {
	names := make([]string, 0, len(RecycleDirNames)+1)
	if configured != "" {
		names = append(names, configured)
	}
	for _, n := range RecycleDirNames {
		if n != configured {
			names = append(names, n)
		}
	}
	return names
}

// RecycleRouter moves files into and out of a share's recycle area.
type RecycleRouter struct {
	shell      RemoteShell
	logger     Logger
	configured string
	shareDepth int
}

// NewRecycleRouter creates a router. configured is an optional recycle folder
// name probed before the built-in ones; shareDepth <= 0 means DefaultShareDepth.
func NewRecycleRouter(shell RemoteShell, logger Logger, configured string, shareDepth int) *RecycleRouter {
	if shareDepth <= 0 {
		shareDepth = DefaultShareDepth
	}
	return &RecycleRouter{shell: shell, logger: logger, configured: configured, shareDepth: shareDepth}
}

// ShareRootOf returns the share root of p using the router's depth.
func (r *RecycleRouter) ShareRootOf(p string) string {
	return ShareRoot(p, r.shareDepth)
}

// LocateRecycleArea returns the first existing recycle folder below shareRoot.
// It returns an error wrapping ErrNotFound if there is none.
func (r *RecycleRouter) LocateRecycleArea(ctx context.Context, shareRoot string) (string, error) {
	for _, name := range recycleCandidates(r.configured) {
		candidate := path.Join(shareRoot, name)
		ok, err := probe(ctx, r.shell, shellcmd.TestDir(candidate))
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", candidate, err)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("recycle area under %s: %w", shareRoot, ErrNotFound)
}

// maxRecycleSuffix bounds the "name (N).ext" variants tried when the
// recycle target is already taken.
const maxRecycleSuffix = 100

// MoveToRecycle moves filePath into recycleRoot/<parent dir name>/ and
// returns the new location. An existing file there is never replaced: the
// first free "name (N).ext" is used instead.
func (r *RecycleRouter) MoveToRecycle(ctx context.Context, filePath, recycleRoot string) (string, error) {
	parent := path.Base(path.Dir(filePath))
	targetDir := path.Join(recycleRoot, parent)

	if _, err := run(ctx, r.shell, shellcmd.MkdirAll(targetDir)); err != nil {
		return "", fmt.Errorf("creating %s: %w", targetDir, err)
	}
	target, err := r.freeName(ctx, targetDir, path.Base(filePath))
	if err != nil {
		return "", err
	}
	if err := r.move(ctx, filePath, target); err != nil {
		return "", fmt.Errorf("moving %s to recycle: %w", filePath, err)
	}
	r.logger.Info("moved to recycle", "from", filePath, "to", target)
	return target, nil
}

// RestoreFromRecycle moves a recycled file back to its original location.
// It refuses to replace a file that has since appeared there.
func (r *RecycleRouter) RestoreFromRecycle(ctx context.Context, recycleLocation, originalLocation string) error {
	dir := path.Dir(originalLocation)
	if _, err := run(ctx, r.shell, shellcmd.MkdirAll(dir)); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	taken, err := probe(ctx, r.shell, shellcmd.TestExists(originalLocation))
	if err != nil {
		return fmt.Errorf("checking %s: %w", originalLocation, err)
	}
	if taken {
		return fmt.Errorf("restoring %s: a file already exists there: %w", originalLocation, ErrInvalidRequest)
	}
	if err := r.move(ctx, recycleLocation, originalLocation); err != nil {
		return fmt.Errorf("restoring %s: %w", originalLocation, err)
	}
	r.logger.Info("restored from recycle", "from", recycleLocation, "to", originalLocation)
	return nil
}

// freeName returns the first path in dir, starting with name, that does not exist.
func (r *RecycleRouter) freeName(ctx context.Context, dir, name string) (string, error) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i <= maxRecycleSuffix; i++ {
		candidate := path.Join(dir, name)
		if i > 0 {
			candidate = path.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		}
		taken, err := probe(ctx, r.shell, shellcmd.TestExists(candidate))
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s: %w", name, dir, ErrInvalidRequest)
}

// move runs a no-clobber mv and confirms src is gone afterwards.
func (r *RecycleRouter) move(ctx context.Context, src, dst string) error {
	cmd := shellcmd.Move(src, dst)
	if _, err := run(ctx, r.shell, cmd); err != nil {
		return err
	}
	left, err := probe(ctx, r.shell, shellcmd.TestExists(src))
	if err != nil {
		return fmt.Errorf("checking %s: %w", src, err)
	}
	if left {
		return &RemoteCommandError{Command: cmd.String(), ExitCode: 1, Stderr: dst + " already exists; nothing was moved"}
	}
	return nil
}
