package thumbnail

import (
	"bytes"
	"context"
	"fmt"

	"photodup/internal/dedup"
	"photodup/internal/shellcmd"
)

var jpegMagic = []byte{0xff, 0xd8}

// RemoteFFmpeg renders thumbnails with ffmpeg on the NAS, so only the small
// JPEG crosses the network.
type RemoteFFmpeg struct {
	shell dedup.RemoteShell
}

func NewRemoteFFmpeg(shell dedup.RemoteShell) *RemoteFFmpeg {
	return &RemoteFFmpeg{shell: shell}
}

// Render implements dedup.ThumbnailGenerator.
func (r *RemoteFFmpeg) Render(ctx context.Context, remotePath string, maxEdge int) ([]byte, error) {
	res, err := dedup.RunChecked(ctx, r.shell, shellcmd.FFmpegThumbnail(remotePath, maxEdge))
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(res.Stdout, jpegMagic) {
		return nil, fmt.Errorf("ffmpeg produced %d bytes of non-JPEG output for %s", len(res.Stdout), remotePath)
	}
	return res.Stdout, nil
}

var _ dedup.ThumbnailGenerator = (*RemoteFFmpeg)(nil)
