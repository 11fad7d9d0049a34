package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photodup/internal/dedup"
)

// DefaultJPEGQuality is used when Local is created with quality <= 0.
const DefaultJPEGQuality = 85

// Local fetches the original image and renders the thumbnail on this
// machine. It handles the formats registered with image.Decode: JPEG, PNG,
// GIF, BMP, TIFF and WebP.
type Local struct {
	transfer dedup.RemoteTransfer
	tempDir  string
	quality  int
}

// NewLocal creates a local generator. tempDir "" uses os.TempDir.
func NewLocal(transfer dedup.RemoteTransfer, tempDir string, quality int) *Local {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	return &Local{transfer: transfer, tempDir: tempDir, quality: quality}
}

// Render implements dedup.ThumbnailGenerator.
func (l *Local) Render(ctx context.Context, remotePath string, maxEdge int) ([]byte, error) {
	tmp, err := os.MkdirTemp(l.tempDir, "photodup-thumb-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	local := filepath.Join(tmp, "original")
	if err := l.transfer.Fetch(ctx, remotePath, local); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", remotePath, err)
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("opening fetched file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := Encode(f, &buf, maxEdge, l.quality); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", remotePath, err)
	}
	return buf.Bytes(), nil
}

// Encode decodes an image from r, flattens it onto white, scales it so the
// longest edge is at most maxEdge and writes it to w as JPEG.
func Encode(r io.Reader, w io.Writer, maxEdge, quality int) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}
	out := Resize(Flatten(src), maxEdge)
	if err := jpeg.Encode(w, out, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encoding jpeg: %w", err)
	}
	return nil
}

// Flatten composites img over an opaque white background.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Resize scales img down so its longest edge is at most maxEdge, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Resize(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = max(1, h*maxEdge/w)
	} else {
		nw = max(1, w*maxEdge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

var _ dedup.ThumbnailGenerator = (*Local)(nil)
