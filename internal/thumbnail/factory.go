// Package thumbnail renders preview JPEGs of images on the NAS.
package thumbnail

import (
	"fmt"

	"photodup/internal/config"
	"photodup/internal/dedup"
)

// NewGeneratorFromConfig creates a ThumbnailGenerator based on the
// configured generator type.
func NewGeneratorFromConfig(cfg config.ThumbnailsConfig, shell dedup.RemoteShell, transfer dedup.RemoteTransfer) (dedup.ThumbnailGenerator, error) {
	switch cfg.Generator {
	case "remote", "":
		return NewRemoteFFmpeg(shell), nil
	case "local":
		return NewLocal(transfer, "", 0), nil
	default:
		return nil, fmt.Errorf("unknown thumbnail generator: %q", cfg.Generator)
	}
}
