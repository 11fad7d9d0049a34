package testutil

import (
	"context"
	"fmt"
	"sync"
)

// CountingGenerator renders deterministic fake thumbnails and counts calls.
type CountingGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	Err   error
}

func NewCountingGenerator() *CountingGenerator {
	return &CountingGenerator{calls: make(map[string]int)}
}

func (g *CountingGenerator) Render(ctx context.Context, remotePath string, maxEdge int) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.calls[remotePath]++
	return []byte(fmt.Sprintf("thumb:%s:%d:%d", remotePath, maxEdge, g.calls[remotePath])), nil
}

// Calls returns how many times remotePath was rendered.
func (g *CountingGenerator) Calls(remotePath string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[remotePath]
}
