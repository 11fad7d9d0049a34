package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"photodup/internal/dedup"
)

// ReviewEpoch is where every FixedClock starts.
var ReviewEpoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock only moves when Advance is called.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a StubClock at ReviewEpoch.
func FixedClock() *StubClock {
	return &StubClock{now: ReviewEpoch}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, e.g. between two scans.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SessionID is the n-th id (from 1) issued by a StubIDGenerator. It has the
// shape of the UUIDv7 ids the service issues in production.
func SessionID(n int64) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}

// StubIDGenerator issues SessionID(1), SessionID(2), ... in order.
type StubIDGenerator struct {
	issued atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return SessionID(g.issued.Add(1))
}

var (
	_ dedup.Clock       = (*StubClock)(nil)
	_ dedup.IDGenerator = (*StubIDGenerator)(nil)
)
