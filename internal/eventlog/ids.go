package eventlog

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator assigns ids to events appended without one.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so log-assigned
// ids sort roughly by creation time, which helps when eyeballing raw
// records.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined ids for testing.
//
// This enables deterministic appends and golden-file comparison: tests
// provide a known sequence of ids and verify exact output.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal
// mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed; a test asking for more ids
// than it declared is misconfigured and should fail fast.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
