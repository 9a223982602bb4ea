package ident

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
)

// RunIDGenerator issues lexically sortable run identifiers. IDs from one
// generator are strictly increasing even within the same millisecond.
type RunIDGenerator struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entropy *ulid.MonotonicEntropy
}

func NewRunIDGenerator(clock clockwork.Clock) *RunIDGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RunIDGenerator{clock: clock, entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *RunIDGenerator) NewRunID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(g.clock.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
