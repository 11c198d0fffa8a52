// Package ids generates identifiers for sections and blocks.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces identifiers that are unique for the lifetime of a
// document and sort by creation time for a given prefix.
type Generator interface {
	NextID(prefix string) string
}

// UUIDGenerator builds ids from UUIDv7 values: a millisecond timestamp, a
// monotonic counter for calls inside the same millisecond, then random bits.
type UUIDGenerator struct{}

// NextID returns "<prefix>_<uuidv7>".
func (UUIDGenerator) NextID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails when the random source fails; v4 keeps ids unique.
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}

// Sequence is a deterministic generator for tests and fixtures.
type Sequence struct {
	mu   sync.Mutex
	next map[string]int
}

// NewSequence creates an empty Sequence.
func NewSequence() *Sequence {
	return &Sequence{next: make(map[string]int)}
}

// NextID returns "<prefix>_000001", "<prefix>_000002", ...
func (s *Sequence) NextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[string]int)
	}
	s.next[prefix]++
	return fmt.Sprintf("%s_%06d", prefix, s.next[prefix])
}

const (
	PrefixSection  = "section"
	PrefixBlock    = "block"
	PrefixDocument = "report"
)
