// Package game holds the outcome rules for the wheel, blackjack and race
// tables. Every outcome is a pure function of the table and a single draw in
// [0, 1) so that results are reproducible from the draw alone.
package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

var (
	// ErrInvalidDraw is returned when a draw falls outside [0, 1).
	ErrInvalidDraw = errors.New("draw must be in [0, 1)")
	// ErrInvalidTable is returned for a malformed wheel or race field.
	ErrInvalidTable = errors.New("invalid game table")
)

// RandomSource supplies draws in [0, 1).
type RandomSource interface {
	Float64() float64
}

// SystemSource draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use.
type SystemSource struct{}

func (SystemSource) Float64() float64 {
	return rand.Float64()
}

// SequenceSource replays fixed draws in order and repeats the last one.
// Used by tests and the simulator.
type SequenceSource struct {
	mu    sync.Mutex
	draws []float64
	next  int
}

func NewSequenceSource(draws ...float64) *SequenceSource {
	return &SequenceSource{draws: draws}
}

func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.draws) == 0 {
		return 0
	}
	i := s.next
	if i >= len(s.draws) {
		i = len(s.draws) - 1
	} else {
		s.next++
	}
	return s.draws[i]
}

func checkDraw(draw float64) error {
	if draw < 0 || draw >= 1 || math.IsNaN(draw) {
		return fmt.Errorf("%w: got %v", ErrInvalidDraw, draw)
	}
	return nil
}
