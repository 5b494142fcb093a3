// Package session tracks one stimulation run: wall-clock timing, pulse
// counting and the raw distance-to-target samples the grading layer
// consumes. The grading formulas themselves live outside this service.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Session is a single stimulation run. Safe for concurrent use by the
// HTTP handlers and the tick loop.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Target    string    `json:"target"`
	StartedAt time.Time `json:"started_at"`

	mu        sync.Mutex
	pulses    int
	distances []float64
}

// Stats summarizes the recorded distance samples.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
}

// New starts a session aimed at the given target landmark.
func New(target string) *Session {
	return &Session{
		ID:        uuid.New(),
		Target:    target,
		StartedAt: time.Now(),
	}
}

// RecordPulse counts one delivered pulse and returns the new total.
func (s *Session) RecordPulse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses++
	return s.pulses
}

// Pulses returns the pulse count so far.
func (s *Session) Pulses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses
}

// RecordDistance stores one distance-to-target sample, in the same unit
// as the proxy mesh.
func (s *Session) RecordDistance(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distances = append(s.distances, d)
}

// Elapsed returns the session duration so far.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// DistanceStats summarizes the samples recorded so far. The zero Stats is
// returned while no samples exist.
func (s *Session) DistanceStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.distances) == 0 {
		return Stats{}
	}

	min := s.distances[0]
	for _, d := range s.distances[1:] {
		if d < min {
			min = d
		}
	}
	st := Stats{
		Count: len(s.distances),
		Mean:  stat.Mean(s.distances, nil),
		Min:   min,
	}
	if len(s.distances) > 1 {
		st.StdDev = stat.StdDev(s.distances, nil)
	}
	return st
}
