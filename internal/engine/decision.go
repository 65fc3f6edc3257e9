// Package engine decides whether a sample is worth sending and owns the
// shared record of the last acknowledged delivery.
package engine

import (
	"sync"

	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/geo"
	"github.com/nordlicht/waypost/internal/policy"
)

// DefaultDistanceFloorMeters is the minimum movement between two reports.
const DefaultDistanceFloorMeters = 10.0

// ShouldSend reports whether the sample clears both throttle floors against
// the last acknowledged delivery. A nil state means no prior confirmed send,
// which always passes. The conjunction is deliberate: the time floor bounds
// the data rate, the distance floor bounds the spatial resolution.
func ShouldSend(s domain.Sample, state *domain.DeliveryState, distanceFloorMeters float64) bool {
	if state == nil {
		return true
	}

	d := geo.Distance(state.Latitude, state.Longitude, s.Latitude, s.Longitude)

	// Sensor clocks can regress; a negative elapsed time must not force a
	// spurious send, so clamp it to zero.
	elapsed := s.CapturedAt.Sub(state.SentAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return d >= distanceFloorMeters && elapsed >= policy.MinimumInterval(s.SpeedMPS)
}

// Tracker holds the one logical DeliveryState instance for the process.
// Reads and writes are internally synchronized; linearizing the full
// decide-then-deliver sequence across sample sources is the caller's job.
type Tracker struct {
	mu    sync.Mutex
	state *domain.DeliveryState
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Snapshot returns a copy of the current state, or nil before the first
// confirmed delivery.
func (t *Tracker) Snapshot() *domain.DeliveryState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil
	}
	s := *t.state
	return &s
}

// MarkDelivered records a confirmed delivery. The state is taken from the
// payload's own coordinates and capture time, never from the send's wall
// clock, so later decisions measure from the acknowledged point.
func (t *Tracker) MarkDelivered(p domain.Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = &domain.DeliveryState{
		Latitude:  p.Lat,
		Longitude: p.Lon,
		SentAt:    p.CapturedAt,
	}
}
