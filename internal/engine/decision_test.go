package engine

import (
	"testing"
	"time"

	"github.com/nordlicht/waypost/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func stateAtOrigin() *domain.DeliveryState {
	return &domain.DeliveryState{Latitude: 0, Longitude: 0, SentAt: t0}
}

func TestShouldSendFirstSample(t *testing.T) {
	s := domain.Sample{Latitude: 48.85, Longitude: 2.35, SpeedMPS: 0, CapturedAt: t0}
	if !ShouldSend(s, nil, DefaultDistanceFloorMeters) {
		t.Fatal("first sample must always be sent")
	}
}

func TestShouldSendDistanceFloorNotMet(t *testing.T) {
	// ~5.5 m east, 20 minutes later: time floor met, distance floor not.
	s := domain.Sample{Longitude: 0.00005, CapturedAt: t0.Add(20 * time.Minute)}
	if ShouldSend(s, stateAtOrigin(), DefaultDistanceFloorMeters) {
		t.Fatal("sample within distance floor should be skipped")
	}
}

func TestShouldSendTimeFloorNotMet(t *testing.T) {
	// ~22 m east after one minute, stationary: needs 15 minutes.
	s := domain.Sample{Longitude: 0.0002, CapturedAt: t0.Add(time.Minute)}
	if ShouldSend(s, stateAtOrigin(), DefaultDistanceFloorMeters) {
		t.Fatal("sample within stationary interval should be skipped")
	}
}

func TestShouldSendBothFloorsMet(t *testing.T) {
	s := domain.Sample{Longitude: 0.0002, CapturedAt: t0.Add(16 * time.Minute)}
	if !ShouldSend(s, stateAtOrigin(), DefaultDistanceFloorMeters) {
		t.Fatal("sample past both floors should be sent")
	}
}

func TestShouldSendFasterSpeedShortensInterval(t *testing.T) {
	// Two minutes is not enough when stationary but plenty at vehicular speed.
	s := domain.Sample{Longitude: 0.0002, SpeedMPS: 8, CapturedAt: t0.Add(2 * time.Minute)}
	if !ShouldSend(s, stateAtOrigin(), DefaultDistanceFloorMeters) {
		t.Fatal("vehicular sample past one minute should be sent")
	}
}

func TestShouldSendClampsClockRegression(t *testing.T) {
	// Sample captured before the last send. Elapsed clamps to zero, so even
	// a big move at high speed stays below the one minute floor.
	s := domain.Sample{Longitude: 0.01, SpeedMPS: 20, CapturedAt: t0.Add(-time.Hour)}
	if ShouldSend(s, stateAtOrigin(), DefaultDistanceFloorMeters) {
		t.Fatal("regressed sensor clock must not force a send")
	}
}

func TestTrackerSnapshotAndMark(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot() != nil {
		t.Fatal("fresh tracker should have no state")
	}

	p := domain.Payload{EntityID: "e", Lat: 1, Lon: 2, CapturedAt: t0}
	tr.MarkDelivered(p)

	got := tr.Snapshot()
	if got == nil || got.Latitude != 1 || got.Longitude != 2 || !got.SentAt.Equal(t0) {
		t.Fatalf("unexpected state after mark: %+v", got)
	}

	// Snapshot is a copy; mutating it must not leak back.
	got.Latitude = 99
	if tr.Snapshot().Latitude != 1 {
		t.Fatal("snapshot mutation leaked into tracker")
	}
}
