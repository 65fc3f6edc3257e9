package domain

import "time"

// Sample is one raw positional reading from a location sensor.
type Sample struct {
	Latitude  float64
	Longitude float64
	// SpeedMPS is the instantaneous speed in meters per second; sensors
	// that cannot measure speed report 0.
	SpeedMPS float64
	// AccuracyMeters is the sensor's horizontal accuracy estimate; 0 when
	// the sensor does not report one.
	AccuracyMeters float64
	CapturedAt     time.Time
}

// Payload is the wire-ready projection of an accepted sample. It is created
// once at acceptance time and immutable afterwards; only payloads, never raw
// samples, are persisted or transmitted.
type Payload struct {
	EntityID   string    `json:"entityId"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Speed      float64   `json:"speed"`
	Accuracy   float64   `json:"accuracy"`
	CapturedAt time.Time `json:"capturedAt"`
}

// NewPayload projects a sample onto the collector wire format.
func NewPayload(entityID string, s Sample) Payload {
	return Payload{
		EntityID:   entityID,
		Lat:        s.Latitude,
		Lon:        s.Longitude,
		Speed:      s.SpeedMPS,
		Accuracy:   s.AccuracyMeters,
		CapturedAt: s.CapturedAt,
	}
}

// DeliveryState is the last position known to have been accepted by the
// collector. SentAt carries the capture time of that payload, not the wall
// clock of the send, so interval math always measures from the point the
// collector actually acknowledged.
type DeliveryState struct {
	Latitude  float64
	Longitude float64
	SentAt    time.Time
}
