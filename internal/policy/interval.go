// Package policy maps instantaneous speed to the minimum interval between
// position reports. Faster movement earns a shorter interval so the reported
// track keeps its spatial resolution without flooding the collector while
// the entity is parked.
package policy

import (
	"math"
	"time"
)

// Speed band lower bounds, in meters per second. Bands are half-open on the
// lower side: a speed equal to a bound falls into that band.
const (
	SpeedWalking   = 0.5
	SpeedCycling   = 2.0
	SpeedVehicular = 6.0
)

const (
	intervalStationary = 15 * time.Minute
	intervalWalking    = 5 * time.Minute
	intervalCycling    = 2 * time.Minute
	intervalVehicular  = 1 * time.Minute
)

// MinimumInterval returns the minimum time between reports for the given
// speed. Negative or NaN speeds are treated as stationary. The result is
// monotonically non-increasing in speed.
func MinimumInterval(speedMPS float64) time.Duration {
	if math.IsNaN(speedMPS) || speedMPS < 0 {
		speedMPS = 0
	}
	switch {
	case speedMPS >= SpeedVehicular:
		return intervalVehicular
	case speedMPS >= SpeedCycling:
		return intervalCycling
	case speedMPS >= SpeedWalking:
		return intervalWalking
	default:
		return intervalStationary
	}
}
