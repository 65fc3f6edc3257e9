package policy

import (
	"math"
	"testing"
	"time"
)

func TestMinimumIntervalBands(t *testing.T) {
	cases := []struct {
		speed float64
		want  time.Duration
	}{
		{0, 15 * time.Minute},
		{0.49, 15 * time.Minute},
		{0.5, 5 * time.Minute},
		{1.4, 5 * time.Minute},
		{2.0, 2 * time.Minute},
		{5.9, 2 * time.Minute},
		{6.0, time.Minute},
		{33.3, time.Minute},
	}
	for _, tc := range cases {
		if got := MinimumInterval(tc.speed); got != tc.want {
			t.Fatalf("MinimumInterval(%f) = %s, want %s", tc.speed, got, tc.want)
		}
	}
}

func TestMinimumIntervalDegenerateSpeeds(t *testing.T) {
	if got := MinimumInterval(-3); got != 15*time.Minute {
		t.Fatalf("negative speed should be stationary, got %s", got)
	}
	if got := MinimumInterval(math.NaN()); got != 15*time.Minute {
		t.Fatalf("NaN speed should be stationary, got %s", got)
	}
}

func TestMinimumIntervalNonIncreasing(t *testing.T) {
	prev := MinimumInterval(0)
	for s := 0.0; s <= 40; s += 0.1 {
		cur := MinimumInterval(s)
		if cur > prev {
			t.Fatalf("interval increased from %s to %s at speed %f", prev, cur, s)
		}
		prev = cur
	}
}
