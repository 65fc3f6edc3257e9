// Package app wires the decision engine, delivery pipeline, and flush
// scheduler around the buffer, sender, and connectivity ports.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/engine"
	"github.com/nordlicht/waypost/internal/ports"
)

// Result is the outcome of submitting one sample.
type Result int

const (
	// Delivered means the collector acknowledged the payload.
	Delivered Result = iota
	// Buffered means the payload is in the durable queue awaiting flush.
	Buffered
	// Skipped means the throttle rejected the sample; nothing was sent.
	Skipped
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Buffered:
		return "buffered"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Agent runs the decide-then-deliver sequence for every incoming sample.
// One mutex serializes the whole sequence so that two sample sources racing
// on the same DeliveryState cannot both pass the throttle against a stale
// last-sent position.
type Agent struct {
	mu sync.Mutex

	entityID      string
	distanceFloor float64
	tracker       *engine.Tracker
	buffer        ports.Buffer
	sender        ports.Sender
	conn          ports.Connectivity
	obs           ports.Observability
}

func NewAgent(entityID string, distanceFloorMeters float64, buf ports.Buffer, snd ports.Sender, conn ports.Connectivity, obs ports.Observability) *Agent {
	return &Agent{
		entityID:      entityID,
		distanceFloor: distanceFloorMeters,
		tracker:       engine.NewTracker(),
		buffer:        buf,
		sender:        snd,
		conn:          conn,
		obs:           obs,
	}
}

// Submit runs one sample through the decision engine and, when accepted,
// through the delivery pipeline. The returned error is non-nil only for
// persistence failures; connectivity and transport failures degrade into
// Buffered.
func (a *Agent) Submit(ctx context.Context, s domain.Sample) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !engine.ShouldSend(s, a.tracker.Snapshot(), a.distanceFloor) {
		a.obs.IncCounter("waypost_samples_skipped_total", 1)
		return Skipped, nil
	}
	return a.deliverLocked(ctx, domain.NewPayload(a.entityID, s))
}

// SubmitNow bypasses the throttle, for explicit one-shot shares requested by
// the user. The payload still flows through the normal delivery pipeline.
func (a *Agent) SubmitNow(ctx context.Context, s domain.Sample) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deliverLocked(ctx, domain.NewPayload(a.entityID, s))
}

// LastDelivered exposes the delivery state for inspection.
func (a *Agent) LastDelivered() *domain.DeliveryState {
	return a.tracker.Snapshot()
}

// deliverLocked attempts one transmission; on no connectivity or any send
// failure the payload lands in the durable buffer. Retries belong to the
// flush scheduler, never to this path.
func (a *Agent) deliverLocked(ctx context.Context, p domain.Payload) (Result, error) {
	if !a.conn.Connected(ctx) {
		return a.bufferPayload(p)
	}

	start := time.Now()
	if err := a.sender.Send(ctx, p); err != nil {
		a.obs.LogError("send_failed", err,
			ports.Field{Key: "entity", Value: p.EntityID})
		a.obs.IncCounter("waypost_send_failures_total", 1)
		return a.bufferPayload(p)
	}

	a.obs.ObserveLatency("waypost_send_latency_seconds", time.Since(start).Seconds())
	a.obs.IncCounter("waypost_payloads_delivered_total", 1)
	a.tracker.MarkDelivered(p)
	return Delivered, nil
}

// bufferPayload appends to the durable queue. A failed append is the one
// error class that surfaces: silently dropping the payload would be data
// loss, so it is logged loudly and returned.
func (a *Agent) bufferPayload(p domain.Payload) (Result, error) {
	if err := a.buffer.Append(p); err != nil {
		a.obs.LogCritical("buffer_append_failed", err)
		a.obs.IncCounter("waypost_buffer_errors_total", 1)
		return Buffered, fmt.Errorf("buffer payload: %w", err)
	}
	a.obs.IncCounter("waypost_payloads_buffered_total", 1)
	return Buffered, nil
}
