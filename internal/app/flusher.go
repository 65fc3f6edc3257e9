package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nordlicht/waypost/internal/ports"
)

// Flusher drains the durable buffer through the sender whenever the
// collector is reachable. It replays payloads exactly as buffered, in FIFO
// order, without re-deciding and without touching the DeliveryState: a
// buffered payload was already accepted once, and updating the state from
// stale coordinates could move the reference point backwards.
type Flusher struct {
	buffer ports.Buffer
	sender ports.Sender
	conn   ports.Connectivity
	obs    ports.Observability

	// interval is the regular flush cadence; probeEvery is how often
	// connectivity is sampled so a disconnected-to-connected transition
	// triggers a flush without waiting out the full interval.
	interval   time.Duration
	probeEvery time.Duration
}

func NewFlusher(buf ports.Buffer, snd ports.Sender, conn ports.Connectivity, obs ports.Observability, interval, probeEvery time.Duration) *Flusher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if probeEvery <= 0 || probeEvery > interval {
		probeEvery = interval
	}
	return &Flusher{
		buffer:     buf,
		sender:     snd,
		conn:       conn,
		obs:        obs,
		interval:   interval,
		probeEvery: probeEvery,
	}
}

// Run blocks until the context is cancelled. An immediate flush is attempted
// at startup so payloads buffered before a restart drain as soon as
// connectivity allows.
func (f *Flusher) Run(ctx context.Context) error {
	wasConnected := f.conn.Connected(ctx)
	lastFlush := time.Time{}
	if wasConnected {
		lastFlush = time.Now()
		if err := f.FlushOnce(ctx); err != nil {
			f.obs.LogCritical("flush_failed", err)
		}
	}

	ticker := time.NewTicker(f.probeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			connected := f.conn.Connected(ctx)
			transitioned := connected && !wasConnected
			wasConnected = connected
			if !connected {
				continue
			}
			if !transitioned && time.Since(lastFlush) < f.interval {
				continue
			}
			lastFlush = time.Now()
			if err := f.FlushOnce(ctx); err != nil {
				f.obs.LogCritical("flush_failed", err)
			}
		}
	}
}

// FlushOnce drains the buffer strictly in FIFO order. Each payload is
// removed only after its own confirmed send; the first failure stops the
// drain so ordering survives a connectivity flap mid-flush. A fully drained
// buffer is explicitly cleared, which also compacts the backing store.
func (f *Flusher) FlushOnce(ctx context.Context) error {
	if !f.conn.Connected(ctx) {
		return nil
	}

	payloads, err := f.buffer.Drain()
	if err != nil {
		f.obs.IncCounter("waypost_buffer_errors_total", 1)
		return fmt.Errorf("drain buffer: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	sent := 0
	for _, p := range payloads {
		if err := f.sender.Send(ctx, p); err != nil {
			f.obs.LogError("flush_send_failed", err,
				ports.Field{Key: "remaining", Value: len(payloads) - sent})
			f.obs.IncCounter("waypost_send_failures_total", 1)
			break
		}
		if err := f.buffer.RemoveDelivered(1); err != nil {
			f.obs.IncCounter("waypost_buffer_errors_total", 1)
			return fmt.Errorf("remove delivered payload: %w", err)
		}
		sent++
		f.obs.IncCounter("waypost_payloads_flushed_total", 1)
	}

	if sent == len(payloads) {
		// Clear only when nothing was appended behind the drained
		// snapshot; a payload buffered mid-flush must not be wiped.
		if n, err := f.buffer.Count(); err == nil && n == 0 {
			if err := f.buffer.Clear(); err != nil {
				f.obs.IncCounter("waypost_buffer_errors_total", 1)
				return fmt.Errorf("clear drained buffer: %w", err)
			}
		}
		f.obs.LogInfo("flush_complete", ports.Field{Key: "payloads", Value: sent})
	}
	return nil
}
