package ports

import "github.com/nordlicht/waypost/internal/domain"

// Buffer is the durable FIFO queue of payloads pending delivery. A payload
// is in the buffer if and only if it has not been confirmed delivered.
// Implementations must survive process restart and must tolerate concurrent
// Append from the delivery path and Drain/RemoveDelivered from the flusher.
type Buffer interface {
	// Append adds a payload at the tail.
	Append(p domain.Payload) error
	// Drain returns all buffered payloads in FIFO order without removing them.
	Drain() ([]domain.Payload, error)
	// RemoveDelivered pops n payloads from the front after their confirmed sends.
	RemoveDelivered(n int) error
	// Clear discards everything.
	Clear() error
	Count() (int, error)
}
