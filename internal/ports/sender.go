package ports

import (
	"context"

	"github.com/nordlicht/waypost/internal/domain"
)

// Sender transmits a single payload to the collector. A nil error means the
// collector acknowledged the payload; any other outcome is a failure and the
// payload must be assumed undelivered.
type Sender interface {
	Send(ctx context.Context, p domain.Payload) error
}
