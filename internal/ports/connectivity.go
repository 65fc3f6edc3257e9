package ports

import "context"

// Connectivity answers whether the collector is currently reachable.
type Connectivity interface {
	Connected(ctx context.Context) bool
}
