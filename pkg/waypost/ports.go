package waypost

import "github.com/nordlicht/waypost/internal/ports"

// Aliases for the dependency ports, so embedding projects can name the
// interfaces they inject through options.
type (
	Buffer        = ports.Buffer
	Sender        = ports.Sender
	Connectivity  = ports.Connectivity
	TokenSource   = ports.TokenSource
	Observability = ports.Observability
	Field         = ports.Field
)
