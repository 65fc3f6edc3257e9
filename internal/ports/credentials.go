package ports

import "context"

// TokenSource looks up the bearer token for collector requests. Returning an
// empty token is not an error; the sender substitutes a placeholder so a
// missing credential never blocks a send.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
