// Package collector talks to the remote location collector over HTTP.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/ports"
)

const (
	updatePath     = "/api/location/update"
	DefaultTimeout = 10 * time.Second

	// placeholderToken is sent when no credential is available, so a
	// missing token never blocks delivery.
	placeholderToken = "anonymous"
)

// Sender posts payloads to <base>/api/location/update. Any 2xx response is a
// confirmed delivery; everything else is a failure.
type Sender struct {
	client  *http.Client
	baseURL string
	tokens  ports.TokenSource
}

func NewSender(baseURL string, timeout time.Duration, tokens ports.TokenSource) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

func (s *Sender) Send(ctx context.Context, p domain.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+updatePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.bearerToken(ctx))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send payload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) bearerToken(ctx context.Context) string {
	if s.tokens == nil {
		return placeholderToken
	}
	token, err := s.tokens.Token(ctx)
	if err != nil || token == "" {
		return placeholderToken
	}
	return token
}

var _ ports.Sender = (*Sender)(nil)

// StaticToken is a TokenSource holding a fixed credential. The empty string
// is a valid value and resolves to the placeholder at send time.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

var _ ports.TokenSource = StaticToken("")
