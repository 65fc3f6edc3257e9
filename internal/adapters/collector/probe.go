package collector

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nordlicht/waypost/internal/ports"
)

const probeTimeout = 3 * time.Second

// Probe is the default connectivity oracle: a short HEAD request against the
// collector base URL. Any HTTP response counts as connected; reachability is
// the question here, collector health is judged per send.
type Probe struct {
	client *http.Client
	url    string
}

func NewProbe(baseURL string) *Probe {
	return &Probe{
		client: &http.Client{Timeout: probeTimeout},
		url:    baseURL,
	}
}

func (p *Probe) Connected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return true
}

var _ ports.Connectivity = (*Probe)(nil)
