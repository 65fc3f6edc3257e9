// Package waypost embeds the location reporting agent in any Go service:
// sample sources push position readings in, the agent decides which are
// worth sending, delivers them to the collector, and durably buffers
// everything that cannot be delivered until connectivity returns.
package waypost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nordlicht/waypost/internal/adapters/buffer"
	"github.com/nordlicht/waypost/internal/adapters/collector"
	"github.com/nordlicht/waypost/internal/adapters/observability"
	"github.com/nordlicht/waypost/internal/app"
	"github.com/nordlicht/waypost/internal/app/config"
	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/ports"
)

// Sample mirrors the internal sample type for external callers.
type Sample struct {
	Latitude       float64
	Longitude      float64
	SpeedMPS       float64
	AccuracyMeters float64
	CapturedAt     time.Time
}

// Payload is the wire form of an accepted sample, as stored in the queue.
type Payload = domain.Payload

// Result reports what happened to a submitted sample.
type Result = app.Result

const (
	Delivered = app.Delivered
	Buffered  = app.Buffered
	Skipped   = app.Skipped
)

// Option customizes the dependencies used by the agent.
type Option func(*overrides)

type overrides struct {
	buffer ports.Buffer
	sender ports.Sender
	conn   ports.Connectivity
	tokens ports.TokenSource
	obs    ports.Observability
}

// WithBuffer injects a custom durable queue implementation.
func WithBuffer(b ports.Buffer) Option {
	return func(o *overrides) { o.buffer = b }
}

// WithSender injects a custom transport to the collector.
func WithSender(s ports.Sender) Option {
	return func(o *overrides) { o.sender = s }
}

// WithConnectivity injects an external connectivity oracle (platform
// network monitor, modem state, etc.).
func WithConnectivity(c ports.Connectivity) Option {
	return func(o *overrides) { o.conn = c }
}

// WithTokenSource injects an external credential store.
func WithTokenSource(t ports.TokenSource) Option {
	return func(o *overrides) { o.tokens = t }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// Agent owns the decision engine, delivery pipeline, flush scheduler, and
// the metrics endpoint.
type Agent struct {
	cfg        *config.Config
	core       *app.Agent
	flusher    *app.Flusher
	buffer     ports.Buffer
	obs        ports.Observability
	db         *sql.DB
	metricsSrv *http.Server
}

// New bootstraps the default adapters: file-backed queue (or Postgres when
// a DSN is configured), HTTP sender, HEAD-probe connectivity, Prometheus
// observability. Options override any of them.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	obs := ov.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	entityID := cfg.Collector.EntityID
	if entityID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("generate entity id: %w", err)
		}
		entityID = id.String()
		obs.LogInfo("entity_id_generated", ports.Field{Key: "entity", Value: entityID})
	}

	onEvict := func(n int) {
		obs.IncCounter("waypost_buffer_evicted_total", float64(n))
	}
	maxLen := cfg.Buffer.MaxBuffered
	if maxLen < 0 {
		maxLen = 0 // cap disabled
	}

	var (
		buf ports.Buffer
		db  *sql.DB
		err error
	)
	switch {
	case ov.buffer != nil:
		buf = ov.buffer
	case cfg.Buffer.PostgresDSN != "":
		db, err = sql.Open("postgres", cfg.Buffer.PostgresDSN)
		if err != nil {
			return nil, err
		}
		pg := buffer.NewPGBuffer(db, cfg.Buffer.Table, maxLen, onEvict)
		if err := pg.Init(); err != nil {
			db.Close()
			return nil, err
		}
		buf = pg
	default:
		buf, err = buffer.NewFileBuffer(cfg.Buffer.Dir, maxLen, onEvict)
		if err != nil {
			return nil, err
		}
	}

	tokens := ov.tokens
	if tokens == nil {
		tokens = collector.StaticToken(cfg.Collector.Token)
	}

	snd := ov.sender
	if snd == nil {
		snd = collector.NewSender(cfg.Collector.BaseURL, cfg.Collector.Timeout, tokens)
	}

	conn := ov.conn
	if conn == nil {
		conn = collector.NewProbe(cfg.Collector.BaseURL)
	}

	return &Agent{
		cfg:     cfg,
		core:    app.NewAgent(entityID, cfg.Decision.DistanceFloorMeters, buf, snd, conn, obs),
		flusher: app.NewFlusher(buf, snd, conn, obs, cfg.Flush.Interval, cfg.Flush.ProbeInterval),
		buffer:  buf,
		obs:     obs,
		db:      db,
	}, nil
}

// Submit passes one sample through the decision engine and, when accepted,
// the delivery pipeline. Safe for concurrent use by multiple sources.
func (a *Agent) Submit(ctx context.Context, s Sample) (Result, error) {
	return a.core.Submit(ctx, s.toDomain())
}

// Share sends the sample immediately, bypassing the throttle. Used by the
// explicit "share my position now" control.
func (a *Agent) Share(ctx context.Context, s Sample) (Result, error) {
	return a.core.SubmitNow(ctx, s.toDomain())
}

// Consume submits every sample arriving on the channel until it closes or
// the context ends. Run one Consume per sample source; submissions from all
// of them are linearized by the core.
func (a *Agent) Consume(ctx context.Context, samples <-chan Sample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return nil
			}
			if _, err := a.Submit(ctx, s); err != nil {
				a.obs.LogCritical("submit_failed", err)
			}
		}
	}
}

// QueueCount reports how many payloads await delivery.
func (a *Agent) QueueCount() (int, error) {
	return a.buffer.Count()
}

// QueuedPayloads lists the pending queue in FIFO order without removing.
func (a *Agent) QueuedPayloads() ([]Payload, error) {
	return a.buffer.Drain()
}

// ClearQueue discards every pending payload.
func (a *Agent) ClearQueue() error {
	return a.buffer.Clear()
}

// Run starts the flush scheduler, the buffer gauge loop, and the metrics
// server, then blocks until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.flusher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := a.buffer.Count(); err == nil {
					a.obs.SetGauge("waypost_buffer_length", float64(n))
				}
			}
		}
	})

	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		a.metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

		g.Go(func() error {
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.metricsSrv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	return errors.Join(err, a.close())
}

func (a *Agent) close() error {
	var errs []error
	if c, ok := a.buffer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Sample) toDomain() domain.Sample {
	return domain.Sample{
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		SpeedMPS:       s.SpeedMPS,
		AccuracyMeters: s.AccuracyMeters,
		CapturedAt:     s.CapturedAt,
	}
}
