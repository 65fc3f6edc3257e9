package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nordlicht/waypost/internal/ports"
)

// PromObs counts delivery outcomes in Prometheus and logs through slog, so
// buffered/delivered/failed rates are externally verifiable without failure
// reporting ever blocking the delivery path.
type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_payloads_delivered_total",
		Help: "Payloads acknowledged by the collector on the direct path.",
	})
	buffered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_payloads_buffered_total",
		Help: "Payloads diverted to the durable queue.",
	})
	sendFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_send_failures_total",
		Help: "Transport or collector failures on send attempts.",
	})
	flushed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_payloads_flushed_total",
		Help: "Buffered payloads delivered by the flush scheduler.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_samples_skipped_total",
		Help: "Samples rejected by the distance/interval throttle.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_buffer_evicted_total",
		Help: "Oldest payloads dropped by the buffer cap.",
	})
	bufferErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waypost_buffer_errors_total",
		Help: "Durable queue read/write failures. These risk data loss.",
	})
	bufferLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waypost_buffer_length",
		Help: "Payloads currently awaiting delivery.",
	})
	sendLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "waypost_send_latency_seconds",
		Help:    "Latency of acknowledged collector sends.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	prometheus.MustRegister(delivered, buffered, sendFailures, flushed, skipped, evicted, bufferErrors, bufferLen, sendLatency)

	return &PromObs{
		log: slog.Default(),
		counters: map[string]prometheus.Counter{
			"waypost_payloads_delivered_total": delivered,
			"waypost_payloads_buffered_total":  buffered,
			"waypost_send_failures_total":      sendFailures,
			"waypost_payloads_flushed_total":   flushed,
			"waypost_samples_skipped_total":    skipped,
			"waypost_buffer_evicted_total":     evicted,
			"waypost_buffer_errors_total":      bufferErrors,
		},
		gauges: map[string]prometheus.Gauge{
			"waypost_buffer_length": bufferLen,
		},
		histos: map[string]prometheus.Observer{
			"waypost_send_latency_seconds": sendLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
