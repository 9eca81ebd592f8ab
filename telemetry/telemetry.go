// Package telemetry defines Prometheus metrics and an OpenTelemetry
// span helper for the indexer and upload-pack RPCs, mirroring the
// pairing odvcencio/gothub carries for its own git-smart-http RPCs.
// pack.Index and server.Negotiator do not call into this package.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gitpack/giterr"
)

// Metrics is the set of Prometheus collectors this package defines.
// Construct one with NewMetrics and register it with a
// prometheus.Registerer of the caller's choosing.
type Metrics struct {
	ObjectsIndexed  prometheus.Counter
	DeltasResolved  prometheus.Counter
	PackBytesWritten prometheus.Counter
	NegotiationRounds prometheus.Histogram
	ErrorsByKind    *prometheus.CounterVec
	IndexDuration   prometheus.Histogram
}

// NewMetrics builds a Metrics set under the given namespace (e.g.
// "gitpack") without registering it; call Register to attach it to a
// registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ObjectsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "objects_indexed_total",
			Help: "Total objects written into a pack index, whole or resolved from delta.",
		}),
		DeltasResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deltas_resolved_total",
			Help: "Total delta objects resolved against a base during pass two.",
		}),
		PackBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pack_bytes_written_total",
			Help: "Total bytes written by the Pack Writer across all upload-pack responses.",
		}),
		NegotiationRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "negotiation_rounds",
			Help:    "Number of have/ack rounds per upload-pack negotiation.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		ErrorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total",
			Help: "Errors observed at RPC boundaries, labeled by error taxonomy kind.",
		}, []string{"kind"}),
		IndexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "index_duration_seconds",
			Help:    "Wall-clock time to index one incoming pack.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register attaches every collector in m to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ObjectsIndexed, m.DeltasResolved, m.PackBytesWritten,
		m.NegotiationRounds, m.ErrorsByKind, m.IndexDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveError records err against its giterr.Kind, a no-op if err is
// nil.
func (m *Metrics) ObserveError(err error) {
	if err == nil {
		return
	}
	m.ErrorsByKind.WithLabelValues(giterr.KindOf(err).String()).Inc()
}

// Tracer is the package-scoped tracer RPC entrypoints pull spans from.
var Tracer = otel.Tracer("gitpack")

// StartSpan starts a span for one RPC-scoped operation (e.g. "Index"
// or "UploadPack") and returns the derived context plus the span so
// the caller can End() it and record errors.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name)
}
