// Package metrics defines the Prometheus metrics exported by filevault and
// decorators that record them around the gateway and orphan ledger.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sagarc03/filevault"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec   // filevault_http_requests_total{route,status}
	HTTPDuration    *prometheus.HistogramVec // filevault_http_request_duration_seconds{route}
	GatewayOps      *prometheus.CounterVec   // filevault_gateway_operations_total{operation,result}
	OrphansRecorded prometheus.Counter       // filevault_orphans_recorded_total
	OrphansSwept    prometheus.Counter       // filevault_orphans_swept_total
	BlobBytesIn     prometheus.Counter       // filevault_blob_bytes_uploaded_total
	BlobBytesOut    prometheus.Counter       // filevault_blob_bytes_downloaded_total
}

// New registers the metrics with registry. A nil registry uses
// prometheus.DefaultRegisterer. Each registry may be passed only once.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filevault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		GatewayOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_gateway_operations_total",
			Help: "Object gateway operations by operation and result",
		}, []string{"operation", "result"}),

		OrphansRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "filevault_orphans_recorded_total",
			Help: "Objects recorded for reconciliation after a failed delete",
		}),

		OrphansSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "filevault_orphans_swept_total",
			Help: "Orphaned objects removed by sweep",
		}),

		BlobBytesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "filevault_blob_bytes_uploaded_total",
			Help: "Bytes written through the local blob route",
		}),

		BlobBytesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "filevault_blob_bytes_downloaded_total",
			Help: "Bytes served through the local blob route",
		}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type gateway struct {
	next filevault.ObjectGateway
	m    *Metrics
}

// InstrumentGateway counts every call on next by operation and result.
func InstrumentGateway(next filevault.ObjectGateway, m *Metrics) filevault.ObjectGateway {
	return &gateway{next: next, m: m}
}

func (g *gateway) IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	u, err := g.next.IssueUploadTarget(ctx, key, contentType, ttl)
	g.m.GatewayOps.WithLabelValues("issue_upload", result(err)).Inc()
	return u, err
}

func (g *gateway) IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := g.next.IssueDownloadTarget(ctx, key, ttl)
	g.m.GatewayOps.WithLabelValues("issue_download", result(err)).Inc()
	return u, err
}

func (g *gateway) DeleteObject(ctx context.Context, key string) error {
	err := g.next.DeleteObject(ctx, key)
	g.m.GatewayOps.WithLabelValues("delete", result(err)).Inc()
	return err
}

type ledger struct {
	next filevault.OrphanLedger
	m    *Metrics
}

// InstrumentLedger counts orphans recorded and resolved through next.
func InstrumentLedger(next filevault.OrphanLedger, m *Metrics) filevault.OrphanLedger {
	return &ledger{next: next, m: m}
}

func (l *ledger) RecordOrphan(ctx context.Context, o filevault.Orphan) error {
	if err := l.next.RecordOrphan(ctx, o); err != nil {
		return err
	}
	l.m.OrphansRecorded.Inc()
	return nil
}

func (l *ledger) PendingOrphans(ctx context.Context, limit int) ([]filevault.Orphan, error) {
	return l.next.PendingOrphans(ctx, limit)
}

func (l *ledger) ResolveOrphan(ctx context.Context, storageKey string) error {
	if err := l.next.ResolveOrphan(ctx, storageKey); err != nil {
		return err
	}
	l.m.OrphansSwept.Inc()
	return nil
}
