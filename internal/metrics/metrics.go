// Package metrics exposes scan progress on a Prometheus /metrics
// endpoint, adapted from the teacher's bare promhttp exporter into a
// registered set of scan-specific collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snrtherock/subsearch/internal/dispatcher"
	"github.com/snrtherock/subsearch/internal/listener"
)

// Exporter owns the registry and the collectors a scan updates.
type Exporter struct {
	registry *prometheus.Registry

	scansIssued          prometheus.Counter
	resolversBlacklisted prometheus.Counter
	pendingSubdomains    prometheus.Gauge
	recordsFound         prometheus.Counter
}

// New builds an exporter with its own registry, so a caller can run
// several scans in one process without metric name collisions.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	return &Exporter{
		registry: reg,
		scansIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "subsearch_scans_issued_total",
			Help: "Total number of scan attempts issued to scanners.",
		}),
		resolversBlacklisted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "subsearch_resolvers_blacklisted_total",
			Help: "Total number of resolvers blacklisted after repeated timeouts.",
		}),
		pendingSubdomains: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "subsearch_pending_subdomains",
			Help: "Number of subdomains still waiting to be scanned.",
		}),
		recordsFound: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "subsearch_records_found_total",
			Help: "Total number of DNS records surfaced after filtering and dedup.",
		}),
	}
}

// Serve starts the HTTP exporter on addr (e.g. ":2112") and blocks until
// ctx is cancelled or the server errors.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Sink adapts Exporter to internal/listener.Sink, incrementing
// collectors from the print calls the dispatcher already makes.
type Sink struct {
	exporter *Exporter
}

// NewSink wraps exporter as a listener.Sink, seeded with the scan's
// total subdomain count.
func NewSink(exporter *Exporter, total int) *Sink {
	exporter.pendingSubdomains.Set(float64(total))
	return &Sink{exporter: exporter}
}

var _ listener.Sink = (*Sink)(nil)

func (s *Sink) PrintHeader(string)          {}
func (s *Sink) PrintConfig(string)          {}
func (s *Sink) PrintTarget(string)          {}
func (s *Sink) PrintStatus(string)          {}
func (s *Sink) PrintSuccess(string)         {}
func (s *Sink) PrintInfo(string)            {}
func (s *Sink) PrintInfoDuringScan(msg string) {
	if isBlacklistMessage(msg) {
		s.exporter.resolversBlacklisted.Inc()
	}
}
func (s *Sink) PrintWarning(string)              {}
func (s *Sink) PrintError(string)                {}
func (s *Sink) PrintErrorWithoutTime(string)     {}
func (s *Sink) PrintTaskCompleted(string)        {}
func (s *Sink) PrintTaskFailed(string)           {}

func (s *Sink) PrintLastScan(subdomain string, issued, total int) {
	s.exporter.scansIssued.Inc()
	pending := total - issued
	if pending < 0 {
		pending = 0
	}
	s.exporter.pendingSubdomains.Set(float64(pending))
}

func (s *Sink) PrintRecords(records []dispatcher.Record) {
	s.exporter.recordsFound.Add(float64(len(records)))
}

func (s *Sink) PrintRecordsDuringScan(records []dispatcher.Record) {
	s.PrintRecords(records)
}

func (s *Sink) PrintPausingThreads()      {}
func (s *Sink) PrintPauseOptions()        {}
func (s *Sink) PrintInvalidPauseOptions() {}

func (s *Sink) Flush() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

// isBlacklistMessage distinguishes the dispatcher's two
// PrintInfoDuringScan wordings (blacklist vs. timeout-increase) without
// adding a dedicated listener method for the former.
func isBlacklistMessage(msg string) bool {
	return strings.Contains(msg, "Blacklisting")
}
