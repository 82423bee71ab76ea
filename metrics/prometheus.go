package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replaycast"

// counterSpec binds a Prometheus counter name to a Snapshot field.
type counterSpec struct {
	name string
	help string
	get  func(Snapshot) int64
}

var counterSpecs = []counterSpec{
	{"arrivals_seen_total", "Filesystem events for replay files", func(s Snapshot) int64 { return s.ArrivalsSeen }},
	{"arrivals_ignored_total", "Filesystem events dropped by the extension filter", func(s Snapshot) int64 { return s.ArrivalsIgnored }},
	{"arrivals_superseded_total", "Pending arrivals replaced by a newer event", func(s Snapshot) int64 { return s.ArrivalsSuperseded }},
	{"stabilize_failures_total", "Stabilization waits abandoned", func(s Snapshot) int64 { return s.StabilizeFailures }},
	{"parse_attempts_total", "Decoder invocations", func(s Snapshot) int64 { return s.ParseAttempts }},
	{"parse_failures_total", "Failed decoder invocations", func(s Snapshot) int64 { return s.ParseFailures }},
	{"parse_degraded_total", "Replays rendered without chat after retries ran out", func(s Snapshot) int64 { return s.ParseDegraded }},
	{"replays_processed_total", "Replays that reached the render stage", func(s Snapshot) int64 { return s.ReplaysProcessed }},
	{"render_failures_total", "Failed image renders", func(s Snapshot) int64 { return s.RenderFailures }},
	{"delivery_success_total", "Successful deliveries", func(s Snapshot) int64 { return s.DeliverySuccess }},
	{"delivery_failure_total", "Failed deliveries", func(s Snapshot) int64 { return s.DeliveryFailure }},
	{"archive_success_total", "Artifacts archived", func(s Snapshot) int64 { return s.ArchiveSuccess }},
	{"archive_failure_total", "Failed archive writes", func(s Snapshot) int64 { return s.ArchiveFailure }},
}

// Register exposes c's counters on reg. Values are read from a fresh
// Snapshot at scrape time.
func Register(reg prometheus.Registerer, c *Collector) error {
	for _, spec := range counterSpecs {
		get := spec.get
		fn := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      spec.name,
			Help:      spec.help,
		}, func() float64 { return float64(get(c.Snapshot())) })
		if err := reg.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding c's counters plus the Go runtime
// and process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	if err := Register(reg, c); err != nil {
		return nil, err
	}
	return reg, nil
}

// Serve exposes reg on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
