// Package metrics exposes Prometheus collectors for the advice cache and
// prefetcher. Every method is safe to call on a nil *Metrics so components can
// run without instrumentation.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slip"

// Lookup results for ObserveLookup.
const (
	LookupHit       = "hit"
	LookupMiss      = "miss"
	LookupCoalesced = "coalesced"
)

// Prefetch results for ObservePrefetch.
const (
	PrefetchStored  = "stored"
	PrefetchFailed  = "failed"
	PrefetchSkipped = "skipped"
)

// Metrics holds the collectors.
type Metrics struct {
	cacheLookups   *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	fetchRetries   prometheus.Counter
	prefetches     *prometheus.CounterVec
	prefetchClaims *prometheus.CounterVec
	swept          prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Advice cache lookups by result.",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Remote fetch attempts by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote fetch attempts, including rate limiting.",
			Buckets:   []float64{.05, .1, .2, .5, 1, 2, 5},
		}),
		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Fetch attempts scheduled after a retryable failure.",
		}),
		prefetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_total",
			Help:      "Background prefetches by result.",
		}, []string{"result"}),
		prefetchClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_claims_total",
			Help:      "Attempts to claim a prefetched advice by result.",
		}, []string{"result"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_swept_total",
			Help:      "Cache entries removed after their time-to-live.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.cacheLookups,
			m.fetches,
			m.fetchDuration,
			m.fetchRetries,
			m.prefetches,
			m.prefetchClaims,
			m.swept,
		)
	}
	return m
}

// ObserveLookup counts a cache lookup.
func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveFetch records one fetch attempt. outcome is "ok" or an error kind.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveRetry counts a scheduled retry.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.fetchRetries.Inc()
}

// ObservePrefetch counts a background prefetch.
func (m *Metrics) ObservePrefetch(result string) {
	if m == nil {
		return
	}
	m.prefetches.WithLabelValues(result).Inc()
}

// ObserveClaim counts a claim attempt.
func (m *Metrics) ObserveClaim(claimed bool) {
	if m == nil {
		return
	}
	result := "empty"
	if claimed {
		result = "claimed"
	}
	m.prefetchClaims.WithLabelValues(result).Inc()
}

// ObserveSwept counts entries removed by a sweep.
func (m *Metrics) ObserveSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// Serve exposes g on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, g)
}

func serve(ctx context.Context, ln net.Listener, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
