// Package metrics provides Prometheus instrumentation for backend calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChatExchanges counts chat round trips by outcome kind.
	ChatExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_exchanges_total",
			Help: "Chat round trips by outcome",
		},
		[]string{"outcome"},
	)

	// ChatDuration tracks chat round trip latency.
	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_exchange_duration_seconds",
			Help:    "Chat round trip duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	// BackendCalls counts auxiliary backend calls (theme, session end).
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Auxiliary backend calls by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
)

// ObserveChat records one chat exchange.
func ObserveChat(outcome string, d time.Duration) {
	ChatExchanges.WithLabelValues(outcome).Inc()
	ChatDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve exposes Router on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
