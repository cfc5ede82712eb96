// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PlayersOnline is the number of seated players.
	PlayersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rs225_players_online",
		Help: "Number of seated players.",
	})

	// TickDuration observes wall-clock seconds spent per game tick.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rs225_tick_duration_seconds",
		Help:    "Wall-clock time spent per game tick.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	// TicksTotal counts completed game ticks.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_ticks_total",
		Help: "Completed game ticks.",
	})

	// SlowTicksTotal counts ticks that exceeded the tick budget.
	SlowTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_slow_ticks_total",
		Help: "Ticks that overran the tick interval.",
	})

	// PacketsIn counts dispatched client packets.
	PacketsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_packets_in_total",
		Help: "Client packets dispatched to handlers.",
	})

	// PacketsOut counts frames queued to clients.
	PacketsOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_packets_out_total",
		Help: "Frames queued for delivery to clients.",
	})

	// BytesIn counts bytes received from clients.
	BytesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_bytes_in_total",
		Help: "Bytes received from clients.",
	})

	// BytesOut counts bytes queued to clients.
	BytesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_bytes_out_total",
		Help: "Bytes queued for delivery to clients.",
	})

	// LoginsTotal counts accepted logins.
	LoginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs225_logins_total",
		Help: "Accepted logins.",
	})
)

// Serve runs the /metrics endpoint until ctx is done. A zero address
// disables the endpoint.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
