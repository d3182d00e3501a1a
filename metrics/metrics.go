// Package metrics exposes training progress as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "knight"

// Recorder holds the training metrics on a registry of its own, so several
// recorders can live in one process.
type Recorder struct {
	registry *prometheus.Registry

	Episodes  prometheus.Counter
	Successes prometheus.Counter
	TableSize prometheus.Gauge
	Coverage  prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Episodes played",
		}),
		Successes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "covered_episodes_total",
			Help:      "Episodes that visited every cell",
		}),
		TableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_table_states",
			Help:      "States stored in the value table",
		}),
		Coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_coverage_ratio",
			Help:      "Fraction of cells visited at the end of an episode",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
	}
	r.registry.MustRegister(r.Episodes, r.Successes, r.TableSize, r.Coverage)
	return r
}

// ObserveEpisode records one finished episode
func (r *Recorder) ObserveEpisode(visited, cells int, covered bool, tableSize int) {
	r.Episodes.Inc()
	if covered {
		r.Successes.Inc()
	}
	r.TableSize.Set(float64(tableSize))
	if cells > 0 {
		r.Coverage.Observe(float64(visited) / float64(cells))
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
