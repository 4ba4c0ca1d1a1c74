package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the ledger operations and their failures
var (
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aposta_ledger_operations_total",
		Help: "Ledger operations by kind and outcome",
	}, []string{"operation", "outcome"})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aposta_validation_failures_total",
		Help: "Validation failures by taxonomy code",
	}, []string{"code"})

	SummaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aposta_summary_cache_total",
		Help: "Summary cache lookups by result",
	}, []string{"result"})
)

type HealthFunc func(ctx context.Context) error

// StartServer runs a lightweight HTTP server for /metrics and /healthz on
// its own port, detached from the API listener
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
