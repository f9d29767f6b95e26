// Package server exposes the poller's metrics and status over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mascanio/pool-metrics/poller"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type StatusSource interface {
	State() poller.State
	Stats() poller.Stats
}

type status struct {
	Sensor string       `json:"sensor"`
	State  string       `json:"state"`
	Stats  poller.Stats `json:"stats"`
}

// NewRouter serves /metrics from g, and /healthz and /status from src.
// Requests are logged to accessLog in combined log format.
func NewRouter(sensor string, src StatusSource, g prometheus.Gatherer, accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if src.State() == poller.Stopped {
			http.Error(w, "stopped", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok\n")
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status{
			Sensor: sensor,
			State:  src.State().String(),
			Stats:  src.Stats(),
		})
	}).Methods(http.MethodGet)
	return handlers.CombinedLoggingHandler(accessLog, r)
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("status server shutdown")
		}
	}()
	log.WithField("addr", addr).Info("Serving /metrics, /healthz and /status")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
