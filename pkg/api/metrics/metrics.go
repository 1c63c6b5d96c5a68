// Package metrics serves minigit's Prometheus metrics over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Path   string
	Handle http.HandlerFunc
}

// New is a factory function creating a new metrics Handler for gatherer.
// A nil gatherer serves the default registry.
func New(gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	return &Handler{
		Path:   "/metrics",
		Handle: handler.ServeHTTP,
	}
}
