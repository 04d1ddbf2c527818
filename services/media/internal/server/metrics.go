package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediahub/internal/util"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediahub_http_requests_total",
		Help: "HTTP requests served by the media API.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediahub_http_request_duration_seconds",
		Help:    "Latency of media API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := util.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		route := routeLabel(r.URL.Path)
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status())).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeLabel collapses ids and file names so label cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case path == mediaPrefix || path == mediaPrefix+"/":
		return mediaPrefix
	case path == mediaPrefix+"/export/videos":
		return path
	case path == mediaPrefix+"/import/videos":
		return path
	case strings.HasPrefix(path, mediaPrefix+"/"):
		return mediaPrefix + "/:id"
	case strings.HasPrefix(path, uploadsPrefix):
		return uploadsPrefix + ":name"
	case path == "/healthz", path == "/metrics":
		return path
	}
	return "other"
}
