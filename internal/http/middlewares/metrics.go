package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	loginsTotal        *prometheus.CounterVec
	registrationsTotal *prometheus.CounterVec
)

// RegisterMetrics registers the HTTP and federation metrics and returns
// the /metrics handler. Safe to call more than once.
func RegisterMetrics(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight HTTP requests",
		}, []string{"method", "path"})

		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "federation_logins_total",
			Help: "External login evaluations by provider and outcome",
		}, []string{"provider", "outcome"}) // outcome: challenge|registered|provisional|error

		registrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "federation_registrations_total",
			Help: "External registrations by provider and result",
		}, []string{"provider", "result"}) // result: created|conflict|error

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			loginsTotal, registrationsTotal,
		} {
			if err := registerCollector(reg, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithMetrics instruments requests with counters, latency and inflight
// gauges. A no-op until RegisterMetrics ran.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpRequestsTotal == nil {
				next.ServeHTTP(w, r)
				return
			}

			method := strings.ToUpper(r.Method)
			path := normalizePath(r.URL.Path)

			httpInflight.WithLabelValues(method, path).Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				httpInflight.WithLabelValues(method, path).Dec()
				httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
				httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return strings.SplitN(p, "?", 2)[0]
}

// RecordLogin counts one login evaluation.
func RecordLogin(provider, outcome string) {
	if loginsTotal != nil {
		loginsTotal.WithLabelValues(provider, outcome).Inc()
	}
}

// RecordRegistration counts one registration attempt.
func RecordRegistration(provider, result string) {
	if registrationsTotal != nil {
		registrationsTotal.WithLabelValues(provider, result).Inc()
	}
}
