package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	recomputes   *prometheus.CounterVec
	recomputeDur *prometheus.HistogramVec
	cohortSize   prometheus.Histogram
	scoreWrites  prometheus.Counter
	requests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "recomputes_total",
			Help:      "Grade recomputations by policy and outcome.",
		}, []string{"policy", "outcome"}),
		recomputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gradebook",
			Name:      "recompute_duration_seconds",
			Help:      "Time to load a cohort and grade it.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
		cohortSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gradebook",
			Name:      "cohort_students",
			Help:      "Students graded per recomputation.",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500},
		}),
		scoreWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "score_writes_total",
			Help:      "Score cells written.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
	}
	m.reg.MustRegister(
		m.recomputes, m.recomputeDur, m.cohortSize, m.scoreWrites, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRecompute(policy grading.Policy, students int, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p := string(policy)
	m.recomputes.WithLabelValues(p, outcome).Inc()
	m.recomputeDur.WithLabelValues(p).Observe(elapsed.Seconds())
	m.cohortSize.Observe(float64(students))
}

func (m *Metrics) ObserveScoreWrite() { m.scoreWrites.Inc() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware counts requests by chi route pattern, which keeps ids out of
// the label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
	})
}
