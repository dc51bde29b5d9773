package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"job-portal/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RequestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_failures_total",
			Help: "Requests answered by the error translator, by failure kind",
		},
		[]string{"kind"},
	)

	DatabaseUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_up",
			Help: "1 when the document database connection is established",
		},
	)

	UsersRegistered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of registered accounts",
		},
		[]string{"role"},
	)

	JobsPosted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_posted_total",
			Help: "Total number of job postings created",
		},
	)

	Applications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_total",
			Help: "Job application events by resulting status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RequestFailures)
	prometheus.MustRegister(DatabaseUp)
	prometheus.MustRegister(UsersRegistered)
	prometheus.MustRegister(JobsPosted)
	prometheus.MustRegister(Applications)
}

// Server exposes /metrics on its own port, away from the public API.
type Server struct {
	httpServer *http.Server
}

func NewServer(port string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve blocks on ln until Shutdown. The caller binds ln so a busy port is
// reported before the API starts accepting requests.
func (s *Server) Serve(ln net.Listener) {
	logger.WithField("addr", ln.Addr().String()).Info("Starting metrics server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("Metrics server stopped")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Middleware records request count and latency keyed by the matched route
// template, so path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordFailure(kind string) {
	RequestFailures.WithLabelValues(kind).Inc()
}

func SetDatabaseUp(up bool) {
	if up {
		DatabaseUp.Set(1)
		return
	}
	DatabaseUp.Set(0)
}

func RecordRegistration(role string) {
	UsersRegistered.WithLabelValues(role).Inc()
}

func RecordJobPosted() {
	JobsPosted.Inc()
}

func RecordApplication(status string) {
	Applications.WithLabelValues(status).Inc()
}
