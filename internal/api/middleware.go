package stamps

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stamps_http_requests_total",
			Help: "Запросы к API карт лояльности",
		},
		[]string{"route", "method", "status"},
	)

	requestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stamps_http_errors_total",
			Help: "Ответы API со статусом 4xx и 5xx",
		},
		[]string{"route", "method", "status"},
	)

	requestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stamps_http_request_duration_seconds",
			Help:    "Время обработки запроса к API",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"route", "method"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// шаблон маршрута вместо пути, чтобы id не раздували метки
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Метрики запросов; ответы 5xx дополнительно пишутся в лог
func requestMetrics(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{w, http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeOf(r)
			status := strconv.Itoa(rec.status)
			elapsed := time.Since(start)

			requestsTotal.WithLabelValues(route, r.Method, status).Inc()
			requestSeconds.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
			if rec.status < http.StatusBadRequest {
				return
			}
			requestsRejected.WithLabelValues(route, r.Method, status).Inc()
			if rec.status >= http.StatusInternalServerError {
				logger.Warn("request failed",
					zap.String("route", route),
					zap.String("method", r.Method),
					zap.Int("status", rec.status),
					zap.Duration("elapsed", elapsed),
				)
			}
		})
	}
}
