package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/config"
	"github.com/ericksa/contractiq/internal/metrics"
)

// statusWriter captures the response status and, when stamping is on,
// sets the processing time header just before the first byte goes out.
type statusWriter struct {
	http.ResponseWriter
	status int
	start  time.Time
	stamp  bool
	wrote  bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wrote {
		sw.wrote = true
		sw.status = code
		if sw.stamp {
			sw.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(sw.start).Seconds(), 'f', -1, 64))
		}
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wrote {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the wrapper.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func Logger(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK, start: start}
			next.ServeHTTP(sw, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func Recoverer(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Auth checks the bearer token from config. Exempt paths pass through;
// "/" is matched exactly, everything else by path prefix.
func Auth(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isExempt(r.URL.Path, cfg.CIQ.Auth.ExemptPaths) {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != cfg.CIQ.Auth.Token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isExempt(path string, exempt []string) bool {
	for _, p := range exempt {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Metrics observes request counts and latency per endpoint group.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := endpointLabel(r.URL.Path)
		if endpoint == "metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK, start: start, stamp: true}
		next.ServeHTTP(sw, r)

		status := "success"
		if sw.status >= http.StatusBadRequest {
			status = "failure"
		}
		metrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
		metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}

// endpointLabel collapses a request path to a low-cardinality metric
// label: the first segment after /api/v1, or the first path segment.
func endpointLabel(path string) string {
	path = strings.TrimPrefix(path, "/api/v1")
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}
