package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id assigned to each request
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code & size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	route       string
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	size, err := rw.ResponseWriter.Write(data)
	rw.size += size
	return size, err
}

// requestLoggingMiddleware assigns a request id, records metrics and logs
// each request (if enabled) with latency & size.
func (s *AlbumServer) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			route:          "unknown",
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.metrics.ObserveRequest(r.Method, rw.route, rw.statusCode, duration)

		if !s.config.Server.RequestLogging || !shouldLogRequest(r.URL.Path) {
			return
		}
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"uri":        requestURI(r),
			"route":      rw.route,
			"remote":     r.RemoteAddr,
			"status":     rw.statusCode,
			"size":       formatBytes(rw.size),
			"duration":   duration.Round(time.Millisecond),
		}).Info("Request handled")
	})
}

// serializeMiddleware handles one request at a time
func (s *AlbumServer) serializeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// shouldLogRequest filters noisy paths from request logging output.
func shouldLogRequest(path string) bool {
	skipPaths := []string{
		"/favicon.ico",
		"/metrics",
	}

	for _, skipPath := range skipPaths {
		if path == skipPath {
			return false
		}
	}

	return true
}

// formatBytes provides a simple approximate human-readable size.
func formatBytes(bytes int) string {
	if bytes == 0 {
		return "0B"
	}

	const unit = 1024
	if bytes < unit {
		return "< 1KB"
	}

	div, exp := int64(unit), 0
	for n := int64(bytes) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB"}
	if exp >= len(units) {
		exp = len(units) - 1
	}

	result := int64(bytes) / div
	return fmt.Sprintf("%d%s", result, units[exp])
}

// panicRecoveryMiddleware intercepts panics returning HTTP 500 without crashing the process.
// Once part of the response has been written only the recorded status changes.
func (s *AlbumServer) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			s.logger.WithFields(logrus.Fields{
				"request_id": w.Header().Get(RequestIDHeader),
				"method":     r.Method,
				"uri":        requestURI(r),
				"panic":      err,
			}).Error("Panic while handling request")

			if rw, ok := w.(*responseWriter); ok && rw.wroteHeader {
				rw.statusCode = http.StatusInternalServerError
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
