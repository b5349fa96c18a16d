// Package trace assigns request ids, writes access log lines and keeps request
// counters for the metrics endpoint.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"savings/internal/log"
)

type contextKey struct{}

// RequestIDHeader is echoed back and accepted from callers.
const RequestIDHeader = "X-Request-ID"

type Metrics struct {
	TotalRequests int64
	ClientErrors  int64
	ServerErrors  int64
	// AverageDuration is the mean handling time over all requests.
	AverageDuration time.Duration
}

type Middleware struct {
	logger    *log.StructuredLogger
	base      *log.Logger
	extractIP func(*http.Request) string

	total       atomic.Int64
	clientErrs  atomic.Int64
	serverErrs  atomic.Int64
	durationSum atomic.Int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    log.NewStructuredLogger(logger),
		base:      logger,
		extractIP: extractIP,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), contextKey{}, id)
		ctx = log.IntoContext(ctx, m.base.With(log.FieldRequestID, id))
		r = r.WithContext(ctx)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPStart(ctx, r, clientIP)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.total.Add(1)
		m.durationSum.Add(int64(elapsed))
		switch {
		case rw.status >= 500:
			m.serverErrs.Add(1)
		case rw.status >= 400:
			m.clientErrs.Add(1)
		}
		m.logger.LogHTTPEnd(ctx, r, rw.status, elapsed.Milliseconds(), clientIP)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID returns the id assigned by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func (m *Middleware) Metrics() Metrics {
	total := m.total.Load()
	out := Metrics{
		TotalRequests: total,
		ClientErrors:  m.clientErrs.Load(),
		ServerErrors:  m.serverErrs.Load(),
	}
	if total > 0 {
		out.AverageDuration = time.Duration(m.durationSum.Load() / total)
	}
	return out
}
