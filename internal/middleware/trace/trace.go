package trace

import (
	"context"
	"net/http"
	"time"

	applog "expenses/internal/log"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in and out.
	HeaderRequestID = "X-Request-Id"
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    logger.WithComponent(applog.ComponentHTTP),
		extractIP: extractIP,
	}
}

// Middleware assigns a request ID, stores a request-scoped logger in the
// context and logs request start and completion.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		logger := m.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.WithContext(ctx, logger)
		r = r.WithContext(ctx)

		logger.DebugContext(ctx, "HTTP request started",
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
				WithClientIP(clientIP).ToSlice()...)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.LogContext(ctx, applog.HTTPLevel(rw.statusCode), "HTTP request completed",
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
				WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
				WithClientIP(clientIP).ToSlice()...)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
