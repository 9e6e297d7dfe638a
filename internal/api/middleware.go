package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration, and request ID
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		requestID := GetRequestID(r.Context())

		log.Printf(
			"method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			duration,
			requestID,
		)
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

var errMissingActor = errors.New("X-Actor-ID and X-Actor-Role headers are required")

// actorFromRequest reads the trusted actor headers set by the upstream auth
// layer. The actor is passed explicitly into service calls, never stored in
// ambient state.
func actorFromRequest(r *http.Request) (scheduling.Actor, error) {
	idStr := r.Header.Get("X-Actor-ID")
	roleStr := r.Header.Get("X-Actor-Role")
	if idStr == "" || roleStr == "" {
		return scheduling.Actor{}, errMissingActor
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return scheduling.Actor{}, errors.New("X-Actor-ID must be a valid UUID")
	}
	if !scheduling.ValidRole(roleStr) {
		return scheduling.Actor{}, errors.New("X-Actor-Role must be patient, doctor or admin")
	}

	return scheduling.Actor{ID: id, Role: scheduling.Role(roleStr)}, nil
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
