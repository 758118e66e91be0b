package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartfarm-backend/backend/internal/auth"
	"smartfarm-backend/backend/internal/models"
)

// MiddlewareHandler holds the dependencies shared by the middleware chain.
type MiddlewareHandler struct {
	l    *slog.Logger
	auth *auth.Manager
}

// NewMiddlewareHandler creates a new middleware handler.
func NewMiddlewareHandler(l *slog.Logger, authManager *auth.Manager) *MiddlewareHandler {
	return &MiddlewareHandler{l: l, auth: authManager}
}

// RequestIDMiddleware extracts the request ID from the request header or
// generates a new one if it's not present and stores it in the request
// context.
func (m *MiddlewareHandler) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := WithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter

	statusCode   int
	bytesWritten int64
	written      bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write captures the status code if WriteHeader was not called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}

	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)

	return n, err
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// LoggerMiddleware adds a request-scoped logger to the context and logs requests.
func (m *MiddlewareHandler) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())

		reqLogger := m.l.With(
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("protocol", r.Proto),
			slog.String("user_agent", r.UserAgent()),
			slog.Int64("request_bytes", r.ContentLength),
		)

		ctx := WithLogger(r.Context(), reqLogger)

		wrapped := wrapResponseWriter(w)

		start := time.Now()

		reqLogger.Info("request started")

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(start)
		reqLogger.Info("request completed",
			slog.Int("status", wrapped.statusCode),
			slog.Int64("response_bytes", wrapped.bytesWritten),
			slog.Duration("duration", duration),
		)
	})
}

// RecoveryMiddleware recovers from panics and logs them.
func (m *MiddlewareHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				l := GetLogger(r.Context())
				requestID := GetRequestID(r.Context())
				l.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
				)

				// Respond with a generic error message to avoid leaking internal details
				RespondJSON(w, r, http.StatusInternalServerError, &ErrorResponse{
					RequestID: requestID,
					Message:   "Internal Server Error",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware verifies the bearer token and stores its claims in the
// request context.
func (m *MiddlewareHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())

		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			RespondJSON(w, r, http.StatusUnauthorized, &ErrorResponse{
				RequestID: requestID,
				Message:   "Missing or malformed authorization header",
			})

			return
		}

		claims, err := m.auth.VerifyAccessToken(token)
		if err != nil {
			RespondJSON(w, r, http.StatusUnauthorized, &ErrorResponse{
				RequestID: requestID,
				Message:   "Invalid or expired token",
			})

			return
		}

		ctx := WithClaims(r.Context(), claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware rejects callers without the admin role. It must run after
// AuthMiddleware.
func (m *MiddlewareHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil || claims.Role != models.RoleAdmin {
			RespondJSON(w, r, http.StatusForbidden, &ErrorResponse{
				RequestID: GetRequestID(r.Context()),
				Message:   "Admin privileges required",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}
