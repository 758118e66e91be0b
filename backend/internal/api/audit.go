package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/pkg/utils"
)

const auditTimeout = 5 * time.Second

// AuditMiddleware records every authenticated mutating request in the
// activity log. Reads are not audited. The write happens after the response
// and never blocks or fails the request itself.
func (m *MiddlewareHandler) AuditMiddleware(repo *storage.ActivityLogsRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			claims := GetClaims(r.Context())
			if claims == nil {
				return
			}

			entry := models.ActivityLog{
				UserID:    claims.UserID,
				Action:    fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
				Status:    "success",
			}

			if wrapped.statusCode >= http.StatusBadRequest {
				entry.Status = "failure"
				entry.ErrorMessage = http.StatusText(wrapped.statusCode)
			}

			l := GetLogger(r.Context())

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
				defer cancel()

				if _, err := repo.Create(ctx, entry); err != nil {
					l.Error("failed to record activity log", utils.ErrAttr(err))
				}
			}()
		})
	}
}
