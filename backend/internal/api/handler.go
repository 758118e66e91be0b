package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartfarm-backend/backend/internal/services"
)

// Handler holds the HTTP handlers for the backend API.
type Handler struct {
	l   *slog.Logger
	svc *services.Services
}

// NewHandler creates a new API handler.
func NewHandler(l *slog.Logger, svc *services.Services) *Handler {
	return &Handler{
		l:   l.With(slog.String("component", "api")),
		svc: svc,
	}
}

// Routes assembles the full route tree. The auth limiter applies a tighter
// per-IP bucket to the credential endpoints on top of the global one.
func (h *Handler) Routes(mw *MiddlewareHandler, limiter, authLimiter *IPRateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestIDMiddleware)
	r.Use(mw.LoggerMiddleware)
	r.Use(mw.RecoveryMiddleware)
	r.Use(mw.RateLimitMiddleware(limiter))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", ErrorHandler(h.Ping))
		r.Get("/health", ErrorHandler(h.Health))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimitMiddleware(authLimiter))
				r.Post("/register", ErrorHandler(h.Register))
				r.Post("/login", ErrorHandler(h.Login))
				r.Post("/refresh", ErrorHandler(h.Refresh))
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.AuthMiddleware)
				r.Post("/logout", ErrorHandler(h.Logout))
				r.Get("/me", ErrorHandler(h.Me))
				r.Put("/me", ErrorHandler(h.UpdateProfile))
				r.Put("/password", ErrorHandler(h.ChangePassword))
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(mw.AuthMiddleware)
			r.Use(mw.AuditMiddleware(h.svc.Store.ActivityLogs))

			r.Route("/sensors", func(r chi.Router) {
				r.Get("/latest", ErrorHandler(h.LatestSensors))
				r.Get("/history", ErrorHandler(h.SensorHistory))
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/status", ErrorHandler(h.DeviceStatus))
				r.Get("/history", ErrorHandler(h.DeviceHistory))
				r.Post("/{deviceName}/control", ErrorHandler(h.ControlDevice))
			})

			r.Route("/thresholds", func(r chi.Router) {
				r.Get("/", ErrorHandler(h.ListThresholds))
				r.Put("/", ErrorHandler(h.UpsertThreshold))
				r.Delete("/{sensorType}", ErrorHandler(h.DeactivateThreshold))
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", ErrorHandler(h.ListAlerts))
				r.Put("/{alertID}/resolve", ErrorHandler(h.ResolveAlert))
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", ErrorHandler(h.ListSchedules))
				r.Post("/", ErrorHandler(h.CreateSchedule))
				r.Get("/{scheduleID}", ErrorHandler(h.GetSchedule))
				r.Put("/{scheduleID}", ErrorHandler(h.UpdateSchedule))
				r.Patch("/{scheduleID}/enabled", ErrorHandler(h.SetScheduleEnabled))
				r.Delete("/{scheduleID}", ErrorHandler(h.DeleteSchedule))
			})

			r.Get("/esp32/status", ErrorHandler(h.ESP32Status))

			r.Group(func(r chi.Router) {
				r.Use(mw.AdminMiddleware)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", ErrorHandler(h.ListUsers))
					r.Get("/{userID}", ErrorHandler(h.GetUser))
					r.Put("/{userID}/active", ErrorHandler(h.SetUserActive))
					r.Delete("/{userID}", ErrorHandler(h.DeleteUser))
				})

				r.Get("/activity-logs", ErrorHandler(h.ListActivityLogs))
			})
		})
	})

	return r
}
