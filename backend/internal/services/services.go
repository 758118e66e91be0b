// Package services bundles the domain components behind one handle the API
// layers consume.
package services

import (
	"context"
	"log/slog"

	"smartfarm-backend/backend/internal/auth"
	"smartfarm-backend/backend/internal/automation"
	"smartfarm-backend/backend/internal/devices"
	"smartfarm-backend/backend/internal/liveness"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/pkg/mqtt"
	"smartfarm-backend/backend/pkg/utils"
)

type Services struct {
	l *slog.Logger

	Store      *storage.Store
	Auth       *auth.Manager
	Automation *automation.Engine
	Devices    *devices.Gateway
	Liveness   *liveness.Tracker

	mqtt *mqtt.Client
}

func New(l *slog.Logger, store *storage.Store, authManager *auth.Manager,
	engine *automation.Engine, gateway *devices.Gateway, tracker *liveness.Tracker,
	client *mqtt.Client,
) *Services {
	return &Services{
		l:          l.With(slog.String("component", "services")),
		Store:      store,
		Auth:       authManager,
		Automation: engine,
		Devices:    gateway,
		Liveness:   tracker,
		mqtt:       client,
	}
}

type HealthStatus struct {
	Database bool `json:"database"`
	MQTT     bool `json:"mqtt"`
}

// Health reports whether the two external dependencies are reachable.
func (s *Services) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{MQTT: s.mqtt.IsConnected()}

	if err := s.Store.DB().PingContext(ctx); err != nil {
		s.l.Error("database health check failed", utils.ErrAttr(err))
	} else {
		status.Database = true
	}

	return status
}
