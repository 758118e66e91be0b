// Package liveness tracks whether the field controller is reachable.
// Heartbeats and last-will notifications feed a small in-memory snapshot
// that answers the "may I send this device a command" question.
package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/pkg/utils"
)

// DefaultDeviceID is the controller identity assumed when a status message
// does not name one.
const DefaultDeviceID = "esp32_main"

// Window is how long after the last heartbeat a device still counts as online.
const Window = 60 * time.Second

// AlertPublisher receives the connection_lost alert for downstream consumers.
type AlertPublisher interface {
	PublishAlert(alert models.Alert) error
}

type Tracker struct {
	l         *slog.Logger
	store     *storage.Store
	publisher AlertPublisher
	now       func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewTracker(l *slog.Logger, store *storage.Store, publisher AlertPublisher) *Tracker {
	return &Tracker{
		l:         l.With(slog.String("component", "liveness")),
		store:     store,
		publisher: publisher,
		now:       time.Now,
		lastSeen:  make(map[string]time.Time),
	}
}

// SetAlertPublisher installs the outbound alert path. The tracker is built
// before the automation engine, which owns that path, so it is wired in
// afterwards during startup.
func (t *Tracker) SetAlertPublisher(publisher AlertPublisher) {
	t.publisher = publisher
}

// RecordHeartbeat marks the device online as of now.
func (t *Tracker) RecordHeartbeat(ctx context.Context, deviceID, ip string) error {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	now := t.now()

	t.mu.Lock()
	t.lastSeen[deviceID] = now
	t.mu.Unlock()

	_, err := t.store.ESP32.Upsert(ctx, deviceID, "online", ip)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat for %s: %w", deviceID, err)
	}

	return nil
}

// RecordOffline marks the device offline. A retained notification is a
// broker replay of old state, so it updates the record but never raises an
// alert. A live notification raises one connection_lost alert unless one is
// already active.
func (t *Tracker) RecordOffline(ctx context.Context, deviceID string, retained bool) error {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	_, err := t.store.ESP32.Upsert(ctx, deviceID, "offline", "")
	if err != nil {
		return fmt.Errorf("failed to record offline status for %s: %w", deviceID, err)
	}

	if retained {
		t.l.Debug("ignoring retained offline replay", slog.String("deviceId", deviceID))
		return nil
	}

	existing, err := t.store.Alerts.ActiveByType(ctx, models.AlertTypeConnectionLost)
	if err != nil {
		return fmt.Errorf("failed to check active connection alerts: %w", err)
	}

	if existing != nil {
		t.l.Debug("connection lost alert already active", slog.String("deviceId", deviceID))
		return nil
	}

	alert, err := t.store.Alerts.Create(ctx, models.AlertTypeConnectionLost, models.SeverityCritical,
		"Controller connection lost",
		fmt.Sprintf("Device %s went offline unexpectedly", deviceID))
	if err != nil {
		return fmt.Errorf("failed to create connection lost alert: %w", err)
	}

	t.l.Warn("controller went offline", slog.String("deviceId", deviceID), slog.String("alertId", alert.ID))

	if t.publisher != nil {
		if err := t.publisher.PublishAlert(alert); err != nil {
			t.l.Error("failed to publish connection lost alert", utils.ErrAttr(err))
		}
	}

	return nil
}

// IsOnline reports whether the device heartbeated within the liveness window.
// The in-memory snapshot is authoritative; after a restart it falls back to
// the stored last-seen time.
func (t *Tracker) IsOnline(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	t.mu.Lock()
	seen, ok := t.lastSeen[deviceID]
	t.mu.Unlock()

	if ok {
		return t.now().Sub(seen) < Window, nil
	}

	status, err := t.store.ESP32.Get(ctx, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to load status for %s: %w", deviceID, err)
	}

	if status == nil {
		return false, nil
	}

	return t.now().Sub(status.LastSeen) < Window, nil
}

// Snapshot is the HTTP-facing view of the controller's liveness.
type Snapshot struct {
	DeviceID        string     `json:"deviceId"`
	Status          string     `json:"status"`
	Online          bool       `json:"online"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	LastSeenSeconds *int64     `json:"lastSeenSeconds,omitempty"`
	IPAddress       string     `json:"ipAddress,omitempty"`
}

// Describe builds the liveness snapshot for one device.
func (t *Tracker) Describe(ctx context.Context, deviceID string) (Snapshot, error) {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	status, err := t.store.ESP32.Get(ctx, deviceID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load status for %s: %w", deviceID, err)
	}

	if status == nil {
		return Snapshot{DeviceID: deviceID, Status: "unknown"}, nil
	}

	// The in-memory timestamp is the live view; the stored one is only the
	// fallback after a restart.
	lastSeen := status.LastSeen

	t.mu.Lock()
	if seen, ok := t.lastSeen[deviceID]; ok {
		lastSeen = seen
	}
	t.mu.Unlock()

	seconds := int64(t.now().Sub(lastSeen).Seconds())

	return Snapshot{
		DeviceID:        status.DeviceID,
		Status:          status.Status,
		Online:          t.now().Sub(lastSeen) < Window,
		LastSeen:        &lastSeen,
		LastSeenSeconds: &seconds,
		IPAddress:       status.IPAddress,
	}, nil
}
