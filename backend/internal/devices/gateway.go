// Package devices is the single write path for device commands. Every
// component that wants to actuate something goes through the Gateway, which
// serializes command issuance per device, persists the control history and
// publishes the resolved wire command.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/internal/topics"
)

// ErrDeviceOffline is returned when a manual or schedule command targets a
// device outside its liveness window. The HTTP layer maps it to 503.
var ErrDeviceOffline = errors.New("device is offline")

// ErrUnknownDevice is returned for device names the controller does not have.
var ErrUnknownDevice = errors.New("unknown device")

type Publisher interface {
	PublishString(topic string, qos byte, retained bool, payload string) error
}

type LivenessChecker interface {
	IsOnline(ctx context.Context, deviceID string) (bool, error)
}

type Gateway struct {
	l         *slog.Logger
	store     *storage.Store
	liveness  LivenessChecker
	publisher Publisher
	topics    topics.Topics
	deviceID  string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGateway(l *slog.Logger, store *storage.Store, liveness LivenessChecker, publisher Publisher, t topics.Topics, deviceID string) *Gateway {
	return &Gateway{
		l:         l.With(slog.String("component", "devices")),
		store:     store,
		liveness:  liveness,
		publisher: publisher,
		topics:    t,
		deviceID:  deviceID,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex serializing command issuance for one device name.
func (g *Gateway) lock(deviceName string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.locks[deviceName]
	if !ok {
		l = &sync.Mutex{}
		g.locks[deviceName] = l
	}

	return l
}

// resolve translates a requested action into the stored status and the wire
// command. Servo devices treat ON as a transient run pulse that leaves the
// stored AUTO/OFF mode untouched; plain devices store exactly what was asked.
func (g *Gateway) resolve(ctx context.Context, deviceName string, action models.DeviceAction) (models.DeviceAction, string, error) {
	if !models.IsServoDevice(deviceName) {
		if action == models.ActionRun {
			return "", "", fmt.Errorf("%w: %s does not support RUN", ErrUnknownDevice, deviceName)
		}

		return action, string(action), nil
	}

	switch action {
	case models.ActionAuto:
		return models.ActionAuto, "AUTO", nil
	case models.ActionOff:
		return models.ActionOff, "OFF", nil
	case models.ActionOn, models.ActionRun:
		stored := models.ActionAuto

		latest, err := g.store.DeviceControls.Latest(ctx, deviceName)
		if err != nil {
			return "", "", fmt.Errorf("failed to read latest state for %s: %w", deviceName, err)
		}

		if latest != nil {
			stored = latest.Status
		}

		return stored, "RUN", nil
	default:
		return "", "", fmt.Errorf("unsupported action %q for %s", action, deviceName)
	}
}

// ControlDevice issues one command: liveness check for operator-originated
// commands, per-device serialization, history append, then publish.
func (g *Gateway) ControlDevice(ctx context.Context, deviceName string, action models.DeviceAction, controlledBy models.Controller, value float64) (models.DeviceControl, error) {
	if !models.ValidDeviceName(deviceName) {
		return models.DeviceControl{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceName)
	}

	if !action.Valid() {
		return models.DeviceControl{}, fmt.Errorf("invalid action %q", action)
	}

	if controlledBy == models.ControlledByManual || controlledBy == models.ControlledBySchedule ||
		controlledBy == models.ControlledByUser {
		online, err := g.liveness.IsOnline(ctx, g.deviceID)
		if err != nil {
			return models.DeviceControl{}, err
		}

		if !online {
			return models.DeviceControl{}, fmt.Errorf("%w: cannot send %s to %s", ErrDeviceOffline, action, deviceName)
		}
	}

	lock := g.lock(deviceName)
	lock.Lock()
	defer lock.Unlock()

	stored, wire, err := g.resolve(ctx, deviceName, action)
	if err != nil {
		return models.DeviceControl{}, err
	}

	control, err := g.store.DeviceControls.Append(ctx, deviceName, stored, controlledBy, value)
	if err != nil {
		return models.DeviceControl{}, fmt.Errorf("failed to record control for %s: %w", deviceName, err)
	}

	if err := g.publisher.PublishString(g.topics.Control(deviceName), 1, false, wire); err != nil {
		return models.DeviceControl{}, fmt.Errorf("failed to publish command for %s: %w", deviceName, err)
	}

	g.l.Info("device command issued",
		slog.String("device", deviceName),
		slog.String("action", string(action)),
		slog.String("stored", string(stored)),
		slog.String("wire", wire),
		slog.String("controlledBy", string(controlledBy)))

	return control, nil
}

// ControlDeviceIfChanged is the idempotent variant used by closed-loop
// control. It skips the append and publish when the latest stored status
// already matches, so re-evaluating the same reading every few seconds does
// not flood the transport. It reports whether a command was actually issued.
func (g *Gateway) ControlDeviceIfChanged(ctx context.Context, deviceName string, status models.DeviceAction, controlledBy models.Controller, value float64) (bool, error) {
	if !models.ValidDeviceName(deviceName) {
		return false, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceName)
	}

	lock := g.lock(deviceName)
	lock.Lock()
	defer lock.Unlock()

	latest, err := g.store.DeviceControls.Latest(ctx, deviceName)
	if err != nil {
		return false, fmt.Errorf("failed to read latest state for %s: %w", deviceName, err)
	}

	if latest != nil && latest.Status == status {
		return false, nil
	}

	stored, wire, err := g.resolve(ctx, deviceName, status)
	if err != nil {
		return false, err
	}

	if _, err := g.store.DeviceControls.Append(ctx, deviceName, stored, controlledBy, value); err != nil {
		return false, fmt.Errorf("failed to record control for %s: %w", deviceName, err)
	}

	if err := g.publisher.PublishString(g.topics.Control(deviceName), 1, false, wire); err != nil {
		return false, fmt.Errorf("failed to publish command for %s: %w", deviceName, err)
	}

	g.l.Info("device state changed",
		slog.String("device", deviceName),
		slog.String("status", string(stored)),
		slog.String("controlledBy", string(controlledBy)))

	return true, nil
}

// PublishRawCommand sends a literal payload on a device's control topic with
// no persistence and no liveness check. The scheduler uses it for the
// override vocabulary (S_ON, S_OFF, S_CLEAR, RUN) the firmware consumes
// directly.
func (g *Gateway) PublishRawCommand(deviceName, payload string) error {
	if err := g.publisher.PublishString(g.topics.Control(deviceName), 1, false, payload); err != nil {
		return fmt.Errorf("failed to publish raw command for %s: %w", deviceName, err)
	}

	g.l.Debug("raw command published",
		slog.String("device", deviceName),
		slog.String("payload", payload))

	return nil
}
