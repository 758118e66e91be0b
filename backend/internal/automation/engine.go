// Package automation runs the sensor pipeline: persist each reading,
// evaluate it against the active threshold, raise or resolve alerts and
// optionally drive the matching actuator.
package automation

import (
	"context"
	"fmt"
	"log/slog"

	"smartfarm-backend/backend/internal/config"
	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/internal/topics"
	"smartfarm-backend/backend/pkg/utils"
)

type Publisher interface {
	PublishJSON(topic string, qos byte, retained bool, v any) error
}

type CommandGateway interface {
	ControlDeviceIfChanged(ctx context.Context, deviceName string, status models.DeviceAction, controlledBy models.Controller, value float64) (bool, error)
}

type Engine struct {
	l         *slog.Logger
	store     *storage.Store
	publisher Publisher
	gateway   CommandGateway
	topics    topics.Topics
	mode      config.AutoControlMode
}

func NewEngine(l *slog.Logger, store *storage.Store, publisher Publisher, gateway CommandGateway, t topics.Topics, mode config.AutoControlMode) *Engine {
	return &Engine{
		l:         l.With(slog.String("component", "automation")),
		store:     store,
		publisher: publisher,
		gateway:   gateway,
		topics:    t,
		mode:      mode,
	}
}

// HandleReading is the per-message pipeline entry point. A reading that does
// not parse is dropped with a logged error and nothing is persisted.
func (e *Engine) HandleReading(ctx context.Context, sensorType models.SensorType, payload []byte) error {
	if !sensorType.Valid() {
		return fmt.Errorf("unknown sensor type %q", sensorType)
	}

	value, err := ParseSensorValue(payload)
	if err != nil {
		return fmt.Errorf("discarding %s reading: %w", sensorType, err)
	}

	reading, err := e.store.Sensors.Create(ctx, sensorType, value, UnitFor(sensorType))
	if err != nil {
		return fmt.Errorf("failed to persist %s reading: %w", sensorType, err)
	}

	e.l.Debug("sensor reading stored",
		slog.String("sensorType", string(sensorType)),
		slog.Float64("value", value))

	if err := e.evaluate(ctx, reading); err != nil {
		return err
	}

	if e.mode == config.AutoControlBackend {
		if err := e.autoControl(ctx, reading); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) evaluate(ctx context.Context, reading models.SensorReading) error {
	threshold, err := e.store.Thresholds.ActiveBySensor(ctx, reading.SensorType)
	if err != nil {
		return fmt.Errorf("failed to load threshold for %s: %w", reading.SensorType, err)
	}

	if threshold == nil {
		return nil
	}

	alertType := AlertTypeFor(reading.SensorType)
	if alertType == "" {
		return nil
	}

	existing, err := e.store.Alerts.ActiveByType(ctx, alertType)
	if err != nil {
		return fmt.Errorf("failed to check active alerts for %s: %w", alertType, err)
	}

	switch Evaluate(reading, *threshold, existing) {
	case DecisionRaise:
		alert, err := e.store.Alerts.Create(ctx, alertType, threshold.Severity,
			alertTitle(reading.SensorType), alertMessage(reading, *threshold))
		if err != nil {
			return fmt.Errorf("failed to create %s alert: %w", alertType, err)
		}

		e.l.Warn("alert raised",
			slog.String("type", alertType),
			slog.Float64("value", reading.Value),
			slog.Float64("threshold", threshold.ThresholdValue))

		e.publishAlert(alert)
	case DecisionResolve:
		alert, err := e.store.Alerts.Resolve(ctx, existing.ID, true)
		if err != nil {
			return fmt.Errorf("failed to resolve %s alert: %w", alertType, err)
		}

		e.l.Info("alert resolved",
			slog.String("type", alertType),
			slog.Float64("value", reading.Value))

		e.publishAlert(alert)
	}

	return nil
}

func (e *Engine) publishAlert(alert models.Alert) {
	if err := e.publisher.PublishJSON(e.topics.Alerts(), 1, false, alert); err != nil {
		e.l.Error("failed to publish alert", slog.String("type", alert.Type), utils.ErrAttr(err))
	}
}

// PublishAlert pushes an externally raised alert on the alerts topic. Other
// components reuse the engine's outbound path instead of holding their own.
func (e *Engine) PublishAlert(alert models.Alert) error {
	return e.publisher.PublishJSON(e.topics.Alerts(), 1, false, alert)
}

// autoControl applies the same directional rule as alerting to the actuator
// mapped to the sensor. The idempotent gateway path keeps identical
// re-evaluations from re-publishing identical commands.
func (e *Engine) autoControl(ctx context.Context, reading models.SensorReading) error {
	threshold, err := e.store.Thresholds.ActiveBySensor(ctx, reading.SensorType)
	if err != nil {
		return fmt.Errorf("failed to load threshold for %s: %w", reading.SensorType, err)
	}

	if threshold == nil {
		return nil
	}

	deviceName, breached := AutoControlTarget(reading.SensorType), Breached(reading.Value, *threshold)
	if deviceName == "" {
		return nil
	}

	status := models.ActionOff
	if breached {
		status = models.ActionOn
	}

	applied, err := e.gateway.ControlDeviceIfChanged(ctx, deviceName, status, models.ControlledByAuto, reading.Value)
	if err != nil {
		return fmt.Errorf("auto control of %s failed: %w", deviceName, err)
	}

	if applied {
		e.l.Info("auto control applied",
			slog.String("device", deviceName),
			slog.String("status", string(status)),
			slog.String("sensorType", string(reading.SensorType)),
			slog.Float64("value", reading.Value))
	}

	return nil
}

// thresholdConfig is the wire shape devices receive on the retained config
// topic.
type thresholdConfig struct {
	SensorType     models.SensorType `json:"sensorType"`
	ThresholdValue float64           `json:"thresholdValue"`
	Severity       models.Severity   `json:"severity"`
}

// BroadcastThresholds publishes the active threshold set as a retained
// message so a device connecting later immediately receives current config.
// Called at startup, after any threshold mutation and on an explicit device
// request.
func (e *Engine) BroadcastThresholds(ctx context.Context) error {
	thresholds, err := e.store.Thresholds.Active(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active thresholds: %w", err)
	}

	configs := make([]thresholdConfig, 0, len(thresholds))
	for _, t := range thresholds {
		configs = append(configs, thresholdConfig{
			SensorType:     t.SensorType,
			ThresholdValue: t.ThresholdValue,
			Severity:       t.Severity,
		})
	}

	if err := e.publisher.PublishJSON(e.topics.ConfigThresholds(), 1, true, configs); err != nil {
		return fmt.Errorf("failed to broadcast thresholds: %w", err)
	}

	e.l.Info("threshold config broadcast", slog.Int("count", len(configs)))

	return nil
}
