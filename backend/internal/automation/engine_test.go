package automation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"smartfarm-backend/backend/internal/config"
	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage/storagetest"
	"smartfarm-backend/backend/internal/topics"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	topic    string
	retained bool
	payload  any
}

func (p *fakePublisher) PublishJSON(topic string, qos byte, retained bool, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published = append(p.published, publishedMessage{topic: topic, retained: retained, payload: v})

	return nil
}

func (p *fakePublisher) onTopic(topic string) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []publishedMessage

	for _, m := range p.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}

	return out
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
}

type gatewayCall struct {
	device string
	status models.DeviceAction
}

func (g *fakeGateway) ControlDeviceIfChanged(_ context.Context, deviceName string, status models.DeviceAction, _ models.Controller, _ float64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.calls) > 0 {
		last := g.calls[len(g.calls)-1]
		if last.device == deviceName && last.status == status {
			return false, nil
		}
	}

	g.calls = append(g.calls, gatewayCall{device: deviceName, status: status})

	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, mode config.AutoControlMode) (*Engine, *fakePublisher, *fakeGateway) {
	t.Helper()

	store := storagetest.NewStore(t)
	publisher := &fakePublisher{}
	gateway := &fakeGateway{}
	engine := NewEngine(testLogger(), store, publisher, gateway, topics.New("farm"), mode)

	return engine, publisher, gateway
}

func TestBreachRaisesAndRecoveryResolves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, publisher, _ := newTestEngine(t, config.AutoControlESP32)

	_, err := engine.store.Thresholds.Upsert(ctx, models.SensorSoilMoisture, 30, models.SeverityWarning, true, "")
	if err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	if err := engine.HandleReading(ctx, models.SensorSoilMoisture, []byte("25")); err != nil {
		t.Fatalf("HandleReading failed: %v", err)
	}

	active, err := engine.store.Alerts.ActiveByType(ctx, "low_soil_moisture")
	if err != nil {
		t.Fatalf("failed to load alert: %v", err)
	}

	if active == nil {
		t.Fatal("expected an active low_soil_moisture alert")
	}

	if active.Severity != models.SeverityWarning {
		t.Errorf("alert severity = %s, want warning", active.Severity)
	}

	if err := engine.HandleReading(ctx, models.SensorSoilMoisture, []byte("35")); err != nil {
		t.Fatalf("HandleReading failed: %v", err)
	}

	if stillActive, _ := engine.store.Alerts.ActiveByType(ctx, "low_soil_moisture"); stillActive != nil {
		t.Fatal("alert should have been resolved")
	}

	alerts, err := engine.store.Alerts.List(ctx, models.AlertResolved, 10)
	if err != nil {
		t.Fatalf("failed to list alerts: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected 1 resolved alert, got %d", len(alerts))
	}

	if !alerts[0].AutoResolved {
		t.Error("resolved alert should be marked autoResolved")
	}

	if alerts[0].ResolvedAt == nil {
		t.Error("resolved alert should carry resolvedAt")
	}

	if got := len(publisher.onTopic("farm/alerts")); got != 2 {
		t.Errorf("expected 2 alert publications (raise + resolve), got %d", got)
	}
}

func TestAtMostOneActiveAlertPerType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, _ := newTestEngine(t, config.AutoControlESP32)

	_, err := engine.store.Thresholds.Upsert(ctx, models.SensorTemperature, 30, models.SeverityCritical, true, "")
	if err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	for _, payload := range []string{"35", "36", "40", "33.3"} {
		if err := engine.HandleReading(ctx, models.SensorTemperature, []byte(payload)); err != nil {
			t.Fatalf("HandleReading(%s) failed: %v", payload, err)
		}
	}

	alerts, err := engine.store.Alerts.List(ctx, models.AlertActive, 10)
	if err != nil {
		t.Fatalf("failed to list alerts: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 active alert after repeated breaches, got %d", len(alerts))
	}

	if alerts[0].Type != "high_temperature" {
		t.Errorf("alert type = %s, want high_temperature", alerts[0].Type)
	}
}

func TestMalformedReadingPersistsNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, _ := newTestEngine(t, config.AutoControlESP32)

	if err := engine.HandleReading(ctx, models.SensorTemperature, []byte("not-a-number")); err == nil {
		t.Fatal("expected an error for a malformed payload")
	}

	readings, err := engine.store.Sensors.History(ctx, models.SensorTemperature, 10)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}

	if len(readings) != 0 {
		t.Fatalf("expected no persisted readings, got %d", len(readings))
	}
}

func TestAutoControlFollowsDirection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, gateway := newTestEngine(t, config.AutoControlBackend)

	_, err := engine.store.Thresholds.Upsert(ctx, models.SensorSoilMoisture, 30, models.SeverityWarning, true, "")
	if err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	// Dry soil turns the pump on, wet soil turns it back off. Identical
	// consecutive states are suppressed by the gateway.
	for _, payload := range []string{"25", "24", "35"} {
		if err := engine.HandleReading(ctx, models.SensorSoilMoisture, []byte(payload)); err != nil {
			t.Fatalf("HandleReading(%s) failed: %v", payload, err)
		}
	}

	want := []gatewayCall{
		{device: models.DevicePump, status: models.ActionOn},
		{device: models.DevicePump, status: models.ActionOff},
	}

	if len(gateway.calls) != len(want) {
		t.Fatalf("expected %d gateway calls, got %d: %v", len(want), len(gateway.calls), gateway.calls)
	}

	for i, call := range want {
		if gateway.calls[i] != call {
			t.Errorf("call %d = %v, want %v", i, gateway.calls[i], call)
		}
	}
}

func TestAutoControlDisabledInESP32Mode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, gateway := newTestEngine(t, config.AutoControlESP32)

	_, err := engine.store.Thresholds.Upsert(ctx, models.SensorSoilMoisture, 30, models.SeverityWarning, true, "")
	if err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	if err := engine.HandleReading(ctx, models.SensorSoilMoisture, []byte("25")); err != nil {
		t.Fatalf("HandleReading failed: %v", err)
	}

	if len(gateway.calls) != 0 {
		t.Fatalf("expected no gateway calls in esp32 mode, got %d", len(gateway.calls))
	}
}

func TestBroadcastThresholdsIsRetained(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, publisher, _ := newTestEngine(t, config.AutoControlESP32)

	_, err := engine.store.Thresholds.Upsert(ctx, models.SensorSoilMoisture, 30, models.SeverityWarning, true, "")
	if err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	if _, err := engine.store.Thresholds.Upsert(ctx, models.SensorLight, 200, models.SeverityInfo, false, ""); err != nil {
		t.Fatalf("failed to seed threshold: %v", err)
	}

	if err := engine.BroadcastThresholds(ctx); err != nil {
		t.Fatalf("BroadcastThresholds failed: %v", err)
	}

	published := publisher.onTopic("farm/config/thresholds")
	if len(published) != 1 {
		t.Fatalf("expected 1 config publication, got %d", len(published))
	}

	if !published[0].retained {
		t.Error("threshold config must be published retained")
	}

	configs, ok := published[0].payload.([]thresholdConfig)
	if !ok {
		t.Fatalf("unexpected payload type %T", published[0].payload)
	}

	// Only the active threshold is broadcast.
	if len(configs) != 1 || configs[0].SensorType != models.SensorSoilMoisture {
		t.Errorf("unexpected config payload: %v", configs)
	}
}
