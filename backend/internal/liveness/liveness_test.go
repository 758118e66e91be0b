package liveness

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/internal/storage/storagetest"
)

func newTestTracker(t *testing.T) (*Tracker, *storage.Store, *time.Time) {
	t.Helper()

	store := storagetest.NewStore(t)
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := NewTracker(l, store, nil)

	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	return tracker, store, &now
}

func TestIsOnlineWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, _, now := newTestTracker(t)

	if err := tracker.RecordHeartbeat(ctx, "esp32_main", "10.0.0.7"); err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}

	online, err := tracker.IsOnline(ctx, "esp32_main")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}

	if !online {
		t.Fatal("device should be online right after a heartbeat")
	}

	*now = now.Add(59 * time.Second)

	if online, _ = tracker.IsOnline(ctx, "esp32_main"); !online {
		t.Error("device should still be online 59s after the heartbeat")
	}

	*now = now.Add(2 * time.Second)

	if online, _ = tracker.IsOnline(ctx, "esp32_main"); online {
		t.Error("device should be offline 61s after the heartbeat")
	}
}

func TestIsOnlineUnknownDevice(t *testing.T) {
	t.Parallel()

	tracker, _, _ := newTestTracker(t)

	online, err := tracker.IsOnline(context.Background(), "esp32_main")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}

	if online {
		t.Error("a device that never reported must be offline")
	}
}

func TestRetainedOfflineSuppresesAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, store, _ := newTestTracker(t)

	if err := tracker.RecordOffline(ctx, "esp32_main", true); err != nil {
		t.Fatalf("RecordOffline failed: %v", err)
	}

	// State is still updated.
	status, err := store.ESP32.Get(ctx, "esp32_main")
	if err != nil {
		t.Fatalf("failed to load status: %v", err)
	}

	if status == nil || status.Status != "offline" {
		t.Fatalf("expected stored offline status, got %+v", status)
	}

	// But no alert is manufactured from the replay.
	alerts, err := store.Alerts.List(ctx, models.AlertActive, 10)
	if err != nil {
		t.Fatalf("failed to list alerts: %v", err)
	}

	if len(alerts) != 0 {
		t.Fatalf("retained replay must not create alerts, got %d", len(alerts))
	}
}

func TestLiveOfflineCreatesOneAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, store, _ := newTestTracker(t)

	if err := tracker.RecordOffline(ctx, "esp32_main", false); err != nil {
		t.Fatalf("RecordOffline failed: %v", err)
	}

	// A second live notification while the first alert is active is
	// suppressed.
	if err := tracker.RecordOffline(ctx, "esp32_main", false); err != nil {
		t.Fatalf("second RecordOffline failed: %v", err)
	}

	alerts, err := store.Alerts.List(ctx, models.AlertActive, 10)
	if err != nil {
		t.Fatalf("failed to list alerts: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 connection_lost alert, got %d", len(alerts))
	}

	if alerts[0].Type != models.AlertTypeConnectionLost {
		t.Errorf("alert type = %s, want connection_lost", alerts[0].Type)
	}

	if alerts[0].Severity != models.SeverityCritical {
		t.Errorf("alert severity = %s, want critical", alerts[0].Severity)
	}
}

func TestHeartbeatAfterOfflineRestoresLiveness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, store, _ := newTestTracker(t)

	if err := tracker.RecordOffline(ctx, "esp32_main", false); err != nil {
		t.Fatalf("RecordOffline failed: %v", err)
	}

	if err := tracker.RecordHeartbeat(ctx, "esp32_main", "10.0.0.7"); err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}

	online, err := tracker.IsOnline(ctx, "esp32_main")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}

	if !online {
		t.Fatal("device should be online after a fresh heartbeat")
	}

	status, err := store.ESP32.Get(ctx, "esp32_main")
	if err != nil {
		t.Fatalf("failed to load status: %v", err)
	}

	if status.Status != "online" || status.IPAddress != "10.0.0.7" {
		t.Errorf("unexpected stored status %+v", status)
	}
}

func TestDescribeSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, _, now := newTestTracker(t)

	snapshot, err := tracker.Describe(ctx, "")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	if snapshot.DeviceID != DefaultDeviceID || snapshot.Status != "unknown" {
		t.Errorf("unexpected snapshot for unreported device: %+v", snapshot)
	}

	if err := tracker.RecordHeartbeat(ctx, "", "10.0.0.7"); err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}

	*now = now.Add(10 * time.Second)

	snapshot, err = tracker.Describe(ctx, "")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	if !snapshot.Online {
		t.Error("snapshot should report online")
	}

	if snapshot.LastSeenSeconds == nil || *snapshot.LastSeenSeconds != 10 {
		t.Errorf("lastSeenSeconds = %v, want 10", snapshot.LastSeenSeconds)
	}
}
