package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/internal/storage/storagetest"
)

type fakeCommander struct {
	mu       sync.Mutex
	commands []rawCommand
}

type rawCommand struct {
	device  string
	payload string
}

func (c *fakeCommander) PublishRawCommand(deviceName, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commands = append(c.commands, rawCommand{device: deviceName, payload: payload})

	return nil
}

func (c *fakeCommander) all() []rawCommand {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]rawCommand(nil), c.commands...)
}

// testClock drives the engine deterministically and collects delayed
// callbacks so tests can flush them at a chosen point.
type testClock struct {
	now     time.Time
	pending []func()
}

func (c *testClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *testClock) flush() {
	for _, f := range c.pending {
		f()
	}

	c.pending = nil
}

func newTestEngine(t *testing.T, repeatInterval time.Duration) (*Engine, *storage.Store, *fakeCommander, *testClock) {
	t.Helper()

	store := storagetest.NewStore(t)
	commander := &fakeCommander{}
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(l, store, commander, repeatInterval)

	clock := &testClock{now: time.Date(2025, 8, 25, 5, 59, 55, 0, time.UTC)} // a Monday
	engine.now = func() time.Time { return clock.now }
	engine.afterFunc = func(_ time.Duration, f func()) {
		clock.pending = append(clock.pending, f)
	}

	return engine, store, commander, clock
}

func seedSchedule(t *testing.T, store *storage.Store, schedule models.Schedule) models.Schedule {
	t.Helper()

	created, err := store.Schedules.Create(context.Background(), schedule)
	if err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}

	return created
}

func TestStartEdgeFiresOncePerDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, time.Hour)

	seedSchedule(t, store, models.Schedule{
		Name:       "morning fan",
		DeviceName: models.DeviceFan,
		Action:     models.ActionOn,
		StartTime:  "08:00",
		EndTime:    "09:00",
		DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
		Enabled:    true,
	})

	clock.now = time.Date(2025, 8, 25, 8, 0, 0, 0, time.UTC)

	// 20 consecutive ticks inside the same minute.
	for range 20 {
		engine.Tick(ctx)
		clock.advance(TickInterval)
	}

	commands := commander.all()
	if len(commands) != 1 {
		t.Fatalf("expected exactly 1 start command across 20 ticks, got %d: %v", len(commands), commands)
	}

	if commands[0] != (rawCommand{device: models.DeviceFan, payload: "S_ON"}) {
		t.Errorf("unexpected command %v", commands[0])
	}
}

func TestFanWindowScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, time.Hour)

	seedSchedule(t, store, models.Schedule{
		Name:       "fan window",
		DeviceName: models.DeviceFan,
		Action:     models.ActionOn,
		StartTime:  "06:00",
		EndTime:    "06:05",
		DaysOfWeek: []int{1}, // Monday
		Enabled:    true,
	})

	// Tick from 05:59:55 to 06:05:05 in 5s steps.
	clock.now = time.Date(2025, 8, 25, 5, 59, 55, 0, time.UTC)
	end := time.Date(2025, 8, 25, 6, 5, 5, 0, time.UTC)

	for !clock.now.After(end) {
		engine.Tick(ctx)
		clock.advance(TickInterval)
	}

	clock.flush()

	want := []rawCommand{
		{device: models.DeviceFan, payload: "S_ON"},
		{device: models.DeviceFan, payload: "S_OFF"},
		{device: models.DeviceFan, payload: "S_CLEAR"},
	}

	commands := commander.all()
	if len(commands) != len(want) {
		t.Fatalf("expected %d commands, got %d: %v", len(want), len(commands), commands)
	}

	for i, c := range want {
		if commands[i] != c {
			t.Errorf("command %d = %v, want %v", i, commands[i], c)
		}
	}
}

func TestEndEdgeDelaysClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, time.Hour)

	seedSchedule(t, store, models.Schedule{
		Name:       "lights out",
		DeviceName: models.DeviceLEDFarm,
		Action:     models.ActionOn,
		StartTime:  "18:00",
		EndTime:    "22:00",
		DaysOfWeek: []int{1},
		Enabled:    true,
	})

	clock.now = time.Date(2025, 8, 25, 22, 0, 0, 0, time.UTC)
	engine.Tick(ctx)

	commands := commander.all()
	if len(commands) != 1 || commands[0].payload != "S_OFF" {
		t.Fatalf("expected only S_OFF before the delay elapses, got %v", commands)
	}

	clock.flush()

	commands = commander.all()
	if len(commands) != 2 || commands[1].payload != "S_CLEAR" {
		t.Fatalf("expected S_CLEAR after the delay, got %v", commands)
	}
}

func TestFeederRepeatFiresWithinWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, 5*time.Second)

	seedSchedule(t, store, models.Schedule{
		Name:       "feeding",
		DeviceName: models.DeviceServoFeed,
		Action:     models.ActionRun,
		StartTime:  "07:00",
		EndTime:    "07:01",
		DaysOfWeek: []int{1},
		Enabled:    true,
	})

	// One minute window, repeat floor 5s: ticks at 07:00:00 through
	// 07:00:55 fire, the 07:01:00 tick is outside the window.
	clock.now = time.Date(2025, 8, 25, 7, 0, 0, 0, time.UTC)

	for range 13 {
		engine.Tick(ctx)
		clock.advance(TickInterval)
	}

	commands := commander.all()
	if len(commands) != 12 {
		t.Fatalf("expected 12 feeder pulses, got %d", len(commands))
	}

	for _, c := range commands {
		if c.device != models.DeviceServoFeed || c.payload != "RUN" {
			t.Fatalf("unexpected command %v", c)
		}
	}
}

func TestFeederRespectsRepeatFloor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, 20*time.Second)

	seedSchedule(t, store, models.Schedule{
		Name:       "slow feeding",
		DeviceName: models.DeviceServoFeed,
		Action:     models.ActionOn,
		StartTime:  "07:00",
		EndTime:    "07:01",
		DaysOfWeek: []int{1},
		Enabled:    true,
	})

	clock.now = time.Date(2025, 8, 25, 7, 0, 0, 0, time.UTC)

	for range 12 {
		engine.Tick(ctx)
		clock.advance(TickInterval)
	}

	// 60s window with a 20s floor: fires at 07:00:00, :20 and :40.
	if commands := commander.all(); len(commands) != 3 {
		t.Fatalf("expected 3 feeder pulses with a 20s floor, got %d", len(commands))
	}
}

func TestFeederHasNoEdgeCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, time.Hour)

	seedSchedule(t, store, models.Schedule{
		Name:       "feeding",
		DeviceName: models.DeviceServoFeed,
		Action:     models.ActionRun,
		StartTime:  "07:00",
		EndTime:    "07:05",
		DaysOfWeek: []int{1},
		Enabled:    true,
	})

	// The very first in-window tick fires one pulse; the end edge must add
	// nothing.
	clock.now = time.Date(2025, 8, 25, 7, 0, 0, 0, time.UTC)
	engine.Tick(ctx)

	clock.now = time.Date(2025, 8, 25, 7, 5, 0, 0, time.UTC)
	engine.Tick(ctx)
	clock.flush()

	commands := commander.all()
	if len(commands) != 1 || commands[0].payload != "RUN" {
		t.Fatalf("feeder should only pulse inside the window, got %v", commands)
	}
}

func TestDisabledAndOffDaySchedulesAreSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, commander, clock := newTestEngine(t, time.Hour)

	seedSchedule(t, store, models.Schedule{
		Name:       "disabled",
		DeviceName: models.DeviceFan,
		Action:     models.ActionOn,
		StartTime:  "08:00",
		EndTime:    "09:00",
		DaysOfWeek: []int{1},
		Enabled:    false,
	})

	seedSchedule(t, store, models.Schedule{
		Name:       "wrong day",
		DeviceName: models.DevicePump,
		Action:     models.ActionOn,
		StartTime:  "08:00",
		EndTime:    "09:00",
		DaysOfWeek: []int{3}, // Wednesday
		Enabled:    true,
	})

	clock.now = time.Date(2025, 8, 25, 8, 0, 0, 0, time.UTC) // Monday
	engine.Tick(ctx)

	if commands := commander.all(); len(commands) != 0 {
		t.Fatalf("expected no commands, got %v", commands)
	}
}

func TestDedupPruneDropsOldEntries(t *testing.T) {
	t.Parallel()

	engine, _, _, clock := newTestEngine(t, time.Hour)

	old := clock.now.Add(-48 * time.Hour)
	fresh := clock.now.Add(-time.Hour)

	engine.fired["old"] = old
	engine.fired["fresh"] = fresh
	engine.lastRepeat["old"] = old

	engine.prune(clock.now)

	if _, ok := engine.fired["old"]; ok {
		t.Error("stale dedup key should have been pruned")
	}

	if _, ok := engine.fired["fresh"]; !ok {
		t.Error("recent dedup key should survive the prune")
	}

	if _, ok := engine.lastRepeat["old"]; ok {
		t.Error("stale repeat timestamp should have been pruned")
	}
}
