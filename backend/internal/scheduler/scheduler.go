// Package scheduler drives time-window schedules on a fast fixed tick. The
// tick is deliberately sub-minute so feeder-type actuators can repeat-fire
// inside their window; minute-granular edge matches are guarded by in-memory
// dedup keys so they still fire at most once per day.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/pkg/utils"
)

const (
	// TickInterval is the evaluation period. Window edges match on HH:mm,
	// so roughly 12 ticks land inside each matching minute.
	TickInterval = 5 * time.Second

	// dedupTTL bounds the in-memory dedup map. Entries only need to survive
	// the calendar day they guard.
	dedupTTL = 36 * time.Hour

	pruneInterval = time.Hour

	// clearDelay separates the end-of-window S_OFF from the S_CLEAR that
	// releases the override, so the OFF transition stays observable.
	clearDelay = 1500 * time.Millisecond
)

type RawCommander interface {
	PublishRawCommand(deviceName, payload string) error
}

type Engine struct {
	l              *slog.Logger
	store          *storage.Store
	commander      RawCommander
	repeatInterval time.Duration

	// now and afterFunc are swappable for deterministic tests.
	now       func() time.Time
	afterFunc func(d time.Duration, f func())

	fired      map[string]time.Time
	lastRepeat map[string]time.Time
	lastPrune  time.Time
}

func NewEngine(l *slog.Logger, store *storage.Store, commander RawCommander, repeatInterval time.Duration) *Engine {
	return &Engine{
		l:              l.With(slog.String("component", "scheduler")),
		store:          store,
		commander:      commander,
		repeatInterval: repeatInterval,
		now:            time.Now,
		afterFunc:      func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		fired:          make(map[string]time.Time),
		lastRepeat:     make(map[string]time.Time),
	}
}

// Run ticks until the context is cancelled. Missed ticks are skipped, never
// backfilled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	e.l.Info("schedule engine started", slog.Duration("tick", TickInterval))

	for {
		select {
		case <-ctx.Done():
			e.l.Info("schedule engine stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick evaluates every enabled schedule against the current wall clock.
func (e *Engine) Tick(ctx context.Context) {
	now := e.now()

	schedules, err := e.store.Schedules.Enabled(ctx)
	if err != nil {
		e.l.Error("failed to load schedules", utils.ErrAttr(err))
		return
	}

	day := int(now.Weekday())
	current := now.Format("15:04")
	dateKey := now.Format("2006-01-02")

	for _, schedule := range schedules {
		if !slices.Contains(schedule.DaysOfWeek, day) {
			continue
		}

		e.checkStartEdge(schedule, now, current, dateKey)
		e.checkRepeatFire(schedule, now, current)
		e.checkEndEdge(schedule, now, current, dateKey)
	}

	if now.Sub(e.lastPrune) >= pruneInterval {
		e.prune(now)
	}
}

func dedupKey(scheduleID, dateKey, timeKey, phase string) string {
	return fmt.Sprintf("%s:%s:%s:%s", scheduleID, dateKey, timeKey, phase)
}

// alreadyFired records the key as fired and reports whether it had fired
// before. Ticks within the same minute hit the same key.
func (e *Engine) alreadyFired(key string, now time.Time) bool {
	if _, ok := e.fired[key]; ok {
		return true
	}

	e.fired[key] = now

	return false
}

func (e *Engine) checkStartEdge(schedule models.Schedule, now time.Time, current, dateKey string) {
	if current != schedule.StartTime {
		return
	}

	// Feeders act continuously inside the window, not on the edge.
	if models.IsFeederDevice(schedule.DeviceName) {
		return
	}

	if e.alreadyFired(dedupKey(schedule.ID, dateKey, schedule.StartTime, "start"), now) {
		return
	}

	command := startCommand(schedule)
	if command == "" {
		e.l.Warn("schedule has no start action for its device class",
			slog.String("schedule", schedule.Name),
			slog.String("action", string(schedule.Action)))
		return
	}

	e.l.Info("schedule window opened",
		slog.String("schedule", schedule.Name),
		slog.String("device", schedule.DeviceName),
		slog.String("command", command))

	if err := e.commander.PublishRawCommand(schedule.DeviceName, command); err != nil {
		e.l.Error("failed to send start command", slog.String("schedule", schedule.Name), utils.ErrAttr(err))
	}
}

// startCommand maps the schedule action to the firmware override vocabulary.
func startCommand(schedule models.Schedule) string {
	if models.IsServoDevice(schedule.DeviceName) && schedule.Action == models.ActionRun {
		return "RUN"
	}

	switch schedule.Action {
	case models.ActionOn:
		return "S_ON"
	case models.ActionOff:
		return "S_OFF"
	case models.ActionAuto:
		return "S_CLEAR"
	default:
		return ""
	}
}

func (e *Engine) checkRepeatFire(schedule models.Schedule, now time.Time, current string) {
	if !models.IsFeederDevice(schedule.DeviceName) {
		return
	}

	if schedule.Action != models.ActionRun && schedule.Action != models.ActionOn {
		return
	}

	// HH:mm strings compare correctly lexicographically.
	if current < schedule.StartTime || current >= schedule.EndTime {
		return
	}

	if last, ok := e.lastRepeat[schedule.ID]; ok && now.Sub(last) < e.repeatInterval {
		return
	}

	e.lastRepeat[schedule.ID] = now

	e.l.Info("feeder cycle fired",
		slog.String("schedule", schedule.Name),
		slog.String("device", schedule.DeviceName))

	if err := e.commander.PublishRawCommand(schedule.DeviceName, "RUN"); err != nil {
		e.l.Error("failed to send feeder command", slog.String("schedule", schedule.Name), utils.ErrAttr(err))
	}
}

func (e *Engine) checkEndEdge(schedule models.Schedule, now time.Time, current, dateKey string) {
	if current != schedule.EndTime {
		return
	}

	if models.IsFeederDevice(schedule.DeviceName) {
		return
	}

	if e.alreadyFired(dedupKey(schedule.ID, dateKey, schedule.EndTime, "end"), now) {
		return
	}

	e.l.Info("schedule window closed",
		slog.String("schedule", schedule.Name),
		slog.String("device", schedule.DeviceName))

	if err := e.commander.PublishRawCommand(schedule.DeviceName, "S_OFF"); err != nil {
		e.l.Error("failed to send end command", slog.String("schedule", schedule.Name), utils.ErrAttr(err))
	}

	deviceName := schedule.DeviceName
	scheduleName := schedule.Name

	e.afterFunc(clearDelay, func() {
		if err := e.commander.PublishRawCommand(deviceName, "S_CLEAR"); err != nil {
			e.l.Error("failed to clear override", slog.String("schedule", scheduleName), utils.ErrAttr(err))
		}
	})
}

func (e *Engine) prune(now time.Time) {
	e.lastPrune = now

	for key, firedAt := range e.fired {
		if now.Sub(firedAt) > dedupTTL {
			delete(e.fired, key)
		}
	}

	for id, firedAt := range e.lastRepeat {
		if now.Sub(firedAt) > dedupTTL {
			delete(e.lastRepeat, id)
		}
	}
}
