// Package timer provides the pomodoro countdown and the 1 Hz ticker driving it.
package timer

import "github.com/fentz26/pomo/internal/models"

// Event is the outcome of a single tick.
type Event int

const (
	// EventNone means the tick changed nothing (paused or already expired).
	EventNone Event = iota
	// EventTicked means one second was consumed.
	EventTicked
	// EventExpired means the countdown was already at zero; the engine stops.
	EventExpired
)

func (e Event) String() string {
	switch e {
	case EventTicked:
		return "ticked"
	case EventExpired:
		return "expired"
	default:
		return "none"
	}
}

// Engine is a minutes:seconds countdown. It is not safe for concurrent use;
// the owner serializes access.
type Engine struct {
	minutes int
	seconds int
	running bool
	planned int
}

// NewEngine returns a stopped engine whose planned session is plannedMinutes long.
func NewEngine(plannedMinutes int) *Engine {
	if plannedMinutes <= 0 {
		plannedMinutes = models.DefaultFocusMinutes
	}
	return &Engine{planned: plannedMinutes, minutes: plannedMinutes}
}

// Start sets the countdown to minutes:seconds and starts running.
func (e *Engine) Start(minutes, seconds int) {
	e.set(minutes, seconds)
	e.running = true
}

// Pause stops the countdown without touching the remaining time.
func (e *Engine) Pause() {
	e.running = false
}

// Resume continues a paused countdown.
func (e *Engine) Resume() {
	e.running = true
}

// Reset sets the countdown to minutes:00 and stops it.
func (e *Engine) Reset(minutes int) {
	e.set(minutes, 0)
	e.running = false
}

// Tick consumes one second. At 0:00 it reports EventExpired once and stops.
func (e *Engine) Tick() Event {
	if !e.running {
		return EventNone
	}
	switch {
	case e.seconds > 0:
		e.seconds--
	case e.minutes > 0:
		e.minutes--
		e.seconds = 59
	default:
		e.running = false
		return EventExpired
	}
	return EventTicked
}

// Remaining returns the minutes and seconds left.
func (e *Engine) Remaining() (int, int) {
	return e.minutes, e.seconds
}

// Running reports whether the countdown is advancing.
func (e *Engine) Running() bool {
	return e.running
}

// Planned returns the planned session length in minutes.
func (e *Engine) Planned() int {
	return e.planned
}

// FocusMinutes returns the minutes consumed so far, counting a partial minute
// as a full one.
func (e *Engine) FocusMinutes() int {
	focus := e.planned - e.minutes
	if e.seconds > 0 {
		focus++
	}
	return max(0, focus)
}

// Snapshot captures the countdown bound to taskID.
func (e *Engine) Snapshot(taskID string) models.TimerSnapshot {
	return models.TimerSnapshot{
		ActiveTaskID:     taskID,
		MinutesRemaining: e.minutes,
		SecondsRemaining: e.seconds,
		IsRunning:        e.running,
	}
}

// Restore loads the countdown fields of snap.
func (e *Engine) Restore(snap models.TimerSnapshot) {
	e.set(snap.MinutesRemaining, snap.SecondsRemaining)
	e.running = snap.IsRunning
}

func (e *Engine) set(minutes, seconds int) {
	if minutes < 0 {
		minutes = 0
	}
	if seconds < 0 || seconds > 59 {
		seconds = 0
	}
	e.minutes = minutes
	e.seconds = seconds
}
