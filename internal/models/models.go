// Package models defines the core domain types for pomo.
package models

import "time"

// TaskStatus represents the current state of a pomodoro task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// DefaultFocusMinutes is the length of one pomodoro.
const DefaultFocusMinutes = 25

// PomodoroTask is one schedulable unit of focus work.
type PomodoroTask struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	RelatedTaskIDs     string     `json:"related_task_ids,omitempty"`
	PriorityScore      int        `json:"priority_score"`
	EstimatedPomodoros int        `json:"estimated_pomodoros"`
	OrderIndex         int        `json:"order_index"`
	Status             TaskStatus `json:"status"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	PomodorosCompleted int        `json:"pomodoros_completed"`
	TotalFocusTime     int        `json:"total_focus_time"` // minutes
	AIReasoning        string     `json:"ai_reasoning,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Progress returns the completion percentage based on estimated pomodoros.
func (t PomodoroTask) Progress() int {
	if t.EstimatedPomodoros <= 0 {
		return 0
	}
	return min(100, t.PomodorosCompleted*100/t.EstimatedPomodoros)
}

// TaskFields carries the user-editable fields of a task. Nil fields are left unchanged.
type TaskFields struct {
	Title              *string `json:"title,omitempty"`
	Description        *string `json:"description,omitempty"`
	PriorityScore      *int    `json:"priority_score,omitempty"`
	EstimatedPomodoros *int    `json:"estimated_pomodoros,omitempty"`
	OrderIndex         *int    `json:"order_index,omitempty"`
	AIReasoning        *string `json:"ai_reasoning,omitempty"`
}

// TimerSnapshot is the minimal countdown state needed to resume after a reload.
// An empty ActiveTaskID means no task is bound to the countdown.
type TimerSnapshot struct {
	ActiveTaskID     string `json:"activeTaskId"`
	MinutesRemaining int    `json:"timerMinutes"`
	SecondsRemaining int    `json:"timerSeconds"`
	IsRunning        bool   `json:"isTimerRunning"`
}

// HasActive reports whether the snapshot is bound to a task.
func (s TimerSnapshot) HasActive() bool {
	return s.ActiveTaskID != ""
}

// Stats summarizes a user's pomodoro history.
type Stats struct {
	Total TotalStats `json:"total_stats"`
	Today TodayStats `json:"today_stats"`
}

// TotalStats aggregates over all tasks.
type TotalStats struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	ActiveTasks    int     `json:"active_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
	SkippedTasks   int     `json:"skipped_tasks"`
	TotalPomodoros int     `json:"total_pomodoros"`
	TotalFocusTime int     `json:"total_focus_time"`
	CompletionRate float64 `json:"completion_rate"`
}

// TodayStats aggregates over tasks created today.
type TodayStats struct {
	CompletedTasks int     `json:"today_completed_tasks"`
	Pomodoros      int     `json:"today_pomodoros"`
	FocusTime      int     `json:"today_focus_time"`
	FocusHours     float64 `json:"today_focus_hours"`
}

// JournalEntry records a lifecycle decision taken by the controller.
type JournalEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ActiveTask returns the first task reporting the active status, if any.
func ActiveTask(tasks []PomodoroTask) (PomodoroTask, bool) {
	for _, t := range tasks {
		if t.Status == TaskStatusActive {
			return t, true
		}
	}
	return PomodoroTask{}, false
}

// FindTask returns the task with the given id, if present.
func FindTask(tasks []PomodoroTask, id string) (PomodoroTask, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return PomodoroTask{}, false
}
