// Package server is a local development backend for the pomodoro API.
//
// It implements the REST routes the client consumes on top of the SQLite
// store, following the task rules of the production backend.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/store"
	"github.com/google/uuid"
)

// maxPlannedTasks bounds the size of a generated plan.
const maxPlannedTasks = 5

var priorityScores = map[string]int{
	"urgent": 90,
	"high":   75,
	"medium": 50,
	"low":    25,
}

func priorityScore(priority string) int {
	if s, ok := priorityScores[priority]; ok {
		return s
	}
	return priorityScores["medium"]
}

// Service applies the task rules.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// NewService creates a new backend service.
func NewService(s *store.Store) *Service {
	return &Service{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListTasks returns every task in plan order.
func (s *Service) ListTasks() ([]models.PomodoroTask, error) {
	return s.store.ListTasks()
}

// CreateTask creates a pending task appended to the end of the plan.
func (s *Service) CreateTask(fields models.TaskFields) (*models.PomodoroTask, error) {
	if fields.Title == nil || *fields.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if fields.OrderIndex == nil {
		tasks, err := s.store.ListTasks()
		if err != nil {
			return nil, err
		}
		next := len(tasks) + 1
		fields.OrderIndex = &next
	}
	return s.store.CreateTask(fields, "")
}

// UpdateTask edits a task's descriptive fields.
func (s *Service) UpdateTask(id string, fields models.TaskFields) (*models.PomodoroTask, error) {
	task, err := s.store.UpdateTask(id, fields)
	return task, mapStoreErr(err)
}

// StartTask moves a pending task to active. Only one task may be active.
func (s *Service) StartTask(id string) (*models.PomodoroTask, error) {
	task, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, ErrInvalidTransition
	}
	tasks, err := s.store.ListTasks()
	if err != nil {
		return nil, err
	}
	if active, ok := models.ActiveTask(tasks); ok && active.ID != id {
		return nil, ErrAnotherActive
	}

	now := s.now()
	task.Status = models.TaskStatusActive
	task.StartedAt = &now
	if err := s.store.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask credits one pomodoro of focusMinutes to an active task. The
// task completes once its estimate is reached and otherwise stays active for
// the next pomodoro.
func (s *Service) CompleteTask(id string, focusMinutes int) (*models.PomodoroTask, error) {
	task, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusActive {
		return nil, ErrInvalidTransition
	}
	if focusMinutes < 0 {
		focusMinutes = 0
	}

	task.PomodorosCompleted++
	task.TotalFocusTime += focusMinutes
	if task.PomodorosCompleted >= task.EstimatedPomodoros {
		now := s.now()
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
	}
	if err := s.store.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// SkipTask marks any task skipped.
func (s *Service) SkipTask(id string) (*models.PomodoroTask, error) {
	task, err := s.get(id)
	if err != nil {
		return nil, err
	}
	task.Status = models.TaskStatusSkipped
	if err := s.store.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ResetTask returns a task to pending and clears its timing and counters.
func (s *Service) ResetTask(id string) (*models.PomodoroTask, error) {
	task, err := s.get(id)
	if err != nil {
		return nil, err
	}
	task.Status = models.TaskStatusPending
	task.StartedAt = nil
	task.CompletedAt = nil
	task.PomodorosCompleted = 0
	task.TotalFocusTime = 0
	if err := s.store.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task, skipping it first when it is running.
func (s *Service) DeleteTask(id string) error {
	task, err := s.get(id)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusActive {
		if _, err := s.SkipTask(id); err != nil {
			return err
		}
	}
	return mapStoreErr(s.store.DeleteTask(id))
}

// AddRecord turns a record into a task placed first in the plan and starts
// it, skipping whatever was running.
func (s *Service) AddRecord(recordID string) (*models.PomodoroTask, error) {
	rec, err := s.store.GetRecord(recordID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	tasks, err := s.store.ListTasks()
	if err != nil {
		return nil, err
	}
	if active, ok := models.ActiveTask(tasks); ok {
		if _, err := s.SkipTask(active.ID); err != nil {
			return nil, err
		}
		log.Printf("Skipped active task %s to make room for record %s", active.ID, recordID)
	}

	task, err := s.store.CreateTask(recordFields(*rec, 0), relatedIDs(rec.ID))
	if err != nil {
		return nil, err
	}
	if err := s.store.ShiftOrder(task.ID); err != nil {
		return nil, fmt.Errorf("shift order: %w", err)
	}
	return s.StartTask(task.ID)
}

// GenerateTasks replaces the non-active part of the plan with up to five
// tasks built from the highest-priority records.
func (s *Service) GenerateTasks() ([]models.PomodoroTask, error) {
	records, err := s.store.ListRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	sort.SliceStable(records, func(i, j int) bool {
		return priorityScore(records[i].Priority) > priorityScore(records[j].Priority)
	})
	if len(records) > maxPlannedTasks {
		records = records[:maxPlannedTasks]
	}

	now := s.now()
	planned := make([]models.PomodoroTask, 0, len(records))
	for i, rec := range records {
		f := recordFields(rec, i+1)
		planned = append(planned, models.PomodoroTask{
			ID:                 uuid.New().String(),
			Title:              *f.Title,
			Description:        *f.Description,
			RelatedTaskIDs:     relatedIDs(rec.ID),
			PriorityScore:      *f.PriorityScore,
			EstimatedPomodoros: 1,
			OrderIndex:         i + 1,
			Status:             models.TaskStatusPending,
			AIReasoning:        *f.AIReasoning,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	if err := s.store.ReplacePlan(planned); err != nil {
		return nil, err
	}
	return s.store.ListTasks()
}

// Stats aggregates focus statistics over all tasks and over tasks created today.
func (s *Service) Stats() (*models.Stats, error) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		return nil, err
	}

	now := s.now()
	y, m, d := now.Date()
	stats := &models.Stats{}
	for _, t := range tasks {
		stats.Total.TotalTasks++
		stats.Total.TotalPomodoros += t.PomodorosCompleted
		stats.Total.TotalFocusTime += t.TotalFocusTime
		switch t.Status {
		case models.TaskStatusCompleted:
			stats.Total.CompletedTasks++
		case models.TaskStatusActive:
			stats.Total.ActiveTasks++
		case models.TaskStatusPending:
			stats.Total.PendingTasks++
		case models.TaskStatusSkipped:
			stats.Total.SkippedTasks++
		}

		cy, cm, cd := t.CreatedAt.UTC().Date()
		if cy == y && cm == m && cd == d {
			if t.Status == models.TaskStatusCompleted {
				stats.Today.CompletedTasks++
			}
			stats.Today.Pomodoros += t.PomodorosCompleted
			stats.Today.FocusTime += t.TotalFocusTime
		}
	}
	if stats.Total.TotalTasks > 0 {
		stats.Total.CompletionRate = round1(float64(stats.Total.CompletedTasks) / float64(stats.Total.TotalTasks) * 100)
	}
	stats.Today.FocusHours = round1(float64(stats.Today.FocusTime) / 60)
	return stats, nil
}

// CreateRecord stores a plain to-do record.
func (s *Service) CreateRecord(content, priority string) (*store.Record, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return s.store.CreateRecord(content, priority)
}

// ListRecords returns every record.
func (s *Service) ListRecords() ([]store.Record, error) {
	return s.store.ListRecords()
}

func (s *Service) get(id string) (*models.PomodoroTask, error) {
	task, err := s.store.GetTask(id)
	return task, mapStoreErr(err)
}

func recordFields(rec store.Record, order int) models.TaskFields {
	title := rec.Content
	if r := []rune(title); len(r) > 50 {
		title = string(r[:50]) + "..."
	}
	description := fmt.Sprintf("Based on: %s\n\nPriority: %s", rec.Content, rec.Priority)
	score := priorityScore(rec.Priority)
	reasoning := fmt.Sprintf("Planned from record with %s priority", rec.Priority)
	return models.TaskFields{
		Title:         &title,
		Description:   &description,
		PriorityScore: &score,
		OrderIndex:    &order,
		AIReasoning:   &reasoning,
	}
}

func relatedIDs(ids ...string) string {
	data, _ := json.Marshal(ids)
	return string(data)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrRecordNotFound):
		return ErrRecordNotFound
	}
	return err
}
