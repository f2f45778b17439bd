package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/pomo/internal/models"
	"github.com/google/uuid"
)

// ErrTaskNotFound indicates no task exists with the requested id.
var ErrTaskNotFound = fmt.Errorf("task not found")

// ErrRecordNotFound indicates no record exists with the requested id.
var ErrRecordNotFound = fmt.Errorf("record not found")

const taskColumns = `id, title, description, related_task_ids, priority_score, estimated_pomodoros,
	order_index, status, started_at, completed_at, pomodoros_completed, total_focus_time,
	ai_reasoning, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.PomodoroTask, error) {
	var task models.PomodoroTask
	var description, related, reasoning sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&task.ID, &task.Title, &description, &related, &task.PriorityScore, &task.EstimatedPomodoros,
		&task.OrderIndex, &task.Status, &startedAt, &completedAt, &task.PomodorosCompleted, &task.TotalFocusTime,
		&reasoning, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Description = description.String
	task.RelatedTaskIDs = related.String
	task.AIReasoning = reasoning.String
	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

// --- Task Operations ---

// CreateTask inserts a new pending task built from fields.
func (s *Store) CreateTask(fields models.TaskFields, related string) (*models.PomodoroTask, error) {
	now := time.Now().UTC()
	task := &models.PomodoroTask{
		ID:                 uuid.New().String(),
		RelatedTaskIDs:     related,
		EstimatedPomodoros: 1,
		Status:             models.TaskStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	applyFields(task, fields)
	if task.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.RelatedTaskIDs, task.PriorityScore, task.EstimatedPomodoros,
		task.OrderIndex, task.Status, task.StartedAt, task.CompletedAt, task.PomodorosCompleted, task.TotalFocusTime,
		task.AIReasoning, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*models.PomodoroTask, error) {
	task, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks ordered by their plan position.
func (s *Store) ListTasks() ([]models.PomodoroTask, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY order_index ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.PomodoroTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// SaveTask writes every mutable column of task back to the database.
func (s *Store) SaveTask(task *models.PomodoroTask) error {
	task.UpdatedAt = time.Now().UTC()
	result, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, related_task_ids = ?, priority_score = ?,
		 estimated_pomodoros = ?, order_index = ?, status = ?, started_at = ?, completed_at = ?,
		 pomodoros_completed = ?, total_focus_time = ?, ai_reasoning = ?, updated_at = ? WHERE id = ?`,
		task.Title, task.Description, task.RelatedTaskIDs, task.PriorityScore,
		task.EstimatedPomodoros, task.OrderIndex, task.Status, task.StartedAt, task.CompletedAt,
		task.PomodorosCompleted, task.TotalFocusTime, task.AIReasoning, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UpdateTask applies fields to an existing task.
func (s *Store) UpdateTask(id string, fields models.TaskFields) (*models.PomodoroTask, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	applyFields(task, fields)
	if err := s.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(id string) error {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ReplacePlan deletes every task that is not active and inserts the given ones.
// The replacement runs in a single transaction.
func (s *Store) ReplacePlan(tasks []models.PomodoroTask) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE status != ?`, models.TaskStatusActive); err != nil {
		return fmt.Errorf("clear plan: %w", err)
	}
	for _, t := range tasks {
		_, err := tx.Exec(
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Description, t.RelatedTaskIDs, t.PriorityScore, t.EstimatedPomodoros,
			t.OrderIndex, t.Status, t.StartedAt, t.CompletedAt, t.PomodorosCompleted, t.TotalFocusTime,
			t.AIReasoning, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert planned task: %w", err)
		}
	}
	return tx.Commit()
}

// ShiftOrder pushes every task except keepID one position down the plan.
func (s *Store) ShiftOrder(keepID string) error {
	_, err := s.db.Exec(`UPDATE tasks SET order_index = order_index + 1 WHERE id != ?`, keepID)
	return err
}

func applyFields(task *models.PomodoroTask, f models.TaskFields) {
	if f.Title != nil {
		task.Title = *f.Title
	}
	if f.Description != nil {
		task.Description = *f.Description
	}
	if f.PriorityScore != nil {
		task.PriorityScore = *f.PriorityScore
	}
	if f.EstimatedPomodoros != nil && *f.EstimatedPomodoros > 0 {
		task.EstimatedPomodoros = *f.EstimatedPomodoros
	}
	if f.OrderIndex != nil {
		task.OrderIndex = *f.OrderIndex
	}
	if f.AIReasoning != nil {
		task.AIReasoning = *f.AIReasoning
	}
}

// --- Record Operations ---

// Record is a plain to-do entry that can be promoted into a pomodoro task.
type Record struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRecord inserts a new record.
func (s *Store) CreateRecord(content, priority string) (*Record, error) {
	if priority == "" {
		priority = "medium"
	}
	rec := &Record{
		ID:        uuid.New().String(),
		Content:   content,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO records (id, content, priority, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Content, rec.Priority, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(id string) (*Record, error) {
	rec := &Record{}
	err := s.db.QueryRow(`SELECT id, content, priority, created_at FROM records WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Content, &rec.Priority, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return rec, nil
}

// ListRecords returns all records, oldest first.
func (s *Store) ListRecords() ([]Record, error) {
	rows, err := s.db.Query(`SELECT id, content, priority, created_at FROM records ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Priority, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
