// Package client is the REST client for the pomodoro task backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/pomo/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// APIPrefix is the path prefix of every pomodoro route.
const APIPrefix = "/api/pomodoro"

// Client wraps HTTP calls to the pomodoro API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client with timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type taskList struct {
	Tasks []models.PomodoroTask `json:"tasks"`
	Count int                   `json:"count"`
}

// FetchTasks returns the authoritative task list.
func (c *Client) FetchTasks(ctx context.Context) ([]models.PomodoroTask, error) {
	var list taskList
	if err := c.do(ctx, "fetch tasks", http.MethodGet, "/tasks", nil, &list); err != nil {
		return nil, err
	}
	return list.Tasks, nil
}

// GenerateTasks asks the backend to plan a fresh task list.
func (c *Client) GenerateTasks(ctx context.Context) ([]models.PomodoroTask, error) {
	var list taskList
	if err := c.do(ctx, "generate tasks", http.MethodPost, "/tasks/generate", struct{}{}, &list); err != nil {
		return nil, err
	}
	return list.Tasks, nil
}

// StartTask marks a task active.
func (c *Client) StartTask(ctx context.Context, id string) (*models.PomodoroTask, error) {
	return c.taskAction(ctx, "start task", id, "start", struct{}{})
}

// CompleteTask records a finished session of focusMinutes on the task.
func (c *Client) CompleteTask(ctx context.Context, id string, focusMinutes int) (*models.PomodoroTask, error) {
	body := map[string]int{"focus_minutes": focusMinutes}
	return c.taskAction(ctx, "complete task", id, "complete", body)
}

// SkipTask marks a task skipped.
func (c *Client) SkipTask(ctx context.Context, id string) (*models.PomodoroTask, error) {
	return c.taskAction(ctx, "skip task", id, "skip", struct{}{})
}

// ResetTask returns a task to pending and clears its counters.
func (c *Client) ResetTask(ctx context.Context, id string) (*models.PomodoroTask, error) {
	return c.taskAction(ctx, "reset task", id, "reset", struct{}{})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, "/tasks/"+url.PathEscape(id)+"/delete", nil, nil)
}

// CreateTask creates a pending task from fields.
func (c *Client) CreateTask(ctx context.Context, fields models.TaskFields) (*models.PomodoroTask, error) {
	var task models.PomodoroTask
	if err := c.do(ctx, "create task", http.MethodPost, "/tasks", fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask edits the non-status fields of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, fields models.TaskFields) (*models.PomodoroTask, error) {
	var task models.PomodoroTask
	if err := c.do(ctx, "update task", http.MethodPut, "/tasks/"+url.PathEscape(id), fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// AddRecord promotes a to-do record to a pomodoro task. The backend starts
// the new task immediately.
func (c *Client) AddRecord(ctx context.Context, recordID string) (*models.PomodoroTask, error) {
	var task models.PomodoroTask
	body := map[string]string{"record_id": recordID}
	if err := c.do(ctx, "add record", http.MethodPost, "/tasks/add-single", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Stats fetches aggregate focus statistics.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.do(ctx, "fetch stats", http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Record is a plain to-do item the planner builds tasks from.
type Record struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRecord stores a to-do record on the development backend.
func (c *Client) CreateRecord(ctx context.Context, content, priority string) (*Record, error) {
	var rec Record
	body := map[string]string{"content": content, "priority": priority}
	if err := c.request(ctx, "create record", http.MethodPost, "/api/records", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns the records on the development backend.
func (c *Client) ListRecords(ctx context.Context) ([]Record, error) {
	var list struct {
		Records []Record `json:"records"`
	}
	if err := c.request(ctx, "list records", http.MethodGet, "/api/records", nil, &list); err != nil {
		return nil, err
	}
	return list.Records, nil
}

// Health reports whether the backend answers its health check.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) taskAction(ctx context.Context, op, id, action string, body interface{}) (*models.PomodoroTask, error) {
	var task models.PomodoroTask
	path := "/tasks/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, op, http.MethodPost, path, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	return c.request(ctx, op, method, APIPrefix+path, body, out)
}

func (c *Client) request(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &TransportError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if resp.StatusCode >= 400 || !env.Success {
		status := resp.StatusCode
		if status < 400 {
			// 200 with success=false: application-level rejection
			status = http.StatusUnprocessableEntity
		}
		return &TransportError{Op: op, Status: status, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "malformed response data", Err: err}
	}
	return nil
}
