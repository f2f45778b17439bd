package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/pomo/internal/models"
)

const apiPrefix = "/api/pomodoro"

// Server provides the HTTP API for the development backend.
type Server struct {
	service *Service
	addr    string
	token   string
	server  *http.Server
}

// NewServer creates a new HTTP server. A non-empty token is required as a
// bearer token on every API request.
func NewServer(service *Service, addr, token string) *Server {
	return &Server{
		service: service,
		addr:    addr,
		token:   token,
	}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Task endpoints
	mux.HandleFunc(apiPrefix+"/tasks", s.auth(s.handleTasks))
	mux.HandleFunc(apiPrefix+"/tasks/", s.auth(s.handleTaskByID))
	mux.HandleFunc(apiPrefix+"/stats", s.auth(s.handleStats))

	// Records feed task planning
	mux.HandleFunc("/api/records", s.auth(s.handleRecords))

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting pomodoro backend on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

// handleTasks handles POST /tasks and GET /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r)
	case http.MethodGet:
		s.listTasks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTaskByID handles /tasks/{id}/* plus the generate and add-single actions.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix+"/tasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "task id required")
		return
	}

	switch {
	case parts[0] == "generate" && len(parts) == 1 && r.Method == http.MethodPost:
		s.generateTasks(w, r)
		return
	case parts[0] == "add-single" && len(parts) == 1 && r.Method == http.MethodPost:
		s.addRecord(w, r)
		return
	}

	taskID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodPut:
		s.updateTask(w, r, taskID)
	case action == "start" && r.Method == http.MethodPost:
		s.respondTask(w, "Task started")(s.service.StartTask(taskID))
	case action == "complete" && r.Method == http.MethodPost:
		s.completeTask(w, r, taskID)
	case action == "skip" && r.Method == http.MethodPost:
		s.respondTask(w, "Task skipped")(s.service.SkipTask(taskID))
	case action == "reset" && r.Method == http.MethodPost:
		s.respondTask(w, "Task reset")(s.service.ResetTask(taskID))
	case action == "delete" && r.Method == http.MethodDelete:
		s.deleteTask(w, taskID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// --- Task Handlers ---

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.ListTasks()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", taskList(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var fields models.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	task, err := s.service.CreateTask(fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Task created", task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var fields models.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.respondTask(w, "Task updated")(s.service.UpdateTask(taskID, fields))
}

type completeRequest struct {
	FocusMinutes *int `json:"focus_minutes"`
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req completeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	minutes := models.DefaultFocusMinutes
	if req.FocusMinutes != nil {
		minutes = *req.FocusMinutes
	}
	s.respondTask(w, "Pomodoro completed")(s.service.CompleteTask(taskID, minutes))
}

func (s *Server) deleteTask(w http.ResponseWriter, taskID string) {
	if err := s.service.DeleteTask(taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Task deleted", nil)
}

func (s *Server) generateTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.GenerateTasks()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Plan generated", taskList(tasks))
}

type addRecordRequest struct {
	RecordID string `json:"record_id"`
}

func (s *Server) addRecord(w http.ResponseWriter, r *http.Request) {
	var req addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID == "" {
		writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}
	task, err := s.service.AddRecord(req.RecordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Task added and started", task)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.service.Stats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", stats)
}

// --- Record Handlers ---

type createRecordRequest struct {
	Content  string `json:"content"`
	Priority string `json:"priority"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		rec, err := s.service.CreateRecord(req.Content, req.Priority)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, "Record created", rec)
	case http.MethodGet:
		records, err := s.service.ListRecords()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, "", map[string]interface{}{"records": records, "count": len(records)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Response helpers ---

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func taskList(tasks []models.PomodoroTask) map[string]interface{} {
	if tasks == nil {
		tasks = []models.PomodoroTask{}
	}
	return map[string]interface{}{"tasks": tasks, "count": len(tasks)}
}

func (s *Server) respondTask(w http.ResponseWriter, msg string) func(*models.PomodoroTask, error) {
	return func(task *models.PomodoroTask, err error) {
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, msg, task)
	}
}

func writeData(w http.ResponseWriter, status int, msg string, data interface{}) {
	writeJSON(w, status, response{Success: true, Message: msg, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Message: msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAnotherActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoRecords), errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Backend error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
