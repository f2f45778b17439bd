package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/server"
	"github.com/fentz26/pomo/internal/store"
)

func newFakeBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithToken("tok"))
}

func TestFetchTasksDecodesEnvelope(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pomodoro/tasks" || r.Method != http.MethodGet {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"tasks":[{"id":"t1","title":"Write","status":"active","estimated_pomodoros":2}],"count":1}}`))
	})

	tasks, err := c.FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].Status != models.TaskStatusActive {
		t.Errorf("Unexpected tasks: %+v", tasks)
	}
}

func TestCompleteSendsFocusMinutes(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pomodoro/tasks/t1/complete" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]int
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Failed to decode body %q: %v", body, err)
		}
		if req["focus_minutes"] != 6 {
			t.Errorf("Expected focus_minutes 6, got %d", req["focus_minutes"])
		}
		w.Write([]byte(`{"success":true,"data":{"id":"t1","status":"completed","total_focus_time":6}}`))
	})

	task, err := c.CompleteTask(context.Background(), "t1", 6)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if task.TotalFocusTime != 6 {
		t.Errorf("Expected 6 focus minutes, got %d", task.TotalFocusTime)
	}
}

func TestNotFoundMapsToErrNotFound(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"task not found"}`))
	})

	_, err := c.SkipTask(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestSuccessFalseIsAnError(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"status update failed"}`))
	})

	_, err := c.StartTask(context.Background(), "t1")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if te.Status != http.StatusUnprocessableEntity || te.Message != "status update failed" {
		t.Errorf("Unexpected error: %+v", te)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Rejection should not match ErrNotFound")
	}
}

func TestServerErrorWithoutEnvelope(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := c.DeleteTask(context.Background(), "t1")
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusBadGateway {
		t.Fatalf("Expected 502 TransportError, got %v", err)
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).FetchTasks(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Network failure should not match ErrNotFound")
	}
}

func TestCanceledContext(t *testing.T) {
	c := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchTasks(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestAgainstDevBackend drives the client through the local backend routes.
func TestAgainstDevBackend(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()
	srv := httptest.NewServer(server.NewServer(server.NewService(st), "", "tok").Handler())
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL, WithToken("tok"))

	title := "Deep work"
	task, err := c.CreateTask(ctx, models.TaskFields{Title: &title})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := c.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask failed: %v", err)
	}
	done, err := c.CompleteTask(ctx, task.ID, 20)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if done.Status != models.TaskStatusCompleted || done.TotalFocusTime != 20 {
		t.Errorf("Unexpected completed task: %+v", done)
	}

	renamed := "Deeper work"
	updated, err := c.UpdateTask(ctx, task.ID, models.TaskFields{Title: &renamed})
	if err != nil || updated.Title != renamed {
		t.Fatalf("UpdateTask failed: %v %+v", err, updated)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total.CompletedTasks != 1 {
		t.Errorf("Expected 1 completed task, got %d", stats.Total.CompletedTasks)
	}

	rec, err := st.CreateRecord("Inbox zero", "high")
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	added, err := c.AddRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if added.Status != models.TaskStatusActive {
		t.Errorf("Expected added task active, got %s", added.Status)
	}

	planned, err := c.GenerateTasks(ctx)
	if err != nil {
		t.Fatalf("GenerateTasks failed: %v", err)
	}
	if _, ok := models.FindTask(planned, added.ID); !ok {
		t.Error("Expected active task to survive generation")
	}

	// Generation dropped the completed task.
	if err := c.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := c.ResetTask(ctx, added.ID); err != nil {
		t.Fatalf("ResetTask failed: %v", err)
	}
	tasks, err := c.FetchTasks(ctx)
	if err != nil {
		t.Fatalf("FetchTasks failed: %v", err)
	}
	if _, ok := models.ActiveTask(tasks); ok {
		t.Error("Expected no active task after reset")
	}
}

func TestRecordsAndHealth(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()
	srv := httptest.NewServer(server.NewServer(server.NewService(st), "", "").Handler())
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)
	if !c.Health(ctx) {
		t.Fatal("Expected healthy backend")
	}

	rec, err := c.CreateRecord(ctx, "Renew passport", "urgent")
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	records, err := c.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != rec.ID || records[0].Priority != "urgent" {
		t.Errorf("Unexpected records: %+v", records)
	}

	if _, err := c.CreateRecord(ctx, "", "low"); err == nil {
		t.Error("Expected empty content to be rejected")
	}

	srv.Close()
	if c.Health(ctx) {
		t.Error("Expected closed backend to be unhealthy")
	}
}
