package tui

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/pomo/internal/client"
	"github.com/fentz26/pomo/internal/lifecycle"
	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/server"
	"github.com/fentz26/pomo/internal/snapshot"
	"github.com/fentz26/pomo/internal/store"
)

func newTestApp(t *testing.T, titles ...string) *App {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(server.NewServer(server.NewService(st), "", "").Handler())
	t.Cleanup(srv.Close)

	logger := log.New(io.Discard, "", 0)
	ctrl := lifecycle.New(client.New(srv.URL), snapshot.New(st, logger), nil, lifecycle.Options{Logger: logger})
	ctx := context.Background()
	for _, title := range titles {
		title := title
		if _, err := ctrl.Create(ctx, models.TaskFields{Title: &title}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	app := New(ctrl)
	t.Cleanup(app.close)
	if _, err := ctrl.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	app.syncState()
	return app
}

func press(t *testing.T, a *App, keys string) {
	t.Helper()
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	if cmd != nil {
		a.Update(cmd())
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(5, 7); got != "05:07" {
		t.Errorf("Expected 05:07, got %s", got)
	}
	if got := FormatClock(25, 0); got != "25:00" {
		t.Errorf("Expected 25:00, got %s", got)
	}
}

func TestStartKeyStartsSelectedTask(t *testing.T) {
	a := newTestApp(t, "Write report", "Read paper")

	press(t, a, "j")
	selected, _ := a.selected()
	press(t, a, "s")

	if a.state.Snapshot.ActiveTaskID != selected.ID {
		t.Fatalf("Expected %s active, got %q (%s)", selected.ID, a.state.Snapshot.ActiveTaskID, a.message)
	}
	view := a.View()
	if !strings.Contains(view, "25:00") || !strings.Contains(view, selected.Title) {
		t.Errorf("Expected countdown for %q in view:\n%s", selected.Title, view)
	}
}

func TestCompleteKey(t *testing.T) {
	a := newTestApp(t, "Write report")

	press(t, a, "c")
	if a.message != "No active task" {
		t.Errorf("Expected hint without an active task, got %q", a.message)
	}

	press(t, a, "s")
	press(t, a, "c")
	if a.state.Snapshot.HasActive() {
		t.Fatalf("Expected no active task after complete, got %+v", a.state.Snapshot)
	}
	if a.state.Tasks[0].Status != models.TaskStatusCompleted {
		t.Errorf("Expected completed task, got %s", a.state.Tasks[0].Status)
	}
}

func TestPauseKeyToggles(t *testing.T) {
	a := newTestApp(t, "Write report")
	press(t, a, "s")

	press(t, a, "p")
	if a.state.Snapshot.IsRunning {
		t.Error("Expected paused countdown")
	}
	if !strings.Contains(a.View(), "⏸") {
		t.Error("Expected pause indicator in view")
	}
	press(t, a, "p")
	if !a.state.Snapshot.IsRunning {
		t.Error("Expected resumed countdown")
	}
}

func TestErrorsAreShown(t *testing.T) {
	a := newTestApp(t)
	press(t, a, "g")
	if !strings.HasPrefix(a.message, "Error:") {
		t.Errorf("Expected error message when generating without records, got %q", a.message)
	}
}

func TestQuitKey(t *testing.T) {
	a := newTestApp(t)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}
