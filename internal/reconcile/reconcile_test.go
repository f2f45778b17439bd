package reconcile

import (
	"testing"
	"time"

	"github.com/fentz26/pomo/internal/models"
)

func ids(tasks []models.PomodoroTask) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func assertOrder(t *testing.T, got []models.PomodoroTask, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("Expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, g)
		}
	}
}

func TestStatusRankDominatesPriority(t *testing.T) {
	tasks := []models.PomodoroTask{
		{ID: "pending", Status: models.TaskStatusPending, PriorityScore: 10},
		{ID: "active", Status: models.TaskStatusActive, PriorityScore: 1},
		{ID: "skipped", Status: models.TaskStatusSkipped, PriorityScore: 99},
	}
	assertOrder(t, Order(tasks), "active", "pending", "skipped")
}

func TestPriorityThenOrderIndex(t *testing.T) {
	tasks := []models.PomodoroTask{
		{ID: "low", Status: models.TaskStatusPending, PriorityScore: 25, OrderIndex: 1},
		{ID: "high-2", Status: models.TaskStatusPending, PriorityScore: 90, OrderIndex: 2},
		{ID: "high-1", Status: models.TaskStatusPending, PriorityScore: 90, OrderIndex: 1},
	}
	assertOrder(t, Order(tasks), "high-1", "high-2", "low")
}

func TestCompletedAfterIncompleteNewestFirst(t *testing.T) {
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	early, late := base, base.Add(time.Hour)
	tasks := []models.PomodoroTask{
		{ID: "done-early", Status: models.TaskStatusCompleted, CompletedAt: &early, PriorityScore: 100},
		{ID: "skipped", Status: models.TaskStatusSkipped},
		{ID: "done-unknown", Status: models.TaskStatusCompleted},
		{ID: "done-late", Status: models.TaskStatusCompleted, CompletedAt: &late},
		{ID: "pending", Status: models.TaskStatusPending},
	}
	assertOrder(t, Order(tasks), "pending", "skipped", "done-late", "done-early", "done-unknown")
}

func TestOrderDoesNotMutateInput(t *testing.T) {
	tasks := []models.PomodoroTask{
		{ID: "b", Status: models.TaskStatusPending},
		{ID: "a", Status: models.TaskStatusActive},
	}
	Order(tasks)
	if tasks[0].ID != "b" || tasks[1].ID != "a" {
		t.Errorf("Input was reordered: %v", ids(tasks))
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	tasks := []models.PomodoroTask{
		{ID: "x", Status: models.TaskStatusPending, PriorityScore: 50, OrderIndex: 3},
		{ID: "y", Status: models.TaskStatusPending, PriorityScore: 50, OrderIndex: 3},
		{ID: "z", Status: models.TaskStatusPending, PriorityScore: 50, OrderIndex: 3},
	}
	first := ids(Order(tasks))
	for i := 0; i < 10; i++ {
		assertOrder(t, Order(tasks), first...)
	}
}

func TestEmpty(t *testing.T) {
	if got := Order(nil); len(got) != 0 {
		t.Errorf("Expected empty result, got %v", ids(got))
	}
}

func TestTop(t *testing.T) {
	tasks := []models.PomodoroTask{
		{ID: "c", Status: models.TaskStatusCompleted},
		{ID: "p", Status: models.TaskStatusPending},
		{ID: "a", Status: models.TaskStatusActive},
	}
	assertOrder(t, Top(tasks, 2), "a", "p")
	assertOrder(t, Top(tasks, 10), "a", "p", "c")
	assertOrder(t, Top(tasks, -1), "a", "p", "c")
}
