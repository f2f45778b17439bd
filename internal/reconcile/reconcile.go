// Package reconcile orders the task collection so actionable work comes first.
package reconcile

import (
	"sort"

	"github.com/fentz26/pomo/internal/models"
)

// statusRank orders incomplete tasks: the running session first, then work
// still to do, then work that was put aside.
var statusRank = map[models.TaskStatus]int{
	models.TaskStatusActive:  0,
	models.TaskStatusPending: 1,
	models.TaskStatusSkipped: 2,
}

// Order returns a new slice with incomplete tasks (by status rank, priority
// descending, order index ascending) followed by completed tasks (most
// recently completed first). The input is not modified.
func Order(tasks []models.PomodoroTask) []models.PomodoroTask {
	incomplete := make([]models.PomodoroTask, 0, len(tasks))
	var completed []models.PomodoroTask
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			completed = append(completed, t)
		} else {
			incomplete = append(incomplete, t)
		}
	}

	sort.SliceStable(incomplete, func(i, j int) bool {
		a, b := incomplete[i], incomplete[j]
		if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
			return ra < rb
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		return a.OrderIndex < b.OrderIndex
	})

	sort.SliceStable(completed, func(i, j int) bool {
		a, b := completed[i].CompletedAt, completed[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return append(incomplete, completed...)
}

// Top returns at most n tasks from the ordered collection.
func Top(tasks []models.PomodoroTask, n int) []models.PomodoroTask {
	ordered := Order(tasks)
	if n < 0 || n >= len(ordered) {
		return ordered
	}
	return ordered[:n]
}

// unknown statuses sort after skipped
func rank(s models.TaskStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}
