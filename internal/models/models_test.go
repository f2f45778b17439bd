package models

import "testing"

func TestProgress(t *testing.T) {
	tests := []struct {
		done, estimate, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{2, 3, 66},
		{5, 4, 100},
		{3, 0, 0},
	}

	for _, tt := range tests {
		task := PomodoroTask{PomodorosCompleted: tt.done, EstimatedPomodoros: tt.estimate}
		if got := task.Progress(); got != tt.want {
			t.Errorf("Progress(%d/%d) = %d, want %d", tt.done, tt.estimate, got, tt.want)
		}
	}
}
