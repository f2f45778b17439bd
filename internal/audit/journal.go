// Package audit provides the focus journal: a local record of every timer
// decision the lifecycle controller makes.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/pomo/internal/models"
)

// Journal actions.
const (
	ActionStart    = "focus.start"
	ActionComplete = "focus.complete"
	ActionExpire   = "focus.expire"
	ActionSkip     = "focus.skip"
	ActionReset    = "focus.reset"
	ActionDelete   = "focus.delete"
	ActionAdopt    = "focus.adopt"
	ActionClear    = "focus.clear"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeNoop    = "noop"
)

// Sink persists journal entries.
type Sink interface {
	WriteJournal(action, inputsHash, outcome, taskID, details string) (*models.JournalEntry, error)
}

// Writer writes focus journal entries.
type Writer struct {
	sink Sink
}

// NewWriter creates a new journal writer.
func NewWriter(s Sink) *Writer {
	return &Writer{sink: s}
}

// Record writes a journal entry for a timer decision.
func (w *Writer) Record(action string, inputs interface{}, outcome, taskID, details string) (*models.JournalEntry, error) {
	return w.sink.WriteJournal(action, hashInputs(inputs), outcome, taskID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
