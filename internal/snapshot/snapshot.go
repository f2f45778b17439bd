// Package snapshot persists the countdown state so it survives a restart.
//
// The store is a write-through cache: the lifecycle controller owns the
// authoritative state in memory, and every failure here is logged and
// swallowed.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fentz26/pomo/internal/models"
)

// Keys are kept verbatim so sessions persisted by earlier clients still load.
const (
	KeyActiveTaskID = "activeTaskId"
	KeyMinutes      = "timerMinutes"
	KeySeconds      = "timerSeconds"
	KeyRunning      = "isTimerRunning"
)

// Keys lists every key owned by the snapshot store.
var Keys = []string{KeyActiveTaskID, KeyMinutes, KeySeconds, KeyRunning}

// ErrPersistence is matched by every PersistenceError.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError describes a failed read or write of one key.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("snapshot %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// KV is the raw key/value backend. *store.Store satisfies it.
type KV interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
	DeleteValues(keys ...string) error
}

// Store reads and writes the TimerSnapshot.
type Store struct {
	kv     KV
	logger *log.Logger
}

// New creates a snapshot store over kv. A nil logger uses the standard logger.
func New(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Save serializes value and writes it under key.
func (s *Store) Save(key string, value interface{}) {
	if err := s.save(key, value); err != nil {
		s.report(err)
	}
}

func (s *Store) save(key string, value interface{}) error {
	if s.kv == nil {
		return &PersistenceError{Op: "save", Key: key, Err: errors.New("no backend")}
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return &PersistenceError{Op: "encode", Key: key, Err: err}
	}
	if err := s.kv.SetValue(key, string(payload)); err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// Load decodes the value stored under key, falling back to def when the key
// is missing or unreadable.
func Load[T any](s *Store, key string, def T) T {
	v, err := load(s, key, def)
	if err != nil {
		s.report(err)
		return def
	}
	return v
}

func load[T any](s *Store, key string, def T) (T, error) {
	if s.kv == nil {
		return def, &PersistenceError{Op: "load", Key: key, Err: errors.New("no backend")}
	}
	raw, ok, err := s.kv.GetValue(key)
	if err != nil {
		return def, &PersistenceError{Op: "load", Key: key, Err: err}
	}
	if !ok {
		return def, nil
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return def, &PersistenceError{Op: "decode", Key: key, Err: err}
	}
	return out, nil
}

// Clear removes every snapshot key.
func (s *Store) Clear() {
	if s.kv == nil {
		s.report(&PersistenceError{Op: "clear", Err: errors.New("no backend")})
		return
	}
	if err := s.kv.DeleteValues(Keys...); err != nil {
		s.report(&PersistenceError{Op: "clear", Err: err})
	}
}

// SaveSnapshot writes all four fields of snap. An unbound snapshot clears
// the store instead so no dangling reference is left behind.
func (s *Store) SaveSnapshot(snap models.TimerSnapshot) {
	if !snap.HasActive() {
		s.Clear()
		return
	}
	s.Save(KeyActiveTaskID, snap.ActiveTaskID)
	s.Save(KeyMinutes, snap.MinutesRemaining)
	s.Save(KeySeconds, snap.SecondsRemaining)
	s.Save(KeyRunning, snap.IsRunning)
}

// LoadSnapshot reads the persisted snapshot. Out-of-range values are clamped
// and an unbound snapshot is returned when nothing usable is stored.
func (s *Store) LoadSnapshot() models.TimerSnapshot {
	snap := models.TimerSnapshot{
		ActiveTaskID:     string(Load(s, KeyActiveTaskID, taskRef(""))),
		MinutesRemaining: Load(s, KeyMinutes, 0),
		SecondsRemaining: Load(s, KeySeconds, 0),
		IsRunning:        Load(s, KeyRunning, false),
	}
	if !snap.HasActive() {
		return models.TimerSnapshot{}
	}
	if snap.MinutesRemaining < 0 {
		snap.MinutesRemaining = 0
	}
	if snap.SecondsRemaining < 0 || snap.SecondsRemaining > 59 {
		snap.SecondsRemaining = 0
	}
	return snap
}

// taskRef accepts ids persisted either as JSON strings or as bare numbers.
type taskRef string

func (r *taskRef) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*r = taskRef(n.String())
		return nil
	}
	var str *string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str != nil {
		*r = taskRef(*str)
	}
	return nil
}

func (s *Store) report(err error) {
	s.logger.Printf("Warning: %v (timer state will not survive a restart)", err)
}
