package snapshot

import (
	"bytes"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/store"
)

// memKV is an in-memory KV used to inspect raw payloads.
type memKV struct {
	values map[string]string
}

func newMemKV() *memKV { return &memKV{values: map[string]string{}} }

func (m *memKV) GetValue(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) SetValue(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) DeleteValues(keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// failingKV fails every operation, like a full or locked storage backend.
type failingKV struct{}

var errQuota = errors.New("quota exceeded")

func (failingKV) GetValue(string) (string, bool, error) { return "", false, errQuota }
func (failingKV) SetValue(string, string) error          { return errQuota }
func (failingKV) DeleteValues(...string) error           { return errQuota }

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestSnapshotRoundTrip(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	s := New(st, quietLogger())
	want := models.TimerSnapshot{ActiveTaskID: "7", MinutesRemaining: 20, SecondsRemaining: 30, IsRunning: true}
	s.SaveSnapshot(want)

	got := s.LoadSnapshot()
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSaveUsesVerbatimKeys(t *testing.T) {
	kv := newMemKV()
	s := New(kv, quietLogger())
	s.SaveSnapshot(models.TimerSnapshot{ActiveTaskID: "abc", MinutesRemaining: 3, SecondsRemaining: 9, IsRunning: false})

	expected := map[string]string{
		"activeTaskId":   `"abc"`,
		"timerMinutes":   "3",
		"timerSeconds":   "9",
		"isTimerRunning": "false",
	}
	for k, v := range expected {
		if kv.values[k] != v {
			t.Errorf("Key %s: expected %s, got %q", k, v, kv.values[k])
		}
	}
}

func TestClearRemovesAllKeys(t *testing.T) {
	kv := newMemKV()
	s := New(kv, quietLogger())
	s.SaveSnapshot(models.TimerSnapshot{ActiveTaskID: "1", MinutesRemaining: 25, IsRunning: true})
	kv.values["unrelated"] = "1"

	s.Clear()

	for _, k := range Keys {
		if _, ok := kv.values[k]; ok {
			t.Errorf("Key %s should be cleared", k)
		}
	}
	if _, ok := kv.values["unrelated"]; !ok {
		t.Error("Clear should only touch snapshot keys")
	}
	if got := s.LoadSnapshot(); got.HasActive() {
		t.Errorf("Expected unbound snapshot after clear, got %+v", got)
	}
}

func TestSaveUnboundSnapshotClears(t *testing.T) {
	kv := newMemKV()
	s := New(kv, quietLogger())
	s.SaveSnapshot(models.TimerSnapshot{ActiveTaskID: "1", MinutesRemaining: 25})
	s.SaveSnapshot(models.TimerSnapshot{})

	if len(kv.values) != 0 {
		t.Errorf("Expected empty store, got %v", kv.values)
	}
}

func TestLoadDefaults(t *testing.T) {
	s := New(newMemKV(), quietLogger())
	if got := Load(s, KeyMinutes, 25); got != 25 {
		t.Errorf("Expected default 25, got %d", got)
	}
	if got := s.LoadSnapshot(); got != (models.TimerSnapshot{}) {
		t.Errorf("Expected zero snapshot, got %+v", got)
	}
}

func TestLoadNumericTaskID(t *testing.T) {
	kv := newMemKV()
	kv.values[KeyActiveTaskID] = "42"
	kv.values[KeyMinutes] = "12"
	kv.values[KeySeconds] = "5"
	kv.values[KeyRunning] = "true"

	got := New(kv, quietLogger()).LoadSnapshot()
	want := models.TimerSnapshot{ActiveTaskID: "42", MinutesRemaining: 12, SecondsRemaining: 5, IsRunning: true}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestCorruptedPayloadFallsBack(t *testing.T) {
	kv := newMemKV()
	kv.values[KeyActiveTaskID] = `"7"`
	kv.values[KeyMinutes] = "{not json"
	kv.values[KeySeconds] = "75"

	var buf bytes.Buffer
	got := New(kv, log.New(&buf, "", 0)).LoadSnapshot()

	if got.MinutesRemaining != 0 {
		t.Errorf("Expected corrupted minutes to fall back to 0, got %d", got.MinutesRemaining)
	}
	if got.SecondsRemaining != 0 {
		t.Errorf("Expected out-of-range seconds to be clamped, got %d", got.SecondsRemaining)
	}
	if !strings.Contains(buf.String(), "timerMinutes") {
		t.Errorf("Expected decode failure to be logged, got %q", buf.String())
	}
}

func TestFailuresAreSwallowed(t *testing.T) {
	var buf bytes.Buffer
	s := New(failingKV{}, log.New(&buf, "", 0))

	// None of these may panic or surface an error.
	s.SaveSnapshot(models.TimerSnapshot{ActiveTaskID: "1", MinutesRemaining: 25, IsRunning: true})
	s.Clear()
	got := s.LoadSnapshot()

	if got.HasActive() {
		t.Errorf("Expected unbound snapshot from failing backend, got %+v", got)
	}
	if !strings.Contains(buf.String(), "quota exceeded") {
		t.Errorf("Expected failures to be logged, got %q", buf.String())
	}
}

func TestPersistenceErrorMatching(t *testing.T) {
	err := error(&PersistenceError{Op: "save", Key: KeyMinutes, Err: errQuota})
	if !errors.Is(err, ErrPersistence) {
		t.Error("Expected errors.Is to match ErrPersistence")
	}
	if !errors.Is(err, errQuota) {
		t.Error("Expected errors.Is to match the wrapped cause")
	}
}
