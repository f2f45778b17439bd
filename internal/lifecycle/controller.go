// Package lifecycle coordinates the single active focus task: the countdown,
// its persisted snapshot and the backend task collection.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fentz26/pomo/internal/audit"
	"github.com/fentz26/pomo/internal/client"
	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/reconcile"
	"github.com/fentz26/pomo/internal/snapshot"
	"github.com/fentz26/pomo/internal/timer"
)

// Repository is the backend task collection.
type Repository interface {
	FetchTasks(ctx context.Context) ([]models.PomodoroTask, error)
	GenerateTasks(ctx context.Context) ([]models.PomodoroTask, error)
	StartTask(ctx context.Context, id string) (*models.PomodoroTask, error)
	CompleteTask(ctx context.Context, id string, focusMinutes int) (*models.PomodoroTask, error)
	SkipTask(ctx context.Context, id string) (*models.PomodoroTask, error)
	ResetTask(ctx context.Context, id string) (*models.PomodoroTask, error)
	DeleteTask(ctx context.Context, id string) error
	CreateTask(ctx context.Context, fields models.TaskFields) (*models.PomodoroTask, error)
	UpdateTask(ctx context.Context, id string, fields models.TaskFields) (*models.PomodoroTask, error)
	AddRecord(ctx context.Context, recordID string) (*models.PomodoroTask, error)
}

// Journal records lifecycle decisions.
type Journal interface {
	Record(action string, inputs interface{}, outcome, taskID, details string) (*models.JournalEntry, error)
}

// Options configures a Controller.
type Options struct {
	FocusMinutes int           // planned session length, 25 when zero
	TickInterval time.Duration // clock period, one second when zero
	Logger       *log.Logger
}

// State is a point-in-time view of the controller.
type State struct {
	Tasks          []models.PomodoroTask
	Snapshot       models.TimerSnapshot
	PlannedMinutes int
}

// Active returns the task bound to the countdown.
func (s State) Active() (models.PomodoroTask, bool) {
	if !s.Snapshot.HasActive() {
		return models.PomodoroTask{}, false
	}
	return models.FindTask(s.Tasks, s.Snapshot.ActiveTaskID)
}

// Controller is the task state machine. Construct one per session.
type Controller struct {
	repo      Repository
	snapshots *snapshot.Store
	journal   Journal
	logger    *log.Logger
	planned   int
	clock     *timer.Ticker

	mu         sync.Mutex
	engine     *timer.Engine
	activeID   string
	generation uint64 // bumped on every activation and clear
	tasks      []models.PomodoroTask
	subs       map[chan struct{}]struct{}

	locksMu   sync.Mutex
	taskLocks map[string]*taskLock
}

// taskLock serializes mutations of one task. The entry is dropped once no
// caller holds or waits for it.
type taskLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a controller. snapshots and journal may be nil.
func New(repo Repository, snapshots *snapshot.Store, journal Journal, opts Options) *Controller {
	planned := opts.FocusMinutes
	if planned <= 0 {
		planned = models.DefaultFocusMinutes
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		repo:      repo,
		snapshots: snapshots,
		journal:   journal,
		logger:    logger,
		planned:   planned,
		engine:    timer.NewEngine(planned),
		subs:      make(map[chan struct{}]struct{}),
		taskLocks: make(map[string]*taskLock),
	}
	c.clock = timer.NewTicker(opts.TickInterval, c.onClock, logger)
	return c
}

// StartClock begins ticking the countdown in the background.
func (c *Controller) StartClock() { c.clock.Start() }

// StopClock stops the background clock and waits for an in-flight tick.
func (c *Controller) StopClock() { c.clock.Stop() }

func (c *Controller) onClock(ctx context.Context) {
	if _, err := c.Tick(ctx); err != nil {
		c.logger.Printf("Auto-complete failed: %v", err)
	}
}

// Load restores the persisted countdown and reconciles it with the backend.
func (c *Controller) Load(ctx context.Context) ([]models.PomodoroTask, error) {
	if c.snapshots != nil {
		snap := c.snapshots.LoadSnapshot()
		if snap.HasActive() {
			c.mu.Lock()
			c.activeID = snap.ActiveTaskID
			c.generation++
			c.engine.Restore(snap)
			c.mu.Unlock()
			c.logger.Printf("Restored timer for task %s at %02d:%02d", snap.ActiveTaskID, snap.MinutesRemaining, snap.SecondsRemaining)
		}
	}
	return c.Refresh(ctx)
}

// Refresh fetches the authoritative task list, reconciles the local active
// task against it and returns the reordered list.
func (c *Controller) Refresh(ctx context.Context) ([]models.PomodoroTask, error) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	tasks, err := c.repo.FetchTasks(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation != gen {
		// A local activation or clear landed during the fetch; the list
		// predates it and must not override it.
		c.logger.Println("Discarding a stale task list")
		out := c.tasksLocked()
		c.mu.Unlock()
		return out, nil
	}
	decisions := c.reconcileLocked(tasks)
	c.tasks = reconcile.Order(tasks)
	out := c.tasksLocked()
	c.mu.Unlock()

	for _, d := range decisions {
		c.record(d.action, map[string]string{"task_id": d.taskID}, audit.OutcomeSuccess, d.taskID, d.details)
	}
	c.notify()
	return out, nil
}

type decision struct {
	action  string
	taskID  string
	details string
}

func (c *Controller) reconcileLocked(tasks []models.PomodoroTask) []decision {
	active, ok := models.ActiveTask(tasks)
	if n := countActive(tasks); n > 1 {
		c.logger.Printf("Warning: backend reports %d active tasks, tracking %s", n, active.ID)
	}

	var out []decision
	switch {
	case ok && active.ID == c.activeID:
		return nil
	case !ok && c.activeID == "":
		return nil
	case !ok:
		out = append(out, decision{audit.ActionClear, c.activeID, "backend reports no active task"})
		c.clearLocked()
		return out
	case c.activeID != "":
		out = append(out, decision{audit.ActionClear, c.activeID, "backend reports " + active.ID + " active"})
		c.clearLocked()
	}
	c.activateLocked(active.ID)
	c.logger.Printf("Adopted active task %s from backend", active.ID)
	return append(out, decision{audit.ActionAdopt, active.ID, ""})
}

// Start activates a pending task and starts a full countdown.
func (c *Controller) Start(ctx context.Context, id string) ([]models.PomodoroTask, error) {
	unlock := c.lockTask(id)
	defer unlock()

	c.mu.Lock()
	if _, ok := models.FindTask(c.tasks, id); !ok {
		c.mu.Unlock()
		return c.noop(audit.ActionStart, id, "unknown task")
	}
	if c.activeID == id {
		c.mu.Unlock()
		return c.noop(audit.ActionStart, id, "already active")
	}
	if c.activeID != "" {
		err := &ConflictError{ActiveID: c.activeID, TaskID: id}
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	task, err := c.repo.StartTask(ctx, id)
	if err != nil {
		c.record(audit.ActionStart, map[string]string{"task_id": id}, audit.OutcomeFailed, id, err.Error())
		return nil, err
	}

	c.mu.Lock()
	if c.activeID != "" && c.activeID != id {
		c.logger.Printf("Task %s started while %s was active; switching", id, c.activeID)
	}
	c.activateLocked(id)
	c.mergeLocked(task)
	c.mu.Unlock()

	c.record(audit.ActionStart, map[string]string{"task_id": id}, audit.OutcomeSuccess, id, "")
	return c.refreshAfterMutation(ctx)
}

// Complete credits the elapsed focus time to the active task and clears the
// countdown. A failed call leaves the countdown exactly as it was.
func (c *Controller) Complete(ctx context.Context, id string) ([]models.PomodoroTask, error) {
	unlock := c.lockTask(id)
	defer unlock()

	c.mu.Lock()
	if c.activeID != id {
		c.mu.Unlock()
		return c.noop(audit.ActionComplete, id, "not the active task")
	}
	focus := c.engine.FocusMinutes()
	gen := c.generation
	c.mu.Unlock()

	return c.complete(ctx, id, gen, focus, audit.ActionComplete)
}

func (c *Controller) complete(ctx context.Context, id string, gen uint64, focus int, action string) ([]models.PomodoroTask, error) {
	inputs := map[string]interface{}{"task_id": id, "focus_minutes": focus}
	task, err := c.repo.CompleteTask(ctx, id, focus)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		c.record(action, inputs, audit.OutcomeFailed, id, err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.clearIfLocked(id, gen)
	c.mergeLocked(task)
	c.mu.Unlock()

	c.record(action, inputs, audit.OutcomeSuccess, id, "")
	return c.refreshAfterMutation(ctx)
}

// Skip marks a task skipped without crediting focus time.
func (c *Controller) Skip(ctx context.Context, id string) ([]models.PomodoroTask, error) {
	return c.forward(ctx, id, audit.ActionSkip, func(t models.PomodoroTask, active bool) bool {
		return active || (t.Status != models.TaskStatusCompleted && t.Status != models.TaskStatusSkipped)
	}, c.repo.SkipTask)
}

// Reset returns a task to pending.
func (c *Controller) Reset(ctx context.Context, id string) ([]models.PomodoroTask, error) {
	return c.forward(ctx, id, audit.ActionReset, func(t models.PomodoroTask, active bool) bool {
		return active || t.Status != models.TaskStatusPending
	}, c.repo.ResetTask)
}

func (c *Controller) forward(
	ctx context.Context,
	id, action string,
	applies func(t models.PomodoroTask, active bool) bool,
	call func(context.Context, string) (*models.PomodoroTask, error),
) ([]models.PomodoroTask, error) {
	unlock := c.lockTask(id)
	defer unlock()

	c.mu.Lock()
	t, ok := models.FindTask(c.tasks, id)
	if !ok {
		c.mu.Unlock()
		return c.noop(action, id, "unknown task")
	}
	if !applies(t, c.activeID == id) {
		c.mu.Unlock()
		return c.noop(action, id, "already "+string(t.Status))
	}
	gen := c.generation
	c.mu.Unlock()

	task, err := call(ctx, id)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		c.record(action, map[string]string{"task_id": id}, audit.OutcomeFailed, id, err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.clearIfLocked(id, gen)
	c.mergeLocked(task)
	c.mu.Unlock()

	c.record(action, map[string]string{"task_id": id}, audit.OutcomeSuccess, id, "")
	return c.refreshAfterMutation(ctx)
}

// Delete removes a task. The local countdown is cleared before the backend
// call so a deleted task never stays active.
func (c *Controller) Delete(ctx context.Context, id string) ([]models.PomodoroTask, error) {
	unlock := c.lockTask(id)
	defer unlock()

	c.mu.Lock()
	if _, ok := models.FindTask(c.tasks, id); !ok {
		c.mu.Unlock()
		return c.noop(audit.ActionDelete, id, "unknown task")
	}
	if c.activeID == id {
		c.clearLocked()
	}
	c.mu.Unlock()

	err := c.repo.DeleteTask(ctx, id)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		c.record(audit.ActionDelete, map[string]string{"task_id": id}, audit.OutcomeFailed, id, err.Error())
		c.notify()
		return nil, err
	}

	c.mu.Lock()
	c.removeLocked(id)
	c.mu.Unlock()

	c.record(audit.ActionDelete, map[string]string{"task_id": id}, audit.OutcomeSuccess, id, "")
	return c.refreshAfterMutation(ctx)
}

// Pause stops the countdown without touching the remaining time.
func (c *Controller) Pause() error {
	return c.setRunning(false)
}

// Resume continues a paused countdown.
func (c *Controller) Resume() error {
	return c.setRunning(true)
}

func (c *Controller) setRunning(running bool) error {
	c.mu.Lock()
	if c.activeID == "" {
		c.mu.Unlock()
		return ErrNoActiveTask
	}
	if running {
		c.engine.Resume()
	} else {
		c.engine.Pause()
	}
	c.persistLocked()
	c.mu.Unlock()

	c.notify()
	return nil
}

// Tick advances the countdown by one second. When the countdown expires the
// active task is completed with a full session.
func (c *Controller) Tick(ctx context.Context) (timer.Event, error) {
	c.mu.Lock()
	if c.activeID == "" {
		c.mu.Unlock()
		return timer.EventNone, nil
	}
	ev := c.engine.Tick()
	if ev == timer.EventNone {
		c.mu.Unlock()
		return ev, nil
	}
	c.persistLocked()
	id, gen := c.activeID, c.generation
	c.mu.Unlock()

	c.notify()
	if ev != timer.EventExpired {
		return ev, nil
	}

	c.logger.Printf("Focus session for task %s finished", id)
	unlock := c.lockTask(id)
	defer unlock()

	c.mu.Lock()
	current := c.activeID == id && c.generation == gen
	c.mu.Unlock()
	if !current {
		// Superseded while waiting for the task lock.
		return ev, nil
	}
	_, err := c.complete(ctx, id, gen, c.planned, audit.ActionExpire)
	return ev, err
}

// Generate asks the backend for a fresh plan.
func (c *Controller) Generate(ctx context.Context) ([]models.PomodoroTask, error) {
	if _, err := c.repo.GenerateTasks(ctx); err != nil {
		return nil, err
	}
	return c.Refresh(ctx)
}

// Create adds a pending task.
func (c *Controller) Create(ctx context.Context, fields models.TaskFields) (*models.PomodoroTask, error) {
	task, err := c.repo.CreateTask(ctx, fields)
	if err != nil {
		return nil, err
	}
	c.afterCRUD(ctx, task)
	return task, nil
}

// Update edits a task's descriptive fields.
func (c *Controller) Update(ctx context.Context, id string, fields models.TaskFields) (*models.PomodoroTask, error) {
	task, err := c.repo.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	c.afterCRUD(ctx, task)
	return task, nil
}

// AddRecord promotes a record to a task. The backend starts it right away,
// so the next reconciliation adopts it as the active task.
func (c *Controller) AddRecord(ctx context.Context, recordID string) (*models.PomodoroTask, error) {
	task, err := c.repo.AddRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	c.afterCRUD(ctx, nil)
	return task, nil
}

func (c *Controller) afterCRUD(ctx context.Context, task *models.PomodoroTask) {
	if task != nil {
		c.mu.Lock()
		c.mergeLocked(task)
		c.mu.Unlock()
	}
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Printf("Warning: refresh failed: %v", err)
		c.notify()
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Tasks:          c.tasksLocked(),
		Snapshot:       c.snapshotLocked(),
		PlannedMinutes: c.planned,
	}
}

// Subscribe returns a channel signalled after every state change and a
// function that cancels the subscription.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// refreshAfterMutation reorders the list after a successful backend call.
// A failed fetch keeps the locally merged list.
func (c *Controller) refreshAfterMutation(ctx context.Context) ([]models.PomodoroTask, error) {
	tasks, err := c.Refresh(ctx)
	if err == nil {
		return tasks, nil
	}
	c.logger.Printf("Warning: refresh failed: %v", err)
	c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasksLocked(), nil
}

func (c *Controller) noop(action, id, reason string) ([]models.PomodoroTask, error) {
	c.logger.Printf("Ignoring %s of task %s: %s", action, id, reason)
	c.record(action, map[string]string{"task_id": id}, audit.OutcomeNoop, id, reason)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasksLocked(), nil
}

func (c *Controller) activateLocked(id string) {
	c.activeID = id
	c.generation++
	c.engine.Start(c.planned, 0)
	c.persistLocked()
}

func (c *Controller) clearLocked() {
	c.activeID = ""
	c.generation++
	c.engine.Reset(c.planned)
	if c.snapshots != nil {
		c.snapshots.Clear()
	}
}

// clearIfLocked clears the countdown only if id is still active under the
// same activation.
func (c *Controller) clearIfLocked(id string, gen uint64) {
	if c.activeID == id && c.generation == gen {
		c.clearLocked()
	}
}

func (c *Controller) persistLocked() {
	if c.snapshots != nil {
		c.snapshots.SaveSnapshot(c.snapshotLocked())
	}
}

func (c *Controller) snapshotLocked() models.TimerSnapshot {
	if c.activeID == "" {
		return models.TimerSnapshot{}
	}
	return c.engine.Snapshot(c.activeID)
}

func (c *Controller) mergeLocked(task *models.PomodoroTask) {
	if task == nil {
		return
	}
	for i := range c.tasks {
		if c.tasks[i].ID == task.ID {
			c.tasks[i] = *task
			c.tasks = reconcile.Order(c.tasks)
			return
		}
	}
	c.tasks = reconcile.Order(append(c.tasks, *task))
}

func (c *Controller) removeLocked(id string) {
	out := c.tasks[:0:0]
	for _, t := range c.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	c.tasks = out
}

func (c *Controller) tasksLocked() []models.PomodoroTask {
	out := make([]models.PomodoroTask, len(c.tasks))
	copy(out, c.tasks)
	return out
}

func (c *Controller) lockTask(id string) func() {
	c.locksMu.Lock()
	l, ok := c.taskLocks[id]
	if !ok {
		l = &taskLock{}
		c.taskLocks[id] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		c.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.taskLocks, id)
		}
		c.locksMu.Unlock()
	}
}

func (c *Controller) record(action string, inputs interface{}, outcome, taskID, details string) {
	if c.journal == nil {
		return
	}
	if _, err := c.journal.Record(action, inputs, outcome, taskID, details); err != nil {
		c.logger.Printf("Warning: failed to write journal entry %s: %v", action, err)
	}
}

func countActive(tasks []models.PomodoroTask) int {
	n := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusActive {
			n++
		}
	}
	return n
}
