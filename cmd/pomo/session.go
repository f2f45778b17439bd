package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fentz26/pomo/internal/audit"
	"github.com/fentz26/pomo/internal/client"
	"github.com/fentz26/pomo/internal/lifecycle"
	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/snapshot"
	"github.com/fentz26/pomo/internal/store"
)

// requestTimeout bounds one CLI command's backend work.
const requestTimeout = 30 * time.Second

// session wires the controller to the configured backend and local database.
type session struct {
	store  *store.Store
	client *client.Client
	ctrl   *lifecycle.Controller
}

func newClient() *client.Client {
	return client.New(cfg.APIAddr, client.WithToken(cfg.Token))
}

// openSession builds the controller and requires a reachable backend.
func openSession(ctx context.Context) (*session, error) {
	return newSession(ctx, false)
}

// openLocalSession tolerates an unreachable backend so timer commands keep
// working from the persisted snapshot.
func openLocalSession(ctx context.Context) (*session, error) {
	return newSession(ctx, true)
}

func newSession(ctx context.Context, offline bool) (*session, error) {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	s, err := buildSession(logger)
	if err != nil {
		return nil, err
	}

	if _, err := s.ctrl.Load(ctx); err != nil {
		if offline {
			logger.Printf("Warning: backend unreachable at %s, using local timer state: %v", cfg.APIAddr, err)
			return s, nil
		}
		s.Close()
		return nil, fmt.Errorf("load tasks from %s: %w", cfg.APIAddr, err)
	}
	return s, nil
}

// buildSession wires the controller without loading state.
func buildSession(logger *log.Logger) (*session, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	c := newClient()
	ctrl := lifecycle.New(c, snapshot.New(st, logger), audit.NewWriter(st), lifecycle.Options{
		FocusMinutes: cfg.FocusMinutes,
		TickInterval: cfg.TickInterval,
		Logger:       logger,
	})
	return &session{store: st, client: c, ctrl: ctrl}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}
}

// resolveTask finds a task by full id or unique id prefix.
func (s *session) resolveTask(ref string) (models.PomodoroTask, error) {
	tasks := s.ctrl.State().Tasks
	if t, ok := models.FindTask(tasks, ref); ok {
		return t, nil
	}

	var matches []models.PomodoroTask
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return models.PomodoroTask{}, fmt.Errorf("task not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return models.PomodoroTask{}, fmt.Errorf("ambiguous task id %q matches %d tasks", ref, len(matches))
	}
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// truncate shortens s to n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
