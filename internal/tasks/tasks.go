// Package tasks runs named background jobs with progress reporting,
// cancellation, and queryable status. Task records live in memory only;
// they do not survive a process restart.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"newswatch/internal/errkind"
	"newswatch/internal/logger"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// DefaultMaxConcurrent bounds simultaneously running tasks; further
// submissions stay pending until a slot frees.
const DefaultMaxConcurrent = 3

// cleanupAge is how long finished tasks are kept for status queries.
const cleanupAge = 24 * time.Hour

// Progress is one progress update pushed by a running task.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Task is the queryable record for one job.
type Task struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Progress    Progress  `json:"progress"`
	Result      any       `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Fn is the body of a task. It reports progress through report and honors
// ctx cancellation. The returned value becomes the task result.
type Fn func(ctx context.Context, report func(Progress)) (any, error)

type taskState struct {
	task      Task
	cancel    context.CancelFunc
	listeners []chan Progress
}

// Manager owns all task records and the concurrency gate.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*taskState
	slots *semaphore.Weighted
	base  context.Context
	stop  context.CancelFunc
}

func NewManager(maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		tasks: map[string]*taskState{},
		slots: semaphore.NewWeighted(int64(maxConcurrent)),
		base:  base,
		stop:  stop,
	}
}

// Submit registers a task and schedules it. The task stays pending until a
// concurrency slot is available.
func (m *Manager) Submit(name string, fn Fn) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(m.base)

	state := &taskState{
		task: Task{
			ID:        id,
			Name:      name,
			Status:    StatusPending,
			CreatedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.tasks[id] = state
	m.mu.Unlock()

	go m.run(ctx, id, fn)
	return id
}

func (m *Manager) run(ctx context.Context, id string, fn Fn) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		m.finish(id, nil, err)
		return
	}
	defer m.slots.Release(1)

	if ctx.Err() != nil {
		m.finish(id, nil, ctx.Err())
		return
	}

	m.mu.Lock()
	if state, ok := m.tasks[id]; ok {
		state.task.Status = StatusRunning
		state.task.StartedAt = time.Now().UTC()
	}
	m.mu.Unlock()

	result, err := fn(ctx, func(p Progress) { m.report(id, p) })
	m.finish(id, result, err)
}

func (m *Manager) report(id string, p Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.tasks[id]
	if !ok {
		return
	}
	state.task.Progress = p
	for _, listener := range state.listeners {
		select {
		case listener <- p:
		default:
		}
	}
}

func (m *Manager) finish(id string, result any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.tasks[id]
	if !ok {
		return
	}
	state.task.CompletedAt = time.Now().UTC()
	switch {
	case err == nil:
		state.task.Status = StatusCompleted
		state.task.Result = result
	case errors.Is(err, context.Canceled) || state.task.Status == StatusCancelled:
		state.task.Status = StatusCancelled
	default:
		state.task.Status = StatusFailed
		state.task.Error = err.Error()
		logger.Warn("background task failed", map[string]any{"task_id": id, "name": state.task.Name, "error": err.Error()})
	}
	for _, listener := range state.listeners {
		close(listener)
	}
	state.listeners = nil
}

// Get returns a snapshot of one task.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task %s: %w", id, errkind.ErrNotFound)
	}
	return state.task, nil
}

// List returns snapshots of every known task.
func (m *Manager) List() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]Task, 0, len(m.tasks))
	for _, state := range m.tasks {
		list = append(list, state.task)
	}
	return list
}

// Cancel requests cancellation of a pending or running task.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	state, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %s: %w", id, errkind.ErrNotFound)
	}
	switch state.task.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		m.mu.Unlock()
		return fmt.Errorf("%w: task %s already %s", errkind.ErrConflict, id, state.task.Status)
	}
	state.task.Status = StatusCancelled
	cancel := state.cancel
	m.mu.Unlock()

	cancel()
	return nil
}

// Subscribe returns a channel of progress updates for a task. The channel
// closes when the task finishes. Finished tasks return a closed channel.
func (m *Manager) Subscribe(id string) (<-chan Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, errkind.ErrNotFound)
	}
	ch := make(chan Progress, 16)
	switch state.task.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		close(ch)
	default:
		state.listeners = append(state.listeners, ch)
	}
	return ch, nil
}

// Summary counts tasks by status.
func (m *Manager) Summary() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := map[Status]int{}
	for _, state := range m.tasks {
		summary[state.task.Status]++
	}
	return summary
}

// Cleanup drops finished tasks older than the retention window and returns
// the count removed.
func (m *Manager) Cleanup() int {
	cutoff := time.Now().UTC().Add(-cleanupAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, state := range m.tasks {
		switch state.task.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			if !state.task.CompletedAt.IsZero() && state.task.CompletedAt.Before(cutoff) {
				delete(m.tasks, id)
				removed++
			}
		}
	}
	return removed
}

// Shutdown cancels every task and stops accepting work.
func (m *Manager) Shutdown() {
	m.stop()
}
