package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"newswatch/internal/errkind"
)

func waitForStatus(t *testing.T, m *Manager, id string, want Status) Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := m.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := m.Get(id)
	t.Fatalf("Task never reached %s, stuck at %s", want, task.Status)
	return Task{}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	id := m.Submit("demo", func(ctx context.Context, report func(Progress)) (any, error) {
		report(Progress{Current: 1, Total: 2, Message: "half"})
		return "done", nil
	})
	if id == "" {
		t.Fatal("Expected a task id")
	}

	task := waitForStatus(t, m, id, StatusCompleted)
	if task.Result != "done" {
		t.Errorf("Expected result recorded, got %v", task.Result)
	}
	if task.Progress.Current != 1 || task.Progress.Total != 2 {
		t.Errorf("Expected last progress retained, got %+v", task.Progress)
	}
	if task.StartedAt.IsZero() || task.CompletedAt.IsZero() {
		t.Error("Expected start and completion timestamps")
	}
}

func TestFailedTaskRecordsError(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	id := m.Submit("boom", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, errors.New("exploded")
	})

	task := waitForStatus(t, m, id, StatusFailed)
	if task.Error != "exploded" {
		t.Errorf("Expected error message, got %q", task.Error)
	}
}

func TestConcurrencyGateKeepsExtrasPending(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	release := make(chan struct{})
	first := m.Submit("holder", func(ctx context.Context, report func(Progress)) (any, error) {
		<-release
		return nil, nil
	})
	waitForStatus(t, m, first, StatusRunning)

	second := m.Submit("waiter", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})

	// The second task cannot start while the slot is held.
	time.Sleep(50 * time.Millisecond)
	task, err := m.Get(second)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if task.Status != StatusPending {
		t.Errorf("Expected second task pending, got %s", task.Status)
	}

	close(release)
	waitForStatus(t, m, second, StatusCompleted)
}

func TestCancelRunningTask(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	started := make(chan struct{})
	id := m.Submit("long", func(ctx context.Context, report func(Progress)) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started

	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	waitForStatus(t, m, id, StatusCancelled)

	// Cancelling a finished task is a conflict.
	if err := m.Cancel(id); !errors.Is(err, errkind.ErrConflict) {
		t.Errorf("Expected conflict on second cancel, got %v", err)
	}
}

func TestCancelPendingTask(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	release := make(chan struct{})
	defer close(release)
	holder := m.Submit("holder", func(ctx context.Context, report func(Progress)) (any, error) {
		<-release
		return nil, nil
	})
	waitForStatus(t, m, holder, StatusRunning)

	pending := m.Submit("queued", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})
	if err := m.Cancel(pending); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	waitForStatus(t, m, pending, StatusCancelled)
}

func TestGetUnknownTask(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()
	if _, err := m.Get("nope"); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := m.Cancel("nope"); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSubscribeReceivesProgressAndCloses(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	step := make(chan struct{})
	id := m.Submit("steps", func(ctx context.Context, report func(Progress)) (any, error) {
		<-step
		report(Progress{Current: 1, Total: 1, Message: "one"})
		return nil, nil
	})

	updates, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	close(step)

	var got []Progress
	for p := range updates {
		got = append(got, p)
	}
	if len(got) != 1 || got[0].Message != "one" {
		t.Errorf("Unexpected updates: %+v", got)
	}
	waitForStatus(t, m, id, StatusCompleted)
}

func TestSubscribeFinishedTaskIsClosed(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	id := m.Submit("quick", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})
	waitForStatus(t, m, id, StatusCompleted)

	updates, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if _, open := <-updates; open {
		t.Error("Expected closed channel for finished task")
	}
}

func TestSummaryCountsByStatus(t *testing.T) {
	m := NewManager(2)
	defer m.Shutdown()

	done := m.Submit("done", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})
	failed := m.Submit("failed", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, errors.New("nope")
	})
	waitForStatus(t, m, done, StatusCompleted)
	waitForStatus(t, m, failed, StatusFailed)

	summary := m.Summary()
	if summary[StatusCompleted] != 1 || summary[StatusFailed] != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestCleanupKeepsRecentTasks(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	id := m.Submit("recent", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})
	waitForStatus(t, m, id, StatusCompleted)

	if removed := m.Cleanup(); removed != 0 {
		t.Errorf("Expected recent task retained, removed %d", removed)
	}
	if _, err := m.Get(id); err != nil {
		t.Errorf("Expected task still queryable: %v", err)
	}
}

func TestCleanupDropsOldTasks(t *testing.T) {
	m := NewManager(1)
	defer m.Shutdown()

	id := m.Submit("old", func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, nil
	})
	waitForStatus(t, m, id, StatusCompleted)

	// Age the record past the retention window.
	m.mu.Lock()
	m.tasks[id].task.CompletedAt = time.Now().UTC().Add(-25 * time.Hour)
	m.mu.Unlock()

	if removed := m.Cleanup(); removed != 1 {
		t.Errorf("Expected one task removed, got %d", removed)
	}
	if _, err := m.Get(id); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("Expected task gone, got %v", err)
	}
}

func TestShutdownCancelsRunningTasks(t *testing.T) {
	m := NewManager(1)

	started := make(chan struct{})
	id := m.Submit("long", func(ctx context.Context, report func(Progress)) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started

	m.Shutdown()
	waitForStatus(t, m, id, StatusCancelled)
}
