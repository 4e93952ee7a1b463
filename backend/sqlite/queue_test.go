package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"offlinetasks/backend"
)

func TestEnqueueAndDrainFIFO(t *testing.T) {
	store, _, clock := createTestStore(t, true)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"id":%d}`, i))
		item, err := store.Enqueue(ctx, backend.OperationDelete, backend.TableTasks, int64(i), payload)
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if item.ID == 0 || item.RetryCount != 0 || item.State != backend.QueuePending {
			t.Errorf("Unexpected new item: %+v", item)
		}
		clock.Advance(time.Second)
	}

	items, err := store.Drain(ctx, clock.Now())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item.TaskID != int64(i+1) {
			t.Errorf("Item %d is for task %d, want FIFO order", i, item.TaskID)
		}
	}

	// Drain does not remove anything.
	again, _ := store.Drain(ctx, clock.Now())
	if len(again) != 3 {
		t.Errorf("Drain should be read-only, got %d items on second call", len(again))
	}

	if err := store.Remove(ctx, items[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, items[0].ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Removing twice should be not found, got %v", err)
	}
	left, _ := store.Drain(ctx, clock.Now())
	if len(left) != 2 {
		t.Errorf("Expected 2 items after remove, got %d", len(left))
	}
}

func TestEnqueue_Validation(t *testing.T) {
	store, _, _ := createTestStore(t, true)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, "upsert", backend.TableTasks, 1, json.RawMessage(`{}`)); !errors.Is(err, backend.ErrValidation) {
		t.Errorf("Expected validation error for unknown operation, got %v", err)
	}
	if _, err := store.Enqueue(ctx, backend.OperationCreate, backend.TableTasks, 1, json.RawMessage(`{`)); !errors.Is(err, backend.ErrValidation) {
		t.Errorf("Expected validation error for invalid payload, got %v", err)
	}
}

func TestIncrementRetry_BackoffAndDeadLetter(t *testing.T) {
	dbPath := t.TempDir() + "/queue.db"
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	policy := backend.RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	store, err := Open(dbPath, Options{Now: clock.Now, RetryPolicy: policy})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	item, _ := store.Enqueue(ctx, backend.OperationUpdate, backend.TableTasks, 1, json.RawMessage(`{"id":1,"title":"x"}`))
	cause := errors.New("connection refused")

	updated, err := store.IncrementRetry(ctx, item.ID, cause)
	if err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}
	if updated.RetryCount != 1 || updated.LastError != "connection refused" || updated.State != backend.QueuePending {
		t.Errorf("Unexpected item after first failure: %+v", updated)
	}
	if !updated.NextAttemptAt.Equal(clock.Now().Add(time.Second)) {
		t.Errorf("Expected next attempt in 1s, got %v", updated.NextAttemptAt.Sub(clock.Now()))
	}

	// Not due yet: the item stays queued but is skipped.
	if due, _ := store.Drain(ctx, clock.Now()); len(due) != 0 {
		t.Errorf("Item in backoff should not be drained, got %d", len(due))
	}
	clock.Advance(time.Second)
	if due, _ := store.Drain(ctx, clock.Now()); len(due) != 1 {
		t.Errorf("Item should be due after backoff, got %d", len(due))
	}

	store.IncrementRetry(ctx, item.ID, cause)
	dead, err := store.IncrementRetry(ctx, item.ID, cause)
	if err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}
	if dead.State != backend.QueueDead || dead.RetryCount != 3 {
		t.Errorf("Expected dead letter after 3 failures, got %+v", dead)
	}

	clock.Advance(time.Hour)
	if due, _ := store.Drain(ctx, clock.Now()); len(due) != 0 {
		t.Errorf("Dead letters must not be drained, got %d", len(due))
	}
	letters, _ := store.DeadLetters(ctx)
	if len(letters) != 1 {
		t.Fatalf("Expected 1 dead letter, got %d", len(letters))
	}

	n, err := store.Requeue(ctx, 0)
	if err != nil || n != 1 {
		t.Fatalf("Requeue failed: n=%d err=%v", n, err)
	}
	due, _ := store.Drain(ctx, clock.Now())
	if len(due) != 1 || due[0].RetryCount != 0 || due[0].LastError != "" {
		t.Errorf("Requeued item should be fresh and due: %+v", due)
	}

	if _, err := store.IncrementRetry(ctx, 999, cause); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := store.Requeue(ctx, 999); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestClearQueue(t *testing.T) {
	store, _, _ := createTestStore(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.Enqueue(ctx, backend.OperationDelete, backend.TableTasks, int64(i+1), json.RawMessage(`{"id":1}`))
	}
	items, _ := store.List(ctx, "")
	for i := 0; i < 5; i++ {
		store.IncrementRetry(ctx, items[0].ID, errors.New("boom"))
	}

	n, err := store.Clear(ctx, backend.QueueDead)
	if err != nil || n != 1 {
		t.Fatalf("Clear dead: n=%d err=%v", n, err)
	}
	n, err = store.Clear(ctx, "")
	if err != nil || n != 2 {
		t.Fatalf("Clear all: n=%d err=%v", n, err)
	}
}

func TestQueueSurvivesPurge(t *testing.T) {
	store, _, _ := createTestStore(t, false)
	ctx := context.Background()

	task, _ := store.Create(ctx, backend.NewTask{Title: "short lived"})
	store.Delete(ctx, task.ID)
	if _, err := store.Purge(ctx, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	items, _ := store.List(ctx, "")
	if len(items) != 2 {
		t.Errorf("Queue items are weak references and must survive a purge, got %d", len(items))
	}
}
