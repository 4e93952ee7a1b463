package sync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"offlinetasks/backend"
	"offlinetasks/backend/sqlite"
	backendsync "offlinetasks/backend/sync"
	"offlinetasks/internal/connectivity"
)

// fakeSyncer counts runs and can hold them open.
type fakeSyncer struct {
	runs   atomic.Int32
	pushes atomic.Int32
	hold   chan struct{}
	err    error
}

func (f *fakeSyncer) Sync(ctx context.Context) (*backendsync.SyncResult, error) {
	f.runs.Add(1)
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &backendsync.SyncResult{PushedTasks: 1}, nil
}

func (f *fakeSyncer) PushTask(ctx context.Context, task *backend.Task) error {
	f.pushes.Add(1)
	return nil
}

// fakeMonitor lets tests fire reconnect events directly.
type fakeMonitor struct {
	*backend.StaticConnectivity
	mu        sync.Mutex
	callbacks []func()
}

func newFakeMonitor(online bool) *fakeMonitor {
	return &fakeMonitor{StaticConnectivity: backend.NewStaticConnectivity(online)}
}

func (m *fakeMonitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func (m *fakeMonitor) reconnect() {
	m.Set(true)
	m.mu.Lock()
	callbacks := append([]func(){}, m.callbacks...)
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCoordinator_SyncsOnReconnect(t *testing.T) {
	syncer := &fakeSyncer{}
	monitor := newFakeMonitor(false)
	c, err := NewCoordinator(syncer, monitor, Options{})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Shutdown(time.Second)

	time.Sleep(20 * time.Millisecond)
	if syncer.runs.Load() != 0 {
		t.Error("No sync should run while offline")
	}

	monitor.reconnect()
	waitFor(t, "sync after reconnect", func() bool { return c.Runs() == 1 })

	at, result, err := c.LastRun()
	if at.IsZero() || result == nil || err != nil {
		t.Errorf("LastRun not recorded: at=%v result=%v err=%v", at, result, err)
	}
}

func TestCoordinator_DropsTriggersWhileRunning(t *testing.T) {
	syncer := &fakeSyncer{hold: make(chan struct{})}
	c, _ := NewCoordinator(syncer, newFakeMonitor(true), Options{})

	if !c.TriggerSync() {
		t.Fatal("First trigger should start a run")
	}
	for i := 0; i < 5; i++ {
		if c.TriggerSync() {
			t.Error("Triggers during a run must be dropped")
		}
	}
	close(syncer.hold)
	waitFor(t, "run to finish", func() bool { return c.Runs() == 1 })

	if !c.TriggerSync() {
		t.Error("A trigger after the run should start a new one")
	}
	c.Shutdown(time.Second)
	if n := syncer.runs.Load(); n != 2 {
		t.Errorf("Expected 2 runs, got %d", n)
	}
}

func TestCoordinator_PeriodicTicker(t *testing.T) {
	syncer := &fakeSyncer{}
	c, _ := NewCoordinator(syncer, nil, Options{Interval: 10 * time.Millisecond})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "periodic runs", func() bool { return syncer.runs.Load() >= 3 })

	if !c.Shutdown(time.Second) {
		t.Error("Shutdown should complete within the timeout")
	}
	n := syncer.runs.Load()
	time.Sleep(30 * time.Millisecond)
	if syncer.runs.Load() != n {
		t.Error("No runs should start after shutdown")
	}
	if c.TriggerSync() {
		t.Error("TriggerSync after shutdown should be ignored")
	}
	if err := c.Start(); err == nil {
		t.Error("Start after shutdown should fail")
	}
}

func TestCoordinator_ShutdownTimeoutCancelsRun(t *testing.T) {
	syncer := &fakeSyncer{hold: make(chan struct{})}
	c, _ := NewCoordinator(syncer, nil, Options{})
	c.TriggerSync()
	waitFor(t, "run to start", func() bool { return syncer.runs.Load() == 1 })

	if c.Shutdown(20 * time.Millisecond) {
		t.Error("Shutdown should report the timeout")
	}
	waitFor(t, "canceled run to record its error", func() bool {
		_, _, err := c.LastRun()
		return errors.Is(err, context.Canceled)
	})
}

func TestCoordinator_TriggerPush(t *testing.T) {
	syncer := &fakeSyncer{}
	monitor := newFakeMonitor(false)
	c, _ := NewCoordinator(syncer, monitor, Options{})

	c.TriggerPush(&backend.Task{ID: 1})
	monitor.Set(true)
	c.TriggerPush(&backend.Task{ID: 2})
	c.TriggerPush(nil)
	c.Shutdown(time.Second)

	if n := syncer.pushes.Load(); n != 1 {
		t.Errorf("Expected one push (online, non-nil), got %d", n)
	}
}

func TestCoordinator_TriggersRacingShutdown(t *testing.T) {
	syncer := &fakeSyncer{}
	c, _ := NewCoordinator(syncer, nil, Options{})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				c.TriggerPush(&backend.Task{ID: id})
				c.TriggerSync()
			}
		}(int64(i + 1))
	}

	close(start)
	if !c.Shutdown(time.Second) {
		t.Error("Shutdown should complete within the timeout")
	}
	pushes, runs := syncer.pushes.Load(), syncer.runs.Load()
	wg.Wait()

	time.Sleep(20 * time.Millisecond)
	if syncer.pushes.Load() != pushes || syncer.runs.Load() != runs {
		t.Errorf("Work started after Shutdown returned: pushes %d->%d runs %d->%d",
			pushes, syncer.pushes.Load(), runs, syncer.runs.Load())
	}
}

func TestNewCoordinator_RequiresSyncer(t *testing.T) {
	if _, err := NewCoordinator(nil, nil, Options{}); err == nil {
		t.Error("Expected error without a syncer")
	}
}

// End to end: offline writes drain once the monitor reports a reconnect.
func TestCoordinator_WithMonitorAndStore(t *testing.T) {
	monitor := connectivity.NewMonitor(connectivity.Options{Initial: false, Debounce: 5 * time.Millisecond})
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), sqlite.Options{Connectivity: monitor})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	remote := backend.NewMockRemote()
	manager := backendsync.NewManager(store, remote, time.Second)
	c, _ := NewCoordinator(manager, monitor, Options{})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Shutdown(time.Second)

	ctx := context.Background()
	task, _ := store.Create(ctx, backend.NewTask{Title: "written offline"})
	if task.Sync.IsSynced {
		t.Fatal("Offline write should be unsynced")
	}

	monitor.Set(true)
	waitFor(t, "queue to drain", func() bool {
		items, _ := store.List(ctx, "")
		return len(items) == 0
	})
	waitFor(t, "record to be synced", func() bool {
		got, _ := store.GetByID(ctx, task.ID)
		return got != nil && got.Sync.IsSynced
	})
	if _, ok := remote.Stored(task.ID); !ok {
		t.Error("Remote should hold the task")
	}
}
