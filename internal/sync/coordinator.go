// Package sync runs the sync manager in the background: on reconnect, on a
// timer and after online writes.
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"offlinetasks/backend"
	backendsync "offlinetasks/backend/sync"
	"offlinetasks/internal/utils"
)

// Syncer is the part of the sync manager the coordinator drives.
type Syncer interface {
	Sync(ctx context.Context) (*backendsync.SyncResult, error)
	PushTask(ctx context.Context, task *backend.Task) error
}

// Monitor is the connectivity source the coordinator subscribes to.
type Monitor interface {
	backend.Connectivity
	OnOnline(fn func())
}

// Options configures a Coordinator.
type Options struct {
	// Interval between periodic syncs. Zero disables the ticker.
	Interval time.Duration
	// RunTimeout bounds one background sync run. Zero means no bound.
	RunTimeout time.Duration
}

// Coordinator orchestrates automatic background synchronization.
type Coordinator struct {
	syncer  Syncer
	monitor Monitor
	opts    Options

	// Goroutine management
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once

	// Prevents overlapping runs; triggers during a run are dropped
	syncing atomic.Bool
	started atomic.Bool

	// lifeMu orders wg.Add against Shutdown
	lifeMu   sync.Mutex
	shutdown bool

	mu         sync.Mutex
	lastRun    time.Time
	lastResult *backendsync.SyncResult
	lastErr    error
	runs       int
}

// NewCoordinator creates a coordinator. monitor may be nil, in which case the
// remote is assumed reachable.
func NewCoordinator(syncer Syncer, monitor Monitor, opts Options) (*Coordinator, error) {
	if syncer == nil {
		return nil, fmt.Errorf("sync manager is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		syncer:  syncer,
		monitor: monitor,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
	}, nil
}

// Start subscribes to reconnect events, starts the periodic ticker and runs
// an initial sync when online.
func (c *Coordinator) Start() error {
	if c.isShutdown() {
		return fmt.Errorf("coordinator is shut down")
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("coordinator already started")
	}

	if c.monitor != nil {
		c.monitor.OnOnline(func() { c.TriggerSync() })
	}

	if c.opts.Interval > 0 {
		c.spawn(c.tick)
	}

	c.TriggerSync()
	return nil
}

func (c *Coordinator) tick() {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.TriggerSync()
		}
	}
}

func (c *Coordinator) isShutdown() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.shutdown
}

// spawn runs fn on a tracked goroutine. It returns false once Shutdown has
// begun, so no wg.Add can race with wg.Wait.
func (c *Coordinator) spawn(fn func()) bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.shutdown {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

func (c *Coordinator) isOnline() bool {
	return c.monitor == nil || c.monitor.IsOnline()
}

// TriggerSync starts a background sync unless one is already running, the
// remote is offline or the coordinator is shutting down. It never blocks
// and reports whether a run was started.
func (c *Coordinator) TriggerSync() bool {
	if c.isShutdown() {
		return false
	}
	if !c.isOnline() {
		utils.Debugf("Skipping sync: offline")
		return false
	}
	if !c.syncing.CompareAndSwap(false, true) {
		utils.Debugf("Skipping sync: already running")
		return false
	}

	if !c.spawn(c.doSync) {
		c.syncing.Store(false)
		return false
	}
	return true
}

// doSync performs the actual synchronization
func (c *Coordinator) doSync() {
	defer c.syncing.Store(false)

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("Panic in background sync: %v", r)
		}
	}()

	ctx := c.ctx
	if c.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RunTimeout)
		defer cancel()
	}

	result, err := c.syncer.Sync(ctx)

	c.mu.Lock()
	c.lastRun = time.Now()
	c.lastResult = result
	c.lastErr = err
	c.runs++
	c.mu.Unlock()

	if err != nil {
		utils.Warnf("Background sync error: %v", err)
		return
	}
	if result.PushedTasks > 0 || result.PushedQueue > 0 {
		utils.Infof("Background sync completed: %s", result)
	}
}

// TriggerPush pushes one freshly written record in the background.
func (c *Coordinator) TriggerPush(task *backend.Task) {
	if task == nil || !c.isOnline() {
		return
	}
	snapshot := *task
	c.spawn(func() {
		if err := c.syncer.PushTask(c.ctx, &snapshot); err != nil {
			utils.Debugf("Background push of task %d failed: %v", snapshot.ID, err)
		}
	})
}

// LastRun returns the outcome of the most recent background sync.
func (c *Coordinator) LastRun() (at time.Time, result *backendsync.SyncResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, c.lastResult, c.lastErr
}

// Runs returns how many background syncs have completed.
func (c *Coordinator) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// Shutdown gracefully shuts down the coordinator, waiting for pending syncs.
// It returns false when they did not finish within timeout; those runs are
// then canceled.
func (c *Coordinator) Shutdown(timeout time.Duration) bool {
	c.lifeMu.Lock()
	c.shutdown = true
	c.lifeMu.Unlock()
	c.stopOnce.Do(func() { close(c.stop) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return true
	case <-time.After(timeout):
		utils.Warnf("Pending syncs did not complete within %v", timeout)
		c.cancel()
		return false
	}
}
