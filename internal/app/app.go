// Package app wires the store, the sync manager, the connectivity monitor and
// the background coordinator into the surface the CLI uses.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offlinetasks/backend"
	"offlinetasks/backend/remote"
	"offlinetasks/backend/sqlite"
	backendsync "offlinetasks/backend/sync"
	"offlinetasks/internal/config"
	"offlinetasks/internal/connectivity"
	"offlinetasks/internal/credentials"
	"offlinetasks/internal/legacy"
	isync "offlinetasks/internal/sync"
	"offlinetasks/internal/utils"
)

// Options tunes New. The zero value builds everything from the config.
type Options struct {
	// Remote replaces the HTTP client built from the config.
	Remote backend.Remote
	// Resolver looks up the remote token. Nil uses credentials.NewResolver.
	Resolver *credentials.Resolver
	// SkipProbe leaves connectivity at its initial state instead of dialing
	// the remote once during New.
	SkipProbe bool
	// Now overrides the store clock, for tests.
	Now func() time.Time
}

// App holds the application state
type App struct {
	config      *config.Config
	store       *sqlite.Store
	monitor     *connectivity.Monitor
	manager     *backendsync.Manager
	coordinator *isync.Coordinator
	syncErr     error // why sync is unavailable when manager is nil
	markerPath  string
}

// New opens the store and sets up sync according to cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	markerPath, err := cfg.MarkerPath()
	if err != nil {
		return nil, err
	}

	monitor := connectivity.NewMonitor(connectivity.Options{
		Initial:       true,
		ProbeAddr:     cfg.ProbeAddress(),
		ProbeInterval: cfg.Connectivity.ProbeInterval,
		ProbeTimeout:  cfg.Connectivity.ProbeTimeout,
		Debounce:      cfg.Connectivity.Debounce,
		MarkerPath:    markerPath,
	})

	a := &App{
		config:     cfg,
		monitor:    monitor,
		markerPath: markerPath,
	}

	store, err := sqlite.Open(dbPath, sqlite.Options{
		Connectivity: monitor,
		RetryPolicy:  cfg.Sync.Retry,
		Now:          opts.Now,
		OnComplete:   a.taskCompleted,
	})
	if err != nil {
		return nil, err
	}
	a.store = store

	if cfg.Sync.Enabled || opts.Remote != nil {
		client := opts.Remote
		if client == nil {
			client, err = newRemoteClient(cfg, opts.Resolver)
		}
		if err != nil {
			a.syncErr = err
			utils.Debugf("Sync unavailable: %v", err)
		} else {
			a.manager = backendsync.NewManager(store, client, cfg.Remote.Timeout)
		}
	} else {
		a.syncErr = utils.ErrSyncNotConfigured()
	}

	if !opts.SkipProbe {
		if a.manager == nil {
			// Nothing to probe; only the offline marker applies
			monitor.Refresh(ctx)
		} else if err := monitor.Refresh(ctx); err != nil {
			utils.Debugf("Remote unreachable: %v", err)
		}
	}
	return a, nil
}

func newRemoteClient(cfg *config.Config, resolver *credentials.Resolver) (backend.Remote, error) {
	if resolver == nil {
		resolver = credentials.NewResolver()
	}
	creds, err := resolver.Resolve(cfg.Remote.URL)
	if err != nil {
		return nil, err
	}
	utils.Debugf("Using remote %s (token from %s)", creds.URL, creds.Source)
	return remote.NewClient(creds.URL, creds.Token, cfg.Remote.Timeout), nil
}

func (a *App) taskCompleted(task backend.Task) {
	utils.Infof("Task %d completed", task.ID)
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Store exposes the entity store.
func (a *App) Store() *sqlite.Store {
	return a.store
}

// Monitor exposes the connectivity monitor.
func (a *App) Monitor() *connectivity.Monitor {
	return a.monitor
}

// SyncEnabled reports whether a remote is configured and reachable in principle.
func (a *App) SyncEnabled() bool {
	return a.manager != nil
}

// Close stops background work and closes the database.
func (a *App) Close() error {
	a.StopBackground(10 * time.Second)
	return a.store.Close()
}

// Create adds a task.
func (a *App) Create(ctx context.Context, in backend.NewTask) (*backend.Task, error) {
	task, err := a.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	a.afterWrite(ctx, task)
	return task, nil
}

// Get returns an active task or a not-found error.
func (a *App) Get(ctx context.Context, id int64) (*backend.Task, error) {
	task, err := a.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, backend.NotFoundError("Get", id)
	}
	return task, nil
}

// Update applies patch to task id.
func (a *App) Update(ctx context.Context, id int64, patch backend.TaskPatch) (*backend.Task, error) {
	task, err := a.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	a.afterWrite(ctx, task)
	return task, nil
}

// Block marks a task blocked with reason.
func (a *App) Block(ctx context.Context, id int64, reason string) (*backend.Task, error) {
	blocked := true
	return a.Update(ctx, id, backend.TaskPatch{Blocked: &blocked, BlockedReason: &reason})
}

// Unblock clears the block on a task.
func (a *App) Unblock(ctx context.Context, id int64) (*backend.Task, error) {
	blocked := false
	return a.Update(ctx, id, backend.TaskPatch{Blocked: &blocked})
}

// Delete soft-deletes a task.
func (a *App) Delete(ctx context.Context, id int64) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	task, err := a.store.GetIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	a.afterWrite(ctx, task)
	return nil
}

// Move reorders a task and returns how many tasks changed position.
func (a *App) Move(ctx context.Context, id int64, position int) (int, error) {
	touched, err := a.store.Move(ctx, id, position)
	if err != nil {
		return 0, err
	}
	for i := range touched {
		a.afterWrite(ctx, &touched[i])
	}
	return len(touched), nil
}

// Search runs a filtered, sorted, paginated query.
func (a *App) Search(ctx context.Context, filter backend.Filter, page backend.Pagination) (*backend.Page, error) {
	return a.store.Search(ctx, filter, page)
}

// Count returns how many active tasks match filter.
func (a *App) Count(ctx context.Context, filter backend.Filter) (int, error) {
	return a.store.Count(ctx, filter)
}

// afterWrite pushes a record written while online. Offline writes are
// already queued by the store. Without auto_sync the record is left for the
// next explicit sync.
func (a *App) afterWrite(ctx context.Context, task *backend.Task) {
	if task == nil || a.manager == nil || !task.Sync.IsSynced {
		return
	}
	if !a.config.Sync.AutoSync {
		if err := a.store.MarkUnsynced(ctx, task.ID); err != nil {
			utils.Warnf("Could not flag task %d for sync: %v", task.ID, err)
		}
		return
	}
	if a.coordinator != nil {
		a.coordinator.TriggerPush(task)
		return
	}
	if err := a.manager.PushTask(ctx, task); err != nil {
		utils.Warnf("Could not push task %d, it will be retried on the next sync: %v", task.ID, err)
	}
}

// Sync runs one synchronization pass. full first marks every record unsynced.
func (a *App) Sync(ctx context.Context, full bool) (*backendsync.SyncResult, error) {
	if a.manager == nil {
		return nil, a.syncErr
	}
	if !a.monitor.IsOnline() {
		status := a.monitor.Status()
		reason := status.ProbeError
		if status.Forced {
			reason = "offline marker is set"
		}
		return nil, utils.ErrRemoteOffline(reason)
	}

	var (
		result *backendsync.SyncResult
		err    error
	)
	if full {
		result, err = a.manager.FullSync(ctx)
	} else {
		result, err = a.manager.Sync(ctx)
	}
	if errors.Is(err, backend.ErrSyncInProgress) {
		return nil, utils.ErrSyncInProgress()
	}
	return result, err
}

// Queue lists queued operations, optionally only in state.
func (a *App) Queue(ctx context.Context, state backend.QueueState) ([]backend.SyncOperation, error) {
	return a.store.List(ctx, state)
}

// RequeueDead moves dead letters back to pending; id 0 requeues all.
func (a *App) RequeueDead(ctx context.Context, id int64) (int, error) {
	return a.store.Requeue(ctx, id)
}

// ClearQueue drops queued operations, optionally only in state.
func (a *App) ClearQueue(ctx context.Context, state backend.QueueState) (int, error) {
	return a.store.Clear(ctx, state)
}

// Conflicts lists records waiting for manual resolution.
func (a *App) Conflicts(ctx context.Context) ([]backend.Task, error) {
	return a.store.Conflicts(ctx)
}

// ResolveConflict settles a manual conflict. Choosing local pushes the record
// again right away when online.
func (a *App) ResolveConflict(ctx context.Context, id int64, resolution backend.ConflictResolution) error {
	if err := a.store.ResolveConflict(ctx, id, resolution); err != nil {
		return err
	}
	if resolution != backend.ConflictLocal || a.manager == nil || !a.monitor.IsOnline() {
		return nil
	}
	task, err := a.store.GetIncludingDeleted(ctx, id)
	if err != nil || task == nil {
		return err
	}
	if err := a.manager.PushTask(ctx, task); err != nil {
		utils.Warnf("Could not push task %d, it will be retried on the next sync: %v", id, err)
	}
	return nil
}

// MigrateFromLegacy imports the flat JSON file at path (the configured
// legacy path when empty).
func (a *App) MigrateFromLegacy(ctx context.Context, path string) (int, error) {
	if path == "" {
		var err error
		if path, err = a.config.LegacyPath(); err != nil {
			return 0, err
		}
	}
	utils.Debugf("Migrating legacy tasks from %s", path)
	return a.store.MigrateFromLegacy(ctx, legacy.NewFileStorage(path))
}

// Export returns a snapshot of every record.
func (a *App) Export(ctx context.Context) (*backend.Snapshot, error) {
	return a.store.Export(ctx)
}

// Import replaces the store contents with snapshot.
func (a *App) Import(ctx context.Context, snapshot *backend.Snapshot) (int, error) {
	return a.store.Import(ctx, snapshot)
}

// Info returns database statistics.
func (a *App) Info(ctx context.Context) (*sqlite.DatabaseInfo, error) {
	return a.store.Info(ctx)
}

// Purge hard-deletes tombstones last modified before cutoff.
func (a *App) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return a.store.Purge(ctx, cutoff)
}

// Vacuum compacts the database file.
func (a *App) Vacuum(ctx context.Context) error {
	return a.store.Vacuum(ctx)
}

// SetOffline creates or removes the offline marker.
func (a *App) SetOffline(offline bool) error {
	if err := connectivity.SetOfflineMarker(a.markerPath, offline); err != nil {
		return err
	}
	return a.monitor.Refresh(context.Background())
}

// Status summarizes connectivity and the sync backlog.
type Status struct {
	Connectivity connectivity.Status  `json:"connectivity" yaml:"connectivity"`
	SyncEnabled  bool                 `json:"sync_enabled" yaml:"sync_enabled"`
	SyncError    string               `json:"sync_error,omitempty" yaml:"sync_error,omitempty"`
	Database     *sqlite.DatabaseInfo `json:"database" yaml:"database"`
	LastRun      time.Time            `json:"last_run,omitempty" yaml:"last_run,omitempty"`
	LastResult   string               `json:"last_result,omitempty" yaml:"last_result,omitempty"`
}

// Status returns the current sync status.
func (a *App) Status(ctx context.Context) (*Status, error) {
	info, err := a.store.Info(ctx)
	if err != nil {
		return nil, err
	}
	s := &Status{
		Connectivity: a.monitor.Status(),
		SyncEnabled:  a.manager != nil,
		Database:     info,
	}
	if a.syncErr != nil {
		s.SyncError = a.syncErr.Error()
	}
	if a.coordinator != nil {
		at, result, runErr := a.coordinator.LastRun()
		s.LastRun = at
		if runErr != nil {
			s.LastResult = runErr.Error()
		} else if result != nil {
			s.LastResult = result.String()
		}
	}
	return s, nil
}

// StartBackground starts connectivity monitoring and the sync coordinator.
// Used by the daemon; short-lived commands push inline instead.
func (a *App) StartBackground(ctx context.Context) error {
	if a.manager == nil {
		return a.syncErr
	}
	if a.coordinator != nil {
		return fmt.Errorf("background sync already running")
	}

	coordinator, err := isync.NewCoordinator(a.manager, a.monitor, isync.Options{
		Interval:   a.config.Sync.Interval,
		RunTimeout: a.config.Sync.RunTimeout,
	})
	if err != nil {
		return err
	}
	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	if err := coordinator.Start(); err != nil {
		a.monitor.Stop()
		return err
	}
	a.coordinator = coordinator
	return nil
}

// StopBackground stops the coordinator and the monitor. It reports whether
// pending syncs finished within timeout.
func (a *App) StopBackground(timeout time.Duration) bool {
	if a.coordinator == nil {
		return true
	}
	finished := a.coordinator.Shutdown(timeout)
	a.monitor.Stop()
	a.coordinator = nil
	return finished
}

// RunBackgroundSync runs one bounded sync for the detached helper process.
func (a *App) RunBackgroundSync(ctx context.Context, logger *utils.BackgroundLogger) error {
	if a.manager == nil {
		return a.syncErr
	}
	if !a.monitor.IsOnline() {
		logger.Printf("Remote offline, skipping background sync")
		return nil
	}
	return isync.RunBackgroundSync(ctx, a.manager, a.config.Sync.RunTimeout, logger)
}
