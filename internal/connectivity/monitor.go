// Package connectivity tracks whether the sync remote is reachable.
//
// The monitor is a two-state machine (online/offline) fed by three inputs:
// explicit Set calls from the platform, a periodic TCP probe against the
// remote host, and an "offline" marker file that forces the offline state
// while it exists. Going from offline to online fires the registered
// callbacks once, after a debounce; flapping back offline inside the window
// cancels the pending trigger.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"offlinetasks/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// Default timings.
const (
	DefaultDebounce      = 2 * time.Second
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// Options configures a Monitor.
type Options struct {
	// Initial is the state before any input arrives.
	Initial bool
	// ProbeAddr is the host:port to dial. Empty disables probing.
	ProbeAddr     string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	// Debounce delays the reconnect trigger.
	Debounce time.Duration
	// MarkerPath is the offline override file. Empty disables the override.
	MarkerPath string
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Online     bool      `json:"online"`
	Reachable  bool      `json:"reachable"`
	Forced     bool      `json:"forced_offline"`
	LastChange time.Time `json:"last_change"`
	LastProbe  time.Time `json:"last_probe,omitempty"`
	ProbeError string    `json:"probe_error,omitempty"`
}

func (s Status) String() string {
	state := "offline"
	if s.Online {
		state = "online"
	}
	if s.Forced {
		state += " (forced by marker)"
	}
	return state
}

// Monitor implements backend.Connectivity.
type Monitor struct {
	opts Options
	dial func(ctx context.Context, network, address string) (net.Conn, error)

	mu         sync.Mutex
	reachable  bool
	forced     bool
	generation uint64
	timer      *time.Timer
	callbacks  []func()
	lastChange time.Time
	lastProbe  time.Time
	probeErr   error

	running bool
	cancel  context.CancelFunc
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewMonitor creates a stopped monitor.
func NewMonitor(opts Options) *Monitor {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = DefaultProbeInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	dialer := &net.Dialer{}
	return &Monitor{
		opts:       opts,
		dial:       dialer.DialContext,
		reachable:  opts.Initial,
		lastChange: time.Now(),
	}
}

// IsOnline reports the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onlineLocked()
}

func (m *Monitor) onlineLocked() bool {
	return m.reachable && !m.forced
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		Online:     m.onlineLocked(),
		Reachable:  m.reachable,
		Forced:     m.forced,
		LastChange: m.lastChange,
		LastProbe:  m.lastProbe,
	}
	if m.probeErr != nil {
		s.ProbeError = m.probeErr.Error()
	}
	return s
}

// OnOnline registers fn to run after each debounced offline to online transition.
// Callbacks run on their own goroutine.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Set records a platform connectivity event.
func (m *Monitor) Set(online bool) {
	m.update(func() { m.reachable = online })
}

func (m *Monitor) setForced(forced bool) {
	m.update(func() { m.forced = forced })
}

// update applies change and handles a resulting transition.
func (m *Monitor) update(change func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.onlineLocked()
	change()
	after := m.onlineLocked()
	if before == after {
		return
	}

	m.lastChange = time.Now()
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	if !after {
		utils.Infof("Connectivity: offline")
		return
	}

	utils.Infof("Connectivity: online")
	gen := m.generation
	m.timer = time.AfterFunc(m.opts.Debounce, func() { m.fire(gen) })
}

// fire runs the callbacks if no transition happened since gen was scheduled.
func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || !m.onlineLocked() {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	callbacks := append([]func(){}, m.callbacks...)
	m.mu.Unlock()

	utils.Debugf("Connectivity: reconnect trigger (%d callbacks)", len(callbacks))
	for _, fn := range callbacks {
		fn()
	}
}

// Start begins probing and watching the marker file.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	if m.opts.MarkerPath != "" {
		if err := m.watchMarker(ctx); err != nil {
			m.Stop()
			return err
		}
	}

	if m.opts.ProbeAddr != "" {
		m.wg.Add(1)
		go m.probeLoop(ctx)
	}
	return nil
}

// Stop halts background work and cancels any pending trigger.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	watcher := m.watcher
	m.watcher = nil
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	cancel()
	if watcher != nil {
		watcher.Close()
	}
	m.wg.Wait()
}

// Probe dials the probe address once and records the result.
func (m *Monitor) Probe(ctx context.Context) error {
	if m.opts.ProbeAddr == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	conn, err := m.dial(ctx, "tcp", m.opts.ProbeAddr)
	if err == nil {
		conn.Close()
	}

	m.mu.Lock()
	m.lastProbe = time.Now()
	m.probeErr = err
	m.mu.Unlock()

	if err != nil {
		utils.Debugf("Connectivity probe to %s failed: %v", m.opts.ProbeAddr, err)
	}
	m.Set(err == nil)
	return err
}

// Refresh re-reads the marker and probes once. Short-lived processes use it
// instead of Start. The probe is skipped while the marker forces offline.
func (m *Monitor) Refresh(ctx context.Context) error {
	if m.opts.MarkerPath != "" {
		m.setForced(markerExists(m.opts.MarkerPath))
	}
	m.mu.Lock()
	forced := m.forced
	m.mu.Unlock()
	if forced {
		return nil
	}
	return m.Probe(ctx)
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// watchMarker watches the marker's directory, since the file itself comes and goes.
func (m *Monitor) watchMarker(ctx context.Context) error {
	dir := filepath.Dir(m.opts.MarkerPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	m.setForced(markerExists(m.opts.MarkerPath))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(m.opts.MarkerPath) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				m.setForced(markerExists(m.opts.MarkerPath))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				utils.Warnf("Connectivity marker watcher: %v", err)
			}
		}
	}()
	return nil
}

func markerExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SetOfflineMarker creates (offline=true) or removes the override file.
func SetOfflineMarker(path string, offline bool) error {
	if !offline {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove offline marker: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write offline marker: %w", err)
	}
	return nil
}

// MarkerPresent reports whether the override file exists.
func MarkerPresent(path string) bool {
	return path != "" && markerExists(path)
}
