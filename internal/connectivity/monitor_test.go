package connectivity

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

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

func TestMonitor_TriggersOnceOnReconnect(t *testing.T) {
	m := NewMonitor(Options{Initial: false, Debounce: 10 * time.Millisecond})
	var fired atomic.Int32
	m.OnOnline(func() { fired.Add(1) })

	m.Set(true)
	m.Set(true) // no transition
	if !m.IsOnline() {
		t.Fatal("Expected online after Set(true)")
	}
	waitFor(t, "reconnect trigger", func() bool { return fired.Load() == 1 })

	time.Sleep(30 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("Expected exactly one trigger, got %d", n)
	}
}

func TestMonitor_FlapInsideDebounceCancels(t *testing.T) {
	m := NewMonitor(Options{Initial: false, Debounce: 50 * time.Millisecond})
	var fired atomic.Int32
	m.OnOnline(func() { fired.Add(1) })

	m.Set(true)
	m.Set(false)
	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("Flap inside the debounce window should not trigger, got %d", n)
	}

	m.Set(true)
	waitFor(t, "trigger after settling online", func() bool { return fired.Load() == 1 })
}

func TestMonitor_GoingOfflineDoesNotTrigger(t *testing.T) {
	m := NewMonitor(Options{Initial: true})
	var fired atomic.Int32
	m.OnOnline(func() { fired.Add(1) })

	m.Set(false)
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 || m.IsOnline() {
		t.Error("Online to offline must not trigger a sync")
	}
}

func TestMonitor_MarkerForcesOffline(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "state", "offline")
	if err := SetOfflineMarker(marker, true); err != nil {
		t.Fatalf("SetOfflineMarker failed: %v", err)
	}

	m := NewMonitor(Options{Initial: true, MarkerPath: marker})
	var fired atomic.Int32
	m.OnOnline(func() { fired.Add(1) })
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	if m.IsOnline() {
		t.Fatal("Existing marker should force offline at start")
	}
	if !m.Status().Forced || !MarkerPresent(marker) {
		t.Error("Status should report the override")
	}

	if err := SetOfflineMarker(marker, false); err != nil {
		t.Fatalf("SetOfflineMarker failed: %v", err)
	}
	waitFor(t, "marker removal", m.IsOnline)
	waitFor(t, "reconnect trigger", func() bool { return fired.Load() == 1 })

	if err := SetOfflineMarker(marker, true); err != nil {
		t.Fatalf("SetOfflineMarker failed: %v", err)
	}
	waitFor(t, "marker creation", func() bool { return !m.IsOnline() })

	// Removing a missing marker is not an error.
	os.Remove(marker)
	if err := SetOfflineMarker(marker, false); err != nil {
		t.Errorf("Removing a missing marker should succeed: %v", err)
	}
}

func TestMonitor_Probe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	m := NewMonitor(Options{Initial: false, ProbeAddr: listener.Addr().String(), ProbeTimeout: time.Second})
	if err := m.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if !m.IsOnline() {
		t.Error("Successful probe should go online")
	}

	m.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("no route to host")
	}
	if err := m.Probe(context.Background()); err == nil {
		t.Error("Expected probe error")
	}
	status := m.Status()
	if status.Online || status.ProbeError == "" || status.LastProbe.IsZero() {
		t.Errorf("Failed probe should go offline and be reported: %+v", status)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	var dials atomic.Int32
	m := NewMonitor(Options{ProbeAddr: "example.invalid:443", ProbeInterval: 10 * time.Millisecond})
	m.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		dials.Add(1)
		return nil, errors.New("offline")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("Second Start should fail")
	}
	waitFor(t, "periodic probes", func() bool { return dials.Load() >= 2 })

	m.Stop()
	n := dials.Load()
	time.Sleep(30 * time.Millisecond)
	if dials.Load() != n {
		t.Error("Probing should stop after Stop")
	}
	m.Stop()
}

func TestMonitor_Refresh(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "offline")
	m := NewMonitor(Options{Initial: true, ProbeAddr: "example.invalid:443", MarkerPath: marker})
	var dials atomic.Int32
	m.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}

	if err := SetOfflineMarker(marker, true); err != nil {
		t.Fatalf("SetOfflineMarker failed: %v", err)
	}
	if err := m.Refresh(context.Background()); err != nil {
		t.Errorf("Forced refresh should not probe: %v", err)
	}
	if m.IsOnline() || dials.Load() != 0 {
		t.Errorf("Marker should force offline without dialing (dials=%d)", dials.Load())
	}

	SetOfflineMarker(marker, false)
	if err := m.Refresh(context.Background()); err == nil {
		t.Error("Expected the failing probe error")
	}
	if m.IsOnline() || m.Status().Reachable {
		t.Errorf("Failed probe should leave the monitor offline: %+v", m.Status())
	}
	if dials.Load() != 1 {
		t.Errorf("Expected one dial, got %d", dials.Load())
	}
}
