package backend

// This file contains shared test helpers and mocks used across package tests.
// They live outside _test.go files so the sqlite, sync and app tests can use them.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
)

// RemoteCall records one request received by MockRemote.
type RemoteCall struct {
	Operation Operation
	TaskID    int64
	Payload   json.RawMessage
}

// MockRemote implements Remote in memory for testing.
type MockRemote struct {
	mu       sync.Mutex
	tasks    map[int64]json.RawMessage
	calls    []RemoteCall
	failures map[int64]error // task id -> error returned for any call
	failAll  error
	block    chan struct{}
}

// NewMockRemote creates a remote that accepts every call.
func NewMockRemote() *MockRemote {
	return &MockRemote{
		tasks:    make(map[int64]json.RawMessage),
		failures: make(map[int64]error),
	}
}

// FailAll makes every call return err (nil restores normal behaviour).
func (m *MockRemote) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// FailTask makes calls for one task return err (nil clears).
func (m *MockRemote) FailTask(id int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, id)
		return
	}
	m.failures[id] = err
}

// BlockUntil makes calls wait until the returned function is called.
func (m *MockRemote) BlockUntil() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.block = ch
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(ch)
		}
	}
}

// Calls returns a copy of the received calls in order.
func (m *MockRemote) Calls() []RemoteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RemoteCall(nil), m.calls...)
}

// Stored returns the last payload the remote holds for id.
func (m *MockRemote) Stored(id int64) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.tasks[id]
	return p, ok
}

func (m *MockRemote) record(ctx context.Context, op Operation, id int64, payload json.RawMessage) error {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return NewRemoteError(string(op), 0, "request canceled").WithTaskID(id).WithError(ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, RemoteCall{Operation: op, TaskID: id, Payload: payload})
	if m.failAll != nil {
		return m.failAll
	}
	if err, ok := m.failures[id]; ok {
		return err
	}
	return nil
}

func (m *MockRemote) CreateTask(ctx context.Context, payload json.RawMessage) error {
	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return NewRemoteError("CreateTask", http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
	}
	if err := m.record(ctx, OperationCreate, body.ID, payload); err != nil {
		return err
	}
	m.mu.Lock()
	m.tasks[body.ID] = payload
	m.mu.Unlock()
	return nil
}

func (m *MockRemote) UpdateTask(ctx context.Context, id int64, payload json.RawMessage) error {
	if err := m.record(ctx, OperationUpdate, id, payload); err != nil {
		return err
	}
	m.mu.Lock()
	m.tasks[id] = payload
	m.mu.Unlock()
	return nil
}

func (m *MockRemote) DeleteTask(ctx context.Context, id int64) error {
	if err := m.record(ctx, OperationDelete, id, nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return NewRemoteError("DeleteTask", http.StatusNotFound, "task not found").WithTaskID(id)
	}
	delete(m.tasks, id)
	return nil
}

// StaticConnectivity is a Connectivity whose state tests flip directly.
type StaticConnectivity struct {
	online atomic.Bool
}

// NewStaticConnectivity returns a connectivity fixed at online.
func NewStaticConnectivity(online bool) *StaticConnectivity {
	c := &StaticConnectivity{}
	c.online.Store(online)
	return c
}

func (c *StaticConnectivity) IsOnline() bool { return c.online.Load() }

// Set changes the reported state.
func (c *StaticConnectivity) Set(online bool) { c.online.Store(online) }
