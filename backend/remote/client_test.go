package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"offlinetasks/backend"
)

type recordedRequest struct {
	Method         string
	Path           string
	Authorization  string
	IdempotencyKey string
	Body           string
}

// mockRemoteServer mimics the entity endpoint. Ids listed in conflicts answer 409.
func mockRemoteServer(t *testing.T, conflicts map[string]bool) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	stored := make(map[string]bool)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, recordedRequest{
			Method:         r.Method,
			Path:           r.URL.Path,
			Authorization:  r.Header.Get("Authorization"),
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Body:           string(body),
		})

		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/entities/")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/entities":
			var head struct {
				ID json.Number `json:"id"`
			}
			json.Unmarshal(body, &head)
			stored[head.ID.String()] = true
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && conflicts[id]:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"version mismatch"}`))
		case r.Method == http.MethodPut:
			stored[id] = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		case r.Method == http.MethodDelete:
			if !stored[id] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(stored, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	server, requests := mockRemoteServer(t, nil)
	client := NewClient(server.URL+"/", "secret", time.Second)
	ctx := context.Background()

	if err := client.CreateTask(ctx, json.RawMessage(`{"id":7,"title":"Buy milk"}`)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := client.UpdateTask(ctx, 7, json.RawMessage(`{"id":7,"priority":"alta"}`)); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if err := client.DeleteTask(ctx, 7); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	got := *requests
	if len(got) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(got))
	}
	want := []struct{ method, path string }{
		{http.MethodPost, "/entities"},
		{http.MethodPut, "/entities/7"},
		{http.MethodDelete, "/entities/7"},
	}
	for i, w := range want {
		if got[i].Method != w.method || got[i].Path != w.path {
			t.Errorf("Request %d: got %s %s, want %s %s", i, got[i].Method, got[i].Path, w.method, w.path)
		}
		if got[i].Authorization != "Bearer secret" {
			t.Errorf("Request %d missing bearer token", i)
		}
		if got[i].IdempotencyKey == "" {
			t.Errorf("Request %d missing idempotency key", i)
		}
	}
	if got[1].Body != `{"id":7,"priority":"alta"}` {
		t.Errorf("Update body not forwarded verbatim: %s", got[1].Body)
	}
}

func TestClient_IdempotencyKeyIsStable(t *testing.T) {
	server, requests := mockRemoteServer(t, nil)
	client := NewClient(server.URL, "secret", time.Second)
	ctx := context.Background()

	payload := json.RawMessage(`{"id":3,"title":"again"}`)
	client.UpdateTask(ctx, 3, payload)
	client.UpdateTask(ctx, 3, payload)
	client.UpdateTask(ctx, 3, json.RawMessage(`{"id":3,"title":"different"}`))

	got := *requests
	if got[0].IdempotencyKey != got[1].IdempotencyKey {
		t.Error("Replaying the same operation should reuse the idempotency key")
	}
	if got[0].IdempotencyKey == got[2].IdempotencyKey {
		t.Error("Different payloads should have different idempotency keys")
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	server, _ := mockRemoteServer(t, map[string]bool{"9": true})
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func(c *Client) error
		token      string
		wantStatus int
		check      func(*backend.RemoteError) bool
	}{
		{
			name:       "conflict",
			token:      "secret",
			call:       func(c *Client) error { return c.UpdateTask(ctx, 9, json.RawMessage(`{"id":9}`)) },
			wantStatus: http.StatusConflict,
			check:      (*backend.RemoteError).IsConflict,
		},
		{
			name:       "delete unknown",
			token:      "secret",
			call:       func(c *Client) error { return c.DeleteTask(ctx, 42) },
			wantStatus: http.StatusNotFound,
			check:      (*backend.RemoteError).IsNotFound,
		},
		{
			name:       "bad token",
			token:      "wrong",
			call:       func(c *Client) error { return c.DeleteTask(ctx, 1) },
			wantStatus: http.StatusUnauthorized,
			check:      (*backend.RemoteError).IsUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(NewClient(server.URL, tt.token, time.Second))
			re, ok := backend.AsRemoteError(err)
			if !ok {
				t.Fatalf("Expected RemoteError, got %v", err)
			}
			if re.StatusCode != tt.wantStatus || !tt.check(re) {
				t.Errorf("Unexpected error: %+v", re)
			}
			if !errors.Is(err, backend.ErrSyncTransient) {
				t.Error("Remote errors should match ErrSyncTransient")
			}
		})
	}
}

func TestClient_ConflictKeepsBody(t *testing.T) {
	server, _ := mockRemoteServer(t, map[string]bool{"5": true})
	err := NewClient(server.URL, "secret", time.Second).UpdateTask(context.Background(), 5, json.RawMessage(`{"id":5}`))
	re, _ := backend.AsRemoteError(err)
	if re == nil || !strings.Contains(re.Body, "version mismatch") || re.TaskID != 5 {
		t.Errorf("Expected body and task id on error, got %+v", re)
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url, "secret", time.Second).DeleteTask(context.Background(), 1)
	re, ok := backend.AsRemoteError(err)
	if !ok {
		t.Fatalf("Expected RemoteError, got %v", err)
	}
	if re.StatusCode != 0 || re.Err == nil {
		t.Errorf("Network failures should have no status and keep the cause: %+v", re)
	}
	if err := NewClient(url, "secret", time.Second).Ping(context.Background()); err == nil {
		t.Error("Ping against a closed server should fail")
	}
}

func TestClient_CreateRejectsInvalidPayload(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "secret", time.Second)
	if err := client.CreateTask(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Error("Expected error for invalid payload")
	}
}
