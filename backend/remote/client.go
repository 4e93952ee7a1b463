// Package remote implements the HTTP seam to the sync server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"offlinetasks/backend"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single remote call when the caller gives none.
const DefaultTimeout = 30 * time.Second

// Client talks to the remote entity endpoint:
//
//	POST   {base}/entities       create
//	PUT    {base}/entities/{id}  update or upsert
//	DELETE {base}/entities/{id}  delete
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ backend.Remote = (*Client)(nil)

// NewClient creates a client for baseURL authenticated with a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// idempotencyKey derives a stable key from the request so a replayed
// operation carries the same key as the original attempt.
func idempotencyKey(method, path string, body []byte) string {
	data := make([]byte, 0, len(method)+len(path)+len(body)+2)
	data = append(data, method...)
	data = append(data, ' ')
	data = append(data, path...)
	data = append(data, '\n')
	data = append(data, body...)
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String()
}

// doRequest performs an authenticated request.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey(method, path, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// checkResponse maps non-2xx statuses to a RemoteError.
func checkResponse(resp *http.Response, operation string, taskID int64) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var msg string
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = "Authentication failed. Check the remote token"
	case http.StatusNotFound:
		msg = "Task not found on remote"
	case http.StatusConflict, http.StatusPreconditionFailed:
		msg = "Remote copy changed concurrently"
	default:
		msg = resp.Status
	}
	return backend.NewRemoteError(operation, resp.StatusCode, msg).
		WithTaskID(taskID).
		WithBody(string(body))
}

func (c *Client) send(ctx context.Context, operation, method, path string, taskID int64, body []byte) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return backend.NewRemoteError(operation, 0, err.Error()).WithTaskID(taskID).WithError(err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, operation, taskID); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CreateTask posts a full task payload. The payload must carry its id.
func (c *Client) CreateTask(ctx context.Context, payload json.RawMessage) error {
	var head struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return backend.NewRemoteError("CreateTask", 0, "invalid payload").WithError(err)
	}
	return c.send(ctx, "CreateTask", http.MethodPost, "/entities", head.ID, payload)
}

// UpdateTask puts a patch or a full task for id. The server upserts.
func (c *Client) UpdateTask(ctx context.Context, id int64, payload json.RawMessage) error {
	return c.send(ctx, "UpdateTask", http.MethodPut, fmt.Sprintf("/entities/%d", id), id, payload)
}

// DeleteTask removes id on the remote.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.send(ctx, "DeleteTask", http.MethodDelete, fmt.Sprintf("/entities/%d", id), id, nil)
}

// Ping checks that the endpoint answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodHead, "/entities", nil)
	if err != nil {
		return backend.NewRemoteError("Ping", 0, err.Error()).WithError(err)
	}
	resp.Body.Close()
	return nil
}
