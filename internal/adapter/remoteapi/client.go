// Package remoteapi provides the HTTP client for the employee access API.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
	"github.com/Strob0t/AccessDesk/internal/resilience"
)

const (
	employeesPath   = "/api/employees"
	maxResponseSize = 4 << 20
)

// Client talks to the employee access API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	sem        *semaphore.Weighted
}

var _ accessapi.Client = (*Client)(nil)

// NewClient creates a client for baseURL. maxConcurrent bounds in-flight
// requests; values below 1 allow one at a time.
func NewClient(baseURL string, timeout time.Duration, maxConcurrent int) *Client {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfotel.Transport(http.DefaultTransport),
		},
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// CountsAsFailure reports whether err should trip the breaker. Rejections
// are the caller's fault and leave the circuit alone.
func CountsAsFailure(err error) bool {
	return !errors.Is(err, accessapi.ErrRejected)
}

// FetchEmployees loads the complete directory.
func (c *Client) FetchEmployees(ctx context.Context) ([]employee.Employee, error) {
	data, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}

	var resp accessapi.ListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("fetch employees: decode: %w: %w", accessapi.ErrUnavailable, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetch employees: %w: success=false", accessapi.ErrUnavailable)
	}
	if resp.Data == nil {
		resp.Data = []employee.Employee{}
	}
	return resp.Data, nil
}

// UpdateSystemStatus sets one system's status for one employee.
func (c *Client) UpdateSystemStatus(ctx context.Context, req accessapi.UpdateRequest) (accessapi.UpdateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return accessapi.UpdateResult{}, fmt.Errorf("marshal update: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, body)
	if err != nil {
		return accessapi.UpdateResult{}, fmt.Errorf("update %s/%s: %w", req.EmployeeID, req.System, err)
	}

	var resp accessapi.UpdateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return accessapi.UpdateResult{}, fmt.Errorf("update %s/%s: decode: %w: %w", req.EmployeeID, req.System, accessapi.ErrUnavailable, err)
	}
	if !resp.Success {
		return accessapi.UpdateResult{}, fmt.Errorf("update %s/%s: %w: success=false", req.EmployeeID, req.System, accessapi.ErrUnavailable)
	}
	resp.Data.Message = resp.Message
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method string, body []byte) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", accessapi.ErrUnavailable, err)
	}
	defer c.sem.Release(1)

	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+employeesPath, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", accessapi.ErrUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("%w: read response: %w", accessapi.ErrUnavailable, err)
		}

		if resp.StatusCode >= 400 {
			return statusError(resp.StatusCode, data)
		}
		result = data
		return nil
	}

	if c.breaker == nil {
		if err := call(); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := c.breaker.Execute(call); err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %w", accessapi.ErrUnavailable, err)
		}
		return nil, err
	}
	return result, nil
}

// statusError maps an HTTP failure to ErrRejected (4xx) or ErrUnavailable.
func statusError(code int, data []byte) error {
	var env accessapi.ErrorResponse
	detail := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &env) == nil && (env.Error != "" || env.Message != "") {
		detail = env.Error
		if env.Message != "" {
			detail += ": " + env.Message
		}
	}

	sentinel := accessapi.ErrUnavailable
	if code >= 400 && code < 500 {
		sentinel = accessapi.ErrRejected
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, code, detail)
}
