package remoteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
	"github.com/Strob0t/AccessDesk/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, 2)
}

func TestFetchEmployees(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/employees" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"timestamp":"2026-01-01T00:00:00Z","data":[
			{"id":"emp-1","name":"Ana Souza","email":"ana.souza1@company.com",
			 "systems":[{"system":"ERP","status":true,"originalId":"erp-1001"}],
			 "createdAt":"2025-01-01T00:00:00Z","lastUpdated":"2025-06-01T00:00:00Z"}]}`))
	})

	list, err := c.FetchEmployees(context.Background())
	if err != nil {
		t.Fatalf("FetchEmployees: %v", err)
	}
	if len(list) != 1 || list[0].ID != "emp-1" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].Systems[0].System != employee.SystemERP || !list[0].Systems[0].Status {
		t.Fatalf("unexpected access: %+v", list[0].Systems[0])
	}
}

func TestFetchEmployeesServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Internal server error","message":"boom"}`))
	})

	_, err := c.FetchEmployees(context.Background())
	if !errors.Is(err, accessapi.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchEmployeesMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	if _, err := c.FetchEmployees(context.Background()); !errors.Is(err, accessapi.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestUpdateSystemStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req accessapi.UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.EmployeeID != "emp-2" || req.System != employee.SystemCRM || req.NewStatus {
			t.Errorf("unexpected body: %+v", req)
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Status updated successfully",
			"data":{"employeeId":"emp-2","system":"CRM","newStatus":false,"updatedAt":"2026-01-01T00:00:00Z"}}`))
	})

	res, err := c.UpdateSystemStatus(context.Background(), accessapi.UpdateRequest{
		EmployeeID: "emp-2", System: employee.SystemCRM, NewStatus: false,
	})
	if err != nil {
		t.Fatalf("UpdateSystemStatus: %v", err)
	}
	if res.Message != "Status updated successfully" || res.EmployeeID != "emp-2" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUpdateSystemStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, accessapi.ErrRejected},
		{"unprocessable", http.StatusUnprocessableEntity, accessapi.ErrRejected},
		{"unavailable", http.StatusServiceUnavailable, accessapi.ErrUnavailable},
		{"internal", http.StatusInternalServerError, accessapi.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"success":false,"error":"x","message":"y"}`))
			})
			_, err := c.UpdateSystemStatus(context.Background(), accessapi.UpdateRequest{EmployeeID: "emp-1", System: employee.SystemERP})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, 1)
	_, err := c.UpdateSystemStatus(context.Background(), accessapi.UpdateRequest{EmployeeID: "emp-1", System: employee.SystemERP})
	if !errors.Is(err, accessapi.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBreakerIgnoresRejections(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	c.SetBreaker(resilience.NewBreaker(1, time.Minute, resilience.WithFailureFilter(CountsAsFailure)))

	for range 3 {
		_, err := c.UpdateSystemStatus(context.Background(), accessapi.UpdateRequest{EmployeeID: "emp-1", System: employee.SystemERP})
		if !errors.Is(err, accessapi.ErrRejected) {
			t.Fatalf("expected ErrRejected, got %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls to reach the server, got %d", calls.Load())
	}
}

func TestBreakerOpenIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.SetBreaker(resilience.NewBreaker(1, time.Minute, resilience.WithFailureFilter(CountsAsFailure)))

	_, _ = c.FetchEmployees(context.Background())
	_, err := c.FetchEmployees(context.Background())
	if !errors.Is(err, accessapi.ErrUnavailable) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrUnavailable wrapping ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected breaker to stop the second call, got %d calls", calls.Load())
	}
}
