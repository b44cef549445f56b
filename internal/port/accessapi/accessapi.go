// Package accessapi defines the port to the remote employee access API and
// the wire envelopes it exchanges.
package accessapi

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// ErrRejected indicates the remote refused the request as malformed (4xx).
var ErrRejected = errors.New("access api: request rejected")

// ErrUnavailable indicates a transport failure or a 5xx answer.
var ErrUnavailable = errors.New("access api: unavailable")

// Client talks to the remote employee access API.
type Client interface {
	// FetchEmployees loads the complete employee directory.
	FetchEmployees(ctx context.Context) ([]employee.Employee, error)
	// UpdateSystemStatus sets one system's access status for one employee.
	UpdateSystemStatus(ctx context.Context, req UpdateRequest) (UpdateResult, error)
}

// UpdateRequest is the body of a status update.
type UpdateRequest struct {
	EmployeeID string          `json:"employeeId"`
	System     employee.System `json:"system"`
	NewStatus  bool            `json:"newStatus"`
}

// UpdateResult is the data of a successful status update.
type UpdateResult struct {
	EmployeeID string          `json:"employeeId"`
	System     employee.System `json:"system"`
	NewStatus  bool            `json:"newStatus"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Message    string          `json:"-"`
}

// ListResponse is the envelope of a successful directory load.
type ListResponse struct {
	Success   bool                `json:"success"`
	Data      []employee.Employee `json:"data"`
	Timestamp time.Time           `json:"timestamp"`
}

// UpdateResponse is the envelope of a successful status update.
type UpdateResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    UpdateResult `json:"data"`
}

// ErrorResponse is the envelope of every failed call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
