// Package notifier defines the operator notification port: the console's
// toast messages and anything that mirrors them to external channels.
package notifier

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Keys of Notification.Fields.
const (
	FieldEmployee  = "employee"
	FieldSystem    = "system"
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"
	FieldOperator  = "operator"
	FieldCount     = "count"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Level   string    `json:"level"`  // "info", "success", "warning", "error"
	Source  string    `json:"source"` // e.g. "access.applied", "directory.load_failed"
	Time    time.Time `json:"time"`
	// Fields carries structured details of the event, keyed by the Field* constants.
	Fields map[string]string `json:"fields,omitempty"`
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	RichFormatting bool `json:"rich_formatting"`
	Realtime       bool `json:"realtime"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack", "ws").
	Name() string

	// Capabilities returns what this notifier supports.
	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
