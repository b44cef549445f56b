// Package service contains the console's application services.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AccessDesk/internal/port/notifier"
)

// route pairs a notifier with the levels it receives. An empty level set
// receives everything.
type route struct {
	notifier notifier.Notifier
	levels   map[string]bool
}

// NotificationService dispatches operator notifications to every route.
type NotificationService struct {
	routes []route
	now    func() time.Time
}

// NewNotificationService creates a NotificationService with no routes.
func NewNotificationService() *NotificationService {
	return &NotificationService{now: time.Now}
}

// Route adds n as a destination for the given levels (all levels if none).
func (s *NotificationService) Route(n notifier.Notifier, levels ...string) {
	r := route{notifier: n, levels: make(map[string]bool, len(levels))}
	for _, l := range levels {
		r.levels[l] = true
	}
	s.routes = append(s.routes, r)
}

// Notify stamps n with an ID and time and sends it to every matching route.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Time.IsZero() {
		n.Time = s.now().UTC()
	}

	for _, r := range s.routes {
		if len(r.levels) > 0 && !r.levels[n.Level] {
			continue
		}
		if err := r.notifier.Send(ctx, n); err != nil {
			slog.WarnContext(ctx, "notification send failed",
				"provider", r.notifier.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		slog.DebugContext(ctx, "notification sent", "provider", r.notifier.Name(), "title", n.Title)
	}
}

// NotifierCount returns the number of routes.
func (s *NotificationService) NotifierCount() int {
	return len(s.routes)
}
