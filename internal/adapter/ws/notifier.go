package ws

import (
	"context"

	"github.com/Strob0t/AccessDesk/internal/port/notifier"
)

// ToastNotifier delivers notifications to browsers as toast events.
type ToastNotifier struct {
	hub *Hub
}

var _ notifier.Notifier = (*ToastNotifier)(nil)

// NewToastNotifier wraps hub as a notifier.
func NewToastNotifier(hub *Hub) *ToastNotifier {
	return &ToastNotifier{hub: hub}
}

func (n *ToastNotifier) Name() string { return "ws" }

func (n *ToastNotifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{Realtime: true}
}

func (n *ToastNotifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.hub == nil {
		return notifier.ErrNotConfigured
	}
	n.hub.BroadcastEvent(ctx, EventToast, notification)
	return nil
}
