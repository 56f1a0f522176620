// Package notify delivers passive user notifications.
package notify

import (
	"context"
	"log/slog"
)

// SlogNotifier surfaces notifications through the structured log. Background
// failures never pass through here; only successful high-confidence actions
// do.
type SlogNotifier struct{}

// New returns a log-backed notifier.
func New() *SlogNotifier {
	return &SlogNotifier{}
}

// Notify logs the notification at info level.
func (n *SlogNotifier) Notify(_ context.Context, title, message string) {
	slog.Info("Notification", "title", title, "message", message)
}
