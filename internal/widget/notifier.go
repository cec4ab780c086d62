package widget

import (
	"errors"
	"sync"

	"blockcal/internal/engine"
	appLog "blockcal/internal/log"
)

// LogNotifier is the headless confirmation/toast surface: notifications go
// to the log and are kept for the web UI to drain; confirmations answer yes,
// since the browser page asks its own confirm() before calling the API.
type LogNotifier struct {
	mu      sync.Mutex
	pending []Notice
}

// Notice is one queued user notification.
type Notice struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// NewNotifier returns an empty notifier.
func NewNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Confirm implements engine.Notifier.
func (n *LogNotifier) Confirm(message string) bool {
	appLog.Info("confirm (auto-accepted)", "message", message)
	return true
}

// Notify implements engine.Notifier.
func (n *LogNotifier) Notify(message string, severity engine.Severity) {
	switch severity {
	case engine.SeverityError:
		appLog.Error("user notification", errors.New(message))
	default:
		appLog.Info("user notification", "message", message)
	}
	n.mu.Lock()
	n.pending = append(n.pending, Notice{Message: message, Severity: string(severity)})
	n.mu.Unlock()
}

// Drain returns and clears the queued notifications.
func (n *LogNotifier) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

var _ engine.Notifier = (*LogNotifier)(nil)
