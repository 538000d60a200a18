// Package notify provides the stakeholder notification collaborator.
// Delivery is fire-and-forget from the workflow engine's perspective.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ashbyfield/ward/workflow"
)

// Log is a Notifier that records notifications to structured logs.
// It stands in for pager, SMS, or messaging integrations.
type Log struct {
	logger *slog.Logger
	sent   atomic.Int64
}

// NewLog creates a log-backed notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("system", "notify")}
}

// Notify records the notification. Emergency and urgent priorities log at
// warning level so they surface in filtered log streams.
func (l *Log) Notify(_ context.Context, recipient, message string, priority workflow.Urgency) error {
	l.sent.Add(1)

	switch priority {
	case workflow.UrgencyEmergency, workflow.UrgencyUrgent:
		l.logger.Warn("notification", "recipient", recipient, "message", message, "priority", priority)
	default:
		l.logger.Info("notification", "recipient", recipient, "message", message, "priority", priority)
	}
	return nil
}

// Sent returns the number of notifications delivered.
func (l *Log) Sent() int64 {
	return l.sent.Load()
}
