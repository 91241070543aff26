package notifier

import "context"

// EventNotifier defines the two webhook events the monitor can emit. It is
// intentionally small so the monitor loop can depend on it without importing
// the concrete webhook implementation.
type EventNotifier interface {
	// StatusChanged reports a new (state, display name) pair. An empty
	// displayName means the field is absent from the payload.
	StatusChanged(ctx context.Context, state, displayName string) error
	// StopPrinting fires the stop-print escalation webhook.
	StopPrinting(ctx context.Context) error
}
