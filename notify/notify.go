/*
Package notify is the outbound notification boundary.

Delivery mechanics live outside the engine. The engine hands a Dispatcher a
recipient, subject and body; a send failure is logged by the caller and
never rolls back the state change it announces.
*/
package notify

import (
	"context"
	"log/slog"
)

// Dispatcher sends one message.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogDispatcher is the default dispatcher: it records the message instead
// of delivering it. Used in dev mode and tests.
type LogDispatcher struct {
	Log *slog.Logger
}

func (d *LogDispatcher) Send(_ context.Context, recipient, subject, body string) error {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification dispatched",
		"recipient", recipient,
		"subject", subject,
		"body_len", len(body))
	return nil
}
