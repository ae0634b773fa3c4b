package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/logging"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// Log writes each notification to the logger at debug level.
type Log struct {
	logger zerolog.Logger
}

var _ secondary.Notifier = (*Log)(nil)

// NewLog creates a log-only notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

// Publish logs the notification.
func (l *Log) Publish(ctx context.Context, n secondary.TransitionNotification) error {
	msg := NewMessage(n)
	logger := logging.WithRequest(ctx, l.logger)
	logger.Debug().
		Str("tenant", msg.TenantID).
		Str("document_type", msg.DocumentType).
		Str("document", msg.DocumentID).
		Str("edge", msg.Edge).
		Str("from", msg.FromState).
		Str("to", msg.ToState).
		Int64("version", msg.Version).
		Msg("transition committed")
	return nil
}

// Multi fans a notification out to several notifiers and reports the first error.
type Multi []secondary.Notifier

var _ secondary.Notifier = Multi(nil)

// Publish calls every notifier, even after a failure.
func (m Multi) Publish(ctx context.Context, n secondary.TransitionNotification) error {
	var first error
	for _, notifier := range m {
		if err := notifier.Publish(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
