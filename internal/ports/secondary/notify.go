package secondary

import (
	"context"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Notifier announces committed transitions to interested parties.
// It is called after commit; a failure is logged and never undoes the transition.
type Notifier interface {
	Publish(ctx context.Context, notification TransitionNotification) error
}

// TransitionNotification describes one committed transition.
type TransitionNotification struct {
	Event   *lifecycle.TransitionEvent
	Version int64
}
