// Package notify delivers application outcome notifications to
// applicants. Delivery is best effort; the review flow never fails
// because a notification could not be sent.
package notify

import (
	"context"
	"log/slog"
)

// Outcome is the rendered notification for an application decision.
type Outcome struct {
	Email    string
	Subject  string
	Body     string
	Decision string
}

// Dispatcher sends an application outcome to the applicant.
type Dispatcher interface {
	SendApplicationOutcome(ctx context.Context, outcome Outcome) error
}

// LogDispatcher writes notifications to the log instead of sending
// them. Used in development and as the default when no mail transport
// is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) SendApplicationOutcome(ctx context.Context, outcome Outcome) error {
	d.logger.InfoContext(ctx, "application outcome notification",
		"email", outcome.Email,
		"decision", outcome.Decision,
		"subject", outcome.Subject,
	)
	return nil
}
