// Package notify delivers the end-of-run summary to operators. Delivery is
// fire-and-forget: failures are logged locally and never affect the job's
// outcome, so the cache/retry core stays testable without any network.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// senderTimeout bounds one delivery attempt per channel.
const senderTimeout = 10 * time.Second

// Sender is one notification channel.
type Sender interface {
	// Send delivers a message with the given title and body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier fans a message out to every configured channel. A failing
// channel never blocks the others.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// New creates a Notifier over the given senders. With no senders every
// Send is a silent no-op.
func New(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Send dispatches to all channels, logging per-channel failures. The
// combined error is returned for callers that want it, but the job treats
// notification failure as non-fatal.
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	if n == nil || len(n.senders) == 0 {
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notification delivery failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: senderTimeout}
}
