// Package notify is the outbound delivery boundary. The auth core generates
// and hashes reset tokens but never transmits them; a Notifier carries the
// raw token to the user out of band.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a raw reset token to a destination (mail address or
// phone number). Implementations must not persist the token.
type Notifier interface {
	SendResetToken(ctx context.Context, destination, rawToken string) error
}

// LogNotifier writes delivery requests to the log instead of sending them.
// Useful for development; the token itself is not logged.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendResetToken(ctx context.Context, destination, rawToken string) error {
	n.Logger.Info("reset token issued",
		"destination", destination,
		"token_length", len(rawToken),
	)
	return nil
}
