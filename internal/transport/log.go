package transport

import (
	"context"
	"log/slog"

	"github.com/brixsport/backend/internal/domain"
)

// LogSender writes deliveries to the structured log instead of a real
// provider. Used in development and for channels with no provider
// configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, method domain.DeliveryMethod, address string, n Rendered) (Outcome, error) {
	slog.Info("notification delivery",
		"method", method,
		"address", address,
		"title", n.Title,
		"priority", n.Priority,
	)
	return Outcome{Provider: "log", Delivered: true}, nil
}
