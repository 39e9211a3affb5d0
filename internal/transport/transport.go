// Package transport defines the outbound delivery boundary. The core
// decides whether and what to send; how bytes reach a device is the
// provider's problem.
package transport

import (
	"context"

	"github.com/brixsport/backend/internal/domain"
)

// Outcome is a provider's answer to a send attempt.
type Outcome struct {
	Provider   string
	ProviderID string
	Delivered  bool
}

// Rendered is the channel-agnostic content handed to a provider.
type Rendered struct {
	Title    string
	Message  string
	Priority domain.Priority
	Data     map[string]string
}

// Sender delivers a rendered notification over one channel to one
// recipient address (push token, email address, phone number).
type Sender interface {
	Send(ctx context.Context, method domain.DeliveryMethod, address string, n Rendered) (Outcome, error)
}
