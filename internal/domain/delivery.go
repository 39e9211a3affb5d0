package domain

import "time"

// DeliveryStatus tracks one delivery attempt through its lifecycle.
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryClicked   DeliveryStatus = "clicked"
	DeliveryFailed    DeliveryStatus = "failed"
)

// CanTransitionTo enforces the attempt state machine:
// queued -> sent -> delivered -> clicked, with failed reachable from
// queued or sent. Failed is terminal; a retry is a new record.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch s {
	case DeliveryQueued:
		return next == DeliverySent || next == DeliveryFailed
	case DeliverySent:
		return next == DeliveryDelivered || next == DeliveryFailed
	case DeliveryDelivered:
		return next == DeliveryClicked
	}
	return false
}

// Terminal reports whether the record can change no further.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryClicked || s == DeliveryFailed
}

// DeliveryRecord is the bookkeeping row for one (notification,
// method) delivery attempt. Transport is an external collaborator;
// this type owns only the outcome trail.
type DeliveryRecord struct {
	ID             string         `json:"id" db:"id"`
	NotificationID string         `json:"notification_id" db:"notification_id"`
	Method         DeliveryMethod `json:"method" db:"method"`
	Status         DeliveryStatus `json:"status" db:"status"`
	Provider       *string        `json:"provider,omitempty" db:"provider"`
	ProviderID     *string        `json:"provider_id,omitempty" db:"provider_id"`
	ErrorMessage   *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
