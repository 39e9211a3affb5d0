package domain

import "testing"

func TestDeliveryStatusTransitions(t *testing.T) {
	tests := []struct {
		from DeliveryStatus
		to   DeliveryStatus
		want bool
	}{
		{DeliveryQueued, DeliverySent, true},
		{DeliveryQueued, DeliveryFailed, true},
		{DeliverySent, DeliveryDelivered, true},
		{DeliverySent, DeliveryFailed, true},
		{DeliveryDelivered, DeliveryClicked, true},

		// No skipping forward.
		{DeliveryQueued, DeliveryDelivered, false},
		{DeliveryQueued, DeliveryClicked, false},
		{DeliverySent, DeliveryClicked, false},

		// Failed is terminal; retries are new records.
		{DeliveryFailed, DeliveryQueued, false},
		{DeliveryFailed, DeliverySent, false},
		{DeliveryClicked, DeliveryFailed, false},
		{DeliveryDelivered, DeliveryFailed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDeliveryStatusTerminal(t *testing.T) {
	for _, s := range []DeliveryStatus{DeliveryClicked, DeliveryFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []DeliveryStatus{DeliveryQueued, DeliverySent, DeliveryDelivered} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
