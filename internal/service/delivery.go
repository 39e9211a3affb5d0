package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brixsport/backend/internal/domain"
)

// DeliveryStore is the delivery bookkeeping persistence.
type DeliveryStore interface {
	Insert(ctx context.Context, record domain.DeliveryRecord) (*domain.DeliveryRecord, error)
	FindByID(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	Update(ctx context.Context, record domain.DeliveryRecord) error
	ListByNotification(ctx context.Context, notificationID string) ([]domain.DeliveryRecord, error)
}

// DeliveryService owns delivery attempt bookkeeping. It enforces the
// attempt state machine and never talks to a provider itself.
type DeliveryService struct {
	store DeliveryStore
}

// NewDeliveryService creates a DeliveryService.
func NewDeliveryService(store DeliveryStore) *DeliveryService {
	return &DeliveryService{store: store}
}

// RecordAttempt creates a queued record for one (notification,
// method) pair. A retry of a failed attempt is a fresh record; the
// failed one is never resurrected.
func (s *DeliveryService) RecordAttempt(ctx context.Context, notificationID string, method domain.DeliveryMethod) (*domain.DeliveryRecord, error) {
	return s.store.Insert(ctx, domain.DeliveryRecord{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Method:         method,
		Status:         domain.DeliveryQueued,
	})
}

// MarkSent advances a queued record after the provider accepted it.
func (s *DeliveryService) MarkSent(ctx context.Context, id string, provider, providerID string) (*domain.DeliveryRecord, error) {
	return s.transition(ctx, id, domain.DeliverySent, func(r *domain.DeliveryRecord) {
		if provider != "" {
			r.Provider = &provider
		}
		if providerID != "" {
			r.ProviderID = &providerID
		}
	})
}

// MarkDelivered advances a sent record after the provider confirmed
// receipt.
func (s *DeliveryService) MarkDelivered(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	return s.transition(ctx, id, domain.DeliveryDelivered, nil)
}

// MarkClicked records that the recipient opened the notification.
func (s *DeliveryService) MarkClicked(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	return s.transition(ctx, id, domain.DeliveryClicked, nil)
}

// MarkFailed terminates a queued or sent record with the provider's
// error.
func (s *DeliveryService) MarkFailed(ctx context.Context, id string, errorMessage string) (*domain.DeliveryRecord, error) {
	return s.transition(ctx, id, domain.DeliveryFailed, func(r *domain.DeliveryRecord) {
		r.ErrorMessage = &errorMessage
	})
}

// Retry creates a new queued record for the same notification and
// method as a failed one.
func (s *DeliveryService) Retry(ctx context.Context, failedID string) (*domain.DeliveryRecord, error) {
	failed, err := s.store.FindByID(ctx, failedID)
	if err != nil {
		return nil, err
	}
	if failed.Status != domain.DeliveryFailed {
		return nil, fmt.Errorf("%w: record %s is %s, only failed attempts are retried",
			domain.ErrConflict, failedID, failed.Status)
	}
	return s.RecordAttempt(ctx, failed.NotificationID, failed.Method)
}

// History returns all attempts for a notification, oldest first.
func (s *DeliveryService) History(ctx context.Context, notificationID string) ([]domain.DeliveryRecord, error) {
	return s.store.ListByNotification(ctx, notificationID)
}

func (s *DeliveryService) transition(ctx context.Context, id string, next domain.DeliveryStatus, mutate func(*domain.DeliveryRecord)) (*domain.DeliveryRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: delivery record %s cannot move %s -> %s",
			domain.ErrConflict, id, record.Status, next)
	}

	record.Status = next
	record.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(record)
	}
	if err := s.store.Update(ctx, *record); err != nil {
		return nil, err
	}
	return record, nil
}
