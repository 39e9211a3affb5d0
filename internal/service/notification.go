package service

import (
	"context"
	"fmt"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/repository"
)

// NotificationStore is the notification persistence the user-facing
// service needs.
type NotificationStore interface {
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, f repository.ListFilter) ([]domain.Notification, int, error)
	FindOwnedByIDs(ctx context.Context, userID int64, ids []string) ([]domain.Notification, error)
	UpdateStatus(ctx context.Context, ids []string, status domain.NotificationStatus) (int, error)
}

// NotificationService serves a user's notification inbox and accepts
// administrative announcements for dispatch.
type NotificationService struct {
	store  NotificationStore
	broker *outbox.Broker
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(store NotificationStore, broker *outbox.Broker) *NotificationService {
	return &NotificationService{store: store, broker: broker}
}

// Page bundles one page of notifications with pagination metadata.
type Page struct {
	Items []domain.Notification `json:"items"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Total int                   `json:"total"`
}

// List returns one page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64, filter repository.ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, total, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Page: filter.Page, Limit: filter.Limit, Total: total}, nil
}

// BatchUpdateStatus moves the caller's notifications to a new status
// and reports how many actually changed. IDs the caller does not own
// and transitions the state machine rejects are skipped silently, not
// errors: the returned count is the contract.
func (s *NotificationService) BatchUpdateStatus(ctx context.Context, userID int64, ids []string, status domain.NotificationStatus) (int, error) {
	if !status.Valid() {
		return 0, &domain.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown status %q", status),
		}
	}

	owned, err := s.store.FindOwnedByIDs(ctx, userID, ids)
	if err != nil {
		return 0, err
	}

	var eligible []string
	for _, n := range owned {
		if n.Status == status {
			continue
		}
		if !n.Status.CanTransitionTo(status) {
			continue
		}
		eligible = append(eligible, n.ID)
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	return s.store.UpdateStatus(ctx, eligible, status)
}

// Find returns one notification by ID.
func (s *NotificationService) Find(ctx context.Context, id string) (*domain.Notification, error) {
	return s.store.FindByID(ctx, id)
}

// Announce queues an administrative broadcast for asynchronous
// dispatch to all active users.
func (s *NotificationService) Announce(ctx context.Context, ann Announcement) error {
	if !ann.Type.Valid() {
		return &domain.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown notification type %q", ann.Type),
		}
	}
	if !ann.Priority.Valid() {
		return &domain.ValidationError{
			Field:   "priority",
			Message: fmt.Sprintf("unknown priority %q", ann.Priority),
		}
	}
	s.broker.Publish(outbox.TopicAnnouncements, ann)
	return nil
}
