package service

import (
	"context"
	"errors"
	"testing"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/repository"
)

type fakeNotificationStore struct {
	byID map[string]*domain.Notification
}

func newFakeNotificationStore(notifications ...domain.Notification) *fakeNotificationStore {
	s := &fakeNotificationStore{byID: make(map[string]*domain.Notification)}
	for _, n := range notifications {
		copy := n
		s.byID[n.ID] = &copy
	}
	return s
}

func (s *fakeNotificationStore) FindByID(_ context.Context, id string) (*domain.Notification, error) {
	n, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *n
	return &copy, nil
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID int64, f repository.ListFilter) ([]domain.Notification, int, error) {
	var all []domain.Notification
	for _, n := range s.byID {
		if n.UserID == userID {
			all = append(all, *n)
		}
	}
	return all, len(all), nil
}

func (s *fakeNotificationStore) FindOwnedByIDs(_ context.Context, userID int64, ids []string) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, id := range ids {
		if n, ok := s.byID[id]; ok && n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) UpdateStatus(_ context.Context, ids []string, status domain.NotificationStatus) (int, error) {
	updated := 0
	for _, id := range ids {
		if n, ok := s.byID[id]; ok {
			n.Status = status
			updated++
		}
	}
	return updated, nil
}

func TestBatchUpdateStatusSkipsNonOwnedAndIneligible(t *testing.T) {
	store := newFakeNotificationStore(
		domain.Notification{ID: "n1", UserID: 1, Status: domain.StatusUnread},
		domain.Notification{ID: "n2", UserID: 1, Status: domain.StatusUnread},
		domain.Notification{ID: "n3", UserID: 1, Status: domain.StatusRead},
		domain.Notification{ID: "n4", UserID: 2, Status: domain.StatusUnread}, // someone else's
		domain.Notification{ID: "n5", UserID: 1, Status: domain.StatusDeleted},
	)
	broker := outbox.NewBroker(4)
	defer broker.Close()
	svc := NewNotificationService(store, broker)

	// n1, n2 move unread->read. n3 is already read, n4 is not ours,
	// n5 is terminal. Count reflects only actual changes.
	updated, err := svc.BatchUpdateStatus(context.Background(), 1,
		[]string{"n1", "n2", "n3", "n4", "n5"}, domain.StatusRead)
	if err != nil {
		t.Fatalf("BatchUpdateStatus: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	if store.byID["n4"].Status != domain.StatusUnread {
		t.Error("non-owned notification must not change")
	}
	if store.byID["n5"].Status != domain.StatusDeleted {
		t.Error("deleted notification must not change")
	}
}

func TestBatchUpdateStatusDelete(t *testing.T) {
	store := newFakeNotificationStore(
		domain.Notification{ID: "n1", UserID: 1, Status: domain.StatusArchived},
	)
	broker := outbox.NewBroker(4)
	defer broker.Close()
	svc := NewNotificationService(store, broker)

	updated, err := svc.BatchUpdateStatus(context.Background(), 1, []string{"n1"}, domain.StatusDeleted)
	if err != nil {
		t.Fatalf("BatchUpdateStatus: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1 (deleted reachable from any live state)", updated)
	}
}

func TestBatchUpdateStatusRejectsUnknownStatus(t *testing.T) {
	broker := outbox.NewBroker(4)
	defer broker.Close()
	svc := NewNotificationService(newFakeNotificationStore(), broker)

	_, err := svc.BatchUpdateStatus(context.Background(), 1, []string{"n1"}, "vanished")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestAnnouncePublishes(t *testing.T) {
	broker := outbox.NewBroker(4)
	defer broker.Close()
	svc := NewNotificationService(newFakeNotificationStore(), broker)
	ch := broker.Subscribe(outbox.TopicAnnouncements)

	err := svc.Announce(context.Background(), Announcement{
		Title:    "Maintenance window",
		Message:  "Sunday 02:00 UTC",
		Type:     domain.NotificationSystemAlert,
		Priority: domain.PriorityNormal,
	})
	if err != nil {
		t.Fatalf("Announce: %v", err)
	}

	select {
	case msg := <-ch:
		ann, ok := msg.Payload.(Announcement)
		if !ok || ann.Title != "Maintenance window" {
			t.Errorf("payload = %v, want the announcement", msg.Payload)
		}
	default:
		t.Error("announcement should be on the broker")
	}
}

func TestAnnounceRejectsUnknownType(t *testing.T) {
	broker := outbox.NewBroker(4)
	defer broker.Close()
	svc := NewNotificationService(newFakeNotificationStore(), broker)

	err := svc.Announce(context.Background(), Announcement{
		Title: "x", Message: "y", Type: "megaphone", Priority: domain.PriorityNormal,
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
