package domain

import (
	"testing"
	"time"
)

func TestNotificationStatusTransitions(t *testing.T) {
	tests := []struct {
		from NotificationStatus
		to   NotificationStatus
		want bool
	}{
		{StatusUnread, StatusRead, true},
		{StatusUnread, StatusArchived, true},
		{StatusUnread, StatusDeleted, true},
		{StatusRead, StatusArchived, true},
		{StatusRead, StatusDeleted, true},
		{StatusArchived, StatusDeleted, true},

		// No moving backwards.
		{StatusRead, StatusUnread, false},
		{StatusArchived, StatusUnread, false},
		{StatusArchived, StatusRead, false},

		// Deleted is terminal.
		{StatusDeleted, StatusUnread, false},
		{StatusDeleted, StatusRead, false},
		{StatusDeleted, StatusArchived, false},
		{StatusDeleted, StatusDeleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPriorityBypassesQuietHours(t *testing.T) {
	tests := []struct {
		priority Priority
		want     bool
	}{
		{PriorityLow, false},
		{PriorityNormal, false},
		{PriorityHigh, false},
		{PriorityUrgent, true},
		{PriorityCritical, true},
	}

	for _, tt := range tests {
		if got := tt.priority.BypassesQuietHours(); got != tt.want {
			t.Errorf("%s.BypassesQuietHours() = %v, want %v", tt.priority, got, tt.want)
		}
	}
}

func TestNotificationTypeCategory(t *testing.T) {
	types := []NotificationType{
		NotificationMatchUpdate, NotificationScoreAlert,
		NotificationFavoriteTeamNews, NotificationCompetitionNews,
		NotificationSystemAlert, NotificationReminder,
		NotificationAchievement, NotificationAdminNotice,
		NotificationLogAlert,
	}
	for _, typ := range types {
		if typ.Category() == "" {
			t.Errorf("%s has no category", typ)
		}
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}

	if NotificationType("shout").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestNotificationExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (Notification{}).Expired(now) {
		t.Error("no expiry set means never expired")
	}
	if (Notification{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry should not be expired yet")
	}
	if !(Notification{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry should be expired")
	}
}
