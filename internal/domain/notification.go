package domain

import "time"

// NotificationType is the canonical set of notification kinds. Each
// type maps to exactly one preference category via Category; there is
// deliberately no second enum anywhere else in the tree.
type NotificationType string

const (
	NotificationMatchUpdate      NotificationType = "match_update"
	NotificationScoreAlert       NotificationType = "score_alert"
	NotificationFavoriteTeamNews NotificationType = "favorite_team_news"
	NotificationCompetitionNews  NotificationType = "competition_news"
	NotificationSystemAlert      NotificationType = "system_alert"
	NotificationReminder         NotificationType = "reminder"
	NotificationAchievement      NotificationType = "achievement"
	NotificationAdminNotice      NotificationType = "admin_notice"
	NotificationLogAlert         NotificationType = "log_alert"
)

// Category returns the preference category that gates this type.
func (t NotificationType) Category() PreferenceCategory {
	switch t {
	case NotificationMatchUpdate:
		return CategoryMatchUpdates
	case NotificationScoreAlert:
		return CategoryScoreAlerts
	case NotificationFavoriteTeamNews:
		return CategoryFavoriteTeamNews
	case NotificationCompetitionNews:
		return CategoryCompetitionNews
	case NotificationSystemAlert:
		return CategorySystemAlerts
	case NotificationReminder:
		return CategoryReminders
	case NotificationAchievement:
		return CategoryAchievements
	case NotificationAdminNotice:
		return CategoryAdminNotices
	case NotificationLogAlert:
		return CategoryLogAlerts
	}
	return ""
}

// Valid reports whether the notification type is known.
func (t NotificationType) Valid() bool { return t.Category() != "" }

// Priority orders notifications by importance. Urgent and critical
// bypass quiet hours.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityNormal:   1,
	PriorityHigh:     2,
	PriorityUrgent:   3,
	PriorityCritical: 4,
}

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// BypassesQuietHours reports whether this priority is delivered even
// during the recipient's quiet hours.
func (p Priority) BypassesQuietHours() bool {
	return priorityRank[p] >= priorityRank[PriorityUrgent]
}

// NotificationStatus is the read-state of a notification.
type NotificationStatus string

const (
	StatusUnread   NotificationStatus = "unread"
	StatusRead     NotificationStatus = "read"
	StatusArchived NotificationStatus = "archived"
	StatusDeleted  NotificationStatus = "deleted"
)

// Valid reports whether the status is known.
func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo enforces monotonic status movement:
// unread -> read -> archived, with deleted reachable from any state
// and terminal. Skipping backwards (archived -> unread) is rejected.
func (s NotificationStatus) CanTransitionTo(next NotificationStatus) bool {
	if s == StatusDeleted {
		return false
	}
	if next == StatusDeleted {
		return true
	}
	switch s {
	case StatusUnread:
		return next == StatusRead || next == StatusArchived
	case StatusRead:
		return next == StatusArchived
	}
	return false
}

// NotificationSource identifies what produced a notification.
type NotificationSource string

const (
	SourceSystem NotificationSource = "system"
	SourceAdmin  NotificationSource = "admin"
	SourceUser   NotificationSource = "user"
	SourceLogger NotificationSource = "logger"
)

// Notification is a rendered, per-user message produced by the
// dispatcher.
type Notification struct {
	ID          string             `json:"id" db:"id"`
	UserID      int64              `json:"user_id" db:"user_id"`
	Title       string             `json:"title" db:"title"`
	Message     string             `json:"message" db:"message"`
	Type        NotificationType   `json:"type" db:"type"`
	Priority    Priority           `json:"priority" db:"priority"`
	Status      NotificationStatus `json:"status" db:"status"`
	EntityID    *string            `json:"entity_id,omitempty" db:"entity_id"`
	EntityType  *string            `json:"entity_type,omitempty" db:"entity_type"`
	Source      NotificationSource `json:"source" db:"source"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty" db:"scheduled_at"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt      *time.Time         `json:"read_at,omitempty" db:"read_at"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// Expired reports whether the notification has passed its expiry.
// Expired notifications stay in place but become inert.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}
