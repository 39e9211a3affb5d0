package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brixsport/backend/internal/domain"
)

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, user_id, title, message, type, priority, status, entity_id,
	entity_type, source, scheduled_at, delivered_at, read_at, expires_at, created_at`

// Insert creates a notification.
func (r *NotificationRepository) Insert(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	var result domain.Notification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notifications
		   (id, user_id, title, message, type, priority, status, entity_id, entity_type,
		    source, scheduled_at, delivered_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+notificationColumns,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority, n.Status,
		n.EntityID, n.EntityType, n.Source, n.ScheduledAt, n.DeliveredAt, n.ExpiresAt,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &result, nil
}

// FindByID retrieves one notification.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.GetContext(ctx, &n,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find notification %s: %w", id, err)
	}
	return &n, nil
}

// ListFilter narrows a user's notification listing.
type ListFilter struct {
	Status   *domain.NotificationStatus
	Type     *domain.NotificationType
	Priority *domain.Priority
	Page     int
	Limit    int
}

// ListByUser returns one page of a user's notifications, newest
// first, plus the unpaginated total for the filter. Deleted rows are
// excluded unless explicitly filtered for, and expired notifications
// never count as unread.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, f ListFilter) ([]domain.Notification, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}

	if f.Status != nil {
		args = append(args, *f.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
		if *f.Status == domain.StatusUnread {
			where += ` AND (expires_at IS NULL OR expires_at > NOW())`
		}
	} else {
		where += ` AND status <> 'deleted'`
	}
	if f.Type != nil {
		args = append(args, *f.Type)
		where += ` AND type = $` + strconv.Itoa(len(args))
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		where += ` AND priority = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM notifications `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := `SELECT ` + notificationColumns + ` FROM notifications ` + where +
		` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// FindOwnedByIDs returns the subset of the given notifications that
// belong to the user. IDs the user does not own are silently absent.
func (r *NotificationRepository) FindOwnedByIDs(ctx context.Context, userID int64, ids []string) ([]domain.Notification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? AND id IN (?)`,
		userID, ids)
	if err != nil {
		return nil, fmt.Errorf("build owned notifications query: %w", err)
	}

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find owned notifications: %w", err)
	}
	return notifications, nil
}

// UpdateStatus moves the given notifications to a new status and
// returns how many rows changed. Read timestamps are stamped when the
// target status is read.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, ids []string, status domain.NotificationStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var readAt *time.Time
	if status == domain.StatusRead {
		now := time.Now()
		readAt = &now
	}

	query, args, err := sqlx.In(
		`UPDATE notifications SET status = ?, read_at = COALESCE(?, read_at) WHERE id IN (?)`,
		status, readAt, ids)
	if err != nil {
		return 0, fmt.Errorf("build status update query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("update notification status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count updated notifications: %w", err)
	}
	return int(n), nil
}

// MarkDelivered stamps the delivery time once the first channel
// reports success.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET delivered_at = COALESCE(delivered_at, $1) WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("mark notification %s delivered: %w", id, err)
	}
	return nil
}
