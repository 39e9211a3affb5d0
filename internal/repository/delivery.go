package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brixsport/backend/internal/domain"
)

// DeliveryRepository handles delivery attempt bookkeeping.
type DeliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository creates a new DeliveryRepository.
func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `id, notification_id, method, status, provider, provider_id,
	error_message, created_at, updated_at`

// Insert creates a delivery record.
func (r *DeliveryRepository) Insert(ctx context.Context, record domain.DeliveryRecord) (*domain.DeliveryRecord, error) {
	var result domain.DeliveryRecord
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notification_history (id, notification_id, method, status, provider, provider_id, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+deliveryColumns,
		record.ID, record.NotificationID, record.Method, record.Status,
		record.Provider, record.ProviderID, record.ErrorMessage,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("insert delivery record: %w", err)
	}
	return &result, nil
}

// FindByID retrieves one delivery record.
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	var record domain.DeliveryRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT `+deliveryColumns+` FROM notification_history WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find delivery record %s: %w", id, err)
	}
	return &record, nil
}

// Update persists a record's status and provider fields.
func (r *DeliveryRepository) Update(ctx context.Context, record domain.DeliveryRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notification_history
		 SET status = $1, provider = $2, provider_id = $3, error_message = $4, updated_at = NOW()
		 WHERE id = $5`,
		record.Status, record.Provider, record.ProviderID, record.ErrorMessage, record.ID)
	if err != nil {
		return fmt.Errorf("update delivery record %s: %w", record.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByNotification returns all attempts for a notification, oldest first.
func (r *DeliveryRepository) ListByNotification(ctx context.Context, notificationID string) ([]domain.DeliveryRecord, error) {
	records := []domain.DeliveryRecord{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT `+deliveryColumns+` FROM notification_history
		 WHERE notification_id = $1 ORDER BY created_at, id`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list delivery records for %s: %w", notificationID, err)
	}
	return records, nil
}
