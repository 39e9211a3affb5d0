package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brixsport/backend/internal/domain"
)

// EventRepository handles the append-only match event log.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

type eventRow struct {
	ID                string          `db:"id"`
	MatchID           string          `db:"match_id"`
	Seq               int64           `db:"seq"`
	Type              string          `db:"type"`
	Minute            int             `db:"minute"`
	Second            int             `db:"second"`
	OccurredAt        time.Time       `db:"occurred_at"`
	TeamID            *string         `db:"team_id"`
	PlayerID          *string         `db:"player_id"`
	SecondaryPlayerID *string         `db:"secondary_player_id"`
	Metadata          json.RawMessage `db:"metadata"`
	SupersedesID      *string         `db:"supersedes_id"`
	Superseded        bool            `db:"superseded"`
	Quarantined       bool            `db:"quarantined"`
	IdempotencyKey    *string         `db:"idempotency_key"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (row eventRow) toDomain() (domain.MatchEvent, error) {
	meta, err := domain.UnmarshalEventMetadata(domain.EventType(row.Type), row.Metadata)
	if err != nil {
		return domain.MatchEvent{}, fmt.Errorf("event %s: %w", row.ID, err)
	}
	return domain.MatchEvent{
		ID:                row.ID,
		MatchID:           row.MatchID,
		Seq:               row.Seq,
		Type:              domain.EventType(row.Type),
		Minute:            row.Minute,
		Second:            row.Second,
		OccurredAt:        row.OccurredAt,
		TeamID:            row.TeamID,
		PlayerID:          row.PlayerID,
		SecondaryPlayerID: row.SecondaryPlayerID,
		Metadata:          meta,
		SupersedesID:      row.SupersedesID,
		Superseded:        row.Superseded,
		Quarantined:       row.Quarantined,
		IdempotencyKey:    row.IdempotencyKey,
		CreatedAt:         row.CreatedAt,
	}, nil
}

const eventColumns = `id, match_id, seq, type, minute, second, occurred_at, team_id,
	player_id, secondary_player_id, metadata, supersedes_id, superseded, quarantined,
	idempotency_key, created_at`

// Insert appends an event to the log. The insertion sequence number
// is assigned by the database.
func (r *EventRepository) Insert(ctx context.Context, event domain.MatchEvent) (*domain.MatchEvent, error) {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal event metadata: %w", err)
		}
	}

	var row eventRow
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO match_events
		   (id, match_id, type, minute, second, occurred_at, team_id, player_id,
		    secondary_player_id, metadata, supersedes_id, quarantined, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+eventColumns,
		event.ID, event.MatchID, event.Type, event.Minute, event.Second, event.OccurredAt,
		event.TeamID, event.PlayerID, event.SecondaryPlayerID, metadata,
		event.SupersedesID, event.Quarantined, event.IdempotencyKey,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	inserted, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &inserted, nil
}

// FindByID retrieves one event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*domain.MatchEvent, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+eventColumns+` FROM match_events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	event, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIdempotencyKey returns a previously recorded event for the
// same (match, key), or ErrNotFound.
func (r *EventRepository) FindByIdempotencyKey(ctx context.Context, matchID, key string) (*domain.MatchEvent, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+eventColumns+` FROM match_events WHERE match_id = $1 AND idempotency_key = $2`,
		matchID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find event by idempotency key: %w", err)
	}
	event, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByMatch returns the match's ordered event log. Quarantined
// events are excluded unless requested.
func (r *EventRepository) ListByMatch(ctx context.Context, matchID string, includeQuarantined bool) ([]domain.MatchEvent, error) {
	var rows []eventRow
	query := `SELECT ` + eventColumns + ` FROM match_events WHERE match_id = $1`
	if !includeQuarantined {
		query += ` AND NOT quarantined`
	}
	query += ` ORDER BY minute, second, seq`

	if err := r.db.SelectContext(ctx, &rows, query, matchID); err != nil {
		return nil, fmt.Errorf("list events for match %s: %w", matchID, err)
	}

	events := make([]domain.MatchEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// ListQuarantined returns the match's quarantined events for manual review.
func (r *EventRepository) ListQuarantined(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+eventColumns+` FROM match_events
		 WHERE match_id = $1 AND quarantined ORDER BY minute, second, seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list quarantined events for match %s: %w", matchID, err)
	}

	events := make([]domain.MatchEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// MarkSuperseded flags an event as replaced by a correction. The row
// itself is never mutated beyond this flag, preserving the audit trail.
func (r *EventRepository) MarkSuperseded(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE match_events SET superseded = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event %s superseded: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetQuarantined flags an event whose references failed the roster
// check. Quarantined events stay in the log for manual review but are
// excluded from folds and dispatch.
func (r *EventRepository) SetQuarantined(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE match_events SET quarantined = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("quarantine event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
