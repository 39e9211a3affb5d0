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

// PreferencesRepository handles notification preference persistence.
type PreferencesRepository struct {
	db *sqlx.DB
}

// NewPreferencesRepository creates a new PreferencesRepository.
func NewPreferencesRepository(db *sqlx.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

type preferencesRow struct {
	UserID               int64     `db:"user_id"`
	DeliveryMethods      []byte    `db:"delivery_methods"`
	Categories           []byte    `db:"categories"`
	QuietHours           []byte    `db:"quiet_hours"`
	FollowedTeams        []byte    `db:"followed_teams"`
	FollowedPlayers      []byte    `db:"followed_players"`
	FollowedCompetitions []byte    `db:"followed_competitions"`
	DigestFrequency      string    `db:"digest_frequency"`
	Devices              []byte    `db:"devices"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (row preferencesRow) toDomain() (*domain.NotificationPreferences, error) {
	prefs := domain.NotificationPreferences{
		UserID:          row.UserID,
		DigestFrequency: domain.DigestFrequency(row.DigestFrequency),
		UpdatedAt:       row.UpdatedAt,
	}
	for name, pair := range map[string]struct {
		src []byte
		dst any
	}{
		"delivery_methods":      {row.DeliveryMethods, &prefs.DeliveryMethods},
		"categories":            {row.Categories, &prefs.Categories},
		"followed_teams":        {row.FollowedTeams, &prefs.FollowedTeams},
		"followed_players":      {row.FollowedPlayers, &prefs.FollowedPlayers},
		"followed_competitions": {row.FollowedCompetitions, &prefs.FollowedCompetitions},
		"devices":               {row.Devices, &prefs.Devices},
	} {
		if len(pair.src) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.src, pair.dst); err != nil {
			return nil, fmt.Errorf("unmarshal preferences %s: %w", name, err)
		}
	}
	if len(row.QuietHours) > 0 && string(row.QuietHours) != "null" {
		var qh domain.QuietHours
		if err := json.Unmarshal(row.QuietHours, &qh); err != nil {
			return nil, fmt.Errorf("unmarshal quiet hours: %w", err)
		}
		prefs.QuietHours = &qh
	}
	return &prefs, nil
}

const preferencesColumns = `user_id, delivery_methods, categories, quiet_hours,
	followed_teams, followed_players, followed_competitions, digest_frequency, devices, updated_at`

// Find retrieves a user's preferences, or ErrNotFound when they have
// never been written.
func (r *PreferencesRepository) Find(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	var row preferencesRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+preferencesColumns+` FROM notification_preferences WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find preferences for user %d: %w", userID, err)
	}
	return row.toDomain()
}

// Upsert writes the full preference document for a user.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs domain.NotificationPreferences) (*domain.NotificationPreferences, error) {
	methods, err := json.Marshal(prefs.DeliveryMethods)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery methods: %w", err)
	}
	categories, err := json.Marshal(prefs.Categories)
	if err != nil {
		return nil, fmt.Errorf("marshal categories: %w", err)
	}
	var quietHours []byte
	if prefs.QuietHours != nil {
		quietHours, err = json.Marshal(prefs.QuietHours)
		if err != nil {
			return nil, fmt.Errorf("marshal quiet hours: %w", err)
		}
	}
	teams, err := json.Marshal(prefs.FollowedTeams)
	if err != nil {
		return nil, fmt.Errorf("marshal followed teams: %w", err)
	}
	players, err := json.Marshal(prefs.FollowedPlayers)
	if err != nil {
		return nil, fmt.Errorf("marshal followed players: %w", err)
	}
	competitions, err := json.Marshal(prefs.FollowedCompetitions)
	if err != nil {
		return nil, fmt.Errorf("marshal followed competitions: %w", err)
	}
	devices, err := json.Marshal(prefs.Devices)
	if err != nil {
		return nil, fmt.Errorf("marshal devices: %w", err)
	}

	var row preferencesRow
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO notification_preferences
		   (user_id, delivery_methods, categories, quiet_hours, followed_teams,
		    followed_players, followed_competitions, digest_frequency, devices, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 ON CONFLICT (user_id)
		 DO UPDATE SET delivery_methods = EXCLUDED.delivery_methods,
		               categories = EXCLUDED.categories,
		               quiet_hours = EXCLUDED.quiet_hours,
		               followed_teams = EXCLUDED.followed_teams,
		               followed_players = EXCLUDED.followed_players,
		               followed_competitions = EXCLUDED.followed_competitions,
		               digest_frequency = EXCLUDED.digest_frequency,
		               devices = EXCLUDED.devices,
		               updated_at = NOW()
		 RETURNING `+preferencesColumns,
		prefs.UserID, methods, categories, quietHours, teams, players, competitions,
		prefs.DigestFrequency, devices,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences for user %d: %w", prefs.UserID, err)
	}
	return row.toDomain()
}

// ListFollowers returns the preferences of every active user who
// follows at least one of the given teams, players, or competitions,
// ordered by user ID for deterministic fan-out.
func (r *PreferencesRepository) ListFollowers(ctx context.Context, teamIDs, playerIDs, competitionIDs []string) ([]domain.NotificationPreferences, error) {
	teams, err := json.Marshal(nonNil(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal team filter: %w", err)
	}
	players, err := json.Marshal(nonNil(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal player filter: %w", err)
	}
	competitions, err := json.Marshal(nonNil(competitionIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal competition filter: %w", err)
	}

	var rows []preferencesRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT p.user_id, p.delivery_methods, p.categories, p.quiet_hours,
		        p.followed_teams, p.followed_players, p.followed_competitions,
		        p.digest_frequency, p.devices, p.updated_at
		 FROM notification_preferences p
		 JOIN users u ON u.id = p.user_id AND u.active
		 WHERE EXISTS (
		         SELECT 1 FROM jsonb_array_elements_text(p.followed_teams) ft
		         WHERE ft IN (SELECT jsonb_array_elements_text($1::jsonb)))
		    OR EXISTS (
		         SELECT 1 FROM jsonb_array_elements_text(p.followed_players) fp
		         WHERE fp IN (SELECT jsonb_array_elements_text($2::jsonb)))
		    OR EXISTS (
		         SELECT 1 FROM jsonb_array_elements_text(p.followed_competitions) fc
		         WHERE fc IN (SELECT jsonb_array_elements_text($3::jsonb)))
		 ORDER BY p.user_id`,
		teams, players, competitions)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}

	prefs := make([]domain.NotificationPreferences, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, *p)
	}
	return prefs, nil
}

// ListByUserIDs returns preferences for the given users, creating
// nothing; users without a row are simply absent from the result.
func (r *PreferencesRepository) ListByUserIDs(ctx context.Context, userIDs []int64) ([]domain.NotificationPreferences, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+preferencesColumns+` FROM notification_preferences WHERE user_id IN (?) ORDER BY user_id`,
		userIDs)
	if err != nil {
		return nil, fmt.Errorf("build preferences query: %w", err)
	}

	var rows []preferencesRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list preferences by user ids: %w", err)
	}

	prefs := make([]domain.NotificationPreferences, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, *p)
	}
	return prefs, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
