package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brixsport/backend/internal/domain"
)

// StatsRepository persists the derived team/player stat lines. Rows
// here are a materialization of the event-log fold, never the source
// of truth; recompute rebuilds them from scratch.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type teamStatsRow struct {
	MatchID   string    `db:"match_id"`
	TeamID    string    `db:"team_id"`
	Stats     []byte    `db:"stats"`
	UpdatedAt time.Time `db:"updated_at"`
}

type playerStatsRow struct {
	MatchID   string    `db:"match_id"`
	PlayerID  string    `db:"player_id"`
	TeamID    string    `db:"team_id"`
	Stats     []byte    `db:"stats"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Replace overwrites the persisted stats for a match with the result
// of a fold, inside one transaction.
func (r *StatsRepository) Replace(ctx context.Context, stats *domain.MatchStats) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_stats WHERE match_id = $1`, stats.MatchID); err != nil {
		return fmt.Errorf("clear team stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_stats WHERE match_id = $1`, stats.MatchID); err != nil {
		return fmt.Errorf("clear player stats: %w", err)
	}

	for teamID, line := range stats.Teams {
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshal team stats: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_stats (match_id, team_id, stats) VALUES ($1, $2, $3)`,
			stats.MatchID, teamID, data); err != nil {
			return fmt.Errorf("insert team stats: %w", err)
		}
	}

	for playerID, line := range stats.Players {
		data, err := json.Marshal(line.Stats)
		if err != nil {
			return fmt.Errorf("marshal player stats: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_stats (match_id, player_id, team_id, stats) VALUES ($1, $2, $3, $4)`,
			stats.MatchID, playerID, line.TeamID, data); err != nil {
			return fmt.Errorf("insert player stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats transaction: %w", err)
	}
	return nil
}

// Load returns the persisted stats for a match.
func (r *StatsRepository) Load(ctx context.Context, matchID string) (*domain.MatchStats, error) {
	var teamRows []teamStatsRow
	err := r.db.SelectContext(ctx, &teamRows,
		`SELECT match_id, team_id, stats, updated_at FROM team_stats WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load team stats for match %s: %w", matchID, err)
	}

	var playerRows []playerStatsRow
	err = r.db.SelectContext(ctx, &playerRows,
		`SELECT match_id, player_id, team_id, stats, updated_at FROM player_stats WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load player stats for match %s: %w", matchID, err)
	}

	stats := &domain.MatchStats{
		MatchID: matchID,
		Teams:   make(map[string]*domain.StatLine, len(teamRows)),
		Players: make(map[string]*domain.PlayerLine, len(playerRows)),
	}
	for _, row := range teamRows {
		var line domain.StatLine
		if err := json.Unmarshal(row.Stats, &line); err != nil {
			return nil, fmt.Errorf("unmarshal team stats: %w", err)
		}
		stats.Teams[row.TeamID] = &line
	}
	for _, row := range playerRows {
		var line domain.StatLine
		if err := json.Unmarshal(row.Stats, &line); err != nil {
			return nil, fmt.Errorf("unmarshal player stats: %w", err)
		}
		stats.Players[row.PlayerID] = &domain.PlayerLine{TeamID: row.TeamID, Stats: line}
	}
	return stats, nil
}
