package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brixsport/backend/internal/domain"
)

// MatchRepository handles match, team, and player data access.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// FindByID retrieves a match by its ID.
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*domain.Match, error) {
	var match domain.Match
	err := r.db.GetContext(ctx, &match,
		`SELECT id, competition_id, sport, home_team_id, away_team_id, status, venue, kickoff_at, created_at, updated_at
		 FROM matches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find match %s: %w", id, err)
	}
	return &match, nil
}

// List retrieves matches, optionally filtered by status, newest kickoff first.
func (r *MatchRepository) List(ctx context.Context, status *domain.MatchStatus, limit int) ([]domain.Match, error) {
	matches := []domain.Match{}
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &matches,
			`SELECT id, competition_id, sport, home_team_id, away_team_id, status, venue, kickoff_at, created_at, updated_at
			 FROM matches WHERE status = $1 ORDER BY kickoff_at DESC LIMIT $2`, *status, limit)
	} else {
		err = r.db.SelectContext(ctx, &matches,
			`SELECT id, competition_id, sport, home_team_id, away_team_id, status, venue, kickoff_at, created_at, updated_at
			 FROM matches ORDER BY kickoff_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// Create inserts a new match.
func (r *MatchRepository) Create(ctx context.Context, match domain.Match) (*domain.Match, error) {
	var result domain.Match
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO matches (id, competition_id, sport, home_team_id, away_team_id, status, venue, kickoff_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, competition_id, sport, home_team_id, away_team_id, status, venue, kickoff_at, created_at, updated_at`,
		match.ID, match.CompetitionID, match.Sport, match.HomeTeamID, match.AwayTeamID,
		match.Status, match.Venue, match.KickoffAt,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &result, nil
}

// UpdateStatus moves a match to a new status.
func (r *MatchRepository) UpdateStatus(ctx context.Context, id string, status domain.MatchStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update match %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Roster loads the teams and rostered players for a match.
func (r *MatchRepository) Roster(ctx context.Context, matchID string) (*domain.Roster, error) {
	match, err := r.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	type playerRow struct {
		ID     string `db:"id"`
		TeamID string `db:"team_id"`
	}
	var players []playerRow
	err = r.db.SelectContext(ctx, &players,
		`SELECT id, team_id FROM players WHERE team_id IN ($1, $2)`,
		match.HomeTeamID, match.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("load roster for match %s: %w", matchID, err)
	}

	roster := &domain.Roster{
		TeamIDs:   map[string]bool{match.HomeTeamID: true, match.AwayTeamID: true},
		PlayerIDs: make(map[string]string, len(players)),
	}
	for _, p := range players {
		roster.PlayerIDs[p.ID] = p.TeamID
	}
	return roster, nil
}

// FindTeam retrieves a team by ID.
func (r *MatchRepository) FindTeam(ctx context.Context, id string) (*domain.Team, error) {
	var team domain.Team
	err := r.db.GetContext(ctx, &team,
		`SELECT id, name, short_name, logo_url, created_at FROM teams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find team %s: %w", id, err)
	}
	return &team, nil
}
