package domain

import "time"

// StatLine holds the running counters tracked for a team or player
// within one match. All counters are derived by folding the match's
// event log; none are independently authored.
type StatLine struct {
	Goals             int `json:"goals"`
	Assists           int `json:"assists"`
	Shots             int `json:"shots"`
	ShotsOnTarget     int `json:"shots_on_target"`
	Passes            int `json:"passes"`
	PassesCompleted   int `json:"passes_completed"`
	Tackles           int `json:"tackles"`
	Interceptions     int `json:"interceptions"`
	Clearances        int `json:"clearances"`
	Saves             int `json:"saves"`
	FoulsCommitted    int `json:"fouls_committed"`
	FoulsSuffered     int `json:"fouls_suffered"`
	MinutesPlayed     int `json:"minutes_played"`
	YellowCards       int `json:"yellow_cards"`
	RedCards          int `json:"red_cards"`
	Offside           int `json:"offside"`
	Possession        int `json:"possession"`
	CornerKicks       int `json:"corner_kicks"`
	SubstitutionsUsed int `json:"substitutions_used"`
}

// TeamStats is the per-match stat line for one team.
type TeamStats struct {
	MatchID   string    `json:"match_id" db:"match_id"`
	TeamID    string    `json:"team_id" db:"team_id"`
	Stats     StatLine  `json:"stats" db:"stats"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PlayerStats is the per-match stat line for one player.
type PlayerStats struct {
	MatchID   string    `json:"match_id" db:"match_id"`
	PlayerID  string    `json:"player_id" db:"player_id"`
	TeamID    string    `json:"team_id" db:"team_id"`
	Stats     StatLine  `json:"stats" db:"stats"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MatchStats bundles both teams' and all players' stat lines for a
// match, keyed by entity ID.
type MatchStats struct {
	MatchID string                 `json:"match_id"`
	Teams   map[string]*StatLine   `json:"teams"`
	Players map[string]*PlayerLine `json:"players"`
}

// PlayerLine pairs a player's stat line with the team it counts for.
type PlayerLine struct {
	TeamID string   `json:"team_id"`
	Stats  StatLine `json:"stats"`
}

// NewMatchStats returns empty stats for a match with both team lines
// initialized, so a match with no events still reports zeroes.
func NewMatchStats(matchID, homeTeamID, awayTeamID string) *MatchStats {
	return &MatchStats{
		MatchID: matchID,
		Teams: map[string]*StatLine{
			homeTeamID: {},
			awayTeamID: {},
		},
		Players: make(map[string]*PlayerLine),
	}
}
