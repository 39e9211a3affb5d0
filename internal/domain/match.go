package domain

import "time"

// Sport identifies the sport a match belongs to.
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
	SportTrack      Sport = "track"
)

// MatchStatus represents the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusHalfTime  MatchStatus = "half_time"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusPostponed MatchStatus = "postponed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusScheduled: {MatchStatusLive, MatchStatusPostponed, MatchStatusCancelled},
	MatchStatusLive:      {MatchStatusHalfTime, MatchStatusCompleted, MatchStatusCancelled},
	MatchStatusHalfTime:  {MatchStatusLive, MatchStatusCompleted, MatchStatusCancelled},
	MatchStatusPostponed: {MatchStatusScheduled, MatchStatusCancelled},
	MatchStatusCompleted: nil,
	MatchStatusCancelled: nil,
}

// Valid reports whether the status is a known match status.
func (s MatchStatus) Valid() bool {
	_, ok := matchTransitions[s]
	return ok
}

// CanTransitionTo reports whether a match may move to the given status.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the match can no longer accept events.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// Match represents a fixture between two teams.
type Match struct {
	ID            string      `json:"id" db:"id"`
	CompetitionID *string     `json:"competition_id,omitempty" db:"competition_id"`
	Sport         Sport       `json:"sport" db:"sport"`
	HomeTeamID    string      `json:"home_team_id" db:"home_team_id"`
	AwayTeamID    string      `json:"away_team_id" db:"away_team_id"`
	Status        MatchStatus `json:"status" db:"status"`
	Venue         *string     `json:"venue,omitempty" db:"venue"`
	KickoffAt     time.Time   `json:"kickoff_at" db:"kickoff_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Team represents a team that plays matches.
type Team struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ShortName *string   `json:"short_name,omitempty" db:"short_name"`
	LogoURL   *string   `json:"logo_url,omitempty" db:"logo_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Player represents a rostered player.
type Player struct {
	ID        string    `json:"id" db:"id"`
	TeamID    string    `json:"team_id" db:"team_id"`
	Name      string    `json:"name" db:"name"`
	Position  *string   `json:"position,omitempty" db:"position"`
	Number    *int      `json:"number,omitempty" db:"number"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Roster is the set of teams and players eligible to appear in a
// match's events. Events referencing anything outside it are
// quarantined rather than folded into stats.
type Roster struct {
	TeamIDs   map[string]bool
	PlayerIDs map[string]string // player id -> team id
}

// HasTeam reports whether the team is part of the match.
func (r Roster) HasTeam(teamID string) bool {
	return r.TeamIDs[teamID]
}

// HasPlayer reports whether the player is rostered for the match.
func (r Roster) HasPlayer(playerID string) bool {
	_, ok := r.PlayerIDs[playerID]
	return ok
}

// PlayerTeam returns the team a rostered player belongs to.
func (r Roster) PlayerTeam(playerID string) (string, bool) {
	teamID, ok := r.PlayerIDs[playerID]
	return teamID, ok
}
