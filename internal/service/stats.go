package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brixsport/backend/internal/cache"
	"github.com/brixsport/backend/internal/domain"
)

// Fold holds the fixed context needed to fold one match's event log:
// which teams are home and away, and who is on the roster. Folding
// has no other inputs, so replaying the same log always produces the
// same stats.
type Fold struct {
	MatchID    string
	HomeTeamID string
	AwayTeamID string
	Roster     domain.Roster
}

// Apply folds a single event into the accumulated stats. Superseded
// and quarantined events are ignored. An event referencing a team or
// player outside the roster fails with InconsistentReferenceError and
// leaves the stats untouched.
func (f Fold) Apply(stats *domain.MatchStats, e domain.MatchEvent) error {
	if e.Superseded || e.Quarantined {
		return nil
	}

	if err := f.checkReferences(e); err != nil {
		return err
	}

	switch e.Type {
	case domain.EventGoal:
		f.applyGoal(stats, e)
	case domain.EventCard:
		f.applyCard(stats, e)
	case domain.EventSubstitution:
		if e.TeamID != nil {
			f.teamLine(stats, *e.TeamID).SubstitutionsUsed++
		}
	case domain.EventFoul:
		f.applyFoul(stats, e)
	case domain.EventCorner:
		if e.TeamID != nil {
			f.teamLine(stats, *e.TeamID).CornerKicks++
		}
	case domain.EventOffside:
		if e.TeamID != nil {
			f.teamLine(stats, *e.TeamID).Offside++
		}
		if e.PlayerID != nil {
			f.playerLine(stats, *e.PlayerID).Offside++
		}
	case domain.EventOther:
		f.applyStatUpdate(stats, e)
	}
	return nil
}

// Recompute folds a full ordered event log into fresh stats. The
// input order is not trusted; events are re-sorted by the canonical
// (minute, second, seq) order first so replay is deterministic.
func (f Fold) Recompute(events []domain.MatchEvent) (*domain.MatchStats, error) {
	ordered := make([]domain.MatchEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	stats := domain.NewMatchStats(f.MatchID, f.HomeTeamID, f.AwayTeamID)
	for _, e := range ordered {
		if err := f.Apply(stats, e); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (f Fold) checkReferences(e domain.MatchEvent) error {
	if e.TeamID != nil && !f.Roster.HasTeam(*e.TeamID) {
		return &domain.InconsistentReferenceError{
			EventID: e.ID,
			Ref:     "team:" + *e.TeamID,
			Message: "team is not part of match " + f.MatchID,
		}
	}
	for _, playerID := range []*string{e.PlayerID, e.SecondaryPlayerID} {
		if playerID != nil && !f.Roster.HasPlayer(*playerID) {
			return &domain.InconsistentReferenceError{
				EventID: e.ID,
				Ref:     "player:" + *playerID,
				Message: "player is not rostered for match " + f.MatchID,
			}
		}
	}
	return nil
}

// applyGoal credits the goal. An own goal counts for the opponent of
// the team attributed on the event, and the scorer gets no personal
// goal; any other goal counts for the event's team and scorer.
// Penalty goals are goals like any other, with no separate counter.
func (f Fold) applyGoal(stats *domain.MatchStats, e domain.MatchEvent) {
	if e.TeamID == nil {
		return
	}

	ownGoal := false
	if meta, ok := e.Metadata.(domain.GoalMetadata); ok {
		ownGoal = meta.GoalType == domain.GoalOwnGoal
	}

	creditedTeam := *e.TeamID
	if ownGoal {
		creditedTeam = f.opponent(*e.TeamID)
	}
	f.teamLine(stats, creditedTeam).Goals++

	if ownGoal {
		return
	}
	if e.PlayerID != nil {
		f.playerLine(stats, *e.PlayerID).Goals++
	}
	if e.SecondaryPlayerID != nil {
		f.playerLine(stats, *e.SecondaryPlayerID).Assists++
		f.teamLine(stats, *e.TeamID).Assists++
	}
}

func (f Fold) applyCard(stats *domain.MatchStats, e domain.MatchEvent) {
	meta, ok := e.Metadata.(domain.CardMetadata)
	if !ok {
		return
	}

	yellow := meta.CardType == domain.CardYellow || meta.CardType == domain.CardSecondYellow
	red := meta.CardType == domain.CardRed || meta.CardType == domain.CardSecondYellow

	if e.TeamID != nil {
		line := f.teamLine(stats, *e.TeamID)
		if yellow {
			line.YellowCards++
		}
		if red {
			line.RedCards++
		}
	}
	if e.PlayerID != nil {
		line := f.playerLine(stats, *e.PlayerID)
		if yellow {
			line.YellowCards++
		}
		if red {
			line.RedCards++
		}
	}
}

// applyFoul charges the primary player and credits the fouled
// (secondary) player.
func (f Fold) applyFoul(stats *domain.MatchStats, e domain.MatchEvent) {
	if e.TeamID != nil {
		f.teamLine(stats, *e.TeamID).FoulsCommitted++
		f.teamLine(stats, f.opponent(*e.TeamID)).FoulsSuffered++
	}
	if e.PlayerID != nil {
		f.playerLine(stats, *e.PlayerID).FoulsCommitted++
	}
	if e.SecondaryPlayerID != nil {
		f.playerLine(stats, *e.SecondaryPlayerID).FoulsSuffered++
	}
}

// applyStatUpdate sets possession from a manually logged stat-update
// event. Possession is informational; the two teams are not forced to
// sum to 100.
func (f Fold) applyStatUpdate(stats *domain.MatchStats, e domain.MatchEvent) {
	meta, ok := e.Metadata.(domain.StatUpdateMetadata)
	if !ok {
		return
	}
	if meta.PossessionHome != nil {
		f.teamLine(stats, f.HomeTeamID).Possession = *meta.PossessionHome
	}
	if meta.PossessionAway != nil {
		f.teamLine(stats, f.AwayTeamID).Possession = *meta.PossessionAway
	}
}

func (f Fold) opponent(teamID string) string {
	if teamID == f.HomeTeamID {
		return f.AwayTeamID
	}
	return f.HomeTeamID
}

func (f Fold) teamLine(stats *domain.MatchStats, teamID string) *domain.StatLine {
	line, ok := stats.Teams[teamID]
	if !ok {
		line = &domain.StatLine{}
		stats.Teams[teamID] = line
	}
	return line
}

func (f Fold) playerLine(stats *domain.MatchStats, playerID string) *domain.StatLine {
	pl, ok := stats.Players[playerID]
	if !ok {
		teamID, _ := f.Roster.PlayerTeam(playerID)
		pl = &domain.PlayerLine{TeamID: teamID}
		stats.Players[playerID] = pl
	}
	return &pl.Stats
}

// EventReader is the event log access the stats service needs.
type EventReader interface {
	ListByMatch(ctx context.Context, matchID string, includeQuarantined bool) ([]domain.MatchEvent, error)
}

// StatsWriter persists and loads materialized stats.
type StatsWriter interface {
	Replace(ctx context.Context, stats *domain.MatchStats) error
	Load(ctx context.Context, matchID string) (*domain.MatchStats, error)
}

// MatchReader resolves matches and rosters.
type MatchReader interface {
	FindByID(ctx context.Context, id string) (*domain.Match, error)
	Roster(ctx context.Context, matchID string) (*domain.Roster, error)
}

// StatsService folds event logs into stats and serves them through
// the cache.
type StatsService struct {
	events  EventReader
	stats   StatsWriter
	matches MatchReader
	cache   *cache.Cache
	ttl     time.Duration
}

// NewStatsService creates a StatsService. ttl controls how long
// served stats may lag a recompute.
func NewStatsService(events EventReader, stats StatsWriter, matches MatchReader, c *cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{
		events:  events,
		stats:   stats,
		matches: matches,
		cache:   c,
		ttl:     ttl,
	}
}

// Get returns the persisted stats for a match, cache-first.
func (s *StatsService) Get(ctx context.Context, matchID string) (*domain.MatchStats, error) {
	key := cache.Key("stats", matchID)
	if cached, ok := s.cache.Get(key); ok {
		if stats, ok := cached.(*domain.MatchStats); ok {
			return stats, nil
		}
	}

	if _, err := s.matches.FindByID(ctx, matchID); err != nil {
		return nil, err
	}

	stats, err := s.stats.Load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, stats, s.ttl)
	return stats, nil
}

// Recompute rebuilds a match's stats from its full event log and
// persists the result, replacing whatever was materialized before.
// Quarantined and superseded events are excluded from the fold.
func (s *StatsService) Recompute(ctx context.Context, matchID string) (*domain.MatchStats, error) {
	fold, err := s.foldFor(ctx, matchID)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListByMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}

	stats, err := fold.Recompute(events)
	if err != nil {
		return nil, err
	}

	if err := s.stats.Replace(ctx, stats); err != nil {
		return nil, err
	}
	s.cache.Delete(cache.Key("stats", matchID))
	return stats, nil
}

// ApplyIncremental folds one newly recorded event into the persisted
// stats. A reference inconsistency is reported to the caller, who
// quarantines the event rather than dropping it.
func (s *StatsService) ApplyIncremental(ctx context.Context, event domain.MatchEvent) error {
	fold, err := s.foldFor(ctx, event.MatchID)
	if err != nil {
		return err
	}

	stats, err := s.stats.Load(ctx, event.MatchID)
	if err != nil {
		return err
	}
	if len(stats.Teams) == 0 {
		stats = domain.NewMatchStats(fold.MatchID, fold.HomeTeamID, fold.AwayTeamID)
	}

	if err := fold.Apply(stats, event); err != nil {
		return err
	}

	if err := s.stats.Replace(ctx, stats); err != nil {
		return err
	}
	s.cache.Delete(cache.Key("stats", event.MatchID))
	return nil
}

func (s *StatsService) foldFor(ctx context.Context, matchID string) (Fold, error) {
	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return Fold{}, fmt.Errorf("resolve match for fold: %w", err)
	}
	roster, err := s.matches.Roster(ctx, matchID)
	if err != nil {
		return Fold{}, fmt.Errorf("resolve roster for fold: %w", err)
	}
	return Fold{
		MatchID:    matchID,
		HomeTeamID: match.HomeTeamID,
		AwayTeamID: match.AwayTeamID,
		Roster:     *roster,
	}, nil
}
