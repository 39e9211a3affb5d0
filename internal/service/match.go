package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/brixsport/backend/internal/cache"
	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/ws"
)

// MatchStore is the match persistence the match service needs.
type MatchStore interface {
	MatchReader
	List(ctx context.Context, status *domain.MatchStatus, limit int) ([]domain.Match, error)
	Create(ctx context.Context, match domain.Match) (*domain.Match, error)
	UpdateStatus(ctx context.Context, id string, status domain.MatchStatus) error
	FindTeam(ctx context.Context, id string) (*domain.Team, error)
}

// CreateMatchInput is the admin payload for a new fixture.
type CreateMatchInput struct {
	CompetitionID *string      `json:"competition_id,omitempty"`
	Sport         domain.Sport `json:"sport" validate:"required,oneof=football basketball track"`
	HomeTeamID    string       `json:"home_team_id" validate:"required"`
	AwayTeamID    string       `json:"away_team_id" validate:"required"`
	Venue         *string      `json:"venue,omitempty"`
	KickoffAt     time.Time    `json:"kickoff_at" validate:"required"`
}

// MatchService serves matches through the cache and owns their
// status lifecycle.
type MatchService struct {
	store MatchStore
	cache *cache.Cache
	hub   *ws.Hub
	ttl   time.Duration
}

// NewMatchService creates a MatchService. ttl bounds how stale served
// match reads may be.
func NewMatchService(store MatchStore, c *cache.Cache, hub *ws.Hub, ttl time.Duration) *MatchService {
	return &MatchService{store: store, cache: c, hub: hub, ttl: ttl}
}

// Get returns a match, cache-first. Transient read failures are
// retried a bounded number of times; the read is idempotent so this
// is safe.
func (s *MatchService) Get(ctx context.Context, id string) (*domain.Match, error) {
	key := cache.Key("match", id)
	if cached, ok := s.cache.Get(key); ok {
		if match, ok := cached.(*domain.Match); ok {
			return match, nil
		}
	}

	var match *domain.Match
	err := withReadRetry(ctx, func(ctx context.Context) error {
		var err error
		match, err = s.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, match, s.ttl)
	return match, nil
}

// List returns matches, optionally filtered by status, cache-first.
func (s *MatchService) List(ctx context.Context, status *domain.MatchStatus, limit int) ([]domain.Match, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	key := cache.Key("matches", map[string]any{"status": status, "limit": limit})
	if cached, ok := s.cache.Get(key); ok {
		if matches, ok := cached.([]domain.Match); ok {
			return matches, nil
		}
	}

	var matches []domain.Match
	err := withReadRetry(ctx, func(ctx context.Context) error {
		var err error
		matches, err = s.store.List(ctx, status, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, matches, s.ttl)
	return matches, nil
}

// Create inserts a new scheduled fixture.
func (s *MatchService) Create(ctx context.Context, input CreateMatchInput) (*domain.Match, error) {
	if input.HomeTeamID == input.AwayTeamID {
		return nil, &domain.ValidationError{
			Field:   "away_team_id",
			Message: "a team cannot play itself",
		}
	}
	for field, teamID := range map[string]string{
		"home_team_id": input.HomeTeamID,
		"away_team_id": input.AwayTeamID,
	} {
		if _, err := s.store.FindTeam(ctx, teamID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown team %q", teamID),
				}
			}
			return nil, err
		}
	}

	match, err := s.store.Create(ctx, domain.Match{
		ID:            uuid.NewString(),
		CompetitionID: input.CompetitionID,
		Sport:         input.Sport,
		HomeTeamID:    input.HomeTeamID,
		AwayTeamID:    input.AwayTeamID,
		Status:        domain.MatchStatusScheduled,
		Venue:         input.Venue,
		KickoffAt:     input.KickoffAt,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate("matches")
	return match, nil
}

// UpdateStatus moves a match through its lifecycle and pushes the
// change to live watchers.
func (s *MatchService) UpdateStatus(ctx context.Context, id string, next domain.MatchStatus) (*domain.Match, error) {
	match, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !match.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: match %s cannot move %s -> %s",
			domain.ErrConflict, id, match.Status, next)
	}

	if err := s.store.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	match.Status = next

	s.cache.Delete(cache.Key("match", id))
	s.cache.Invalidate("matches")
	s.hub.Broadcast(ws.EventMessage{
		Type:    "match_status",
		MatchID: id,
		Data:    map[string]string{"status": string(next)},
	})
	return match, nil
}

// withReadRetry retries an idempotent read over transient failures
// with bounded fibonacci backoff. Writes are never routed through
// here; they rely on idempotency keys instead.
func withReadRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
			return retry.RetryableError(err)
		}
		return err
	})
}
