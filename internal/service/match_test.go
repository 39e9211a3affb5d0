package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brixsport/backend/internal/cache"
	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/ws"
)

type fakeMatchStore struct {
	fakeMatchReader
	findCalls    int
	transientFor int
	statusTo     *domain.MatchStatus
	unknownTeams map[string]bool
}

func (s *fakeMatchStore) FindByID(ctx context.Context, id string) (*domain.Match, error) {
	s.findCalls++
	if s.findCalls <= s.transientFor {
		return nil, fmt.Errorf("%w: connection reset", domain.ErrTransient)
	}
	return s.fakeMatchReader.FindByID(ctx, id)
}

func (s *fakeMatchStore) List(_ context.Context, status *domain.MatchStatus, limit int) ([]domain.Match, error) {
	if s.match == nil {
		return nil, nil
	}
	return []domain.Match{*s.match}, nil
}

func (s *fakeMatchStore) Create(_ context.Context, match domain.Match) (*domain.Match, error) {
	s.match = &match
	copy := match
	return &copy, nil
}

func (s *fakeMatchStore) UpdateStatus(_ context.Context, id string, status domain.MatchStatus) error {
	if s.match == nil || s.match.ID != id {
		return domain.ErrNotFound
	}
	s.match.Status = status
	s.statusTo = &status
	return nil
}

func (s *fakeMatchStore) FindTeam(_ context.Context, id string) (*domain.Team, error) {
	if s.unknownTeams[id] {
		return nil, domain.ErrNotFound
	}
	return &domain.Team{ID: id, Name: "Team " + id}, nil
}

func newMatchFixture(match *domain.Match) (*MatchService, *fakeMatchStore, *cache.Cache) {
	store := &fakeMatchStore{fakeMatchReader: fakeMatchReader{match: match}}
	c := cache.New()
	return NewMatchService(store, c, ws.NewHub(), time.Minute), store, c
}

func TestMatchGetCacheFirst(t *testing.T) {
	svc, store, c := newMatchFixture(liveMatch())
	defer c.Close()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "m1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Get(ctx, "m1"); err != nil {
		t.Fatalf("Get cached: %v", err)
	}

	if store.findCalls != 1 {
		t.Errorf("store reads = %d, want 1 (second read served from cache)", store.findCalls)
	}
}

func TestMatchGetRetriesTransientReads(t *testing.T) {
	svc, store, c := newMatchFixture(liveMatch())
	defer c.Close()
	store.transientFor = 2

	match, err := svc.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Get should survive two transient failures: %v", err)
	}
	if match.ID != "m1" {
		t.Errorf("ID = %q, want m1", match.ID)
	}
	if store.findCalls != 3 {
		t.Errorf("store reads = %d, want 3", store.findCalls)
	}
}

func TestMatchGetDoesNotRetryHardErrors(t *testing.T) {
	svc, store, c := newMatchFixture(nil)
	defer c.Close()

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if store.findCalls != 1 {
		t.Errorf("store reads = %d, want 1 (not-found is not retried)", store.findCalls)
	}
}

func TestMatchCreateRejectsSameTeam(t *testing.T) {
	svc, _, c := newMatchFixture(nil)
	defer c.Close()

	_, err := svc.Create(context.Background(), CreateMatchInput{
		Sport:      domain.SportFootball,
		HomeTeamID: "team-1",
		AwayTeamID: "team-1",
		KickoffAt:  time.Now(),
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestMatchCreateRejectsUnknownTeam(t *testing.T) {
	svc, store, c := newMatchFixture(nil)
	defer c.Close()
	store.unknownTeams = map[string]bool{"ghost": true}

	_, err := svc.Create(context.Background(), CreateMatchInput{
		Sport:      domain.SportFootball,
		HomeTeamID: "team-1",
		AwayTeamID: "ghost",
		KickoffAt:  time.Now(),
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Field != "away_team_id" {
		t.Errorf("Field = %q, want away_team_id", ve.Field)
	}
}

func TestMatchUpdateStatusEnforcesTransitions(t *testing.T) {
	svc, store, c := newMatchFixture(liveMatch())
	defer c.Close()
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, "m1", domain.MatchStatusCompleted); err != nil {
		t.Fatalf("live -> completed should be allowed: %v", err)
	}
	if store.statusTo == nil || *store.statusTo != domain.MatchStatusCompleted {
		t.Error("status change should be persisted")
	}

	_, err := svc.UpdateStatus(ctx, "m1", domain.MatchStatusLive)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("completed -> live: error = %v, want ErrConflict", err)
	}
}
