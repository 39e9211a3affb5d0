package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/ws"
)

type fakeEventStore struct {
	events      map[string]*domain.MatchEvent
	nextSeq     int64
	inserted    int
	superseded  []string
	quarantined []string
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*domain.MatchEvent)}
}

func (s *fakeEventStore) Insert(_ context.Context, event domain.MatchEvent) (*domain.MatchEvent, error) {
	s.nextSeq++
	s.inserted++
	event.Seq = s.nextSeq
	event.CreatedAt = time.Now()
	s.events[event.ID] = &event
	copy := event
	return &copy, nil
}

func (s *fakeEventStore) FindByID(_ context.Context, id string) (*domain.MatchEvent, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *e
	return &copy, nil
}

func (s *fakeEventStore) FindByIdempotencyKey(_ context.Context, matchID, key string) (*domain.MatchEvent, error) {
	for _, e := range s.events {
		if e.MatchID == matchID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			copy := *e
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeEventStore) ListByMatch(_ context.Context, matchID string, includeQuarantined bool) ([]domain.MatchEvent, error) {
	var out []domain.MatchEvent
	for _, e := range s.events {
		if e.MatchID != matchID {
			continue
		}
		if e.Quarantined && !includeQuarantined {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeEventStore) ListQuarantined(_ context.Context, matchID string) ([]domain.MatchEvent, error) {
	var out []domain.MatchEvent
	for _, e := range s.events {
		if e.MatchID == matchID && e.Quarantined {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) MarkSuperseded(_ context.Context, id string) error {
	e, ok := s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Superseded = true
	s.superseded = append(s.superseded, id)
	return nil
}

func (s *fakeEventStore) SetQuarantined(_ context.Context, id string) error {
	e, ok := s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Quarantined = true
	s.quarantined = append(s.quarantined, id)
	return nil
}

type fakeMatchReader struct {
	match  *domain.Match
	roster domain.Roster
}

func (r *fakeMatchReader) FindByID(_ context.Context, id string) (*domain.Match, error) {
	if r.match == nil || r.match.ID != id {
		return nil, domain.ErrNotFound
	}
	copy := *r.match
	return &copy, nil
}

func (r *fakeMatchReader) Roster(_ context.Context, matchID string) (*domain.Roster, error) {
	roster := r.roster
	return &roster, nil
}

type fakeFolder struct {
	applied    int
	recomputed int
	applyErr   error
}

func (f *fakeFolder) ApplyIncremental(_ context.Context, event domain.MatchEvent) error {
	f.applied++
	return f.applyErr
}

func (f *fakeFolder) Recompute(_ context.Context, matchID string) (*domain.MatchStats, error) {
	f.recomputed++
	return domain.NewMatchStats(matchID, "home", "away"), nil
}

func liveMatch() *domain.Match {
	return &domain.Match{
		ID:         "m1",
		Sport:      domain.SportFootball,
		HomeTeamID: "home",
		AwayTeamID: "away",
		Status:     domain.MatchStatusLive,
	}
}

func newEventFixture(match *domain.Match) (*EventService, *fakeEventStore, *fakeFolder, *outbox.Broker) {
	store := newFakeEventStore()
	folder := &fakeFolder{}
	broker := outbox.NewBroker(8)
	svc := NewEventService(store, &fakeMatchReader{match: match}, folder, broker, ws.NewHub())
	return svc, store, folder, broker
}

func goalInput(key *string) RecordEventInput {
	return RecordEventInput{
		MatchID:        "m1",
		Type:           domain.EventGoal,
		Minute:         23,
		TeamID:         str("home"),
		PlayerID:       str("p1"),
		Metadata:       json.RawMessage(`{"goal_type":"open_play"}`),
		IdempotencyKey: key,
	}
}

func TestRecordEvent(t *testing.T) {
	svc, store, folder, broker := newEventFixture(liveMatch())
	defer broker.Close()
	published := broker.Subscribe(outbox.TopicMatchEvents)

	event, err := svc.Record(context.Background(), goalInput(nil))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if event.ID == "" || event.Seq == 0 {
		t.Error("recorded event should have an ID and a sequence")
	}
	if store.inserted != 1 {
		t.Errorf("inserted = %d, want 1", store.inserted)
	}
	if folder.applied != 1 {
		t.Errorf("ApplyIncremental calls = %d, want 1", folder.applied)
	}

	select {
	case msg := <-published:
		got, ok := msg.Payload.(domain.MatchEvent)
		if !ok || got.ID != event.ID {
			t.Errorf("published payload = %v, want event %s", msg.Payload, event.ID)
		}
	default:
		t.Error("event should be published to the outbox")
	}
}

func TestRecordEventIdempotent(t *testing.T) {
	svc, store, _, broker := newEventFixture(liveMatch())
	defer broker.Close()

	key := "req-1"
	first, err := svc.Record(context.Background(), goalInput(&key))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	second, err := svc.Record(context.Background(), goalInput(&key))
	if err != nil {
		t.Fatalf("Record retry: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("retry returned a different event: %s vs %s", first.ID, second.ID)
	}
	if store.inserted != 1 {
		t.Errorf("inserted = %d, want 1 (idempotent re-submission)", store.inserted)
	}
}

func TestRecordEventTerminalMatch(t *testing.T) {
	match := liveMatch()
	match.Status = domain.MatchStatusCompleted
	svc, _, _, broker := newEventFixture(match)
	defer broker.Close()

	_, err := svc.Record(context.Background(), goalInput(nil))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestRecordEventQuarantinesInconsistentReference(t *testing.T) {
	svc, store, folder, broker := newEventFixture(liveMatch())
	defer broker.Close()
	published := broker.Subscribe(outbox.TopicMatchEvents)

	folder.applyErr = &domain.InconsistentReferenceError{
		Ref:     "player:stranger",
		Message: "player is not rostered",
	}

	event, err := svc.Record(context.Background(), goalInput(nil))
	if err != nil {
		t.Fatalf("Record should still succeed, the write stands: %v", err)
	}
	if !event.Quarantined {
		t.Error("event should be flagged quarantined")
	}
	if len(store.quarantined) != 1 || store.quarantined[0] != event.ID {
		t.Errorf("quarantined = %v, want [%s]", store.quarantined, event.ID)
	}

	select {
	case <-published:
		t.Error("quarantined event must not reach the outbox")
	default:
	}
}

func TestRecordEventSupersedes(t *testing.T) {
	svc, store, folder, broker := newEventFixture(liveMatch())
	defer broker.Close()

	original, err := svc.Record(context.Background(), goalInput(nil))
	if err != nil {
		t.Fatalf("Record original: %v", err)
	}

	correction := goalInput(nil)
	correction.PlayerID = str("p2")
	correction.SupersedesID = &original.ID

	corrected, err := svc.Record(context.Background(), correction)
	if err != nil {
		t.Fatalf("Record correction: %v", err)
	}

	stored, _ := store.FindByID(context.Background(), original.ID)
	if !stored.Superseded {
		t.Error("original should be marked superseded")
	}
	if corrected.SupersedesID == nil || *corrected.SupersedesID != original.ID {
		t.Error("correction should point at the original")
	}
	if folder.recomputed != 1 {
		t.Errorf("Recompute calls = %d, want 1 (corrections rebuild from the log)", folder.recomputed)
	}
}

func TestRecordEventSupersedesCrossMatch(t *testing.T) {
	svc, store, _, broker := newEventFixture(liveMatch())
	defer broker.Close()

	foreign := domain.MatchEvent{ID: "foreign", MatchID: "m2", Type: domain.EventGoal}
	store.events[foreign.ID] = &foreign

	input := goalInput(nil)
	input.SupersedesID = str("foreign")

	_, err := svc.Record(context.Background(), input)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Field != "supersedes_id" {
		t.Errorf("Field = %q, want supersedes_id", ve.Field)
	}
}

func TestRecordEventRequiresTeamAttribution(t *testing.T) {
	svc, _, _, broker := newEventFixture(liveMatch())
	defer broker.Close()

	input := goalInput(nil)
	input.TeamID = nil

	_, err := svc.Record(context.Background(), input)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Field != "team_id" {
		t.Errorf("Field = %q, want team_id", ve.Field)
	}
}
