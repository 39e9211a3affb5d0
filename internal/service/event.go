package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/ws"
)

// EventStore is the event log access the event service needs.
type EventStore interface {
	Insert(ctx context.Context, event domain.MatchEvent) (*domain.MatchEvent, error)
	FindByID(ctx context.Context, id string) (*domain.MatchEvent, error)
	FindByIdempotencyKey(ctx context.Context, matchID, key string) (*domain.MatchEvent, error)
	ListByMatch(ctx context.Context, matchID string, includeQuarantined bool) ([]domain.MatchEvent, error)
	ListQuarantined(ctx context.Context, matchID string) ([]domain.MatchEvent, error)
	MarkSuperseded(ctx context.Context, id string) error
	SetQuarantined(ctx context.Context, id string) error
}

// StatsFolder is the incremental stats hook consumed downstream of an
// event write.
type StatsFolder interface {
	ApplyIncremental(ctx context.Context, event domain.MatchEvent) error
	Recompute(ctx context.Context, matchID string) (*domain.MatchStats, error)
}

// RecordEventInput is the logger-submitted payload for one event.
type RecordEventInput struct {
	MatchID           string          `json:"-"`
	Type              domain.EventType `json:"type" validate:"required"`
	Minute            int             `json:"minute" validate:"gte=0"`
	Second            int             `json:"second" validate:"gte=0"`
	TeamID            *string         `json:"team_id,omitempty"`
	PlayerID          *string         `json:"player_id,omitempty"`
	SecondaryPlayerID *string         `json:"secondary_player_id,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	SupersedesID      *string         `json:"supersedes_id,omitempty"`
	IdempotencyKey    *string         `json:"idempotency_key,omitempty"`
	OccurredAt        *time.Time      `json:"occurred_at,omitempty"`
}

// EventService validates and appends match events, then feeds the
// stats fold, the outbox, and the live push hub.
type EventService struct {
	events  EventStore
	matches MatchReader
	stats   StatsFolder
	broker  *outbox.Broker
	hub     *ws.Hub
}

// NewEventService creates an EventService.
func NewEventService(events EventStore, matches MatchReader, stats StatsFolder, broker *outbox.Broker, hub *ws.Hub) *EventService {
	return &EventService{
		events:  events,
		matches: matches,
		stats:   stats,
		broker:  broker,
		hub:     hub,
	}
}

// Record validates and appends one event to a match's log. The write
// is the event of record: once it succeeds, downstream stats folding,
// notification dispatch, and websocket push are best-effort and can
// never roll it back. An event whose references fail the roster check
// is kept but quarantined for manual review.
func (s *EventService) Record(ctx context.Context, input RecordEventInput) (*domain.MatchEvent, error) {
	match, err := s.matches.FindByID(ctx, input.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Status.Terminal() {
		return nil, fmt.Errorf("%w: match %s is %s", domain.ErrConflict, match.ID, match.Status)
	}

	if input.IdempotencyKey != nil && *input.IdempotencyKey != "" {
		existing, err := s.events.FindByIdempotencyKey(ctx, input.MatchID, *input.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	metadata, err := domain.UnmarshalEventMetadata(input.Type, input.Metadata)
	if err != nil {
		return nil, err
	}

	occurredAt := time.Now()
	if input.OccurredAt != nil {
		occurredAt = *input.OccurredAt
	}

	event := domain.MatchEvent{
		ID:                uuid.NewString(),
		MatchID:           input.MatchID,
		Type:              input.Type,
		Minute:            input.Minute,
		Second:            input.Second,
		OccurredAt:        occurredAt,
		TeamID:            input.TeamID,
		PlayerID:          input.PlayerID,
		SecondaryPlayerID: input.SecondaryPlayerID,
		Metadata:          metadata,
		SupersedesID:      input.SupersedesID,
		IdempotencyKey:    input.IdempotencyKey,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireTeamAttribution(event); err != nil {
		return nil, err
	}

	if input.SupersedesID != nil {
		original, err := s.events.FindByID(ctx, *input.SupersedesID)
		if err != nil {
			return nil, fmt.Errorf("resolve superseded event: %w", err)
		}
		if original.MatchID != input.MatchID {
			return nil, &domain.ValidationError{
				Field:   "supersedes_id",
				Message: "superseded event belongs to a different match",
			}
		}
	}

	recorded, err := s.events.Insert(ctx, event)
	if err != nil {
		return nil, err
	}

	if input.SupersedesID != nil {
		if err := s.events.MarkSuperseded(ctx, *input.SupersedesID); err != nil {
			slog.Error("mark superseded event", "event_id", *input.SupersedesID, "error", err)
		}
		// A correction invalidates incremental totals; rebuild from the log.
		if _, err := s.stats.Recompute(ctx, input.MatchID); err != nil {
			s.handleFoldFailure(ctx, recorded, err)
		}
	} else if err := s.stats.ApplyIncremental(ctx, *recorded); err != nil {
		s.handleFoldFailure(ctx, recorded, err)
	}

	if !recorded.Quarantined {
		s.broker.Publish(outbox.TopicMatchEvents, *recorded)
		s.hub.Broadcast(ws.EventMessage{
			Type:    "match_event",
			MatchID: recorded.MatchID,
			Data:    recorded,
		})
	}

	return recorded, nil
}

// handleFoldFailure quarantines events the aggregator rejects for
// inconsistent references; any other fold failure is logged and left
// for the next recompute, since the event of record already stands.
func (s *EventService) handleFoldFailure(ctx context.Context, event *domain.MatchEvent, err error) {
	var refErr *domain.InconsistentReferenceError
	if errors.As(err, &refErr) {
		event.Quarantined = true
		if qErr := s.events.SetQuarantined(ctx, event.ID); qErr != nil {
			slog.Error("quarantine event", "event_id", event.ID, "error", qErr)
		}
		slog.Warn("event quarantined", "event_id", event.ID, "ref", refErr.Ref)
		return
	}
	slog.Error("apply event to stats", "event_id", event.ID, "error", err)
}

func (s *EventService) requireTeamAttribution(e domain.MatchEvent) error {
	switch e.Type {
	case domain.EventGoal, domain.EventCard, domain.EventSubstitution,
		domain.EventFoul, domain.EventCorner, domain.EventOffside:
		if e.TeamID == nil {
			return &domain.ValidationError{
				Field:   "team_id",
				Message: fmt.Sprintf("required for %s events", e.Type),
			}
		}
	}
	return nil
}

// ListByMatch returns a match's ordered event log.
func (s *EventService) ListByMatch(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	if _, err := s.matches.FindByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.events.ListByMatch(ctx, matchID, false)
}

// ListQuarantined returns a match's quarantined events for review.
func (s *EventService) ListQuarantined(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	if _, err := s.matches.FindByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.events.ListQuarantined(ctx, matchID)
}
