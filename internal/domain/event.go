package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the kind of in-match occurrence.
type EventType string

const (
	EventGoal         EventType = "goal"
	EventCard         EventType = "card"
	EventSubstitution EventType = "substitution"
	EventFoul         EventType = "foul"
	EventInjury       EventType = "injury"
	EventVARReview    EventType = "var_review"
	EventPenalty      EventType = "penalty"
	EventCorner       EventType = "corner"
	EventOffside      EventType = "offside"
	EventKickoff      EventType = "kickoff"
	EventHalfTime     EventType = "half_time"
	EventFullTime     EventType = "full_time"
	EventOther        EventType = "other"
)

var eventTypes = map[EventType]bool{
	EventGoal: true, EventCard: true, EventSubstitution: true,
	EventFoul: true, EventInjury: true, EventVARReview: true,
	EventPenalty: true, EventCorner: true, EventOffside: true,
	EventKickoff: true, EventHalfTime: true, EventFullTime: true,
	EventOther: true,
}

// Valid reports whether the event type is known.
func (t EventType) Valid() bool { return eventTypes[t] }

// GoalType qualifies how a goal was scored.
type GoalType string

const (
	GoalOpenPlay GoalType = "open_play"
	GoalPenalty  GoalType = "penalty"
	GoalFreeKick GoalType = "free_kick"
	GoalHeader   GoalType = "header"
	GoalOwnGoal  GoalType = "own_goal"
)

// CardType is the color of a disciplinary card.
type CardType string

const (
	CardYellow       CardType = "yellow"
	CardRed          CardType = "red"
	CardSecondYellow CardType = "second_yellow"
)

// InjurySeverity grades an injury event.
type InjurySeverity string

const (
	InjuryMinor    InjurySeverity = "minor"
	InjuryModerate InjurySeverity = "moderate"
	InjurySevere   InjurySeverity = "severe"
)

// EventMetadata is the tagged variant payload of a MatchEvent. Each
// event type that requires extra fields has its own variant carrying
// exactly those fields, so a missing field is caught at validation
// time instead of surfacing as a nil map lookup downstream.
type EventMetadata interface {
	Validate() error
}

// GoalMetadata accompanies goal events.
type GoalMetadata struct {
	GoalType GoalType `json:"goal_type"`
	Note     *string  `json:"note,omitempty"`
}

func (m GoalMetadata) Validate() error {
	switch m.GoalType {
	case GoalOpenPlay, GoalPenalty, GoalFreeKick, GoalHeader, GoalOwnGoal:
		return nil
	case "":
		return &ValidationError{Field: "metadata.goal_type", Message: "required for goal events"}
	default:
		return &ValidationError{Field: "metadata.goal_type", Message: fmt.Sprintf("unknown goal type %q", m.GoalType)}
	}
}

// CardMetadata accompanies card events.
type CardMetadata struct {
	CardType CardType `json:"card_type"`
	Reason   *string  `json:"reason,omitempty"`
}

func (m CardMetadata) Validate() error {
	switch m.CardType {
	case CardYellow, CardRed, CardSecondYellow:
		return nil
	case "":
		return &ValidationError{Field: "metadata.card_type", Message: "required for card events"}
	default:
		return &ValidationError{Field: "metadata.card_type", Message: fmt.Sprintf("unknown card type %q", m.CardType)}
	}
}

// FoulMetadata accompanies foul events.
type FoulMetadata struct {
	FoulType string  `json:"foul_type"`
	Note     *string `json:"note,omitempty"`
}

func (m FoulMetadata) Validate() error {
	if m.FoulType == "" {
		return &ValidationError{Field: "metadata.foul_type", Message: "required for foul events"}
	}
	return nil
}

// InjuryMetadata accompanies injury events.
type InjuryMetadata struct {
	Severity InjurySeverity `json:"severity"`
	Note     *string        `json:"note,omitempty"`
}

func (m InjuryMetadata) Validate() error {
	switch m.Severity {
	case InjuryMinor, InjuryModerate, InjurySevere:
		return nil
	case "":
		return &ValidationError{Field: "metadata.severity", Message: "required for injury events"}
	default:
		return &ValidationError{Field: "metadata.severity", Message: fmt.Sprintf("unknown severity %q", m.Severity)}
	}
}

// VARMetadata accompanies VAR review events.
type VARMetadata struct {
	Outcome *string `json:"outcome,omitempty"`
	Note    *string `json:"note,omitempty"`
}

func (m VARMetadata) Validate() error { return nil }

// StatUpdateMetadata carries manually logged stat corrections such as
// possession, which cannot be derived by counting events.
type StatUpdateMetadata struct {
	PossessionHome *int    `json:"possession_home,omitempty"`
	PossessionAway *int    `json:"possession_away,omitempty"`
	Note           *string `json:"note,omitempty"`
}

func (m StatUpdateMetadata) Validate() error {
	for field, v := range map[string]*int{"possession_home": m.PossessionHome, "possession_away": m.PossessionAway} {
		if v != nil && (*v < 0 || *v > 100) {
			return &ValidationError{Field: "metadata." + field, Message: "must be between 0 and 100"}
		}
	}
	return nil
}

// NoteMetadata is a free-text payload for event types without
// structured fields.
type NoteMetadata struct {
	Note *string `json:"note,omitempty"`
}

func (m NoteMetadata) Validate() error { return nil }

// UnmarshalEventMetadata decodes the metadata variant appropriate for
// the event type. A nil result means the event carries no metadata.
func UnmarshalEventMetadata(t EventType, raw json.RawMessage) (EventMetadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		if metadataRequired(t) {
			return nil, &ValidationError{Field: "metadata", Message: fmt.Sprintf("required for %s events", t)}
		}
		return nil, nil
	}

	var meta EventMetadata
	var err error
	switch t {
	case EventGoal, EventPenalty:
		var m GoalMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventCard:
		var m CardMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventFoul:
		var m FoulMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventInjury:
		var m InjuryMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventVARReview:
		var m VARMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventOther:
		var m StatUpdateMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	default:
		var m NoteMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s metadata: %v", ErrInvalidInput, t, err)
	}
	return meta, nil
}

func metadataRequired(t EventType) bool {
	switch t {
	case EventGoal, EventCard, EventFoul, EventInjury:
		return true
	}
	return false
}

// MatchEvent represents a single in-match occurrence. Events are
// immutable once written; corrections are new events that supersede
// the original so the audit trail survives.
type MatchEvent struct {
	ID                string        `json:"id" db:"id"`
	MatchID           string        `json:"match_id" db:"match_id"`
	Seq               int64         `json:"seq" db:"seq"`
	Type              EventType     `json:"type" db:"type"`
	Minute            int           `json:"minute" db:"minute"`
	Second            int           `json:"second" db:"second"`
	OccurredAt        time.Time     `json:"occurred_at" db:"occurred_at"`
	TeamID            *string       `json:"team_id,omitempty" db:"team_id"`
	PlayerID          *string       `json:"player_id,omitempty" db:"player_id"`
	SecondaryPlayerID *string       `json:"secondary_player_id,omitempty" db:"secondary_player_id"`
	Metadata          EventMetadata `json:"metadata,omitempty" db:"-"`
	SupersedesID      *string       `json:"supersedes_id,omitempty" db:"supersedes_id"`
	Superseded        bool          `json:"superseded" db:"superseded"`
	Quarantined       bool          `json:"quarantined" db:"quarantined"`
	IdempotencyKey    *string       `json:"-" db:"idempotency_key"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
}

// Validate checks structural invariants: known type, non-negative
// clock position, type-required metadata present and well formed.
func (e MatchEvent) Validate() error {
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown event type %q", e.Type)}
	}
	if e.Minute < 0 {
		return &ValidationError{Field: "minute", Message: "must be non-negative"}
	}
	if e.Second < 0 {
		return &ValidationError{Field: "second", Message: "must be non-negative"}
	}
	if e.Metadata == nil {
		if metadataRequired(e.Type) {
			return &ValidationError{Field: "metadata", Message: fmt.Sprintf("required for %s events", e.Type)}
		}
		return nil
	}
	return e.Metadata.Validate()
}

// Before orders events within a match: match-clock position first,
// insertion sequence as the deterministic tie-break.
func (e MatchEvent) Before(other MatchEvent) bool {
	if e.Minute != other.Minute {
		return e.Minute < other.Minute
	}
	if e.Second != other.Second {
		return e.Second < other.Second
	}
	return e.Seq < other.Seq
}
