package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
)

func TestUnmarshalEventMetadata(t *testing.T) {
	tests := []struct {
		name     string
		typ      EventType
		raw      string
		wantType any
		wantErr  bool
	}{
		{"goal", EventGoal, `{"goal_type":"open_play"}`, GoalMetadata{}, false},
		{"penalty decodes as goal", EventPenalty, `{"goal_type":"penalty"}`, GoalMetadata{}, false},
		{"card", EventCard, `{"card_type":"yellow"}`, CardMetadata{}, false},
		{"foul", EventFoul, `{"foul_type":"handball"}`, FoulMetadata{}, false},
		{"injury", EventInjury, `{"severity":"minor"}`, InjuryMetadata{}, false},
		{"var review", EventVARReview, `{"outcome":"overturned"}`, VARMetadata{}, false},
		{"other carries stat update", EventOther, `{"possession_home":61}`, StatUpdateMetadata{}, false},
		{"kickoff takes a note", EventKickoff, `{"note":"delayed start"}`, NoteMetadata{}, false},
		{"goal without metadata", EventGoal, ``, nil, true},
		{"card with null metadata", EventCard, `null`, nil, true},
		{"malformed json", EventGoal, `{"goal_type":`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := UnmarshalEventMetadata(tt.typ, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch tt.wantType.(type) {
			case GoalMetadata:
				if _, ok := meta.(GoalMetadata); !ok {
					t.Errorf("got %T, want GoalMetadata", meta)
				}
			case CardMetadata:
				if _, ok := meta.(CardMetadata); !ok {
					t.Errorf("got %T, want CardMetadata", meta)
				}
			case FoulMetadata:
				if _, ok := meta.(FoulMetadata); !ok {
					t.Errorf("got %T, want FoulMetadata", meta)
				}
			case InjuryMetadata:
				if _, ok := meta.(InjuryMetadata); !ok {
					t.Errorf("got %T, want InjuryMetadata", meta)
				}
			case VARMetadata:
				if _, ok := meta.(VARMetadata); !ok {
					t.Errorf("got %T, want VARMetadata", meta)
				}
			case StatUpdateMetadata:
				if _, ok := meta.(StatUpdateMetadata); !ok {
					t.Errorf("got %T, want StatUpdateMetadata", meta)
				}
			case NoteMetadata:
				if _, ok := meta.(NoteMetadata); !ok {
					t.Errorf("got %T, want NoteMetadata", meta)
				}
			}
		})
	}
}

func TestUnmarshalEventMetadataOptional(t *testing.T) {
	meta, err := UnmarshalEventMetadata(EventKickoff, nil)
	if err != nil {
		t.Fatalf("kickoff without metadata should be fine: %v", err)
	}
	if meta != nil {
		t.Errorf("got %v, want nil metadata", meta)
	}
}

func TestMatchEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   MatchEvent
		wantErr bool
	}{
		{
			name:  "valid goal",
			event: MatchEvent{Type: EventGoal, Minute: 23, Metadata: GoalMetadata{GoalType: GoalOpenPlay}},
		},
		{
			name:    "unknown type",
			event:   MatchEvent{Type: "throw_in", Minute: 1},
			wantErr: true,
		},
		{
			name:    "negative minute",
			event:   MatchEvent{Type: EventKickoff, Minute: -1},
			wantErr: true,
		},
		{
			name:    "negative second",
			event:   MatchEvent{Type: EventKickoff, Minute: 0, Second: -5},
			wantErr: true,
		},
		{
			name:    "goal missing metadata",
			event:   MatchEvent{Type: EventGoal, Minute: 10},
			wantErr: true,
		},
		{
			name:    "goal with bad goal type",
			event:   MatchEvent{Type: EventGoal, Minute: 10, Metadata: GoalMetadata{GoalType: "bicycle"}},
			wantErr: true,
		},
		{
			name:  "kickoff needs no metadata",
			event: MatchEvent{Type: EventKickoff, Minute: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error should be a ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestMatchEventOrdering(t *testing.T) {
	events := []MatchEvent{
		{ID: "d", Minute: 45, Second: 0, Seq: 4},
		{ID: "b", Minute: 23, Second: 10, Seq: 3},
		{ID: "a", Minute: 23, Second: 10, Seq: 2},
		{ID: "c", Minute: 23, Second: 40, Seq: 1},
		{ID: "e", Minute: 0, Second: 0, Seq: 5},
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Before(events[j]) })

	want := []string{"e", "a", "b", "c", "d"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, events[i].ID, id)
		}
	}
}
