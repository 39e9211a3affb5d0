package domain

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestQuietHoursContains(t *testing.T) {
	tests := []struct {
		name   string
		window QuietHours
		at     time.Time
		want   bool
	}{
		{
			name:   "disabled window never matches",
			window: QuietHours{Enabled: false, Start: "00:00", End: "23:59"},
			at:     at(12, 0),
			want:   false,
		},
		{
			name:   "same day window inside",
			window: QuietHours{Enabled: true, Start: "09:00", End: "17:00"},
			at:     at(12, 30),
			want:   true,
		},
		{
			name:   "same day window before start",
			window: QuietHours{Enabled: true, Start: "09:00", End: "17:00"},
			at:     at(8, 59),
			want:   false,
		},
		{
			name:   "end is exclusive",
			window: QuietHours{Enabled: true, Start: "09:00", End: "17:00"},
			at:     at(17, 0),
			want:   false,
		},
		{
			name:   "wraparound late evening",
			window: QuietHours{Enabled: true, Start: "22:00", End: "06:00"},
			at:     at(23, 30),
			want:   true,
		},
		{
			name:   "wraparound early morning",
			window: QuietHours{Enabled: true, Start: "22:00", End: "06:00"},
			at:     at(2, 0),
			want:   true,
		},
		{
			name:   "wraparound midday outside",
			window: QuietHours{Enabled: true, Start: "22:00", End: "06:00"},
			at:     at(12, 0),
			want:   false,
		},
		{
			name:   "wraparound boundary at start",
			window: QuietHours{Enabled: true, Start: "22:00", End: "06:00"},
			at:     at(22, 0),
			want:   true,
		},
		{
			name:   "wraparound boundary at end",
			window: QuietHours{Enabled: true, Start: "22:00", End: "06:00"},
			at:     at(6, 0),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.at.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestQuietHoursValidate(t *testing.T) {
	tests := []struct {
		name    string
		window  QuietHours
		wantErr bool
	}{
		{"disabled skips validation", QuietHours{Enabled: false, Start: "nope", End: ""}, false},
		{"valid window", QuietHours{Enabled: true, Start: "22:00", End: "06:00"}, false},
		{"malformed start", QuietHours{Enabled: true, Start: "22h00", End: "06:00"}, true},
		{"hour out of range", QuietHours{Enabled: true, Start: "25:00", End: "06:00"}, true},
		{"minute out of range", QuietHours{Enabled: true, Start: "22:00", End: "06:75"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences(42)

	if prefs.UserID != 42 {
		t.Errorf("UserID = %d, want 42", prefs.UserID)
	}
	if !prefs.DeliveryMethods.Push || !prefs.DeliveryMethods.InApp {
		t.Error("push and in-app should be on by default")
	}
	if prefs.DeliveryMethods.Email || prefs.DeliveryMethods.SMS {
		t.Error("email and sms should be off by default")
	}
	if prefs.DigestFrequency != DigestInstant {
		t.Errorf("DigestFrequency = %q, want instant", prefs.DigestFrequency)
	}
	if prefs.QuietHours != nil {
		t.Error("quiet hours should be absent by default")
	}
	if !prefs.Categories.Enabled(CategoryScoreAlerts) {
		t.Error("score alerts should be on by default")
	}
	if prefs.Categories.Enabled(CategoryAdminNotices) {
		t.Error("admin notices should be off by default")
	}
}

func TestDeliveryMethodsEnabled(t *testing.T) {
	m := DeliveryMethods{Push: true, InApp: true}
	enabled := m.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("Enabled() returned %d methods, want 2", len(enabled))
	}
	if enabled[0] != MethodPush || enabled[1] != MethodInApp {
		t.Errorf("Enabled() = %v, want [push in_app]", enabled)
	}
}

func TestPreferencesFollows(t *testing.T) {
	prefs := NotificationPreferences{
		FollowedTeams:        []string{"team-1"},
		FollowedPlayers:      []string{"player-9"},
		FollowedCompetitions: []string{},
	}

	if !prefs.Follows([]string{"team-1", "team-2"}, nil, nil) {
		t.Error("should follow via team")
	}
	if !prefs.Follows(nil, []string{"player-9"}, nil) {
		t.Error("should follow via player")
	}
	if prefs.Follows([]string{"team-3"}, []string{"player-4"}, []string{"comp-1"}) {
		t.Error("should not follow unrelated entities")
	}
	if prefs.Follows(nil, nil, nil) {
		t.Error("empty trigger should not match")
	}
}
