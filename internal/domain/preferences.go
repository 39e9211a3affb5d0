package domain

import (
	"fmt"
	"time"
)

// DeliveryMethod is a notification channel.
type DeliveryMethod string

const (
	MethodPush  DeliveryMethod = "push"
	MethodEmail DeliveryMethod = "email"
	MethodSMS   DeliveryMethod = "sms"
	MethodInApp DeliveryMethod = "in_app"
)

// PreferenceCategory names a toggleable notification category.
type PreferenceCategory string

const (
	CategoryMatchUpdates     PreferenceCategory = "match_updates"
	CategoryScoreAlerts      PreferenceCategory = "score_alerts"
	CategoryFavoriteTeamNews PreferenceCategory = "favorite_team_news"
	CategoryCompetitionNews  PreferenceCategory = "competition_news"
	CategorySystemAlerts     PreferenceCategory = "system_alerts"
	CategoryReminders        PreferenceCategory = "reminders"
	CategoryAchievements     PreferenceCategory = "achievements"
	CategoryAdminNotices     PreferenceCategory = "admin_notices"
	CategoryLogAlerts        PreferenceCategory = "log_alerts"
)

// DigestFrequency controls whether notifications are delivered
// immediately or batched.
type DigestFrequency string

const (
	DigestInstant DigestFrequency = "instant"
	DigestHourly  DigestFrequency = "hourly"
	DigestDaily   DigestFrequency = "daily"
	DigestWeekly  DigestFrequency = "weekly"
)

// Valid reports whether the digest frequency is known.
func (d DigestFrequency) Valid() bool {
	switch d {
	case DigestInstant, DigestHourly, DigestDaily, DigestWeekly:
		return true
	}
	return false
}

// DeliveryMethods holds the per-channel on/off switches.
type DeliveryMethods struct {
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	InApp bool `json:"in_app"`
}

// Enabled lists the methods currently switched on.
func (d DeliveryMethods) Enabled() []DeliveryMethod {
	var methods []DeliveryMethod
	if d.Push {
		methods = append(methods, MethodPush)
	}
	if d.Email {
		methods = append(methods, MethodEmail)
	}
	if d.SMS {
		methods = append(methods, MethodSMS)
	}
	if d.InApp {
		methods = append(methods, MethodInApp)
	}
	return methods
}

// CategoryFlags holds the per-category on/off switches.
type CategoryFlags struct {
	MatchUpdates     bool `json:"match_updates"`
	ScoreAlerts      bool `json:"score_alerts"`
	FavoriteTeamNews bool `json:"favorite_team_news"`
	CompetitionNews  bool `json:"competition_news"`
	SystemAlerts     bool `json:"system_alerts"`
	Reminders        bool `json:"reminders"`
	Achievements     bool `json:"achievements"`
	AdminNotices     bool `json:"admin_notices"`
	LogAlerts        bool `json:"log_alerts"`
}

// Enabled reports whether the given category is switched on.
func (c CategoryFlags) Enabled(cat PreferenceCategory) bool {
	switch cat {
	case CategoryMatchUpdates:
		return c.MatchUpdates
	case CategoryScoreAlerts:
		return c.ScoreAlerts
	case CategoryFavoriteTeamNews:
		return c.FavoriteTeamNews
	case CategoryCompetitionNews:
		return c.CompetitionNews
	case CategorySystemAlerts:
		return c.SystemAlerts
	case CategoryReminders:
		return c.Reminders
	case CategoryAchievements:
		return c.Achievements
	case CategoryAdminNotices:
		return c.AdminNotices
	case CategoryLogAlerts:
		return c.LogAlerts
	}
	return false
}

// QuietHours is a daily window during which non-urgent notifications
// are suppressed. Windows may wrap past midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// Validate checks the HH:MM fields when the window is enabled.
func (q QuietHours) Validate() error {
	if !q.Enabled {
		return nil
	}
	for field, v := range map[string]string{"start": q.Start, "end": q.End} {
		if _, err := parseClock(v); err != nil {
			return &ValidationError{Field: "quiet_hours." + field, Message: err.Error()}
		}
	}
	return nil
}

// Contains reports whether the given time falls inside the window,
// handling windows that span midnight (start 22:00, end 06:00).
func (q QuietHours) Contains(at time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	now := at.Hour()*60 + at.Minute()
	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// Device is a registered push target.
type Device struct {
	DeviceID  string  `json:"device_id"`
	Platform  string  `json:"platform"`
	PushToken *string `json:"push_token,omitempty"`
	Enabled   bool    `json:"enabled"`
}

// NotificationPreferences holds one user's delivery configuration.
// Created with defaults on first read; never hard-deleted.
type NotificationPreferences struct {
	UserID               int64           `json:"user_id" db:"user_id"`
	DeliveryMethods      DeliveryMethods `json:"delivery_methods" db:"delivery_methods"`
	Categories           CategoryFlags   `json:"categories" db:"categories"`
	QuietHours           *QuietHours     `json:"quiet_hours,omitempty" db:"quiet_hours"`
	FollowedTeams        []string        `json:"followed_teams" db:"followed_teams"`
	FollowedPlayers      []string        `json:"followed_players" db:"followed_players"`
	FollowedCompetitions []string        `json:"followed_competitions" db:"followed_competitions"`
	DigestFrequency      DigestFrequency `json:"digest_frequency" db:"digest_frequency"`
	Devices              []Device        `json:"devices" db:"devices"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences returns the signup defaults: in-app and push on,
// score and match categories on, instant delivery, no quiet hours.
func DefaultPreferences(userID int64) NotificationPreferences {
	return NotificationPreferences{
		UserID: userID,
		DeliveryMethods: DeliveryMethods{
			Push:  true,
			InApp: true,
		},
		Categories: CategoryFlags{
			MatchUpdates:     true,
			ScoreAlerts:      true,
			FavoriteTeamNews: true,
			SystemAlerts:     true,
			Reminders:        true,
			Achievements:     true,
		},
		FollowedTeams:        []string{},
		FollowedPlayers:      []string{},
		FollowedCompetitions: []string{},
		DigestFrequency:      DigestInstant,
		Devices:              []Device{},
	}
}

// IsQuiet reports whether the given time is inside the user's quiet
// window.
func (p NotificationPreferences) IsQuiet(at time.Time) bool {
	return p.QuietHours != nil && p.QuietHours.Contains(at)
}

// Follows reports whether the user follows any of the given entity
// IDs across teams, players, and competitions.
func (p NotificationPreferences) Follows(teamIDs, playerIDs, competitionIDs []string) bool {
	return intersects(p.FollowedTeams, teamIDs) ||
		intersects(p.FollowedPlayers, playerIDs) ||
		intersects(p.FollowedCompetitions, competitionIDs)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y && x != "" {
				return true
			}
		}
	}
	return false
}
