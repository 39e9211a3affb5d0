package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brixsport/backend/internal/domain"
)

// PreferencesStore is the preference persistence the service needs.
type PreferencesStore interface {
	Find(ctx context.Context, userID int64) (*domain.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs domain.NotificationPreferences) (*domain.NotificationPreferences, error)
}

// DeliveryMethodsPatch toggles individual channels. Nil fields are
// left as they were.
type DeliveryMethodsPatch struct {
	Push  *bool `json:"push,omitempty"`
	Email *bool `json:"email,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
	InApp *bool `json:"in_app,omitempty"`
}

// CategoriesPatch toggles individual categories. Nil fields are left
// as they were.
type CategoriesPatch struct {
	MatchUpdates     *bool `json:"match_updates,omitempty"`
	ScoreAlerts      *bool `json:"score_alerts,omitempty"`
	FavoriteTeamNews *bool `json:"favorite_team_news,omitempty"`
	CompetitionNews  *bool `json:"competition_news,omitempty"`
	SystemAlerts     *bool `json:"system_alerts,omitempty"`
	Reminders        *bool `json:"reminders,omitempty"`
	Achievements     *bool `json:"achievements,omitempty"`
	AdminNotices     *bool `json:"admin_notices,omitempty"`
	LogAlerts        *bool `json:"log_alerts,omitempty"`
}

// QuietHoursPatch updates the quiet window. Nil fields are left as
// they were; patching onto absent quiet hours starts from a disabled
// window.
type QuietHoursPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
}

// PreferencesUpdate is a partial preference document. Top-level keys
// replace; the delivery-method, category, and quiet-hours sub-objects
// merge one level down, so toggling one flag never clobbers its
// siblings.
type PreferencesUpdate struct {
	DeliveryMethods      *DeliveryMethodsPatch   `json:"delivery_methods,omitempty"`
	Categories           *CategoriesPatch        `json:"categories,omitempty"`
	QuietHours           *QuietHoursPatch        `json:"quiet_hours,omitempty"`
	FollowedTeams        *[]string               `json:"followed_teams,omitempty"`
	FollowedPlayers      *[]string               `json:"followed_players,omitempty"`
	FollowedCompetitions *[]string               `json:"followed_competitions,omitempty"`
	DigestFrequency      *domain.DigestFrequency `json:"digest_frequency,omitempty"`
	Devices              *[]domain.Device        `json:"devices,omitempty"`
}

// PreferencesService serves and updates per-user notification
// preferences.
type PreferencesService struct {
	store PreferencesStore
}

// NewPreferencesService creates a PreferencesService.
func NewPreferencesService(store PreferencesStore) *PreferencesService {
	return &PreferencesService{store: store}
}

// Get returns a user's preferences, persisting defaults on first
// access.
func (s *PreferencesService) Get(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	prefs, err := s.store.Find(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.store.Upsert(ctx, domain.DefaultPreferences(userID))
}

// Update merges a partial document into the user's preferences and
// persists the result.
func (s *PreferencesService) Update(ctx context.Context, userID int64, update PreferencesUpdate) (*domain.NotificationPreferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := *prefs
	applyUpdate(&merged, update)

	if !merged.DigestFrequency.Valid() {
		return nil, &domain.ValidationError{
			Field:   "digest_frequency",
			Message: fmt.Sprintf("unknown frequency %q", merged.DigestFrequency),
		}
	}
	if merged.QuietHours != nil {
		if err := merged.QuietHours.Validate(); err != nil {
			return nil, err
		}
	}

	return s.store.Upsert(ctx, merged)
}

func applyUpdate(prefs *domain.NotificationPreferences, update PreferencesUpdate) {
	if update.DeliveryMethods != nil {
		p := update.DeliveryMethods
		setBool(&prefs.DeliveryMethods.Push, p.Push)
		setBool(&prefs.DeliveryMethods.Email, p.Email)
		setBool(&prefs.DeliveryMethods.SMS, p.SMS)
		setBool(&prefs.DeliveryMethods.InApp, p.InApp)
	}
	if update.Categories != nil {
		p := update.Categories
		setBool(&prefs.Categories.MatchUpdates, p.MatchUpdates)
		setBool(&prefs.Categories.ScoreAlerts, p.ScoreAlerts)
		setBool(&prefs.Categories.FavoriteTeamNews, p.FavoriteTeamNews)
		setBool(&prefs.Categories.CompetitionNews, p.CompetitionNews)
		setBool(&prefs.Categories.SystemAlerts, p.SystemAlerts)
		setBool(&prefs.Categories.Reminders, p.Reminders)
		setBool(&prefs.Categories.Achievements, p.Achievements)
		setBool(&prefs.Categories.AdminNotices, p.AdminNotices)
		setBool(&prefs.Categories.LogAlerts, p.LogAlerts)
	}
	if update.QuietHours != nil {
		qh := domain.QuietHours{}
		if prefs.QuietHours != nil {
			qh = *prefs.QuietHours
		}
		setBool(&qh.Enabled, update.QuietHours.Enabled)
		if update.QuietHours.Start != nil {
			qh.Start = *update.QuietHours.Start
		}
		if update.QuietHours.End != nil {
			qh.End = *update.QuietHours.End
		}
		prefs.QuietHours = &qh
	}
	if update.FollowedTeams != nil {
		prefs.FollowedTeams = *update.FollowedTeams
	}
	if update.FollowedPlayers != nil {
		prefs.FollowedPlayers = *update.FollowedPlayers
	}
	if update.FollowedCompetitions != nil {
		prefs.FollowedCompetitions = *update.FollowedCompetitions
	}
	if update.DigestFrequency != nil {
		prefs.DigestFrequency = *update.DigestFrequency
	}
	if update.Devices != nil {
		prefs.Devices = *update.Devices
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
