package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/transport"
)

// NotificationWriter is the notification persistence the dispatcher
// needs.
type NotificationWriter interface {
	Insert(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// RecipientResolver finds candidate recipients for a trigger.
type RecipientResolver interface {
	ListFollowers(ctx context.Context, teamIDs, playerIDs, competitionIDs []string) ([]domain.NotificationPreferences, error)
}

// UserDirectory resolves user records and the all-users audience for
// system-wide announcements.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// PreferencesBatchReader loads preferences for an explicit user set.
type PreferencesBatchReader interface {
	ListByUserIDs(ctx context.Context, userIDs []int64) ([]domain.NotificationPreferences, error)
}

// RecipientError pairs a failed recipient with its cause.
type RecipientError struct {
	UserID int64
	Err    error
}

// DispatchReport is the batch outcome of one trigger's fan-out. A
// failure for one recipient never blocks the others.
type DispatchReport struct {
	Created []domain.Notification
	Skipped int
	Errors  []RecipientError
}

// Announcement is an administrative broadcast trigger.
type Announcement struct {
	Title    string
	Message  string
	Type     domain.NotificationType
	Priority domain.Priority
	Source   domain.NotificationSource
	EntityID *string
}

// Dispatcher maps triggers to per-user notifications, consulting each
// recipient's preferences, and hands accepted (user, channel) pairs
// to the delivery bookkeeping and transport.
type Dispatcher struct {
	notifications NotificationWriter
	recipients    RecipientResolver
	prefsBatch    PreferencesBatchReader
	users         UserDirectory
	matches       MatchReader
	delivery      *DeliveryService
	sender        transport.Sender
	now           func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	notifications NotificationWriter,
	recipients RecipientResolver,
	prefsBatch PreferencesBatchReader,
	users UserDirectory,
	matches MatchReader,
	delivery *DeliveryService,
	sender transport.Sender,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		recipients:    recipients,
		prefsBatch:    prefsBatch,
		users:         users,
		matches:       matches,
		delivery:      delivery,
		sender:        sender,
		now:           time.Now,
	}
}

// Run consumes the outbox until the context is cancelled. Dispatch
// failures are logged, never propagated: by the time a message is
// here, the event of record is already written.
func (d *Dispatcher) Run(ctx context.Context, broker *outbox.Broker) {
	events := broker.Subscribe(outbox.TopicMatchEvents)
	announcements := broker.Subscribe(outbox.TopicAnnouncements)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			event, isEvent := msg.Payload.(domain.MatchEvent)
			if !isEvent {
				slog.Error("unexpected payload on match events topic")
				continue
			}
			report, err := d.DispatchEvent(ctx, event)
			if err != nil {
				slog.Error("dispatch event", "event_id", event.ID, "error", err)
				continue
			}
			d.logReport("event", event.ID, report)
		case msg, ok := <-announcements:
			if !ok {
				return
			}
			ann, isAnn := msg.Payload.(Announcement)
			if !isAnn {
				slog.Error("unexpected payload on announcements topic")
				continue
			}
			report, err := d.DispatchAnnouncement(ctx, ann)
			if err != nil {
				slog.Error("dispatch announcement", "title", ann.Title, "error", err)
				continue
			}
			d.logReport("announcement", ann.Title, report)
		}
	}
}

func (d *Dispatcher) logReport(kind, id string, report *DispatchReport) {
	if len(report.Errors) > 0 {
		slog.Warn("dispatch completed with recipient errors",
			"trigger", kind, "id", id,
			"created", len(report.Created), "skipped", report.Skipped, "errors", len(report.Errors))
		return
	}
	slog.Info("dispatch completed",
		"trigger", kind, "id", id,
		"created", len(report.Created), "skipped", report.Skipped)
}

// DispatchEvent fans a recorded match event out to followers of the
// teams, players, and competition involved.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event domain.MatchEvent) (*DispatchReport, error) {
	match, err := d.matches.FindByID(ctx, event.MatchID)
	if err != nil {
		return nil, fmt.Errorf("resolve match for dispatch: %w", err)
	}

	teamIDs := []string{match.HomeTeamID, match.AwayTeamID}
	var playerIDs []string
	for _, p := range []*string{event.PlayerID, event.SecondaryPlayerID} {
		if p != nil {
			playerIDs = append(playerIDs, *p)
		}
	}
	var competitionIDs []string
	if match.CompetitionID != nil {
		competitionIDs = append(competitionIDs, *match.CompetitionID)
	}

	recipients, err := d.recipients.ListFollowers(ctx, teamIDs, playerIDs, competitionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	notifType, priority := classifyEvent(event)
	title, message := renderEvent(event)
	template := domain.Notification{
		Title:      title,
		Message:    message,
		Type:       notifType,
		Priority:   priority,
		Status:     domain.StatusUnread,
		EntityID:   &event.MatchID,
		EntityType: strPtr("match"),
		Source:     domain.SourceLogger,
	}

	return d.fanOut(ctx, recipients, template), nil
}

// DispatchAnnouncement fans an administrative broadcast out to every
// active user.
func (d *Dispatcher) DispatchAnnouncement(ctx context.Context, ann Announcement) (*DispatchReport, error) {
	userIDs, err := d.users.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve announcement audience: %w", err)
	}

	recipients, err := d.prefsBatch.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load audience preferences: %w", err)
	}

	// Users who never touched their preferences still get defaults.
	seen := make(map[int64]bool, len(recipients))
	for _, r := range recipients {
		seen[r.UserID] = true
	}
	for _, id := range userIDs {
		if !seen[id] {
			recipients = append(recipients, domain.DefaultPreferences(id))
		}
	}

	source := ann.Source
	if source == "" {
		source = domain.SourceAdmin
	}
	template := domain.Notification{
		Title:    ann.Title,
		Message:  ann.Message,
		Type:     ann.Type,
		Priority: ann.Priority,
		Status:   domain.StatusUnread,
		EntityID: ann.EntityID,
		Source:   source,
	}

	return d.fanOut(ctx, recipients, template), nil
}

// fanOut evaluates the trigger against each recipient's preferences.
// Recipients are processed in userID order so creation order is
// deterministic for a given audience. One recipient's failure is
// recorded and the loop continues.
func (d *Dispatcher) fanOut(ctx context.Context, recipients []domain.NotificationPreferences, template domain.Notification) *DispatchReport {
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].UserID < recipients[j].UserID })

	report := &DispatchReport{}
	for _, prefs := range recipients {
		n, err := d.dispatchOne(ctx, prefs, template)
		if err != nil {
			report.Errors = append(report.Errors, RecipientError{UserID: prefs.UserID, Err: err})
			continue
		}
		if n == nil {
			report.Skipped++
			continue
		}
		report.Created = append(report.Created, *n)
	}
	return report
}

// dispatchOne applies the per-recipient gates in order: category,
// digest, quiet hours. It returns (nil, nil) when the recipient's
// preferences filter the trigger out entirely.
func (d *Dispatcher) dispatchOne(ctx context.Context, prefs domain.NotificationPreferences, template domain.Notification) (*domain.Notification, error) {
	if !prefs.Categories.Enabled(template.Type.Category()) {
		return nil, nil
	}

	now := d.now()
	n := template
	n.ID = uuid.NewString()
	n.UserID = prefs.UserID

	if prefs.DigestFrequency != domain.DigestInstant {
		// Deferred to the digest batcher: the notification exists with
		// its batch time, but no delivery attempts are made now.
		scheduledAt := nextDigestTime(prefs.DigestFrequency, now)
		n.ScheduledAt = &scheduledAt
		return d.notifications.Insert(ctx, n)
	}

	created, err := d.notifications.Insert(ctx, n)
	if err != nil {
		return nil, err
	}

	quiet := prefs.IsQuiet(now) && !n.Priority.BypassesQuietHours()
	for _, method := range prefs.DeliveryMethods.Enabled() {
		// Quiet hours suppress outbound channels; the in-app record is
		// the notification row itself and always lands.
		if quiet && method != domain.MethodInApp {
			continue
		}
		if err := d.deliver(ctx, prefs, created, method); err != nil {
			slog.Warn("delivery attempt failed",
				"notification_id", created.ID, "method", method, "error", err)
		}
	}
	return created, nil
}

// deliver creates the bookkeeping record for one channel and drives
// it through the transport.
func (d *Dispatcher) deliver(ctx context.Context, prefs domain.NotificationPreferences, n *domain.Notification, method domain.DeliveryMethod) error {
	record, err := d.delivery.RecordAttempt(ctx, n.ID, method)
	if err != nil {
		return err
	}

	if method == domain.MethodInApp {
		// In-app needs no provider round trip.
		if _, err := d.delivery.MarkSent(ctx, record.ID, "in_app", ""); err != nil {
			return err
		}
		if _, err := d.delivery.MarkDelivered(ctx, record.ID); err != nil {
			return err
		}
		return d.notifications.MarkDelivered(ctx, n.ID, d.now())
	}

	address, err := d.resolveAddress(ctx, prefs, method)
	if err != nil {
		_, markErr := d.delivery.MarkFailed(ctx, record.ID, err.Error())
		if markErr != nil {
			return markErr
		}
		return err
	}

	outcome, err := d.sender.Send(ctx, method, address, transport.Rendered{
		Title:    n.Title,
		Message:  n.Message,
		Priority: n.Priority,
		Data:     map[string]string{"notification_id": n.ID},
	})
	if err != nil {
		_, markErr := d.delivery.MarkFailed(ctx, record.ID, err.Error())
		if markErr != nil {
			return markErr
		}
		return err
	}

	if _, err := d.delivery.MarkSent(ctx, record.ID, outcome.Provider, outcome.ProviderID); err != nil {
		return err
	}
	if outcome.Delivered {
		if _, err := d.delivery.MarkDelivered(ctx, record.ID); err != nil {
			return err
		}
		return d.notifications.MarkDelivered(ctx, n.ID, d.now())
	}
	return nil
}

func (d *Dispatcher) resolveAddress(ctx context.Context, prefs domain.NotificationPreferences, method domain.DeliveryMethod) (string, error) {
	switch method {
	case domain.MethodPush:
		for _, device := range prefs.Devices {
			if device.Enabled && device.PushToken != nil && *device.PushToken != "" {
				return *device.PushToken, nil
			}
		}
		return "", fmt.Errorf("no enabled device with a push token")
	case domain.MethodEmail:
		user, err := d.users.FindByID(ctx, prefs.UserID)
		if err != nil {
			return "", fmt.Errorf("resolve email address: %w", err)
		}
		return user.Email, nil
	case domain.MethodSMS:
		return "", fmt.Errorf("no phone number on file")
	}
	return "", fmt.Errorf("unsupported delivery method %s", method)
}

// classifyEvent picks the notification type and priority for an event.
// Goals are score alerts; everything else is a match update. Full time
// is high priority so final scores cut through.
func classifyEvent(event domain.MatchEvent) (domain.NotificationType, domain.Priority) {
	switch event.Type {
	case domain.EventGoal:
		return domain.NotificationScoreAlert, domain.PriorityHigh
	case domain.EventFullTime:
		return domain.NotificationScoreAlert, domain.PriorityHigh
	default:
		return domain.NotificationMatchUpdate, domain.PriorityNormal
	}
}

func renderEvent(event domain.MatchEvent) (string, string) {
	clock := fmt.Sprintf("%d'", event.Minute)
	switch event.Type {
	case domain.EventGoal:
		return "Goal!", fmt.Sprintf("Goal at %s", clock)
	case domain.EventCard:
		if meta, ok := event.Metadata.(domain.CardMetadata); ok {
			return "Card shown", fmt.Sprintf("%s card at %s", meta.CardType, clock)
		}
		return "Card shown", fmt.Sprintf("Card at %s", clock)
	case domain.EventSubstitution:
		return "Substitution", fmt.Sprintf("Substitution at %s", clock)
	case domain.EventKickoff:
		return "Kickoff", "The match is underway"
	case domain.EventHalfTime:
		return "Half time", fmt.Sprintf("Half time at %s", clock)
	case domain.EventFullTime:
		return "Full time", "The match has ended"
	default:
		return "Match update", fmt.Sprintf("%s at %s", event.Type, clock)
	}
}

// nextDigestTime returns the next batch boundary at or after now:
// the top of the next hour, next midnight, or next Monday midnight.
func nextDigestTime(freq domain.DigestFrequency, now time.Time) time.Time {
	switch freq {
	case domain.DigestHourly:
		return now.Truncate(time.Hour).Add(time.Hour)
	case domain.DigestDaily:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	case domain.DigestWeekly:
		year, month, day := now.Date()
		midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		daysUntilMonday := (8 - int(now.Weekday())) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		return midnight.AddDate(0, 0, daysUntilMonday)
	}
	return now
}

func strPtr(s string) *string { return &s }
