package meetup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/clock"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxRequestMessageLength  = 280
	MaxChatMessageLength     = 500
	MaxFeedbackCommentLength = 1000

	DefaultNearbyRadiusMeters = 5000.0
	MaxNearbyRadiusMeters     = 50000.0
	DefaultListLimit          = 50
	MaxListLimit              = 100
)

// Ledger is the part of the stats ledger the lifecycle depends on.
type Ledger interface {
	RecordEventCreated(ctx context.Context, userID uuid.UUID) error
	RecordMatch(ctx context.Context, creatorID, participantID uuid.UUID) error
	RecordCompletion(ctx context.Context, userID uuid.UUID, at time.Time) error
	RecordCancellation(ctx context.Context, userID uuid.UUID) error
	RecordRating(ctx context.Context, userID uuid.UUID, rating stats.Rating) error
	IsSuspended(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Service is the event lifecycle as driven by users.
type Service interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error)
	RequestJoin(ctx context.Context, userID, eventID uuid.UUID, message string) (*EventRequest, error)
	RespondToRequest(ctx context.Context, creatorID, requestID uuid.UUID, accept bool) (*EventRequest, error)
	CancelEvent(ctx context.Context, creatorID, eventID uuid.UUID) (*Event, error)
	Revalidate(ctx context.Context, creatorID, eventID uuid.UUID, confirmed bool, at *geo.Point) (*RevalidationResult, error)
	CheckIn(ctx context.Context, userID, eventID uuid.UUID, at geo.Point) (*CheckInResult, error)
	SendMessage(ctx context.Context, userID, eventID uuid.UUID, content string) (*ChatMessage, error)
	SubmitFeedback(ctx context.Context, input SubmitFeedbackInput) (*EventFeedback, error)

	GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*EventDetails, error)
	ListRequests(ctx context.Context, creatorID, eventID uuid.UUID) ([]EventRequest, error)
	ListNearby(ctx context.Context, query NearbyQuery) ([]NearbyEvent, error)
	ListAtHub(ctx context.Context, userID uuid.UUID, placeID string) ([]Event, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]Event, error)
}

// Sweeper holds the time driven transitions run by the scheduler. Every
// sweep is safe to run repeatedly and concurrently.
type Sweeper interface {
	ExpireUnmatched(ctx context.Context) (SweepResult, error)
	DispatchRevalidations(ctx context.Context) (SweepResult, error)
	TimeoutRevalidations(ctx context.Context) (SweepResult, error)
	SendFeedbackReminders(ctx context.Context) (SweepResult, error)
	CloseNoShows(ctx context.Context) (SweepResult, error)
	AutoComplete(ctx context.Context) (SweepResult, error)
	DeclineStaleRequests(ctx context.Context) (SweepResult, error)
	PurgeClosed(ctx context.Context) (SweepResult, error)
}

// Engine is the full lifecycle.
type Engine interface {
	Service
	Sweeper
}

type ServiceConfig struct {
	Repository Repository
	Ledger     Ledger
	Notifier   notification.Notifier
	Clock      clock.Clock
	Logger     *zap.Logger
}

type service struct {
	repo     Repository
	ledger   Ledger
	notifier notification.Notifier
	clock    clock.Clock
	guard    ChatGuard
	logger   *zap.Logger
}

func NewService(cfg ServiceConfig) Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &service{
		repo:     cfg.Repository,
		ledger:   cfg.Ledger,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		guard:    NewChatGuard(),
		logger:   cfg.Logger,
	}
}

func (s *service) CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error) {
	if input.CreatorID == uuid.Nil {
		return nil, validationError("creator is required")
	}
	if !input.ActivityType.IsValid() {
		return nil, validationError("unknown activity type %q", input.ActivityType)
	}
	if strings.TrimSpace(input.Hub.PlaceID) == "" || strings.TrimSpace(input.Hub.Name) == "" {
		return nil, validationError("hub place id and name are required")
	}
	if err := input.Hub.Point().Validate(); err != nil {
		return nil, validationError("hub location: %v", err)
	}

	now := s.clock.Now()
	start := input.ScheduledStartTime.UTC()
	if err := validateSchedule(start, input.DurationMinutes, now); err != nil {
		return nil, err
	}
	if err := s.ensureNotSuspended(ctx, input.CreatorID, now); err != nil {
		return nil, err
	}

	event := &Event{
		ID:                 uuid.New(),
		CreatorID:          input.CreatorID,
		Hub:                input.Hub,
		ActivityType:       input.ActivityType,
		Status:             StatusScheduled,
		ScheduledStartTime: start,
		DurationMinutes:    input.DurationMinutes,
		ExpiresAt:          start.Add(-ExpiryLead),
		CreatorCheckIn:     CheckIn{Status: CheckInPending},
		ParticipantCheckIn: CheckIn{Status: CheckInPending},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.repo.Transact(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.LockUser(ctx, input.CreatorID); err != nil {
			return err
		}
		_, err := tx.FindActiveEventByCreator(ctx, input.CreatorID)
		if err == nil {
			return ErrActiveEventLimit
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID.String()),
		zap.String("creator_id", event.CreatorID.String()),
		zap.Time("start", event.ScheduledStartTime))

	s.record("event created", s.ledger.RecordEventCreated(ctx, event.CreatorID))
	return event, nil
}

func (s *service) RequestJoin(ctx context.Context, userID, eventID uuid.UUID, message string) (*EventRequest, error) {
	message = strings.TrimSpace(message)
	if len(message) > MaxRequestMessageLength {
		return nil, validationError("message must be at most %d characters", MaxRequestMessageLength)
	}

	now := s.clock.Now()
	if err := s.ensureNotSuspended(ctx, userID, now); err != nil {
		return nil, err
	}

	req := &EventRequest{
		ID:          uuid.New(),
		EventID:     eventID,
		RequesterID: userID,
		Status:      RequestPending,
		Message:     message,
		CreatedAt:   now,
	}

	event, err := s.repo.Transition(ctx, eventID, func(ctx context.Context, tx Store, e *Event) error {
		if e.CreatorID == userID {
			return validationError("cannot join your own event")
		}
		if e.Status != StatusScheduled {
			return stateError("join", e.Status)
		}
		if !now.Before(e.ScheduledStartTime) {
			return fmt.Errorf("%w: event has already started", ErrConflict)
		}
		blocked, err := s.ledger.IsBlocked(ctx, userID, e.CreatorID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrUserBlocked
		}
		if _, err := tx.FindOpenRequest(ctx, eventID, userID); err == nil {
			return ErrAlreadyRequested
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.CreateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, event.CreatorID, notification.JoinRequestReceived, event,
		"New join request", "Someone wants to join your event.",
		map[string]interface{}{"request_id": req.ID.String()})
	return req, nil
}

func (s *service) RespondToRequest(ctx context.Context, creatorID, requestID uuid.UUID, accept bool) (*EventRequest, error) {
	pending, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		req      *EventRequest
		declined []EventRequest
	)
	event, err := s.repo.Transition(ctx, pending.EventID, func(ctx context.Context, tx Store, e *Event) error {
		if e.CreatorID != creatorID {
			return ErrNotEventCreator
		}
		if accept && e.Status != StatusScheduled {
			return ErrEventTaken
		}

		r, err := tx.FindRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r.Status != RequestPending {
			return ErrRequestHandled
		}

		r.RespondedAt = &now
		if !accept {
			r.Status = RequestDeclined
			req = r
			return tx.SaveRequest(ctx, r)
		}

		if err := e.match(r, now); err != nil {
			return err
		}
		r.Status = RequestAccepted
		if err := tx.SaveRequest(ctx, r); err != nil {
			return err
		}
		req = r

		others, err := tx.ListRequests(ctx, e.ID, RequestPending)
		if err != nil {
			return err
		}
		for i := range others {
			other := others[i]
			if other.ID == r.ID {
				continue
			}
			other.Status = RequestDeclined
			other.RespondedAt = &now
			if err := tx.SaveRequest(ctx, &other); err != nil {
				return err
			}
			declined = append(declined, other)
		}

		return tx.CreateChat(ctx, &EventChat{
			ID:        uuid.New(),
			EventID:   e.ID,
			ExpiresAt: e.ScheduledStartTime.Add(ChatGracePeriod),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if !accept {
		s.notify(ctx, req.RequesterID, notification.JoinRequestDeclined, event,
			"Join request declined", "Your join request was declined.", nil)
		return req, nil
	}

	s.logger.Info("Event matched",
		zap.String("event_id", event.ID.String()),
		zap.String("participant_id", req.RequesterID.String()),
		zap.Int("auto_declined", len(declined)))

	s.record("match", s.ledger.RecordMatch(ctx, event.CreatorID, req.RequesterID))
	s.notify(ctx, req.RequesterID, notification.JoinRequestAccepted, event,
		"Join request accepted", "You're matched! Say hi in the chat.", nil)
	for _, d := range declined {
		s.notify(ctx, d.RequesterID, notification.JoinRequestDeclined, event,
			"Join request declined", "This event has found a partner.", nil)
	}
	return req, nil
}

func (s *service) CancelEvent(ctx context.Context, creatorID, eventID uuid.UUID) (*Event, error) {
	now := s.clock.Now()
	var dropped []EventRequest
	event, err := s.repo.Transition(ctx, eventID, func(ctx context.Context, tx Store, e *Event) error {
		if e.CreatorID != creatorID {
			return ErrNotEventCreator
		}
		if err := e.cancel(now); err != nil {
			return err
		}

		pending, err := tx.ListRequests(ctx, e.ID, RequestPending)
		if err != nil {
			return err
		}
		for i := range pending {
			r := pending[i]
			r.Status = RequestCancelled
			r.RespondedAt = &now
			if err := tx.SaveRequest(ctx, &r); err != nil {
				return err
			}
			dropped = append(dropped, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Event cancelled", zap.String("event_id", event.ID.String()))
	s.record("cancellation", s.ledger.RecordCancellation(ctx, event.CreatorID))

	if event.ParticipantID != nil {
		s.notify(ctx, *event.ParticipantID, notification.EventCancelled, event,
			"Meetup cancelled", "The creator cancelled the meetup.", nil, notification.Email)
	}
	for _, r := range dropped {
		s.notify(ctx, r.RequesterID, notification.EventCancelled, event,
			"Event cancelled", "An event you asked to join was cancelled.", nil)
	}
	return event, nil
}

func (s *service) Revalidate(ctx context.Context, creatorID, eventID uuid.UUID, confirmed bool, at *geo.Point) (*RevalidationResult, error) {
	if at != nil {
		if err := at.Validate(); err != nil {
			return nil, validationError("location: %v", err)
		}
	}

	now := s.clock.Now()
	var (
		outcome  RevalidationOutcome
		distance *float64
	)
	event, err := s.repo.Transition(ctx, eventID, func(ctx context.Context, tx Store, e *Event) error {
		if e.CreatorID != creatorID {
			return ErrNotEventCreator
		}
		var err error
		outcome, distance, err = e.revalidate(confirmed, at, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &RevalidationResult{Outcome: outcome, DistanceMeters: distance, Event: *event}
	participant := *event.ParticipantID

	switch outcome {
	case OutcomeConfirmed:
		s.notify(ctx, participant, notification.RevalidationConfirmed, event,
			"Meetup confirmed", "Your partner confirmed the meetup.", nil)
	case OutcomeCancelledNoRevalidation:
		s.record("cancellation", s.ledger.RecordCancellation(ctx, event.CreatorID))
		s.notify(ctx, participant, notification.CancelledNoRevalidation, event,
			"Meetup cancelled", "Your partner could not confirm the meetup.", nil, notification.Email)
	case OutcomeCancelledGeoMismatch:
		s.record("cancellation", s.ledger.RecordCancellation(ctx, event.CreatorID))
		s.notify(ctx, participant, notification.CancelledGeoMismatch, event,
			"Meetup cancelled", "Your partner is too far from the hub.",
			map[string]interface{}{"distance_meters": *distance}, notification.Email)
	}

	s.logger.Info("Event revalidated",
		zap.String("event_id", event.ID.String()),
		zap.String("outcome", string(outcome)))
	return result, nil
}

func (s *service) CheckIn(ctx context.Context, userID, eventID uuid.UUID, at geo.Point) (*CheckInResult, error) {
	if err := at.Validate(); err != nil {
		return nil, validationError("location: %v", err)
	}

	now := s.clock.Now()
	var (
		role     Role
		distance float64
		both     bool
	)
	event, err := s.repo.Transition(ctx, eventID, func(ctx context.Context, tx Store, e *Event) error {
		r, ok := e.RoleOf(userID)
		if !ok {
			return ErrNotEventParty
		}
		role = r
		var err error
		distance, both, err = e.checkIn(role, at, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if both {
		for _, id := range event.Parties() {
			s.notify(ctx, id, notification.BothOnSite, event,
				"You're both here", "Enjoy your meetup!", nil)
		}
	} else if other := event.Counterpart(role); other != nil {
		s.notify(ctx, *other, notification.PartnerCheckedIn, event,
			"Partner arrived", "Your partner has checked in at the hub.", nil)
	}

	return &CheckInResult{Role: role, DistanceMeters: distance, BothOnSite: both, Event: *event}, nil
}

func (s *service) SendMessage(ctx context.Context, userID, eventID uuid.UUID, content string) (*ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("message cannot be empty")
	}
	if len(content) > MaxChatMessageLength {
		return nil, validationError("message must be at most %d characters", MaxChatMessageLength)
	}

	now := s.clock.Now()
	var (
		msg  *ChatMessage
		role Role
	)
	event, err := s.repo.Transition(ctx, eventID, func(ctx context.Context, tx Store, e *Event) error {
		r, ok := e.RoleOf(userID)
		if !ok {
			return ErrNotEventParty
		}
		role = r

		chat, err := tx.FindChat(ctx, e.ID)
		if err != nil {
			return err
		}
		if err := s.guard.Admit(chat, role, now); err != nil {
			return err
		}

		msg = &ChatMessage{
			ID:        uuid.New(),
			ChatID:    chat.ID,
			EventID:   e.ID,
			SenderID:  userID,
			Content:   content,
			CreatedAt: now,
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		s.guard.Record(chat, role, now)
		return tx.SaveChat(ctx, chat)
	})
	if err != nil {
		return nil, err
	}

	if other := event.Counterpart(role); other != nil {
		s.notify(ctx, *other, notification.ChatMessageReceived, event,
			"New message", content,
			map[string]interface{}{"message_id": msg.ID.String()})
	}
	return msg, nil
}

func (s *service) SubmitFeedback(ctx context.Context, input SubmitFeedbackInput) (*EventFeedback, error) {
	if !input.Rating.IsValid() {
		return nil, validationError("unknown rating %q", input.Rating)
	}
	comment := strings.TrimSpace(input.Comment)
	if len(comment) > MaxFeedbackCommentLength {
		return nil, validationError("comment must be at most %d characters", MaxFeedbackCommentLength)
	}

	now := s.clock.Now()
	var (
		fb        *EventFeedback
		role      Role
		completed bool
	)
	event, err := s.repo.Transition(ctx, input.EventID, func(ctx context.Context, tx Store, e *Event) error {
		r, ok := e.RoleOf(input.UserID)
		if !ok {
			return ErrNotEventParty
		}
		role = r
		if !e.Status.In(feedbackStatuses...) {
			return stateError("submit feedback for", e.Status)
		}
		to := e.Counterpart(role)
		if to == nil {
			return stateError("submit feedback for", e.Status)
		}

		existing, err := tx.ListFeedback(ctx, e.ID)
		if err != nil {
			return err
		}
		for _, f := range existing {
			if f.FromUserID == input.UserID {
				return ErrFeedbackGiven
			}
		}

		fb = &EventFeedback{
			ID:         uuid.New(),
			EventID:    e.ID,
			FromUserID: input.UserID,
			ToUserID:   *to,
			Rating:     input.Rating,
			Comment:    comment,
			CreatedAt:  now,
		}
		if err := tx.CreateFeedback(ctx, fb); err != nil {
			return err
		}

		if len(existing)+1 < 2 {
			return nil
		}
		completed = true
		return e.complete(now)
	})
	if err != nil {
		return nil, err
	}

	s.record("rating", s.ledger.RecordRating(ctx, fb.ToUserID, stats.Rating(fb.Rating)))

	if completed {
		s.completeParties(ctx, event, now)
		return fb, nil
	}

	s.notify(ctx, fb.ToUserID, notification.FeedbackRequested, event,
		"Rate your meetup", "Your partner left feedback. Share yours to complete the meetup.",
		nil, notification.Email)
	return fb, nil
}

// completeParties credits both parties for a completed event.
func (s *service) completeParties(ctx context.Context, event *Event, at time.Time) {
	s.logger.Info("Event completed", zap.String("event_id", event.ID.String()))
	for _, id := range event.Parties() {
		s.record("completion", s.ledger.RecordCompletion(ctx, id, at))
		s.notify(ctx, id, notification.EventCompleted, event,
			"Meetup completed", "Thanks for meeting up!", nil)
	}
}

func (s *service) GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*EventDetails, error) {
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	details := &EventDetails{Event: *event}
	role, ok := event.RoleOf(userID)
	if !ok {
		if event.Status != StatusScheduled {
			return nil, ErrNotEventParty
		}
		blocked, err := s.ledger.IsBlocked(ctx, userID, event.CreatorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrEventNotFound
		}
		return details, nil
	}
	details.Role = &role

	chat, err := s.repo.FindChat(ctx, event.ID)
	switch {
	case err == nil:
		details.Chat = chat
		if details.Messages, err = s.repo.ListMessages(ctx, chat.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if details.Feedback, err = s.repo.ListFeedback(ctx, event.ID); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *service) ListRequests(ctx context.Context, creatorID, eventID uuid.UUID) ([]EventRequest, error) {
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != creatorID {
		return nil, ErrNotEventCreator
	}
	return s.repo.ListRequests(ctx, eventID)
}

// ListNearby returns scheduled events within the query radius, closest
// first. Events of blocked users and the searcher's own are left out.
func (s *service) ListNearby(ctx context.Context, query NearbyQuery) ([]NearbyEvent, error) {
	if err := query.Position.Validate(); err != nil {
		return nil, validationError("position: %v", err)
	}
	radius := query.RadiusMeters
	if radius <= 0 {
		radius = DefaultNearbyRadiusMeters
	}
	if radius > MaxNearbyRadiusMeters {
		return nil, validationError("radius must be at most %.0f meters", MaxNearbyRadiusMeters)
	}
	if query.ActivityType != nil && !query.ActivityType.IsValid() {
		return nil, validationError("unknown activity type %q", *query.ActivityType)
	}

	now := s.clock.Now()
	box := geo.Box(query.Position, radius)
	events, err := s.repo.ListEvents(ctx, EventFilter{
		Statuses:     []Status{StatusScheduled},
		ActivityType: query.ActivityType,
		Box:          &box,
		StartsAfter:  &now,
	})
	if err != nil {
		return nil, err
	}

	hidden, err := s.hiddenCreators(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	results := make([]NearbyEvent, 0, len(events))
	for _, e := range events {
		if e.CreatorID == query.UserID || hidden[e.CreatorID] {
			continue
		}
		d := geo.DistanceMeters(query.Position, e.Hub.Point())
		if d > radius {
			continue
		}
		results = append(results, NearbyEvent{Event: e, DistanceMeters: d})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceMeters == results[j].DistanceMeters {
			return results[i].Event.ScheduledStartTime.Before(results[j].Event.ScheduledStartTime)
		}
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	if limit := clampLimit(query.Limit); len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *service) ListAtHub(ctx context.Context, userID uuid.UUID, placeID string) ([]Event, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, validationError("place id is required")
	}

	now := s.clock.Now()
	events, err := s.repo.ListEvents(ctx, EventFilter{
		Statuses:    []Status{StatusScheduled},
		PlaceID:     &placeID,
		StartsAfter: &now,
		Limit:       MaxListLimit,
	})
	if err != nil {
		return nil, err
	}

	hidden, err := s.hiddenCreators(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := events[:0]
	for _, e := range events {
		if !hidden[e.CreatorID] {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]Event, error) {
	return s.repo.ListEventsForUser(ctx, userID, MaxListLimit)
}

func (s *service) hiddenCreators(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	ids, err := s.ledger.BlockedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	hidden := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		hidden[id] = true
	}
	return hidden, nil
}

func (s *service) ensureNotSuspended(ctx context.Context, userID uuid.UUID, now time.Time) error {
	suspended, err := s.ledger.IsSuspended(ctx, userID, now)
	if err != nil {
		return err
	}
	if suspended {
		return ErrUserSuspended
	}
	return nil
}

// notify hands a notification about event to the notifier. Delivery is
// asynchronous and never fails the caller.
func (s *service) notify(ctx context.Context, userID uuid.UUID, t notification.Type, event *Event, title, summary string, extra map[string]interface{}, methods ...notification.DeliveryMethod) {
	data := map[string]interface{}{
		"event_id":   event.ID.String(),
		"status":     string(event.Status),
		"hub_name":   event.Hub.Name,
		"start_time": event.ScheduledStartTime.Format(time.RFC3339),
	}
	for k, v := range extra {
		data[k] = v
	}
	s.notifier.Notify(ctx, userID, t, notification.Payload{
		Reference:   notification.ReferenceMeetup,
		ReferenceID: event.ID,
		Title:       title,
		Summary:     summary,
		Data:        data,
		Methods:     methods,
	})
}

// record logs a failed stats update. Stats lag behind the event, they never
// undo it.
func (s *service) record(what string, err error) {
	if err != nil {
		s.logger.Error("Failed to update stats", zap.String("update", what), zap.Error(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
