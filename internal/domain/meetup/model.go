package meetup

import (
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled               Status = "scheduled"
	StatusMatched                 Status = "matched"
	StatusRevalidationPending     Status = "revalidation_pending"
	StatusActive                  Status = "active"
	StatusOnSitePartial           Status = "on_site_partial"
	StatusOnSiteConfirmed         Status = "on_site_confirmed"
	StatusCompleted               Status = "completed"
	StatusCancelled               Status = "cancelled"
	StatusCancelledNoRevalidation Status = "cancelled_no_revalidation"
	StatusCancelledGeoMismatch    Status = "cancelled_geo_mismatch"
	StatusExpired                 Status = "expired"
)

// TerminalStatuses are the states an event never leaves.
var TerminalStatuses = []Status{
	StatusCompleted,
	StatusCancelled,
	StatusCancelledNoRevalidation,
	StatusCancelledGeoMismatch,
	StatusExpired,
}

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// In reports whether s is one of the given states.
func (s Status) In(states ...Status) bool {
	for _, t := range states {
		if s == t {
			return true
		}
	}
	return false
}

type ActivityType string

const (
	ActivityCoffee ActivityType = "coffee"
	ActivityCowork ActivityType = "cowork"
	ActivityMeal   ActivityType = "meal"
	ActivityDrinks ActivityType = "drinks"
	ActivityWalk   ActivityType = "walk"
)

func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityCoffee, ActivityCowork, ActivityMeal, ActivityDrinks, ActivityWalk:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestDeclined  RequestStatus = "declined"
	RequestCancelled RequestStatus = "cancelled"
)

type CheckInStatus string

const (
	CheckInPending   CheckInStatus = "pending"
	CheckInCheckedIn CheckInStatus = "checked_in"
	CheckInNoShow    CheckInStatus = "no_show"
)

type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNeutral  Rating = "neutral"
	RatingNegative Rating = "negative"
)

func (r Rating) IsValid() bool {
	switch r {
	case RatingPositive, RatingNeutral, RatingNegative:
		return true
	}
	return false
}

// Role is the side a user plays in an event.
type Role string

const (
	RoleCreator     Role = "creator"
	RoleParticipant Role = "participant"
)

// Hub is the venue snapshot taken when the event is created.
type Hub struct {
	PlaceID string  `gorm:"size:255;not null;index"`
	Name    string  `gorm:"size:255;not null"`
	Type    string  `gorm:"size:64"`
	Lat     float64 `gorm:"not null"`
	Lng     float64 `gorm:"not null"`
	Address string  `gorm:"size:512"`
}

func (h Hub) Point() geo.Point {
	return geo.Point{Lat: h.Lat, Lng: h.Lng}
}

// CheckIn records one role's arrival at the hub.
type CheckIn struct {
	Status CheckInStatus `gorm:"size:20;not null;default:pending"`
	At     *time.Time
	Lat    *float64
	Lng    *float64
}

type Event struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CreatorID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	ParticipantID *uuid.UUID   `gorm:"type:uuid;index"`
	Hub           Hub          `gorm:"embedded;embeddedPrefix:hub_"`
	ActivityType  ActivityType `gorm:"size:20;not null"`
	Status        Status       `gorm:"size:32;not null;index"`

	ScheduledStartTime time.Time `gorm:"not null;index"`
	DurationMinutes    int       `gorm:"not null"`
	ExpiresAt          time.Time `gorm:"not null;index"`
	MatchedAt          *time.Time

	RevalidationSentAt      *time.Time `gorm:"index"`
	RevalidationRespondedAt *time.Time
	RevalidationConfirmed   bool `gorm:"default:false;not null"`
	RevalidationLat         *float64
	RevalidationLng         *float64

	CreatorCheckIn     CheckIn `gorm:"embedded;embeddedPrefix:creator_check_in_"`
	ParticipantCheckIn CheckIn `gorm:"embedded;embeddedPrefix:participant_check_in_"`

	FeedbackReminderSentAt *time.Time
	CompletedAt            *time.Time
	ClosedAt               *time.Time `gorm:"index"`
	CreatedAt              time.Time  `gorm:"not null;default:current_timestamp"`
	UpdatedAt              time.Time  `gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}

// EndTime is the scheduled end of the meetup.
func (e *Event) EndTime() time.Time {
	return e.ScheduledStartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// RoleOf returns the role userID plays in the event.
func (e *Event) RoleOf(userID uuid.UUID) (Role, bool) {
	if e.CreatorID == userID {
		return RoleCreator, true
	}
	if e.ParticipantID != nil && *e.ParticipantID == userID {
		return RoleParticipant, true
	}
	return "", false
}

// Counterpart returns the other party for role, if any.
func (e *Event) Counterpart(role Role) *uuid.UUID {
	if role == RoleCreator {
		return e.ParticipantID
	}
	id := e.CreatorID
	return &id
}

// Parties returns the creator and, when matched, the participant.
func (e *Event) Parties() []uuid.UUID {
	ids := []uuid.UUID{e.CreatorID}
	if e.ParticipantID != nil {
		ids = append(ids, *e.ParticipantID)
	}
	return ids
}

func (e *Event) userOf(role Role) *uuid.UUID {
	if role == RoleCreator {
		id := e.CreatorID
		return &id
	}
	return e.ParticipantID
}

func (e *Event) checkInOf(role Role) *CheckIn {
	if role == RoleCreator {
		return &e.CreatorCheckIn
	}
	return &e.ParticipantCheckIn
}

type EventRequest struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	RequesterID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status      RequestStatus `gorm:"size:20;not null;index"`
	Message     string        `gorm:"size:280"`
	CreatedAt   time.Time     `gorm:"not null;default:current_timestamp;index"`
	RespondedAt *time.Time
}

func (EventRequest) TableName() string {
	return "event_requests"
}

type EventChat struct {
	ID                      uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID                 uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatorMessageCount     int       `gorm:"default:0;not null"`
	ParticipantMessageCount int       `gorm:"default:0;not null"`
	IsLocked                bool      `gorm:"default:false;not null"`
	LockedAt                *time.Time
	ExpiresAt               time.Time `gorm:"not null"`
	CreatedAt               time.Time `gorm:"not null;default:current_timestamp"`
}

func (EventChat) TableName() string {
	return "event_chats"
}

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"size:500;not null"`
	CreatedAt time.Time `gorm:"not null;default:current_timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

type EventFeedback struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_event_author,priority:1"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_event_author,priority:2"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating     Rating    `gorm:"size:20;not null"`
	Comment    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null;default:current_timestamp"`
}

func (EventFeedback) TableName() string {
	return "event_feedback"
}

// CreateEventInput carries the creator's choices for a new event.
type CreateEventInput struct {
	CreatorID          uuid.UUID
	Hub                Hub
	ActivityType       ActivityType
	ScheduledStartTime time.Time
	DurationMinutes    int
}

type SubmitFeedbackInput struct {
	UserID  uuid.UUID
	EventID uuid.UUID
	Rating  Rating
	Comment string
}

// NearbyQuery lists scheduled events around a position.
type NearbyQuery struct {
	UserID       uuid.UUID
	Position     geo.Point
	RadiusMeters float64
	ActivityType *ActivityType
	Limit        int
}

// NearbyEvent pairs an event with its distance from the searcher.
type NearbyEvent struct {
	Event          Event
	DistanceMeters float64
}

// EventDetails is an event as seen by one user. Chat and messages are only
// populated for the two parties.
type EventDetails struct {
	Event    Event
	Role     *Role
	Chat     *EventChat
	Messages []ChatMessage
	Feedback []EventFeedback
}

// RevalidationOutcome is the result variant of a creator revalidation.
type RevalidationOutcome string

const (
	OutcomeConfirmed               RevalidationOutcome = "confirmed"
	OutcomeCancelledNoRevalidation RevalidationOutcome = "cancelled_no_revalidation"
	OutcomeCancelledGeoMismatch    RevalidationOutcome = "cancelled_geo_mismatch"
)

type RevalidationResult struct {
	Outcome        RevalidationOutcome
	DistanceMeters *float64
	Event          Event
}

type CheckInResult struct {
	Role           Role
	DistanceMeters float64
	BothOnSite     bool
	Event          Event
}

// SweepResult summarises one scheduler pass.
type SweepResult struct {
	Candidates int
	Applied    int
	Skipped    int
	Failed     int
}
