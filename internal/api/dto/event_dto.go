package dto

import (
	"time"

	"github.com/google/uuid"
)

// HubRequest identifies the venue an event takes place at.
type HubRequest struct {
	PlaceID string  `json:"place_id" validate:"required,not_empty,max=255"`
	Name    string  `json:"name" validate:"required,not_empty,max=255"`
	Type    string  `json:"type" validate:"max=64"`
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address" validate:"max=512"`
}

type CreateEventRequest struct {
	Hub                HubRequest `json:"hub"`
	ActivityType       string     `json:"activity_type" validate:"required,oneof=coffee cowork meal drinks walk"`
	ScheduledStartTime time.Time  `json:"scheduled_start_time" validate:"required"`
	DurationMinutes    int        `json:"duration_minutes" validate:"required"`
}

// NearbyEventsQuery lists scheduled events around a position.
type NearbyEventsQuery struct {
	Lat          *float64 `form:"lat" validate:"required,latitude"`
	Lng          *float64 `form:"lng" validate:"required,longitude"`
	RadiusMeters float64  `form:"radius" validate:"omitempty,gt=0"`
	ActivityType string   `form:"activity_type" validate:"omitempty,oneof=coffee cowork meal drinks walk"`
	Limit        int      `form:"limit" validate:"omitempty,gte=1"`
}

type JoinRequestRequest struct {
	Message string `json:"message" validate:"max=280"`
}

type RespondRequestRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,not_empty,max=500"`
}

type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// RevalidateRequest confirms or declines the meetup. The location is
// required when confirming.
type RevalidateRequest struct {
	Confirmed *bool    `json:"confirmed" validate:"required"`
	Lat       *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng       *float64 `json:"lng" validate:"omitempty,longitude"`
}

type CheckInRequest = LocationRequest

type FeedbackRequest struct {
	Rating  string `json:"rating" validate:"required,oneof=positive neutral negative"`
	Comment string `json:"comment" validate:"max=1000"`
}

type HubResponse struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Type    string  `json:"type,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type CheckInResponse struct {
	Status string     `json:"status"`
	At     *time.Time `json:"at,omitempty"`
}

type EventResponse struct {
	ID                    uuid.UUID       `json:"id"`
	CreatorID             uuid.UUID       `json:"creator_id"`
	ParticipantID         *uuid.UUID      `json:"participant_id,omitempty"`
	Hub                   HubResponse     `json:"hub"`
	ActivityType          string          `json:"activity_type"`
	Status                string          `json:"status"`
	ScheduledStartTime    time.Time       `json:"scheduled_start_time"`
	DurationMinutes       int             `json:"duration_minutes"`
	ExpiresAt             time.Time       `json:"expires_at"`
	RevalidationSentAt    *time.Time      `json:"revalidation_sent_at,omitempty"`
	RevalidationConfirmed bool            `json:"revalidation_confirmed"`
	CreatorCheckIn        CheckInResponse `json:"creator_check_in"`
	ParticipantCheckIn    CheckInResponse `json:"participant_check_in"`
	ClosedAt              *time.Time      `json:"closed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type NearbyEventResponse struct {
	EventResponse
	DistanceMeters float64 `json:"distance_meters"`
}

type EventRequestResponse struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChatResponse struct {
	ID                      uuid.UUID  `json:"id"`
	CreatorMessageCount     int        `json:"creator_message_count"`
	ParticipantMessageCount int        `json:"participant_message_count"`
	RemainingMessages       int        `json:"remaining_messages"`
	IsLocked                bool       `json:"is_locked"`
	LockedAt                *time.Time `json:"locked_at,omitempty"`
	ExpiresAt               time.Time  `json:"expires_at"`
}

type ChatMessageResponse struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackResponse struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	Rating     string    `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type EventDetailsResponse struct {
	Event    EventResponse         `json:"event"`
	Role     string                `json:"role,omitempty"`
	Chat     *ChatResponse         `json:"chat,omitempty"`
	Messages []ChatMessageResponse `json:"messages,omitempty"`
	Feedback []FeedbackResponse    `json:"feedback,omitempty"`
}

type RevalidationResponse struct {
	Outcome        string        `json:"outcome"`
	DistanceMeters *float64      `json:"distance_meters,omitempty"`
	Event          EventResponse `json:"event"`
}

type CheckInResultResponse struct {
	Role           string        `json:"role"`
	DistanceMeters float64       `json:"distance_meters"`
	BothOnSite     bool          `json:"both_on_site"`
	Event          EventResponse `json:"event"`
}
