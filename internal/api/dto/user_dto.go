package dto

import (
	"time"

	"github.com/google/uuid"
)

type ReportUserRequest struct {
	EventID *string `json:"event_id" validate:"omitempty,valid_uuid"`
	Reason  string  `json:"reason" validate:"required,not_empty,max=1000"`
}

type MilestoneResponse struct {
	Kind      string    `json:"kind"`
	Threshold int       `json:"threshold"`
	ReachedAt time.Time `json:"reached_at"`
}

// UserStatsResponse is the public view of a user's ledger. Moderation
// fields are only filled for the user themselves.
type UserStatsResponse struct {
	UserID          uuid.UUID           `json:"user_id"`
	TotalPoints     int                 `json:"total_points"`
	CurrentStreak   int                 `json:"current_streak"`
	LongestStreak   int                 `json:"longest_streak"`
	LastMeetupDate  *time.Time          `json:"last_meetup_date,omitempty"`
	EventsCreated   int                 `json:"events_created"`
	EventsCompleted int                 `json:"events_completed"`
	EventsCancelled int                 `json:"events_cancelled"`
	PositiveRatings int                 `json:"positive_ratings"`
	NeutralRatings  int                 `json:"neutral_ratings"`
	NegativeRatings int                 `json:"negative_ratings"`
	SuspendedUntil  *time.Time          `json:"suspended_until,omitempty"`
	Milestones      []MilestoneResponse `json:"milestones"`
}
