package stats

import (
	"time"

	"github.com/google/uuid"
)

// UserStats is the per-user gamification and moderation ledger.
type UserStats struct {
	UserID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	TotalPoints     int        `gorm:"default:0;not null"`
	CurrentStreak   int        `gorm:"default:0;not null"`
	LongestStreak   int        `gorm:"default:0;not null"`
	LastMeetupDate  *time.Time `gorm:"type:date"`
	EventsCreated   int        `gorm:"default:0;not null"`
	EventsCompleted int        `gorm:"default:0;not null"`
	EventsCancelled int        `gorm:"default:0;not null"`
	PositiveRatings int        `gorm:"default:0;not null"`
	NeutralRatings  int        `gorm:"default:0;not null"`
	NegativeRatings int        `gorm:"default:0;not null"`
	ReportsReceived int        `gorm:"default:0;not null"`
	SuspendedUntil  *time.Time `gorm:"index"`
	CreatedAt       time.Time  `gorm:"not null;default:current_timestamp"`
	UpdatedAt       time.Time  `gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// IsSuspended reports whether the suspension window covers at.
func (s *UserStats) IsSuspended(at time.Time) bool {
	return s.SuspendedUntil != nil && s.SuspendedUntil.After(at)
}

type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNeutral  Rating = "neutral"
	RatingNegative Rating = "negative"
)

type MilestoneKind string

const (
	MilestoneStreak          MilestoneKind = "streak"
	MilestoneEventsCompleted MilestoneKind = "events_completed"
	MilestoneTotalPoints     MilestoneKind = "total_points"
)

// UserMilestone records a threshold reached once. Its unique index makes the
// milestone notification exactly-once even when a streak resets and climbs
// back.
type UserMilestone struct {
	ID        uuid.UUID     `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_user_milestone,priority:1"`
	Kind      MilestoneKind `gorm:"size:32;not null;uniqueIndex:idx_user_milestone,priority:2"`
	Threshold int           `gorm:"not null;uniqueIndex:idx_user_milestone,priority:3"`
	ReachedAt time.Time     `gorm:"not null"`
}

func (UserMilestone) TableName() string {
	return "user_milestones"
}

type UserBlock struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	BlockerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_block_pair,priority:1"`
	BlockedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_block_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"not null;default:current_timestamp"`
}

func (UserBlock) TableName() string {
	return "user_blocks"
}

type UserReport struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ReporterID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ReportedID uuid.UUID  `gorm:"type:uuid;not null;index"`
	EventID    *uuid.UUID `gorm:"type:uuid"`
	Reason     string     `gorm:"size:1000;not null"`
	CreatedAt  time.Time  `gorm:"not null;default:current_timestamp;index"`
}

func (UserReport) TableName() string {
	return "user_reports"
}

type ReportInput struct {
	ReporterID uuid.UUID
	ReportedID uuid.UUID
	EventID    *uuid.UUID
	Reason     string
}
