package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type represents the type of notification
type Type string

const (
	// Meetup lifecycle
	JoinRequestReceived     Type = "join_request_received"
	JoinRequestAccepted     Type = "join_request_accepted"
	JoinRequestDeclined     Type = "join_request_declined"
	EventCancelled          Type = "event_cancelled"
	EventExpired            Type = "event_expired"
	RevalidationRequired    Type = "revalidation_required"
	RevalidationConfirmed   Type = "revalidation_confirmed"
	CancelledNoRevalidation Type = "cancelled_no_revalidation"
	CancelledGeoMismatch    Type = "cancelled_geo_mismatch"
	PartnerCheckedIn        Type = "partner_checked_in"
	BothOnSite              Type = "both_on_site"
	ChatMessageReceived     Type = "chat_message_received"
	FeedbackRequested       Type = "feedback_requested"
	FeedbackReminder        Type = "feedback_reminder"
	NoShowRecorded          Type = "no_show_recorded"
	EventCompleted          Type = "event_completed"

	// Gamification and moderation
	MilestoneReached Type = "milestone_reached"
	AccountSuspended Type = "account_suspended"
	SuspensionLifted Type = "suspension_lifted"
)

// Status represents the status of a notification
type Status string

const (
	Unread Status = "UNREAD"
	Read   Status = "READ"
)

// Reference domains carried on notifications.
const (
	ReferenceMeetup = "meetup"
	ReferenceStats  = "stats"
)

// Notification is a user's inbox entry.
type Notification struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index:idx_notifications_user_status,priority:1"`
	Type        Type              `json:"type" gorm:"size:64;not null"`
	Title       string            `json:"title" gorm:"size:255;not null"`
	Content     string            `json:"content" gorm:"type:text;not null"`
	Status      Status            `json:"status" gorm:"size:16;not null;default:'UNREAD';index:idx_notifications_user_status,priority:2"`
	Data        datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	Reference   string            `json:"reference" gorm:"size:32;index"`
	ReferenceID uuid.UUID         `json:"reference_id" gorm:"type:uuid;index"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
	ReadAt      *time.Time        `json:"read_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate fills identifiers and defaults left empty by callers.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	n.applyDefaults(time.Now().UTC())
	return nil
}

func (n *Notification) applyDefaults(now time.Time) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}
	if n.Status == "" {
		n.Status = Unread
	}
}

// Payload is what domains hand to the Notifier. ReferenceID is the id of the
// event (or user) the notification is about.
type Payload struct {
	Reference   string
	ReferenceID uuid.UUID
	Title       string
	Summary     string
	Data        map[string]interface{}
	Methods     []DeliveryMethod
}
