package dto

import (
	"time"

	"github.com/google/uuid"
)

// NotificationFilter represents request filtering parameters for notifications
type NotificationFilter struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page" validate:"gte=0"`
	PageSize   int  `form:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// NotificationDTO represents a notification data transfer object
type NotificationDTO struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Status      string                 `json:"status"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	ReferenceID uuid.UUID              `json:"reference_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
}

// NotificationListResponse represents a paginated response of notifications
type NotificationListResponse struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
}
