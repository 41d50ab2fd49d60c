package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// NotificationRoutes manages notification endpoint routes
type NotificationRoutes struct {
	handler *handlers.NotificationHandler
	guards  Guards
}

// NewNotificationRoutes creates a new notification routes handler
func NewNotificationRoutes(handler *handlers.NotificationHandler, guards Guards) *NotificationRoutes {
	return &NotificationRoutes{
		handler: handler,
		guards:  guards,
	}
}

// RegisterRoutes registers notification routes with the provided router
func (r *NotificationRoutes) RegisterRoutes(router *gin.Engine) {
	// The socket authenticates with a token query parameter and is one
	// long request, so it skips both guards.
	router.GET("/api/notifications/ws", r.handler.WebSocket)

	notifications := router.Group("/api/notifications")
	notifications.Use(r.guards.Auth)

	limited := notifications.Group("")
	if r.guards.RateLimit != nil {
		limited.Use(r.guards.RateLimit)
	}
	limited.GET("", r.guards.Validation.ValidateQuery(&dto.NotificationFilter{}), r.handler.GetAll)
	limited.GET("/unread-count", r.handler.GetUnreadCount)
	limited.POST("/read-all", r.handler.MarkAllAsRead)
	limited.POST("/:id/read", r.handler.MarkAsRead)
}
