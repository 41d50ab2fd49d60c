package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/handlers"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

type EventRoutes struct {
	handler *handlers.EventHandler
	guards  Guards
}

func NewEventRoutes(handler *handlers.EventHandler, guards Guards) *EventRoutes {
	return &EventRoutes{
		handler: handler,
		guards:  guards,
	}
}

// RegisterRoutes registers the event lifecycle routes
func (r *EventRoutes) RegisterRoutes(router *gin.Engine) {
	validation := r.guards.Validation
	compress := gzip.Gzip(gzip.DefaultCompression)

	api := router.Group("/api")
	r.guards.apply(api)

	events := api.Group("/events")

	// Static paths before :id
	events.POST("", validation.ValidateRequest(&dto.CreateEventRequest{}), r.handler.CreateEvent)
	events.GET("/nearby", validation.ValidateQuery(&dto.NearbyEventsQuery{}), compress, r.handler.ListNearby)
	events.GET("/mine", compress, r.handler.ListMine)

	events.GET("/:id", r.handler.GetEvent)
	events.POST("/:id/requests", validation.ValidateRequest(&dto.JoinRequestRequest{}), r.handler.RequestJoin)
	events.GET("/:id/requests", r.handler.ListRequests)
	events.POST("/:id/messages", validation.ValidateRequest(&dto.SendMessageRequest{}), r.handler.SendMessage)
	events.POST("/:id/cancel", r.handler.CancelEvent)
	events.POST("/:id/revalidate", validation.ValidateRequest(&dto.RevalidateRequest{}), r.handler.Revalidate)
	events.POST("/:id/check-in", validation.ValidateRequest(&dto.CheckInRequest{}), r.handler.CheckIn)
	events.POST("/:id/feedback", validation.ValidateRequest(&dto.FeedbackRequest{}), r.handler.SubmitFeedback)

	api.POST("/event-requests/:id/respond", validation.ValidateRequest(&dto.RespondRequestRequest{}), r.handler.RespondToRequest)
	api.GET("/hubs/:placeId/events", compress, r.handler.ListAtHub)
}
