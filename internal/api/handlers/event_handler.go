package handlers

import (
	"net/http"
	"strings"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventHandler handles HTTP requests for the meetup lifecycle
type EventHandler struct {
	service meetup.Service
	log     *zap.Logger
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(service meetup.Service, log *zap.Logger) *EventHandler {
	return &EventHandler{service: service, log: log}
}

// CreateEvent godoc
// @Summary Schedule a meetup at a hub
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body dto.CreateEventRequest true "Event to schedule"
// @Success 201 {object} dto.EventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Account suspended"
// @Failure 409 {object} ErrorResponse "Creator already has an active event"
// @Router /api/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validatedBody[dto.CreateEventRequest](c)
	if !ok {
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), meetup.CreateEventInput{
		CreatorID: userID,
		Hub: meetup.Hub{
			PlaceID: req.Hub.PlaceID,
			Name:    req.Hub.Name,
			Type:    req.Hub.Type,
			Lat:     req.Hub.Lat,
			Lng:     req.Hub.Lng,
			Address: req.Hub.Address,
		},
		ActivityType:       meetup.ActivityType(req.ActivityType),
		ScheduledStartTime: req.ScheduledStartTime,
		DurationMinutes:    req.DurationMinutes,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, EventToResponse(event))
}

// GetEvent godoc
// @Summary Get an event with its chat and feedback when the caller is a party
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} dto.EventDetailsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	details, err := h.service.GetEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, DetailsToResponse(details))
}

// ListNearby godoc
// @Summary List scheduled events around a position
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number false "Radius in meters (default 5000, max 50000)"
// @Param activity_type query string false "Activity filter"
// @Param limit query int false "Maximum results (default 50, max 100)"
// @Success 200 {array} dto.NearbyEventResponse
// @Router /api/events/nearby [get]
func (h *EventHandler) ListNearby(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	q, ok := validatedQuery[dto.NearbyEventsQuery](c)
	if !ok {
		return
	}
	if q.Lat == nil || q.Lng == nil {
		badRequest(c, "lat and lng are required")
		return
	}

	query := meetup.NearbyQuery{
		UserID:       userID,
		Position:     geo.Point{Lat: *q.Lat, Lng: *q.Lng},
		RadiusMeters: q.RadiusMeters,
		Limit:        q.Limit,
	}
	if q.ActivityType != "" {
		activity := meetup.ActivityType(q.ActivityType)
		query.ActivityType = &activity
	}

	events, err := h.service.ListNearby(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, NearbyToResponse(events))
}

// ListMine returns every event the caller created or joined.
func (h *EventHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	events, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, EventsToResponse(events))
}

func (h *EventHandler) ListAtHub(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	placeID := strings.TrimSpace(c.Param("placeId"))
	if placeID == "" {
		badRequest(c, "invalid placeId")
		return
	}

	events, err := h.service.ListAtHub(c.Request.Context(), userID, placeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, EventsToResponse(events))
}

// RequestJoin godoc
// @Summary Ask to join a scheduled event
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body dto.JoinRequestRequest false "Optional message"
// @Success 201 {object} dto.EventRequestResponse
// @Failure 403 {object} ErrorResponse "Blocked or suspended"
// @Failure 409 {object} ErrorResponse "Already requested or event no longer open"
// @Router /api/events/{id}/requests [post]
func (h *EventHandler) RequestJoin(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.JoinRequestRequest](c)
	if !ok {
		return
	}

	request, err := h.service.RequestJoin(c.Request.Context(), userID, eventID, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, RequestToResponse(request))
}

func (h *EventHandler) ListRequests(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	requests, err := h.service.ListRequests(c.Request.Context(), userID, eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, RequestsToResponse(requests))
}

// RespondToRequest godoc
// @Summary Accept or decline a join request
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param response body dto.RespondRequestRequest true "Decision"
// @Success 200 {object} dto.EventRequestResponse
// @Failure 403 {object} ErrorResponse "Not the event creator"
// @Failure 409 {object} ErrorResponse "Event already matched or request already handled"
// @Router /api/event-requests/{id}/respond [post]
func (h *EventHandler) RespondToRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.RespondRequestRequest](c)
	if !ok {
		return
	}
	if req.Accept == nil {
		badRequest(c, "accept is required")
		return
	}

	request, err := h.service.RespondToRequest(c.Request.Context(), userID, requestID, *req.Accept)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, RequestToResponse(request))
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.service.CancelEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, EventToResponse(event))
}

// Revalidate godoc
// @Summary Confirm or decline the meetup before it starts
// @Description A confirmation more than 10 km from the hub cancels the event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param revalidation body dto.RevalidateRequest true "Decision and current position"
// @Success 200 {object} dto.RevalidationResponse
// @Failure 409 {object} ErrorResponse "No revalidation pending"
// @Router /api/events/{id}/revalidate [post]
func (h *EventHandler) Revalidate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.RevalidateRequest](c)
	if !ok {
		return
	}
	if req.Confirmed == nil {
		badRequest(c, "confirmed is required")
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		badRequest(c, "lat and lng must be sent together")
		return
	}

	var at *geo.Point
	if req.Lat != nil {
		at = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	}

	result, err := h.service.Revalidate(c.Request.Context(), userID, eventID, *req.Confirmed, at)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.RevalidationResponse{
		Outcome:        string(result.Outcome),
		DistanceMeters: result.DistanceMeters,
		Event:          EventToResponse(&result.Event),
	})
}

// CheckIn godoc
// @Summary Check in at the hub
// @Description The caller must be within 100 m of the hub.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param location body dto.CheckInRequest true "Current position"
// @Success 200 {object} dto.CheckInResultResponse
// @Failure 422 {object} ErrorResponse "Too far from the hub"
// @Router /api/events/{id}/check-in [post]
func (h *EventHandler) CheckIn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.CheckInRequest](c)
	if !ok {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		badRequest(c, "lat and lng are required")
		return
	}

	result, err := h.service.CheckIn(c.Request.Context(), userID, eventID, geo.Point{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.CheckInResultResponse{
		Role:           string(result.Role),
		DistanceMeters: result.DistanceMeters,
		BothOnSite:     result.BothOnSite,
		Event:          EventToResponse(&result.Event),
	})
}

func (h *EventHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.SendMessageRequest](c)
	if !ok {
		return
	}

	message, err := h.service.SendMessage(c.Request.Context(), userID, eventID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, MessageToResponse(message))
}

// SubmitFeedback godoc
// @Summary Rate the other party after the meetup
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param feedback body dto.FeedbackRequest true "Rating and optional comment"
// @Success 201 {object} dto.FeedbackResponse
// @Failure 409 {object} ErrorResponse "Feedback already given or meetup not on site"
// @Router /api/events/{id}/feedback [post]
func (h *EventHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.FeedbackRequest](c)
	if !ok {
		return
	}

	feedback, err := h.service.SubmitFeedback(c.Request.Context(), meetup.SubmitFeedbackInput{
		UserID:  userID,
		EventID: eventID,
		Rating:  meetup.Rating(req.Rating),
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, FeedbackToResponse(feedback))
}
