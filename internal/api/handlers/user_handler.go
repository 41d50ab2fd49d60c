package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publicStatsTTL = 30 * time.Second

// ResponseCache caches JSON-serialisable responses.
type ResponseCache interface {
	CacheResponse(ctx context.Context, key string, ttl time.Duration, cacheType string, fn func() (interface{}, error)) (interface{}, error)
}

// UserHandler serves the social and stats endpoints of other users.
type UserHandler struct {
	ledger stats.Ledger
	cache  ResponseCache
	log    *zap.Logger
}

// NewUserHandler creates a new UserHandler. cache may be nil.
func NewUserHandler(ledger stats.Ledger, cache ResponseCache, log *zap.Logger) *UserHandler {
	return &UserHandler{ledger: ledger, cache: cache, log: log}
}

// BlockUser godoc
// @Summary Block a user
// @Description Blocked users no longer see each other's events or requests.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 409 {object} ErrorResponse "Already blocked"
// @Router /api/users/{id}/block [post]
func (h *UserHandler) BlockUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.Block(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) UnblockUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.Unblock(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportUser godoc
// @Summary Report a user
// @Description Reports from three distinct users within 30 days suspend the account for 7 days.
// @Tags users
// @Accept json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param report body dto.ReportUserRequest true "Reason and optional event"
// @Success 202
// @Failure 409 {object} ErrorResponse "Already reported"
// @Router /api/users/{id}/report [post]
func (h *UserHandler) ReportUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	req, ok := validatedBody[dto.ReportUserRequest](c)
	if !ok {
		return
	}

	input := stats.ReportInput{
		ReporterID: userID,
		ReportedID: targetID,
		Reason:     req.Reason,
	}
	if req.EventID != nil {
		eventID, err := uuid.Parse(*req.EventID)
		if err != nil {
			badRequest(c, "invalid event_id")
			return
		}
		input.EventID = &eventID
	}

	if err := h.ledger.Report(c.Request.Context(), input); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// GetMyStats returns the caller's ledger including moderation state.
func (h *UserHandler) GetMyStats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	resp, err := h.loadStats(c.Request.Context(), userID, true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserStats returns another user's public stats. Responses are cached
// briefly since profiles are viewed far more often than they change.
func (h *UserHandler) GetUserStats(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		unauthorized(c)
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	load := func() (interface{}, error) {
		return h.loadStats(c.Request.Context(), targetID, false)
	}
	if h.cache == nil {
		resp, err := load()
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp, err := h.cache.CacheResponse(c.Request.Context(), stats.CacheKey(targetID), publicStatsTTL, "user_stats", load)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) loadStats(ctx context.Context, userID uuid.UUID, self bool) (dto.UserStatsResponse, error) {
	s, err := h.ledger.GetStats(ctx, userID)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}
	milestones, err := h.ledger.ListMilestones(ctx, userID)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}
	return StatsToResponse(s, milestones, self), nil
}
