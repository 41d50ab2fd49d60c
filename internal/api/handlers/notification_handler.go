package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20

	wsReadLimit  = 4 << 10
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// NotificationHandler handles notification-related requests
type NotificationHandler struct {
	service  notification.Service
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewNotificationHandler creates a new notification handler. An empty
// allowedOrigins accepts sockets from any origin.
func NewNotificationHandler(service notification.Service, verifier middleware.TokenVerifier, allowedOrigins []string, log *zap.Logger) *NotificationHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &NotificationHandler{
		service:  service,
		verifier: verifier,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// GetAll godoc
// @Summary Get all notifications for a user
// @Description Get all notifications for the authenticated user with pagination
// @Tags notifications
// @Produce json
// @Param unread_only query bool false "Only unread notifications"
// @Param page query int false "Page number (default: 0)"
// @Param page_size query int false "Page size (default: 20)"
// @Security BearerAuth
// @Success 200 {object} dto.NotificationListResponse
// @Router /api/notifications [get]
func (h *NotificationHandler) GetAll(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	filter, ok := validatedQuery[dto.NotificationFilter](c)
	if !ok {
		return
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	ctx := c.Request.Context()
	items, err := h.service.List(ctx, userID, filter.UnreadOnly, pageSize, filter.Page*pageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	unread, err := h.service.CountUnread(ctx, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Items:       NotificationsToDTO(items),
		UnreadCount: unread,
		Page:        filter.Page,
		PageSize:    pageSize,
	})
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WebSocket pushes in-app notifications to the caller until the socket
// closes. Browsers cannot set headers on the upgrade request, so the token
// may also come from the token query parameter.
func (h *NotificationHandler) WebSocket(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		token := c.Query("token")
		if token == "" {
			unauthorized(c)
			return
		}
		claims, err := h.verifier.Verify(token)
		if err != nil {
			h.log.Debug("WebSocket token validation failed", zap.Error(err))
			unauthorized(c)
			return
		}
		userID = claims.UserID
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade to WebSocket",
			zap.Error(err),
			zap.String("user_id", userID.String()))
		return
	}
	defer ws.Close()

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ch, unsubscribe, err := h.service.Subscribe(userID)
	if err != nil {
		h.log.Error("Failed to subscribe to notifications", zap.Error(err))
		_ = ws.WriteJSON(gin.H{"error": "subscription failed"})
		return
	}
	defer unsubscribe()

	ctx := c.Request.Context()
	if unread, err := h.service.CountUnread(ctx, userID); err == nil {
		if err := ws.WriteJSON(gin.H{"type": "count", "count": unread}); err != nil {
			return
		}
	}

	// The reader handles mark-read commands and notices the client leaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := ws.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug("WebSocket read error", zap.Error(err))
				}
				return
			}
			h.handleCommand(ctx, userID, cmd)
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	h.log.Debug("Notification socket opened", zap.String("user_id", userID.String()))
	for {
		select {
		case n, open := <-ch:
			if !open {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(gin.H{"type": "notification", "notification": NotificationToDTO(n)}); err != nil {
				h.log.Debug("WebSocket write error", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			h.log.Debug("Notification socket closed", zap.String("user_id", userID.String()))
			return
		}
	}
}

type wsCommand struct {
	Command string `json:"command"`
	ID      string `json:"id"`
}

func (h *NotificationHandler) handleCommand(ctx context.Context, userID uuid.UUID, cmd wsCommand) {
	var err error
	switch cmd.Command {
	case "mark_read":
		id, parseErr := uuid.Parse(cmd.ID)
		if parseErr != nil {
			return
		}
		err = h.service.MarkAsRead(ctx, userID, id)
	case "mark_all_read":
		err = h.service.MarkAllAsRead(ctx, userID)
	default:
		return
	}
	if err != nil {
		h.log.Debug("WebSocket command failed", zap.String("command", cmd.Command), zap.Error(err))
	}
}
