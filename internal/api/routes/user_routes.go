package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

type UserRoutes struct {
	handler *handlers.UserHandler
	guards  Guards
}

func NewUserRoutes(handler *handlers.UserHandler, guards Guards) *UserRoutes {
	return &UserRoutes{
		handler: handler,
		guards:  guards,
	}
}

// RegisterRoutes registers block, report and stats routes
func (r *UserRoutes) RegisterRoutes(router *gin.Engine) {
	users := router.Group("/api/users")
	r.guards.apply(users)

	users.GET("/me/stats", r.handler.GetMyStats)
	users.GET("/:id/stats", r.handler.GetUserStats)
	users.POST("/:id/block", r.handler.BlockUser)
	users.DELETE("/:id/block", r.handler.UnblockUser)
	users.POST("/:id/report", r.guards.Validation.ValidateRequest(&dto.ReportUserRequest{}), r.handler.ReportUser)
}
