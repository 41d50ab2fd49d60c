package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// Guards are the middleware shared by every authenticated route group.
type Guards struct {
	Auth       gin.HandlerFunc
	RateLimit  gin.HandlerFunc
	Validation *middleware.ValidationMiddleware
}

func (g Guards) apply(group *gin.RouterGroup) {
	group.Use(g.Auth)
	if g.RateLimit != nil {
		group.Use(g.RateLimit)
	}
}
