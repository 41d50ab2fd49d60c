package handlers

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// validatedBody returns the body parsed by the validation middleware, or
// binds it directly when the route was mounted without one.
func validatedBody[T any](c *gin.Context) (*T, bool) {
	if v, ok := c.Get(middleware.ValidatedModelKey); ok {
		if req, ok := v.(*T); ok {
			return req, true
		}
	}
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return nil, false
	}
	return &req, true
}

func validatedQuery[T any](c *gin.Context) (*T, bool) {
	if v, ok := c.Get(middleware.ValidatedQueryKey); ok {
		if q, ok := v.(*T); ok {
			return q, true
		}
	}
	var q T
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return nil, false
	}
	return &q, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
