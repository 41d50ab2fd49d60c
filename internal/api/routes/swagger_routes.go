package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/docs"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupSwaggerRoutes serves the API description and its UI under /swagger.
// Empty config fields keep the values compiled into the docs package.
func SetupSwaggerRoutes(router *gin.Engine, cfg config.SwaggerConfig) {
	if !cfg.Enabled {
		return
	}

	if cfg.Title != "" {
		docs.SwaggerInfo.Title = cfg.Title
	}
	if cfg.Description != "" {
		docs.SwaggerInfo.Description = cfg.Description
	}
	if cfg.Version != "" {
		docs.SwaggerInfo.Version = cfg.Version
	}
	if cfg.Host != "" {
		docs.SwaggerInfo.Host = cfg.Host
	}
	docs.SwaggerInfo.BasePath = cfg.BasePath

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
