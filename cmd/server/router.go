package main

import (
	"time"

	"tale-forge/internal/config"
	"tale-forge/internal/handler"
	"tale-forge/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const defaultCORSOrigin = "http://localhost:3000"

// newRouter собирает gin engine: логирование, recovery, CORS, метрики и роуты API.
func newRouter(cfg *config.Config, h *handler.Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{defaultCORSOrigin}
		log.Info("CORS_ALLOWED_ORIGINS not set, allowing default", zap.String("origin", defaultCORSOrigin))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// gin копирует цепочку middleware при регистрации роута, поэтому метрики идут до роутов.
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	h.RegisterRoutes(router)
	return router
}
