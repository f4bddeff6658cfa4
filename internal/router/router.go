package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ctroy978/edmpc/internal/config"
	"github.com/ctroy978/edmpc/internal/handler"
	"github.com/ctroy978/edmpc/internal/middleware"
	"github.com/ctroy978/edmpc/internal/response"
	"github.com/ctroy978/edmpc/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth *handler.AuthHandler
	Test *handler.TestHandler
	Job  *handler.JobHandler
	WS   *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the login route (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Operator API (JWT) ─────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))
	{
		api.POST("/tests", handlers.Test.Create)
		api.GET("/tests", handlers.Test.List)
		api.GET("/tests/:id", handlers.Test.Get)
		api.DELETE("/tests/:id", handlers.Test.Delete)
		api.POST("/tests/:id/archive", handlers.Test.Archive)
		api.POST("/tests/:id/unarchive", handlers.Test.Unarchive)
		api.PUT("/tests/:id/layout", handlers.Test.PutLayout)
		api.GET("/tests/:id/layout", handlers.Test.GetLayout)
		api.PUT("/tests/:id/key", handlers.Test.PutAnswerKey)
		api.GET("/tests/:id/key", handlers.Test.GetAnswerKey)

		api.POST("/tests/:id/jobs", handlers.Job.Create)
		api.GET("/tests/:id/jobs", handlers.Job.ListByTest)
		api.GET("/jobs/:id", handlers.Job.Get)
		api.POST("/jobs/:id/scans", handlers.Job.UploadScans)
		api.POST("/jobs/:id/process", handlers.Job.Process)
		api.POST("/jobs/:id/grade", handlers.Job.Grade)
		api.GET("/jobs/:id/responses", handlers.Job.Responses)
		api.GET("/jobs/:id/gradebook", handlers.Job.Gradebook)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/jobs/:id/watch", handlers.WS.WatchJob)
	}

	return router
}
