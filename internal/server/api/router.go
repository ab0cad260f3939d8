package api

import (
	"net/http"

	"carbontrack/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// "/api/activities/" and "/api/activities" are the same route
	e.Pre(middleware.RemoveTrailingSlash())

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "x-auth-token"},
	}))
	e.Use(RequestLogger())

	// Writes are rate-limited per client IP
	writeLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	e.GET("/health", handler.HandleHealth)

	activities := e.Group("/api/activities")
	activities.GET("", handler.authed(handler.HandleList))
	activities.GET("/leaderboard", handler.HandleLeaderboard)
	activities.GET("/weekly-summary", handler.authed(handler.HandleWeeklySummary))
	activities.GET("/my", handler.authed(handler.HandleMyActivities))
	activities.POST("", handler.authed(handler.HandleLog), writeLimiter)

	e.POST("/api/uploads", handler.authed(handler.HandleUpload), writeLimiter)

	return e
}
