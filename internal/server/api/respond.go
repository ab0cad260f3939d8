package api

import (
	"log/slog"
	"net/http"

	"carbontrack/internal/server/service"

	"github.com/labstack/echo/v4"
)

// Caller-facing failure messages, one per route.
const (
	msgFetchActivities     = "Failed to fetch activities"
	msgFetchLeaderboard    = "Failed to fetch leaderboard"
	msgFetchWeeklySummary  = "Failed to fetch weekly summary"
	msgFetchUserActivities = "Failed to fetch user activities"
	msgLogActivity         = "Failed to log activity"
	msgUploadFiles         = "Failed to upload file"
	msgNoToken             = "No token, authorization denied"
	msgInvalidToken        = "Token is not valid"
)

// statusFor maps a failure kind to its HTTP status. Store, input and
// availability failures all answer 500; only the auth gate differs.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the route's fixed failure body.
func respondError(c echo.Context, err error, message string) error {
	kind := service.KindOf(err)
	status := statusFor(kind)

	attrs := []any{
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status", status,
		"kind", kind.String(),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	return c.JSON(status, echo.Map{"message": message})
}
