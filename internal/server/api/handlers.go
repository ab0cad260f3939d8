package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"carbontrack/internal/server/auth"
	"carbontrack/internal/server/database"
	"carbontrack/internal/server/service"
	"carbontrack/internal/server/storage"

	"github.com/labstack/echo/v4"
)

// AuthedHandler is a handler that needs a verified caller.
type AuthedHandler func(c echo.Context, id auth.Identity) error

// Handler contains the HTTP handlers for the activity API.
type Handler struct {
	activities *service.ActivityService
	uploads    *storage.DiskStorage
	verifier   *auth.Verifier
	store      database.ActivityStore
}

// NewHandler creates a new handler with its service dependencies.
func NewHandler(
	activities *service.ActivityService,
	uploads *storage.DiskStorage,
	verifier *auth.Verifier,
	store database.ActivityStore,
) *Handler {
	return &Handler{
		activities: activities,
		uploads:    uploads,
		verifier:   verifier,
		store:      store,
	}
}

// authed verifies the request token and passes the identity to next.
// Unauthenticated requests never reach next.
func (h *Handler) authed(next AuthedHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := h.verifier.VerifyRequest(c.Request())
		if err != nil {
			fail := &service.Error{Op: "authenticate", Kind: service.KindUnauthorized, Err: err}
			if errors.Is(err, auth.ErrMissingToken) {
				return respondError(c, fail, msgNoToken)
			}
			return respondError(c, fail, msgInvalidToken)
		}
		return next(c, id)
	}
}

// HandleList handles GET /api/activities.
func (h *Handler) HandleList(c echo.Context, id auth.Identity) error {
	activities, err := h.activities.List(c.Request().Context(), id.UserID)
	if err != nil {
		return respondError(c, err, msgFetchActivities)
	}
	return c.JSON(http.StatusOK, activities)
}

// HandleLeaderboard handles GET /api/activities/leaderboard. It is public.
func (h *Handler) HandleLeaderboard(c echo.Context) error {
	entries, err := h.activities.Leaderboard(c.Request().Context())
	if err != nil {
		return respondError(c, err, msgFetchLeaderboard)
	}
	return c.JSON(http.StatusOK, entries)
}

// HandleWeeklySummary handles GET /api/activities/weekly-summary.
func (h *Handler) HandleWeeklySummary(c echo.Context, id auth.Identity) error {
	activities, err := h.activities.WeeklySummary(c.Request().Context(), id.UserID)
	if err != nil {
		return respondError(c, err, msgFetchWeeklySummary)
	}
	return c.JSON(http.StatusOK, activities)
}

// HandleMyActivities handles GET /api/activities/my.
func (h *Handler) HandleMyActivities(c echo.Context, id auth.Identity) error {
	activities, err := h.activities.ListByDate(c.Request().Context(), id.UserID)
	if err != nil {
		return respondError(c, err, msgFetchUserActivities)
	}
	return c.JSON(http.StatusOK, activities)
}

// HandleLog handles POST /api/activities.
// Only type, value, carbonFootprint and date are read from the body.
func (h *Handler) HandleLog(c echo.Context, id auth.Identity) error {
	var in service.LogActivityInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, service.Invalid("log activity", err), msgLogActivity)
	}

	activity, err := h.activities.Log(c.Request().Context(), id.UserID, in)
	if err != nil {
		return respondError(c, err, msgLogActivity)
	}
	return c.JSON(http.StatusCreated, activity)
}

// HandleUpload handles POST /api/uploads.
// Every file part of the multipart body is written to the upload directory.
func (h *Handler) HandleUpload(c echo.Context, id auth.Identity) error {
	err := h.uploads.Middleware()(func(c echo.Context) error {
		files := storage.Files(c)
		if files == nil {
			files = []*storage.File{}
		}
		slog.Info("files uploaded", "user", id.UserID, "count", len(files))
		return c.JSON(http.StatusCreated, echo.Map{"files": files})
	})(c)
	if err != nil {
		return respondError(c, service.Fail("upload files", err), msgUploadFiles)
	}
	return nil
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.store.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}
