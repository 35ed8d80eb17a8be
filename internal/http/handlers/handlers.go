package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/yatra_sevak/backend/internal/crowd"
	"github.com/yatra_sevak/backend/internal/db"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/forecast"
	"github.com/yatra_sevak/backend/internal/geocode"
	"github.com/yatra_sevak/backend/internal/service"
)

const MaxForecastDays = 90

type Handler struct {
	Queue     *service.QueueService
	Safety    *service.SafetyService
	Hub       *events.Hub
	Store     *db.Store
	Geocoder  geocode.Geocoder
	Validator *validator.Validate
	Logger    zerolog.Logger
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payload", err.Error())
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query", err.Error())
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

// fail maps service errors onto the error envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSite):
		writeError(c, http.StatusNotFound, "UNKNOWN_SITE", "Site not found", err.Error())
	case errors.Is(err, service.ErrUnknownPassID):
		writeError(c, http.StatusNotFound, "UNKNOWN_PASS", "Pass not found", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_STATE", "Pass cannot be called", err.Error())
	case errors.Is(err, forecast.ErrInvalidRange),
		errors.Is(err, forecast.ErrInvalidBase),
		errors.Is(err, forecast.ErrInvalidHorizon):
		writeError(c, http.StatusBadRequest, "INVALID_RANGE", "Invalid forecast range", err.Error())
	case errors.Is(err, service.ErrInvalidScan), errors.Is(err, crowd.ErrInvalidReading):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
	case errors.Is(err, forecast.ErrEmptyHistory),
		errors.Is(err, forecast.ErrDegenerateHistory),
		errors.Is(err, forecast.ErrModelNotFitted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		h.Logger.Warn().Err(err).Str("path", c.FullPath()).Msg("forecast unavailable")
		writeError(c, http.StatusServiceUnavailable, "FORECAST_UNAVAILABLE", "Forecast unavailable", err.Error())
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", nil)
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
