package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yatra_sevak/backend/internal/i18n"
)

type SurgeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type SOSRequest struct {
	Location string `json:"location" validate:"omitempty,oneof='Main Gate' 'Darshan Hall' Parking"`
	Lang     string `json:"lang" validate:"omitempty,oneof=en gu hi English Gujarati Hindi"`
}

type HistoryQuery struct {
	Limit int `form:"limit" validate:"gte=1,lte=1000"`
}

type ScanQuery struct {
	Ticks int    `form:"ticks" validate:"gte=1,lte=50"`
	Lang  string `form:"lang"`
}

// @Summary Surge status
// @Tags surge
// @Produce json
// @Param lang query string false "en, gu or hi"
// @Success 200 {object} map[string]any
// @Router /api/surge [get]
func (h *Handler) SurgeStatus(c *gin.Context) {
	active := h.Queue.SurgeActive()
	resp := gin.H{"active": active}
	if active {
		msg, err := i18n.Render(i18n.SurgeAlert, i18n.ParseLocale(c.Query("lang")))
		if err != nil {
			h.fail(c, err)
			return
		}
		resp["message"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Set surge flag
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SurgeRequest true "Surge flag"
// @Success 200 {object} map[string]any
// @Router /api/admin/surge [put]
func (h *Handler) SurgeSet(c *gin.Context) {
	var req SurgeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.Queue.SetSurgeActive(c.Request.Context(), *req.Active)
	c.JSON(http.StatusOK, gin.H{"active": h.Queue.SurgeActive()})
}

// @Summary Evaluate surge
// @Description Compare the near-term forecast against the surge threshold; apply=true raises the flag
// @Tags admin
// @Produce json
// @Param id path string true "Site ID"
// @Param apply query bool false "Raise the flag when a surge is forecast"
// @Success 200 {object} service.SurgeEvaluation
// @Router /api/admin/sites/{id}/surge/evaluate [post]
func (h *Handler) SurgeEvaluate(c *gin.Context) {
	apply, err := strconv.ParseBool(c.DefaultQuery("apply", "false"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "apply must be a boolean", err.Error())
		return
	}
	ev, err := h.Queue.EvaluateSurge(c.Request.Context(), c.Param("id"), apply)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// @Summary Send SOS
// @Tags safety
// @Accept json
// @Produce json
// @Param id path string true "Site ID"
// @Param request body SOSRequest false "SOS details"
// @Success 201 {object} service.SOSResult
// @Router /api/sites/{id}/sos [post]
func (h *Handler) SOS(c *gin.Context) {
	var req SOSRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	res, err := h.Safety.SOS(c.Request.Context(), c.Param("id"), req.Location, req.Lang)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) AlertsList(c *gin.Context) {
	items, err := h.Safety.Alerts(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Dispatch responders
// @Tags admin
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} service.DispatchResult
// @Router /api/admin/sites/{id}/alerts/dispatch [post]
func (h *Handler) AlertsDispatch(c *gin.Context) {
	res, err := h.Safety.Dispatch(c.Request.Context(), c.Param("id"), c.Query("lang"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Scan crowd sensors
// @Tags admin
// @Produce json
// @Param id path string true "Site ID"
// @Param ticks query int false "Readings to simulate (default 20)"
// @Success 200 {object} service.ScanResult
// @Router /api/admin/sites/{id}/scan [post]
func (h *Handler) SiteScan(c *gin.Context) {
	q := ScanQuery{Ticks: 20}
	if !h.bindQuery(c, &q) {
		return
	}
	res, err := h.Safety.Scan(c.Request.Context(), c.Param("id"), q.Ticks, q.Lang)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Archived passes
// @Tags admin
// @Produce json
// @Param id path string true "Site ID"
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/admin/sites/{id}/history [get]
func (h *Handler) SiteHistory(c *gin.Context) {
	q := HistoryQuery{Limit: 100}
	if !h.bindQuery(c, &q) {
		return
	}
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "No database configured", nil)
		return
	}
	site, err := h.Queue.Site(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	items, err := h.Store.ListPasses(c.Request.Context(), site.ID, q.Limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list passes", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": q.Limit})
}
