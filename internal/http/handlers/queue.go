package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/service"
)

type JoinQueueRequest struct {
	UserID   string `json:"user_id" validate:"omitempty,max=64"`
	Priority bool   `json:"priority"`
	Lang     string `json:"lang" validate:"omitempty,oneof=en gu hi English Gujarati Hindi"`
}

type JoinQueueResponse struct {
	Pass    models.QueueEntry `json:"pass"`
	Token   string            `json:"token"`
	Message string            `json:"message"`
}

type PassIDsRequest struct {
	PassIDs []string `json:"pass_ids" validate:"required,min=1,max=500,dive,required,max=64"`
}

// @Summary Join queue
// @Description Issue a darshan pass with a predicted wait and slot
// @Tags queue
// @Accept json
// @Produce json
// @Param id path string true "Site ID"
// @Param request body JoinQueueRequest false "Join request"
// @Success 201 {object} JoinQueueResponse
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/sites/{id}/queue [post]
func (h *Handler) QueueJoin(c *gin.Context) {
	var req JoinQueueRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	entry, msg, err := h.Queue.JoinQueue(c.Request.Context(), service.JoinRequest{
		SiteID:   c.Param("id"),
		UserID:   req.UserID,
		Priority: req.Priority,
		Lang:     req.Lang,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, JoinQueueResponse{Pass: entry, Token: service.TokenText(entry), Message: msg})
}

// @Summary Queue status
// @Tags queue
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} map[string]any
// @Router /api/sites/{id}/queue [get]
func (h *Handler) QueueStatus(c *gin.Context) {
	items, err := h.Queue.QueueStatus(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) PassDetails(c *gin.Context) {
	entry, err := h.Queue.Pass(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass": entry, "token": service.TokenText(entry)})
}

// @Summary Pass progress
// @Tags queue
// @Produce json
// @Param id path string true "Pass ID"
// @Success 200 {object} models.Progress
// @Failure 404 {object} map[string]any
// @Router /api/passes/{id}/progress [get]
func (h *Handler) PassProgress(c *gin.Context) {
	p, err := h.Queue.Progress(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Grant priority
// @Tags admin
// @Accept json
// @Produce json
// @Param request body PassIDsRequest true "Pass IDs"
// @Success 200 {object} service.BulkResult
// @Router /api/admin/passes/priority [post]
func (h *Handler) PassesPriority(c *gin.Context) {
	var req PassIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.Queue.GrantPriority(c.Request.Context(), req.PassIDs))
}

// @Summary Cancel passes
// @Tags admin
// @Accept json
// @Produce json
// @Param request body PassIDsRequest true "Pass IDs"
// @Success 200 {object} service.BulkResult
// @Router /api/admin/passes/cancel [post]
func (h *Handler) PassesCancel(c *gin.Context) {
	var req PassIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.Queue.Cancel(c.Request.Context(), req.PassIDs))
}

func (h *Handler) PassCall(c *gin.Context) {
	entry, msg, err := h.Queue.Call(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass": entry, "message": msg})
}

// @Summary Export queue
// @Tags admin
// @Produce text/csv
// @Param site query string false "Limit to one site"
// @Success 200 {string} string
// @Router /api/admin/queue/export [get]
func (h *Handler) QueueExport(c *gin.Context) {
	siteID := c.Query("site")
	name := "queue_data.csv"
	if siteID != "" {
		site, err := h.Queue.Site(siteID)
		if err != nil {
			h.fail(c, err)
			return
		}
		siteID = site.ID
		name = "queue_" + site.ID + ".csv"
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if err := h.Queue.ExportCSV(c.Writer, siteID); err != nil {
		h.Logger.Error().Err(err).Msg("queue export failed")
	}
}
