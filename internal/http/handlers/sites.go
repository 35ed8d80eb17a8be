package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yatra_sevak/backend/internal/geocode"
)

// NearestQuery takes either a coordinate pair or a free-text place name.
type NearestQuery struct {
	Lat   *float64 `form:"lat" validate:"required_without=Place,omitempty,gte=-90,lte=90"`
	Lon   *float64 `form:"lon" validate:"required_without=Place,omitempty,gte=-180,lte=180"`
	Place string   `form:"q" validate:"omitempty,max=200"`
}

type ForecastQuery struct {
	Days int `form:"days" validate:"gte=1,lte=90"`
}

// @Summary List sites
// @Tags sites
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/sites [get]
func (h *Handler) SitesList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Queue.ListSites()})
}

// @Summary Nearest site
// @Tags sites
// @Produce json
// @Param lat query number false "Latitude"
// @Param lon query number false "Longitude"
// @Param q query string false "Place name, used when lat/lon are absent"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/sites/nearest [get]
func (h *Handler) SiteNearest(c *gin.Context) {
	var q NearestQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if q.Lat != nil && q.Lon != nil {
		res, err := h.Queue.Sites.Nearest(*q.Lat, *q.Lon)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"site": res.Site, "distance_km": res.DistanceKm})
		return
	}

	if h.Geocoder == nil {
		writeError(c, http.StatusServiceUnavailable, "GEOCODER_DISABLED", "Place lookup is not configured", nil)
		return
	}
	place, err := h.Geocoder.Geocode(c.Request.Context(), geocode.BuildQuery(q.Place, geocode.DefaultRegion))
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			writeError(c, http.StatusNotFound, "PLACE_NOT_FOUND", "Place not found", q.Place)
			return
		}
		h.Logger.Warn().Err(err).Str("place", q.Place).Msg("geocode failed")
		writeError(c, http.StatusBadGateway, "GEOCODER_ERROR", "Place lookup failed", nil)
		return
	}
	res, err := h.Queue.Sites.Nearest(place.Lat, place.Lon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": res.Site, "distance_km": res.DistanceKm, "place": place})
}

// @Summary Footfall forecast
// @Description Daily predicted footfall starting today
// @Tags sites
// @Produce json
// @Param id path string true "Site ID"
// @Param days query int false "Horizon in days (default 7)"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/sites/{id}/forecast [get]
func (h *Handler) SiteForecast(c *gin.Context) {
	q := ForecastQuery{Days: 7}
	if !h.bindQuery(c, &q) {
		return
	}
	site, err := h.Queue.Site(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	points, err := h.Queue.Forecast(c.Request.Context(), site.ID, q.Days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": site, "days": q.Days, "points": points})
}

// @Summary Feature importances
// @Tags admin
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} map[string]any
// @Router /api/admin/sites/{id}/importances [get]
func (h *Handler) SiteImportances(c *gin.Context) {
	imp, val, err := h.Queue.FeatureImportances(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": imp, "validation": val})
}
