package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/utils"
)

var ErrUnknownSite = errors.New("unknown site")

// SiteRegistry is the read-only reference table of pilgrimage sites.
type SiteRegistry struct {
	sites []models.Site
	byID  map[string]int
}

func NewSiteRegistry(sites []models.Site) (*SiteRegistry, error) {
	r := &SiteRegistry{byID: map[string]int{}}
	for _, s := range sites {
		site, err := models.NewSite(strings.ToLower(s.ID), s.Name, s.Lat, s.Lon, s.BaseFootfall)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[site.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate site %s", models.ErrInvalidSite, site.ID)
		}
		r.byID[site.ID] = len(r.sites)
		r.sites = append(r.sites, site)
	}
	return r, nil
}

func (r *SiteRegistry) List() []models.Site {
	out := make([]models.Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// Get looks a site up by id, ignoring case.
func (r *SiteRegistry) Get(id string) (models.Site, error) {
	i, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return models.Site{}, fmt.Errorf("%w: %q", ErrUnknownSite, id)
	}
	return r.sites[i], nil
}

type NearestSite struct {
	Site       models.Site `json:"site"`
	DistanceKm float64     `json:"distance_km"`
}

// Nearest returns the site closest to lat/lon.
func (r *SiteRegistry) Nearest(lat, lon float64) (NearestSite, error) {
	best := NearestSite{DistanceKm: math.Inf(1)}
	for _, s := range r.sites {
		if d := utils.DistanceKm(lat, lon, s.Lat, s.Lon); d < best.DistanceKm {
			best = NearestSite{Site: s, DistanceKm: d}
		}
	}
	if best.Site.ID == "" {
		return NearestSite{}, fmt.Errorf("%w: registry is empty", ErrUnknownSite)
	}
	return best, nil
}
