package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSite = errors.New("invalid site")

type Site struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	BaseFootfall int     `json:"base_footfall"`
}

// NewSite validates reference data once so the pipeline never sees a
// non-positive base footfall.
func NewSite(id, name string, lat, lon float64, baseFootfall int) (Site, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Site{}, fmt.Errorf("%w: empty id", ErrInvalidSite)
	}
	if baseFootfall <= 0 {
		return Site{}, fmt.Errorf("%w: site %s base footfall %d", ErrInvalidSite, id, baseFootfall)
	}
	if name == "" {
		name = id
	}
	return Site{ID: id, Name: name, Lat: lat, Lon: lon, BaseFootfall: baseFootfall}, nil
}

type FeatureVector struct {
	Temperature float64 `json:"temperature"`
	IsFestival  bool    `json:"is_festival"`
	IsHoliday   bool    `json:"is_holiday"`
	Month       int     `json:"month"`
	DayOfWeek   int     `json:"day_of_week"`
}

type HistoricalSample struct {
	Date     time.Time     `json:"date"`
	Footfall int           `json:"footfall"`
	Features FeatureVector `json:"features"`
}

type ForecastPoint struct {
	Date              time.Time `json:"date"`
	PredictedFootfall int       `json:"predicted_footfall"`
}

type SlotClass string

const (
	SlotFree SlotClass = "Free"
	SlotPaid SlotClass = "Paid"
)

type PassStatus string

const (
	StatusWaiting   PassStatus = "Waiting"
	StatusCalled    PassStatus = "Called"
	StatusCancelled PassStatus = "Cancelled"
)

type QueueEntry struct {
	PassID               string     `json:"pass_id"`
	SiteID               string     `json:"site_id"`
	UserID               string     `json:"user_id"`
	Lang                 string     `json:"lang"`
	JoinTime             time.Time  `json:"join_time"`
	Priority             bool       `json:"priority"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	SlotTime             time.Time  `json:"slot_time"`
	SlotClass            SlotClass  `json:"slot_class"`
	Status               PassStatus `json:"status"`
	PredictedToday       int        `json:"predicted_today"`
}

type Progress struct {
	ElapsedMinutes   float64 `json:"elapsed_minutes"`
	RemainingMinutes float64 `json:"remaining_minutes"`
	PercentComplete  float64 `json:"percent_complete"`
}

type AlertKind string

const (
	AlertPanic    AlertKind = "Panic"
	AlertSOS      AlertKind = "SOS"
	AlertDispatch AlertKind = "Dispatch"
)

type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

type Alert struct {
	ID         string    `json:"id"`
	Kind       AlertKind `json:"kind"`
	SiteID     string    `json:"site_id"`
	Location   string    `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
	Severity   Severity  `json:"severity"`
	Density    float64   `json:"density,omitempty"`
	ETAMinutes int       `json:"eta_minutes,omitempty"`
	Dispatched bool      `json:"dispatched"`
}

type DensityReading struct {
	SiteID    string    `json:"site_id"`
	Timestamp time.Time `json:"timestamp"`
	Density   float64   `json:"density"`
	Source    string    `json:"source"`
}
