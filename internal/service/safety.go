package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/crowd"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/i18n"
	"github.com/yatra_sevak/backend/internal/metrics"
	"github.com/yatra_sevak/backend/internal/models"
)

var ErrInvalidScan = errors.New("invalid scan request")

const MaxScanTicks = 50

// SafetyService runs the crowd density checks, SOS requests and responder
// dispatch for each site.
type SafetyService struct {
	Sites     *SiteRegistry
	State     *AppState
	Simulator *crowd.Simulator
	Clock     calendar.Clock
	Events    events.Publisher
	Archive   Archive
	Logger    zerolog.Logger
}

type ScanResult struct {
	SiteID          string                  `json:"site_id"`
	Readings        []models.DensityReading `json:"readings"`
	Latest          models.DensityReading   `json:"latest"`
	Alert           *models.Alert           `json:"alert,omitempty"`
	Message         string                  `json:"message,omitempty"`
	ParkingCapacity int                     `json:"parking_capacity"`
	ParkingFree     int                     `json:"parking_free"`
}

type SOSResult struct {
	SOS      models.Alert `json:"sos"`
	Dispatch models.Alert `json:"dispatch"`
	Message  string       `json:"message"`
}

type DispatchResult struct {
	SiteID     string `json:"site_id"`
	Dispatched int    `json:"dispatched"`
	Message    string `json:"message"`
}

// Scan simulates ticks sensor readings for siteID, feeds them through panic
// detection and reports parking availability.
func (s *SafetyService) Scan(ctx context.Context, siteID string, ticks int, lang string) (ScanResult, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return ScanResult{}, err
	}
	if ticks < 1 || ticks > MaxScanTicks {
		return ScanResult{}, fmt.Errorf("%w: ticks %d outside [1,%d]", ErrInvalidScan, ticks, MaxScanTicks)
	}

	readings := s.Simulator.Readings(site.ID, ticks, s.State.SurgeActive(), s.State.Alerts.PanicOpen(site.ID), s.Clock.Now())
	res := ScanResult{SiteID: site.ID, Readings: readings, Latest: readings[len(readings)-1]}
	for _, r := range readings {
		alert, err := s.IngestReading(ctx, r)
		if err != nil {
			return ScanResult{}, err
		}
		if alert != nil {
			res.Alert = alert
		}
	}
	if res.Alert != nil {
		res.Message, err = i18n.Render(i18n.PanicDetected, i18n.ParseLocale(lang), i18n.Text(res.Alert.Location))
		if err != nil {
			return ScanResult{}, err
		}
	}

	res.ParkingCapacity = crowd.ParkingCapacity(site.BaseFootfall)
	res.ParkingFree = s.Simulator.ParkingFree(res.ParkingCapacity)
	s.Events.Publish(ctx, events.Event{Type: events.DensityScanned, SiteID: site.ID, Data: res.Latest})
	return res, nil
}

// IngestReading stores one reading and raises a panic alert when the site's
// recent history shows a sudden spike and no panic alert is already open.
// It returns the alert, if any.
func (s *SafetyService) IngestReading(ctx context.Context, r models.DensityReading) (*models.Alert, error) {
	site, err := s.Sites.Get(r.SiteID)
	if err != nil {
		metrics.DensityRejected.Inc()
		return nil, err
	}
	r.SiteID = site.ID
	if err := s.State.Monitor.Ingest(r); err != nil {
		metrics.DensityRejected.Inc()
		return nil, err
	}
	metrics.DensityReadings.WithLabelValues(r.Source).Inc()

	if s.State.Alerts.PanicOpen(site.ID) || !crowd.DetectPanic(s.State.Monitor.Recent(site.ID, crowd.PanicWindow)) {
		return nil, nil
	}
	alert := s.raise(ctx, models.Alert{
		Kind:      models.AlertPanic,
		SiteID:    site.ID,
		Location:  crowd.PanicLocation(site.ID, r.Timestamp),
		CreatedAt: r.Timestamp,
		Severity:  models.SeverityHigh,
		Density:   r.Density,
	})
	s.Logger.Warn().
		Str("site", site.ID).
		Str("location", alert.Location).
		Float64("density", r.Density).
		Msg("panic detected")
	return &alert, nil
}

// SOS records an emergency at siteID and the responder dispatched to it.
func (s *SafetyService) SOS(ctx context.Context, siteID, location, lang string) (SOSResult, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return SOSResult{}, err
	}
	if location == "" {
		location = crowd.Locations[0]
	}
	msg, err := i18n.Render(i18n.SOSSent, i18n.ParseLocale(lang))
	if err != nil {
		return SOSResult{}, err
	}

	sos, dispatch := s.State.Alerts.RaiseSOS(site.ID, location, s.Simulator.ETA(), s.Clock.Now())
	for _, a := range []models.Alert{sos, dispatch} {
		s.recorded(ctx, a)
	}
	s.Logger.Warn().Str("site", site.ID).Str("location", location).Int("eta_minutes", dispatch.ETAMinutes).Msg("sos raised")
	return SOSResult{SOS: sos, Dispatch: dispatch, Message: msg}, nil
}

func (s *SafetyService) Alerts(siteID string) ([]models.Alert, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return nil, err
	}
	return s.State.Alerts.ListBySite(site.ID), nil
}

// Dispatch sends responders to every open alert at siteID.
func (s *SafetyService) Dispatch(ctx context.Context, siteID, lang string) (DispatchResult, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return DispatchResult{}, err
	}
	n := s.State.Alerts.DispatchSite(site.ID)
	id := i18n.Dispatched
	if n == 0 {
		id = i18n.NoAlerts
	}
	msg, err := i18n.Render(id, i18n.ParseLocale(lang))
	if err != nil {
		return DispatchResult{}, err
	}
	if n > 0 {
		if err := s.Archive.MarkDispatched(ctx, site.ID); err != nil {
			s.Logger.Error().Err(err).Str("site", site.ID).Msg("archive dispatch failed")
		}
		s.Logger.Info().Str("site", site.ID).Int("alerts", n).Msg("responders dispatched")
		s.Events.Publish(ctx, events.Event{Type: events.AlertsDispatched, SiteID: site.ID, Data: n})
	}
	return DispatchResult{SiteID: site.ID, Dispatched: n, Message: msg}, nil
}

func (s *SafetyService) raise(ctx context.Context, a models.Alert) models.Alert {
	a = s.State.Alerts.Raise(a)
	s.recorded(ctx, a)
	return a
}

func (s *SafetyService) recorded(ctx context.Context, a models.Alert) {
	metrics.AlertsRaised.WithLabelValues(a.SiteID, string(a.Kind)).Inc()
	if err := s.Archive.SaveAlert(ctx, a); err != nil {
		s.Logger.Error().Err(err).Str("alert_id", a.ID).Msg("archive alert failed")
	}
	s.Events.Publish(ctx, events.Event{Type: events.AlertRaised, SiteID: a.SiteID, At: a.CreatedAt, Data: a})
}
