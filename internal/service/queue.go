package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/forecast"
	"github.com/yatra_sevak/backend/internal/i18n"
	"github.com/yatra_sevak/backend/internal/metrics"
	"github.com/yatra_sevak/backend/internal/models"
)

// Forecaster is the slice of forecast.Forecaster the queue needs.
type Forecaster interface {
	Forecast(ctx context.Context, site models.Site, start time.Time, days int) ([]models.ForecastPoint, error)
	Model(ctx context.Context, base int) (*forecast.Model, error)
}

type QueueService struct {
	Sites      *SiteRegistry
	Forecaster Forecaster
	Policy     Policy
	State      *AppState
	Clock      calendar.Clock
	Events     events.Publisher
	Archive    Archive
	Logger     zerolog.Logger

	SurgeMultiplier  float64
	SurgeHorizonDays int
}

type JoinRequest struct {
	SiteID   string
	UserID   string
	Priority bool
	Lang     string
}

type BulkResult struct {
	Requested int      `json:"requested"`
	Matched   int      `json:"matched"`
	Unmatched []string `json:"unmatched"`
}

type SurgeEvaluation struct {
	SiteID    string                 `json:"site_id"`
	Threshold int                    `json:"threshold"`
	Surge     bool                   `json:"surge"`
	Applied   bool                   `json:"applied"`
	Points    []models.ForecastPoint `json:"points"`
}

func (s *QueueService) ListSites() []models.Site {
	return s.Sites.List()
}

func (s *QueueService) Site(id string) (models.Site, error) {
	return s.Sites.Get(id)
}

// Forecast predicts daily footfall for siteID starting today.
func (s *QueueService) Forecast(ctx context.Context, siteID string, days int) ([]models.ForecastPoint, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return nil, err
	}
	return s.Forecaster.Forecast(ctx, site, s.Clock.Now(), days)
}

func (s *QueueService) FeatureImportances(ctx context.Context, siteID string) ([]forecast.FeatureImportance, forecast.Validation, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return nil, forecast.Validation{}, err
	}
	m, err := s.Forecaster.Model(ctx, site.BaseFootfall)
	if err != nil {
		return nil, forecast.Validation{}, err
	}
	imp, err := m.FeatureImportances()
	if err != nil {
		return nil, forecast.Validation{}, err
	}
	return imp, m.Validation(), nil
}

// JoinQueue admits a visitor to siteID and returns the issued pass with a
// localized confirmation. A failed forecast falls back to the site's base
// footfall so admission is never blocked.
func (s *QueueService) JoinQueue(ctx context.Context, req JoinRequest) (models.QueueEntry, string, error) {
	site, err := s.Sites.Get(req.SiteID)
	if err != nil {
		return models.QueueEntry{}, "", err
	}
	now := s.Clock.Now()
	predicted := s.predictToday(ctx, site, now)
	adm := s.Policy.Admit(site, predicted, req.Priority, s.State.SurgeActive(), now)
	locale := i18n.ParseLocale(req.Lang)
	msg, err := i18n.Render(i18n.TokenIssued, locale, i18n.Int(adm.EstimatedWaitMinutes), i18n.Clock(adm.SlotTime))
	if err != nil {
		return models.QueueEntry{}, "", err
	}

	entry := s.State.Ledger.Append(models.QueueEntry{
		SiteID:               site.ID,
		UserID:               req.UserID,
		Lang:                 string(locale),
		JoinTime:             now,
		Priority:             req.Priority,
		EstimatedWaitMinutes: adm.EstimatedWaitMinutes,
		SlotTime:             adm.SlotTime,
		SlotClass:            adm.SlotClass,
		PredictedToday:       predicted,
	})

	metrics.PassesIssued.WithLabelValues(site.ID, string(entry.SlotClass)).Inc()
	s.Logger.Info().
		Str("site", site.ID).
		Str("pass_id", entry.PassID).
		Int("wait_minutes", entry.EstimatedWaitMinutes).
		Str("slot_class", string(entry.SlotClass)).
		Msg("pass issued")

	if err := s.Archive.SavePass(ctx, entry); err != nil {
		s.Logger.Error().Err(err).Str("pass_id", entry.PassID).Msg("archive pass failed")
	}
	s.Events.Publish(ctx, events.Event{Type: events.PassIssued, SiteID: site.ID, At: now, Data: entry})
	return entry, msg, nil
}

func (s *QueueService) predictToday(ctx context.Context, site models.Site, now time.Time) int {
	points, err := s.Forecaster.Forecast(ctx, site, now, 1)
	if err == nil && len(points) == 1 {
		return points[0].PredictedFootfall
	}
	if err == nil {
		err = errors.New("empty forecast")
	}
	metrics.ForecastFallbacks.Inc()
	s.Logger.Warn().Err(err).Str("site", site.ID).Int("base_footfall", site.BaseFootfall).Msg("forecast unavailable, using flat baseline")
	return site.BaseFootfall
}

func (s *QueueService) QueueStatus(siteID string) ([]models.QueueEntry, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return nil, err
	}
	return s.State.Ledger.ListBySite(site.ID), nil
}

func (s *QueueService) Pass(passID string) (models.QueueEntry, error) {
	entry, ok := s.State.Ledger.Get(passID)
	if !ok {
		return models.QueueEntry{}, fmt.Errorf("%w: %s", ErrUnknownPassID, passID)
	}
	return entry, nil
}

func (s *QueueService) Progress(passID string) (models.Progress, error) {
	entry, err := s.Pass(passID)
	if err != nil {
		return models.Progress{}, err
	}
	return ComputeProgress(entry, s.Clock.Now()), nil
}

func (s *QueueService) GrantPriority(ctx context.Context, passIDs []string) BulkResult {
	ids := dedupe(passIDs)
	matched := s.State.Ledger.GrantPriority(ids)
	res := bulkResult(ids, matched)
	if res.Matched == 0 {
		return res
	}

	s.Logger.Info().Int("matched", res.Matched).Strs("unmatched", res.Unmatched).Msg("priority granted")
	for _, id := range matched {
		if e, ok := s.State.Ledger.Get(id); ok {
			if err := s.Archive.SavePass(ctx, e); err != nil {
				s.Logger.Error().Err(err).Str("pass_id", id).Msg("archive pass failed")
			}
		}
	}
	s.Events.Publish(ctx, events.Event{Type: events.PriorityGranted, Data: matched})
	return res
}

func (s *QueueService) Cancel(ctx context.Context, passIDs []string) BulkResult {
	ids := dedupe(passIDs)
	removed := s.State.Ledger.Cancel(ids)
	matched := make([]string, len(removed))
	for i, e := range removed {
		matched[i] = e.PassID
	}
	res := bulkResult(ids, matched)
	if res.Matched == 0 {
		return res
	}

	metrics.PassesCancelled.Add(float64(res.Matched))
	s.Logger.Info().Int("matched", res.Matched).Strs("unmatched", res.Unmatched).Msg("passes cancelled")
	if err := s.Archive.DeletePasses(ctx, matched); err != nil {
		s.Logger.Error().Err(err).Msg("archive cancel failed")
	}
	s.Events.Publish(ctx, events.Event{Type: events.PassesCancelled, Data: matched})
	return res
}

// Call marks a waiting pass as called and returns the localized notice.
func (s *QueueService) Call(ctx context.Context, passID string) (models.QueueEntry, string, error) {
	entry, err := s.State.Ledger.Call(passID)
	if err != nil {
		return models.QueueEntry{}, "", err
	}
	msg, err := i18n.Render(i18n.YourTurn, i18n.ParseLocale(entry.Lang))
	if err != nil {
		return models.QueueEntry{}, "", err
	}
	if err := s.Archive.SavePass(ctx, entry); err != nil {
		s.Logger.Error().Err(err).Str("pass_id", entry.PassID).Msg("archive pass failed")
	}
	s.Events.Publish(ctx, events.Event{Type: events.PassCalled, SiteID: entry.SiteID, Data: entry})
	return entry, msg, nil
}

func (s *QueueService) SurgeActive() bool {
	return s.State.SurgeActive()
}

func (s *QueueService) SetSurgeActive(ctx context.Context, active bool) {
	if !s.State.SetSurgeActive(active) {
		return
	}
	s.Logger.Warn().Bool("surge", active).Msg("surge flag changed")
	s.Events.Publish(ctx, events.Event{Type: events.SurgeChanged, Data: active})
}

// EvaluateSurge checks the near-term forecast for siteID against
// base*SurgeMultiplier. The flag is only raised when apply is set.
func (s *QueueService) EvaluateSurge(ctx context.Context, siteID string, apply bool) (SurgeEvaluation, error) {
	site, err := s.Sites.Get(siteID)
	if err != nil {
		return SurgeEvaluation{}, err
	}
	points, err := s.Forecaster.Forecast(ctx, site, s.Clock.Now(), s.SurgeHorizonDays)
	if err != nil {
		return SurgeEvaluation{}, err
	}
	ev := SurgeEvaluation{
		SiteID:    site.ID,
		Threshold: int(float64(site.BaseFootfall) * s.SurgeMultiplier),
		Surge:     forecast.EvaluateSurge(points, site.BaseFootfall, s.SurgeMultiplier),
		Points:    points,
	}
	if apply && ev.Surge {
		s.SetSurgeActive(ctx, true)
		ev.Applied = true
	}
	return ev, nil
}

// TokenText is the payload encoded into a pass's QR code.
func TokenText(e models.QueueEntry) string {
	return fmt.Sprintf("Pass:%s-User%s|PassID:%s|Slot:%s|Wait:%dmin|Type:%s",
		e.SiteID, e.UserID, e.PassID, e.SlotTime.Format("15:04"), e.EstimatedWaitMinutes, e.SlotClass)
}

var exportHeader = []string{
	"pass_id", "site_id", "user_id", "lang", "join_time", "priority",
	"estimated_wait_minutes", "slot_time", "slot_class", "status", "predicted_today",
}

// ExportCSV writes the ledger, optionally limited to one site, as CSV.
func (s *QueueService) ExportCSV(w io.Writer, siteID string) error {
	entries := s.State.Ledger.All()
	if siteID != "" {
		site, err := s.Sites.Get(siteID)
		if err != nil {
			return err
		}
		entries = s.State.Ledger.ListBySite(site.ID)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.PassID,
			e.SiteID,
			e.UserID,
			e.Lang,
			e.JoinTime.Format(time.RFC3339),
			strconv.FormatBool(e.Priority),
			strconv.Itoa(e.EstimatedWaitMinutes),
			e.SlotTime.Format(time.RFC3339),
			string(e.SlotClass),
			string(e.Status),
			strconv.Itoa(e.PredictedToday),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func bulkResult(requested, matched []string) BulkResult {
	hit := make(map[string]struct{}, len(matched))
	for _, id := range matched {
		hit[id] = struct{}{}
	}
	res := BulkResult{Requested: len(requested), Matched: len(matched), Unmatched: []string{}}
	for _, id := range requested {
		if _, ok := hit[id]; !ok {
			res.Unmatched = append(res.Unmatched, id)
		}
	}
	return res
}
